package domain

import (
	"bytes"
	"encoding/json"
)

// SchemaVersion 持久化格式版本
const SchemaVersion = 1

type persistedCart struct {
	SchemaVersion int        `json:"schemaVersion"`
	Lines         []CartLine `json:"lines"`
}

// EncodeLines 将全部行序列化为带版本的 JSON
func EncodeLines(lines []CartLine) ([]byte, error) {
	if lines == nil {
		lines = []CartLine{}
	}
	return json.Marshal(persistedCart{SchemaVersion: SchemaVersion, Lines: lines})
}

// DecodeLines 解析持久化数据。兼容无版本的旧格式（裸 JSON 数组）；
// 数据为空、无法解析或版本未知时返回 nil。
func DecodeLines(data []byte) []CartLine {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	if data[0] == '[' {
		var lines []CartLine
		if err := json.Unmarshal(data, &lines); err != nil {
			return nil
		}
		return sanitize(lines)
	}

	var pc persistedCart
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil
	}
	if pc.SchemaVersion < 1 || pc.SchemaVersion > SchemaVersion {
		return nil
	}
	return sanitize(pc.Lines)
}

// sanitize 丢弃无效或超过单行上限的行，重复键保留第一次出现的行
func sanitize(lines []CartLine) []CartLine {
	if len(lines) == 0 {
		return nil
	}
	seen := make(map[LineKey]struct{}, len(lines))
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.StoreID == "" || l.Quantity < 1 || l.Quantity > MaxLineQuantity {
			continue
		}
		if _, dup := seen[l.Key()]; dup {
			continue
		}
		seen[l.Key()] = struct{}{}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
