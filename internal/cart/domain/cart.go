package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Cart 单个买家会话的购物车，跨多个店铺保存行。
// Cart 本身不是并发安全的，由应用层按会话串行化访问。
type Cart struct {
	lines []CartLine
	now   func() time.Time
}

// Option 购物车构造选项
type Option func(*Cart)

// WithClock 注入时钟，用于生成 AddedAt
func WithClock(now func() time.Time) Option {
	return func(c *Cart) { c.now = now }
}

// NewCart 创建空购物车
func NewCart(opts ...Option) *Cart {
	c := &Cart{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddItem 加入商品。已存在的行累加数量；实物商品累加后超过库存则拒绝，购物车不变。
// quantity 小于 1 时按 1 处理；任何商品累加后超过 MaxLineQuantity 同样拒绝。
func (c *Cart) AddItem(product ProductSnapshot, quantity int, store StoreSnapshot) Result {
	if quantity < 1 {
		quantity = 1
	}

	ceiling := quantityCeiling(product.IsDigital, product.Stock)
	key := LineKey{ProductID: product.ID, StoreID: store.ID}
	if i, ok := c.index(key); ok {
		line := &c.lines[i]
		if quantity > ceiling-line.Quantity {
			requested := math.MaxInt
			if quantity <= math.MaxInt-line.Quantity {
				requested = line.Quantity + quantity
			}
			return Result{
				Outcome:   OutcomeInsufficientStock,
				Quantity:  line.Quantity,
				Requested: requested,
				Available: ceiling,
			}
		}
		next := line.Quantity + quantity
		line.Quantity = next
		line.InStock = product.Stock
		return Result{Outcome: OutcomeApplied, Quantity: next}
	}

	if quantity > ceiling {
		return Result{
			Outcome:   OutcomeInsufficientStock,
			Requested: quantity,
			Available: ceiling,
		}
	}

	c.lines = append(c.lines, CartLine{
		ProductID:   product.ID,
		StoreID:     store.ID,
		Name:        product.Name,
		UnitPrice:   product.Price,
		ImageRef:    product.Image,
		Category:    product.Category,
		Quantity:    quantity,
		InStock:     product.Stock,
		IsDigital:   product.IsDigital,
		StoreName:   store.Name,
		StoreSlug:   store.Slug,
		StoreAccent: store.AccentColor,
		AddedAt:     c.now().UTC(),
	})
	return Result{Outcome: OutcomeApplied, Quantity: quantity}
}

// RemoveItem 移除行，行不存在时为空操作
func (c *Cart) RemoveItem(productID, storeID string) Result {
	i, ok := c.index(LineKey{ProductID: productID, StoreID: storeID})
	if !ok {
		return Result{Outcome: OutcomeUnchanged}
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return Result{Outcome: OutcomeApplied}
}

// UpdateQuantity 设置行数量。newQuantity <= 0 等同于 RemoveItem；
// 实物商品以行上保存的库存快照为上限，所有商品都不能超过 MaxLineQuantity。
func (c *Cart) UpdateQuantity(productID, storeID string, newQuantity int) Result {
	if newQuantity <= 0 {
		return c.RemoveItem(productID, storeID)
	}

	i, ok := c.index(LineKey{ProductID: productID, StoreID: storeID})
	if !ok {
		return Result{Outcome: OutcomeUnchanged}
	}

	line := &c.lines[i]
	if line.exceedsStock(newQuantity) {
		return Result{
			Outcome:   OutcomeInsufficientStock,
			Quantity:  line.Quantity,
			Requested: newQuantity,
			Available: quantityCeiling(line.IsDigital, line.InStock),
		}
	}
	if line.Quantity == newQuantity {
		return Result{Outcome: OutcomeUnchanged, Quantity: newQuantity}
	}
	line.Quantity = newQuantity
	return Result{Outcome: OutcomeApplied, Quantity: newQuantity}
}

// Clear 清空购物车，总是成功
func (c *Cart) Clear() Result {
	c.lines = nil
	return Result{Outcome: OutcomeApplied}
}

// Load 从持久化数据恢复，数据无效时得到空购物车
func (c *Cart) Load(data []byte) {
	c.lines = DecodeLines(data)
}

// Restore 用给定的行替换当前内容，会过滤无效行
func (c *Cart) Restore(lines []CartLine) {
	c.lines = sanitize(lines)
}

// Encode 序列化当前全部行
func (c *Cart) Encode() ([]byte, error) {
	return EncodeLines(c.lines)
}

// Lines 返回行的副本
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len 行数
func (c *Cart) Len() int { return len(c.lines) }

// IsEmpty 是否为空
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// ItemCount 所有行数量之和，而不是行数
func (c *Cart) ItemCount() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total 全部行的金额合计
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// StoreTotal 指定店铺的金额合计
func (c *Cart) StoreTotal(storeID string) decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		if l.StoreID == storeID {
			total = total.Add(l.Subtotal())
		}
	}
	return total
}

// IsInCart 行是否存在
func (c *Cart) IsInCart(productID, storeID string) bool {
	_, ok := c.index(LineKey{ProductID: productID, StoreID: storeID})
	return ok
}

// QuantityOf 行数量，不存在时为 0
func (c *Cart) QuantityOf(productID, storeID string) int {
	if i, ok := c.index(LineKey{ProductID: productID, StoreID: storeID}); ok {
		return c.lines[i].Quantity
	}
	return 0
}

// GroupByStore 按店铺分组，分组顺序为店铺首次出现的顺序
func (c *Cart) GroupByStore() []StoreGroup {
	groups := make([]StoreGroup, 0)
	pos := make(map[string]int)

	for _, l := range c.lines {
		i, ok := pos[l.StoreID]
		if !ok {
			i = len(groups)
			pos[l.StoreID] = i
			groups = append(groups, StoreGroup{
				StoreID:     l.StoreID,
				StoreName:   l.StoreName,
				StoreSlug:   l.StoreSlug,
				StoreAccent: l.StoreAccent,
				Subtotal:    decimal.Zero,
			})
		}
		g := &groups[i]
		g.Lines = append(g.Lines, l)
		g.ItemCount += l.Quantity
		g.Subtotal = g.Subtotal.Add(l.Subtotal())
	}
	return groups
}

func (c *Cart) index(key LineKey) (int, bool) {
	for i := range c.lines {
		if c.lines[i].Key() == key {
			return i, true
		}
	}
	return -1, false
}
