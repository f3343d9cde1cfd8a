package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, size         int
		total              int64
		wantPage, wantSize int
		wantOffset         int
		wantPages          int64
	}{
		{"defaults", 0, 0, 0, 1, 20, 0, 0},
		{"second page", 2, 10, 25, 2, 10, 10, 3},
		{"size capped", 1, 500, 150, 1, 100, 0, 2},
		{"negative page", -3, 5, 5, 1, 5, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.size, tt.total)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantSize, p.Limit())
			assert.Equal(t, tt.wantOffset, p.Offset())
			assert.Equal(t, tt.wantPages, p.Pages)
		})
	}
}
