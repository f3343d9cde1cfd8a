package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestCart() *Cart {
	return NewCart(WithClock(func() time.Time { return fixedNow }))
}

func physical(id string, price int64, stock int) ProductSnapshot {
	return ProductSnapshot{ID: id, Name: "Product " + id, Price: decimal.NewFromInt(price), Stock: stock}
}

func digital(id string, price int64) ProductSnapshot {
	return ProductSnapshot{ID: id, Name: "Ebook " + id, Price: decimal.NewFromInt(price), IsDigital: true}
}

var (
	storeA = StoreSnapshot{ID: "s1", Name: "Toko A", Slug: "toko-a", AccentColor: "#ff0000"}
	storeB = StoreSnapshot{ID: "s2", Name: "Toko B", Slug: "toko-b"}
)

func TestCart_ExampleScenario(t *testing.T) {
	c := newTestCart()

	r := c.AddItem(physical("p1", 15000, 15), 2, storeA)
	require.Equal(t, OutcomeApplied, r.Outcome)
	assert.Equal(t, 2, c.ItemCount())
	assert.True(t, c.Total().Equal(decimal.NewFromInt(30000)))

	r = c.UpdateQuantity("p1", "s1", 20)
	assert.True(t, r.Rejected())
	assert.Equal(t, 20, r.Requested)
	assert.Equal(t, 15, r.Available)
	assert.Equal(t, 2, c.QuantityOf("p1", "s1"))

	r = c.UpdateQuantity("p1", "s1", 0)
	assert.True(t, r.Changed())
	assert.True(t, c.IsEmpty())
}

func TestCart_AddItem(t *testing.T) {
	t.Run("new line captures snapshots", func(t *testing.T) {
		c := newTestCart()
		p := physical("p1", 100, 5)
		p.Image = "img/p1.png"
		p.Category = "books"

		r := c.AddItem(p, 1, storeA)
		require.True(t, r.Changed())

		lines := c.Lines()
		require.Len(t, lines, 1)
		l := lines[0]
		assert.Equal(t, "p1", l.ProductID)
		assert.Equal(t, "s1", l.StoreID)
		assert.Equal(t, "Toko A", l.StoreName)
		assert.Equal(t, "toko-a", l.StoreSlug)
		assert.Equal(t, "#ff0000", l.StoreAccent)
		assert.Equal(t, "img/p1.png", l.ImageRef)
		assert.Equal(t, "books", l.Category)
		assert.Equal(t, 5, l.InStock)
		assert.Equal(t, fixedNow, l.AddedAt)
	})

	t.Run("quantity below one defaults to one", func(t *testing.T) {
		c := newTestCart()
		r := c.AddItem(physical("p1", 100, 5), 0, storeA)
		assert.Equal(t, 1, r.Quantity)
		r = c.AddItem(physical("p2", 100, 5), -3, storeA)
		assert.Equal(t, 1, r.Quantity)
		assert.Equal(t, 2, c.ItemCount())
	})

	t.Run("existing line accumulates", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(physical("p1", 100, 5), 2, storeA)
		r := c.AddItem(physical("p1", 100, 5), 3, storeA)
		assert.True(t, r.Changed())
		assert.Equal(t, 5, r.Quantity)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("accumulation over stock is rejected", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(physical("p1", 100, 5), 4, storeA)
		r := c.AddItem(physical("p1", 100, 5), 2, storeA)
		assert.Equal(t, OutcomeInsufficientStock, r.Outcome)
		assert.Equal(t, 6, r.Requested)
		assert.Equal(t, 5, r.Available)
		assert.Equal(t, 4, c.QuantityOf("p1", "s1"))
	})

	t.Run("new line over stock is rejected", func(t *testing.T) {
		c := newTestCart()
		r := c.AddItem(physical("p1", 100, 2), 3, storeA)
		assert.True(t, r.Rejected())
		assert.True(t, c.IsEmpty())
	})

	t.Run("out of stock product cannot be added", func(t *testing.T) {
		c := newTestCart()
		r := c.AddItem(physical("p1", 100, 0), 1, storeA)
		assert.True(t, r.Rejected())
		assert.False(t, c.IsInCart("p1", "s1"))
	})

	t.Run("digital product ignores stock", func(t *testing.T) {
		c := newTestCart()
		r := c.AddItem(digital("e1", 50), 100, storeA)
		assert.True(t, r.Changed())
		r = c.AddItem(digital("e1", 50), 900, storeA)
		assert.True(t, r.Changed())
		assert.Equal(t, 1000, c.QuantityOf("e1", "s1"))
	})

	t.Run("accumulation overflowing int is rejected", func(t *testing.T) {
		c := newTestCart()
		p := physical("p1", 100, 5)
		c.AddItem(p, 5, storeA)

		r := c.AddItem(p, math.MaxInt, storeA)
		assert.Equal(t, OutcomeInsufficientStock, r.Outcome)
		assert.Equal(t, math.MaxInt, r.Requested)
		assert.Equal(t, 5, r.Available)
		assert.Equal(t, 5, c.QuantityOf("p1", "s1"))
		assert.Equal(t, 5, c.ItemCount())
		assert.True(t, c.Total().Equal(decimal.NewFromInt(500)))
	})

	t.Run("digital accumulation overflowing int is rejected", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(digital("e1", 50), 10, storeA)

		r := c.AddItem(digital("e1", 50), math.MaxInt, storeA)
		assert.True(t, r.Rejected())
		assert.Equal(t, MaxLineQuantity, r.Available)
		assert.Equal(t, 10, c.QuantityOf("e1", "s1"))
		assert.Positive(t, c.ItemCount())
	})

	t.Run("same product in two stores is two lines", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(physical("p1", 100, 5), 1, storeA)
		c.AddItem(physical("p1", 100, 5), 1, storeB)
		assert.Equal(t, 2, c.Len())
		assert.Equal(t, 1, c.QuantityOf("p1", "s1"))
		assert.Equal(t, 1, c.QuantityOf("p1", "s2"))
	})

	t.Run("successful add refreshes stock snapshot", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(physical("p1", 100, 3), 1, storeA)
		c.AddItem(physical("p1", 100, 10), 1, storeA)

		r := c.UpdateQuantity("p1", "s1", 8)
		assert.True(t, r.Changed())
		assert.Equal(t, 10, c.Lines()[0].InStock)
	})
}

func TestCart_LineQuantityCap(t *testing.T) {
	t.Run("digital lines are capped", func(t *testing.T) {
		c := newTestCart()
		assert.True(t, c.AddItem(digital("e1", 1), MaxLineQuantity, storeA).Changed())

		r := c.AddItem(digital("e1", 1), 1, storeA)
		assert.True(t, r.Rejected())
		assert.Equal(t, MaxLineQuantity+1, r.Requested)
		assert.Equal(t, MaxLineQuantity, r.Available)
		assert.Equal(t, MaxLineQuantity, c.QuantityOf("e1", "s1"))
	})

	t.Run("huge new lines never make the count negative", func(t *testing.T) {
		c := newTestCart()
		r1 := c.AddItem(digital("e1", 1), math.MaxInt/2+1, storeA)
		r2 := c.AddItem(digital("e2", 1), math.MaxInt/2+1, storeA)
		assert.True(t, r1.Rejected())
		assert.True(t, r2.Rejected())
		assert.True(t, c.IsEmpty())

		c.AddItem(digital("e1", 1), MaxLineQuantity, storeA)
		c.AddItem(digital("e2", 1), MaxLineQuantity, storeA)
		assert.Equal(t, 2*MaxLineQuantity, c.ItemCount())
		groups := c.GroupByStore()
		require.Len(t, groups, 1)
		assert.Equal(t, 2*MaxLineQuantity, groups[0].ItemCount)
		assert.True(t, c.Total().Equal(decimal.NewFromInt(2*MaxLineQuantity)))
	})

	t.Run("physical stock above the cap is capped", func(t *testing.T) {
		c := newTestCart()
		r := c.AddItem(physical("p1", 1, MaxLineQuantity*10), MaxLineQuantity+1, storeA)
		assert.True(t, r.Rejected())
		assert.Equal(t, MaxLineQuantity, r.Available)
	})

	t.Run("update above the cap is rejected", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(digital("e1", 1), 1, storeA)
		r := c.UpdateQuantity("e1", "s1", math.MaxInt)
		assert.True(t, r.Rejected())
		assert.Equal(t, MaxLineQuantity, r.Available)
		assert.Equal(t, 1, c.QuantityOf("e1", "s1"))
	})
}

func TestCart_RemoveItem(t *testing.T) {
	c := newTestCart()
	c.AddItem(physical("p1", 100, 5), 1, storeA)
	c.AddItem(physical("p2", 100, 5), 1, storeA)

	r := c.RemoveItem("missing", "s1")
	assert.Equal(t, OutcomeUnchanged, r.Outcome)
	assert.Equal(t, 2, c.Len())

	r = c.RemoveItem("p1", "s1")
	assert.True(t, r.Changed())
	assert.False(t, c.IsInCart("p1", "s1"))
	assert.True(t, c.IsInCart("p2", "s1"))
}

func TestCart_UpdateQuantity(t *testing.T) {
	t.Run("missing line is a no-op", func(t *testing.T) {
		c := newTestCart()
		r := c.UpdateQuantity("p1", "s1", 3)
		assert.Equal(t, OutcomeUnchanged, r.Outcome)
		assert.True(t, c.IsEmpty())
	})

	t.Run("negative removes", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(physical("p1", 100, 5), 2, storeA)
		r := c.UpdateQuantity("p1", "s1", -1)
		assert.True(t, r.Changed())
		assert.True(t, c.IsEmpty())
	})

	t.Run("same quantity is unchanged", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(physical("p1", 100, 5), 2, storeA)
		r := c.UpdateQuantity("p1", "s1", 2)
		assert.Equal(t, OutcomeUnchanged, r.Outcome)
		assert.Equal(t, 2, r.Quantity)
	})

	t.Run("bounded by captured stock", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(physical("p1", 100, 5), 1, storeA)
		assert.True(t, c.UpdateQuantity("p1", "s1", 5).Changed())
		assert.True(t, c.UpdateQuantity("p1", "s1", 6).Rejected())
		assert.Equal(t, 5, c.QuantityOf("p1", "s1"))
	})

	t.Run("digital unbounded", func(t *testing.T) {
		c := newTestCart()
		c.AddItem(digital("e1", 10), 1, storeA)
		assert.True(t, c.UpdateQuantity("e1", "s1", 10000).Changed())
	})
}

func TestCart_Clear(t *testing.T) {
	c := newTestCart()
	assert.True(t, c.Clear().Changed())

	c.AddItem(physical("p1", 100, 5), 1, storeA)
	c.AddItem(digital("e1", 10), 1, storeB)
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.ItemCount())
	assert.True(t, c.Total().IsZero())
	assert.Empty(t, c.GroupByStore())
}

func TestCart_Totals(t *testing.T) {
	c := newTestCart()
	c.AddItem(ProductSnapshot{ID: "p1", Price: decimal.RequireFromString("19.99"), Stock: 10}, 3, storeA)
	c.AddItem(physical("p2", 5, 10), 2, storeB)
	c.AddItem(digital("e1", 7), 1, storeA)

	assert.Equal(t, 6, c.ItemCount())
	assert.Equal(t, "76.97", c.Total().StringFixed(2))
	assert.Equal(t, "66.97", c.StoreTotal("s1").StringFixed(2))
	assert.Equal(t, "10.00", c.StoreTotal("s2").StringFixed(2))
	assert.True(t, c.StoreTotal("nope").IsZero())

	sum := decimal.Zero
	for _, g := range c.GroupByStore() {
		sum = sum.Add(g.Subtotal)
	}
	assert.True(t, sum.Equal(c.Total()))
}

func TestCart_GroupByStore(t *testing.T) {
	c := newTestCart()
	c.AddItem(physical("p1", 10, 10), 1, storeB)
	c.AddItem(physical("p2", 10, 10), 2, storeA)
	c.AddItem(physical("p3", 10, 10), 3, storeB)

	groups := c.GroupByStore()
	require.Len(t, groups, 2)

	assert.Equal(t, "s2", groups[0].StoreID)
	assert.Equal(t, "Toko B", groups[0].StoreName)
	assert.Equal(t, 4, groups[0].ItemCount)
	require.Len(t, groups[0].Lines, 2)
	assert.Equal(t, "p1", groups[0].Lines[0].ProductID)
	assert.Equal(t, "p3", groups[0].Lines[1].ProductID)

	assert.Equal(t, "s1", groups[1].StoreID)
	assert.Equal(t, "#ff0000", groups[1].StoreAccent)
	assert.Equal(t, 2, groups[1].ItemCount)
	assert.Equal(t, "20", groups[1].Subtotal.String())
}

func TestCart_LinesIsCopy(t *testing.T) {
	c := newTestCart()
	c.AddItem(physical("p1", 10, 10), 1, storeA)

	lines := c.Lines()
	lines[0].Quantity = 99
	assert.Equal(t, 1, c.QuantityOf("p1", "s1"))
}

func TestCart_RestoreDropsInvalid(t *testing.T) {
	c := newTestCart()
	c.Restore([]CartLine{
		{ProductID: "p1", StoreID: "s1", Quantity: 1},
		{ProductID: "", StoreID: "s1", Quantity: 1},
		{ProductID: "p2", StoreID: "s1", Quantity: 0},
		{ProductID: "p1", StoreID: "s1", Quantity: 7},
		{ProductID: "e1", StoreID: "s1", IsDigital: true, Quantity: MaxLineQuantity + 1},
		{ProductID: "e2", StoreID: "s1", IsDigital: true, Quantity: math.MaxInt},
	})
	require.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.QuantityOf("p1", "s1"))
}

func TestStockError(t *testing.T) {
	r := Result{Outcome: OutcomeInsufficientStock, Requested: 20, Available: 15}
	err := error(NewStockError(LineKey{ProductID: "p1", StoreID: "s1"}, r))

	assert.True(t, errors.Is(err, ErrInsufficientStock))

	var se *StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 20, se.Requested)
	assert.Equal(t, 15, se.Available)
	assert.Contains(t, err.Error(), "p1")
}
