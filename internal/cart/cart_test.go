package cart

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/terminal/internal/domain"
)

func product(id string, price int64) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, UnitPrice: decimal.NewFromInt(price)}
}

func TestAddOrIncrementCreatesSingleLine(t *testing.T) {
	c := New()
	line := c.AddOrIncrement(product("p1", 2500))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 1, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(2500)))
	assert.True(t, line.Total.Equal(decimal.NewFromInt(2500)))

	c.AddOrIncrement(product("p1", 2500))
	require.Equal(t, 1, c.Len())
	got, ok := c.Line("p1")
	require.True(t, ok)
	assert.Equal(t, 2, got.Quantity)
}

func TestUnitPriceCapturedAtAddTime(t *testing.T) {
	c := New()
	c.AddOrIncrement(product("p1", 1000))
	c.AddOrIncrement(product("p1", 1800))

	line, _ := c.Line("p1")
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(1000)))
	assert.True(t, line.Total.Equal(decimal.NewFromInt(2000)))
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	c := New()
	c.AddOrIncrement(product("p1", 1000))
	c.AddOrIncrement(product("p2", 500))

	assert.True(t, c.SetQuantity("p1", 0))
	assert.Equal(t, 1, c.Len())
	_, ok := c.Line("p1")
	assert.False(t, ok)

	assert.True(t, c.SetQuantity("p2", -3))
	assert.Equal(t, 0, c.Len())
}

func TestSetQuantityIsIdempotent(t *testing.T) {
	c := New()
	c.AddOrIncrement(product("p1", 1000))

	c.SetQuantity("p1", 4)
	once := c.Lines()
	c.SetQuantity("p1", 4)
	assert.Equal(t, once, c.Lines())
	assert.Equal(t, 4, c.Totals().ItemCount)
}

func TestSetQuantityUnknownProductIsNoop(t *testing.T) {
	c := New()
	assert.False(t, c.SetQuantity("missing", 3))
	assert.Equal(t, 0, c.Len())
}

func TestSetDiscountClampsToUnitPrice(t *testing.T) {
	c := New()
	c.AddOrIncrement(product("p1", 1000))
	c.SetQuantity("p1", 3)

	c.SetDiscount("p1", decimal.NewFromInt(200))
	line, _ := c.Line("p1")
	assert.True(t, line.Total.Equal(decimal.NewFromInt(2400)))

	c.SetDiscount("p1", decimal.NewFromInt(5000))
	line, _ = c.Line("p1")
	assert.True(t, line.Discount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, line.Total.IsZero())

	c.SetDiscount("p1", decimal.NewFromInt(-1))
	line, _ = c.Line("p1")
	assert.True(t, line.Discount.IsZero())
}

func TestTotalsWithDiscountAndTax(t *testing.T) {
	c := New()
	c.AddOrIncrement(product("p1", 1000))
	c.SetQuantity("p1", 2)
	c.SetDiscount("p1", decimal.NewFromInt(100))
	c.AddOrIncrement(product("p2", 400))

	totals := c.Totals()
	assert.Equal(t, 3, totals.ItemCount)
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(2200)), totals.Subtotal.String())
	assert.True(t, totals.TotalDiscount.Equal(decimal.NewFromInt(200)))
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(330)))
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(2530)))
}

func TestTotalsMatchLineSumsAfterRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	catalog := []domain.Product{product("a", 1250), product("b", 99), product("c", 40000), product("d", 7)}

	c := New()
	for step := 0; step < 500; step++ {
		p := catalog[rng.Intn(len(catalog))]
		switch rng.Intn(4) {
		case 0, 1:
			c.AddOrIncrement(p)
		case 2:
			c.SetQuantity(p.ID, rng.Intn(6)-1)
		case 3:
			c.RemoveLine(p.ID)
		}
		if rng.Intn(5) == 0 {
			c.SetDiscount(p.ID, decimal.NewFromInt(int64(rng.Intn(50))))
		}

		want := decimal.Zero
		for _, line := range c.Lines() {
			qty := decimal.NewFromInt(int64(line.Quantity))
			require.GreaterOrEqual(t, line.Quantity, 1)
			want = want.Add(line.UnitPrice.Mul(qty).Sub(line.Discount.Mul(qty)))
		}
		totals := c.Totals()
		require.True(t, totals.Subtotal.Equal(want), "step %d", step)
		require.True(t, totals.Tax.Equal(want.Mul(decimal.RequireFromString("0.15"))), "step %d", step)
		require.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.Tax)), "step %d", step)
	}
}

func TestClearAndLinesCopy(t *testing.T) {
	c := New()
	c.AddOrIncrement(product("p1", 10))
	lines := c.Lines()
	lines[0].Quantity = 99

	line, _ := c.Line("p1")
	assert.Equal(t, 1, line.Quantity)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.Totals().Total.IsZero())
}
