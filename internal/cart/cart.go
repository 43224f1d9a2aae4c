package cart

import (
	"github.com/shopspring/decimal"

	"pharmapos/terminal/internal/domain"
)

// TaxRate is applied to the discounted subtotal.
var TaxRate = decimal.RequireFromString("0.15")

// Cart is the working set of lines for one checkout. It never fails: stock,
// emptiness and prescription rules are checked by the calling flow.
type Cart struct {
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{}
}

// AddOrIncrement adds one unit of product. A new line captures the product's
// current unit price.
func (c *Cart) AddOrIncrement(product domain.Product) domain.CartLine {
	if i := c.index(product.ID); i >= 0 {
		c.lines[i].Quantity++
		c.lines[i].Total = lineTotal(c.lines[i])
		return c.lines[i]
	}
	line := domain.CartLine{
		Product:   product,
		Quantity:  1,
		UnitPrice: product.UnitPrice,
		Discount:  decimal.Zero,
	}
	line.Total = lineTotal(line)
	c.lines = append(c.lines, line)
	return line
}

// SetQuantity removes the line when quantity <= 0. Unknown products are
// ignored and reported with ok=false.
func (c *Cart) SetQuantity(productID string, quantity int) (ok bool) {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.removeAt(i)
		return true
	}
	c.lines[i].Quantity = max(quantity, 1)
	c.lines[i].Total = lineTotal(c.lines[i])
	return true
}

// SetDiscount sets the per-unit discount, clamped to [0, unit price].
func (c *Cart) SetDiscount(productID string, perUnit decimal.Decimal) (ok bool) {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	if perUnit.IsNegative() {
		perUnit = decimal.Zero
	}
	if perUnit.GreaterThan(c.lines[i].UnitPrice) {
		perUnit = c.lines[i].UnitPrice
	}
	c.lines[i].Discount = perUnit
	c.lines[i].Total = lineTotal(c.lines[i])
	return true
}

func (c *Cart) RemoveLine(productID string) (ok bool) {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Line(productID string) (domain.CartLine, bool) {
	i := c.index(productID)
	if i < 0 {
		return domain.CartLine{}, false
	}
	return c.lines[i], true
}

// Lines returns a copy of the lines in the order they were first added.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Totals() domain.CartTotals {
	return ComputeTotals(c.lines)
}

// ComputeTotals derives the cart totals from lines and TaxRate alone.
func ComputeTotals(lines []domain.CartLine) domain.CartTotals {
	totals := domain.CartTotals{
		Subtotal:      decimal.Zero,
		TotalDiscount: decimal.Zero,
	}
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		totals.ItemCount += line.Quantity
		totals.Subtotal = totals.Subtotal.Add(lineTotal(line))
		totals.TotalDiscount = totals.TotalDiscount.Add(line.Discount.Mul(qty))
	}
	totals.Tax = totals.Subtotal.Mul(TaxRate)
	totals.Total = totals.Subtotal.Add(totals.Tax)
	return totals
}

func lineTotal(line domain.CartLine) decimal.Decimal {
	qty := decimal.NewFromInt(int64(line.Quantity))
	return line.UnitPrice.Mul(qty).Sub(line.Discount.Mul(qty))
}

func (c *Cart) index(productID string) int {
	for i, line := range c.lines {
		if line.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}
