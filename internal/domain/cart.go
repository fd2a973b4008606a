package domain

import "errors"

var (
	ErrOutOfStock   = errors.New("product out of stock")
	ErrLineNotFound = errors.New("cart line not found")
)

// CartLine snapshots the product at add time; later catalog edits do not
// change lines already in a cart.
type CartLine struct {
	ProductID      string `json:"product_id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
}

func (l CartLine) LineTotalCents() int64 {
	return l.UnitPriceCents * int64(l.Qty)
}

// Cart is the working order of a single register session. It is not safe for
// concurrent use; the owning session serializes access.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// AddOrIncrement adds qty of the product, merging into an existing line when
// the product is already in the cart. Stock is only checked at add time here;
// checkout re-reads live stock before decrementing.
func (c *Cart) AddOrIncrement(p Product, qty int) error {
	if qty < 1 {
		qty = 1
	}
	if p.StockQty <= 0 {
		return ErrOutOfStock
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ID {
			c.Lines[i].Qty += qty
			return nil
		}
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID:      p.ID,
		Code:           p.Code,
		Name:           p.Name,
		UnitPriceCents: p.SalePriceCents,
		Qty:            qty,
	})
	return nil
}

// ChangeQuantity applies a delta to the line at index. A resulting quantity
// below one removes the line.
func (c *Cart) ChangeQuantity(index int, delta int) error {
	if index < 0 || index >= len(c.Lines) {
		return ErrLineNotFound
	}
	next := c.Lines[index].Qty + delta
	if next < 1 {
		return c.Remove(index)
	}
	c.Lines[index].Qty = next
	return nil
}

func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.Lines) {
		return ErrLineNotFound
	}
	c.Lines = append(c.Lines[:index], c.Lines[index+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) SubtotalCents() int64 {
	var subtotal int64
	for _, l := range c.Lines {
		subtotal += l.LineTotalCents()
	}
	return subtotal
}

type CartTotals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TotalCents    int64 `json:"total_cents"`
	ChangeCents   int64 `json:"change_cents"`
}

// Totals computes subtotal, total and change due. A negative total is
// representable and returned as-is; the caller decides whether to reject it.
func (c *Cart) Totals(discountCents, surchargeCents, tenderedCents int64) CartTotals {
	subtotal := c.SubtotalCents()
	total := subtotal - discountCents + surchargeCents
	change := tenderedCents - total
	if change < 0 {
		change = 0
	}
	return CartTotals{
		SubtotalCents: subtotal,
		TotalCents:    total,
		ChangeCents:   change,
	}
}

// Snapshot freezes the cart lines into immutable sale items.
func (c *Cart) Snapshot() []SaleItem {
	items := make([]SaleItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, SaleItem{
			ProductID:      l.ProductID,
			Code:           l.Code,
			Name:           l.Name,
			UnitPriceCents: l.UnitPriceCents,
			Qty:            l.Qty,
			LineTotalCents: l.LineTotalCents(),
		})
	}
	return items
}
