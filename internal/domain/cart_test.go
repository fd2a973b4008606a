package domain

import (
	"errors"
	"testing"
)

func testProduct(id string, priceCents int64, stock int) Product {
	return Product{
		ID:             id,
		Code:           "P" + id,
		Name:           "Product " + id,
		SalePriceCents: priceCents,
		StockQty:       stock,
		Active:         true,
	}
}

func TestCartAddOrIncrement(t *testing.T) {
	var cart Cart

	if err := cart.AddOrIncrement(testProduct("a", 1000, 10), 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.AddOrIncrement(testProduct("a", 1000, 10), 1); err != nil {
		t.Fatalf("add again: %v", err)
	}

	if len(cart.Lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(cart.Lines))
	}
	if cart.Lines[0].Qty != 3 {
		t.Fatalf("expected qty 3, got %d", cart.Lines[0].Qty)
	}
}

func TestCartAddOutOfStock(t *testing.T) {
	var cart Cart

	err := cart.AddOrIncrement(testProduct("a", 1000, 0), 1)
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("cart must stay empty after rejected add")
	}
}

func TestCartSnapshotKeepsAddTimePrice(t *testing.T) {
	var cart Cart
	p := testProduct("a", 1000, 5)
	if err := cart.AddOrIncrement(p, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	// A later catalog price change must not leak into the cart.
	p.SalePriceCents = 9999

	if cart.Lines[0].UnitPriceCents != 1000 {
		t.Fatalf("expected snapshot price 1000, got %d", cart.Lines[0].UnitPriceCents)
	}
}

func TestCartChangeQuantityRemovesAtZero(t *testing.T) {
	var cart Cart
	if err := cart.AddOrIncrement(testProduct("a", 1000, 5), 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := cart.ChangeQuantity(0, -2); err != nil {
		t.Fatalf("change quantity: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("expected line removed when quantity drops below 1")
	}
}

func TestCartChangeQuantityBadIndex(t *testing.T) {
	var cart Cart
	if err := cart.ChangeQuantity(0, 1); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
	if err := cart.Remove(3); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
}

func TestCartTotals(t *testing.T) {
	var cart Cart
	if err := cart.AddOrIncrement(testProduct("a", 1000, 10), 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.AddOrIncrement(testProduct("b", 550, 10), 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	totals := cart.Totals(100, 0, 3000)

	if totals.SubtotalCents != 2550 {
		t.Fatalf("expected subtotal 2550, got %d", totals.SubtotalCents)
	}
	if totals.TotalCents != 2450 {
		t.Fatalf("expected total 2450, got %d", totals.TotalCents)
	}
	if totals.ChangeCents != 550 {
		t.Fatalf("expected change 550, got %d", totals.ChangeCents)
	}
}

func TestCartTotalsNegativeTotalAndNoChange(t *testing.T) {
	var cart Cart
	if err := cart.AddOrIncrement(testProduct("a", 500, 10), 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Oversized discount produces a negative total; surfaced as-is.
	totals := cart.Totals(1000, 0, 0)
	if totals.TotalCents != -500 {
		t.Fatalf("expected total -500, got %d", totals.TotalCents)
	}

	// Change never goes negative.
	totals = cart.Totals(0, 0, 100)
	if totals.ChangeCents != 0 {
		t.Fatalf("expected change 0 when tendered below total, got %d", totals.ChangeCents)
	}
}

func TestCartSnapshot(t *testing.T) {
	var cart Cart
	if err := cart.AddOrIncrement(testProduct("a", 1000, 10), 3); err != nil {
		t.Fatalf("add: %v", err)
	}

	items := cart.Snapshot()
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].LineTotalCents != 3000 {
		t.Fatalf("expected line total 3000, got %d", items[0].LineTotalCents)
	}
}
