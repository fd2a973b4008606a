package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"lumapos/backend/internal/domain"
	"lumapos/backend/internal/store"
)

func TestCreateSaleAndDeletionGuard(t *testing.T) {
	databaseURL := os.Getenv("LUMAPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set LUMAPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prd-sale-it-%d", stamp)
	saleID := fmt.Sprintf("sal-sale-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	created, err := s.CreateProduct(ctx, domain.Product{
		ID:             productID,
		Name:           "Integration Test Rice",
		Category:       "grocery",
		Unit:           "bag",
		CostPriceCents: 1800,
		SalePriceCents: 2490,
		StockQty:       10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	sale := domain.Sale{
		ID: saleID,
		Items: []domain.SaleItem{
			{ProductID: created.ID, Code: created.Code, Name: created.Name, UnitPriceCents: 2490, Qty: 2, LineTotalCents: 4980},
		},
		SubtotalCents: 4980,
		TotalCents:    4980,
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 5000,
		ChangeCents:   20,
		CustomerName:  domain.WalkInCustomerName,
		Cashier:       "cashier",
	}
	if _, err := s.CreateSale(ctx, sale); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	loaded, err := s.GetSale(ctx, saleID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].Qty != 2 {
		t.Fatalf("unexpected sale items: %+v", loaded.Items)
	}
	if loaded.TotalCents != 4980 {
		t.Fatalf("expected total 4980, got %d", loaded.TotalCents)
	}

	if err := s.DeleteProduct(ctx, productID); !errors.Is(err, store.ErrReferencedBySale) {
		t.Fatalf("expected ErrReferencedBySale, got %v", err)
	}

	if err := s.SetProductStock(ctx, productID, 8); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	reloaded, err := s.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if reloaded.StockQty != 8 {
		t.Fatalf("expected stock 8 after explicit write, got %d", reloaded.StockQty)
	}
}

// Backup export lists sales with a zero limit and must see the whole ledger,
// not the first page of it.
func TestListSalesZeroLimitIsUnbounded(t *testing.T) {
	databaseURL := os.Getenv("LUMAPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set LUMAPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	prefix := fmt.Sprintf("sal-unbounded-%d", stamp)
	const seeded = 510
	base := time.Date(1998, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id LIKE $1`, prefix+"%")
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id LIKE $1`, prefix+"%")
	})

	for i := 0; i < seeded; i++ {
		sale := domain.Sale{
			ID: fmt.Sprintf("%s-%04d", prefix, i),
			Items: []domain.SaleItem{
				{ProductID: "prd-unbounded", Code: "P00000009999", Name: "Ledger Filler", UnitPriceCents: 100, Qty: 1, LineTotalCents: 100},
			},
			SubtotalCents: 100,
			TotalCents:    100,
			PaymentMethod: domain.PaymentCash,
			TenderedCents: 100,
			CustomerName:  domain.WalkInCustomerName,
			Cashier:       "cashier",
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}
		if _, err := s.CreateSale(ctx, sale); err != nil {
			t.Fatalf("seed sale %d: %v", i, err)
		}
	}

	window := store.SaleFilter{From: base, To: base.Add(time.Hour)}
	sales, err := s.ListSales(ctx, window)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != seeded {
		t.Fatalf("zero-limit listing returned %d of %d sales", len(sales), seeded)
	}

	window.Limit = 20
	capped, err := s.ListSales(ctx, window)
	if err != nil {
		t.Fatalf("list sales with limit: %v", err)
	}
	if len(capped) != 20 {
		t.Fatalf("limited listing returned %d, want 20", len(capped))
	}
}
