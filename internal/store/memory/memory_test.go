package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"lumapos/backend/internal/domain"
	"lumapos/backend/internal/store"
)

func TestCreateProductGeneratesIDAndCode(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateProduct(ctx, domain.Product{
		Name:           "Olive Oil 500ml",
		Category:       "grocery",
		Unit:           "bottle",
		SalePriceCents: 2890,
		StockQty:       12,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.ID == "" || created.Code == "" {
		t.Fatalf("expected generated id and code, got %+v", created)
	}
	if !created.Active {
		t.Fatalf("expected new product to be active")
	}
}

func TestCreateProductRejectsDuplicateCode(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := domain.Product{Code: "P00000000001", Name: "A", SalePriceCents: 100}
	if _, err := s.CreateProduct(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	p.Name = "B"
	if _, err := s.CreateProduct(ctx, p); !errors.Is(err, store.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestFindProductByCodeMatchesBarcodeToo(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	byCode, err := s.FindProductByCode(ctx, "P00000001001")
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	byBarcode, err := s.FindProductByCode(ctx, "7891000315507")
	if err != nil {
		t.Fatalf("find by barcode: %v", err)
	}
	if byCode.ID != byBarcode.ID {
		t.Fatalf("code and barcode lookups resolved different products")
	}
}

func TestDeleteProductGuardedBySaleHistory(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		Items: []domain.SaleItem{
			{ProductID: "prd-rice-01", Code: "P00000001001", Name: "Rice 5kg", UnitPriceCents: 2490, Qty: 1, LineTotalCents: 2490},
		},
		SubtotalCents: 2490,
		TotalCents:    2490,
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 2490,
		CustomerName:  domain.WalkInCustomerName,
		Cashier:       "cashier",
	}
	if _, err := s.CreateSale(ctx, sale); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if err := s.DeleteProduct(ctx, "prd-rice-01"); !errors.Is(err, store.ErrReferencedBySale) {
		t.Fatalf("expected ErrReferencedBySale, got %v", err)
	}
	if err := s.DeleteProduct(ctx, "prd-beans-01"); err != nil {
		t.Fatalf("unreferenced product must delete cleanly: %v", err)
	}
}

func TestDeleteCustomerGuardedBySaleHistory(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		Items: []domain.SaleItem{
			{ProductID: "prd-rice-01", Code: "P00000001001", Name: "Rice 5kg", UnitPriceCents: 2490, Qty: 1, LineTotalCents: 2490},
		},
		SubtotalCents: 2490,
		TotalCents:    2490,
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 2490,
		CustomerID:    "cus-ana-01",
		CustomerName:  "Ana Souza",
		Cashier:       "cashier",
	}
	if _, err := s.CreateSale(ctx, sale); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if err := s.DeleteCustomer(ctx, "cus-ana-01"); !errors.Is(err, store.ErrReferencedBySale) {
		t.Fatalf("expected ErrReferencedBySale, got %v", err)
	}
	if err := s.DeleteCustomer(ctx, "cus-bruno-01"); err != nil {
		t.Fatalf("unreferenced customer must delete cleanly: %v", err)
	}
}

func TestAddCustomerPurchase(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	at := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	if err := s.AddCustomerPurchase(ctx, "cus-ana-01", 2450, at); err != nil {
		t.Fatalf("add purchase: %v", err)
	}
	if err := s.AddCustomerPurchase(ctx, "cus-ana-01", 550, at.Add(time.Hour)); err != nil {
		t.Fatalf("second purchase: %v", err)
	}

	customer, err := s.GetCustomer(ctx, "cus-ana-01")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.TotalPurchasesCents != 3000 {
		t.Fatalf("expected running total 3000, got %d", customer.TotalPurchasesCents)
	}
	if customer.LastPurchaseAt == nil || !customer.LastPurchaseAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("expected last purchase timestamp to advance, got %v", customer.LastPurchaseAt)
	}
}

func TestListSalesDateRangeAndOrder(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	mk := func(id string, at time.Time) domain.Sale {
		return domain.Sale{
			ID: id,
			Items: []domain.SaleItem{
				{ProductID: "prd-rice-01", Code: "P00000001001", Name: "Rice 5kg", UnitPriceCents: 2490, Qty: 1, LineTotalCents: 2490},
			},
			SubtotalCents: 2490,
			TotalCents:    2490,
			PaymentMethod: domain.PaymentCash,
			TenderedCents: 2490,
			CustomerName:  domain.WalkInCustomerName,
			Cashier:       "cashier",
			CreatedAt:     at,
		}
	}

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"sal-1", "sal-2", "sal-3"} {
		if _, err := s.CreateSale(ctx, mk(id, base.AddDate(0, 0, i*7))); err != nil {
			t.Fatalf("create sale %s: %v", id, err)
		}
	}

	sales, err := s.ListSales(ctx, store.SaleFilter{
		From: base.AddDate(0, 0, 5),
		To:   base.AddDate(0, 0, 20),
	})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected 2 sales in range, got %d", len(sales))
	}
	if sales[0].ID != "sal-3" || sales[1].ID != "sal-2" {
		t.Fatalf("expected newest-first order, got %s then %s", sales[0].ID, sales[1].ID)
	}
}

func TestImportRoundtripKeepsIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	n, err := s.ImportProducts(ctx, []domain.Product{
		{ID: "prd-keep-01", Code: "P1", Name: "Keep", SalePriceCents: 100, StockQty: 1},
		{Name: "", SalePriceCents: 100}, // invalid, skipped
	})
	if err != nil {
		t.Fatalf("import products: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported product, got %d", n)
	}
	if _, err := s.GetProduct(ctx, "prd-keep-01"); err != nil {
		t.Fatalf("imported product must keep its id: %v", err)
	}
}

func TestClearAllKeepsUsersAndConfig(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}

	products, _ := s.ListProducts(ctx)
	if len(products) != 0 {
		t.Fatalf("expected empty catalog, got %d products", len(products))
	}
	if _, err := s.GetUserByUsername(ctx, "admin"); err != nil {
		t.Fatalf("clear must not remove user accounts: %v", err)
	}
	cfg, err := s.GetStoreConfig(ctx)
	if err != nil || cfg.StoreName == "" {
		t.Fatalf("clear must not reset store config: %v %+v", err, cfg)
	}
}
