package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lumapos/backend/internal/domain"
	"lumapos/backend/internal/store"
)

// BackupVersion is written into every export; imports accept any payload
// that parses, the version is informational.
const BackupVersion = "1.0.0"

var ErrInvalidBackup = errors.New("invalid backup file")

// The backup schema is deliberately portable: money travels as decimal
// strings ("24.90"), timestamps as RFC 3339. Internal cent integers never
// leave the process.

type backupProduct struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Barcode   string          `json:"barcode,omitempty"`
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	Unit      string          `json:"unit,omitempty"`
	CostPrice decimal.Decimal `json:"costPrice"`
	SalePrice decimal.Decimal `json:"salePrice"`
	StockQty  int             `json:"stockQty"`
	MinStock  *int            `json:"minStock,omitempty"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type backupCustomer struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone,omitempty"`
	TaxID          string          `json:"taxId,omitempty"`
	Email          string          `json:"email,omitempty"`
	Address        string          `json:"address,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	TotalPurchases decimal.Decimal `json:"totalPurchases"`
	LastPurchaseAt *time.Time      `json:"lastPurchaseAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type backupSaleItem struct {
	ProductID string          `json:"productId"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Qty       int             `json:"qty"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type backupSale struct {
	ID            string           `json:"id"`
	Items         []backupSaleItem `json:"items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Discount      decimal.Decimal  `json:"discount"`
	Surcharge     decimal.Decimal  `json:"surcharge"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMethod string           `json:"paymentMethod"`
	Tendered      decimal.Decimal  `json:"tendered"`
	Change        decimal.Decimal  `json:"change"`
	CustomerID    string           `json:"customerId,omitempty"`
	CustomerName  string           `json:"customerName"`
	Cashier       string           `json:"cashier"`
	Status        string           `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

type BackupFile struct {
	Products   []backupProduct     `json:"products"`
	Customers  []backupCustomer    `json:"customers"`
	Sales      []backupSale        `json:"sales"`
	Config     *domain.StoreConfig `json:"config,omitempty"`
	ExportedAt time.Time           `json:"exportedAt"`
	Version    string              `json:"version"`
}

type ImportSummary struct {
	Products  int `json:"products"`
	Customers int `json:"customers"`
	Sales     int `json:"sales"`
}

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func decimalToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func (s *Service) ExportBackup(ctx context.Context) (*BackupFile, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("export products: %w", err)
	}
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("export customers: %w", err)
	}
	sales, err := s.repo.ListSales(ctx, store.SaleFilter{})
	if err != nil {
		return nil, fmt.Errorf("export sales: %w", err)
	}
	cfg, err := s.repo.GetStoreConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("export config: %w", err)
	}

	file := &BackupFile{
		Products:   make([]backupProduct, 0, len(products)),
		Customers:  make([]backupCustomer, 0, len(customers)),
		Sales:      make([]backupSale, 0, len(sales)),
		Config:     cfg,
		ExportedAt: time.Now().UTC(),
		Version:    BackupVersion,
	}
	for _, p := range products {
		file.Products = append(file.Products, backupProduct{
			ID:        p.ID,
			Code:      p.Code,
			Barcode:   p.Barcode,
			Name:      p.Name,
			Category:  p.Category,
			Unit:      p.Unit,
			CostPrice: centsToDecimal(p.CostPriceCents),
			SalePrice: centsToDecimal(p.SalePriceCents),
			StockQty:  p.StockQty,
			MinStock:  p.MinStock,
			Active:    p.Active,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	for _, c := range customers {
		file.Customers = append(file.Customers, backupCustomer{
			ID:             c.ID,
			Name:           c.Name,
			Phone:          c.Phone,
			TaxID:          c.TaxID,
			Email:          c.Email,
			Address:        c.Address,
			Notes:          c.Notes,
			TotalPurchases: centsToDecimal(c.TotalPurchasesCents),
			LastPurchaseAt: c.LastPurchaseAt,
			CreatedAt:      c.CreatedAt,
			UpdatedAt:      c.UpdatedAt,
		})
	}
	for _, sale := range sales {
		items := make([]backupSaleItem, 0, len(sale.Items))
		for _, item := range sale.Items {
			items = append(items, backupSaleItem{
				ProductID: item.ProductID,
				Code:      item.Code,
				Name:      item.Name,
				UnitPrice: centsToDecimal(item.UnitPriceCents),
				Qty:       item.Qty,
				LineTotal: centsToDecimal(item.LineTotalCents),
			})
		}
		file.Sales = append(file.Sales, backupSale{
			ID:            sale.ID,
			Items:         items,
			Subtotal:      centsToDecimal(sale.SubtotalCents),
			Discount:      centsToDecimal(sale.DiscountCents),
			Surcharge:     centsToDecimal(sale.SurchargeCents),
			Total:         centsToDecimal(sale.TotalCents),
			PaymentMethod: sale.PaymentMethod,
			Tendered:      centsToDecimal(sale.TenderedCents),
			Change:        centsToDecimal(sale.ChangeCents),
			CustomerID:    sale.CustomerID,
			CustomerName:  sale.CustomerName,
			Cashier:       sale.Cashier,
			Status:        sale.Status,
			CreatedAt:     sale.CreatedAt,
		})
	}

	s.logAudit(ctx, "backup.export", "all", fmt.Sprintf("products=%d customers=%d sales=%d",
		len(file.Products), len(file.Customers), len(file.Sales)))
	return file, nil
}

// ImportBackup merges a previously exported file into the store. Records
// with an ID already present are overwritten; everything else is appended.
func (s *Service) ImportBackup(ctx context.Context, raw []byte) (ImportSummary, error) {
	var file BackupFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return ImportSummary{}, ErrInvalidBackup
	}
	if file.Products == nil && file.Customers == nil && file.Sales == nil {
		return ImportSummary{}, ErrInvalidBackup
	}

	products := make([]domain.Product, 0, len(file.Products))
	for _, p := range file.Products {
		products = append(products, domain.Product{
			ID:             p.ID,
			Code:           p.Code,
			Barcode:        p.Barcode,
			Name:           p.Name,
			Category:       p.Category,
			Unit:           p.Unit,
			CostPriceCents: decimalToCents(p.CostPrice),
			SalePriceCents: decimalToCents(p.SalePrice),
			StockQty:       p.StockQty,
			MinStock:       p.MinStock,
			Active:         p.Active,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		})
	}
	customers := make([]domain.Customer, 0, len(file.Customers))
	for _, c := range file.Customers {
		customers = append(customers, domain.Customer{
			ID:                  c.ID,
			Name:                c.Name,
			Phone:               c.Phone,
			TaxID:               c.TaxID,
			Email:               c.Email,
			Address:             c.Address,
			Notes:               c.Notes,
			TotalPurchasesCents: decimalToCents(c.TotalPurchases),
			LastPurchaseAt:      c.LastPurchaseAt,
			CreatedAt:           c.CreatedAt,
			UpdatedAt:           c.UpdatedAt,
		})
	}
	sales := make([]domain.Sale, 0, len(file.Sales))
	for _, sale := range file.Sales {
		items := make([]domain.SaleItem, 0, len(sale.Items))
		for _, item := range sale.Items {
			items = append(items, domain.SaleItem{
				ProductID:      item.ProductID,
				Code:           item.Code,
				Name:           item.Name,
				UnitPriceCents: decimalToCents(item.UnitPrice),
				Qty:            item.Qty,
				LineTotalCents: decimalToCents(item.LineTotal),
			})
		}
		sales = append(sales, domain.Sale{
			ID:             sale.ID,
			Items:          items,
			SubtotalCents:  decimalToCents(sale.Subtotal),
			DiscountCents:  decimalToCents(sale.Discount),
			SurchargeCents: decimalToCents(sale.Surcharge),
			TotalCents:     decimalToCents(sale.Total),
			PaymentMethod:  sale.PaymentMethod,
			TenderedCents:  decimalToCents(sale.Tendered),
			ChangeCents:    decimalToCents(sale.Change),
			CustomerID:     sale.CustomerID,
			CustomerName:   sale.CustomerName,
			Cashier:        sale.Cashier,
			Status:         sale.Status,
			CreatedAt:      sale.CreatedAt,
		})
	}

	var summary ImportSummary
	var err error
	if summary.Products, err = s.repo.ImportProducts(ctx, products); err != nil {
		return summary, fmt.Errorf("import products: %w", err)
	}
	if summary.Customers, err = s.repo.ImportCustomers(ctx, customers); err != nil {
		return summary, fmt.Errorf("import customers: %w", err)
	}
	if summary.Sales, err = s.repo.ImportSales(ctx, sales); err != nil {
		return summary, fmt.Errorf("import sales: %w", err)
	}
	if file.Config != nil {
		if _, err := s.repo.SaveStoreConfig(ctx, *file.Config); err != nil {
			return summary, fmt.Errorf("import config: %w", err)
		}
	}

	if err := s.reports.InvalidateAll(ctx); err != nil {
		s.logAudit(ctx, "backup.import", "all", fmt.Sprintf("cache invalidation failed: %v", err))
	}
	s.logAudit(ctx, "backup.import", "all", fmt.Sprintf("products=%d customers=%d sales=%d",
		summary.Products, summary.Customers, summary.Sales))
	return summary, nil
}

// ClearAllData wipes products, customers and sales. User accounts and the
// store configuration survive the wipe.
func (s *Service) ClearAllData(ctx context.Context) error {
	if err := s.repo.ClearAll(ctx); err != nil {
		return err
	}
	if err := s.reports.InvalidateAll(ctx); err != nil {
		s.logAudit(ctx, "data.clear_all", "all", fmt.Sprintf("cache invalidation failed: %v", err))
	}
	s.logAudit(ctx, "data.clear_all", "all", "")
	return nil
}
