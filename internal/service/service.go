// Package service owns the business rules: catalog and customer management,
// register cart sessions, and the checkout sequence that turns a cart into a
// ledger entry.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"lumapos/backend/internal/barcode"
	"lumapos/backend/internal/domain"
	"lumapos/backend/internal/report"
	"lumapos/backend/internal/store"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientPayment = errors.New("tendered amount below total")
	ErrInvalidBarcode      = errors.New("barcode failed EAN-13 validation")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) domain.Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(domain.Actor); ok {
		return actor
	}
	return domain.Actor{Username: "system", Role: "system"}
}

type Service struct {
	repo    store.Repository
	reports *report.Engine

	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func New(repo store.Repository, reports *report.Engine) *Service {
	return &Service{
		repo:    repo,
		reports: reports,
		carts:   make(map[string]*domain.Cart),
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityID string, detail string) {
	actor := ActorFromContext(ctx)
	log.Printf("[audit] actor=%s role=%s action=%s entity=%s detail=%q",
		actor.Username, actor.Role, action, entityID, detail)
}

// ---- catalog ----

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) SearchProducts(ctx context.Context, query string, category string) ([]domain.Product, error) {
	return s.repo.SearchProducts(ctx, query, category)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// LookupProduct resolves a scanned or typed code (SKU or barcode) to a
// product for the register screen.
func (s *Service) LookupProduct(ctx context.Context, code string) (*domain.Product, error) {
	return s.repo.FindProductByCode(ctx, strings.TrimSpace(code))
}

func validateBarcode(raw string) error {
	if raw == "" {
		return nil
	}
	if v := barcode.Validate(raw); !v.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidBarcode, v.Reason)
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.SalePriceCents < 1 || req.StockQty < 0 {
		return nil, store.ErrInvalidRecord
	}
	if err := validateBarcode(strings.TrimSpace(req.Barcode)); err != nil {
		return nil, err
	}

	product := domain.Product{
		Code:           strings.TrimSpace(req.Code),
		Barcode:        strings.TrimSpace(req.Barcode),
		Name:           name,
		Category:       strings.TrimSpace(req.Category),
		Unit:           strings.TrimSpace(req.Unit),
		CostPriceCents: req.CostPriceCents,
		SalePriceCents: req.SalePriceCents,
		StockQty:       req.StockQty,
		MinStock:       req.MinStock,
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "product.create", created.ID, created.Name)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Barcode != nil {
		trimmed := strings.TrimSpace(*req.Barcode)
		if err := validateBarcode(trimmed); err != nil {
			return nil, err
		}
		product.Barcode = trimmed
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, store.ErrInvalidRecord
		}
		product.Name = name
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Unit != nil {
		product.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.CostPriceCents != nil {
		product.CostPriceCents = *req.CostPriceCents
	}
	if req.SalePriceCents != nil {
		if *req.SalePriceCents < 1 {
			return nil, store.ErrInvalidRecord
		}
		product.SalePriceCents = *req.SalePriceCents
	}
	if req.StockQty != nil {
		if *req.StockQty < 0 {
			return nil, store.ErrInvalidRecord
		}
		product.StockQty = *req.StockQty
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return nil, store.ErrInvalidRecord
		}
		product.MinStock = req.MinStock
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	updated, err := s.repo.UpdateProduct(ctx, *product)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "product.update", updated.ID, updated.Name)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "product.delete", id, "")
	return nil
}

// ---- customers ----

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	return s.repo.SearchCustomers(ctx, query)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, store.ErrInvalidRecord
	}
	customer := domain.Customer{
		Name:    name,
		Phone:   phone,
		TaxID:   strings.TrimSpace(req.TaxID),
		Email:   strings.TrimSpace(req.Email),
		Address: strings.TrimSpace(req.Address),
		Notes:   strings.TrimSpace(req.Notes),
	}
	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "customer.create", created.ID, created.Name)
	return created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, store.ErrInvalidRecord
		}
		customer.Name = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone == "" {
			return nil, store.ErrInvalidRecord
		}
		customer.Phone = phone
	}
	if req.TaxID != nil {
		customer.TaxID = strings.TrimSpace(*req.TaxID)
	}
	if req.Email != nil {
		customer.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		customer.Address = strings.TrimSpace(*req.Address)
	}
	if req.Notes != nil {
		customer.Notes = strings.TrimSpace(*req.Notes)
	}

	updated, err := s.repo.UpdateCustomer(ctx, *customer)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "customer.update", updated.ID, updated.Name)
	return updated, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "customer.delete", id, "")
	return nil
}

// ---- cart sessions ----

// cart returns the session's cart, creating it on first use. Each register
// session owns exactly one cart; concurrent sessions get distinct carts.
func (s *Service) cart(sessionID string) *domain.Cart {
	if sessionID == "" {
		sessionID = "default"
	}
	c, ok := s.carts[sessionID]
	if !ok {
		c = &domain.Cart{}
		s.carts[sessionID] = c
	}
	return c
}

func (s *Service) cartState(sessionID string, c *domain.Cart) domain.CartStateResponse {
	lines := make([]domain.CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return domain.CartStateResponse{
		SessionID:     sessionID,
		Lines:         lines,
		SubtotalCents: c.SubtotalCents(),
	}
}

func (s *Service) CartState(sessionID string) domain.CartStateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartState(sessionID, s.cart(sessionID))
}

func (s *Service) AddToCart(ctx context.Context, sessionID string, req domain.CartAddRequest) (domain.CartStateResponse, error) {
	product, err := s.repo.FindProductByCode(ctx, strings.TrimSpace(req.Code))
	if err != nil {
		return domain.CartStateResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cart(sessionID)
	if err := c.AddOrIncrement(*product, req.Qty); err != nil {
		return domain.CartStateResponse{}, err
	}
	return s.cartState(sessionID, c), nil
}

func (s *Service) ChangeCartQuantity(sessionID string, req domain.CartQuantityRequest) (domain.CartStateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cart(sessionID)
	if err := c.ChangeQuantity(req.Index, req.Delta); err != nil {
		return domain.CartStateResponse{}, err
	}
	return s.cartState(sessionID, c), nil
}

func (s *Service) RemoveCartLine(sessionID string, index int) (domain.CartStateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cart(sessionID)
	if err := c.Remove(index); err != nil {
		return domain.CartStateResponse{}, err
	}
	return s.cartState(sessionID, c), nil
}

func (s *Service) ClearCart(sessionID string) domain.CartStateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cart(sessionID)
	c.Clear()
	return s.cartState(sessionID, c)
}

// ---- checkout ----

// Checkout turns the session's cart into an immutable sale. The sale record
// is persisted before any stock decrement, so a mid-sequence failure leaves
// the ledger entry in place and inventory possibly behind; that state is
// logged and surfaced, never rolled back.
func (s *Service) Checkout(ctx context.Context, sessionID string, req domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
	s.mu.Lock()
	c := s.cart(sessionID)
	if c.IsEmpty() {
		s.mu.Unlock()
		return nil, ErrEmptyCart
	}
	totals := c.Totals(req.DiscountCents, req.SurchargeCents, req.TenderedCents)
	items := c.Snapshot()
	s.mu.Unlock()

	if req.DiscountCents < 0 || req.SurchargeCents < 0 || req.TenderedCents < 0 {
		return nil, store.ErrInvalidRecord
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCash
	}
	switch req.PaymentMethod {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentTransfer:
	default:
		return nil, store.ErrInvalidRecord
	}
	if req.PaymentMethod == domain.PaymentCash && req.TenderedCents < totals.TotalCents {
		return nil, ErrInsufficientPayment
	}

	customerName := domain.WalkInCustomerName
	customerID := req.CustomerID
	if customerID != "" {
		customer, err := s.repo.GetCustomer(ctx, customerID)
		switch {
		case err == nil:
			customerName = customer.Name
		case errors.Is(err, store.ErrNotFound):
			customerID = ""
		default:
			return nil, err
		}
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	sale := domain.Sale{
		Items:          items,
		SubtotalCents:  totals.SubtotalCents,
		DiscountCents:  req.DiscountCents,
		SurchargeCents: req.SurchargeCents,
		TotalCents:     totals.TotalCents,
		PaymentMethod:  req.PaymentMethod,
		TenderedCents:  req.TenderedCents,
		ChangeCents:    totals.ChangeCents,
		CustomerID:     customerID,
		CustomerName:   customerName,
		Cashier:        actor.Username,
		Status:         domain.SaleStatusCompleted,
		CreatedAt:      now,
	}

	// The ledger entry goes in first; inventory and customer updates follow
	// as independent writes.
	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("persist sale: %w", err)
	}
	s.logAudit(ctx, "sale.create", created.ID, fmt.Sprintf("total=%d items=%d", created.TotalCents, len(created.Items)))

	for _, item := range created.Items {
		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			s.logAudit(ctx, "sale.stock_decrement_failed", created.ID, fmt.Sprintf("product=%s: %v", item.ProductID, err))
			return nil, fmt.Errorf("sale %s recorded but stock read failed for %s: %w", created.ID, item.ProductID, err)
		}
		next := product.StockQty - item.Qty
		if next < 0 {
			s.logAudit(ctx, "sale.stock_clamped", created.ID, fmt.Sprintf("product=%s stock=%d sold=%d", item.ProductID, product.StockQty, item.Qty))
			next = 0
		}
		if err := s.repo.SetProductStock(ctx, item.ProductID, next); err != nil {
			s.logAudit(ctx, "sale.stock_decrement_failed", created.ID, fmt.Sprintf("product=%s: %v", item.ProductID, err))
			return nil, fmt.Errorf("sale %s recorded but stock write failed for %s: %w", created.ID, item.ProductID, err)
		}
	}

	if customerID != "" {
		if err := s.repo.AddCustomerPurchase(ctx, customerID, created.TotalCents, now); err != nil {
			s.logAudit(ctx, "sale.customer_update_failed", created.ID, fmt.Sprintf("customer=%s: %v", customerID, err))
			return nil, fmt.Errorf("sale %s recorded but customer update failed: %w", created.ID, err)
		}
	}

	s.mu.Lock()
	c.Clear()
	s.mu.Unlock()

	if err := s.reports.InvalidateAll(ctx); err != nil {
		log.Printf("[service] report cache invalidation failed: %v", err)
	}

	return &domain.CheckoutResponse{Sale: *created, ChangeCents: created.ChangeCents}, nil
}

// ---- sales history ----

func (s *Service) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ---- reports ----

func (s *Service) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	return s.reports.Dashboard(ctx, time.Now().UTC())
}

func (s *Service) BestSellers(ctx context.Context, window time.Duration, topN int) ([]domain.BestSeller, error) {
	return s.reports.BestSellers(ctx, time.Now().UTC(), window, topN)
}

func (s *Service) LowStock(ctx context.Context) ([]domain.LowStockItem, error) {
	return s.reports.LowStock(ctx)
}

func (s *Service) MonthlyRevenue(ctx context.Context, months int) ([]domain.MonthlyRevenueEntry, error) {
	return s.reports.MonthlyRevenue(ctx, time.Now().UTC(), months)
}

// ---- settings ----

func (s *Service) GetStoreConfig(ctx context.Context) (*domain.StoreConfig, error) {
	return s.repo.GetStoreConfig(ctx)
}

func (s *Service) SaveStoreConfig(ctx context.Context, cfg domain.StoreConfig) (*domain.StoreConfig, error) {
	cfg.StoreName = strings.TrimSpace(cfg.StoreName)
	if cfg.StoreName == "" {
		return nil, store.ErrInvalidRecord
	}
	if cfg.DefaultMinStock < 0 || cfg.DefaultTaxRatePercent < 0 {
		return nil, store.ErrInvalidRecord
	}
	saved, err := s.repo.SaveStoreConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "config.save", "store_config", saved.StoreName)
	return saved, nil
}
