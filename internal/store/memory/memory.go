package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lumapos/backend/internal/domain"
	"lumapos/backend/internal/store"
	"lumapos/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	customers       map[string]domain.Customer
	sales           map[string]domain.Sale
	saleOrder       []string
	config          domain.StoreConfig
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username    string
		password    string
		displayName string
		role        string
	}{
		{"admin", adminPwd, "Administrator", domain.RoleAdmin},
		{"cashier", cashierPwd, "Front Register", domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:    u.username,
			Password:    string(hash),
			DisplayName: u.displayName,
			Role:        u.role,
			Active:      true,
			CreatedAt:   now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultConfig() domain.StoreConfig {
	return domain.StoreConfig{
		StoreName:            "Luma Market",
		DefaultMinStock:      5,
		NotificationsEnabled: true,
		AutoBackup:           true,
		PrintReceipt:         true,
		UpdatedAt:            time.Now().UTC(),
	}
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		customers:       make(map[string]domain.Customer),
		sales:           make(map[string]domain.Sale),
		saleOrder:       make([]string, 0, 128),
		config:          defaultConfig(),
		usersByUsername: seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	lowMin := 20

	products := []domain.Product{
		{ID: "prd-rice-01", Code: "P00000001001", Barcode: "7891000315507", Name: "Rice 5kg", Category: "grocery", Unit: "bag", CostPriceCents: 1800, SalePriceCents: 2490, StockQty: 40},
		{ID: "prd-beans-01", Code: "P00000001002", Barcode: "7891000053508", Name: "Black Beans 1kg", Category: "grocery", Unit: "kg", CostPriceCents: 520, SalePriceCents: 899, StockQty: 55},
		{ID: "prd-coffee-01", Code: "P00000001003", Barcode: "7896005800057", Name: "Ground Coffee 500g", Category: "beverage", Unit: "pack", CostPriceCents: 1150, SalePriceCents: 1790, StockQty: 24},
		{ID: "prd-milk-01", Code: "P00000001004", Name: "Whole Milk 1L", Category: "dairy", Unit: "box", CostPriceCents: 310, SalePriceCents: 549, StockQty: 80},
		{ID: "prd-soap-01", Code: "P00000001005", Name: "Bar Soap", Category: "household", Unit: "unit", CostPriceCents: 120, SalePriceCents: 250, StockQty: 3, MinStock: &lowMin},
		{ID: "prd-soda-01", Code: "P00000001006", Barcode: "7894900011517", Name: "Soda 2L", Category: "beverage", Unit: "bottle", CostPriceCents: 480, SalePriceCents: 799, StockQty: 0},
	}
	for _, p := range products {
		p.Active = true
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}

	customers := []domain.Customer{
		{ID: "cus-ana-01", Name: "Ana Souza", Phone: "555-0101", Email: "ana@example.com"},
		{ID: "cus-bruno-01", Name: "Bruno Lima", Phone: "555-0102", TaxID: "123.456.789-00"},
	}
	for _, c := range customers {
		c.CreatedAt = now
		c.UpdatedAt = now
		s.customers[c.ID] = c
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, cloneProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) SearchProducts(_ context.Context, query string, category string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	category = strings.TrimSpace(category)

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Code), query) &&
			!strings.Contains(p.Barcode, query) {
			continue
		}
		products = append(products, cloneProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.SalePriceCents < 1 || product.StockQty < 0 {
		return nil, store.ErrInvalidRecord
	}
	if product.MinStock != nil && *product.MinStock < 0 {
		return nil, store.ErrInvalidRecord
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.Code == "" {
		product.Code = xid.ProductCode()
	}
	for _, existing := range s.products {
		if existing.Active && existing.Code == product.Code {
			return nil, store.ErrDuplicateCode
		}
	}

	now := time.Now().UTC()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = cloneProduct(product)

	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists || !product.Active {
		return nil, store.ErrNotFound
	}
	copyProduct := cloneProduct(product)
	return &copyProduct, nil
}

// FindProductByCode resolves a scanned or typed code against both the
// user-facing code and the barcode.
func (s *Store) FindProductByCode(_ context.Context, code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, store.ErrNotFound
	}
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if p.Code == code || (p.Barcode != "" && p.Barcode == code) {
			copyProduct := cloneProduct(p)
			return &copyProduct, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.SalePriceCents < 1 || product.StockQty < 0 {
		return nil, store.ErrInvalidRecord
	}
	existing, exists := s.products[product.ID]
	if !exists || !existing.Active {
		return nil, store.ErrNotFound
	}

	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = cloneProduct(product)

	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists || !product.Active {
		return store.ErrNotFound
	}
	// Linear scan over sale history, mirroring the deletion guard contract.
	for _, sale := range s.sales {
		for _, item := range sale.Items {
			if item.ProductID == id {
				return store.ErrReferencedBySale
			}
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) SetProductStock(_ context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty < 0 {
		return store.ErrInvalidRecord
	}
	product, exists := s.products[id]
	if !exists || !product.Active {
		return store.ErrNotFound
	}
	product.StockQty = qty
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, cloneCustomer(c))
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) SearchCustomers(_ context.Context, query string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if query != "" &&
			!strings.Contains(strings.ToLower(c.Name), query) &&
			!strings.Contains(c.Phone, query) &&
			!strings.Contains(c.TaxID, query) &&
			!strings.Contains(strings.ToLower(c.Email), query) {
			continue
		}
		customers = append(customers, cloneCustomer(c))
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" || customer.Phone == "" {
		return nil, store.ErrInvalidRecord
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	now := time.Now().UTC()
	customer.TotalPurchasesCents = 0
	customer.LastPurchaseAt = nil
	customer.CreatedAt = now
	customer.UpdatedAt = now
	s.customers[customer.ID] = cloneCustomer(customer)

	created := cloneCustomer(customer)
	return &created, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := cloneCustomer(customer)
	return &copyCustomer, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" || customer.Phone == "" {
		return nil, store.ErrInvalidRecord
	}
	existing, exists := s.customers[customer.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Purchase aggregates only move through AddCustomerPurchase.
	customer.TotalPurchasesCents = existing.TotalPurchasesCents
	customer.LastPurchaseAt = existing.LastPurchaseAt
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = time.Now().UTC()
	s.customers[customer.ID] = cloneCustomer(customer)

	updated := cloneCustomer(customer)
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[id]; !exists {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.CustomerID == id {
			return store.ErrReferencedBySale
		}
	}
	delete(s.customers, id)
	return nil
}

func (s *Store) AddCustomerPurchase(_ context.Context, id string, amountCents int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customers[id]
	if !exists {
		return store.ErrNotFound
	}
	customer.TotalPurchasesCents += amountCents
	when := at.UTC()
	customer.LastPurchaseAt = &when
	customer.UpdatedAt = when
	s.customers[id] = customer
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if _, exists := s.sales[sale.ID]; exists {
		return nil, store.ErrInvalidRecord
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusCompleted
	}

	s.sales[sale.ID] = cloneSale(sale)
	s.saleOrder = append(s.saleOrder, sale.ID)

	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := cloneSale(sale)
	return &copySale, nil
}

func (s *Store) ListSales(_ context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.saleOrder))
	for _, id := range s.saleOrder {
		sale, exists := s.sales[id]
		if !exists {
			continue
		}
		if !filter.From.IsZero() && sale.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !sale.CreatedAt.Before(filter.To) {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}

	// Newest first.
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	if filter.Limit > 0 && len(sales) > filter.Limit {
		sales = sales[:filter.Limit]
	}
	return sales, nil
}

func (s *Store) GetStoreConfig(_ context.Context) (*domain.StoreConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.config
	return &cfg, nil
}

func (s *Store) SaveStoreConfig(_ context.Context, cfg domain.StoreConfig) (*domain.StoreConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.StoreName == "" {
		return nil, store.ErrInvalidRecord
	}
	if cfg.DefaultMinStock < 0 {
		cfg.DefaultMinStock = 0
	}
	cfg.UpdatedAt = time.Now().UTC()
	s.config = cfg

	saved := cfg
	return &saved, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRecord
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidRecord
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	if password == "" {
		return store.ErrInvalidRecord
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ImportProducts(_ context.Context, products []domain.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for _, p := range products {
		if p.Name == "" || p.SalePriceCents < 1 {
			continue
		}
		if p.ID == "" {
			p.ID = xid.New("prd")
		}
		if p.Code == "" {
			p.Code = xid.ProductCode()
		}
		p.Active = true
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		s.products[p.ID] = cloneProduct(p)
		count++
	}
	return count, nil
}

func (s *Store) ImportCustomers(_ context.Context, customers []domain.Customer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for _, c := range customers {
		if c.Name == "" {
			continue
		}
		if c.ID == "" {
			c.ID = xid.New("cus")
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		s.customers[c.ID] = cloneCustomer(c)
		count++
	}
	return count, nil
}

func (s *Store) ImportSales(_ context.Context, sales []domain.Sale) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, sale := range sales {
		if len(sale.Items) == 0 {
			continue
		}
		if sale.ID == "" {
			sale.ID = xid.New("sal")
		}
		if sale.Status == "" {
			sale.Status = domain.SaleStatusCompleted
		}
		if sale.CreatedAt.IsZero() {
			sale.CreatedAt = time.Now().UTC()
		}
		if _, exists := s.sales[sale.ID]; !exists {
			s.saleOrder = append(s.saleOrder, sale.ID)
		}
		s.sales[sale.ID] = cloneSale(sale)
		count++
	}
	return count, nil
}

func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[string]domain.Product)
	s.customers = make(map[string]domain.Customer)
	s.sales = make(map[string]domain.Sale)
	s.saleOrder = s.saleOrder[:0]
	return nil
}

func cloneProduct(p domain.Product) domain.Product {
	c := p
	if p.MinStock != nil {
		min := *p.MinStock
		c.MinStock = &min
	}
	return c
}

func cloneCustomer(c domain.Customer) domain.Customer {
	out := c
	if c.LastPurchaseAt != nil {
		t := *c.LastPurchaseAt
		out.LastPurchaseAt = &t
	}
	return out
}

func cloneSale(s domain.Sale) domain.Sale {
	out := s
	out.Items = make([]domain.SaleItem, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
