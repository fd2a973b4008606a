package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"lumapos/backend/internal/domain"
	"lumapos/backend/internal/store"
	"lumapos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id text PRIMARY KEY,
			code text NOT NULL,
			barcode text,
			name text NOT NULL,
			category text NOT NULL DEFAULT '',
			unit text NOT NULL DEFAULT '',
			cost_price_cents bigint NOT NULL DEFAULT 0,
			sale_price_cents bigint NOT NULL,
			stock_qty integer NOT NULL DEFAULT 0,
			min_stock integer,
			active boolean NOT NULL DEFAULT true,
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_active_code_idx ON products (code) WHERE active`,
		`CREATE TABLE IF NOT EXISTS customers (
			id text PRIMARY KEY,
			name text NOT NULL,
			phone text NOT NULL,
			tax_id text,
			email text,
			address text,
			notes text,
			total_purchases_cents bigint NOT NULL DEFAULT 0,
			last_purchase_at timestamptz,
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id text PRIMARY KEY,
			subtotal_cents bigint NOT NULL,
			discount_cents bigint NOT NULL DEFAULT 0,
			surcharge_cents bigint NOT NULL DEFAULT 0,
			total_cents bigint NOT NULL,
			payment_method text NOT NULL,
			tendered_cents bigint NOT NULL DEFAULT 0,
			change_cents bigint NOT NULL DEFAULT 0,
			customer_id text,
			customer_name text NOT NULL,
			cashier text NOT NULL,
			status text NOT NULL,
			created_at timestamptz NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sales_created_at_idx ON sales (created_at)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			sale_id text NOT NULL REFERENCES sales(id),
			position integer NOT NULL,
			product_id text NOT NULL,
			code text NOT NULL DEFAULT '',
			name text NOT NULL,
			unit_price_cents bigint NOT NULL,
			qty integer NOT NULL,
			line_total_cents bigint NOT NULL,
			PRIMARY KEY (sale_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS sale_items_product_idx ON sale_items (product_id)`,
		`CREATE TABLE IF NOT EXISTS store_config (
			singleton boolean PRIMARY KEY DEFAULT true CHECK (singleton),
			store_name text NOT NULL,
			tax_id text,
			phone text,
			address text,
			default_min_stock integer NOT NULL DEFAULT 5,
			default_tax_rate_percent double precision NOT NULL DEFAULT 0,
			notify_email text,
			notifications_enabled boolean NOT NULL DEFAULT false,
			auto_backup boolean NOT NULL DEFAULT false,
			print_receipt boolean NOT NULL DEFAULT true,
			updated_at timestamptz NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username text PRIMARY KEY,
			password text NOT NULL,
			display_name text NOT NULL DEFAULT '',
			role text NOT NULL,
			active boolean NOT NULL DEFAULT true,
			created_at timestamptz NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, code, barcode, name, category, unit, cost_price_cents, sale_price_cents, stock_qty, min_stock, active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	var barcode sql.NullString
	var minStock sql.NullInt64
	err := row.Scan(&p.ID, &p.Code, &barcode, &p.Name, &p.Category, &p.Unit,
		&p.CostPriceCents, &p.SalePriceCents, &p.StockQty, &minStock, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if barcode.Valid {
		p.Barcode = barcode.String
	}
	if minStock.Valid {
		min := int(minStock.Int64)
		p.MinStock = &min
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) SearchProducts(ctx context.Context, query string, category string) ([]domain.Product, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true
			AND ($2 = '' OR lower(category) = lower($2))
			AND ($3 = '' OR lower(name) LIKE $1 OR lower(code) LIKE $1 OR coalesce(barcode, '') LIKE $1)
		ORDER BY name
	`, pattern, strings.TrimSpace(category), strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
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

	now := time.Now().UTC()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, code, barcode, name, category, unit, cost_price_cents, sale_price_cents, stock_qty, min_stock, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, product.ID, product.Code, nullIfEmpty(product.Barcode), product.Name, product.Category, product.Unit,
		product.CostPriceCents, product.SalePriceCents, product.StockQty, nullIntPtr(product.MinStock),
		product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateCode
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND active = true
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindProductByCode resolves a scanned or typed code against both the
// user-facing code and the barcode column.
func (s *Store) FindProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, store.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND (code = $1 OR barcode = $1)
		LIMIT 1
	`, code)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.SalePriceCents < 1 || product.StockQty < 0 {
		return nil, store.ErrInvalidRecord
	}

	product.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET barcode = $2, name = $3, category = $4, unit = $5, cost_price_cents = $6,
			sale_price_cents = $7, stock_qty = $8, min_stock = $9, active = $10, updated_at = $11
		WHERE id = $1 AND active = true
	`, product.ID, nullIfEmpty(product.Barcode), product.Name, product.Category, product.Unit,
		product.CostPriceCents, product.SalePriceCents, product.StockQty, nullIntPtr(product.MinStock),
		product.Active, product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sale_items WHERE product_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return store.ErrReferencedBySale
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetProductStock(ctx context.Context, id string, qty int) error {
	if qty < 0 {
		return store.ErrInvalidRecord
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock_qty = $2, updated_at = now()
		WHERE id = $1 AND active = true
	`, id, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const customerColumns = `id, name, phone, tax_id, email, address, notes, total_purchases_cents, last_purchase_at, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (domain.Customer, error) {
	var c domain.Customer
	var taxID, email, address, notes sql.NullString
	var lastPurchase sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &taxID, &email, &address, &notes,
		&c.TotalPurchasesCents, &lastPurchase, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.TaxID = taxID.String
	c.Email = email.String
	c.Address = address.String
	c.Notes = notes.String
	if lastPurchase.Valid {
		t := lastPurchase.Time.UTC()
		c.LastPurchaseAt = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	query = strings.TrimSpace(query)
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE $2 = ''
			OR lower(name) LIKE $1
			OR phone LIKE $1
			OR coalesce(tax_id, '') LIKE $1
			OR lower(coalesce(email, '')) LIKE $1
		ORDER BY name
	`, pattern, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, tax_id, email, address, notes, total_purchases_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9)
	`, customer.ID, customer.Name, customer.Phone, nullIfEmpty(customer.TaxID), nullIfEmpty(customer.Email),
		nullIfEmpty(customer.Address), nullIfEmpty(customer.Notes), customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1
	`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" || customer.Phone == "" {
		return nil, store.ErrInvalidRecord
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, tax_id = $4, email = $5, address = $6, notes = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns+`
	`, customer.ID, customer.Name, customer.Phone, nullIfEmpty(customer.TaxID), nullIfEmpty(customer.Email),
		nullIfEmpty(customer.Address), nullIfEmpty(customer.Notes))
	updated, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sales WHERE customer_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return store.ErrReferencedBySale
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddCustomerPurchase(ctx context.Context, id string, amountCents int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET total_purchases_cents = total_purchases_cents + $2, last_purchase_at = $3, updated_at = now()
		WHERE id = $1
	`, id, amountCents, at.UTC())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusCompleted
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, subtotal_cents, discount_cents, surcharge_cents, total_cents,
			payment_method, tendered_cents, change_cents, customer_id, customer_name, cashier, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, sale.ID, sale.SubtotalCents, sale.DiscountCents, sale.SurchargeCents, sale.TotalCents,
		sale.PaymentMethod, sale.TenderedCents, sale.ChangeCents, nullIfEmpty(sale.CustomerID),
		sale.CustomerName, sale.Cashier, sale.Status, sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i, item := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, position, product_id, code, name, unit_price_cents, qty, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, sale.ID, i, item.ProductID, item.Code, item.Name, item.UnitPriceCents, item.Qty, item.LineTotalCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

const saleColumns = `id, subtotal_cents, discount_cents, surcharge_cents, total_cents, payment_method, tendered_cents, change_cents, customer_id, customer_name, cashier, status, created_at`

func scanSale(row interface{ Scan(...any) error }) (domain.Sale, error) {
	var sale domain.Sale
	var customerID sql.NullString
	err := row.Scan(&sale.ID, &sale.SubtotalCents, &sale.DiscountCents, &sale.SurchargeCents,
		&sale.TotalCents, &sale.PaymentMethod, &sale.TenderedCents, &sale.ChangeCents,
		&customerID, &sale.CustomerName, &sale.Cashier, &sale.Status, &sale.CreatedAt)
	if err != nil {
		return sale, err
	}
	sale.CustomerID = customerID.String
	sale.CreatedAt = sale.CreatedAt.UTC()
	return sale, nil
}

func (s *Store) loadSaleItems(ctx context.Context, saleIDs []string) (map[string][]domain.SaleItem, error) {
	items := make(map[string][]domain.SaleItem, len(saleIDs))
	if len(saleIDs) == 0 {
		return items, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_id, code, name, unit_price_cents, qty, line_total_cents
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var saleID string
		var item domain.SaleItem
		if err := rows.Scan(&saleID, &item.ProductID, &item.Code, &item.Name, &item.UnitPriceCents, &item.Qty, &item.LineTotalCents); err != nil {
			return nil, err
		}
		items[saleID] = append(items[saleID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE id = $1
	`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.loadSaleItems(ctx, []string{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Items = items[sale.ID]
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	// Limit < 1 means unbounded; the full-collection reads behind backup
	// export depend on that, so the NULLIF form binds a NULL limit instead
	// of a default cap.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF(GREATEST($3::int, 0), 0)
	`, nullTime(filter.From), nullTime(filter.To), filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []domain.Sale
	var ids []string
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := s.loadSaleItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
	}
	return sales, nil
}

func (s *Store) GetStoreConfig(ctx context.Context) (*domain.StoreConfig, error) {
	var cfg domain.StoreConfig
	var taxID, phone, address, notifyEmail sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT store_name, tax_id, phone, address, default_min_stock, default_tax_rate_percent,
			notify_email, notifications_enabled, auto_backup, print_receipt, updated_at
		FROM store_config
		WHERE singleton = true
	`).Scan(&cfg.StoreName, &taxID, &phone, &address, &cfg.DefaultMinStock, &cfg.DefaultTaxRatePercent,
		&notifyEmail, &cfg.NotificationsEnabled, &cfg.AutoBackup, &cfg.PrintReceipt, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	cfg.TaxID = taxID.String
	cfg.Phone = phone.String
	cfg.Address = address.String
	cfg.NotifyEmail = notifyEmail.String
	cfg.UpdatedAt = cfg.UpdatedAt.UTC()
	return &cfg, nil
}

func (s *Store) SaveStoreConfig(ctx context.Context, cfg domain.StoreConfig) (*domain.StoreConfig, error) {
	if cfg.StoreName == "" {
		return nil, store.ErrInvalidRecord
	}
	if cfg.DefaultMinStock < 0 {
		cfg.DefaultMinStock = 0
	}
	cfg.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_config (singleton, store_name, tax_id, phone, address, default_min_stock,
			default_tax_rate_percent, notify_email, notifications_enabled, auto_backup, print_receipt, updated_at)
		VALUES (true,$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (singleton)
		DO UPDATE SET store_name = EXCLUDED.store_name, tax_id = EXCLUDED.tax_id,
			phone = EXCLUDED.phone, address = EXCLUDED.address,
			default_min_stock = EXCLUDED.default_min_stock,
			default_tax_rate_percent = EXCLUDED.default_tax_rate_percent,
			notify_email = EXCLUDED.notify_email,
			notifications_enabled = EXCLUDED.notifications_enabled,
			auto_backup = EXCLUDED.auto_backup, print_receipt = EXCLUDED.print_receipt,
			updated_at = EXCLUDED.updated_at
	`, cfg.StoreName, nullIfEmpty(cfg.TaxID), nullIfEmpty(cfg.Phone), nullIfEmpty(cfg.Address),
		cfg.DefaultMinStock, cfg.DefaultTaxRatePercent, nullIfEmpty(cfg.NotifyEmail),
		cfg.NotificationsEnabled, cfg.AutoBackup, cfg.PrintReceipt, cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}

	saved := cfg
	return &saved, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRecord
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, display_name, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.Username, user.Password, user.DisplayName, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRecord
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, display_name, role, active, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.Username, &user.Password, &user.DisplayName, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, display_name, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.DisplayName, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if password == "" {
		return store.ErrInvalidRecord
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ImportProducts(ctx context.Context, products []domain.Product) (int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

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
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, code, barcode, name, category, unit, cost_price_cents, sale_price_cents, stock_qty, min_stock, active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,true,$11,$12)
			ON CONFLICT (id)
			DO UPDATE SET code = EXCLUDED.code, barcode = EXCLUDED.barcode, name = EXCLUDED.name,
				category = EXCLUDED.category, unit = EXCLUDED.unit,
				cost_price_cents = EXCLUDED.cost_price_cents, sale_price_cents = EXCLUDED.sale_price_cents,
				stock_qty = EXCLUDED.stock_qty, min_stock = EXCLUDED.min_stock,
				active = true, updated_at = EXCLUDED.updated_at
		`, p.ID, p.Code, nullIfEmpty(p.Barcode), p.Name, p.Category, p.Unit,
			p.CostPriceCents, p.SalePriceCents, p.StockQty, nullIntPtr(p.MinStock), p.CreatedAt, now)
		if err != nil {
			return 0, err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ImportCustomers(ctx context.Context, customers []domain.Customer) (int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

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
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customers (id, name, phone, tax_id, email, address, notes, total_purchases_cents, last_purchase_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (id)
			DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone, tax_id = EXCLUDED.tax_id,
				email = EXCLUDED.email, address = EXCLUDED.address, notes = EXCLUDED.notes,
				total_purchases_cents = EXCLUDED.total_purchases_cents,
				last_purchase_at = EXCLUDED.last_purchase_at, updated_at = EXCLUDED.updated_at
		`, c.ID, c.Name, c.Phone, nullIfEmpty(c.TaxID), nullIfEmpty(c.Email), nullIfEmpty(c.Address),
			nullIfEmpty(c.Notes), c.TotalPurchasesCents, nullTimePtr(c.LastPurchaseAt), c.CreatedAt, now)
		if err != nil {
			return 0, err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ImportSales(ctx context.Context, sales []domain.Sale) (int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

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
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sales (id, subtotal_cents, discount_cents, surcharge_cents, total_cents,
				payment_method, tendered_cents, change_cents, customer_id, customer_name, cashier, status, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (id) DO NOTHING
		`, sale.ID, sale.SubtotalCents, sale.DiscountCents, sale.SurchargeCents, sale.TotalCents,
			sale.PaymentMethod, sale.TenderedCents, sale.ChangeCents, nullIfEmpty(sale.CustomerID),
			sale.CustomerName, sale.Cashier, sale.Status, sale.CreatedAt)
		if err != nil {
			return 0, err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, sale.ID); err != nil {
			return 0, err
		}
		for i, item := range sale.Items {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO sale_items (sale_id, position, product_id, code, name, unit_price_cents, qty, line_total_cents)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`, sale.ID, i, item.ProductID, item.Code, item.Name, item.UnitPriceCents, item.Qty, item.LineTotalCents)
			if err != nil {
				return 0, err
			}
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM sale_items`,
		`DELETE FROM sales`,
		`DELETE FROM customers`,
		`DELETE FROM products`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullIntPtr(val *int) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val.UTC()
}

func nullTimePtr(val *time.Time) any {
	if val == nil {
		return nil
	}
	return val.UTC()
}
