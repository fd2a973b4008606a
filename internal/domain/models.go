package domain

import "time"

type Product struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Barcode        string    `json:"barcode,omitempty"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Unit           string    `json:"unit"`
	CostPriceCents int64     `json:"cost_price_cents"`
	SalePriceCents int64     `json:"sale_price_cents"`
	StockQty       int       `json:"stock_qty"`
	MinStock       *int      `json:"min_stock,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EffectiveMinStock applies the per-product minimum when set, otherwise the
// store-wide default.
func (p Product) EffectiveMinStock(defaultMin int) int {
	if p.MinStock != nil {
		return *p.MinStock
	}
	return defaultMin
}

type ProductCreateRequest struct {
	Code           string `json:"code"`
	Barcode        string `json:"barcode"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Unit           string `json:"unit"`
	CostPriceCents int64  `json:"cost_price_cents"`
	SalePriceCents int64  `json:"sale_price_cents"`
	StockQty       int    `json:"stock_qty"`
	MinStock       *int   `json:"min_stock,omitempty"`
}

type ProductUpdateRequest struct {
	Barcode        *string `json:"barcode,omitempty"`
	Name           *string `json:"name,omitempty"`
	Category       *string `json:"category,omitempty"`
	Unit           *string `json:"unit,omitempty"`
	CostPriceCents *int64  `json:"cost_price_cents,omitempty"`
	SalePriceCents *int64  `json:"sale_price_cents,omitempty"`
	StockQty       *int    `json:"stock_qty,omitempty"`
	MinStock       *int    `json:"min_stock,omitempty"`
	Active         *bool   `json:"active,omitempty"`
}

type Customer struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Phone               string     `json:"phone"`
	TaxID               string     `json:"tax_id,omitempty"`
	Email               string     `json:"email,omitempty"`
	Address             string     `json:"address,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	TotalPurchasesCents int64      `json:"total_purchases_cents"`
	LastPurchaseAt      *time.Time `json:"last_purchase_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	TaxID   *string `json:"tax_id,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type SaleItem struct {
	ProductID      string `json:"product_id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// Sale is an immutable ledger entry; items and totals are snapshots taken at
// checkout, never references into the live catalog.
type Sale struct {
	ID             string     `json:"id"`
	Items          []SaleItem `json:"items"`
	SubtotalCents  int64      `json:"subtotal_cents"`
	DiscountCents  int64      `json:"discount_cents"`
	SurchargeCents int64      `json:"surcharge_cents"`
	TotalCents     int64      `json:"total_cents"`
	PaymentMethod  string     `json:"payment_method"`
	TenderedCents  int64      `json:"tendered_cents"`
	ChangeCents    int64      `json:"change_cents"`
	CustomerID     string     `json:"customer_id,omitempty"`
	CustomerName   string     `json:"customer_name"`
	Cashier        string     `json:"cashier"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

type CheckoutRequest struct {
	DiscountCents  int64  `json:"discount_cents"`
	SurchargeCents int64  `json:"surcharge_cents"`
	PaymentMethod  string `json:"payment_method"`
	TenderedCents  int64  `json:"tendered_cents"`
	CustomerID     string `json:"customer_id,omitempty"`
}

type CheckoutResponse struct {
	Sale        Sale  `json:"sale"`
	ChangeCents int64 `json:"change_cents"`
}

type CartAddRequest struct {
	Code string `json:"code"`
	Qty  int    `json:"qty"`
}

type CartQuantityRequest struct {
	Index int `json:"index"`
	Delta int `json:"delta"`
}

type CartStateResponse struct {
	SessionID     string     `json:"session_id"`
	Lines         []CartLine `json:"lines"`
	SubtotalCents int64      `json:"subtotal_cents"`
}

type StoreConfig struct {
	StoreName             string    `json:"store_name"`
	TaxID                 string    `json:"tax_id,omitempty"`
	Phone                 string    `json:"phone,omitempty"`
	Address               string    `json:"address,omitempty"`
	DefaultMinStock       int       `json:"default_min_stock"`
	DefaultTaxRatePercent float64   `json:"default_tax_rate_percent"`
	NotifyEmail           string    `json:"notify_email,omitempty"`
	NotificationsEnabled  bool      `json:"notifications_enabled"`
	AutoBackup            bool      `json:"auto_backup"`
	PrintReceipt          bool      `json:"print_receipt"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type DashboardStats struct {
	TotalProducts     int   `json:"total_products"`
	LowStockCount     int   `json:"low_stock_count"`
	SalesToday        int   `json:"sales_today"`
	RevenueTodayCents int64 `json:"revenue_today_cents"`
	TotalCustomers    int   `json:"total_customers"`
}

type BestSeller struct {
	ProductID    string `json:"product_id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	QtySold      int    `json:"qty_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

type LowStockItem struct {
	Product  Product `json:"product"`
	MinStock int     `json:"min_stock"`
	Depleted bool    `json:"depleted"`
}

type MonthlyRevenueEntry struct {
	Month        string `json:"month"`
	Sales        int    `json:"sales"`
	RevenueCents int64  `json:"revenue_cents"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type CashierUser struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username    string
	Password    string
	DisplayName string
	Role        string
	Active      bool
	CreatedAt   time.Time
}

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

const SaleStatusCompleted = "completed"

// WalkInCustomerName labels sales with no associated customer record.
const WalkInCustomerName = "Walk-in Customer"

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)
