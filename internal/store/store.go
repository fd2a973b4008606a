package store

import (
	"context"
	"errors"
	"time"

	"lumapos/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrReferencedBySale = errors.New("record is referenced by sale history")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrDuplicateCode    = errors.New("product code already in use")
)

// SaleFilter narrows sale history listings. Zero From/To means unbounded on
// that side.
type SaleFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SearchProducts(ctx context.Context, query string, category string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	FindProductByCode(ctx context.Context, code string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	SetProductStock(ctx context.Context, id string, qty int) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	AddCustomerPurchase(ctx context.Context, id string, amountCents int64, at time.Time) error

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]domain.Sale, error)

	GetStoreConfig(ctx context.Context) (*domain.StoreConfig, error)
	SaveStoreConfig(ctx context.Context, cfg domain.StoreConfig) (*domain.StoreConfig, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error

	ImportProducts(ctx context.Context, products []domain.Product) (int, error)
	ImportCustomers(ctx context.Context, customers []domain.Customer) (int, error)
	ImportSales(ctx context.Context, sales []domain.Sale) (int, error)
	ClearAll(ctx context.Context) error
}
