// Package store defines the persistence contract shared by the in-memory and
// Postgres backends. Every method is scoped by store location so data for one
// shop never leaks into another.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrStoreNotFound     = errors.New("store location not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

// TransactionFilter narrows ListTransactions. Zero time values mean
// "unbounded" on that side.
type TransactionFilter struct {
	From   time.Time
	To     time.Time
	Status string
	Limit  int
}

type Repository interface {
	// Store locations.
	CreateStore(ctx context.Context, s domain.StoreLocation) (domain.StoreLocation, error)
	GetStore(ctx context.Context, storeID string) (domain.StoreLocation, error)
	ListStores(ctx context.Context) ([]domain.StoreLocation, error)
	SetStoreStatus(ctx context.Context, storeID, status string) (domain.StoreLocation, error)

	// Catalog.
	CreateProduct(ctx context.Context, storeID string, p domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, storeID, productID string) (domain.Product, error)
	GetProductsByIDs(ctx context.Context, storeID string, ids []string) (map[string]domain.Product, error)
	ListProducts(ctx context.Context, storeID string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, storeID string, p domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, storeID, productID string) error
	AdjustStock(ctx context.Context, storeID, productID string, delta int) (domain.Product, error)

	// Customers.
	CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	GetCustomer(ctx context.Context, storeID, customerID string) (domain.Customer, error)
	ListCustomers(ctx context.Context, storeID string) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	AdjustLoyaltyPoints(ctx context.Context, storeID, customerID string, delta int) (domain.Customer, error)
	AddOutstandingBalance(ctx context.Context, storeID, customerID string, deltaCents int64) (domain.Customer, error)

	// Transactions. CreateTransaction decrements stock for every line in the
	// same unit of work and fails the whole sale when any line lacks stock.
	CreateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	GetTransaction(ctx context.Context, storeID, txID string) (domain.Transaction, error)
	GetTransactionByIdempotencyKey(ctx context.Context, storeID, key string) (domain.Transaction, error)
	ListTransactions(ctx context.Context, storeID string, f TransactionFilter) ([]domain.Transaction, error)
	VoidTransaction(ctx context.Context, storeID, txID, reason string) (domain.Transaction, error)
	RefundTransaction(ctx context.Context, storeID, txID, reason string) (domain.Transaction, error)

	// Hire purchase agreements.
	CreateHirePurchase(ctx context.Context, hp domain.HirePurchase) (domain.HirePurchase, error)
	GetHirePurchase(ctx context.Context, storeID, hpID string) (domain.HirePurchase, error)
	ListHirePurchases(ctx context.Context, storeID string) ([]domain.HirePurchase, error)
	RecordHirePurchasePayment(ctx context.Context, storeID, hpID string, p domain.HirePurchasePayment) (domain.HirePurchase, error)

	// Held carts.
	CreateHeldCart(ctx context.Context, hc domain.HeldCart) (domain.HeldCart, error)
	ListHeldCarts(ctx context.Context, storeID string) ([]domain.HeldCart, error)
	PopHeldCart(ctx context.Context, storeID, cartID string) (domain.HeldCart, error)

	// Per-store settings.
	GetStoreSettings(ctx context.Context, storeID string) (domain.StoreSettings, error)
	UpdateStoreSettings(ctx context.Context, storeID string, s domain.StoreSettings) (domain.StoreSettings, error)

	// Audit trail.
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, limit int) ([]domain.AuditLog, error)

	// Auth accounts.
	CreateUser(ctx context.Context, u domain.UserAccount) error
	GetUser(ctx context.Context, username string) (domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}
