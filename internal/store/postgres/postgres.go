// Package postgres implements the store.Repository interface on top of
// PostgreSQL using database/sql with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/store"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) storeExists(ctx context.Context, q querier, storeID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM stores WHERE id = $1`, storeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrStoreNotFound
	}
	return err
}

func (s *Store) CreateStore(ctx context.Context, loc domain.StoreLocation) (domain.StoreLocation, error) {
	if strings.TrimSpace(loc.Name) == "" {
		return domain.StoreLocation{}, store.ErrInvalidInput
	}
	if loc.ID == "" {
		loc.ID = xid.New("store")
	}
	if loc.Status == "" {
		loc.Status = domain.StoreActive
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.StoreLocation{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stores (id, name, address, phone, manager_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, loc.ID, loc.Name, nullIfEmpty(loc.Address), nullIfEmpty(loc.Phone), nullIfEmpty(loc.ManagerID), loc.Status, loc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.StoreLocation{}, store.ErrInvalidInput
		}
		return domain.StoreLocation{}, err
	}

	// A new store starts with default receipt settings so checkout and
	// receipt rendering never hit a missing settings row.
	settings := domain.StoreSettings{BusinessName: loc.Name, CurrencyCode: "KES"}
	blob, err := json.Marshal(settings)
	if err != nil {
		return domain.StoreLocation{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO store_settings (store_id, settings, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (store_id) DO NOTHING
	`, loc.ID, blob)
	if err != nil {
		return domain.StoreLocation{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreLocation{}, err
	}
	return loc, nil
}

func (s *Store) GetStore(ctx context.Context, storeID string) (domain.StoreLocation, error) {
	return scanStore(s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(manager_id, ''), status, created_at
		FROM stores
		WHERE id = $1
	`, storeID))
}

func (s *Store) ListStores(ctx context.Context) ([]domain.StoreLocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(manager_id, ''), status, created_at
		FROM stores
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.StoreLocation, 0, 8)
	for rows.Next() {
		var loc domain.StoreLocation
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.Phone, &loc.ManagerID, &loc.Status, &loc.CreatedAt); err != nil {
			return nil, err
		}
		loc.CreatedAt = loc.CreatedAt.UTC()
		result = append(result, loc)
	}
	return result, rows.Err()
}

func (s *Store) SetStoreStatus(ctx context.Context, storeID, status string) (domain.StoreLocation, error) {
	switch status {
	case domain.StoreActive, domain.StoreInactive, domain.StoreSuspended:
	default:
		return domain.StoreLocation{}, store.ErrInvalidInput
	}
	return scanStore(s.db.QueryRowContext(ctx, `
		UPDATE stores
		SET status = $2
		WHERE id = $1
		RETURNING id, name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(manager_id, ''), status, created_at
	`, storeID, status))
}

func scanStore(row *sql.Row) (domain.StoreLocation, error) {
	var loc domain.StoreLocation
	err := row.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.Phone, &loc.ManagerID, &loc.Status, &loc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoreLocation{}, store.ErrStoreNotFound
	}
	if err != nil {
		return domain.StoreLocation{}, err
	}
	loc.CreatedAt = loc.CreatedAt.UTC()
	return loc, nil
}

const productColumns = `id, name, COALESCE(category, ''), buying_cost_cents, wholesale_price_cents, retail_price_cents,
		stock, min_stock_level, COALESCE(barcode, ''), unit, active`

func (s *Store) CreateProduct(ctx context.Context, storeID string, p domain.Product) (domain.Product, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.Product{}, err
	}
	if strings.TrimSpace(p.Name) == "" || p.RetailPriceCents < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.BuyingCostCents < 0 || p.WholesalePriceCents < 0 || p.Stock < 0 || p.MinStockLevel < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.ID == "" {
		p.ID = xid.New("prod")
	}
	if p.Unit == "" {
		p.Unit = "pcs"
	}
	p.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (store_id, id, name, category, buying_cost_cents, wholesale_price_cents,
			retail_price_cents, stock, min_stock_level, barcode, unit, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, storeID, p.ID, p.Name, nullIfEmpty(p.Category), p.BuyingCostCents, p.WholesalePriceCents,
		p.RetailPriceCents, p.Stock, p.MinStockLevel, nullIfEmpty(p.Barcode), p.Unit, p.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, store.ErrInvalidInput
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, storeID, productID string) (domain.Product, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.Product{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE store_id = $1 AND id = $2
	`, storeID, productID)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, store.ErrNotFound
	}
	return p, err
}

func (s *Store) GetProductsByIDs(ctx context.Context, storeID string, ids []string) (map[string]domain.Product, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return nil, err
	}
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE store_id = $1 AND id = ANY($2) AND active = true
	`, storeID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.BuyingCostCents, &p.WholesalePriceCents,
			&p.RetailPriceCents, &p.Stock, &p.MinStockLevel, &p.Barcode, &p.Unit, &p.Active); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

func (s *Store) ListProducts(ctx context.Context, storeID string) ([]domain.Product, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE store_id = $1 AND active = true
		ORDER BY category ASC, name ASC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.BuyingCostCents, &p.WholesalePriceCents,
			&p.RetailPriceCents, &p.Stock, &p.MinStockLevel, &p.Barcode, &p.Unit, &p.Active); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) UpdateProduct(ctx context.Context, storeID string, p domain.Product) (domain.Product, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.Product{}, err
	}
	if strings.TrimSpace(p.Name) == "" || p.RetailPriceCents < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.BuyingCostCents < 0 || p.WholesalePriceCents < 0 || p.Stock < 0 || p.MinStockLevel < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $3, category = $4, buying_cost_cents = $5, wholesale_price_cents = $6,
			retail_price_cents = $7, stock = $8, min_stock_level = $9, barcode = $10, unit = $11, active = $12
		WHERE store_id = $1 AND id = $2
		RETURNING `+productColumns+`
	`, storeID, p.ID, p.Name, nullIfEmpty(p.Category), p.BuyingCostCents, p.WholesalePriceCents,
		p.RetailPriceCents, p.Stock, p.MinStockLevel, nullIfEmpty(p.Barcode), p.Unit, p.Active)
	updated, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, store.ErrNotFound
	}
	return updated, err
}

func (s *Store) DeleteProduct(ctx context.Context, storeID, productID string) error {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET active = false
		WHERE store_id = $1 AND id = $2 AND active = true
	`, storeID, productID)
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

func (s *Store) AdjustStock(ctx context.Context, storeID, productID string, delta int) (domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Product{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.storeExists(ctx, tx, storeID); err != nil {
		return domain.Product{}, err
	}

	var stock int
	err = tx.QueryRowContext(ctx, `
		SELECT stock FROM products
		WHERE store_id = $1 AND id = $2
		FOR UPDATE
	`, storeID, productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	if stock+delta < 0 {
		return domain.Product{}, store.ErrInsufficientStock
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $3
		WHERE store_id = $1 AND id = $2
		RETURNING `+productColumns+`
	`, storeID, productID, delta)
	p, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func scanProduct(row *sql.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.BuyingCostCents, &p.WholesalePriceCents,
		&p.RetailPriceCents, &p.Stock, &p.MinStockLevel, &p.Barcode, &p.Unit, &p.Active)
	return p, err
}

const customerColumns = `id, store_id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''),
		credit_limit_cents, outstanding_balance_cents, loyalty_points, created_at`

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if err := s.storeExists(ctx, s.db, c.StoreID); err != nil {
		return domain.Customer{}, err
	}
	if strings.TrimSpace(c.Name) == "" || c.CreditLimitCents < 0 {
		return domain.Customer{}, store.ErrInvalidInput
	}
	if c.ID == "" {
		c.ID = xid.New("cust")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (store_id, id, name, phone, email, address,
			credit_limit_cents, outstanding_balance_cents, loyalty_points, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.StoreID, c.ID, c.Name, nullIfEmpty(c.Phone), nullIfEmpty(c.Email), nullIfEmpty(c.Address),
		c.CreditLimitCents, c.OutstandingBalanceCents, c.LoyaltyPoints, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, store.ErrInvalidInput
		}
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *Store) GetCustomer(ctx context.Context, storeID, customerID string) (domain.Customer, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.Customer{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE store_id = $1 AND id = $2
	`, storeID, customerID)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, store.ErrNotFound
	}
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context, storeID string) ([]domain.Customer, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE store_id = $1
		ORDER BY name ASC, id ASC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Name, &c.Phone, &c.Email, &c.Address,
			&c.CreditLimitCents, &c.OutstandingBalanceCents, &c.LoyaltyPoints, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) UpdateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if err := s.storeExists(ctx, s.db, c.StoreID); err != nil {
		return domain.Customer{}, err
	}
	if strings.TrimSpace(c.Name) == "" || c.CreditLimitCents < 0 {
		return domain.Customer{}, store.ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $3, phone = $4, email = $5, address = $6, credit_limit_cents = $7
		WHERE store_id = $1 AND id = $2
		RETURNING `+customerColumns+`
	`, c.StoreID, c.ID, c.Name, nullIfEmpty(c.Phone), nullIfEmpty(c.Email), nullIfEmpty(c.Address), c.CreditLimitCents)
	updated, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, store.ErrNotFound
	}
	return updated, err
}

func (s *Store) AdjustLoyaltyPoints(ctx context.Context, storeID, customerID string, delta int) (domain.Customer, error) {
	return s.adjustCustomerCounter(ctx, storeID, customerID, `
		UPDATE customers
		SET loyalty_points = loyalty_points + $3
		WHERE store_id = $1 AND id = $2 AND loyalty_points + $3 >= 0
		RETURNING `+customerColumns+`
	`, delta)
}

func (s *Store) AddOutstandingBalance(ctx context.Context, storeID, customerID string, deltaCents int64) (domain.Customer, error) {
	return s.adjustCustomerCounter(ctx, storeID, customerID, `
		UPDATE customers
		SET outstanding_balance_cents = outstanding_balance_cents + $3
		WHERE store_id = $1 AND id = $2 AND outstanding_balance_cents + $3 >= 0
		RETURNING `+customerColumns+`
	`, deltaCents)
}

// adjustCustomerCounter applies a guarded additive update. The WHERE clause
// keeps the counter non-negative, so a missing row is ambiguous: it is either
// an unknown customer or an underflow, and we re-read to tell the two apart.
func (s *Store) adjustCustomerCounter(ctx context.Context, storeID, customerID, query string, delta any) (domain.Customer, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.Customer{}, err
	}
	c, err := scanCustomer(s.db.QueryRowContext(ctx, query, storeID, customerID, delta))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetCustomer(ctx, storeID, customerID); getErr != nil {
			return domain.Customer{}, getErr
		}
		return domain.Customer{}, store.ErrInvalidInput
	}
	return c, err
}

func scanCustomer(row *sql.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.StoreID, &c.Name, &c.Phone, &c.Email, &c.Address,
		&c.CreditLimitCents, &c.OutstandingBalanceCents, &c.LoyaltyPoints, &c.CreatedAt)
	if err != nil {
		return domain.Customer{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (s *Store) CreateTransaction(ctx context.Context, txn domain.Transaction) (domain.Transaction, error) {
	if len(txn.Items) == 0 {
		return domain.Transaction{}, store.ErrInvalidInput
	}
	for _, item := range txn.Items {
		if item.Qty < 1 {
			return domain.Transaction{}, store.ErrInvalidInput
		}
	}
	if txn.ID == "" {
		txn.ID = xid.New("tx")
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	if txn.Status == "" {
		txn.Status = domain.TxStatusCompleted
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Transaction{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.storeExists(ctx, tx, txn.StoreID); err != nil {
		return domain.Transaction{}, err
	}

	// Lock every product row up front, validate availability, then decrement.
	// The sale and its stock movement commit or roll back as one unit.
	for _, item := range txn.Items {
		var stock int
		var active bool
		err := tx.QueryRowContext(ctx, `
			SELECT stock, active FROM products
			WHERE store_id = $1 AND id = $2
			FOR UPDATE
		`, txn.StoreID, item.ProductID).Scan(&stock, &active)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, store.ErrNotFound
		}
		if err != nil {
			return domain.Transaction{}, err
		}
		if !active {
			return domain.Transaction{}, store.ErrNotFound
		}
		if stock < item.Qty {
			return domain.Transaction{}, store.ErrInsufficientStock
		}
	}
	for _, item := range txn.Items {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $3
			WHERE store_id = $1 AND id = $2
		`, txn.StoreID, item.ProductID, item.Qty); err != nil {
			return domain.Transaction{}, err
		}
	}

	splits, err := marshalSplits(txn.PaymentSplits)
	if err != nil {
		return domain.Transaction{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, store_id, attendant_id, customer_id, idempotency_key,
			subtotal_cents, discount_cents, loyalty_cents, loyalty_points_used, total_cents,
			payment_method, payment_splits, cash_received_cents, change_cents,
			status, status_reason, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, txn.ID, txn.StoreID, txn.AttendantID, nullIfEmpty(txn.CustomerID), nullIfEmpty(txn.IdempotencyKey),
		txn.SubtotalCents, txn.DiscountCents, txn.LoyaltyCents, txn.LoyaltyPointsUsed, txn.TotalCents,
		txn.PaymentMethod, splits, txn.CashReceivedCents, txn.ChangeCents,
		txn.Status, nullIfEmpty(txn.StatusReason), txn.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent checkout with the same idempotency key won the
			// race. Surface the stored sale instead of double charging.
			if txn.IdempotencyKey != "" {
				return s.GetTransactionByIdempotencyKey(ctx, txn.StoreID, txn.IdempotencyKey)
			}
			return domain.Transaction{}, store.ErrInvalidInput
		}
		return domain.Transaction{}, err
	}

	for _, item := range txn.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, product_id, name, category, qty, unit_price_cents, unit_buying_cost_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, txn.ID, item.ProductID, item.Name, nullIfEmpty(item.Category), item.Qty, item.UnitPriceCents, item.UnitBuyingCostCents); err != nil {
			return domain.Transaction{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Transaction{}, err
	}
	return txn, nil
}

const transactionColumns = `id, store_id, attendant_id, COALESCE(customer_id, ''), COALESCE(idempotency_key, ''),
		subtotal_cents, discount_cents, loyalty_cents, loyalty_points_used, total_cents,
		payment_method, payment_splits, cash_received_cents, change_cents,
		status, COALESCE(status_reason, ''), voided_at, refunded_at, created_at`

func (s *Store) GetTransaction(ctx context.Context, storeID, txID string) (domain.Transaction, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.Transaction{}, err
	}
	return s.fetchTransaction(ctx, storeID, `id = $2`, txID)
}

func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, storeID, key string) (domain.Transaction, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.Transaction{}, err
	}
	return s.fetchTransaction(ctx, storeID, `idempotency_key = $2`, key)
}

func (s *Store) fetchTransaction(ctx context.Context, storeID, where string, arg any) (domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE store_id = $1 AND `+where+`
	`, storeID, arg)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, err
	}
	items, err := s.transactionItems(ctx, txn.ID)
	if err != nil {
		return domain.Transaction{}, err
	}
	txn.Items = items
	return txn, nil
}

func (s *Store) ListTransactions(ctx context.Context, storeID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE store_id = $1`
	args := []any{storeID}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Transaction, 0, 64)
	for rows.Next() {
		txn, err := scanTransactionRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		items, err := s.transactionItems(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Items = items
	}
	return result, nil
}

func (s *Store) VoidTransaction(ctx context.Context, storeID, txID, reason string) (domain.Transaction, error) {
	return s.reverseTransaction(ctx, storeID, txID, reason, domain.TxStatusVoided)
}

func (s *Store) RefundTransaction(ctx context.Context, storeID, txID, reason string) (domain.Transaction, error) {
	return s.reverseTransaction(ctx, storeID, txID, reason, domain.TxStatusRefunded)
}

// reverseTransaction flips a completed sale to voided or refunded and puts
// the sold quantities back on the shelf, all in one serializable transaction.
func (s *Store) reverseTransaction(ctx context.Context, storeID, txID, reason, status string) (domain.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Transaction{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.storeExists(ctx, tx, storeID); err != nil {
		return domain.Transaction{}, err
	}

	var current string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM transactions
		WHERE store_id = $1 AND id = $2
		FOR UPDATE
	`, storeID, txID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, err
	}
	if current != domain.TxStatusCompleted {
		return domain.Transaction{}, store.ErrInvalidInput
	}

	// Restock from the recorded line items; products deleted since the sale
	// simply no longer match and are skipped.
	if _, err := tx.ExecContext(ctx, `
		UPDATE products p
		SET stock = p.stock + ti.qty
		FROM transaction_items ti
		WHERE ti.transaction_id = $2 AND p.store_id = $1 AND p.id = ti.product_id
	`, storeID, txID); err != nil {
		return domain.Transaction{}, err
	}

	timestampColumn := "voided_at"
	if status == domain.TxStatusRefunded {
		timestampColumn = "refunded_at"
	}
	row := tx.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = $3, status_reason = $4, `+timestampColumn+` = now()
		WHERE store_id = $1 AND id = $2
		RETURNING `+transactionColumns+`
	`, storeID, txID, status, nullIfEmpty(reason))
	txn, err := scanTransaction(row)
	if err != nil {
		return domain.Transaction{}, err
	}

	items, err := transactionItemsTx(ctx, tx, txID)
	if err != nil {
		return domain.Transaction{}, err
	}
	txn.Items = items

	if err := tx.Commit(); err != nil {
		return domain.Transaction{}, err
	}
	return txn, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row *sql.Row) (domain.Transaction, error) {
	return scanTransactionRows(row)
}

func scanTransactionRows(row rowScanner) (domain.Transaction, error) {
	var (
		txn      domain.Transaction
		splits   []byte
		voidedAt sql.NullTime
		refunded sql.NullTime
	)
	err := row.Scan(&txn.ID, &txn.StoreID, &txn.AttendantID, &txn.CustomerID, &txn.IdempotencyKey,
		&txn.SubtotalCents, &txn.DiscountCents, &txn.LoyaltyCents, &txn.LoyaltyPointsUsed, &txn.TotalCents,
		&txn.PaymentMethod, &splits, &txn.CashReceivedCents, &txn.ChangeCents,
		&txn.Status, &txn.StatusReason, &voidedAt, &refunded, &txn.CreatedAt)
	if err != nil {
		return domain.Transaction{}, err
	}
	if len(splits) > 0 {
		if err := json.Unmarshal(splits, &txn.PaymentSplits); err != nil {
			return domain.Transaction{}, fmt.Errorf("decode payment splits for %s: %w", txn.ID, err)
		}
	}
	if voidedAt.Valid {
		t := voidedAt.Time.UTC()
		txn.VoidedAt = &t
	}
	if refunded.Valid {
		t := refunded.Time.UTC()
		txn.RefundedAt = &t
	}
	txn.CreatedAt = txn.CreatedAt.UTC()
	return txn, nil
}

type itemQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) transactionItems(ctx context.Context, txID string) ([]domain.TransactionLine, error) {
	return transactionItemsTx(ctx, s.db, txID)
}

func transactionItemsTx(ctx context.Context, q itemQuerier, txID string) ([]domain.TransactionLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, name, COALESCE(category, ''), qty, unit_price_cents, unit_buying_cost_cents
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY id ASC
	`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TransactionLine, 0, 8)
	for rows.Next() {
		var line domain.TransactionLine
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Category, &line.Qty,
			&line.UnitPriceCents, &line.UnitBuyingCostCents); err != nil {
			return nil, err
		}
		items = append(items, line)
	}
	return items, rows.Err()
}

func (s *Store) CreateHirePurchase(ctx context.Context, hp domain.HirePurchase) (domain.HirePurchase, error) {
	if err := s.storeExists(ctx, s.db, hp.StoreID); err != nil {
		return domain.HirePurchase{}, err
	}
	if hp.CustomerID == "" || hp.TransactionID == "" || len(hp.Items) == 0 {
		return domain.HirePurchase{}, store.ErrInvalidInput
	}
	if hp.ID == "" {
		hp.ID = xid.New("hp")
	}
	if hp.Status == "" {
		hp.Status = domain.HirePurchaseActive
	}
	items, err := json.Marshal(hp.Items)
	if err != nil {
		return domain.HirePurchase{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hire_purchases (
			id, store_id, customer_id, transaction_id, items,
			total_cents, down_payment_cents, remaining_balance_cents, installment_cents,
			period, start_date, next_payment_date, end_date, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, hp.ID, hp.StoreID, hp.CustomerID, hp.TransactionID, items,
		hp.TotalCents, hp.DownPaymentCents, hp.RemainingBalanceCents, hp.InstallmentCents,
		hp.Period, hp.StartDate, hp.NextPaymentDate, hp.EndDate, hp.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.HirePurchase{}, store.ErrInvalidInput
		}
		return domain.HirePurchase{}, err
	}
	return hp, nil
}

const hirePurchaseColumns = `id, store_id, customer_id, transaction_id, items,
		total_cents, down_payment_cents, remaining_balance_cents, installment_cents,
		period, start_date, next_payment_date, end_date, status`

func (s *Store) GetHirePurchase(ctx context.Context, storeID, hpID string) (domain.HirePurchase, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.HirePurchase{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+hirePurchaseColumns+`
		FROM hire_purchases
		WHERE store_id = $1 AND id = $2
	`, storeID, hpID)
	hp, err := scanHirePurchase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HirePurchase{}, store.ErrNotFound
	}
	if err != nil {
		return domain.HirePurchase{}, err
	}
	payments, err := s.hirePurchasePayments(ctx, s.db, hpID)
	if err != nil {
		return domain.HirePurchase{}, err
	}
	hp.Payments = payments
	return hp, nil
}

func (s *Store) ListHirePurchases(ctx context.Context, storeID string) ([]domain.HirePurchase, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+hirePurchaseColumns+`
		FROM hire_purchases
		WHERE store_id = $1
		ORDER BY start_date DESC, id DESC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.HirePurchase, 0, 16)
	for rows.Next() {
		hp, err := scanHirePurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, hp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		payments, err := s.hirePurchasePayments(ctx, s.db, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Payments = payments
	}
	return result, nil
}

func (s *Store) RecordHirePurchasePayment(ctx context.Context, storeID, hpID string, p domain.HirePurchasePayment) (domain.HirePurchase, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.HirePurchase{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.storeExists(ctx, tx, storeID); err != nil {
		return domain.HirePurchase{}, err
	}

	var (
		status    string
		remaining int64
		period    string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT status, remaining_balance_cents, period
		FROM hire_purchases
		WHERE store_id = $1 AND id = $2
		FOR UPDATE
	`, storeID, hpID).Scan(&status, &remaining, &period)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HirePurchase{}, store.ErrNotFound
	}
	if err != nil {
		return domain.HirePurchase{}, err
	}
	if status != domain.HirePurchaseActive {
		return domain.HirePurchase{}, store.ErrInvalidInput
	}
	if p.AmountCents < 1 || p.AmountCents > remaining {
		return domain.HirePurchase{}, store.ErrInvalidInput
	}

	if p.ID == "" {
		p.ID = xid.New("hpp")
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO hire_purchase_payments (hire_purchase_id, payment_id, amount_cents, method, reference, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, hpID, p.ID, p.AmountCents, p.Method, nullIfEmpty(p.Reference), p.PaidAt); err != nil {
		return domain.HirePurchase{}, err
	}

	remaining -= p.AmountCents
	newStatus := domain.HirePurchaseActive
	nextPayment := sql.NullTime{}
	if remaining == 0 {
		newStatus = domain.HirePurchaseCompleted
	} else {
		next := p.PaidAt.AddDate(0, 0, 7)
		if period == domain.PeriodMonthly {
			next = p.PaidAt.AddDate(0, 1, 0)
		}
		nextPayment = sql.NullTime{Time: next, Valid: true}
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE hire_purchases
		SET remaining_balance_cents = $3, status = $4,
			next_payment_date = COALESCE($5, next_payment_date)
		WHERE store_id = $1 AND id = $2
		RETURNING `+hirePurchaseColumns+`
	`, storeID, hpID, remaining, newStatus, nextPayment)
	hp, err := scanHirePurchase(row)
	if err != nil {
		return domain.HirePurchase{}, err
	}

	payments, err := s.hirePurchasePayments(ctx, tx, hpID)
	if err != nil {
		return domain.HirePurchase{}, err
	}
	hp.Payments = payments

	if err := tx.Commit(); err != nil {
		return domain.HirePurchase{}, err
	}
	return hp, nil
}

func scanHirePurchase(row rowScanner) (domain.HirePurchase, error) {
	var (
		hp    domain.HirePurchase
		items []byte
	)
	err := row.Scan(&hp.ID, &hp.StoreID, &hp.CustomerID, &hp.TransactionID, &items,
		&hp.TotalCents, &hp.DownPaymentCents, &hp.RemainingBalanceCents, &hp.InstallmentCents,
		&hp.Period, &hp.StartDate, &hp.NextPaymentDate, &hp.EndDate, &hp.Status)
	if err != nil {
		return domain.HirePurchase{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &hp.Items); err != nil {
			return domain.HirePurchase{}, fmt.Errorf("decode hire purchase items for %s: %w", hp.ID, err)
		}
	}
	hp.StartDate = hp.StartDate.UTC()
	hp.NextPaymentDate = hp.NextPaymentDate.UTC()
	hp.EndDate = hp.EndDate.UTC()
	return hp, nil
}

func (s *Store) hirePurchasePayments(ctx context.Context, q itemQuerier, hpID string) ([]domain.HirePurchasePayment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT payment_id, amount_cents, method, COALESCE(reference, ''), paid_at
		FROM hire_purchase_payments
		WHERE hire_purchase_id = $1
		ORDER BY id ASC
	`, hpID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.HirePurchasePayment, 0, 8)
	for rows.Next() {
		var p domain.HirePurchasePayment
		if err := rows.Scan(&p.ID, &p.AmountCents, &p.Method, &p.Reference, &p.PaidAt); err != nil {
			return nil, err
		}
		p.PaidAt = p.PaidAt.UTC()
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) CreateHeldCart(ctx context.Context, held domain.HeldCart) (domain.HeldCart, error) {
	if err := s.storeExists(ctx, s.db, held.StoreID); err != nil {
		return domain.HeldCart{}, err
	}
	if held.AttendantID == "" || len(held.Lines) == 0 {
		return domain.HeldCart{}, store.ErrInvalidInput
	}
	if held.ID == "" {
		held.ID = xid.New("hold")
	}
	if held.HeldAt.IsZero() {
		held.HeldAt = time.Now().UTC()
	}
	lines, err := json.Marshal(held.Lines)
	if err != nil {
		return domain.HeldCart{}, err
	}
	discount, err := json.Marshal(held.Discount)
	if err != nil {
		return domain.HeldCart{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO held_carts (store_id, id, attendant_id, customer_id, note, lines, discount, loyalty_points_used, held_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, held.StoreID, held.ID, held.AttendantID, nullIfEmpty(held.CustomerID), nullIfEmpty(held.Note),
		lines, discount, held.LoyaltyPointsUsed, held.HeldAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.HeldCart{}, store.ErrInvalidInput
		}
		return domain.HeldCart{}, err
	}
	return held, nil
}

func (s *Store) ListHeldCarts(ctx context.Context, storeID string) ([]domain.HeldCart, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, attendant_id, COALESCE(customer_id, ''), COALESCE(note, ''),
			lines, discount, loyalty_points_used, held_at
		FROM held_carts
		WHERE store_id = $1
		ORDER BY held_at DESC, id DESC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.HeldCart, 0, 8)
	for rows.Next() {
		held, err := scanHeldCart(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, held)
	}
	return result, rows.Err()
}

func (s *Store) PopHeldCart(ctx context.Context, storeID, cartID string) (domain.HeldCart, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.HeldCart{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM held_carts
		WHERE store_id = $1 AND id = $2
		RETURNING id, store_id, attendant_id, COALESCE(customer_id, ''), COALESCE(note, ''),
			lines, discount, loyalty_points_used, held_at
	`, storeID, cartID)
	held, err := scanHeldCart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HeldCart{}, store.ErrNotFound
	}
	return held, err
}

func scanHeldCart(row rowScanner) (domain.HeldCart, error) {
	var (
		held     domain.HeldCart
		lines    []byte
		discount []byte
	)
	err := row.Scan(&held.ID, &held.StoreID, &held.AttendantID, &held.CustomerID, &held.Note,
		&lines, &discount, &held.LoyaltyPointsUsed, &held.HeldAt)
	if err != nil {
		return domain.HeldCart{}, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &held.Lines); err != nil {
			return domain.HeldCart{}, fmt.Errorf("decode held cart lines for %s: %w", held.ID, err)
		}
	}
	if len(discount) > 0 {
		if err := json.Unmarshal(discount, &held.Discount); err != nil {
			return domain.HeldCart{}, fmt.Errorf("decode held cart discount for %s: %w", held.ID, err)
		}
	}
	held.HeldAt = held.HeldAt.UTC()
	return held, nil
}

func (s *Store) GetStoreSettings(ctx context.Context, storeID string) (domain.StoreSettings, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.StoreSettings{}, err
	}
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT settings FROM store_settings WHERE store_id = $1
	`, storeID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoreSettings{CurrencyCode: "KES"}, nil
	}
	if err != nil {
		return domain.StoreSettings{}, err
	}
	var settings domain.StoreSettings
	if err := json.Unmarshal(blob, &settings); err != nil {
		return domain.StoreSettings{}, fmt.Errorf("decode settings for %s: %w", storeID, err)
	}
	return settings, nil
}

func (s *Store) UpdateStoreSettings(ctx context.Context, storeID string, settings domain.StoreSettings) (domain.StoreSettings, error) {
	if err := s.storeExists(ctx, s.db, storeID); err != nil {
		return domain.StoreSettings{}, err
	}
	if strings.TrimSpace(settings.CurrencyCode) == "" {
		settings.CurrencyCode = "KES"
	}
	blob, err := json.Marshal(settings)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO store_settings (store_id, settings, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (store_id)
		DO UPDATE SET settings = EXCLUDED.settings, updated_at = now()
	`, storeID, blob)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	return settings, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, nullIfEmpty(entry.StoreID), entry.ActorUsername, entry.ActorRole,
		entry.Action, nullIfEmpty(entry.EntityType), nullIfEmpty(entry.EntityID), nullIfEmpty(entry.Detail), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, storeID string, limit int) ([]domain.AuditLog, error) {
	query := `
		SELECT id, COALESCE(store_id, ''), actor_username, actor_role, action,
			COALESCE(entity_type, ''), COALESCE(entity_id, ''), COALESCE(detail, ''), created_at
		FROM audit_logs`
	args := make([]any, 0, 2)
	if storeID != "" {
		args = append(args, storeID)
		query += fmt.Sprintf(" WHERE store_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.AuditLog, 0, 64)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.StoreID, &entry.ActorUsername, &entry.ActorRole,
			&entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "attendant"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, username string) (domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM app_users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserAccount{}, store.ErrNotFound
	}
	if err != nil {
		return domain.UserAccount{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM app_users
		ORDER BY created_at ASC, username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		result = append(result, user)
	}
	return result, rows.Err()
}

func marshalSplits(splits []domain.PaymentSplit) (any, error) {
	if len(splits) == 0 {
		return nil, nil
	}
	blob, err := json.Marshal(splits)
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
