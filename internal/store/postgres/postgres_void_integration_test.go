package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestVoidTransactionRestocksInventory(t *testing.T) {
	databaseURL := os.Getenv("MSUPER_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set MSUPER_TEST_DATABASE_URL to run postgres integration test")
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
	storeID := fmt.Sprintf("store-void-it-%d", stamp)
	productID := fmt.Sprintf("prod-void-it-%d", stamp)
	txID := fmt.Sprintf("tx-void-it-%d", stamp)
	idempotencyKey := fmt.Sprintf("idem-void-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE store_id = $1 AND id = $2`, storeID, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM store_settings WHERE store_id = $1`, storeID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, storeID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, name, address, phone, manager_id, status, created_at)
		VALUES ($1, 'Void IT Branch', null, null, null, 'active', now())
	`, storeID); err != nil {
		t.Fatalf("insert store: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (store_id, id, name, category, buying_cost_cents, wholesale_price_cents,
			retail_price_cents, stock, min_stock_level, barcode, unit, active)
		VALUES ($1, $2, 'Unga Void IT 2kg', 'flour', 10000, 11000, 12000, 10, 2, null, 'pcs', true)
	`, storeID, productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, store_id, attendant_id, customer_id, idempotency_key,
			subtotal_cents, discount_cents, loyalty_cents, loyalty_points_used, total_cents,
			payment_method, payment_splits, cash_received_cents, change_cents,
			status, status_reason, created_at
		)
		VALUES (
			$1, $2, 'attendant', null, $3,
			24000, 0, 0, 0, 24000,
			'cash', null, 25000, 1000,
			'completed', null, now()
		)
	`, txID, storeID, idempotencyKey); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO transaction_items (transaction_id, product_id, name, category, qty, unit_price_cents, unit_buying_cost_cents)
		VALUES ($1, $2, 'Unga Void IT 2kg', 'flour', 2, 12000, 10000)
	`, txID, productID); err != nil {
		t.Fatalf("insert transaction item: %v", err)
	}

	voided, err := s.VoidTransaction(ctx, storeID, txID, "integration test void")
	if err != nil {
		t.Fatalf("void transaction: %v", err)
	}
	if voided.Status != "voided" {
		t.Fatalf("expected transaction status voided, got %s", voided.Status)
	}
	if voided.VoidedAt == nil {
		t.Fatal("expected voided_at to be set")
	}

	var stock int
	if err := s.db.QueryRowContext(ctx, `
		SELECT stock
		FROM products
		WHERE store_id = $1 AND id = $2
	`, storeID, productID).Scan(&stock); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if stock != 12 {
		t.Fatalf("expected stock 12 after void restock, got %d", stock)
	}

	if _, err := s.VoidTransaction(ctx, storeID, txID, "second void"); err == nil {
		t.Fatal("expected second void of same transaction to fail")
	}
}

func TestDeactivatedProductsHiddenFromListings(t *testing.T) {
	databaseURL := os.Getenv("MSUPER_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set MSUPER_TEST_DATABASE_URL to run postgres integration test")
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
	storeID := fmt.Sprintf("store-del-it-%d", stamp)
	productID := fmt.Sprintf("prod-del-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE store_id = $1 AND id = $2`, storeID, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM store_settings WHERE store_id = $1`, storeID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, storeID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, name, address, phone, manager_id, status, created_at)
		VALUES ($1, 'Delete IT Branch', null, null, null, 'active', now())
	`, storeID); err != nil {
		t.Fatalf("insert store: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (store_id, id, name, category, buying_cost_cents, wholesale_price_cents,
			retail_price_cents, stock, min_stock_level, barcode, unit, active)
		VALUES ($1, $2, 'Sukari Delete IT 1kg', 'sugar', 14000, 15000, 16000, 5, 1, null, 'pcs', true)
	`, storeID, productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if err := s.DeleteProduct(ctx, storeID, productID); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	listed, err := s.ListProducts(ctx, storeID)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	for _, p := range listed {
		if p.ID == productID {
			t.Fatal("deactivated product still listed")
		}
	}

	byID, err := s.GetProductsByIDs(ctx, storeID, []string{productID})
	if err != nil {
		t.Fatalf("get by ids: %v", err)
	}
	if _, ok := byID[productID]; ok {
		t.Fatal("deactivated product still resolvable for cart lookup")
	}
}
