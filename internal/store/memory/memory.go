package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/store"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	stores           map[string]domain.StoreLocation
	productsByStore  map[string]map[string]domain.Product
	customersByStore map[string]map[string]domain.Customer
	txByStore        map[string]map[string]*domain.Transaction
	txByIdemByStore  map[string]map[string]*domain.Transaction
	hpByStore        map[string]map[string]*domain.HirePurchase
	heldByStore      map[string]map[string]domain.HeldCart
	settingsByStore  map[string]domain.StoreSettings
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_ATTENDANT_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	attendantPwd := envOr("SEED_ATTENDANT_PASSWORD", "attendant123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_ATTENDANT_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_ATTENDANT_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"attendant", attendantPwd, "attendant"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
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

func New() *Store {
	return &Store{
		stores:           map[string]domain.StoreLocation{},
		productsByStore:  map[string]map[string]domain.Product{},
		customersByStore: map[string]map[string]domain.Customer{},
		txByStore:        map[string]map[string]*domain.Transaction{},
		txByIdemByStore:  map[string]map[string]*domain.Transaction{},
		hpByStore:        map[string]map[string]*domain.HirePurchase{},
		heldByStore:      map[string]map[string]domain.HeldCart{},
		settingsByStore:  map[string]domain.StoreSettings{},
		auditLogs:        make([]domain.AuditLog, 0, 128),
		usersByUsername:  seedUsers(),
	}
}

// NewSeeded returns a store with one location and a small Kenyan duka catalog
// for dev/demo mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	s.stores["main-store"] = domain.StoreLocation{
		ID:        "main-store",
		Name:      "Main Branch",
		Address:   "Moi Avenue, Nairobi",
		Status:    domain.StoreActive,
		CreatedAt: now,
	}
	s.settingsByStore["main-store"] = domain.StoreSettings{
		BusinessName:        "Msuper Mini-Mart",
		ReceiptFooter:       "Karibu tena",
		CurrencyCode:        "KES",
		AllowBelowWholesale: false,
	}

	products := []domain.Product{
		{Name: "Unga wa Ngano 2kg", Category: "Flour", BuyingCostCents: 12500, WholesalePriceCents: 14000, RetailPriceCents: 15500, Stock: 80, MinStockLevel: 10, Unit: "pcs", Active: true},
		{Name: "Sukari 1kg", Category: "Grocery", BuyingCostCents: 13000, WholesalePriceCents: 14500, RetailPriceCents: 16000, Stock: 60, MinStockLevel: 10, Unit: "pcs", Active: true},
		{Name: "Maziwa Fresh 500ml", Category: "Dairy", BuyingCostCents: 4500, WholesalePriceCents: 5000, RetailPriceCents: 6000, Stock: 120, MinStockLevel: 20, Unit: "pcs", Active: true},
		{Name: "Mkate Tawa", Category: "Bakery", BuyingCostCents: 5000, WholesalePriceCents: 5500, RetailPriceCents: 6500, Stock: 40, MinStockLevel: 8, Unit: "pcs", Active: true},
		{Name: "Soda 500ml", Category: "Drinks", BuyingCostCents: 3500, WholesalePriceCents: 4000, RetailPriceCents: 5000, Stock: 150, MinStockLevel: 24, Unit: "pcs", Active: true},
		{Name: "Sabuni Bar", Category: "Household", BuyingCostCents: 6000, WholesalePriceCents: 7000, RetailPriceCents: 8500, Stock: 50, MinStockLevel: 10, Unit: "pcs", Active: true},
		{Name: "Mafuta ya Kupikia 1L", Category: "Grocery", BuyingCostCents: 24000, WholesalePriceCents: 26500, RetailPriceCents: 29000, Stock: 30, MinStockLevel: 6, Unit: "pcs", Active: true},
		{Name: "Chai Majani 250g", Category: "Grocery", BuyingCostCents: 9500, WholesalePriceCents: 10500, RetailPriceCents: 12000, Stock: 45, MinStockLevel: 8, Unit: "pcs", Active: true},
	}
	byID := map[string]domain.Product{}
	for _, p := range products {
		p.ID = uuid.NewString()
		byID[p.ID] = p
	}
	s.productsByStore["main-store"] = byID
	s.customersByStore["main-store"] = map[string]domain.Customer{}
	s.txByStore["main-store"] = map[string]*domain.Transaction{}
	s.txByIdemByStore["main-store"] = map[string]*domain.Transaction{}
	s.hpByStore["main-store"] = map[string]*domain.HirePurchase{}
	s.heldByStore["main-store"] = map[string]domain.HeldCart{}

	return s
}

// ensureStoreLocked initializes the per-store collections. Callers hold mu.
func (s *Store) ensureStoreLocked(storeID string) {
	if _, ok := s.productsByStore[storeID]; !ok {
		s.productsByStore[storeID] = map[string]domain.Product{}
	}
	if _, ok := s.customersByStore[storeID]; !ok {
		s.customersByStore[storeID] = map[string]domain.Customer{}
	}
	if _, ok := s.txByStore[storeID]; !ok {
		s.txByStore[storeID] = map[string]*domain.Transaction{}
	}
	if _, ok := s.txByIdemByStore[storeID]; !ok {
		s.txByIdemByStore[storeID] = map[string]*domain.Transaction{}
	}
	if _, ok := s.hpByStore[storeID]; !ok {
		s.hpByStore[storeID] = map[string]*domain.HirePurchase{}
	}
	if _, ok := s.heldByStore[storeID]; !ok {
		s.heldByStore[storeID] = map[string]domain.HeldCart{}
	}
}

func (s *Store) storeExistsLocked(storeID string) bool {
	_, ok := s.stores[storeID]
	return ok
}

func (s *Store) CreateStore(_ context.Context, loc domain.StoreLocation) (domain.StoreLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(loc.Name) == "" {
		return domain.StoreLocation{}, store.ErrInvalidInput
	}
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	if _, exists := s.stores[loc.ID]; exists {
		return domain.StoreLocation{}, store.ErrInvalidInput
	}
	if loc.Status == "" {
		loc.Status = domain.StoreActive
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	s.stores[loc.ID] = loc
	s.ensureStoreLocked(loc.ID)
	s.settingsByStore[loc.ID] = domain.StoreSettings{
		BusinessName: loc.Name,
		CurrencyCode: "KES",
	}
	return loc, nil
}

func (s *Store) GetStore(_ context.Context, storeID string) (domain.StoreLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.stores[storeID]
	if !ok {
		return domain.StoreLocation{}, store.ErrStoreNotFound
	}
	return loc, nil
}

func (s *Store) ListStores(_ context.Context) ([]domain.StoreLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locs := make([]domain.StoreLocation, 0, len(s.stores))
	for _, loc := range s.stores {
		locs = append(locs, loc)
	}
	slices.SortFunc(locs, func(a, b domain.StoreLocation) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return locs, nil
}

func (s *Store) SetStoreStatus(_ context.Context, storeID, status string) (domain.StoreLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.stores[storeID]
	if !ok {
		return domain.StoreLocation{}, store.ErrStoreNotFound
	}
	switch status {
	case domain.StoreActive, domain.StoreInactive, domain.StoreSuspended:
	default:
		return domain.StoreLocation{}, store.ErrInvalidInput
	}
	loc.Status = status
	s.stores[storeID] = loc
	return loc, nil
}

func (s *Store) CreateProduct(_ context.Context, storeID string, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Product{}, store.ErrStoreNotFound
	}
	if strings.TrimSpace(p.Name) == "" || p.RetailPriceCents < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.BuyingCostCents < 0 || p.WholesalePriceCents < 0 || p.Stock < 0 || p.MinStockLevel < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.ensureStoreLocked(storeID)
	if _, exists := s.productsByStore[storeID][p.ID]; exists {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.Unit == "" {
		p.Unit = "pcs"
	}
	p.Active = true
	s.productsByStore[storeID][p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, storeID, productID string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Product{}, store.ErrStoreNotFound
	}
	p, ok := s.productsByStore[storeID][productID]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, storeID string, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return nil, store.ErrStoreNotFound
	}
	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.productsByStore[storeID][id]; ok && p.Active {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) ListProducts(_ context.Context, storeID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return nil, store.ErrStoreNotFound
	}
	products := make([]domain.Product, 0, len(s.productsByStore[storeID]))
	for _, p := range s.productsByStore[storeID] {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) UpdateProduct(_ context.Context, storeID string, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Product{}, store.ErrStoreNotFound
	}
	existing, ok := s.productsByStore[storeID][p.ID]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	if strings.TrimSpace(p.Name) == "" || p.RetailPriceCents < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}
	p.Stock = existing.Stock
	s.productsByStore[storeID][p.ID] = p
	return p, nil
}

func (s *Store) DeleteProduct(_ context.Context, storeID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return store.ErrStoreNotFound
	}
	p, ok := s.productsByStore[storeID][productID]
	if !ok {
		return store.ErrNotFound
	}
	p.Active = false
	s.productsByStore[storeID][productID] = p
	return nil
}

func (s *Store) AdjustStock(_ context.Context, storeID, productID string, delta int) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Product{}, store.ErrStoreNotFound
	}
	p, ok := s.productsByStore[storeID][productID]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return domain.Product{}, store.ErrInsufficientStock
	}
	p.Stock += delta
	s.productsByStore[storeID][productID] = p
	return p, nil
}

func (s *Store) CreateCustomer(_ context.Context, c domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(c.StoreID) {
		return domain.Customer{}, store.ErrStoreNotFound
	}
	if strings.TrimSpace(c.Name) == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	if c.CreditLimitCents < 0 {
		return domain.Customer{}, store.ErrInvalidInput
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.ensureStoreLocked(c.StoreID)
	if _, exists := s.customersByStore[c.StoreID][c.ID]; exists {
		return domain.Customer{}, store.ErrInvalidInput
	}
	s.customersByStore[c.StoreID][c.ID] = c
	return c, nil
}

func (s *Store) GetCustomer(_ context.Context, storeID, customerID string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Customer{}, store.ErrStoreNotFound
	}
	c, ok := s.customersByStore[storeID][customerID]
	if !ok {
		return domain.Customer{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCustomers(_ context.Context, storeID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return nil, store.ErrStoreNotFound
	}
	customers := make([]domain.Customer, 0, len(s.customersByStore[storeID]))
	for _, c := range s.customersByStore[storeID] {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) UpdateCustomer(_ context.Context, c domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(c.StoreID) {
		return domain.Customer{}, store.ErrStoreNotFound
	}
	existing, ok := s.customersByStore[c.StoreID][c.ID]
	if !ok {
		return domain.Customer{}, store.ErrNotFound
	}
	if strings.TrimSpace(c.Name) == "" || c.CreditLimitCents < 0 {
		return domain.Customer{}, store.ErrInvalidInput
	}
	c.OutstandingBalanceCents = existing.OutstandingBalanceCents
	c.LoyaltyPoints = existing.LoyaltyPoints
	c.CreatedAt = existing.CreatedAt
	s.customersByStore[c.StoreID][c.ID] = c
	return c, nil
}

func (s *Store) AdjustLoyaltyPoints(_ context.Context, storeID, customerID string, delta int) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Customer{}, store.ErrStoreNotFound
	}
	c, ok := s.customersByStore[storeID][customerID]
	if !ok {
		return domain.Customer{}, store.ErrNotFound
	}
	if c.LoyaltyPoints+delta < 0 {
		return domain.Customer{}, store.ErrInvalidInput
	}
	c.LoyaltyPoints += delta
	s.customersByStore[storeID][customerID] = c
	return c, nil
}

func (s *Store) AddOutstandingBalance(_ context.Context, storeID, customerID string, deltaCents int64) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Customer{}, store.ErrStoreNotFound
	}
	c, ok := s.customersByStore[storeID][customerID]
	if !ok {
		return domain.Customer{}, store.ErrNotFound
	}
	if c.OutstandingBalanceCents+deltaCents < 0 {
		return domain.Customer{}, store.ErrInvalidInput
	}
	c.OutstandingBalanceCents += deltaCents
	s.customersByStore[storeID][customerID] = c
	return c, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(tx.StoreID) {
		return domain.Transaction{}, store.ErrStoreNotFound
	}
	if len(tx.Items) == 0 {
		return domain.Transaction{}, store.ErrInvalidInput
	}
	s.ensureStoreLocked(tx.StoreID)

	if tx.IdempotencyKey != "" {
		if existing, ok := s.txByIdemByStore[tx.StoreID][tx.IdempotencyKey]; ok {
			return *cloneTransaction(existing), nil
		}
	}

	products := s.productsByStore[tx.StoreID]
	for _, item := range tx.Items {
		if item.Qty < 1 {
			return domain.Transaction{}, store.ErrInvalidInput
		}
		p, exists := products[item.ProductID]
		if !exists || !p.Active {
			return domain.Transaction{}, store.ErrNotFound
		}
		if p.Stock < item.Qty {
			return domain.Transaction{}, store.ErrInsufficientStock
		}
	}

	for _, item := range tx.Items {
		p := products[item.ProductID]
		p.Stock -= item.Qty
		products[item.ProductID] = p
	}

	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}

	txCopy := cloneTransaction(&tx)
	s.txByStore[tx.StoreID][tx.ID] = txCopy
	if tx.IdempotencyKey != "" {
		s.txByIdemByStore[tx.StoreID][tx.IdempotencyKey] = txCopy
	}
	return *cloneTransaction(txCopy), nil
}

func (s *Store) GetTransaction(_ context.Context, storeID, txID string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Transaction{}, store.ErrStoreNotFound
	}
	tx, ok := s.txByStore[storeID][txID]
	if !ok {
		return domain.Transaction{}, store.ErrNotFound
	}
	return *cloneTransaction(tx), nil
}

func (s *Store) GetTransactionByIdempotencyKey(_ context.Context, storeID, key string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Transaction{}, store.ErrStoreNotFound
	}
	tx, ok := s.txByIdemByStore[storeID][key]
	if !ok {
		return domain.Transaction{}, store.ErrNotFound
	}
	return *cloneTransaction(tx), nil
}

func (s *Store) ListTransactions(_ context.Context, storeID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return nil, store.ErrStoreNotFound
	}
	result := make([]domain.Transaction, 0, 64)
	for _, tx := range s.txByStore[storeID] {
		if !f.From.IsZero() && tx.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !tx.CreatedAt.Before(f.To) {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		result = append(result, *cloneTransaction(tx))
	}
	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (s *Store) VoidTransaction(_ context.Context, storeID, txID, reason string) (domain.Transaction, error) {
	return s.reverseTransaction(storeID, txID, reason, domain.TxStatusVoided)
}

func (s *Store) RefundTransaction(_ context.Context, storeID, txID, reason string) (domain.Transaction, error) {
	return s.reverseTransaction(storeID, txID, reason, domain.TxStatusRefunded)
}

// reverseTransaction flips a completed sale to voided or refunded and puts the
// sold quantities back on the shelf.
func (s *Store) reverseTransaction(storeID, txID, reason, status string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return domain.Transaction{}, store.ErrStoreNotFound
	}
	tx, ok := s.txByStore[storeID][txID]
	if !ok {
		return domain.Transaction{}, store.ErrNotFound
	}
	if tx.Status != domain.TxStatusCompleted {
		return domain.Transaction{}, store.ErrInvalidInput
	}

	products := s.productsByStore[storeID]
	for _, item := range tx.Items {
		if p, exists := products[item.ProductID]; exists {
			p.Stock += item.Qty
			products[item.ProductID] = p
		}
	}

	now := time.Now().UTC()
	tx.Status = status
	tx.StatusReason = reason
	if status == domain.TxStatusVoided {
		tx.VoidedAt = &now
	} else {
		tx.RefundedAt = &now
	}
	return *cloneTransaction(tx), nil
}

func (s *Store) CreateHirePurchase(_ context.Context, hp domain.HirePurchase) (domain.HirePurchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(hp.StoreID) {
		return domain.HirePurchase{}, store.ErrStoreNotFound
	}
	if hp.CustomerID == "" || hp.TransactionID == "" || len(hp.Items) == 0 {
		return domain.HirePurchase{}, store.ErrInvalidInput
	}
	if hp.ID == "" {
		hp.ID = xid.New("hp")
	}
	s.ensureStoreLocked(hp.StoreID)
	if _, exists := s.hpByStore[hp.StoreID][hp.ID]; exists {
		return domain.HirePurchase{}, store.ErrInvalidInput
	}
	if hp.Status == "" {
		hp.Status = domain.HirePurchaseActive
	}
	saved := cloneHirePurchase(&hp)
	s.hpByStore[hp.StoreID][hp.ID] = saved
	return *cloneHirePurchase(saved), nil
}

func (s *Store) GetHirePurchase(_ context.Context, storeID, hpID string) (domain.HirePurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return domain.HirePurchase{}, store.ErrStoreNotFound
	}
	hp, ok := s.hpByStore[storeID][hpID]
	if !ok {
		return domain.HirePurchase{}, store.ErrNotFound
	}
	return *cloneHirePurchase(hp), nil
}

func (s *Store) ListHirePurchases(_ context.Context, storeID string) ([]domain.HirePurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return nil, store.ErrStoreNotFound
	}
	result := make([]domain.HirePurchase, 0, len(s.hpByStore[storeID]))
	for _, hp := range s.hpByStore[storeID] {
		result = append(result, *cloneHirePurchase(hp))
	}
	slices.SortFunc(result, func(a, b domain.HirePurchase) int {
		if a.StartDate.Equal(b.StartDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.StartDate.After(b.StartDate) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) RecordHirePurchasePayment(_ context.Context, storeID, hpID string, p domain.HirePurchasePayment) (domain.HirePurchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return domain.HirePurchase{}, store.ErrStoreNotFound
	}
	hp, ok := s.hpByStore[storeID][hpID]
	if !ok {
		return domain.HirePurchase{}, store.ErrNotFound
	}
	if hp.Status != domain.HirePurchaseActive {
		return domain.HirePurchase{}, store.ErrInvalidInput
	}
	if p.AmountCents < 1 || p.AmountCents > hp.RemainingBalanceCents {
		return domain.HirePurchase{}, store.ErrInvalidInput
	}
	if p.ID == "" {
		p.ID = xid.New("hpp")
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}

	hp.Payments = append(hp.Payments, p)
	hp.RemainingBalanceCents -= p.AmountCents
	if hp.RemainingBalanceCents == 0 {
		hp.Status = domain.HirePurchaseCompleted
	} else {
		switch hp.Period {
		case domain.PeriodWeekly:
			hp.NextPaymentDate = p.PaidAt.AddDate(0, 0, 7)
		case domain.PeriodMonthly:
			hp.NextPaymentDate = p.PaidAt.AddDate(0, 1, 0)
		}
	}
	return *cloneHirePurchase(hp), nil
}

func (s *Store) CreateHeldCart(_ context.Context, held domain.HeldCart) (domain.HeldCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(held.StoreID) {
		return domain.HeldCart{}, store.ErrStoreNotFound
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
	s.ensureStoreLocked(held.StoreID)
	s.heldByStore[held.StoreID][held.ID] = cloneHeldCart(held)
	return cloneHeldCart(held), nil
}

func (s *Store) ListHeldCarts(_ context.Context, storeID string) ([]domain.HeldCart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return nil, store.ErrStoreNotFound
	}
	result := make([]domain.HeldCart, 0, len(s.heldByStore[storeID]))
	for _, held := range s.heldByStore[storeID] {
		result = append(result, cloneHeldCart(held))
	}
	slices.SortFunc(result, func(a, b domain.HeldCart) int {
		if a.HeldAt.Equal(b.HeldAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.HeldAt.After(b.HeldAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) PopHeldCart(_ context.Context, storeID, cartID string) (domain.HeldCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return domain.HeldCart{}, store.ErrStoreNotFound
	}
	held, ok := s.heldByStore[storeID][cartID]
	if !ok {
		return domain.HeldCart{}, store.ErrNotFound
	}
	delete(s.heldByStore[storeID], cartID)
	return cloneHeldCart(held), nil
}

func (s *Store) GetStoreSettings(_ context.Context, storeID string) (domain.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.storeExistsLocked(storeID) {
		return domain.StoreSettings{}, store.ErrStoreNotFound
	}
	settings, ok := s.settingsByStore[storeID]
	if !ok {
		return domain.StoreSettings{CurrencyCode: "KES"}, nil
	}
	return settings, nil
}

func (s *Store) UpdateStoreSettings(_ context.Context, storeID string, settings domain.StoreSettings) (domain.StoreSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.storeExistsLocked(storeID) {
		return domain.StoreSettings{}, store.ErrStoreNotFound
	}
	if strings.TrimSpace(settings.CurrencyCode) == "" {
		settings.CurrencyCode = "KES"
	}
	s.settingsByStore[storeID] = settings
	return settings, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, storeID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if storeID != "" && entry.StoreID != storeID {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "attendant"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneTransaction(src *domain.Transaction) *domain.Transaction {
	if src == nil {
		return nil
	}
	dup := *src
	dupItems := make([]domain.TransactionLine, len(src.Items))
	copy(dupItems, src.Items)
	dup.Items = dupItems
	dupSplits := make([]domain.PaymentSplit, len(src.PaymentSplits))
	copy(dupSplits, src.PaymentSplits)
	dup.PaymentSplits = dupSplits
	return &dup
}

func cloneHirePurchase(src *domain.HirePurchase) *domain.HirePurchase {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.TransactionLine, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	payments := make([]domain.HirePurchasePayment, len(src.Payments))
	copy(payments, src.Payments)
	dup.Payments = payments
	return &dup
}

func cloneHeldCart(src domain.HeldCart) domain.HeldCart {
	dup := src
	lines := make([]domain.CartLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}
