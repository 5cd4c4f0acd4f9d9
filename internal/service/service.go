package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/cache"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/payment"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/pricing"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/printer"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/report"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/store"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/xid"
)

var (
	ErrStoreNotActive      = errors.New("store location is not active")
	ErrBelowWholesale      = errors.New("price below wholesale not allowed")
	ErrCreditLimitExceeded = errors.New("customer credit limit exceeded")
	ErrSplitMismatch       = errors.New("payment splits do not cover the total")
	ErrCustomerRequired    = errors.New("customer required for this payment method")
)

// splitToleranceCents absorbs rounding when several tenders are keyed in by
// hand. Anything further off than one cent is rejected.
const splitToleranceCents = 1

const reportCacheTTL = time.Minute

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ReceiptPrinter is satisfied by printer.Client and stubbed in tests.
type ReceiptPrinter interface {
	Print(ctx context.Context, text string) error
}

type Service struct {
	repo           store.Repository
	gateway        payment.Gateway
	reports        cache.ReportCache
	defaultStoreID string
	newPrinter     func(addr string) ReceiptPrinter
	now            func() time.Time
}

func New(repo store.Repository, gateway payment.Gateway, reports cache.ReportCache, defaultStoreID string) *Service {
	if defaultStoreID == "" {
		defaultStoreID = "main-store"
	}
	if reports == nil {
		reports = cache.NoopReportCache{}
	}

	return &Service{
		repo:           repo,
		gateway:        gateway,
		reports:        reports,
		defaultStoreID: defaultStoreID,
		newPrinter: func(addr string) ReceiptPrinter {
			return printer.NewClient(addr, 5*time.Second)
		},
		now: time.Now,
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return nil
}

// activeStore resolves the store ID and refuses sales against inactive or
// suspended locations.
func (s *Service) activeStore(ctx context.Context, storeID string) (domain.StoreLocation, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	loc, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return domain.StoreLocation{}, err
	}
	if loc.Status != domain.StoreActive {
		return domain.StoreLocation{}, fmt.Errorf("%w: %s is %s", ErrStoreNotActive, loc.ID, loc.Status)
	}
	return loc, nil
}

func (s *Service) CreateStore(ctx context.Context, req domain.StoreCreateRequest) (domain.StoreLocation, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.StoreLocation{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.StoreLocation{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateStore(ctx, domain.StoreLocation{
		Name:      req.Name,
		Address:   strings.TrimSpace(req.Address),
		Phone:     strings.TrimSpace(req.Phone),
		ManagerID: req.ManagerID,
		Status:    domain.StoreActive,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.StoreLocation{}, err
	}

	s.logAudit(ctx, created.ID, "store_create", "store", created.ID, fmt.Sprintf("name=%s", created.Name))
	return created, nil
}

func (s *Service) ListStores(ctx context.Context) ([]domain.StoreLocation, error) {
	return s.repo.ListStores(ctx)
}

func (s *Service) SetStoreStatus(ctx context.Context, storeID, status string) (domain.StoreLocation, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.StoreLocation{}, err
	}
	updated, err := s.repo.SetStoreStatus(ctx, storeID, status)
	if err != nil {
		return domain.StoreLocation{}, err
	}
	s.logAudit(ctx, storeID, "store_status", "store", storeID, fmt.Sprintf("status=%s", status))
	return updated, nil
}

func (s *Service) ListProducts(ctx context.Context, storeID string) ([]domain.Product, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	return s.repo.ListProducts(ctx, storeID)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.RetailPriceCents < 1 || req.BuyingCostCents < 0 || req.WholesalePriceCents < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.InitialStock < 0 || req.MinStockLevel < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, req.StoreID, domain.Product{
		Name:                req.Name,
		Category:            req.Category,
		BuyingCostCents:     req.BuyingCostCents,
		WholesalePriceCents: req.WholesalePriceCents,
		RetailPriceCents:    req.RetailPriceCents,
		Stock:               req.InitialStock,
		MinStockLevel:       req.MinStockLevel,
		Barcode:             strings.TrimSpace(req.Barcode),
		Unit:                req.Unit,
		Active:              true,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, req.StoreID, "product_create", "product", created.ID, fmt.Sprintf("name=%s,retail=%d,stock=%d", created.Name, created.RetailPriceCents, created.Stock))
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, storeID, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	existing, err := s.repo.GetProduct(ctx, storeID, productID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Category = category
	}
	if req.BuyingCostCents != nil {
		if *req.BuyingCostCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.BuyingCostCents = *req.BuyingCostCents
	}
	if req.WholesalePriceCents != nil {
		if *req.WholesalePriceCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.WholesalePriceCents = *req.WholesalePriceCents
	}
	if req.RetailPriceCents != nil {
		if *req.RetailPriceCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.RetailPriceCents = *req.RetailPriceCents
	}
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.MinStockLevel = *req.MinStockLevel
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.Unit != nil {
		updated.Unit = *req.Unit
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, storeID, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, storeID, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,retail=%d", saved.Active, saved.RetailPriceCents))
	return saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, storeID, productID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	if err := s.repo.DeleteProduct(ctx, storeID, productID); err != nil {
		return err
	}
	s.logAudit(ctx, storeID, "product_delete", "product", productID, "deactivated")
	return nil
}

func (s *Service) RestockProduct(ctx context.Context, storeID, productID string, qty int) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	if qty < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}
	updated, err := s.repo.AdjustStock(ctx, storeID, productID, qty)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, storeID, "product_restock", "product", productID, fmt.Sprintf("qty=%d,stock=%d", qty, updated.Stock))
	return updated, nil
}

// LowStock lists active products at or below their minimum stock level.
func (s *Service) LowStock(ctx context.Context, storeID string) (domain.LowStockResponse, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	products, err := s.repo.ListProducts(ctx, storeID)
	if err != nil {
		return domain.LowStockResponse{}, err
	}

	resp := domain.LowStockResponse{
		StoreID:     storeID,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
		Items:       make([]domain.LowStockItem, 0, 8),
	}
	for _, p := range products {
		if p.MinStockLevel < 1 || p.Stock > p.MinStockLevel {
			continue
		}
		resp.Items = append(resp.Items, domain.LowStockItem{
			ProductID:     p.ID,
			Name:          p.Name,
			Category:      p.Category,
			Stock:         p.Stock,
			MinStockLevel: p.MinStockLevel,
		})
	}
	return resp, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CreditLimitCents < 0 {
		return domain.Customer{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		StoreID:          req.StoreID,
		Name:             req.Name,
		Phone:            strings.TrimSpace(req.Phone),
		Email:            strings.TrimSpace(req.Email),
		Address:          strings.TrimSpace(req.Address),
		CreditLimitCents: req.CreditLimitCents,
		CreatedAt:        s.now().UTC(),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, req.StoreID, "customer_create", "customer", created.ID, fmt.Sprintf("name=%s", created.Name))
	return created, nil
}

func (s *Service) GetCustomer(ctx context.Context, storeID, customerID string) (domain.Customer, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	return s.repo.GetCustomer(ctx, storeID, customerID)
}

func (s *Service) ListCustomers(ctx context.Context, storeID string) ([]domain.Customer, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	return s.repo.ListCustomers(ctx, storeID)
}

func (s *Service) UpdateCustomer(ctx context.Context, storeID, customerID string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	existing, err := s.repo.GetCustomer(ctx, storeID, customerID)
	if err != nil {
		return domain.Customer{}, err
	}

	updated := existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.CreditLimitCents != nil {
		if *req.CreditLimitCents < 0 {
			return domain.Customer{}, store.ErrInvalidInput
		}
		if err := requireAdmin(ctx); err != nil {
			return domain.Customer{}, err
		}
		updated.CreditLimitCents = *req.CreditLimitCents
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, storeID, "customer_update", "customer", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return saved, nil
}

// ValidateCartAddition checks a single line before the attendant commits it to
// the cart: product active, stock available, price override acceptable.
func (s *Service) ValidateCartAddition(ctx context.Context, req domain.CartValidationRequest) (domain.CartValidationResponse, error) {
	loc, err := s.activeStore(ctx, req.StoreID)
	if err != nil {
		return domain.CartValidationResponse{}, err
	}
	if req.Qty < 1 {
		return domain.CartValidationResponse{OK: false, Reason: "quantity must be at least 1"}, nil
	}

	p, err := s.repo.GetProduct(ctx, loc.ID, req.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CartValidationResponse{OK: false, Reason: "product not found"}, nil
		}
		return domain.CartValidationResponse{}, err
	}
	if !p.Active {
		return domain.CartValidationResponse{OK: false, Reason: "product is inactive"}, nil
	}
	if p.Stock < req.Qty {
		return domain.CartValidationResponse{OK: false, Reason: "insufficient stock", AvailableStock: p.Stock}, nil
	}
	if req.PriceCents > 0 && req.PriceCents < p.WholesalePriceCents {
		settings, err := s.repo.GetStoreSettings(ctx, loc.ID)
		if err != nil {
			return domain.CartValidationResponse{}, err
		}
		if !settings.AllowBelowWholesale {
			return domain.CartValidationResponse{OK: false, Reason: "price below wholesale not allowed", AvailableStock: p.Stock}, nil
		}
	}
	return domain.CartValidationResponse{OK: true, AvailableStock: p.Stock}, nil
}

func normalizeLines(lines []domain.CartLine) []domain.CartLine {
	merged := make([]domain.CartLine, 0, len(lines))
	index := map[string]int{}
	for _, ln := range lines {
		if ln.ProductID == "" || ln.Qty < 1 {
			continue
		}
		key := ln.ProductID
		if ln.PriceCents > 0 {
			key = fmt.Sprintf("%s@%d", ln.ProductID, ln.PriceCents)
		}
		if i, ok := index[key]; ok {
			merged[i].Qty += ln.Qty
			continue
		}
		index[key] = len(merged)
		merged = append(merged, ln)
	}
	return merged
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PayCash, domain.PayMpesa, domain.PaySplit, domain.PayHirePurchase, domain.PayCredit:
		return true
	}
	return false
}

func isSplitMethodSupported(method string) bool {
	switch method {
	case domain.PayCash, domain.PayMpesa, domain.PayCredit:
		return true
	}
	return false
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	loc, err := s.activeStore(ctx, req.StoreID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	req.StoreID = loc.ID
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PayCash
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = xid.New("idem")
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, store.ErrInvalidInput
	}

	lines := normalizeLines(req.Lines)
	if len(lines) == 0 {
		return domain.CheckoutResponse{}, store.ErrInvalidInput
	}

	if existing, err := s.repo.GetTransactionByIdempotencyKey(ctx, req.StoreID, req.IdempotencyKey); err == nil {
		return domain.CheckoutResponse{Transaction: existing, Duplicate: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.CheckoutResponse{}, err
	}

	settings, err := s.repo.GetStoreSettings(ctx, req.StoreID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	ids := make([]string, 0, len(lines))
	for _, ln := range lines {
		ids = append(ids, ln.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, req.StoreID, ids)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	items := make([]domain.TransactionLine, 0, len(lines))
	quoteLines := make([]pricing.LineInput, 0, len(lines))
	need := map[string]int{}
	for _, ln := range lines {
		p, exists := products[ln.ProductID]
		if !exists {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: product %s", store.ErrNotFound, ln.ProductID)
		}
		need[ln.ProductID] += ln.Qty
		if p.Stock < need[ln.ProductID] {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: %s", store.ErrInsufficientStock, p.Name)
		}
		unitPrice := p.RetailPriceCents
		if ln.PriceCents > 0 {
			if ln.PriceCents < p.WholesalePriceCents && !settings.AllowBelowWholesale {
				return domain.CheckoutResponse{}, fmt.Errorf("%w: %s", ErrBelowWholesale, p.Name)
			}
			unitPrice = ln.PriceCents
		}
		items = append(items, domain.TransactionLine{
			ProductID:           p.ID,
			Name:                p.Name,
			Category:            p.Category,
			Qty:                 ln.Qty,
			UnitPriceCents:      unitPrice,
			UnitBuyingCostCents: p.BuyingCostCents,
		})
		quoteLines = append(quoteLines, pricing.LineInput{
			Qty:                 ln.Qty,
			UnitPriceCents:      unitPrice,
			UnitBuyingCostCents: p.BuyingCostCents,
		})
	}

	var customer *domain.Customer
	if req.CustomerID != "" {
		c, err := s.repo.GetCustomer(ctx, req.StoreID, req.CustomerID)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}
		customer = &c
	}
	pointsAvailable := 0
	if customer != nil {
		pointsAvailable = customer.LoyaltyPoints
	}
	if req.LoyaltyPointsUsed > 0 && customer == nil {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: loyalty redemption", ErrCustomerRequired)
	}

	quote := pricing.Compute(quoteLines, req.Discount, req.LoyaltyPointsUsed, pointsAvailable)

	now := s.now().UTC()
	tx := domain.Transaction{
		ID:                xid.New("tx"),
		StoreID:           req.StoreID,
		AttendantID:       req.AttendantID,
		IdempotencyKey:    req.IdempotencyKey,
		Items:             items,
		SubtotalCents:     quote.SubtotalCents,
		DiscountCents:     quote.DiscountCents,
		LoyaltyCents:      quote.LoyaltyCents,
		LoyaltyPointsUsed: quote.PointsUsed,
		TotalCents:        quote.TotalCents,
		PaymentMethod:     req.PaymentMethod,
		Status:            domain.TxStatusCompleted,
		CreatedAt:         now,
	}
	if customer != nil {
		tx.CustomerID = customer.ID
	}
	if tx.AttendantID == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			tx.AttendantID = actor.Username
		}
	}

	var creditCents int64
	var hp *domain.HirePurchase

	switch req.PaymentMethod {
	case domain.PayCash:
		if req.CashReceivedCents < quote.TotalCents {
			return domain.CheckoutResponse{}, store.ErrInvalidInput
		}
		tx.CashReceivedCents = req.CashReceivedCents
		tx.ChangeCents = req.CashReceivedCents - quote.TotalCents
		tx.PaymentSplits = []domain.PaymentSplit{{Method: domain.PayCash, AmountCents: quote.TotalCents}}

	case domain.PayMpesa:
		if quote.TotalCents > 0 {
			res, err := s.gateway.ChargeMpesa(ctx, req.PaymentPhone, quote.TotalCents)
			if err != nil {
				return domain.CheckoutResponse{}, err
			}
			tx.PaymentSplits = []domain.PaymentSplit{{Method: domain.PayMpesa, AmountCents: quote.TotalCents, Reference: res.Reference}}
		}

	case domain.PaySplit:
		if len(req.PaymentSplits) < 2 {
			return domain.CheckoutResponse{}, store.ErrInvalidInput
		}
		var splitTotal int64
		for i, split := range req.PaymentSplits {
			if !isSplitMethodSupported(split.Method) || split.AmountCents < 1 {
				return domain.CheckoutResponse{}, store.ErrInvalidInput
			}
			if split.Method == domain.PayCredit {
				creditCents += split.AmountCents
			}
			if split.Method == domain.PayMpesa && strings.TrimSpace(split.Reference) == "" {
				req.PaymentSplits[i].Reference = payment.ManualReference(now)
			}
			splitTotal += split.AmountCents
		}
		if abs64(splitTotal-quote.TotalCents) > splitToleranceCents {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: got %d want %d", ErrSplitMismatch, splitTotal, quote.TotalCents)
		}
		if creditCents > 0 {
			if customer == nil {
				return domain.CheckoutResponse{}, fmt.Errorf("%w: credit split", ErrCustomerRequired)
			}
			if customer.OutstandingBalanceCents+creditCents > customer.CreditLimitCents {
				return domain.CheckoutResponse{}, ErrCreditLimitExceeded
			}
		}
		tx.PaymentSplits = req.PaymentSplits

	case domain.PayCredit:
		if customer == nil {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: credit sale", ErrCustomerRequired)
		}
		if customer.OutstandingBalanceCents+quote.TotalCents > customer.CreditLimitCents {
			return domain.CheckoutResponse{}, ErrCreditLimitExceeded
		}
		creditCents = quote.TotalCents
		tx.PaymentSplits = []domain.PaymentSplit{{Method: domain.PayCredit, AmountCents: quote.TotalCents}}

	case domain.PayHirePurchase:
		if customer == nil {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: hire purchase", ErrCustomerRequired)
		}
		if req.DownPaymentCents < 1 || req.DownPaymentCents >= quote.TotalCents {
			return domain.CheckoutResponse{}, store.ErrInvalidInput
		}
		if req.InstallmentCents < 1 {
			return domain.CheckoutResponse{}, store.ErrInvalidInput
		}
		if req.Period != domain.PeriodWeekly && req.Period != domain.PeriodMonthly {
			return domain.CheckoutResponse{}, store.ErrInvalidInput
		}
		remaining := quote.TotalCents - req.DownPaymentCents
		if customer.OutstandingBalanceCents+remaining > customer.CreditLimitCents {
			return domain.CheckoutResponse{}, ErrCreditLimitExceeded
		}
		// The down payment settles in cash; the remainder is owed on the
		// customer ledger like any other credit tender.
		creditCents = remaining
		tx.PaymentSplits = []domain.PaymentSplit{
			{Method: domain.PayCash, AmountCents: req.DownPaymentCents},
			{Method: domain.PayCredit, AmountCents: remaining},
		}
		hp = s.buildHirePurchase(req, tx, remaining, now)
	}

	created, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	if quote.PointsUsed > 0 && customer != nil {
		if _, err := s.repo.AdjustLoyaltyPoints(ctx, req.StoreID, customer.ID, -quote.PointsUsed); err != nil {
			log.Printf("[service] WARN: failed to deduct loyalty points customer=%s tx=%s: %v", customer.ID, created.ID, err)
		}
	}
	if creditCents > 0 && customer != nil {
		if _, err := s.repo.AddOutstandingBalance(ctx, req.StoreID, customer.ID, creditCents); err != nil {
			log.Printf("[service] WARN: failed to record outstanding balance customer=%s tx=%s: %v", customer.ID, created.ID, err)
		}
	}

	var savedHP *domain.HirePurchase
	if hp != nil {
		hp.TransactionID = created.ID
		saved, err := s.repo.CreateHirePurchase(ctx, *hp)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}
		savedHP = &saved
	}

	s.invalidateReports(ctx, req.StoreID)
	s.logAudit(ctx, req.StoreID, "checkout", "transaction", created.ID,
		fmt.Sprintf("total=%d,payment=%s,discount=%d,loyalty_points=%d", created.TotalCents, created.PaymentMethod, created.DiscountCents, created.LoyaltyPointsUsed))

	return domain.CheckoutResponse{Transaction: created, HirePurchase: savedHP}, nil
}

// buildHirePurchase derives the repayment schedule. The remaining balance is
// owed by the customer but the full quantity leaves the shelf at checkout.
func (s *Service) buildHirePurchase(req domain.CheckoutRequest, tx domain.Transaction, remaining int64, now time.Time) *domain.HirePurchase {
	installments := int(math.Ceil(float64(remaining) / float64(req.InstallmentCents)))
	next := now
	end := now
	switch req.Period {
	case domain.PeriodWeekly:
		next = now.AddDate(0, 0, 7)
		end = now.AddDate(0, 0, 7*installments)
	case domain.PeriodMonthly:
		next = now.AddDate(0, 1, 0)
		end = now.AddDate(0, installments, 0)
	}

	return &domain.HirePurchase{
		ID:                    xid.New("hp"),
		StoreID:               req.StoreID,
		CustomerID:            req.CustomerID,
		Items:                 tx.Items,
		TotalCents:            tx.TotalCents,
		DownPaymentCents:      req.DownPaymentCents,
		RemainingBalanceCents: remaining,
		InstallmentCents:      req.InstallmentCents,
		Period:                req.Period,
		StartDate:             now,
		NextPaymentDate:       next,
		EndDate:               end,
		Status:                domain.HirePurchaseActive,
		Payments:              []domain.HirePurchasePayment{},
	}
}

func (s *Service) GetTransaction(ctx context.Context, storeID, txID string) (domain.Transaction, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	return s.repo.GetTransaction(ctx, storeID, txID)
}

func (s *Service) ListTransactions(ctx context.Context, storeID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 200
	}
	return s.repo.ListTransactions(ctx, storeID, f)
}

// SearchTransactions matches by transaction ID or item name.
func (s *Service) SearchTransactions(ctx context.Context, storeID, query string, f store.TransactionFilter) ([]domain.Transaction, error) {
	txs, err := s.ListTransactions(ctx, storeID, f)
	if err != nil {
		return nil, err
	}
	return report.Search(txs, query), nil
}

// reverseSideEffects puts back loyalty points and credit balance consumed by a
// sale that is being voided or refunded.
func (s *Service) reverseSideEffects(ctx context.Context, tx domain.Transaction) {
	if tx.CustomerID == "" {
		return
	}
	if tx.LoyaltyPointsUsed > 0 {
		if _, err := s.repo.AdjustLoyaltyPoints(ctx, tx.StoreID, tx.CustomerID, tx.LoyaltyPointsUsed); err != nil {
			log.Printf("[service] WARN: failed to restore loyalty points customer=%s tx=%s: %v", tx.CustomerID, tx.ID, err)
		}
	}
	var creditCents int64
	for _, split := range tx.PaymentSplits {
		if split.Method == domain.PayCredit {
			creditCents += split.AmountCents
		}
	}
	if creditCents > 0 {
		if _, err := s.repo.AddOutstandingBalance(ctx, tx.StoreID, tx.CustomerID, -creditCents); err != nil {
			log.Printf("[service] WARN: failed to reverse outstanding balance customer=%s tx=%s: %v", tx.CustomerID, tx.ID, err)
		}
	}
}

func (s *Service) VoidTransaction(ctx context.Context, req domain.VoidTransactionRequest) (domain.Transaction, error) {
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	if strings.TrimSpace(req.Reason) == "" {
		return domain.Transaction{}, store.ErrInvalidInput
	}

	voided, err := s.repo.VoidTransaction(ctx, req.StoreID, req.TransactionID, req.Reason)
	if err != nil {
		return domain.Transaction{}, err
	}
	s.reverseSideEffects(ctx, voided)
	s.invalidateReports(ctx, req.StoreID)
	s.logAudit(ctx, req.StoreID, "void_transaction", "transaction", voided.ID, req.Reason)
	return voided, nil
}

func (s *Service) RefundTransaction(ctx context.Context, req domain.RefundTransactionRequest) (domain.Transaction, error) {
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	if strings.TrimSpace(req.Reason) == "" {
		return domain.Transaction{}, store.ErrInvalidInput
	}

	refunded, err := s.repo.RefundTransaction(ctx, req.StoreID, req.TransactionID, req.Reason)
	if err != nil {
		return domain.Transaction{}, err
	}
	s.reverseSideEffects(ctx, refunded)
	s.invalidateReports(ctx, req.StoreID)
	s.logAudit(ctx, req.StoreID, "refund_transaction", "transaction", refunded.ID, req.Reason)
	return refunded, nil
}

func (s *Service) HoldCart(ctx context.Context, req domain.HoldCartRequest) (domain.HeldCart, error) {
	loc, err := s.activeStore(ctx, req.StoreID)
	if err != nil {
		return domain.HeldCart{}, err
	}
	lines := normalizeLines(req.Lines)
	if len(lines) == 0 {
		return domain.HeldCart{}, store.ErrInvalidInput
	}
	if req.AttendantID == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			req.AttendantID = actor.Username
		}
	}

	held, err := s.repo.CreateHeldCart(ctx, domain.HeldCart{
		StoreID:           loc.ID,
		AttendantID:       req.AttendantID,
		CustomerID:        req.CustomerID,
		Note:              strings.TrimSpace(req.Note),
		Lines:             lines,
		Discount:          req.Discount,
		LoyaltyPointsUsed: req.LoyaltyPointsUsed,
		HeldAt:            s.now().UTC(),
	})
	if err != nil {
		return domain.HeldCart{}, err
	}
	s.logAudit(ctx, loc.ID, "cart_hold", "held_cart", held.ID, fmt.Sprintf("lines=%d", len(held.Lines)))
	return held, nil
}

func (s *Service) ListHeldCarts(ctx context.Context, storeID string) ([]domain.HeldCart, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	return s.repo.ListHeldCarts(ctx, storeID)
}

func (s *Service) ResumeHeldCart(ctx context.Context, storeID, cartID string) (domain.HeldCart, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	held, err := s.repo.PopHeldCart(ctx, storeID, cartID)
	if err != nil {
		return domain.HeldCart{}, err
	}
	s.logAudit(ctx, storeID, "cart_resume", "held_cart", held.ID, fmt.Sprintf("lines=%d", len(held.Lines)))
	return held, nil
}

func (s *Service) DiscardHeldCart(ctx context.Context, storeID, cartID string) error {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	held, err := s.repo.PopHeldCart(ctx, storeID, cartID)
	if err != nil {
		return err
	}
	s.logAudit(ctx, storeID, "cart_discard", "held_cart", held.ID, "discarded")
	return nil
}

func (s *Service) GetHirePurchase(ctx context.Context, storeID, hpID string) (domain.HirePurchase, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	return s.repo.GetHirePurchase(ctx, storeID, hpID)
}

func (s *Service) ListHirePurchases(ctx context.Context, storeID string) ([]domain.HirePurchase, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	return s.repo.ListHirePurchases(ctx, storeID)
}

func (s *Service) RecordHirePurchasePayment(ctx context.Context, storeID, hpID string, req domain.HirePurchasePaymentRequest) (domain.HirePurchase, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	if req.AmountCents < 1 {
		return domain.HirePurchase{}, store.ErrInvalidInput
	}
	if req.Method == "" {
		req.Method = domain.PayCash
	}
	if req.Method != domain.PayCash && req.Method != domain.PayMpesa {
		return domain.HirePurchase{}, store.ErrInvalidInput
	}
	now := s.now().UTC()
	if req.Method == domain.PayMpesa && strings.TrimSpace(req.Reference) == "" {
		req.Reference = payment.ManualReference(now)
	}

	hp, err := s.repo.GetHirePurchase(ctx, storeID, hpID)
	if err != nil {
		return domain.HirePurchase{}, err
	}

	updated, err := s.repo.RecordHirePurchasePayment(ctx, storeID, hpID, domain.HirePurchasePayment{
		ID:          xid.New("hpp"),
		AmountCents: req.AmountCents,
		Method:      req.Method,
		Reference:   req.Reference,
		PaidAt:      now,
	})
	if err != nil {
		return domain.HirePurchase{}, err
	}

	// A hire purchase installment settles part of the customer's ledger.
	if hp.CustomerID != "" {
		if _, err := s.repo.AddOutstandingBalance(ctx, storeID, hp.CustomerID, -req.AmountCents); err != nil {
			log.Printf("[service] WARN: failed to reduce outstanding balance customer=%s hp=%s: %v", hp.CustomerID, hpID, err)
		}
	}

	s.logAudit(ctx, storeID, "hire_purchase_payment", "hire_purchase", hpID,
		fmt.Sprintf("amount=%d,method=%s,remaining=%d", req.AmountCents, req.Method, updated.RemainingBalanceCents))
	return updated, nil
}

func (s *Service) logAudit(ctx context.Context, storeID string, action string, entityType string, entityID string, detail string) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		StoreID:       storeID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, storeID string, limit int) ([]domain.AuditLog, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, storeID, limit)
}

func (s *Service) invalidateReports(ctx context.Context, storeID string) {
	if err := s.reports.Invalidate(ctx, storeID); err != nil {
		log.Printf("[service] WARN: failed to invalidate report cache store=%s: %v", storeID, err)
	}
}
