package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/printer"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/report"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/store"
)

func reportCacheKey(storeID string, r report.Range, groupBy string) string {
	return fmt.Sprintf("report:%s:%s:%s:%s:%s",
		storeID, r.Kind, r.From.Format("2006-01-02"), r.To.Format("2006-01-02"), groupBy)
}

// SalesReport builds (or serves from cache) the aggregate sales report for a
// store and time range, with an optional grouped breakdown.
func (s *Service) SalesReport(ctx context.Context, storeID, rangeKind string, from, to time.Time, groupBy string) (report.SalesReport, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	r, err := report.ResolveRange(rangeKind, from, to, s.now())
	if err != nil {
		return report.SalesReport{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	key := reportCacheKey(storeID, r, groupBy)
	if cached, ok, err := s.reports.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: report cache read failed key=%s: %v", key, err)
	} else if ok {
		return *cached, nil
	}

	txs, err := s.repo.ListTransactions(ctx, storeID, store.TransactionFilter{From: r.From, To: r.To})
	if err != nil {
		return report.SalesReport{}, err
	}

	rep := report.SalesReport{
		StoreID:     storeID,
		RangeKind:   r.Kind,
		From:        r.From,
		To:          r.To,
		Summary:     report.Summarize(txs),
		GeneratedAt: s.now().UTC(),
	}
	if groupBy != "" {
		rows, err := report.GroupBy(txs, groupBy)
		if err != nil {
			return report.SalesReport{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
		}
		rep.Groups = rows
		rep.GroupBy = groupBy
	}

	if err := s.reports.Set(ctx, key, &rep, reportCacheTTL); err != nil {
		log.Printf("[service] WARN: report cache write failed key=%s: %v", key, err)
	}
	return rep, nil
}

// SalesReportCSV renders the report as a downloadable CSV. When groupBy is
// empty it exports the raw transaction rows for the range.
func (s *Service) SalesReportCSV(ctx context.Context, storeID, rangeKind string, from, to time.Time, groupBy string) (fileName string, body string, err error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	r, err := report.ResolveRange(rangeKind, from, to, s.now())
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	txs, err := s.repo.ListTransactions(ctx, storeID, store.TransactionFilter{From: r.From, To: r.To})
	if err != nil {
		return "", "", err
	}

	if groupBy != "" {
		rows, err := report.GroupBy(txs, groupBy)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
		}
		return report.CSVFileName(groupBy, r), report.GroupCSV(groupBy, rows), nil
	}
	return report.CSVFileName("sales", r), report.TransactionsCSV(txs), nil
}

// BuildReceipt renders the plain-text receipt for a transaction.
func (s *Service) BuildReceipt(ctx context.Context, storeID, txID string) (domain.ReceiptResponse, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	tx, err := s.repo.GetTransaction(ctx, storeID, txID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	loc, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	settings, err := s.repo.GetStoreSettings(ctx, storeID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	return domain.ReceiptResponse{
		TransactionID: tx.ID,
		Text:          printer.Render(tx, settings, loc),
		FileName:      printer.FileName(tx.ID),
	}, nil
}

// PrintReceipt ships the receipt to the store's network printer. When the
// printer is disabled or unreachable the caller gets the rendered text back
// for a local save instead of an error.
func (s *Service) PrintReceipt(ctx context.Context, storeID, txID string) (domain.PrintReceiptResponse, error) {
	receipt, err := s.BuildReceipt(ctx, storeID, txID)
	if err != nil {
		return domain.PrintReceiptResponse{}, err
	}
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	settings, err := s.repo.GetStoreSettings(ctx, storeID)
	if err != nil {
		return domain.PrintReceiptResponse{}, err
	}

	resp := domain.PrintReceiptResponse{TransactionID: txID}
	if !settings.PrinterEnabled || settings.PrinterAddr == "" {
		resp.Fallback = receipt.FileName
		return resp, nil
	}

	if err := s.newPrinter(settings.PrinterAddr).Print(ctx, receipt.Text); err != nil {
		log.Printf("[service] WARN: receipt print failed tx=%s addr=%s: %v", txID, settings.PrinterAddr, err)
		resp.Fallback = receipt.FileName
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Printed = true
	s.logAudit(ctx, storeID, "receipt_print", "transaction", txID, "printed")
	return resp, nil
}

func (s *Service) GetStoreSettings(ctx context.Context, storeID string) (domain.StoreSettings, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	return s.repo.GetStoreSettings(ctx, storeID)
}

func (s *Service) UpdateStoreSettings(ctx context.Context, storeID string, settings domain.StoreSettings) (domain.StoreSettings, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.StoreSettings{}, err
	}
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	settings.BusinessName = strings.TrimSpace(settings.BusinessName)
	settings.CurrencyCode = strings.ToUpper(strings.TrimSpace(settings.CurrencyCode))
	if settings.CurrencyCode == "" {
		settings.CurrencyCode = "KES"
	}
	if settings.PrinterEnabled && strings.TrimSpace(settings.PrinterAddr) == "" {
		return domain.StoreSettings{}, store.ErrInvalidInput
	}

	saved, err := s.repo.UpdateStoreSettings(ctx, storeID, settings)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	s.logAudit(ctx, storeID, "settings_update", "store_settings", storeID,
		fmt.Sprintf("below_wholesale=%t,printer=%t", saved.AllowBelowWholesale, saved.PrinterEnabled))
	return saved, nil
}

// CreateAttendant registers a new attendant login. Admin accounts are only
// created via seeding or the database directly.
func (s *Service) CreateAttendant(ctx context.Context, req domain.AttendantCreateRequest) (domain.AttendantUser, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.AttendantUser{}, err
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || len(req.Password) < 8 {
		return domain.AttendantUser{}, store.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.AttendantUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	if err := s.repo.CreateUser(ctx, domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      "attendant",
		Active:    true,
		CreatedAt: now,
	}); err != nil {
		return domain.AttendantUser{}, err
	}

	s.logAudit(ctx, s.defaultStoreID, "attendant_create", "user", username, "")
	return domain.AttendantUser{Username: username, Role: "attendant", Active: true, CreatedAt: now}, nil
}

func (s *Service) ListAttendants(ctx context.Context) ([]domain.AttendantUser, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.AttendantUser, 0, len(users))
	for _, u := range users {
		result = append(result, domain.AttendantUser{
			Username:  u.Username,
			Role:      u.Role,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	return result, nil
}

// Authenticate verifies credentials and returns the account for token
// issuance.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.UserAccount, error) {
	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("invalid credentials")
	}
	if !user.Active {
		return domain.UserAccount{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return domain.UserAccount{}, fmt.Errorf("invalid credentials")
	}
	return user, nil
}
