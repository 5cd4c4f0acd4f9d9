package report

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
)

func tx(id, attendant, method, status string, total int64, items ...domain.TransactionLine) domain.Transaction {
	var subtotal int64
	for _, it := range items {
		subtotal += int64(it.Qty) * it.UnitPriceCents
	}
	return domain.Transaction{
		ID:            id,
		AttendantID:   attendant,
		PaymentMethod: method,
		Status:        status,
		Items:         items,
		SubtotalCents: subtotal,
		TotalCents:    total,
		CreatedAt:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func line(name, category string, qty int, price, cost int64) domain.TransactionLine {
	return domain.TransactionLine{ProductID: name, Name: name, Category: category, Qty: qty, UnitPriceCents: price, UnitBuyingCostCents: cost}
}

func sampleTxs() []domain.Transaction {
	return []domain.Transaction{
		tx("t1", "mary", domain.PayCash, domain.TxStatusCompleted, 30000,
			line("Unga 2kg", "Flour", 2, 15000, 12000)),
		tx("t2", "john", domain.PayMpesa, domain.TxStatusCompleted, 5000,
			line("Soda 500ml", "Drinks", 1, 5000, 0)),
		tx("t3", "mary", domain.PayCash, domain.TxStatusVoided, 99999,
			line("Unga 2kg", "Flour", 1, 15000, 12000)),
	}
}

func TestSummarizeExcludesVoided(t *testing.T) {
	s := Summarize(sampleTxs())
	if s.TransactionCount != 2 {
		t.Fatalf("count = %d, want 2", s.TransactionCount)
	}
	if s.TotalSalesCents != 35000 {
		t.Fatalf("sales = %d, want 35000", s.TotalSalesCents)
	}
	if s.TotalProfitCents != 6000 {
		t.Fatalf("profit = %d, want 6000", s.TotalProfitCents)
	}
	if s.AvgSaleCents != 17500 {
		t.Fatalf("avg = %d, want 17500", s.AvgSaleCents)
	}
	if s.ItemsSold != 3 {
		t.Fatalf("items sold = %d, want 3", s.ItemsSold)
	}
	if s.MissingCostLines != 1 {
		t.Fatalf("missing cost lines = %d, want 1", s.MissingCostLines)
	}
}

func TestGroupByItemSortedBySales(t *testing.T) {
	rows, err := GroupBy(sampleTxs(), GroupItem)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Key != "Unga 2kg" || rows[0].SalesCents != 30000 || rows[0].QtySold != 2 {
		t.Fatalf("top row = %+v", rows[0])
	}
	if rows[1].Key != "Soda 500ml" {
		t.Fatalf("second row = %+v", rows[1])
	}
}

func TestGroupByAttendant(t *testing.T) {
	rows, err := GroupBy(sampleTxs(), GroupAttendant)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if rows[0].Key != "mary" || rows[0].SalesCents != 30000 || rows[0].Count != 1 {
		t.Fatalf("top row = %+v", rows[0])
	}
}

func TestGroupByUnknownDimension(t *testing.T) {
	if _, err := GroupBy(sampleTxs(), "weather"); err == nil {
		t.Fatal("expected error for unknown dimension")
	}
}

func TestSearchByIDAndItemName(t *testing.T) {
	txs := sampleTxs()
	byID := Search(txs, "T2")
	if len(byID) != 1 || byID[0].ID != "t2" {
		t.Fatalf("search by id = %+v", byID)
	}
	// IDs match as free text like names do, so a fragment is enough.
	byPartialID := Search(txs, "t")
	if len(byPartialID) != 3 {
		t.Fatalf("search by partial id returned %d, want 3", len(byPartialID))
	}
	byName := Search(txs, "unga")
	if len(byName) != 2 {
		t.Fatalf("search by name returned %d, want 2 (voided included)", len(byName))
	}
}

func TestResolveRangeWeekStartsMonday(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC) // a Saturday
	r, err := ResolveRange(RangeWeek, time.Time{}, time.Time{}, now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.From.Weekday() != time.Monday {
		t.Fatalf("week start = %v, want Monday", r.From.Weekday())
	}
	if !r.From.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week start = %v", r.From)
	}
}

func TestResolveRangeCustomValidation(t *testing.T) {
	now := time.Now()
	if _, err := ResolveRange(RangeCustom, time.Time{}, time.Time{}, now); err == nil {
		t.Fatal("expected error for missing bounds")
	}
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := ResolveRange(RangeCustom, from, to, now); err == nil {
		t.Fatal("expected error for inverted bounds")
	}
}

func TestCSVFileName(t *testing.T) {
	r := Range{Kind: RangeCustom,
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)}
	if got := CSVFileName("sales", r); got != "sales_report_2026-03-01_2026-03-14.csv" {
		t.Fatalf("filename = %q", got)
	}
	if got := CSVFileName("sales", Range{Kind: RangeToday}); got != "sales_report_today.csv" {
		t.Fatalf("filename = %q", got)
	}
}

func TestTransactionsCSVParses(t *testing.T) {
	out := TransactionsCSV(sampleTxs())
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want header + 3", len(records))
	}
	if records[1][0] != "t1" || records[1][9] != "300.00" {
		t.Fatalf("first row = %v", records[1])
	}
}

func TestGroupCSVQuotesFields(t *testing.T) {
	rows := []GroupRow{{Key: `Milk "Fresh" 1L`, QtySold: 1, SalesCents: 6500, Count: 1}}
	out := GroupCSV(GroupItem, rows)
	if !strings.Contains(out, `"Milk ""Fresh"" 1L"`) {
		t.Fatalf("quotes not escaped:\n%s", out)
	}
}
