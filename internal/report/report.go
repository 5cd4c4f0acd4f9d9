// Package report aggregates transaction history into sales summaries,
// grouped breakdowns and CSV exports. All functions are pure over the
// transaction slice so they can run against any backend and cache cleanly.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/pricing"
)

const (
	RangeToday  = "today"
	RangeWeek   = "week"
	RangeMonth  = "month"
	RangeCustom = "custom"
)

const (
	GroupItem      = "item"
	GroupCategory  = "category"
	GroupAttendant = "attendant"
	GroupPayment   = "payment"
)

type Range struct {
	Kind string
	From time.Time
	To   time.Time
}

// Label feeds the export filename, e.g. "2026-03-01_2026-03-14".
func (r Range) Label() string {
	if r.Kind != RangeCustom {
		return r.Kind
	}
	return r.From.Format("2006-01-02") + "_" + r.To.Format("2006-01-02")
}

// ResolveRange turns a named range into concrete bounds. Week starts on
// Monday, month on the first. Custom requires both bounds.
func ResolveRange(kind string, from, to time.Time, now time.Time) (Range, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch kind {
	case RangeToday, "":
		return Range{Kind: RangeToday, From: day, To: day.AddDate(0, 0, 1)}, nil
	case RangeWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return Range{Kind: RangeWeek, From: start, To: start.AddDate(0, 0, 7)}, nil
	case RangeMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Range{Kind: RangeMonth, From: start, To: start.AddDate(0, 1, 0)}, nil
	case RangeCustom:
		if from.IsZero() || to.IsZero() {
			return Range{}, fmt.Errorf("custom range requires both from and to")
		}
		if to.Before(from) {
			return Range{}, fmt.Errorf("custom range end precedes start")
		}
		return Range{Kind: RangeCustom, From: from, To: to}, nil
	default:
		return Range{}, fmt.Errorf("unknown range %q", kind)
	}
}

// SalesReport is the assembled response served by the reporting endpoint and
// stored in the report cache.
type SalesReport struct {
	StoreID     string     `json:"store_id"`
	RangeKind   string     `json:"range"`
	From        time.Time  `json:"from"`
	To          time.Time  `json:"to"`
	Summary     Summary    `json:"summary"`
	Groups      []GroupRow `json:"groups,omitempty"`
	GroupBy     string     `json:"group_by,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type Summary struct {
	TransactionCount int   `json:"transaction_count"`
	TotalSalesCents  int64 `json:"total_sales_cents"`
	TotalProfitCents int64 `json:"total_profit_cents"`
	AvgSaleCents     int64 `json:"avg_sale_cents"`
	ItemsSold        int   `json:"items_sold"`
	MissingCostLines int   `json:"missing_cost_lines"`
}

// countable reports whether a transaction belongs in sales figures. Voided and
// refunded sales are excluded entirely rather than netted out.
func countable(tx domain.Transaction) bool {
	return tx.Status == domain.TxStatusCompleted
}

func Summarize(txs []domain.Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		if !countable(tx) {
			continue
		}
		s.TransactionCount++
		s.TotalSalesCents += tx.TotalCents
		s.TotalProfitCents += pricing.Profit(tx.Items)
		for _, it := range tx.Items {
			s.ItemsSold += it.Qty
			if it.UnitBuyingCostCents <= 0 {
				s.MissingCostLines++
			}
		}
	}
	if s.TransactionCount > 0 {
		s.AvgSaleCents = s.TotalSalesCents / int64(s.TransactionCount)
	}
	return s
}

type GroupRow struct {
	Key         string `json:"key"`
	QtySold     int    `json:"qty_sold"`
	SalesCents  int64  `json:"sales_cents"`
	ProfitCents int64  `json:"profit_cents"`
	Count       int    `json:"count"`
}

// GroupBy breaks sales down along one dimension, ordered by sales descending.
func GroupBy(txs []domain.Transaction, dim string) ([]GroupRow, error) {
	switch dim {
	case GroupItem, GroupCategory, GroupAttendant, GroupPayment:
	default:
		return nil, fmt.Errorf("unknown group dimension %q", dim)
	}

	acc := make(map[string]*GroupRow)
	row := func(key string) *GroupRow {
		if key == "" {
			key = "(unknown)"
		}
		r, ok := acc[key]
		if !ok {
			r = &GroupRow{Key: key}
			acc[key] = r
		}
		return r
	}

	for _, tx := range txs {
		if !countable(tx) {
			continue
		}
		switch dim {
		case GroupAttendant, GroupPayment:
			key := tx.AttendantID
			if dim == GroupPayment {
				key = tx.PaymentMethod
			}
			r := row(key)
			r.Count++
			r.SalesCents += tx.TotalCents
			r.ProfitCents += pricing.Profit(tx.Items)
			for _, it := range tx.Items {
				r.QtySold += it.Qty
			}
		default:
			for _, it := range tx.Items {
				key := it.Name
				if dim == GroupCategory {
					key = it.Category
				}
				r := row(key)
				r.Count++
				r.QtySold += it.Qty
				r.SalesCents += int64(it.Qty) * it.UnitPriceCents
				r.ProfitCents += pricing.Profit([]domain.TransactionLine{it})
			}
		}
	}

	rows := make([]GroupRow, 0, len(acc))
	for _, r := range acc {
		rows = append(rows, *r)
	}
	sortRows(rows)
	return rows, nil
}

func sortRows(rows []GroupRow) {
	slices.SortFunc(rows, func(a, b GroupRow) int {
		if a.SalesCents != b.SalesCents {
			if a.SalesCents > b.SalesCents {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Key, b.Key)
	})
}

// Search matches transactions by exact ID or by an item name substring,
// case-insensitive. Voided and refunded transactions are searchable so the
// history can be audited.
func Search(txs []domain.Transaction, query string) []domain.Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return txs
	}
	var out []domain.Transaction
	for _, tx := range txs {
		if strings.Contains(strings.ToLower(tx.ID), q) {
			out = append(out, tx)
			continue
		}
		for _, it := range tx.Items {
			if strings.Contains(strings.ToLower(it.Name), q) {
				out = append(out, tx)
				break
			}
		}
	}
	return out
}
