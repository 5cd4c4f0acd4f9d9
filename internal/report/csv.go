package report

import (
	"fmt"
	"strings"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
)

// CSVFileName follows the <type>_report_<range>.csv convention used by the
// download endpoints.
func CSVFileName(kind string, r Range) string {
	return fmt.Sprintf("%s_report_%s.csv", kind, r.Label())
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func csvRow(fields ...string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = quote(f)
	}
	return strings.Join(quoted, ",")
}

// SummaryCSV exports the headline figures as a two-row sheet.
func SummaryCSV(s Summary, r Range) string {
	lines := []string{
		csvRow("range", "from", "to", "transactions", "items_sold", "total_sales", "total_profit", "avg_sale"),
		csvRow(r.Label(),
			r.From.Format("2006-01-02"),
			r.To.Format("2006-01-02"),
			fmt.Sprintf("%d", s.TransactionCount),
			fmt.Sprintf("%d", s.ItemsSold),
			money(s.TotalSalesCents),
			money(s.TotalProfitCents),
			money(s.AvgSaleCents)),
	}
	return strings.Join(lines, "\n") + "\n"
}

// GroupCSV exports a grouped breakdown, one row per key.
func GroupCSV(dim string, rows []GroupRow) string {
	lines := []string{csvRow(dim, "qty_sold", "sales", "profit", "count")}
	for _, row := range rows {
		lines = append(lines, csvRow(row.Key,
			fmt.Sprintf("%d", row.QtySold),
			money(row.SalesCents),
			money(row.ProfitCents),
			fmt.Sprintf("%d", row.Count)))
	}
	return strings.Join(lines, "\n") + "\n"
}

// TransactionsCSV exports the raw transaction log, one row per sale.
func TransactionsCSV(txs []domain.Transaction) string {
	lines := []string{csvRow("id", "date", "attendant", "payment_method", "status", "items", "subtotal", "discount", "loyalty", "total")}
	for _, tx := range txs {
		var items []string
		for _, it := range tx.Items {
			items = append(items, fmt.Sprintf("%s x%d", it.Name, it.Qty))
		}
		lines = append(lines, csvRow(
			tx.ID,
			tx.CreatedAt.Format("2006-01-02 15:04:05"),
			tx.AttendantID,
			tx.PaymentMethod,
			tx.Status,
			strings.Join(items, "; "),
			money(tx.SubtotalCents),
			money(tx.DiscountCents),
			money(tx.LoyaltyCents),
			money(tx.TotalCents)))
	}
	return strings.Join(lines, "\n") + "\n"
}
