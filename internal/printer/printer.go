// Package printer renders plain-text receipts and ships them to a network
// thermal printer. Printers in the field speak raw text on TCP port 9100, so
// the client just dials and writes bytes.
package printer

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
)

// receiptWidth matches the 32-column thermal paper used at the counters.
const receiptWidth = 32

// FormatMoney renders cents as a currency string, e.g. "KES 1,234.50".
func FormatMoney(code string, cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	return fmt.Sprintf("%s %s%s.%02d", code, sign, groupThousands(whole), frac)
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func center(s string) string {
	if len(s) >= receiptWidth {
		return s
	}
	pad := (receiptWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func kv(label, value string) string {
	gap := receiptWidth - len(label) - len(value)
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

func rule() string {
	return strings.Repeat("-", receiptWidth)
}

// Render produces the plain-text receipt body for a completed sale.
func Render(tx domain.Transaction, settings domain.StoreSettings, store domain.StoreLocation) string {
	cur := settings.CurrencyCode
	if cur == "" {
		cur = "KES"
	}
	var b strings.Builder
	line := func(s string) { b.WriteString(s); b.WriteByte('\n') }

	if settings.BusinessName != "" {
		line(center(settings.BusinessName))
	}
	if store.Name != "" {
		line(center(store.Name))
	}
	if store.Address != "" {
		line(center(store.Address))
	}
	if settings.ReceiptHeader != "" {
		line(center(settings.ReceiptHeader))
	}
	line(rule())
	line(kv("Receipt", tx.ID))
	line(kv("Date", tx.CreatedAt.Format("2006-01-02 15:04")))
	line(kv("Served by", tx.AttendantID))
	line(rule())
	for _, it := range tx.Items {
		line(it.Name)
		line(kv(fmt.Sprintf("  %d x %s", it.Qty, FormatMoney(cur, it.UnitPriceCents)),
			FormatMoney(cur, int64(it.Qty)*it.UnitPriceCents)))
	}
	line(rule())
	line(kv("Subtotal", FormatMoney(cur, tx.SubtotalCents)))
	if tx.DiscountCents > 0 {
		line(kv("Discount", "-"+FormatMoney(cur, tx.DiscountCents)))
	}
	if tx.LoyaltyCents > 0 {
		line(kv(fmt.Sprintf("Loyalty (%d pts)", tx.LoyaltyPointsUsed), "-"+FormatMoney(cur, tx.LoyaltyCents)))
	}
	line(kv("TOTAL", FormatMoney(cur, tx.TotalCents)))
	line(rule())
	switch tx.PaymentMethod {
	case domain.PayCash:
		line(kv("Cash", FormatMoney(cur, tx.CashReceivedCents)))
		line(kv("Change", FormatMoney(cur, tx.ChangeCents)))
	case domain.PaySplit, domain.PayHirePurchase:
		for _, sp := range tx.PaymentSplits {
			label := strings.ToUpper(sp.Method[:1]) + sp.Method[1:]
			line(kv(label, FormatMoney(cur, sp.AmountCents)))
			if sp.Reference != "" {
				line("  ref " + sp.Reference)
			}
		}
	default:
		line(kv(strings.ToUpper(tx.PaymentMethod[:1])+tx.PaymentMethod[1:], FormatMoney(cur, tx.TotalCents)))
		for _, sp := range tx.PaymentSplits {
			if sp.Reference != "" {
				line("  ref " + sp.Reference)
			}
		}
	}
	if tx.Status != domain.TxStatusCompleted {
		line(rule())
		line(center("*** " + strings.ToUpper(tx.Status) + " ***"))
	}
	line(rule())
	if settings.ReceiptFooter != "" {
		line(center(settings.ReceiptFooter))
	}
	line(center("Thank you!"))
	return b.String()
}

// FileName is the download name offered when a receipt is saved instead of
// printed.
func FileName(txID string) string {
	return "receipt_" + txID + ".txt"
}

// Client sends rendered receipts to a raw TCP printer.
type Client struct {
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewClient(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &net.Dialer{}
	return &Client{addr: addr, timeout: timeout, dial: d.DialContext}
}

// Print writes the receipt text to the printer. A form feed trails the body so
// the printer cuts the paper.
func (c *Client) Print(ctx context.Context, text string) error {
	if c.addr == "" {
		return fmt.Errorf("printer address not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	conn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial printer %s: %w", c.addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write([]byte(text + "\n\x0c")); err != nil {
		return fmt.Errorf("write to printer %s: %w", c.addr, err)
	}
	log.Printf("[printer] sent %d bytes to %s", len(text), c.addr)
	return nil
}
