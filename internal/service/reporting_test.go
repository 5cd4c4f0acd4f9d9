package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/report"
	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/store"
)

func checkoutOnce(t *testing.T, svc *Service, productID string, qty int, cash int64) domain.Transaction {
	t.Helper()
	resp, err := svc.Checkout(attendantCtx(), domain.CheckoutRequest{
		StoreID:           "main-store",
		PaymentMethod:     domain.PayCash,
		CashReceivedCents: cash,
		Lines:             []domain.CartLine{{ProductID: productID, Qty: qty}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return resp.Transaction
}

func TestSalesReportSummaryAndGroups(t *testing.T) {
	svc := newTestService()
	p := createProduct(t, svc, "Notebook", 5000, 4000, 3000, 20)
	checkoutOnce(t, svc, p.ID, 2, 10000)
	checkoutOnce(t, svc, p.ID, 1, 5000)

	rep, err := svc.SalesReport(attendantCtx(), "main-store", report.RangeToday, time.Time{}, time.Time{}, report.GroupItem)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Summary.TransactionCount != 2 {
		t.Fatalf("count = %d, want 2", rep.Summary.TransactionCount)
	}
	if rep.Summary.TotalSalesCents != 15000 {
		t.Fatalf("sales = %d, want 15000", rep.Summary.TotalSalesCents)
	}
	if rep.Summary.TotalProfitCents != 6000 {
		t.Fatalf("profit = %d, want 6000", rep.Summary.TotalProfitCents)
	}
	if len(rep.Groups) != 1 || rep.Groups[0].Key != "Notebook" || rep.Groups[0].QtySold != 3 {
		t.Fatalf("groups = %+v", rep.Groups)
	}
}

func TestSalesReportExcludesVoided(t *testing.T) {
	svc := newTestService()
	p := createProduct(t, svc, "Pencil", 1000, 800, 600, 20)
	tx := checkoutOnce(t, svc, p.ID, 1, 1000)
	checkoutOnce(t, svc, p.ID, 1, 1000)

	if _, err := svc.VoidTransaction(adminCtx(), domain.VoidTransactionRequest{
		TransactionID: tx.ID,
		StoreID:       "main-store",
		Reason:        "test",
	}); err != nil {
		t.Fatalf("void: %v", err)
	}

	rep, err := svc.SalesReport(attendantCtx(), "main-store", report.RangeToday, time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Summary.TransactionCount != 1 {
		t.Fatalf("count = %d, want 1 after void", rep.Summary.TransactionCount)
	}
}

func TestSalesReportCSVDownload(t *testing.T) {
	svc := newTestService()
	p := createProduct(t, svc, "Ruler", 1500, 1200, 1000, 20)
	checkoutOnce(t, svc, p.ID, 1, 1500)

	name, body, err := svc.SalesReportCSV(attendantCtx(), "main-store", report.RangeToday, time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if name != "sales_report_today.csv" {
		t.Fatalf("filename = %q", name)
	}
	if !strings.Contains(body, "Ruler x1") {
		t.Fatalf("csv body missing line:\n%s", body)
	}
}

func TestBuildReceiptContainsTotals(t *testing.T) {
	svc := newTestService()
	p := createProduct(t, svc, "Honey Jar", 45000, 40000, 35000, 5)
	tx := checkoutOnce(t, svc, p.ID, 1, 50000)

	receipt, err := svc.BuildReceipt(attendantCtx(), "main-store", tx.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	for _, want := range []string{"Honey Jar", "KES 450.00", tx.ID, "Msuper Mini-Mart"} {
		if !strings.Contains(receipt.Text, want) {
			t.Fatalf("receipt missing %q:\n%s", want, receipt.Text)
		}
	}
}

type stubPrinter struct {
	fail    bool
	printed []string
}

func (p *stubPrinter) Print(_ context.Context, text string) error {
	if p.fail {
		return context.DeadlineExceeded
	}
	p.printed = append(p.printed, text)
	return nil
}

func TestPrintReceiptFallsBackWhenPrinterDown(t *testing.T) {
	svc := newTestService()
	stub := &stubPrinter{fail: true}
	svc.newPrinter = func(string) ReceiptPrinter { return stub }

	if _, err := svc.UpdateStoreSettings(adminCtx(), "main-store", domain.StoreSettings{
		BusinessName:   "Msuper Mini-Mart",
		CurrencyCode:   "KES",
		PrinterEnabled: true,
		PrinterAddr:    "192.168.0.50:9100",
	}); err != nil {
		t.Fatalf("settings: %v", err)
	}

	p := createProduct(t, svc, "Spices", 3000, 2500, 2000, 5)
	tx := checkoutOnce(t, svc, p.ID, 1, 3000)

	resp, err := svc.PrintReceipt(attendantCtx(), "main-store", tx.ID)
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if resp.Printed {
		t.Fatal("expected print failure")
	}
	if resp.Fallback == "" {
		t.Fatal("expected save fallback filename")
	}
}

func TestPrintReceiptSendsToPrinter(t *testing.T) {
	svc := newTestService()
	stub := &stubPrinter{}
	svc.newPrinter = func(string) ReceiptPrinter { return stub }

	if _, err := svc.UpdateStoreSettings(adminCtx(), "main-store", domain.StoreSettings{
		BusinessName:   "Msuper Mini-Mart",
		CurrencyCode:   "KES",
		PrinterEnabled: true,
		PrinterAddr:    "192.168.0.50:9100",
	}); err != nil {
		t.Fatalf("settings: %v", err)
	}

	p := createProduct(t, svc, "Toothpaste", 9500, 8500, 7500, 5)
	tx := checkoutOnce(t, svc, p.ID, 1, 10000)

	resp, err := svc.PrintReceipt(attendantCtx(), "main-store", tx.ID)
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if !resp.Printed || len(stub.printed) != 1 {
		t.Fatalf("resp = %+v printed = %d", resp, len(stub.printed))
	}
}

func TestSearchTransactionsByItemName(t *testing.T) {
	svc := newTestService()
	p := createProduct(t, svc, "Avocado Oil", 25000, 22000, 20000, 5)
	tx := checkoutOnce(t, svc, p.ID, 1, 25000)

	results, err := svc.SearchTransactions(attendantCtx(), "main-store", "avocado", store.TransactionFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != tx.ID {
		t.Fatalf("results = %+v", results)
	}
}

func TestCreateAttendantAndAuthenticate(t *testing.T) {
	svc := newTestService()
	if _, err := svc.CreateAttendant(adminCtx(), domain.AttendantCreateRequest{
		Username: "GraceW",
		Password: "duka-pass-99",
	}); err != nil {
		t.Fatalf("create attendant: %v", err)
	}

	user, err := svc.Authenticate(context.Background(), "gracew", "duka-pass-99")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Role != "attendant" {
		t.Fatalf("role = %s", user.Role)
	}

	if _, err := svc.Authenticate(context.Background(), "gracew", "wrong"); err == nil {
		t.Fatal("expected failure for wrong password")
	}
}
