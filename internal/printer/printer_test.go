package printer

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "KES 0.00"},
		{50, "KES 0.50"},
		{123450, "KES 1,234.50"},
		{100000000, "KES 1,000,000.00"},
		{-2500, "KES -25.00"},
	}
	for _, c := range cases {
		if got := FormatMoney("KES", c.cents); got != c.want {
			t.Fatalf("FormatMoney(%d) = %q, want %q", c.cents, got, c.want)
		}
	}
}

func sampleTx() domain.Transaction {
	return domain.Transaction{
		ID:          "tx-1",
		AttendantID: "mary",
		Items: []domain.TransactionLine{
			{ProductID: "p1", Name: "Unga 2kg", Qty: 2, UnitPriceCents: 15000},
		},
		SubtotalCents:     30000,
		DiscountCents:     1000,
		TotalCents:        29000,
		PaymentMethod:     domain.PayCash,
		CashReceivedCents: 30000,
		ChangeCents:       1000,
		Status:            domain.TxStatusCompleted,
		CreatedAt:         time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestRenderReceipt(t *testing.T) {
	text := Render(sampleTx(), domain.StoreSettings{
		BusinessName:  "Msuper POS",
		ReceiptFooter: "Karibu tena",
		CurrencyCode:  "KES",
	}, domain.StoreLocation{Name: "Main Branch"})

	for _, want := range []string{"Msuper POS", "Main Branch", "Unga 2kg", "2 x KES 150.00", "KES 300.00", "Discount", "TOTAL", "Change", "Karibu tena", "tx-1"} {
		if !strings.Contains(text, want) {
			t.Fatalf("receipt missing %q:\n%s", want, text)
		}
	}
}

func TestRenderVoidedBanner(t *testing.T) {
	tx := sampleTx()
	tx.Status = domain.TxStatusVoided
	text := Render(tx, domain.StoreSettings{}, domain.StoreLocation{})
	if !strings.Contains(text, "*** VOIDED ***") {
		t.Fatalf("receipt missing voided banner:\n%s", text)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("tx-9"); got != "receipt_tx-9.txt" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestClientPrint(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		n, _ := conn.Read(buf)
		received <- string(buf[:n])
	}()

	c := NewClient(ln.Addr().String(), time.Second)
	if err := c.Print(context.Background(), "hello receipt"); err != nil {
		t.Fatalf("print: %v", err)
	}
	select {
	case got := <-received:
		if !strings.Contains(got, "hello receipt") {
			t.Fatalf("printer received %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("printer never received data")
	}
}

func TestClientPrintUnreachable(t *testing.T) {
	c := NewClient("127.0.0.1:1", 200*time.Millisecond)
	if err := c.Print(context.Background(), "x"); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestClientPrintNoAddress(t *testing.T) {
	c := NewClient("", time.Second)
	if err := c.Print(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty address")
	}
}
