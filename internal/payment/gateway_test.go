package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSimulatedMpesaCharge(t *testing.T) {
	g := NewSimulatedMpesa(0)
	res, err := g.ChargeMpesa(context.Background(), "0712345678", 15000)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if !strings.HasPrefix(res.Reference, "MPE") {
		t.Fatalf("reference = %q, want MPE prefix", res.Reference)
	}
	if res.AmountCents != 15000 {
		t.Fatalf("amount = %d, want 15000", res.AmountCents)
	}
}

func TestSimulatedMpesaRejectsBadPhone(t *testing.T) {
	g := NewSimulatedMpesa(0)
	for _, phone := range []string{"", "12345", "0812345678", "07123456ab", "254912345678"} {
		if _, err := g.ChargeMpesa(context.Background(), phone, 1000); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("phone %q: err = %v, want ErrInvalidPhone", phone, err)
		}
	}
}

func TestSimulatedMpesaRejectsZeroAmount(t *testing.T) {
	g := NewSimulatedMpesa(0)
	if _, err := g.ChargeMpesa(context.Background(), "254712345678", 0); !errors.Is(err, ErrDeclined) {
		t.Fatalf("err = %v, want ErrDeclined", err)
	}
}

func TestSimulatedMpesaHonorsContext(t *testing.T) {
	g := NewSimulatedMpesa(5 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.ChargeMpesa(ctx, "0712345678", 1000); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestManualReference(t *testing.T) {
	ref := ManualReference(time.Unix(0, 42))
	if ref != "MANUAL_42" {
		t.Fatalf("ref = %q, want MANUAL_42", ref)
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{"0712345678", "0112345678", "254712345678", "254112345678"}
	for _, p := range valid {
		if !ValidPhone(p) {
			t.Fatalf("ValidPhone(%q) = false, want true", p)
		}
	}
	invalid := []string{"", "07123", "255712345678", "07123456789"}
	for _, p := range invalid {
		if ValidPhone(p) {
			t.Fatalf("ValidPhone(%q) = true, want false", p)
		}
	}
}
