// Package payment abstracts external tender collection. Checkout only talks
// to the Gateway interface so the simulated M-Pesa backend can be swapped for
// a real Daraja integration without touching the service layer.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var (
	ErrDeclined     = errors.New("payment declined")
	ErrInvalidPhone = errors.New("invalid payment phone number")
)

// Result describes a settled mobile money charge.
type Result struct {
	Reference   string
	Phone       string
	AmountCents int64
	SettledAt   time.Time
}

type Gateway interface {
	// ChargeMpesa pushes a payment prompt and blocks until the charge
	// settles, fails, or ctx is done.
	ChargeMpesa(ctx context.Context, phone string, amountCents int64) (Result, error)
}

// SimulatedMpesa settles every well-formed charge after a fixed delay. It
// stands in for the real STK push flow in development and tests.
type SimulatedMpesa struct {
	Delay time.Duration
	now   func() time.Time
}

func NewSimulatedMpesa(delay time.Duration) *SimulatedMpesa {
	return &SimulatedMpesa{Delay: delay, now: time.Now}
}

func (g *SimulatedMpesa) ChargeMpesa(ctx context.Context, phone string, amountCents int64) (Result, error) {
	if !ValidPhone(phone) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	if amountCents <= 0 {
		return Result{}, fmt.Errorf("%w: non-positive amount", ErrDeclined)
	}
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	settled := g.now()
	ref := fmt.Sprintf("MPE%d", settled.UnixNano())
	log.Printf("[payment] simulated mpesa charge settled phone=%s amount_cents=%d ref=%s", phone, amountCents, ref)
	return Result{Reference: ref, Phone: phone, AmountCents: amountCents, SettledAt: settled}, nil
}

// ManualReference labels a tender recorded by hand, such as an M-Pesa code the
// attendant typed in from the customer's confirmation SMS.
func ManualReference(now time.Time) string {
	return fmt.Sprintf("MANUAL_%d", now.UnixNano())
}

// ValidPhone accepts Kenyan mobile formats: 07XXXXXXXX, 01XXXXXXXX or the
// international 2547/2541 prefix.
func ValidPhone(phone string) bool {
	p := strings.TrimSpace(phone)
	switch {
	case len(p) == 10 && (strings.HasPrefix(p, "07") || strings.HasPrefix(p, "01")):
	case len(p) == 12 && (strings.HasPrefix(p, "2547") || strings.HasPrefix(p, "2541")):
	default:
		return false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
