package pricing

import (
	"testing"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
)

func TestComputeSubtotal(t *testing.T) {
	q := Compute([]LineInput{
		{Qty: 2, UnitPriceCents: 10000},
		{Qty: 1, UnitPriceCents: 5050},
	}, domain.DiscountSpec{}, 0, 0)
	if q.SubtotalCents != 25050 {
		t.Fatalf("subtotal = %d, want 25050", q.SubtotalCents)
	}
	if q.TotalCents != 25050 {
		t.Fatalf("total = %d, want 25050", q.TotalCents)
	}
}

func TestComputePercentageDiscount(t *testing.T) {
	q := Compute([]LineInput{{Qty: 1, UnitPriceCents: 20000}},
		domain.DiscountSpec{Type: domain.DiscountPercentage, Value: 10}, 0, 0)
	if q.DiscountCents != 2000 {
		t.Fatalf("discount = %d, want 2000", q.DiscountCents)
	}
	if q.TotalCents != 18000 {
		t.Fatalf("total = %d, want 18000", q.TotalCents)
	}
}

func TestComputePercentageOverHundredClampsToZeroTotal(t *testing.T) {
	// An inconsistent percentage is not an error. The oversized discount is
	// recorded as given; only the total is floored at zero.
	q := Compute([]LineInput{{Qty: 1, UnitPriceCents: 10000}},
		domain.DiscountSpec{Type: domain.DiscountPercentage, Value: 150}, 0, 0)
	if q.DiscountCents != 15000 {
		t.Fatalf("discount = %d, want 15000", q.DiscountCents)
	}
	if q.TotalCents != 0 {
		t.Fatalf("total = %d, want 0", q.TotalCents)
	}
}

func TestComputeAmountDiscountOverSubtotal(t *testing.T) {
	q := Compute([]LineInput{{Qty: 1, UnitPriceCents: 5000}},
		domain.DiscountSpec{Type: domain.DiscountAmount, Value: 8000}, 0, 0)
	if q.DiscountCents != 8000 {
		t.Fatalf("discount = %d, want 8000", q.DiscountCents)
	}
	if q.TotalCents != 0 {
		t.Fatalf("total = %d, want 0", q.TotalCents)
	}
}

func TestComputeNegativeAmountDiscountIgnored(t *testing.T) {
	q := Compute([]LineInput{{Qty: 1, UnitPriceCents: 5000}},
		domain.DiscountSpec{Type: domain.DiscountAmount, Value: -300}, 0, 0)
	if q.DiscountCents != 0 {
		t.Fatalf("discount = %d, want 0", q.DiscountCents)
	}
}

func TestComputeLoyaltyCappedByBalance(t *testing.T) {
	q := Compute([]LineInput{{Qty: 1, UnitPriceCents: 10000}},
		domain.DiscountSpec{}, 500, 120)
	if q.PointsUsed != 120 {
		t.Fatalf("points used = %d, want 120", q.PointsUsed)
	}
	if q.LoyaltyCents != 1200 {
		t.Fatalf("loyalty = %d, want 1200", q.LoyaltyCents)
	}
	if q.TotalCents != 8800 {
		t.Fatalf("total = %d, want 8800", q.TotalCents)
	}
}

func TestComputeLoyaltyCappedBySale(t *testing.T) {
	// 1000 points are worth 10000 cents but the sale is only 500 cents,
	// so at most 50 points can be redeemed.
	q := Compute([]LineInput{{Qty: 1, UnitPriceCents: 500}},
		domain.DiscountSpec{}, 1000, 1000)
	if q.PointsUsed != 50 {
		t.Fatalf("points used = %d, want 50", q.PointsUsed)
	}
	if q.TotalCents != 0 {
		t.Fatalf("total = %d, want 0", q.TotalCents)
	}
}

func TestComputeLoyaltyCapUsesSubtotal(t *testing.T) {
	// The redemption cap follows the subtotal, not the discounted amount:
	// a 10000-cent cart can absorb up to 1000 points even when a discount
	// already covers part of it.
	q := Compute([]LineInput{{Qty: 1, UnitPriceCents: 10000}},
		domain.DiscountSpec{Type: domain.DiscountPercentage, Value: 50}, 600, 600)
	if q.PointsUsed != 600 {
		t.Fatalf("points used = %d, want 600", q.PointsUsed)
	}
	if q.LoyaltyCents != 6000 {
		t.Fatalf("loyalty = %d, want 6000", q.LoyaltyCents)
	}
	if q.TotalCents != 0 {
		t.Fatalf("total = %d, want 0", q.TotalCents)
	}
}

func TestComputeLoyaltyCapWithFullDiscount(t *testing.T) {
	// Even when a discount fully consumes the subtotal, requested points up
	// to the cart's cash value are still redeemed.
	q := Compute([]LineInput{{Qty: 1, UnitPriceCents: 10000}},
		domain.DiscountSpec{Type: domain.DiscountPercentage, Value: 100}, 500, 500)
	if q.PointsUsed != 500 {
		t.Fatalf("points used = %d, want 500", q.PointsUsed)
	}
	if q.TotalCents != 0 {
		t.Fatalf("total = %d, want 0", q.TotalCents)
	}
}

func TestProfit(t *testing.T) {
	items := []domain.TransactionLine{
		{Qty: 2, UnitPriceCents: 10000, UnitBuyingCostCents: 7000},
		{Qty: 1, UnitPriceCents: 5000, UnitBuyingCostCents: 0},
	}
	if got := Profit(items); got != 6000 {
		t.Fatalf("profit = %d, want 6000", got)
	}
}
