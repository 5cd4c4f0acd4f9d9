// Package pricing computes checkout totals. It is pure arithmetic over cents
// so the service layer and tests can reason about totals without a repository.
package pricing

import (
	"math"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
)

// CentsPerLoyaltyPoint fixes the redemption rate: ten points are worth one
// whole currency unit, so a single point redeems ten cents.
const CentsPerLoyaltyPoint = 10

type LineInput struct {
	Qty                 int
	UnitPriceCents      int64
	UnitBuyingCostCents int64
}

type Quote struct {
	SubtotalCents int64
	DiscountCents int64
	LoyaltyCents  int64
	PointsUsed    int
	TotalCents    int64
}

// Compute resolves a cart into a quote. An oversized discount is recorded as
// given (percentage over 100 yields a discount larger than the subtotal);
// only the total is floored at zero. Loyalty redemption is capped by the
// customer's balance and by the cash value of the cart.
func Compute(lines []LineInput, discount domain.DiscountSpec, pointsRequested, pointsAvailable int) Quote {
	var q Quote
	for _, ln := range lines {
		q.SubtotalCents += int64(ln.Qty) * ln.UnitPriceCents
	}

	switch discount.Type {
	case domain.DiscountPercentage:
		q.DiscountCents = int64(math.Round(float64(q.SubtotalCents) * discount.Value / 100))
	case domain.DiscountAmount:
		q.DiscountCents = int64(math.Round(discount.Value))
	}
	if q.DiscountCents < 0 {
		q.DiscountCents = 0
	}

	q.PointsUsed = pointsRequested
	if q.PointsUsed > pointsAvailable {
		q.PointsUsed = pointsAvailable
	}
	if cap := int(q.SubtotalCents / CentsPerLoyaltyPoint); q.PointsUsed > cap {
		q.PointsUsed = cap
	}
	if q.PointsUsed < 0 {
		q.PointsUsed = 0
	}
	q.LoyaltyCents = int64(q.PointsUsed) * CentsPerLoyaltyPoint

	q.TotalCents = q.SubtotalCents - q.DiscountCents - q.LoyaltyCents
	if q.TotalCents < 0 {
		q.TotalCents = 0
	}
	return q
}

// Profit returns the margin of a transaction line snapshot. Lines that were
// sold without a recorded buying cost contribute zero rather than skewing
// reports negative.
func Profit(items []domain.TransactionLine) int64 {
	var p int64
	for _, it := range items {
		if it.UnitBuyingCostCents <= 0 {
			continue
		}
		p += int64(it.Qty) * (it.UnitPriceCents - it.UnitBuyingCostCents)
	}
	return p
}
