package cache

import (
	"context"
	"time"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/report"
)

// ReportCache keeps assembled sales reports warm so day-range dashboards do
// not re-scan the transaction log on every refresh.
type ReportCache interface {
	Get(ctx context.Context, key string) (*report.SalesReport, bool, error)
	Set(ctx context.Context, key string, value *report.SalesReport, ttl time.Duration) error
	Invalidate(ctx context.Context, storeID string) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*report.SalesReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *report.SalesReport, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
