package reporting

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	lowStockCalls atomic.Int64
	lowStock      []LowStockRow
	loss          decimal.Decimal
	payments      []PaymentMethodTotal
	salesCount    int64
	salesTotal    decimal.Decimal
}

func (f *fakeRepo) LowStock(_ context.Context, _ int64) ([]LowStockRow, error) {
	f.lowStockCalls.Add(1)
	return f.lowStock, nil
}

func (f *fakeRepo) WriteoffLoss(_ context.Context, _ int64, _ Period) (decimal.Decimal, error) {
	return f.loss, nil
}

func (f *fakeRepo) PaymentBreakdown(_ context.Context, _ int64, _ Period) ([]PaymentMethodTotal, error) {
	return f.payments, nil
}

func (f *fakeRepo) SalesTotals(_ context.Context, _ int64, _ Period) (int64, decimal.Decimal, error) {
	return f.salesCount, f.salesTotal, nil
}

func TestDashboardAggregates(t *testing.T) {
	repo := &fakeRepo{
		lowStock:   []LowStockRow{{ProductID: 1, BranchID: 10, Quantity: 1, MinStock: 5}},
		loss:       decimal.RequireFromString("240.00"),
		payments:   []PaymentMethodTotal{{Method: "cash", Total: decimal.RequireFromString("900.00")}},
		salesCount: 12,
		salesTotal: decimal.RequireFromString("1500.00"),
	}
	svc := NewService(repo)

	d, err := svc.Dashboard(context.Background(), 10, Period{})
	require.NoError(t, err)
	require.Equal(t, int64(12), d.SalesCount)
	require.True(t, d.SalesTotal.Equal(decimal.RequireFromString("1500.00")))
	require.True(t, d.WriteoffLoss.Equal(decimal.RequireFromString("240.00")))
	require.Len(t, d.Payments, 1)
	require.Len(t, d.LowStock, 1)
}

func TestLowStockPassesThrough(t *testing.T) {
	repo := &fakeRepo{lowStock: []LowStockRow{{ProductID: 2, BranchID: 10, Quantity: 0, MinStock: 3}}}
	svc := NewService(repo)

	rows, err := svc.LowStock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(2), rows[0].ProductID)
	require.Equal(t, int64(1), repo.lowStockCalls.Load())
}
