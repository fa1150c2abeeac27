package reporting

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// RepositoryPort abstracts the aggregate queries.
type RepositoryPort interface {
	LowStock(ctx context.Context, branchID int64) ([]LowStockRow, error)
	WriteoffLoss(ctx context.Context, branchID int64, period Period) (decimal.Decimal, error)
	PaymentBreakdown(ctx context.Context, branchID int64, period Period) ([]PaymentMethodTotal, error)
	SalesTotals(ctx context.Context, branchID int64, period Period) (int64, decimal.Decimal, error)
}

// Service serves reporting queries. The low-stock scan is collapsed through
// singleflight since every branch dashboard polls it.
type Service struct {
	repo  RepositoryPort
	group singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// LowStock lists rows below threshold, deduplicating concurrent identical scans.
func (s *Service) LowStock(ctx context.Context, branchID int64) ([]LowStockRow, error) {
	v, err, _ := s.group.Do("low_stock:"+strconv.FormatInt(branchID, 10), func() (any, error) {
		return s.repo.LowStock(ctx, branchID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]LowStockRow), nil
}

// WriteoffLoss reports cost value destroyed by approved writeoffs.
func (s *Service) WriteoffLoss(ctx context.Context, branchID int64, period Period) (decimal.Decimal, error) {
	return s.repo.WriteoffLoss(ctx, branchID, period)
}

// Dashboard assembles the overview; the four aggregates run concurrently.
func (s *Service) Dashboard(ctx context.Context, branchID int64, period Period) (*Dashboard, error) {
	d := &Dashboard{BranchID: branchID}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, total, err := s.repo.SalesTotals(ctx, branchID, period)
		if err != nil {
			return err
		}
		d.SalesCount, d.SalesTotal = count, total
		return nil
	})
	g.Go(func() error {
		loss, err := s.repo.WriteoffLoss(ctx, branchID, period)
		if err != nil {
			return err
		}
		d.WriteoffLoss = loss
		return nil
	})
	g.Go(func() error {
		payments, err := s.repo.PaymentBreakdown(ctx, branchID, period)
		if err != nil {
			return err
		}
		d.Payments = payments
		return nil
	})
	g.Go(func() error {
		low, err := s.LowStock(ctx, branchID)
		if err != nil {
			return err
		}
		d.LowStock = low
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
