package branches

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/optica-erp/optica-backend/internal/shared"
)

type fakeRepo struct {
	byID           map[int64]Branch
	warehouseCalls int
}

func (f *fakeRepo) List(_ context.Context) ([]Branch, error) {
	out := make([]Branch, 0, len(f.byID))
	for _, b := range f.byID {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Branch, error) {
	b, ok := f.byID[id]
	if !ok {
		return Branch{}, shared.ErrNotFound
	}
	return b, nil
}

func (f *fakeRepo) Warehouse(_ context.Context) (Branch, error) {
	f.warehouseCalls++
	var found []Branch
	for _, b := range f.byID {
		if b.IsWarehouse {
			found = append(found, b)
		}
	}
	if len(found) != 1 {
		return Branch{}, ErrWarehouseInvariant
	}
	return found[0], nil
}

func (f *fakeRepo) Create(_ context.Context, branch Branch) (Branch, error) {
	branch.ID = int64(len(f.byID) + 1)
	f.byID[branch.ID] = branch
	return branch, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, branch Branch) error {
	if _, ok := f.byID[id]; !ok {
		return shared.ErrNotFound
	}
	branch.ID = id
	f.byID[id] = branch
	return nil
}

func testCache(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func twoBranchRepo() *fakeRepo {
	return &fakeRepo{byID: map[int64]Branch{
		10: {ID: 10, Code: "C1", Name: "Center"},
		99: {ID: 99, Code: "WH", Name: "Warehouse", IsWarehouse: true},
	}}
}

func TestWarehouseCachesID(t *testing.T) {
	repo := twoBranchRepo()
	svc := NewService(repo, testCache(t))
	ctx := context.Background()

	b, err := svc.Warehouse(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(99), b.ID)
	require.Equal(t, 1, repo.warehouseCalls)

	// Second resolution comes from the cached id.
	b, err = svc.Warehouse(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(99), b.ID)
	require.Equal(t, 1, repo.warehouseCalls)
}

func TestWarehouseStaleCacheFallsThrough(t *testing.T) {
	repo := twoBranchRepo()
	srv := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	require.NoError(t, srv.Set("branches:warehouse_id", "10"))

	svc := NewService(repo, cache)
	b, err := svc.Warehouse(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(99), b.ID, "cached id pointing at a non-warehouse branch is ignored")
	require.Equal(t, 1, repo.warehouseCalls)
}

func TestWarehouseWithoutCache(t *testing.T) {
	repo := twoBranchRepo()
	svc := NewService(repo, nil)

	b, err := svc.Warehouse(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(99), b.ID)
}

func TestVerifyWarehouseInvariant(t *testing.T) {
	repo := twoBranchRepo()
	svc := NewService(repo, nil)
	require.NoError(t, svc.VerifyWarehouseInvariant(context.Background()))

	second := repo.byID[10]
	second.IsWarehouse = true
	repo.byID[10] = second
	require.ErrorIs(t, svc.VerifyWarehouseInvariant(context.Background()), ErrWarehouseInvariant)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(&fakeRepo{byID: map[int64]Branch{}}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Branch{Name: "No Code"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Branch{Code: "C2", Name: "Neg", DiscountLimitPercent: decimal.RequireFromString("-1")})
	require.ErrorIs(t, err, shared.ErrValidation)

	b, err := svc.Create(ctx, Branch{Code: "C2", Name: "South", DiscountLimitPercent: decimal.RequireFromString("10")})
	require.NoError(t, err)
	require.NotZero(t, b.ID)
}
