package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/optica-erp/optica-backend/internal/masterdata/products"
	"github.com/optica-erp/optica-backend/internal/shared"
)

type memoryTx struct {
	rows      map[string]Row
	minStock  map[int64]int64
	statuses  map[int64]products.Status
	movements []Movement
	audits    []shared.AuditEntry
}

func key(productID, branchID int64) string {
	return fmt.Sprintf("%d/%d", productID, branchID)
}

func newMemoryTx() *memoryTx {
	return &memoryTx{
		rows:     map[string]Row{},
		minStock: map[int64]int64{},
		statuses: map[int64]products.Status{},
	}
}

func (m *memoryTx) seed(productID, branchID, qty, minStock int64) {
	m.rows[key(productID, branchID)] = Row{ProductID: productID, BranchID: branchID, Quantity: qty}
	m.minStock[productID] = minStock
}

func (m *memoryTx) GetRowForUpdate(_ context.Context, productID, branchID int64) (Row, error) {
	row, ok := m.rows[key(productID, branchID)]
	if !ok {
		return Row{}, ErrRowNotFound
	}
	return row, nil
}

func (m *memoryTx) UpdateQuantity(_ context.Context, productID, branchID, quantity int64) error {
	row := m.rows[key(productID, branchID)]
	row.Quantity = quantity
	m.rows[key(productID, branchID)] = row
	return nil
}

func (m *memoryTx) InsertMovement(_ context.Context, mv Movement) (int64, error) {
	m.movements = append(m.movements, mv)
	return int64(len(m.movements)), nil
}

func (m *memoryTx) ProductStockInfo(_ context.Context, productID int64) (int64, int64, error) {
	var total int64
	for _, row := range m.rows {
		if row.ProductID == productID {
			total += row.Quantity
		}
	}
	return m.minStock[productID], total, nil
}

func (m *memoryTx) SetProductStatus(_ context.Context, productID int64, status products.Status) error {
	m.statuses[productID] = status
	return nil
}

func (m *memoryTx) RecordAudit(_ context.Context, entry shared.AuditEntry) error {
	m.audits = append(m.audits, entry)
	return nil
}

func TestApplyDeltaDecrement(t *testing.T) {
	tx := newMemoryTx()
	tx.seed(1, 10, 8, 2)

	applied, err := NewMutator().ApplyDelta(context.Background(), tx, Delta{
		ProductID: 1, BranchID: 10, Qty: -3, Context: ContextSale, ActorID: 7, RefCode: "SALE-1",
	})
	require.NoError(t, err)
	require.Equal(t, int64(8), applied.PrevQty)
	require.Equal(t, int64(5), applied.NewQty)
	require.False(t, applied.LowStockCrossed)

	require.Len(t, tx.movements, 1)
	require.Equal(t, int64(-3), tx.movements[0].Delta)
	require.Equal(t, ContextSale, tx.movements[0].Context)
	require.Equal(t, "SALE-1", tx.movements[0].RefCode)
	require.Equal(t, products.StatusInStock, tx.statuses[1])
}

func TestApplyDeltaRejectsNegativeStock(t *testing.T) {
	tx := newMemoryTx()
	tx.seed(1, 10, 2, 0)

	_, err := NewMutator().ApplyDelta(context.Background(), tx, Delta{
		ProductID: 1, BranchID: 10, Qty: -5, Context: ContextSale, ActorID: 7,
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(5), stockErr.Requested)
	require.Equal(t, int64(2), stockErr.Available)
	require.Empty(t, tx.movements, "failed mutation must not log a movement")
	require.Equal(t, int64(2), tx.rows[key(1, 10)].Quantity)
}

func TestApplyDeltaMissingRow(t *testing.T) {
	tx := newMemoryTx()

	_, err := NewMutator().ApplyDelta(context.Background(), tx, Delta{
		ProductID: 99, BranchID: 10, Qty: -1, Context: ContextSale, ActorID: 7,
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestApplyDeltaZeroQty(t *testing.T) {
	_, err := NewMutator().ApplyDelta(context.Background(), newMemoryTx(), Delta{
		ProductID: 1, BranchID: 10, Qty: 0, Context: ContextSale, ActorID: 7,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestApplyDeltaLowStockCrossingFiresOnce(t *testing.T) {
	tx := newMemoryTx()
	tx.seed(1, 10, 6, 5)
	mutator := NewMutator()

	// 6 -> 4 crosses the threshold of 5.
	applied, err := mutator.ApplyDelta(context.Background(), tx, Delta{
		ProductID: 1, BranchID: 10, Qty: -2, Context: ContextSale, ActorID: 7,
	})
	require.NoError(t, err)
	require.True(t, applied.LowStockCrossed)
	require.Len(t, tx.audits, 1)
	require.Equal(t, shared.ActionLowStock, tx.audits[0].Action)

	// 4 -> 3 is already below; no second alert.
	applied, err = mutator.ApplyDelta(context.Background(), tx, Delta{
		ProductID: 1, BranchID: 10, Qty: -1, Context: ContextSale, ActorID: 7,
	})
	require.NoError(t, err)
	require.False(t, applied.LowStockCrossed)
	require.Len(t, tx.audits, 1)
}

func TestApplyDeltaLowStockIgnoresAdministrativeMoves(t *testing.T) {
	tx := newMemoryTx()
	tx.seed(1, 10, 6, 5)

	applied, err := NewMutator().ApplyDelta(context.Background(), tx, Delta{
		ProductID: 1, BranchID: 10, Qty: -2, Context: ContextAdjustment, ActorID: 7,
	})
	require.NoError(t, err)
	require.False(t, applied.LowStockCrossed)
	require.Empty(t, tx.audits)
}

func TestApplyDeltaStatusFollowsAggregate(t *testing.T) {
	tx := newMemoryTx()
	tx.seed(1, 10, 1, 0)
	tx.seed(1, 20, 0, 0)
	mutator := NewMutator()

	_, err := mutator.ApplyDelta(context.Background(), tx, Delta{
		ProductID: 1, BranchID: 10, Qty: -1, Context: ContextSale, ActorID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, products.StatusSold, tx.statuses[1])

	_, err = mutator.ApplyDelta(context.Background(), tx, Delta{
		ProductID: 1, BranchID: 20, Qty: 4, Context: ContextShipmentReceived, ActorID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, products.StatusInStock, tx.statuses[1])
}

type failingTx struct {
	*memoryTx
}

func (f *failingTx) InsertMovement(context.Context, Movement) (int64, error) {
	return 0, errors.New("movement log unavailable")
}

func TestApplyDeltaPropagatesMovementFailure(t *testing.T) {
	tx := newMemoryTx()
	tx.seed(1, 10, 8, 0)

	_, err := NewMutator().ApplyDelta(context.Background(), &failingTx{tx}, Delta{
		ProductID: 1, BranchID: 10, Qty: -1, Context: ContextSale, ActorID: 7,
	})
	require.Error(t, err)
}
