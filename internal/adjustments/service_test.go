package adjustments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/optica-erp/optica-backend/internal/inventory"
	"github.com/optica-erp/optica-backend/internal/masterdata/branches"
	"github.com/optica-erp/optica-backend/internal/masterdata/products"
	"github.com/optica-erp/optica-backend/internal/shared"
)

type invState struct {
	qty       map[[2]int64]int64
	movements []inventory.Movement
}

func (s *invState) clone() *invState {
	c := &invState{qty: map[[2]int64]int64{}}
	for k, v := range s.qty {
		c.qty[k] = v
	}
	c.movements = append(c.movements, s.movements...)
	return c
}

type fakeInvTx struct {
	st *invState
}

func (f *fakeInvTx) GetRowForUpdate(_ context.Context, productID, branchID int64) (inventory.Row, error) {
	q, ok := f.st.qty[[2]int64{productID, branchID}]
	if !ok {
		return inventory.Row{}, inventory.ErrRowNotFound
	}
	return inventory.Row{ProductID: productID, BranchID: branchID, Quantity: q}, nil
}

func (f *fakeInvTx) UpdateQuantity(_ context.Context, productID, branchID, quantity int64) error {
	f.st.qty[[2]int64{productID, branchID}] = quantity
	return nil
}

func (f *fakeInvTx) InsertMovement(_ context.Context, m inventory.Movement) (int64, error) {
	f.st.movements = append(f.st.movements, m)
	return int64(len(f.st.movements)), nil
}

func (f *fakeInvTx) ProductStockInfo(_ context.Context, productID int64) (int64, int64, error) {
	var total int64
	for k, v := range f.st.qty {
		if k[0] == productID {
			total += v
		}
	}
	return 0, total, nil
}

func (f *fakeInvTx) SetProductStatus(context.Context, int64, products.Status) error { return nil }
func (f *fakeInvTx) RecordAudit(context.Context, shared.AuditEntry) error           { return nil }

type fakeRepo struct {
	adjustments map[int64]*Adjustment
	nextID      int64
	inv         *invState
	audits      []shared.AuditEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		adjustments: map[int64]*Adjustment{},
		inv:         &invState{qty: map[[2]int64]int64{}},
	}
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &fakeTx{repo: r, adjustments: map[int64]*Adjustment{}, inv: r.inv.clone()}
	for id, a := range r.adjustments {
		copied := *a
		tx.adjustments[id] = &copied
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.adjustments = tx.adjustments
	r.inv = tx.inv
	if tx.lastID > r.nextID {
		r.nextID = tx.lastID
	}
	r.audits = append(r.audits, tx.audits...)
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (*Adjustment, error) {
	a, ok := r.adjustments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeRepo) List(_ context.Context, req ListAdjustmentsRequest) ([]Adjustment, error) {
	var list []Adjustment
	for _, a := range r.adjustments {
		if req.Status != "" && a.Status != req.Status {
			continue
		}
		list = append(list, *a)
	}
	return list, nil
}

type fakeTx struct {
	repo        *fakeRepo
	adjustments map[int64]*Adjustment
	inv         *invState
	audits      []shared.AuditEntry
	lastID      int64
}

func (t *fakeTx) Insert(_ context.Context, adj Adjustment) (int64, error) {
	t.lastID = t.repo.nextID + 1
	adj.ID = t.lastID
	t.adjustments[adj.ID] = &adj
	return adj.ID, nil
}

func (t *fakeTx) GetForUpdate(_ context.Context, id int64) (*Adjustment, error) {
	a, ok := t.adjustments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (t *fakeTx) SetApproval(_ context.Context, id int64, status Status, approverID int64, at time.Time) error {
	a, ok := t.adjustments[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.Status = status
	a.ApprovedBy = &approverID
	a.ApprovedAt = &at
	return nil
}

func (t *fakeTx) Inventory() inventory.TxRepository {
	return &fakeInvTx{st: t.inv}
}

func (t *fakeTx) RecordAudit(_ context.Context, entry shared.AuditEntry) error {
	t.audits = append(t.audits, entry)
	return nil
}

type fakeBranches map[int64]branches.Branch

func (b fakeBranches) Get(_ context.Context, id int64) (branches.Branch, error) {
	branch, ok := b[id]
	if !ok {
		return branches.Branch{}, shared.ErrNotFound
	}
	return branch, nil
}

func harness() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	repo.inv.qty[[2]int64{1, 10}] = 5
	repo.inv.qty[[2]int64{1, 99}] = 50 // warehouse
	dirs := fakeBranches{
		10: {ID: 10},
		99: {ID: 99, IsWarehouse: true},
	}
	return NewService(repo, dirs, inventory.NewMutator(), nil), repo
}

var (
	creator   = shared.Actor{UserID: 3, Role: shared.RoleSales, BranchID: 10}
	manager   = shared.Actor{UserID: 4, Role: shared.RoleManager, BranchID: 10}
	stockroom = shared.Actor{UserID: 5, Role: shared.RoleWarehouse, BranchID: 99}
)

func TestCreateLeavesStockUntouched(t *testing.T) {
	svc, repo := harness()

	adj, err := svc.Create(context.Background(), creator, CreateAdjustmentRequest{
		ProductID: 1, BranchID: 10, Qty: -2, Type: TypeWriteoff, Reason: "cracked lens",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, adj.Status)
	require.Equal(t, int64(5), repo.inv.qty[[2]int64{1, 10}], "pending adjustments must not move stock")
	require.Empty(t, repo.inv.movements)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc, _ := harness()
	_, err := svc.Create(context.Background(), creator, CreateAdjustmentRequest{
		ProductID: 1, BranchID: 10, Qty: -2, Type: Type("shrinkage"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestApproveAppliesDelta(t *testing.T) {
	svc, repo := harness()

	adj, err := svc.Create(context.Background(), creator, CreateAdjustmentRequest{
		ProductID: 1, BranchID: 10, Qty: -2, Type: TypeWriteoff, Reason: "cracked lens",
	})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), manager, adj.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	require.Equal(t, manager.UserID, *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	require.Equal(t, int64(3), repo.inv.qty[[2]int64{1, 10}])
	require.Len(t, repo.inv.movements, 1)
	require.Equal(t, inventory.ContextAdjustment, repo.inv.movements[0].Context)
	require.Equal(t, int64(-2), repo.inv.movements[0].Delta)
}

func TestApproveRequiresManagerRole(t *testing.T) {
	svc, _ := harness()

	adj, err := svc.Create(context.Background(), creator, CreateAdjustmentRequest{
		ProductID: 1, BranchID: 10, Qty: -2, Type: TypeWriteoff,
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), creator, adj.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Approve(context.Background(), stockroom, adj.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestApproveIsTerminal(t *testing.T) {
	svc, repo := harness()

	adj, err := svc.Create(context.Background(), creator, CreateAdjustmentRequest{
		ProductID: 1, BranchID: 10, Qty: -2, Type: TypeWriteoff,
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), manager, adj.ID)
	require.NoError(t, err)

	// A second approval must not double-apply the delta.
	_, err = svc.Approve(context.Background(), manager, adj.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, int64(3), repo.inv.qty[[2]int64{1, 10}])

	_, err = svc.Reject(context.Background(), manager, adj.ID, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestApproveInsufficientStockKeepsPending(t *testing.T) {
	svc, repo := harness()

	adj, err := svc.Create(context.Background(), creator, CreateAdjustmentRequest{
		ProductID: 1, BranchID: 10, Qty: -9, Type: TypeWriteoff,
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), manager, adj.ID)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	current, err := svc.Get(context.Background(), adj.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, current.Status, "failed approval rolls back the transition")
	require.Equal(t, int64(5), repo.inv.qty[[2]int64{1, 10}])
}

func TestRejectNeverTouchesInventory(t *testing.T) {
	svc, repo := harness()

	adj, err := svc.Create(context.Background(), creator, CreateAdjustmentRequest{
		ProductID: 1, BranchID: 10, Qty: -2, Type: TypeDefective,
	})
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), manager, adj.ID, "not actually defective")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.NotNil(t, rejected.ApprovedBy)
	require.Equal(t, int64(5), repo.inv.qty[[2]int64{1, 10}])
	require.Empty(t, repo.inv.movements)
}

func TestDirectAdjustWarehouseOnly(t *testing.T) {
	svc, repo := harness()

	// Ordinary branch refused even for admins.
	admin := shared.Actor{UserID: 1, Role: shared.RoleAdmin}
	_, err := svc.DirectAdjust(context.Background(), admin, 10, DirectAdjustRequest{ProductID: 1, Qty: 3})
	require.ErrorIs(t, err, shared.ErrForbidden)

	// Warehouse branch, warehouse role: applied immediately.
	applied, err := svc.DirectAdjust(context.Background(), stockroom, 99, DirectAdjustRequest{ProductID: 1, Qty: 3, Reason: "recount"})
	require.NoError(t, err)
	require.Equal(t, int64(53), applied.NewQty)
	require.Equal(t, int64(53), repo.inv.qty[[2]int64{1, 99}])
	require.Equal(t, inventory.ContextWarehouseAdjust, repo.inv.movements[0].Context)
}

func TestDirectAdjustRoleGate(t *testing.T) {
	svc, _ := harness()

	_, err := svc.DirectAdjust(context.Background(), manager, 99, DirectAdjustRequest{ProductID: 1, Qty: 3})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func findAudit(t *testing.T, audits []shared.AuditEntry, action string) shared.AuditEntry {
	t.Helper()
	for _, e := range audits {
		if e.Action == action {
			return e
		}
	}
	t.Fatalf("no %s audit entry recorded", action)
	return shared.AuditEntry{}
}

func TestApproveAuditCapturesStatusTransition(t *testing.T) {
	svc, repo := harness()

	adj, err := svc.Create(context.Background(), creator, CreateAdjustmentRequest{
		ProductID: 1, BranchID: 10, Qty: -2, Type: TypeWriteoff, Reason: "cracked lens",
	})
	require.NoError(t, err)

	created := findAudit(t, repo.audits, shared.ActionAdjustmentCreated)
	require.Equal(t, adj.ID, created.Meta["adjustment_id"])
	require.Equal(t, string(StatusPending), created.Meta["new_status"])

	_, err = svc.Approve(context.Background(), manager, adj.ID)
	require.NoError(t, err)

	approved := findAudit(t, repo.audits, shared.ActionAdjustmentApproved)
	require.Equal(t, adj.ID, approved.Meta["adjustment_id"])
	require.Equal(t, string(StatusPending), approved.Meta["old_status"])
	require.Equal(t, string(StatusApproved), approved.Meta["new_status"])
	require.Equal(t, int64(-2), approved.Meta["qty"])
}

func TestRejectAuditCapturesStatusTransition(t *testing.T) {
	svc, repo := harness()

	adj, err := svc.Create(context.Background(), creator, CreateAdjustmentRequest{
		ProductID: 1, BranchID: 10, Qty: -2, Type: TypeDefective,
	})
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), manager, adj.ID, "recount found no loss")
	require.NoError(t, err)

	rejected := findAudit(t, repo.audits, shared.ActionAdjustmentRejected)
	require.Equal(t, adj.ID, rejected.Meta["adjustment_id"])
	require.Equal(t, string(StatusPending), rejected.Meta["old_status"])
	require.Equal(t, string(StatusRejected), rejected.Meta["new_status"])
	require.Equal(t, "recount found no loss", rejected.Meta["note"])
}
