package shipments

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
	shipments  map[int64]*Shipment
	receiveOps map[[2]interface{}]bool
	nextID     int64
	nextItemID int64
	inv        *invState
	audits     []shared.AuditEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		shipments:  map[int64]*Shipment{},
		receiveOps: map[[2]interface{}]bool{},
		inv:        &invState{qty: map[[2]int64]int64{}},
	}
}

func cloneShipment(s *Shipment) *Shipment {
	copied := *s
	copied.Items = append([]Item(nil), s.Items...)
	return &copied
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &fakeTx{
		repo:       r,
		shipments:  map[int64]*Shipment{},
		receiveOps: map[[2]interface{}]bool{},
		inv:        r.inv.clone(),
		nextItemID: r.nextItemID,
	}
	for id, s := range r.shipments {
		tx.shipments[id] = cloneShipment(s)
	}
	for k, v := range r.receiveOps {
		tx.receiveOps[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.shipments = tx.shipments
	r.receiveOps = tx.receiveOps
	r.inv = tx.inv
	r.nextItemID = tx.nextItemID
	if tx.lastID > r.nextID {
		r.nextID = tx.lastID
	}
	r.audits = append(r.audits, tx.audits...)
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (*Shipment, error) {
	s, ok := r.shipments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneShipment(s), nil
}

func (r *fakeRepo) List(_ context.Context, _ ListShipmentsRequest) ([]Shipment, error) {
	var list []Shipment
	for _, s := range r.shipments {
		list = append(list, *cloneShipment(s))
	}
	return list, nil
}

type fakeTx struct {
	repo       *fakeRepo
	shipments  map[int64]*Shipment
	receiveOps map[[2]interface{}]bool
	inv        *invState
	audits     []shared.AuditEntry
	lastID     int64
	nextItemID int64
}

func (t *fakeTx) InsertShipment(_ context.Context, sh Shipment) (int64, error) {
	t.lastID = t.repo.nextID + 1
	sh.ID = t.lastID
	t.shipments[sh.ID] = &sh
	return sh.ID, nil
}

func (t *fakeTx) InsertItems(_ context.Context, shipmentID int64, items []Item) error {
	for i := range items {
		t.nextItemID++
		items[i].ID = t.nextItemID
		items[i].ShipmentID = shipmentID
	}
	t.shipments[shipmentID].Items = items
	return nil
}

func (t *fakeTx) GetForUpdate(_ context.Context, id int64) (*Shipment, error) {
	s, ok := t.shipments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneShipment(s), nil
}

func (t *fakeTx) UpdateItemReceived(_ context.Context, itemID, qtyReceived int64) error {
	for _, s := range t.shipments {
		for i := range s.Items {
			if s.Items[i].ID == itemID {
				s.Items[i].QtyReceived = qtyReceived
				return nil
			}
		}
	}
	return shared.ErrNotFound
}

func (t *fakeTx) SetStatus(_ context.Context, id int64, status Status, completedAt *time.Time) error {
	s, ok := t.shipments[id]
	if !ok {
		return shared.ErrNotFound
	}
	s.Status = status
	s.CompletedAt = completedAt
	return nil
}

func (t *fakeTx) ReceiveOpExists(_ context.Context, shipmentID int64, requestID string) (bool, error) {
	return t.receiveOps[[2]interface{}{shipmentID, requestID}], nil
}

func (t *fakeTx) InsertReceiveOp(_ context.Context, shipmentID int64, requestID string, _ int64) error {
	k := [2]interface{}{shipmentID, requestID}
	if t.receiveOps[k] {
		return errDuplicateReceive
	}
	t.receiveOps[k] = true
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

func (b fakeBranches) Warehouse(_ context.Context) (branches.Branch, error) {
	for _, branch := range b {
		if branch.IsWarehouse {
			return branch, nil
		}
	}
	return branches.Branch{}, shared.ErrNotFound
}

const requestA = "3e6f1a8a-1111-4222-8333-444455556666"
const requestB = "9a0b1c2d-7777-4888-9999-aaaabbbbcccc"

func harness() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	repo.inv.qty[[2]int64{1, 99}] = 50 // warehouse
	repo.inv.qty[[2]int64{2, 99}] = 10
	repo.inv.qty[[2]int64{1, 10}] = 0
	repo.inv.qty[[2]int64{2, 10}] = 0
	dirs := fakeBranches{
		10: {ID: 10},
		99: {ID: 99, IsWarehouse: true},
	}
	return NewService(repo, dirs, inventory.NewMutator()), repo
}

var keeper = shared.Actor{UserID: 5, Role: shared.RoleWarehouse, BranchID: 99}

func create(t *testing.T, svc *Service) *Shipment {
	t.Helper()
	sh, err := svc.Create(context.Background(), keeper, CreateShipmentRequest{
		DestBranchID: 10,
		Items: []ShipmentItemInput{
			{ProductID: 1, Qty: 20},
			{ProductID: 2, Qty: 5},
		},
	})
	require.NoError(t, err)
	return sh
}

func TestCreateDecrementsWarehouse(t *testing.T) {
	svc, repo := harness()

	sh := create(t, svc)
	require.Equal(t, StatusPending, sh.Status)
	require.Equal(t, int64(99), sh.SourceBranch, "source resolved server-side")
	require.Len(t, sh.Items, 2)
	require.Equal(t, int64(0), sh.Items[0].QtyReceived)

	require.Equal(t, int64(30), repo.inv.qty[[2]int64{1, 99}])
	require.Equal(t, int64(5), repo.inv.qty[[2]int64{2, 99}])
	require.Equal(t, int64(0), repo.inv.qty[[2]int64{1, 10}], "destination untouched until receipt")
	require.Equal(t, inventory.ContextShipmentSent, repo.inv.movements[0].Context)
}

func TestCreateRejectsWarehouseDestination(t *testing.T) {
	svc, _ := harness()

	_, err := svc.Create(context.Background(), keeper, CreateShipmentRequest{
		DestBranchID: 99,
		Items:        []ShipmentItemInput{{ProductID: 1, Qty: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateInsufficientWarehouseStock(t *testing.T) {
	svc, repo := harness()

	_, err := svc.Create(context.Background(), keeper, CreateShipmentRequest{
		DestBranchID: 10,
		Items:        []ShipmentItemInput{{ProductID: 2, Qty: 11}},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Empty(t, repo.shipments)
	require.Equal(t, int64(10), repo.inv.qty[[2]int64{2, 99}])
}

func TestCreateRoleGate(t *testing.T) {
	svc, _ := harness()

	sales := shared.Actor{UserID: 2, Role: shared.RoleSales}
	_, err := svc.Create(context.Background(), sales, CreateShipmentRequest{
		DestBranchID: 10,
		Items:        []ShipmentItemInput{{ProductID: 1, Qty: 1}},
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestReceivePartialThenFull(t *testing.T) {
	svc, repo := harness()
	sh := create(t, svc)

	partial, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestA,
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 12}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyReceived, partial.Status)
	require.Nil(t, partial.CompletedAt)
	require.Equal(t, int64(12), repo.inv.qty[[2]int64{1, 10}])

	full, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestB,
		Items: []ShipmentItemInput{
			{ProductID: 1, Qty: 8},
			{ProductID: 2, Qty: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusReceived, full.Status)
	require.NotNil(t, full.CompletedAt)
	require.Equal(t, int64(20), repo.inv.qty[[2]int64{1, 10}])
	require.Equal(t, int64(5), repo.inv.qty[[2]int64{2, 10}])
}

func TestReceiveReplayIsNoOp(t *testing.T) {
	svc, repo := harness()
	sh := create(t, svc)

	first, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestA,
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 12}},
	})
	require.NoError(t, err)

	replay, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestA,
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 12}},
	})
	require.NoError(t, err)
	require.Equal(t, first.Status, replay.Status)
	require.Equal(t, int64(12), repo.inv.qty[[2]int64{1, 10}], "replay must not double-apply")
	require.Equal(t, int64(12), replay.Items[0].QtyReceived)
}

func TestReceiveOverOutstandingRejected(t *testing.T) {
	svc, repo := harness()
	sh := create(t, svc)

	_, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestA,
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 21}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, int64(0), repo.inv.qty[[2]int64{1, 10}])

	// Partial receipt shrinks the outstanding amount for the next one.
	_, err = svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestA,
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 15}},
	})
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestB,
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 6}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReceiveUnknownLineRejected(t *testing.T) {
	svc, _ := harness()
	sh := create(t, svc)

	_, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestA,
		Items:     []ShipmentItemInput{{ProductID: 42, Qty: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReceiveTerminalStatusRejected(t *testing.T) {
	svc, _ := harness()
	sh := create(t, svc)

	_, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestA,
		Items: []ShipmentItemInput{
			{ProductID: 1, Qty: 20},
			{ProductID: 2, Qty: 5},
		},
	})
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestB,
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 1}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestReceiveRequiresUUIDRequestID(t *testing.T) {
	svc, _ := harness()
	sh := create(t, svc)

	_, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: "not-a-uuid",
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCancelPendingReturnsStock(t *testing.T) {
	svc, repo := harness()
	sh := create(t, svc)

	cancelled, err := svc.Cancel(context.Background(), keeper, sh.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, int64(50), repo.inv.qty[[2]int64{1, 99}])
	require.Equal(t, int64(10), repo.inv.qty[[2]int64{2, 99}])
}

func TestCancelAfterReceiptRejected(t *testing.T) {
	svc, _ := harness()
	sh := create(t, svc)

	_, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestA,
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), keeper, sh.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func auditByAction(t *testing.T, audits []shared.AuditEntry, action string) shared.AuditEntry {
	t.Helper()
	for i := len(audits) - 1; i >= 0; i-- {
		if audits[i].Action == action {
			return audits[i]
		}
	}
	t.Fatalf("no %s audit entry recorded", action)
	return shared.AuditEntry{}
}

func TestLifecycleAuditsCaptureStatusTransitions(t *testing.T) {
	svc, repo := harness()
	sh := create(t, svc)

	created := auditByAction(t, repo.audits, shared.ActionShipmentCreated)
	require.Equal(t, sh.ID, created.Meta["shipment_id"])
	require.Equal(t, string(StatusPending), created.Meta["new_status"])

	_, err := svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestA,
		Items:     []ShipmentItemInput{{ProductID: 1, Qty: 12}},
	})
	require.NoError(t, err)

	received := auditByAction(t, repo.audits, shared.ActionShipmentReceived)
	require.Equal(t, sh.ID, received.Meta["shipment_id"])
	require.Equal(t, string(StatusPending), received.Meta["old_status"])
	require.Equal(t, string(StatusPartiallyReceived), received.Meta["new_status"])

	_, err = svc.Receive(context.Background(), keeper, sh.ID, ReceiveShipmentRequest{
		RequestID: requestB,
		Items: []ShipmentItemInput{
			{ProductID: 1, Qty: 8},
			{ProductID: 2, Qty: 5},
		},
	})
	require.NoError(t, err)

	final := auditByAction(t, repo.audits, shared.ActionShipmentReceived)
	require.Equal(t, string(StatusPartiallyReceived), final.Meta["old_status"])
	require.Equal(t, string(StatusReceived), final.Meta["new_status"])
}

func TestCancelAuditCapturesStatusTransition(t *testing.T) {
	svc, repo := harness()
	sh := create(t, svc)

	_, err := svc.Cancel(context.Background(), keeper, sh.ID)
	require.NoError(t, err)

	cancelled := auditByAction(t, repo.audits, shared.ActionShipmentCancelled)
	require.Equal(t, sh.ID, cancelled.Meta["shipment_id"])
	require.Equal(t, string(StatusPending), cancelled.Meta["old_status"])
	require.Equal(t, string(StatusCancelled), cancelled.Meta["new_status"])
}
