package service

import (
	"context"
	"testing"
	"time"

	"stockroom/internal/model"
	"stockroom/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type issuanceFixture struct {
	itemRepo     *fakeStockItemRepo
	requestRepo  *fakeRequestRepo
	issuedRepo   *fakeIssuedItemRepo
	transferRepo *fakeTransferRepo
	userRepo     *fakeUserRepo
	auditRepo    *fakeAuditRepo
	requests     RequestService
	issuance     *issuanceService
}

func newIssuanceFixture() *issuanceFixture {
	f := &issuanceFixture{
		itemRepo:     newFakeStockItemRepo(),
		requestRepo:  newFakeRequestRepo(),
		issuedRepo:   newFakeIssuedItemRepo(),
		transferRepo: &fakeTransferRepo{},
		userRepo:     newFakeUserRepo(),
		auditRepo:    &fakeAuditRepo{},
	}
	ledger := NewLedgerService(f.itemRepo, &fakePurchaseRepo{}, &fakeDiscardRepo{}, f.auditRepo, passthroughTxManager{}, nil)
	f.requests = NewRequestService(f.requestRepo, f.itemRepo, f.issuedRepo, f.auditRepo, ledger, passthroughTxManager{})
	f.issuance = NewIssuanceService(f.issuedRepo, f.requestRepo, f.transferRepo, f.userRepo, f.auditRepo, ledger, passthroughTxManager{}).(*issuanceService)
	return f
}

// approvedRequest submits and approves a single-line request, returning its id.
func (f *issuanceFixture) approvedRequest(t *testing.T, item model.StockItem, qty int, requester uuid.UUID) string {
	t.Helper()
	submitted, err := f.requests.Submit(context.Background(), requester.String(), SubmitRequestInput{
		Lines: []RequestLineInput{{ItemID: item.ID.String(), Quantity: qty}},
	})
	require.NoError(t, err)
	_, err = f.requests.Approve(context.Background(), uuid.New().String(), submitted.ID, DecisionInput{})
	require.NoError(t, err)
	return submitted.ID
}

func TestIssueCreatesOneRecordPerLine(t *testing.T) {
	f := newIssuanceFixture()
	gauze := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})
	masks := f.itemRepo.add(model.StockItem{Name: "Masks", Quantity: 30})
	requester := uuid.New()

	submitted, err := f.requests.Submit(context.Background(), requester.String(), SubmitRequestInput{
		Lines: []RequestLineInput{
			{ItemID: gauze.ID.String(), Quantity: 5},
			{ItemID: masks.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)
	_, err = f.requests.Approve(context.Background(), uuid.New().String(), submitted.ID, DecisionInput{})
	require.NoError(t, err)

	issuedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.issuance.now = func() time.Time { return issuedAt }

	issued, err := f.issuance.Issue(context.Background(), uuid.New().String(), submitted.ID, IssueRequestInput{
		ReturnDueInDays: 14,
		IssuedTo:        "Ward B",
	})
	require.NoError(t, err)

	require.Len(t, issued, 2)
	for _, record := range issued {
		assert.Equal(t, requester.String(), record.HolderID)
		assert.Equal(t, submitted.ID, record.RequestID)
		assert.Equal(t, issuedAt.AddDate(0, 0, 14).Format(time.RFC3339), record.ReturnDue)
		assert.False(t, record.Returned)
	}

	// Issuing does not deduct again; approval already did.
	assert.Equal(t, 25, f.itemRepo.quantity(gauze.ID))
	assert.Equal(t, 27, f.itemRepo.quantity(masks.ID))
	assert.Contains(t, f.auditRepo.actions(), model.ActionIssueItems)
}

func TestIssueRefusesPendingRequest(t *testing.T) {
	f := newIssuanceFixture()
	item := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})

	submitted, err := f.requests.Submit(context.Background(), uuid.New().String(), SubmitRequestInput{
		Lines: []RequestLineInput{{ItemID: item.ID.String(), Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = f.issuance.Issue(context.Background(), uuid.New().String(), submitted.ID, IssueRequestInput{ReturnDueInDays: 7})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestIssueRefusesRejectedRequest(t *testing.T) {
	f := newIssuanceFixture()
	item := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})

	submitted, err := f.requests.Submit(context.Background(), uuid.New().String(), SubmitRequestInput{
		Lines: []RequestLineInput{{ItemID: item.ID.String(), Quantity: 5}},
	})
	require.NoError(t, err)
	_, err = f.requests.Reject(context.Background(), uuid.New().String(), submitted.ID, "no")
	require.NoError(t, err)

	_, err = f.issuance.Issue(context.Background(), uuid.New().String(), submitted.ID, IssueRequestInput{ReturnDueInDays: 7})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestIssueRefusesDoubleIssue(t *testing.T) {
	f := newIssuanceFixture()
	item := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})
	requestID := f.approvedRequest(t, item, 5, uuid.New())

	_, err := f.issuance.Issue(context.Background(), uuid.New().String(), requestID, IssueRequestInput{ReturnDueInDays: 7})
	require.NoError(t, err)

	_, err = f.issuance.Issue(context.Background(), uuid.New().String(), requestID, IssueRequestInput{ReturnDueInDays: 7})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestIssueValidatesDueWindow(t *testing.T) {
	f := newIssuanceFixture()
	item := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})
	requestID := f.approvedRequest(t, item, 5, uuid.New())

	for _, days := range []int{0, -1, 366} {
		_, err := f.issuance.Issue(context.Background(), uuid.New().String(), requestID, IssueRequestInput{ReturnDueInDays: days})
		require.Error(t, err)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	}
}

func TestReturnCreditsStockExactlyOnce(t *testing.T) {
	f := newIssuanceFixture()
	item := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})
	requestID := f.approvedRequest(t, item, 5, uuid.New())
	assert.Equal(t, 25, f.itemRepo.quantity(item.ID))

	issued, err := f.issuance.Issue(context.Background(), uuid.New().String(), requestID, IssueRequestInput{ReturnDueInDays: 7})
	require.NoError(t, err)
	require.Len(t, issued, 1)

	returned, err := f.issuance.MarkReturned(context.Background(), uuid.New().String(), issued[0].ID, ReturnInput{})
	require.NoError(t, err)
	assert.True(t, returned.Returned)
	assert.NotEmpty(t, returned.ReturnedAt)
	assert.Equal(t, 30, f.itemRepo.quantity(item.ID))

	// Second return must not credit again.
	_, err = f.issuance.MarkReturned(context.Background(), uuid.New().String(), issued[0].ID, ReturnInput{})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
	assert.Equal(t, 30, f.itemRepo.quantity(item.ID))
}

func TestTransferReassignsHolderAndRecordsTrail(t *testing.T) {
	f := newIssuanceFixture()
	item := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})
	alice := f.userRepo.add(model.User{Username: "alice", Email: "alice@example.com", Role: model.RoleStaff})
	bob := f.userRepo.add(model.User{Username: "bob", Email: "bob@example.com", Role: model.RoleStaff})

	requestID := f.approvedRequest(t, item, 5, alice.ID)
	issued, err := f.issuance.Issue(context.Background(), uuid.New().String(), requestID, IssueRequestInput{ReturnDueInDays: 7})
	require.NoError(t, err)
	require.Len(t, issued, 1)

	transferred, err := f.issuance.Transfer(context.Background(), alice.ID.String(), issued[0].ID, TransferInput{
		ToUserID: bob.ID.String(),
		Notes:    "shift change",
	})
	require.NoError(t, err)

	assert.Equal(t, bob.ID.String(), transferred.HolderID)
	assert.Equal(t, 25, f.itemRepo.quantity(item.ID)) // no stock movement

	trail, total, err := f.issuance.ListTransfers(context.Background(), 1, 20, issued[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, trail, 1)
	assert.Equal(t, alice.ID.String(), trail[0].FromUserID)
	assert.Equal(t, bob.ID.String(), trail[0].ToUserID)
}

func TestTransferRequiresCurrentHolder(t *testing.T) {
	f := newIssuanceFixture()
	item := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})
	alice := f.userRepo.add(model.User{Username: "alice", Email: "alice@example.com", Role: model.RoleStaff})
	bob := f.userRepo.add(model.User{Username: "bob", Email: "bob@example.com", Role: model.RoleStaff})
	carol := f.userRepo.add(model.User{Username: "carol", Email: "carol@example.com", Role: model.RoleStaff})

	requestID := f.approvedRequest(t, item, 5, alice.ID)
	issued, err := f.issuance.Issue(context.Background(), uuid.New().String(), requestID, IssueRequestInput{ReturnDueInDays: 7})
	require.NoError(t, err)

	// Bob does not hold the item.
	_, err = f.issuance.Transfer(context.Background(), bob.ID.String(), issued[0].ID, TransferInput{ToUserID: carol.ID.String()})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestTransferRefusesReturnedItem(t *testing.T) {
	f := newIssuanceFixture()
	item := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})
	alice := f.userRepo.add(model.User{Username: "alice", Email: "alice@example.com", Role: model.RoleStaff})
	bob := f.userRepo.add(model.User{Username: "bob", Email: "bob@example.com", Role: model.RoleStaff})

	requestID := f.approvedRequest(t, item, 5, alice.ID)
	issued, err := f.issuance.Issue(context.Background(), uuid.New().String(), requestID, IssueRequestInput{ReturnDueInDays: 7})
	require.NoError(t, err)
	_, err = f.issuance.MarkReturned(context.Background(), alice.ID.String(), issued[0].ID, ReturnInput{})
	require.NoError(t, err)

	_, err = f.issuance.Transfer(context.Background(), alice.ID.String(), issued[0].ID, TransferInput{ToUserID: bob.ID.String()})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestTransferRejectsSelfAndUnknownRecipient(t *testing.T) {
	f := newIssuanceFixture()
	alice := f.userRepo.add(model.User{Username: "alice", Email: "alice@example.com", Role: model.RoleStaff})

	_, err := f.issuance.Transfer(context.Background(), alice.ID.String(), uuid.New().String(), TransferInput{ToUserID: alice.ID.String()})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.issuance.Transfer(context.Background(), alice.ID.String(), uuid.New().String(), TransferInput{ToUserID: uuid.New().String()})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestOverdueDaysComputedAgainstDueDate(t *testing.T) {
	f := newIssuanceFixture()
	item := f.itemRepo.add(model.StockItem{Name: "Gauze", Quantity: 30})
	requestID := f.approvedRequest(t, item, 5, uuid.New())

	issuedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.issuance.now = func() time.Time { return issuedAt }

	issued, err := f.issuance.Issue(context.Background(), uuid.New().String(), requestID, IssueRequestInput{ReturnDueInDays: 7})
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.False(t, issued[0].Overdue)

	// Ten days after issuance with a seven-day window: three days overdue.
	f.issuance.now = func() time.Time { return issuedAt.AddDate(0, 0, 10) }

	record, err := f.issuance.Get(context.Background(), issued[0].ID)
	require.NoError(t, err)
	assert.True(t, record.Overdue)
	assert.Equal(t, 3, record.DaysOverdue)
}

func TestListFiltersOverdueAndHolder(t *testing.T) {
	f := newIssuanceFixture()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	f.issuance.now = func() time.Time { return now }

	alice := uuid.New()
	bob := uuid.New()

	f.issuedRepo.add(model.IssuedItem{
		ItemID: uuid.New(), HolderID: alice, Quantity: 1,
		IssuedAt: now.AddDate(0, 0, -10), ReturnDue: now.AddDate(0, 0, -3),
	})
	f.issuedRepo.add(model.IssuedItem{
		ItemID: uuid.New(), HolderID: alice, Quantity: 1,
		IssuedAt: now.AddDate(0, 0, -1), ReturnDue: now.AddDate(0, 0, 6),
	})
	returnedAt := now.AddDate(0, 0, -1)
	f.issuedRepo.add(model.IssuedItem{
		ItemID: uuid.New(), HolderID: bob, Quantity: 1,
		IssuedAt: now.AddDate(0, 0, -10), ReturnDue: now.AddDate(0, 0, -5),
		Returned: true, ReturnedAt: &returnedAt,
	})

	overdue, total, err := f.issuance.List(context.Background(), 1, 20, IssuedFilter{OverdueOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, overdue, 1)
	assert.Equal(t, alice.String(), overdue[0].HolderID)
	assert.Equal(t, 3, overdue[0].DaysOverdue)

	mine, total, err := f.issuance.List(context.Background(), 1, 20, IssuedFilter{HolderID: alice.String()})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)

	active, total, err := f.issuance.List(context.Background(), 1, 20, IssuedFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, active, 2)
}
