package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomy/internal/domain"
)

func TestCreateBillWithItems(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	group := seedGroup(t, db, admin, 51)

	bill, err := NewBillService(db).CreateBill(admin.ID, CreateBillInput{
		GroupID:     group.ID,
		Title:       "Groceries",
		TotalAmount: decimal.RequireFromString("84.50"),
		Items: []BillItemInput{
			{Description: "Milk", Amount: decimal.RequireFromString("4.50"), Quantity: 1},
			{Description: "Coffee", Amount: decimal.RequireFromString("20.00"), Quantity: 4},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.BillDraft, bill.Status)
	assert.Len(t, bill.Items, 2)
	// Currency and payee default from the group.
	assert.Equal(t, "USD", bill.Currency)
	assert.Equal(t, "0xtreasury", bill.PayeeAddress)
	assert.True(t, bill.TotalAmount.Equal(decimal.RequireFromString("84.50")))

	var items int64
	require.NoError(t, db.Model(&domain.BillItem{}).Where("bill_id = ?", bill.ID).Count(&items).Error)
	assert.EqualValues(t, 2, items)
}

func TestCreateBillAuthorization(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	outsider := seedUser(t, db, "x@roomy.dev")
	viewer := seedUser(t, db, "v@roomy.dev")
	group := seedGroup(t, db, admin, 51)
	seedMember(t, db, group, viewer, domain.RoleViewer)

	svc := NewBillService(db)
	input := CreateBillInput{GroupID: group.ID, Title: "Rent", TotalAmount: decimal.RequireFromString("900")}

	_, err := svc.CreateBill(outsider.ID, input)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.CreateBill(viewer.ID, input)
	require.ErrorIs(t, err, ErrForbidden)

	var count int64
	require.NoError(t, db.Model(&domain.Bill{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateBillOnlyWhileDraft(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	group := seedGroup(t, db, admin, 51)
	bill, _ := seedPendingProposal(t, db, group, admin)

	title := "Rent (updated)"
	_, err := NewBillService(db).UpdateBill(bill.ID, admin.ID, UpdateBillInput{Title: &title})
	require.ErrorIs(t, err, ErrInvalidState) // bill is PROPOSED
}

func TestUpdateBillByCreatorOrAdminOnly(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	creator := seedUser(t, db, "b@roomy.dev")
	other := seedUser(t, db, "c@roomy.dev")
	group := seedGroup(t, db, admin, 51)
	seedMember(t, db, group, creator, domain.RoleMember)
	seedMember(t, db, group, other, domain.RoleMember)
	bill := seedDraftBill(t, db, group, creator, "900.00")

	svc := NewBillService(db)
	title := "Rent v2"

	_, err := svc.UpdateBill(bill.ID, other.ID, UpdateBillInput{Title: &title})
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.UpdateBill(bill.ID, creator.ID, UpdateBillInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Rent v2", updated.Title)

	// A group admin may edit someone else's draft.
	title = "Rent v3"
	updated, err = svc.UpdateBill(bill.ID, admin.ID, UpdateBillInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Rent v3", updated.Title)
}

func TestUpdateBillReplacesItems(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	group := seedGroup(t, db, admin, 51)

	svc := NewBillService(db)
	bill, err := svc.CreateBill(admin.ID, CreateBillInput{
		GroupID:     group.ID,
		Title:       "Utilities",
		TotalAmount: decimal.RequireFromString("120"),
		Items: []BillItemInput{
			{Description: "Power", Amount: decimal.RequireFromString("80")},
			{Description: "Water", Amount: decimal.RequireFromString("40")},
		},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateBill(bill.ID, admin.ID, UpdateBillInput{
		Items: []BillItemInput{
			{Description: "Power", Amount: decimal.RequireFromString("120")},
		},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Items, 1)

	var items int64
	require.NoError(t, db.Model(&domain.BillItem{}).Where("bill_id = ?", bill.ID).Count(&items).Error)
	assert.EqualValues(t, 1, items)
}

func TestDeleteBillCancelsPendingProposal(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	group := seedGroup(t, db, admin, 51)
	bill, proposal := seedPendingProposal(t, db, group, admin)

	require.NoError(t, NewBillService(db).DeleteBill(bill.ID, admin.ID))

	assert.Equal(t, domain.BillCancelled, reloadBill(t, db, bill.ID).Status)
	assert.Equal(t, domain.ProposalCancelled, reloadProposal(t, db, proposal.ID).Status)
}

func TestDeleteBillBlockedByApprovedProposal(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	group := seedGroup(t, db, admin, 51)
	bill, proposal := seedPendingProposal(t, db, group, admin)

	_, err := NewProposalService(db).Vote(admin.ID, proposal.ID, domain.VoteFor, "")
	require.NoError(t, err)

	err = NewBillService(db).DeleteBill(bill.ID, admin.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, domain.BillApproved, reloadBill(t, db, bill.ID).Status)
}

func TestDeleteBillTwiceRejected(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	group := seedGroup(t, db, admin, 51)
	bill := seedDraftBill(t, db, group, admin, "900.00")

	svc := NewBillService(db)
	require.NoError(t, svc.DeleteBill(bill.ID, admin.ID))
	require.ErrorIs(t, svc.DeleteBill(bill.ID, admin.ID), ErrInvalidState)
}

func TestSpawnDueRecurring(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	group := seedGroup(t, db, admin, 51)

	svc := NewBillService(db)
	bill, err := svc.CreateBill(admin.ID, CreateBillInput{
		GroupID:        group.ID,
		Title:          "Rent",
		TotalAmount:    decimal.RequireFromString("900"),
		IsRecurring:    true,
		RecurrenceDays: 30,
		Items: []BillItemInput{
			{Description: "Monthly rent", Amount: decimal.RequireFromString("900")},
		},
	})
	require.NoError(t, err)

	// Force the schedule into the past.
	past := time.Now().Add(-time.Hour).UnixMilli()
	require.NoError(t, db.Model(&domain.Bill{}).Where("id = ?", bill.ID).
		Update("next_due_at", past).Error)

	spawned, err := svc.SpawnDueRecurring(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, spawned)

	var bills []domain.Bill
	require.NoError(t, db.Preload("Items").Where("group_id = ?", group.ID).Order("id asc").Find(&bills).Error)
	require.Len(t, bills, 2)
	clone := bills[1]
	assert.Equal(t, domain.BillDraft, clone.Status)
	assert.False(t, clone.IsRecurring) // clones are one-shot
	assert.Len(t, clone.Items, 1)

	// Schedule advanced: a second sweep spawns nothing.
	spawned, err = svc.SpawnDueRecurring(time.Now())
	require.NoError(t, err)
	assert.Zero(t, spawned)
}
