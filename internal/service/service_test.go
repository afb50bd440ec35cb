package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	roomydb "roomy/internal/db"
	"roomy/internal/domain"
)

// newTestDB opens a throwaway sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "roomy_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(roomydb.Models()...))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	user := domain.User{Email: email, PasswordHash: "x", DisplayName: email, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// seedGroup creates a group with the given threshold; creator becomes ADMIN.
func seedGroup(t *testing.T, db *gorm.DB, creator *domain.User, threshold int) *domain.Group {
	t.Helper()
	group, err := NewGroupService(db, nil).CreateGroup(creator.ID, CreateGroupInput{
		Name:            "Apartment 4B",
		Currency:        "USD",
		TreasuryAddress: "0xtreasury",
		VotingThreshold: threshold,
	})
	require.NoError(t, err)
	return group
}

func seedMember(t *testing.T, db *gorm.DB, group *domain.Group, user *domain.User, role string) {
	t.Helper()
	member := domain.GroupMember{GroupID: group.ID, UserID: user.ID, Role: role, IsActive: true}
	require.NoError(t, db.Create(&member).Error)
}

// seedDraftBill creates a DRAFT bill owned by the given user.
func seedDraftBill(t *testing.T, db *gorm.DB, group *domain.Group, creator *domain.User, amount string) *domain.Bill {
	t.Helper()
	total, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	bill, err := NewBillService(db).CreateBill(creator.ID, CreateBillInput{
		GroupID:      group.ID,
		Title:        "Rent",
		TotalAmount:  total,
		Currency:     "USD",
		PayeeAddress: "0xlandlord",
	})
	require.NoError(t, err)
	return bill
}

// seedPendingProposal opens voting on a fresh DRAFT bill.
func seedPendingProposal(t *testing.T, db *gorm.DB, group *domain.Group, creator *domain.User) (*domain.Bill, *domain.Proposal) {
	t.Helper()
	bill := seedDraftBill(t, db, group, creator, "900.00")
	proposal, err := NewProposalService(db).CreateProposal(creator.ID, CreateProposalInput{
		BillID:         bill.ID,
		VotingDeadline: time.Now().Add(7 * 24 * time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	return bill, proposal
}

func reloadBill(t *testing.T, db *gorm.DB, id uint) *domain.Bill {
	t.Helper()
	var bill domain.Bill
	require.NoError(t, db.First(&bill, id).Error)
	return &bill
}

func reloadProposal(t *testing.T, db *gorm.DB, id uint) *domain.Proposal {
	t.Helper()
	var proposal domain.Proposal
	require.NoError(t, db.First(&proposal, id).Error)
	return &proposal
}
