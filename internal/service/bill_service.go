package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"roomy/internal/domain"
)

// BillService manages the bill side of the lifecycle. Bills are mutable only
// while DRAFT and are never hard-deleted through this API.
type BillService struct {
	db *gorm.DB
}

// NewBillService creates a BillService over the given store handle.
func NewBillService(db *gorm.DB) *BillService {
	return &BillService{db: db}
}

// BillItemInput is one line item of a new bill.
type BillItemInput struct {
	Description string
	Amount      decimal.Decimal
	Quantity    int
}

// CreateBillInput carries the caller-supplied fields for a new bill.
type CreateBillInput struct {
	GroupID        uint
	Title          string
	Description    string
	TotalAmount    decimal.Decimal
	Currency       string
	PayeeAddress   string
	DueDate        *int64
	IsRecurring    bool
	RecurrenceDays int
	Items          []BillItemInput
}

// CreateBill persists a DRAFT bill with its line items in one atomic write.
// Any active non-viewer member of the group may create bills.
func (s *BillService) CreateBill(userID uint, input CreateBillInput) (*domain.Bill, error) {
	bill := domain.Bill{
		GroupID:        input.GroupID,
		CreatedBy:      userID,
		Title:          input.Title,
		Description:    input.Description,
		TotalAmount:    input.TotalAmount,
		Currency:       input.Currency,
		PayeeAddress:   input.PayeeAddress,
		Status:         domain.BillDraft,
		DueDate:        input.DueDate,
		IsRecurring:    input.IsRecurring,
		RecurrenceDays: input.RecurrenceDays,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var group domain.Group
		if err := tx.First(&group, input.GroupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !group.IsActive {
			return fmt.Errorf("%w: group is disabled", ErrInvalidState)
		}
		role, err := requireMember(tx, userID, input.GroupID)
		if err != nil {
			return err
		}
		if role == domain.RoleViewer {
			return ErrForbidden
		}
		if bill.Currency == "" {
			bill.Currency = group.Currency
		}
		if bill.PayeeAddress == "" {
			bill.PayeeAddress = group.TreasuryAddress
		}
		if bill.IsRecurring && bill.RecurrenceDays > 0 {
			next := time.Now().Add(time.Duration(bill.RecurrenceDays) * 24 * time.Hour).UnixMilli()
			bill.NextDueAt = &next
		}
		for _, item := range input.Items {
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			bill.Items = append(bill.Items, domain.BillItem{
				Description: item.Description,
				Amount:      item.Amount,
				Quantity:    qty,
			})
		}
		return tx.Create(&bill).Error
	})
	if err != nil {
		return nil, err
	}
	// Total and item sum are independent by design; log when they diverge so
	// misbehaving clients are visible.
	if sum := itemSum(bill.Items); len(bill.Items) > 0 && !sum.Equal(bill.TotalAmount) {
		logrus.WithFields(logrus.Fields{
			"bill_id":  bill.ID,
			"total":    bill.TotalAmount.String(),
			"item_sum": sum.String(),
		}).Warn("Bill total does not match item sum")
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"group_id": bill.GroupID,
		"bill_id":  bill.ID,
		"amount":   bill.TotalAmount.String(),
	}).Info("Bill created")
	return &bill, nil
}

func itemSum(items []domain.BillItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// GetBill returns a bill with its line items. The caller must be an active
// member of the bill's group.
func (s *BillService) GetBill(userID, billID uint) (*domain.Bill, error) {
	var bill domain.Bill
	err := s.db.Preload("Items").First(&bill, billID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(s.db, userID, bill.GroupID); err != nil {
		return nil, err
	}
	return &bill, nil
}

// ListGroupBills returns a group's bills, newest first, optionally filtered by
// status.
func (s *BillService) ListGroupBills(userID, groupID uint, status string) ([]domain.Bill, error) {
	if _, err := requireMember(s.db, userID, groupID); err != nil {
		return nil, err
	}
	q := s.db.Preload("Items").Where("group_id = ?", groupID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var bills []domain.Bill
	err := q.Order("created_at desc").Find(&bills).Error
	return bills, err
}

// UpdateBillInput carries the patchable bill fields. Nil fields are left
// unchanged; a non-nil Items replaces the full item set.
type UpdateBillInput struct {
	Title        *string
	Description  *string
	TotalAmount  *decimal.Decimal
	PayeeAddress *string
	DueDate      *int64
	Items        []BillItemInput
}

// UpdateBill patches a bill. The caller must be the bill's creator or a group
// ADMIN, and the bill must still be DRAFT.
func (s *BillService) UpdateBill(billID, userID uint, patch UpdateBillInput) (*domain.Bill, error) {
	var bill domain.Bill
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&bill, billID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		role, err := requireMember(tx, userID, bill.GroupID)
		if err != nil {
			return err
		}
		if bill.CreatedBy != userID && role != domain.RoleAdmin {
			return ErrForbidden
		}
		if bill.Status != domain.BillDraft {
			return fmt.Errorf("%w: bill is %s, only DRAFT bills are mutable", ErrInvalidState, bill.Status)
		}
		if patch.Title != nil {
			bill.Title = *patch.Title
		}
		if patch.Description != nil {
			bill.Description = *patch.Description
		}
		if patch.TotalAmount != nil {
			bill.TotalAmount = *patch.TotalAmount
		}
		if patch.PayeeAddress != nil {
			bill.PayeeAddress = *patch.PayeeAddress
		}
		if patch.DueDate != nil {
			bill.DueDate = patch.DueDate
		}
		if patch.Items != nil {
			if err := tx.Where("bill_id = ?", bill.ID).Delete(&domain.BillItem{}).Error; err != nil {
				return err
			}
			bill.Items = nil
			for _, item := range patch.Items {
				qty := item.Quantity
				if qty <= 0 {
					qty = 1
				}
				bill.Items = append(bill.Items, domain.BillItem{
					BillID:      bill.ID,
					Description: item.Description,
					Amount:      item.Amount,
					Quantity:    qty,
				})
			}
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&bill).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"bill_id": bill.ID,
	}).Info("Bill updated")
	return &bill, nil
}

// DeleteBill soft-deletes a bill by setting status CANCELLED. A PENDING
// proposal on the bill is cancelled in the same transaction; a proposal past
// PENDING blocks deletion.
func (s *BillService) DeleteBill(billID, userID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var bill domain.Bill
		if err := tx.First(&bill, billID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		role, err := requireMember(tx, userID, bill.GroupID)
		if err != nil {
			return err
		}
		if bill.CreatedBy != userID && role != domain.RoleAdmin {
			return ErrForbidden
		}
		if bill.Status == domain.BillCancelled {
			return fmt.Errorf("%w: bill already cancelled", ErrInvalidState)
		}
		var proposal domain.Proposal
		err = tx.Where("bill_id = ?", bill.ID).First(&proposal).Error
		switch {
		case err == nil:
			switch proposal.Status {
			case domain.ProposalPending:
				if err := tx.Model(&proposal).Update("status", domain.ProposalCancelled).Error; err != nil {
					return err
				}
			case domain.ProposalExpired, domain.ProposalCancelled, domain.ProposalRejected:
				// Terminal without side effects, safe to cancel the bill.
			default:
				return fmt.Errorf("%w: proposal is %s, bill cannot be cancelled", ErrInvalidState, proposal.Status)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No proposal yet, nothing to cascade.
		default:
			return err
		}
		return tx.Model(&bill).Update("status", domain.BillCancelled).Error
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"bill_id": billID,
	}).Info("Bill cancelled")
	return nil
}

// SpawnDueRecurring clones every recurring bill whose NextDueAt has passed
// into a fresh DRAFT and advances the schedule. Returns the number of bills
// spawned. Invoked by the sweep command, not by request handlers.
func (s *BillService) SpawnDueRecurring(now time.Time) (int, error) {
	var due []domain.Bill
	if err := s.db.Preload("Items").
		Where("is_recurring = ? AND next_due_at IS NOT NULL AND next_due_at <= ?", true, now.UnixMilli()).
		Find(&due).Error; err != nil {
		return 0, err
	}
	spawned := 0
	for _, src := range due {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			clone := domain.Bill{
				GroupID:      src.GroupID,
				CreatedBy:    src.CreatedBy,
				Title:        src.Title,
				Description:  src.Description,
				TotalAmount:  src.TotalAmount,
				Currency:     src.Currency,
				PayeeAddress: src.PayeeAddress,
				Status:       domain.BillDraft,
			}
			for _, item := range src.Items {
				clone.Items = append(clone.Items, domain.BillItem{
					Description: item.Description,
					Amount:      item.Amount,
					Quantity:    item.Quantity,
				})
			}
			if err := tx.Create(&clone).Error; err != nil {
				return err
			}
			next := now.Add(time.Duration(src.RecurrenceDays) * 24 * time.Hour).UnixMilli()
			return tx.Model(&domain.Bill{}).Where("id = ?", src.ID).
				Update("next_due_at", next).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"bill_id": src.ID,
				"error":   err.Error(),
			}).Error("Failed to spawn recurring bill")
			continue
		}
		spawned++
	}
	if spawned > 0 {
		logrus.WithField("count", spawned).Info("Recurring bills spawned")
	}
	return spawned, nil
}
