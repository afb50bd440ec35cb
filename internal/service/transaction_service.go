package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"roomy/internal/domain"
	"roomy/internal/gateway"
)

// TransactionService creates settlement transactions and reconciles them
// against the transfer gateway. The gateway is only ever called after the
// local transaction row has committed, so a hung provider call never holds a
// database transaction open.
type TransactionService struct {
	db *gorm.DB
	gw gateway.Client
}

// NewTransactionService creates a TransactionService over the given store and
// gateway.
func NewTransactionService(db *gorm.DB, gw gateway.Client) *TransactionService {
	return &TransactionService{db: db, gw: gw}
}

// txMetadata is the opaque metadata blob stored on a Transaction row.
type txMetadata struct {
	IntentID string `json:"intent_id,omitempty"`
	TxHash   string `json:"tx_hash,omitempty"`
}

func (m txMetadata) encode() string {
	b, _ := json.Marshal(m)
	return string(b)
}

func decodeMetadata(s string) txMetadata {
	var m txMetadata
	if s != "" {
		_ = json.Unmarshal([]byte(s), &m)
	}
	return m
}

// CreatePayment starts settlement of an approved and executed bill: a PENDING
// Transaction row is committed first, then a transfer intent is created with
// the gateway. A gateway failure leaves the row PENDING for reconciliation —
// the intent may have succeeded upstream despite a local timeout — and
// surfaces ErrGatewayFailure.
func (s *TransactionService) CreatePayment(ctx context.Context, userID, billID uint) (*domain.Transaction, error) {
	var txn domain.Transaction
	var bill domain.Bill
	err := s.db.Transaction(func(tx *gorm.DB) error {
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
		if role == domain.RoleViewer {
			return ErrForbidden
		}
		if bill.Status != domain.BillApproved {
			return fmt.Errorf("%w: bill is %s, only APPROVED bills can be paid", ErrInvalidState, bill.Status)
		}
		var proposal domain.Proposal
		if err := tx.Where("bill_id = ?", bill.ID).First(&proposal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: bill has no proposal", ErrInvalidState)
			}
			return err
		}
		if proposal.Status != domain.ProposalExecuted {
			return fmt.Errorf("%w: proposal is %s, execute it before paying", ErrInvalidState, proposal.Status)
		}
		var open int64
		if err := tx.Model(&domain.Transaction{}).
			Where("bill_id = ? AND type = ? AND status NOT IN ?",
				bill.ID, domain.TxBillPayment, []string{domain.TxFailed, domain.TxCancelled}).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: bill already has an open payment", ErrConflict)
		}
		groupID := bill.GroupID
		txn = domain.Transaction{
			BillID:   &bill.ID,
			GroupID:  &groupID,
			SenderID: &userID,
			Amount:   bill.TotalAmount,
			Currency: bill.Currency,
			Status:   domain.TxPending,
			Type:     domain.TxBillPayment,
			Metadata: txMetadata{}.encode(),
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}

	// Gateway call happens strictly after the local commit.
	amountMinor := bill.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart()
	intentID, err := s.gw.CreateIntent(ctx, bill.PayeeAddress, amountMinor, bill.Currency)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"transaction_id": txn.ID,
			"bill_id":        bill.ID,
			"error":          err.Error(),
		}).Error("Transfer intent creation failed")
		return &txn, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	meta := txMetadata{IntentID: intentID}
	if err := s.db.Model(&domain.Transaction{}).Where("id = ?", txn.ID).
		Updates(map[string]any{"status": domain.TxProcessing, "metadata": meta.encode()}).Error; err != nil {
		return nil, err
	}
	txn.Status = domain.TxProcessing
	txn.Metadata = meta.encode()
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"bill_id":        bill.ID,
		"transaction_id": txn.ID,
		"intent_id":      intentID,
		"amount":         bill.TotalAmount.String(),
	}).Info("Payment submitted")
	return &txn, nil
}

// RefreshTransaction polls the gateway for the transaction's intent status and
// applies the outcome: completed marks the transaction COMPLETED and the bill
// PAID, failed marks it FAILED. A transaction is only ever marked FAILED here,
// by this explicit reconciliation step, never implicitly on a gateway error.
func (s *TransactionService) RefreshTransaction(ctx context.Context, userID, transactionID uint) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := s.db.First(&txn, transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if txn.GroupID != nil {
		if _, err := requireMember(s.db, userID, *txn.GroupID); err != nil {
			return nil, err
		}
	}
	if txn.Status == domain.TxCompleted || txn.Status == domain.TxFailed || txn.Status == domain.TxCancelled {
		return &txn, nil
	}
	meta := decodeMetadata(txn.Metadata)
	if meta.IntentID == "" {
		return nil, fmt.Errorf("%w: transaction has no transfer intent", ErrInvalidState)
	}
	status, err := s.gw.GetIntentStatus(ctx, meta.IntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	switch status.Status {
	case gateway.StatusCompleted:
		meta.TxHash = status.TxHash
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&domain.Transaction{}).Where("id = ?", txn.ID).
				Updates(map[string]any{"status": domain.TxCompleted, "metadata": meta.encode()}).Error; err != nil {
				return err
			}
			if txn.BillID == nil {
				return nil
			}
			return tx.Model(&domain.Bill{}).Where("id = ?", *txn.BillID).
				Update("status", domain.BillPaid).Error
		})
		if err != nil {
			return nil, err
		}
		txn.Status = domain.TxCompleted
		txn.Metadata = meta.encode()
		logrus.WithFields(logrus.Fields{
			"transaction_id": txn.ID,
			"tx_hash":        status.TxHash,
		}).Info("Transaction completed")
	case gateway.StatusFailed:
		if err := s.db.Model(&domain.Transaction{}).Where("id = ?", txn.ID).
			Update("status", domain.TxFailed).Error; err != nil {
			return nil, err
		}
		txn.Status = domain.TxFailed
		logrus.WithField("transaction_id", txn.ID).Warn("Transaction failed at gateway")
	default:
		// Still pending upstream; mark locally PROCESSING if the intent was
		// created but the status update was lost.
		if txn.Status == domain.TxPending {
			if err := s.db.Model(&domain.Transaction{}).Where("id = ?", txn.ID).
				Update("status", domain.TxProcessing).Error; err != nil {
				return nil, err
			}
			txn.Status = domain.TxProcessing
		}
	}
	return &txn, nil
}

// RecordDeposit records a settled member deposit into the group treasury as a
// ledger entry. No gateway involvement; deposits arrive out of band.
func (s *TransactionService) RecordDeposit(userID, groupID uint, amount decimal.Decimal, currency string) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidState)
	}
	var txn domain.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := requireMember(tx, userID, groupID); err != nil {
			return err
		}
		gid := groupID
		txn = domain.Transaction{
			GroupID:  &gid,
			SenderID: &userID,
			Amount:   amount,
			Currency: currency,
			Status:   domain.TxCompleted,
			Type:     domain.TxDeposit,
			Metadata: txMetadata{}.encode(),
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"group_id":       groupID,
		"transaction_id": txn.ID,
		"amount":         amount.String(),
	}).Info("Deposit recorded")
	return &txn, nil
}

// ListGroupTransactions returns a page of a group's transactions, newest
// first, with the total row count.
func (s *TransactionService) ListGroupTransactions(userID, groupID uint, page, pageSize int) ([]domain.Transaction, int64, error) {
	if _, err := requireMember(s.db, userID, groupID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	var total int64
	if err := s.db.Model(&domain.Transaction{}).
		Where("group_id = ?", groupID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txns []domain.Transaction
	err := s.db.Where("group_id = ?", groupID).
		Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txns).Error
	return txns, total, err
}
