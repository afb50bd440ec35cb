package domain

import "github.com/shopspring/decimal"

// Transaction lifecycle states
const (
	TxPending    = "PENDING"    // Created locally, gateway outcome unknown
	TxProcessing = "PROCESSING" // Gateway accepted the intent
	TxCompleted  = "COMPLETED"  // Gateway reports the transfer settled
	TxFailed     = "FAILED"     // Gateway reports a terminal failure
	TxCancelled  = "CANCELLED"  // Cancelled before submission
)

// Transaction types
const (
	TxBillPayment = "BILL_PAYMENT"
	TxDeposit     = "DEPOSIT"
	TxWithdrawal  = "WITHDRAWAL"
	TxRefund      = "REFUND"
	TxTransfer    = "TRANSFER"
)

// Transaction Model
type Transaction struct {
	ID         uint            `gorm:"primaryKey"`              // Primary key
	BillID     *uint           `gorm:"index"`                   // Bill being settled, if any
	GroupID    *uint           `gorm:"index"`                   // Group context, if any
	SenderID   *uint           // Initiating user, if any
	ReceiverID *uint           // Receiving user, if any
	Amount     decimal.Decimal `gorm:"type:decimal(20,2)"`      // Transfer amount
	Currency   string          `gorm:"size:8;default:USD"`      // ISO currency code
	Status     string          `gorm:"size:16;default:PENDING"` // Lifecycle state
	Type       string          `gorm:"size:16;not null"`        // BILL_PAYMENT, DEPOSIT, ...
	Metadata   string          `gorm:"type:text"`               // Opaque JSON blob: gateway intent id, tx hash
	CreatedAt  int64           `gorm:"autoCreateTime:milli"`    // Timestamp of creation in milliseconds
	UpdatedAt  int64           `gorm:"autoUpdateTime:milli"`    // Timestamp of last update in milliseconds
}
