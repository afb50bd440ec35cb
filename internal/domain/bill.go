package domain

import "github.com/shopspring/decimal"

// Bill lifecycle states
const (
	BillDraft     = "DRAFT"     // Mutable, not yet proposed
	BillProposed  = "PROPOSED"  // Has a PENDING proposal
	BillApproved  = "APPROVED"  // Proposal crossed the voting threshold
	BillRejected  = "REJECTED"  // Proposal expired or was rejected
	BillPaid      = "PAID"      // Settlement transaction completed
	BillCancelled = "CANCELLED" // Soft-deleted
)

// Bill Model
type Bill struct {
	ID           uint            `gorm:"primaryKey"`             // Primary key
	GroupID      uint            `gorm:"index;not null"`         // Foreign key to Group
	CreatedBy    uint            `gorm:"not null"`               // User who created the bill
	Title        string          `gorm:"not null"`               // Short title, e.g. "Rent"
	Description  string          // Optional free-text description
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,2)"`     // Total to be paid out
	Currency     string          `gorm:"size:8;default:USD"`     // ISO currency code
	PayeeAddress string          // Destination address for the payout
	Status       string          `gorm:"size:16;default:DRAFT"`  // Lifecycle state
	DueDate      *int64          // Optional due timestamp in milliseconds

	// Recurring bills are cloned as fresh DRAFTs by the sweep when NextDueAt passes.
	IsRecurring    bool   `gorm:"default:false"`
	RecurrenceDays int    // Days between occurrences
	NextDueAt      *int64 // Next occurrence in milliseconds

	CreatedAt int64 `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"` // Timestamp of last update in milliseconds

	Items []BillItem `gorm:"constraint:OnDelete:CASCADE"` // Line items owned by the bill
}

// BillItem Model
type BillItem struct {
	ID          uint            `gorm:"primaryKey"`         // Primary key
	BillID      uint            `gorm:"index;not null"`     // Foreign key to Bill
	Description string          `gorm:"not null"`           // Line item description
	Amount      decimal.Decimal `gorm:"type:decimal(20,2)"` // Per-unit amount
	Quantity    int             `gorm:"default:1"`          // Unit count
}
