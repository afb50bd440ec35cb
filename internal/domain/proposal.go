package domain

// Proposal lifecycle states
const (
	ProposalPending   = "PENDING"   // Open for voting
	ProposalApproved  = "APPROVED"  // Crossed the group's voting threshold
	ProposalRejected  = "REJECTED"  // Explicitly rejected
	ProposalExecuted  = "EXECUTED"  // Approved and acted upon
	ProposalExpired   = "EXPIRED"   // Deadline passed without approval
	ProposalCancelled = "CANCELLED" // Bill was cancelled while voting was open
)

// Vote types
const (
	VoteFor     = "FOR"
	VoteAgainst = "AGAINST"
	VoteAbstain = "ABSTAIN"
)

// Proposal Model: at most one per bill, enforced by the unique index on BillID.
// The vote counters are denormalized; they are only ever updated in the same
// transaction as the Vote insert, so they always match the vote rows.
type Proposal struct {
	ID             uint   `gorm:"primaryKey"`              // Primary key
	BillID         uint   `gorm:"uniqueIndex;not null"`    // Foreign key to Bill, one proposal per bill
	GroupID        uint   `gorm:"index;not null"`          // Foreign key to Group (denormalized from the bill)
	CreatedBy      uint   `gorm:"not null"`                // User who opened the proposal
	Title          string // Optional title, defaults to the bill title
	Description    string // Optional free-text description
	Status         string `gorm:"size:16;default:PENDING"` // Lifecycle state
	VotesFor       int    `gorm:"default:0"`               // Count of FOR votes
	VotesAgainst   int    `gorm:"default:0"`               // Count of AGAINST votes
	VotesAbstain   int    `gorm:"default:0"`               // Count of ABSTAIN votes
	VotingDeadline int64  `gorm:"not null"`                // Voting cutoff in milliseconds
	ExecutedAt     *int64 // Set when the proposal is executed
	CreatedAt      int64  `gorm:"autoCreateTime:milli"`    // Timestamp of creation in milliseconds

	Votes []Vote `gorm:"constraint:OnDelete:CASCADE"` // Individual votes owned by the proposal
}

// Vote Model: one per (proposal, user), enforced by the composite unique index.
// Votes are never revised; a second attempt fails.
type Vote struct {
	ID         uint   `gorm:"primaryKey"`                             // Primary key
	ProposalID uint   `gorm:"uniqueIndex:idx_proposal_user;not null"` // Foreign key to Proposal
	UserID     uint   `gorm:"uniqueIndex:idx_proposal_user;not null"` // Voting user
	VoteType   string `gorm:"size:8;not null"`                        // FOR, AGAINST or ABSTAIN
	Comment    string // Optional comment attached to the vote
	VotedAt    int64  `gorm:"autoCreateTime:milli"` // Timestamp of the vote in milliseconds
}
