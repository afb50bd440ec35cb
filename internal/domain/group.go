package domain

// Member roles within a group
const (
	RoleAdmin  = "ADMIN"  // Can manage members, execute proposals
	RoleMember = "MEMBER" // Can create bills, propose, vote
	RoleViewer = "VIEWER" // Read-only membership
)

// Group Model
type Group struct {
	ID              uint   `gorm:"primaryKey"` // Primary key
	Name            string `gorm:"not null"`   // Display name
	Description     string // Optional free-text description
	Currency        string `gorm:"size:8;default:USD"` // Default currency for new bills
	TreasuryAddress string // Default payee address for group bills
	VotingThreshold int    `gorm:"default:51"`           // Approval threshold, percent of cast votes
	InviteOnly      bool   `gorm:"default:true"`         // Joining requires an invite token
	IsActive        bool   `gorm:"default:true"`         // Soft-disable flag
	CreatedBy       uint   // User who created the group (its first ADMIN)
	CreatedAt       int64  `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds

	Members []GroupMember `gorm:"constraint:OnDelete:CASCADE"` // Memberships owned by the group
	Bills   []Bill        `gorm:"constraint:OnDelete:CASCADE"` // Bills owned by the group
}

// GroupMember Model: one active row per (group, user)
type GroupMember struct {
	ID       uint   `gorm:"primaryKey"`                              // Primary key
	GroupID  uint   `gorm:"uniqueIndex:idx_group_user;not null"`     // Foreign key to Group
	UserID   uint   `gorm:"uniqueIndex:idx_group_user;not null"`     // Foreign key to User
	Role     string `gorm:"size:16;default:MEMBER"`                  // ADMIN, MEMBER or VIEWER
	IsActive bool   `gorm:"default:true"`                            // Soft-removal flag
	JoinedAt int64  `gorm:"autoCreateTime:milli"`                    // Timestamp of joining in milliseconds
}
