package domain

// User Model
type User struct {
	ID            uint   `gorm:"primaryKey"`        // Primary key
	Email         string `gorm:"unique;not null"`   // Unique login email, stored lowercase
	PasswordHash  string `gorm:"not null" json:"-"` // bcrypt hash, never serialized
	DisplayName   string // Name shown to other group members
	WalletAddress string // Optional payout address for settlements
	IsAdmin       bool   `gorm:"default:false"`        // Platform-level admin (admin API access)
	IsActive      bool   `gorm:"default:true"`         // Soft-disable flag
	CreatedAt     int64  `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
