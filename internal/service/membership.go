package service

import (
	"errors"

	"gorm.io/gorm"

	"roomy/internal/domain"
)

// Membership answers "is this user an active member of that group, and in
// what role". Every check hits the store; membership is the authorization
// source of truth and is deliberately not cached.
type Membership struct {
	db *gorm.DB
}

// NewMembership creates a Membership oracle over the given store handle.
func NewMembership(db *gorm.DB) *Membership {
	return &Membership{db: db}
}

// IsActiveMember reports whether the user has an active membership in the group.
func (m *Membership) IsActiveMember(userID, groupID uint) (bool, error) {
	var count int64
	err := m.db.Model(&domain.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RoleOf returns the user's role in the group, or ErrUnauthorized when no
// active membership exists.
func (m *Membership) RoleOf(userID, groupID uint) (string, error) {
	var member domain.GroupMember
	err := m.db.
		Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

// requireMember is the guard at the top of every mutating operation: it
// resolves the caller's role inside the given transaction and fails with
// ErrUnauthorized when the caller is not an active member.
func requireMember(tx *gorm.DB, userID, groupID uint) (string, error) {
	var member domain.GroupMember
	err := tx.
		Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}
