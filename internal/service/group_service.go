package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"roomy/internal/domain"
)

// inviteTTL is how long a group invite token stays redeemable.
const inviteTTL = 72 * time.Hour

// GroupService manages groups, memberships and invites.
type GroupService struct {
	db  *gorm.DB
	rdb *redis.Client // Invite token storage; may be nil when redis is not configured
}

// NewGroupService creates a GroupService over the given store and redis handles.
func NewGroupService(db *gorm.DB, rdb *redis.Client) *GroupService {
	return &GroupService{db: db, rdb: rdb}
}

// CreateGroupInput carries the caller-supplied fields for a new group.
type CreateGroupInput struct {
	Name            string
	Description     string
	Currency        string
	TreasuryAddress string
	VotingThreshold int
}

// CreateGroup creates a group and enrolls the creator as its first ADMIN in
// one atomic write.
func (s *GroupService) CreateGroup(userID uint, input CreateGroupInput) (*domain.Group, error) {
	if input.VotingThreshold <= 0 || input.VotingThreshold > 100 {
		input.VotingThreshold = 51
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}
	group := domain.Group{
		Name:            input.Name,
		Description:     input.Description,
		Currency:        input.Currency,
		TreasuryAddress: input.TreasuryAddress,
		VotingThreshold: input.VotingThreshold,
		InviteOnly:      true,
		IsActive:        true,
		CreatedBy:       userID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		member := domain.GroupMember{
			GroupID:  group.ID,
			UserID:   userID,
			Role:     domain.RoleAdmin,
			IsActive: true,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Error("Failed to create group")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"group_id": group.ID,
		"name":     group.Name,
	}).Info("Group created")
	return &group, nil
}

// GetGroup returns an active group with its memberships.
func (s *GroupService) GetGroup(groupID uint) (*domain.Group, error) {
	var group domain.Group
	err := s.db.Preload("Members").First(&group, groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateGroupInput carries the admin-editable group fields. Nil fields are
// left unchanged.
type UpdateGroupInput struct {
	Name            *string
	Description     *string
	VotingThreshold *int
	TreasuryAddress *string
}

// UpdateGroup applies an admin-only patch to the group.
func (s *GroupService) UpdateGroup(userID, groupID uint, patch UpdateGroupInput) (*domain.Group, error) {
	var group domain.Group
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		role, err := requireMember(tx, userID, groupID)
		if err != nil {
			return err
		}
		if role != domain.RoleAdmin {
			return ErrForbidden
		}
		if patch.Name != nil {
			group.Name = *patch.Name
		}
		if patch.Description != nil {
			group.Description = *patch.Description
		}
		if patch.VotingThreshold != nil {
			if *patch.VotingThreshold <= 0 || *patch.VotingThreshold > 100 {
				return fmt.Errorf("%w: voting threshold must be 1-100", ErrInvalidState)
			}
			group.VotingThreshold = *patch.VotingThreshold
		}
		if patch.TreasuryAddress != nil {
			group.TreasuryAddress = *patch.TreasuryAddress
		}
		return tx.Save(&group).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// DisableGroup soft-disables a group. Admin only; bills and memberships are
// kept for history.
func (s *GroupService) DisableGroup(userID, groupID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var group domain.Group
		if err := tx.First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		role, err := requireMember(tx, userID, groupID)
		if err != nil {
			return err
		}
		if role != domain.RoleAdmin {
			return ErrForbidden
		}
		return tx.Model(&group).Update("is_active", false).Error
	})
}

// CreateInvite issues a one-time invite token for the group, stored in redis
// with a TTL. Admin only.
func (s *GroupService) CreateInvite(ctx context.Context, userID, groupID uint) (string, error) {
	role, err := NewMembership(s.db).RoleOf(userID, groupID)
	if err != nil {
		return "", err
	}
	if role != domain.RoleAdmin {
		return "", ErrForbidden
	}
	if s.rdb == nil {
		return "", fmt.Errorf("invites unavailable: redis not configured")
	}
	token := uuid.NewString()
	key := fmt.Sprintf("invite:%s", token)
	if err := s.rdb.Set(ctx, key, groupID, inviteTTL).Err(); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"group_id": groupID,
	}).Info("Invite created")
	return token, nil
}

// JoinGroup redeems an invite token and enrolls the caller as a MEMBER.
// Rejoining after a soft removal reactivates the existing membership row.
func (s *GroupService) JoinGroup(ctx context.Context, userID uint, token string) (*domain.GroupMember, error) {
	if s.rdb == nil {
		return nil, fmt.Errorf("invites unavailable: redis not configured")
	}
	key := fmt.Sprintf("invite:%s", token)
	groupID, err := s.rdb.Get(ctx, key).Uint64()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: invite token", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	member, err := s.AddMemberRow(userID, uint(groupID), domain.RoleMember)
	if err != nil {
		return nil, err
	}
	// Invite tokens are single-use.
	_ = s.rdb.Del(ctx, key).Err()
	return member, nil
}

// AddMember enrolls a user into a group directly. Admin only.
func (s *GroupService) AddMember(adminID, groupID, userID uint, role string) (*domain.GroupMember, error) {
	if role != domain.RoleAdmin && role != domain.RoleMember && role != domain.RoleViewer {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidState, role)
	}
	callerRole, err := NewMembership(s.db).RoleOf(adminID, groupID)
	if err != nil {
		return nil, err
	}
	if callerRole != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.AddMemberRow(userID, groupID, role)
}

// AddMemberRow upserts the (group, user) membership: reactivates a soft-removed
// row or inserts a fresh one. An already-active membership is a Conflict.
func (s *GroupService) AddMemberRow(userID, groupID uint, role string) (*domain.GroupMember, error) {
	var member domain.GroupMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var group domain.Group
		if err := tx.First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !group.IsActive {
			return fmt.Errorf("%w: group is disabled", ErrInvalidState)
		}
		err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
		switch {
		case err == nil:
			if member.IsActive {
				return fmt.Errorf("%w: already a member", ErrConflict)
			}
			member.IsActive = true
			member.Role = role
			return tx.Save(&member).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = domain.GroupMember{GroupID: groupID, UserID: userID, Role: role, IsActive: true}
			if err := tx.Create(&member).Error; err != nil {
				if isUniqueViolation(err) { // concurrent join raced us
					return fmt.Errorf("%w: already a member", ErrConflict)
				}
				return err
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"group_id": groupID,
		"role":     role,
	}).Info("Member joined group")
	return &member, nil
}

// SetMemberRole changes a member's role. Admin only; an admin cannot demote
// the group's last remaining admin.
func (s *GroupService) SetMemberRole(adminID, groupID, userID uint, role string) error {
	if role != domain.RoleAdmin && role != domain.RoleMember && role != domain.RoleViewer {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidState, role)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		callerRole, err := requireMember(tx, adminID, groupID)
		if err != nil {
			return err
		}
		if callerRole != domain.RoleAdmin {
			return ErrForbidden
		}
		var member domain.GroupMember
		err = tx.Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if member.Role == domain.RoleAdmin && role != domain.RoleAdmin {
			var admins int64
			if err := tx.Model(&domain.GroupMember{}).
				Where("group_id = ? AND role = ? AND is_active = ?", groupID, domain.RoleAdmin, true).
				Count(&admins).Error; err != nil {
				return err
			}
			if admins <= 1 {
				return fmt.Errorf("%w: cannot demote the last admin", ErrInvalidState)
			}
		}
		return tx.Model(&member).Update("role", role).Error
	})
}

// RemoveMember soft-removes a member from the group. Admin only, and the last
// admin cannot remove themselves.
func (s *GroupService) RemoveMember(adminID, groupID, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		callerRole, err := requireMember(tx, adminID, groupID)
		if err != nil {
			return err
		}
		if callerRole != domain.RoleAdmin && adminID != userID {
			return ErrForbidden
		}
		var member domain.GroupMember
		err = tx.Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if member.Role == domain.RoleAdmin {
			var admins int64
			if err := tx.Model(&domain.GroupMember{}).
				Where("group_id = ? AND role = ? AND is_active = ?", groupID, domain.RoleAdmin, true).
				Count(&admins).Error; err != nil {
				return err
			}
			if admins <= 1 {
				return fmt.Errorf("%w: cannot remove the last admin", ErrInvalidState)
			}
		}
		return tx.Model(&member).Update("is_active", false).Error
	})
}

// ListMembers returns the active memberships of a group.
func (s *GroupService) ListMembers(groupID uint) ([]domain.GroupMember, error) {
	var members []domain.GroupMember
	err := s.db.Where("group_id = ? AND is_active = ?", groupID, true).
		Order("joined_at asc").Find(&members).Error
	return members, err
}
