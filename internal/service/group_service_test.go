package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomy/internal/domain"
)

func TestCreateGroupEnrollsCreatorAsAdmin(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "a@roomy.dev")

	group, err := NewGroupService(db, nil).CreateGroup(user.ID, CreateGroupInput{
		Name:            "Apartment 4B",
		TreasuryAddress: "0xtreasury",
	})
	require.NoError(t, err)
	assert.Equal(t, 51, group.VotingThreshold) // default
	assert.Equal(t, "USD", group.Currency)
	assert.True(t, group.IsActive)

	svc := NewGroupService(db, nil)
	members, err := svc.ListMembers(group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, user.ID, members[0].UserID)
	assert.Equal(t, domain.RoleAdmin, members[0].Role)
}

func TestCreateGroupClampsBadThreshold(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "a@roomy.dev")
	svc := NewGroupService(db, nil)

	for _, threshold := range []int{0, -5, 101} {
		group, err := svc.CreateGroup(user.ID, CreateGroupInput{Name: "G", VotingThreshold: threshold})
		require.NoError(t, err)
		assert.Equal(t, 51, group.VotingThreshold)
	}
}

func TestUpdateGroupAdminOnly(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	member := seedUser(t, db, "b@roomy.dev")
	group := seedGroup(t, db, admin, 51)
	seedMember(t, db, group, member, domain.RoleMember)

	svc := NewGroupService(db, nil)
	threshold := 67

	_, err := svc.UpdateGroup(member.ID, group.ID, UpdateGroupInput{VotingThreshold: &threshold})
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.UpdateGroup(admin.ID, group.ID, UpdateGroupInput{VotingThreshold: &threshold})
	require.NoError(t, err)
	assert.Equal(t, 67, updated.VotingThreshold)

	bad := 150
	_, err = svc.UpdateGroup(admin.ID, group.ID, UpdateGroupInput{VotingThreshold: &bad})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestAddMemberConflictAndReactivation(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	user := seedUser(t, db, "b@roomy.dev")
	group := seedGroup(t, db, admin, 51)

	svc := NewGroupService(db, nil)

	member, err := svc.AddMember(admin.ID, group.ID, user.ID, domain.RoleMember)
	require.NoError(t, err)
	assert.True(t, member.IsActive)

	// Adding an active member again is a conflict.
	_, err = svc.AddMember(admin.ID, group.ID, user.ID, domain.RoleMember)
	require.ErrorIs(t, err, ErrConflict)

	// Soft-remove, then re-add: the same row is reactivated, not duplicated.
	require.NoError(t, svc.RemoveMember(admin.ID, group.ID, user.ID))
	readded, err := svc.AddMember(admin.ID, group.ID, user.ID, domain.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, member.ID, readded.ID)
	assert.Equal(t, domain.RoleViewer, readded.Role)

	var rows int64
	require.NoError(t, db.Model(&domain.GroupMember{}).
		Where("group_id = ? AND user_id = ?", group.ID, user.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestAddMemberRejectsUnknownRole(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	user := seedUser(t, db, "b@roomy.dev")
	group := seedGroup(t, db, admin, 51)

	_, err := NewGroupService(db, nil).AddMember(admin.ID, group.ID, user.ID, "OWNER")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestAddMemberNonAdminForbidden(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	member := seedUser(t, db, "b@roomy.dev")
	target := seedUser(t, db, "c@roomy.dev")
	group := seedGroup(t, db, admin, 51)
	seedMember(t, db, group, member, domain.RoleMember)

	_, err := NewGroupService(db, nil).AddMember(member.ID, group.ID, target.ID, domain.RoleMember)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAddMemberToDisabledGroup(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	user := seedUser(t, db, "b@roomy.dev")
	group := seedGroup(t, db, admin, 51)

	svc := NewGroupService(db, nil)
	require.NoError(t, svc.DisableGroup(admin.ID, group.ID))

	_, err := svc.AddMember(admin.ID, group.ID, user.ID, domain.RoleMember)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestLastAdminCannotBeDemotedOrRemoved(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	group := seedGroup(t, db, admin, 51)

	svc := NewGroupService(db, nil)

	err := svc.SetMemberRole(admin.ID, group.ID, admin.ID, domain.RoleMember)
	require.ErrorIs(t, err, ErrInvalidState)

	err = svc.RemoveMember(admin.ID, group.ID, admin.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	// With a second admin present, demotion succeeds.
	second := seedUser(t, db, "b@roomy.dev")
	seedMember(t, db, group, second, domain.RoleAdmin)
	require.NoError(t, svc.SetMemberRole(admin.ID, group.ID, admin.ID, domain.RoleMember))
}

func TestMemberCanLeaveGroup(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	member := seedUser(t, db, "b@roomy.dev")
	group := seedGroup(t, db, admin, 51)
	seedMember(t, db, group, member, domain.RoleMember)

	svc := NewGroupService(db, nil)
	// A non-admin may remove themselves but nobody else.
	require.ErrorIs(t, svc.RemoveMember(member.ID, group.ID, admin.ID), ErrForbidden)
	require.NoError(t, svc.RemoveMember(member.ID, group.ID, member.ID))

	members, err := svc.ListMembers(group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestCreateInviteWithoutRedis(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "a@roomy.dev")
	group := seedGroup(t, db, admin, 51)

	_, err := NewGroupService(db, nil).CreateInvite(context.Background(), admin.ID, group.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestGetGroupNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := NewGroupService(db, nil).GetGroup(9999)
	require.ErrorIs(t, err, ErrNotFound)
}
