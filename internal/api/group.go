package api

import (
	"context"                // Context for Redis operations
	"net/http"               // HTTP status codes
	"strconv"                // String conversion
	"time"                   // Cache TTLs
	"roomy/internal/service" // Business logic

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client

	"roomy/internal/utils"
)

// groupCacheKey is the read-cache key for a group's detail view.
func groupCacheKey(groupID uint) string {
	return "group:" + strconv.Itoa(int(groupID))
}

// invalidateGroup drops the cached group detail and bill list.
func invalidateGroup(rdb *redis.Client, groupID uint) {
	ctx := context.Background()
	_ = utils.DeleteCache(ctx, rdb, groupCacheKey(groupID))
	_ = utils.DeleteCache(ctx, rdb, billListCacheKey(groupID))
}

// CreateGroupRequest carries the fields for a new group
type CreateGroupRequest struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	Currency        string `json:"currency"`
	TreasuryAddress string `json:"treasury_address"`
	VotingThreshold int    `json:"voting_threshold"`
}

// CreateGroupHandler creates a group with the caller as its first admin
func CreateGroupHandler(groups *service.GroupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		var req CreateGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		group, err := groups.CreateGroup(userID, service.CreateGroupInput{
			Name:            req.Name,
			Description:     req.Description,
			Currency:        req.Currency,
			TreasuryAddress: req.TreasuryAddress,
			VotingThreshold: req.VotingThreshold,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"group": group})
	}
}

// GetGroupHandler returns a group's detail view, cached for 60 seconds
func GetGroupHandler(groups *service.GroupService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := callerID(c); !ok {
			return
		}
		groupID, err := pathID(c, "id")
		if err != nil {
			return
		}
		ctx := context.Background()
		key := groupCacheKey(groupID)
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, key, &cached); err == nil && found {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}
		group, err := groups.GetGroup(groupID)
		if err != nil {
			writeError(c, err)
			return
		}
		resp := gin.H{"group": group, "cached": false}
		_ = utils.SetCache(ctx, rdb, key, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}

// UpdateGroupRequest carries the admin-editable group fields
type UpdateGroupRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	VotingThreshold *int    `json:"voting_threshold"`
	TreasuryAddress *string `json:"treasury_address"`
}

// UpdateGroupHandler applies an admin-only patch to a group
func UpdateGroupHandler(groups *service.GroupService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		groupID, err := pathID(c, "id")
		if err != nil {
			return
		}
		var req UpdateGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		group, err := groups.UpdateGroup(userID, groupID, service.UpdateGroupInput{
			Name:            req.Name,
			Description:     req.Description,
			VotingThreshold: req.VotingThreshold,
			TreasuryAddress: req.TreasuryAddress,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		invalidateGroup(rdb, groupID)
		c.JSON(http.StatusOK, gin.H{"group": group})
	}
}

// DisableGroupHandler soft-disables a group
func DisableGroupHandler(groups *service.GroupService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		groupID, err := pathID(c, "id")
		if err != nil {
			return
		}
		if err := groups.DisableGroup(userID, groupID); err != nil {
			writeError(c, err)
			return
		}
		invalidateGroup(rdb, groupID)
		c.JSON(http.StatusOK, gin.H{"message": "Group disabled"})
	}
}

// CreateInviteHandler issues an invite token for a group
func CreateInviteHandler(groups *service.GroupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		groupID, err := pathID(c, "id")
		if err != nil {
			return
		}
		token, err := groups.CreateInvite(c.Request.Context(), userID, groupID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"invite_token": token})
	}
}

// JoinGroupRequest carries an invite token
type JoinGroupRequest struct {
	Token string `json:"token" binding:"required"`
}

// JoinGroupHandler redeems an invite token and joins the caller as MEMBER
func JoinGroupHandler(groups *service.GroupService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		var req JoinGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		member, err := groups.JoinGroup(c.Request.Context(), userID, req.Token)
		if err != nil {
			writeError(c, err)
			return
		}
		invalidateGroup(rdb, member.GroupID)
		c.JSON(http.StatusOK, gin.H{"membership": member})
	}
}

// ListMembersHandler returns a group's active members
func ListMembersHandler(groups *service.GroupService, membership *service.Membership) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		groupID, err := pathID(c, "id")
		if err != nil {
			return
		}
		if _, err := membership.RoleOf(userID, groupID); err != nil {
			writeError(c, err)
			return
		}
		members, err := groups.ListMembers(groupID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}

// MemberRoleRequest carries a role change for a member
type MemberRoleRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// SetMemberRoleHandler changes a member's role
func SetMemberRoleHandler(groups *service.GroupService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := callerID(c)
		if !ok {
			return
		}
		groupID, err := pathID(c, "id")
		if err != nil {
			return
		}
		var req MemberRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := groups.SetMemberRole(adminID, groupID, req.UserID, req.Role); err != nil {
			writeError(c, err)
			return
		}
		invalidateGroup(rdb, groupID)
		c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
	}
}

// RemoveMemberHandler soft-removes a member from a group
func RemoveMemberHandler(groups *service.GroupService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := callerID(c)
		if !ok {
			return
		}
		groupID, err := pathID(c, "id")
		if err != nil {
			return
		}
		memberID, err := pathID(c, "userID")
		if err != nil {
			return
		}
		if err := groups.RemoveMember(adminID, groupID, memberID); err != nil {
			writeError(c, err)
			return
		}
		invalidateGroup(rdb, groupID)
		c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
	}
}

// pathID parses a positive integer path parameter, answering 400 on failure.
func pathID(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, strconv.ErrSyntax
	}
	return uint(v), nil
}
