package api

import (
	"context"                // Context for Redis operations
	"net/http"               // HTTP status codes
	"strconv"                // String conversion
	"time"                   // Cache TTLs
	"roomy/internal/domain"  // Importing domain models
	"roomy/internal/service" // Business logic
	"roomy/internal/utils"   // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// queryInt parses a positive integer query parameter with a default.
func queryInt(c *gin.Context, name string, def int) int {
	if s := c.Query(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			return v
		}
	}
	return def
}

// UserAdminResponse is the operator view of a user
type UserAdminResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   int64  `json:"created_at"`
}

// ListUsersHandler returns all users, paginated and cached
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		page := queryInt(c, "page", 1)
		pageSize := queryInt(c, "page_size", 20)
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}
		var total int64
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}
		var users []domain.User
		if err := db.Order("id asc").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		out := make([]UserAdminResponse, 0, len(users))
		for _, u := range users {
			out = append(out, UserAdminResponse{
				ID:          u.ID,
				Email:       u.Email,
				DisplayName: u.DisplayName,
				IsAdmin:     u.IsAdmin,
				IsActive:    u.IsActive,
				CreatedAt:   u.CreatedAt,
			})
		}
		resp := gin.H{
			"users":       out,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": (int(total) + pageSize - 1) / pageSize,
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}

// ListTransactionsHandler returns all transactions, paginated and cached
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		page := queryInt(c, "page", 1)
		pageSize := queryInt(c, "page_size", 20)
		cacheKey := "admin:transactions:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}
		var total int64
		if err := db.Model(&domain.Transaction{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var txns []domain.Transaction
		if err := db.Order("created_at desc").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&txns).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		resp := gin.H{
			"transactions": txns,
			"page":         page,
			"page_size":    pageSize,
			"total":        total,
			"total_pages":  (int(total) + pageSize - 1) / pageSize,
			"cached":       false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}

// ExpireProposalsHandler runs the proposal-expiry sweep on demand
func ExpireProposalsHandler(proposals *service.ProposalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		expired, err := proposals.ExpireStaleProposals(time.Now())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"expired": expired})
	}
}

// SpawnRecurringHandler runs the due-recurring-bill pass on demand
func SpawnRecurringHandler(bills *service.BillService) gin.HandlerFunc {
	return func(c *gin.Context) {
		spawned, err := bills.SpawnDueRecurring(time.Now())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"spawned": spawned})
	}
}
