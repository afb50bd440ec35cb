package api

import (
	"context"                // Context for Redis operations
	"net/http"               // HTTP status codes
	"strconv"                // String conversion
	"time"                   // Cache TTLs
	"roomy/internal/service" // Business logic
	"roomy/internal/utils"   // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/shopspring/decimal"
)

// billListCacheKey is the read-cache key for a group's bill list.
func billListCacheKey(groupID uint) string {
	return "bills:group:" + strconv.Itoa(int(groupID))
}

// BillItemRequest is one line item of a bill request
type BillItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Quantity    int             `json:"quantity"`
}

// CreateBillRequest carries the fields for a new bill
type CreateBillRequest struct {
	GroupID        uint              `json:"group_id" binding:"required"`
	Title          string            `json:"title" binding:"required"`
	Description    string            `json:"description"`
	TotalAmount    decimal.Decimal   `json:"total_amount" binding:"required"`
	Currency       string            `json:"currency"`
	PayeeAddress   string            `json:"payee_address"`
	DueDate        *int64            `json:"due_date"`
	IsRecurring    bool              `json:"is_recurring"`
	RecurrenceDays int               `json:"recurrence_days"`
	Items          []BillItemRequest `json:"items"`
}

// CreateBillHandler creates a DRAFT bill with its line items
func CreateBillHandler(bills *service.BillService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		var req CreateBillRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		input := service.CreateBillInput{
			GroupID:        req.GroupID,
			Title:          req.Title,
			Description:    req.Description,
			TotalAmount:    req.TotalAmount,
			Currency:       req.Currency,
			PayeeAddress:   req.PayeeAddress,
			DueDate:        req.DueDate,
			IsRecurring:    req.IsRecurring,
			RecurrenceDays: req.RecurrenceDays,
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, service.BillItemInput{
				Description: item.Description,
				Amount:      item.Amount,
				Quantity:    item.Quantity,
			})
		}
		bill, err := bills.CreateBill(userID, input)
		if err != nil {
			writeError(c, err)
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, billListCacheKey(bill.GroupID))
		c.JSON(http.StatusCreated, gin.H{"bill": bill})
	}
}

// GetBillHandler returns a bill with its line items
func GetBillHandler(bills *service.BillService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		billID, err := pathID(c, "id")
		if err != nil {
			return
		}
		bill, err := bills.GetBill(userID, billID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bill": bill})
	}
}

// ListGroupBillsHandler returns a group's bills, cached for 30 seconds when
// unfiltered
func ListGroupBillsHandler(bills *service.BillService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		groupID, err := pathID(c, "id")
		if err != nil {
			return
		}
		status := c.Query("status")
		ctx := context.Background()
		key := billListCacheKey(groupID)
		if status == "" {
			var cached gin.H
			if found, err := utils.GetCache(ctx, rdb, key, &cached); err == nil && found {
				cached["cached"] = true
				c.JSON(http.StatusOK, cached)
				return
			}
		}
		list, err := bills.ListGroupBills(userID, groupID, status)
		if err != nil {
			writeError(c, err)
			return
		}
		resp := gin.H{"bills": list, "cached": false}
		if status == "" {
			_ = utils.SetCache(ctx, rdb, key, resp, 30*time.Second)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// UpdateBillRequest carries the patchable bill fields
type UpdateBillRequest struct {
	Title        *string           `json:"title"`
	Description  *string           `json:"description"`
	TotalAmount  *decimal.Decimal  `json:"total_amount"`
	PayeeAddress *string           `json:"payee_address"`
	DueDate      *int64            `json:"due_date"`
	Items        []BillItemRequest `json:"items"`
}

// UpdateBillHandler patches a DRAFT bill
func UpdateBillHandler(bills *service.BillService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		billID, err := pathID(c, "id")
		if err != nil {
			return
		}
		var req UpdateBillRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		patch := service.UpdateBillInput{
			Title:        req.Title,
			Description:  req.Description,
			TotalAmount:  req.TotalAmount,
			PayeeAddress: req.PayeeAddress,
			DueDate:      req.DueDate,
		}
		if req.Items != nil {
			patch.Items = make([]service.BillItemInput, 0, len(req.Items))
			for _, item := range req.Items {
				patch.Items = append(patch.Items, service.BillItemInput{
					Description: item.Description,
					Amount:      item.Amount,
					Quantity:    item.Quantity,
				})
			}
		}
		bill, err := bills.UpdateBill(billID, userID, patch)
		if err != nil {
			writeError(c, err)
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, billListCacheKey(bill.GroupID))
		c.JSON(http.StatusOK, gin.H{"bill": bill})
	}
}

// DeleteBillHandler soft-deletes a bill (status CANCELLED)
func DeleteBillHandler(bills *service.BillService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		billID, err := pathID(c, "id")
		if err != nil {
			return
		}
		// Resolve the group before deletion for cache invalidation
		bill, err := bills.GetBill(userID, billID)
		if err != nil {
			writeError(c, err)
			return
		}
		if err := bills.DeleteBill(billID, userID); err != nil {
			writeError(c, err)
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, billListCacheKey(bill.GroupID))
		c.JSON(http.StatusOK, gin.H{"message": "Bill cancelled"})
	}
}
