package api

import (
	"net/http"               // HTTP status codes
	"roomy/internal/service" // Business logic

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/shopspring/decimal"
)

// PaymentRequest names the bill to settle
type PaymentRequest struct {
	BillID uint `json:"bill_id" binding:"required"`
}

// CreatePaymentHandler submits settlement of an approved, executed bill to
// the transfer gateway. A gateway failure still returns the PENDING
// transaction so the caller can reconcile later.
func CreatePaymentHandler(transactions *service.TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		var req PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		txn, err := transactions.CreatePayment(c.Request.Context(), userID, req.BillID)
		if err != nil {
			if txn != nil {
				// Intent creation failed after the local row committed
				c.JSON(http.StatusBadGateway, gin.H{
					"error":       "transfer gateway unavailable, transaction pending reconciliation",
					"kind":        "GATEWAY_FAILURE",
					"transaction": txn,
				})
				return
			}
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"transaction": txn})
	}
}

// RefreshTransactionHandler polls the gateway and applies the intent outcome
func RefreshTransactionHandler(transactions *service.TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		txID, err := pathID(c, "id")
		if err != nil {
			return
		}
		txn, err := transactions.RefreshTransaction(c.Request.Context(), userID, txID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": txn})
	}
}

// DepositRequest records an out-of-band treasury deposit
type DepositRequest struct {
	GroupID  uint            `json:"group_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency"`
}

// RecordDepositHandler records a settled member deposit as a ledger entry
func RecordDepositHandler(transactions *service.TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		var req DepositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.Currency == "" {
			req.Currency = "USD"
		}
		txn, err := transactions.RecordDeposit(userID, req.GroupID, req.Amount, req.Currency)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"transaction": txn})
	}
}

// ListGroupTransactionsHandler returns a page of a group's transactions
func ListGroupTransactionsHandler(transactions *service.TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		groupID, err := pathID(c, "id")
		if err != nil {
			return
		}
		page := queryInt(c, "page", 1)
		pageSize := queryInt(c, "page_size", 20)
		txns, total, err := transactions.ListGroupTransactions(userID, groupID, page, pageSize)
		if err != nil {
			writeError(c, err)
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		c.JSON(http.StatusOK, gin.H{
			"transactions": txns,
			"page":         page,
			"page_size":    pageSize,
			"total":        total,
			"total_pages":  totalPages,
		})
	}
}
