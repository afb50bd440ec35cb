package api

import (
	"context"                // Context for Redis operations
	"net/http"               // HTTP status codes
	"roomy/internal/service" // Business logic
	"roomy/internal/utils"   // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// CreateProposalRequest carries the fields for a new proposal
type CreateProposalRequest struct {
	BillID         uint   `json:"bill_id" binding:"required"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	VotingDeadline int64  `json:"voting_deadline" binding:"required"` // Milliseconds since epoch
}

// CreateProposalHandler opens voting on a DRAFT bill
func CreateProposalHandler(proposals *service.ProposalService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		var req CreateProposalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		proposal, err := proposals.CreateProposal(userID, service.CreateProposalInput{
			BillID:         req.BillID,
			Title:          req.Title,
			Description:    req.Description,
			VotingDeadline: req.VotingDeadline,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, billListCacheKey(proposal.GroupID))
		c.JSON(http.StatusCreated, gin.H{"proposal": proposal})
	}
}

// GetProposalHandler returns a proposal with its votes
func GetProposalHandler(proposals *service.ProposalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		proposalID, err := pathID(c, "id")
		if err != nil {
			return
		}
		proposal, err := proposals.GetProposal(userID, proposalID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"proposal": proposal})
	}
}

// VoteRequest carries one member's vote
type VoteRequest struct {
	Vote    string `json:"vote" binding:"required"` // FOR, AGAINST or ABSTAIN
	Comment string `json:"comment"`
}

// VoteHandler records a vote and reports the resulting tally and status
func VoteHandler(proposals *service.ProposalService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		proposalID, err := pathID(c, "id")
		if err != nil {
			return
		}
		var req VoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		proposal, err := proposals.Vote(userID, proposalID, req.Vote, req.Comment)
		if err != nil {
			writeError(c, err)
			return
		}
		// A vote can flip the bill to APPROVED; drop the stale list
		_ = utils.DeleteCache(context.Background(), rdb, billListCacheKey(proposal.GroupID))
		c.JSON(http.StatusOK, gin.H{
			"proposal": proposal,
			"tally": gin.H{
				"for":     proposal.VotesFor,
				"against": proposal.VotesAgainst,
				"abstain": proposal.VotesAbstain,
			},
		})
	}
}

// ExecuteProposalHandler marks an APPROVED proposal EXECUTED
func ExecuteProposalHandler(proposals *service.ProposalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		proposalID, err := pathID(c, "id")
		if err != nil {
			return
		}
		proposal, err := proposals.ExecuteProposal(userID, proposalID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"proposal": proposal})
	}
}
