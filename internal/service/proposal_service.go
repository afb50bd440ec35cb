package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"roomy/internal/domain"
)

// ProposalService is the proposal/voting state machine. A DRAFT bill becomes
// a PENDING proposal, members cast exactly one vote each, and the proposal and
// bill flip to APPROVED in the same transaction as the vote that crosses the
// group's threshold. Execution requires an APPROVED proposal and an ADMIN.
type ProposalService struct {
	db *gorm.DB
}

// NewProposalService creates a ProposalService over the given store handle.
func NewProposalService(db *gorm.DB) *ProposalService {
	return &ProposalService{db: db}
}

// CreateProposalInput carries the caller-supplied fields for a new proposal.
type CreateProposalInput struct {
	BillID         uint
	Title          string
	Description    string
	VotingDeadline int64 // Milliseconds since epoch
}

// CreateProposal converts a DRAFT bill into a PENDING proposal. The proposal
// insert and the bill's transition to PROPOSED are one atomic write; the
// unique index on bill_id guarantees at most one proposal per bill even under
// concurrent attempts.
func (s *ProposalService) CreateProposal(userID uint, input CreateProposalInput) (*domain.Proposal, error) {
	if input.VotingDeadline <= time.Now().UnixMilli() {
		return nil, fmt.Errorf("%w: voting deadline must be in the future", ErrInvalidState)
	}
	var proposal domain.Proposal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var bill domain.Bill
		if err := tx.First(&bill, input.BillID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		role, err := requireMember(tx, userID, bill.GroupID)
		if err != nil {
			return err
		}
		if role == domain.RoleViewer {
			return ErrForbidden
		}
		if bill.Status != domain.BillDraft {
			return fmt.Errorf("%w: bill is %s, only DRAFT bills can be proposed", ErrInvalidState, bill.Status)
		}
		title := input.Title
		if title == "" {
			title = bill.Title
		}
		proposal = domain.Proposal{
			BillID:         bill.ID,
			GroupID:        bill.GroupID,
			CreatedBy:      userID,
			Title:          title,
			Description:    input.Description,
			Status:         domain.ProposalPending,
			VotingDeadline: input.VotingDeadline,
		}
		if err := tx.Create(&proposal).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: bill already has a proposal", ErrConflict)
			}
			return err
		}
		return tx.Model(&bill).Update("status", domain.BillProposed).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"bill_id":     input.BillID,
		"proposal_id": proposal.ID,
		"deadline":    proposal.VotingDeadline,
	}).Info("Proposal created")
	return &proposal, nil
}

// GetProposal returns a proposal with its votes. The caller must be an active
// member of the proposal's group.
func (s *ProposalService) GetProposal(userID, proposalID uint) (*domain.Proposal, error) {
	var proposal domain.Proposal
	err := s.db.Preload("Votes").First(&proposal, proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(s.db, userID, proposal.GroupID); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// counterColumn maps a vote type to its denormalized counter column.
func counterColumn(voteType string) (string, error) {
	switch voteType {
	case domain.VoteFor:
		return "votes_for", nil
	case domain.VoteAgainst:
		return "votes_against", nil
	case domain.VoteAbstain:
		return "votes_abstain", nil
	default:
		return "", fmt.Errorf("%w: unknown vote type %q", ErrInvalidState, voteType)
	}
}

// Vote records one member's vote on a PENDING proposal and runs the threshold
// check. The vote insert, the counter increment and any status transition are
// one transaction: the unique (proposal, user) index rejects duplicate voters
// and the increment is a relative SQL update, so concurrent voters cannot lose
// updates. Votes on proposals past PENDING or past their deadline are rejected.
func (s *ProposalService) Vote(userID, proposalID uint, voteType, comment string) (*domain.Proposal, error) {
	column, err := counterColumn(voteType)
	if err != nil {
		return nil, err
	}
	var proposal domain.Proposal
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proposal, proposalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		role, err := requireMember(tx, userID, proposal.GroupID)
		if err != nil {
			return err
		}
		if role == domain.RoleViewer {
			return ErrForbidden
		}
		if proposal.Status != domain.ProposalPending {
			return fmt.Errorf("%w: proposal is %s, voting is closed", ErrInvalidState, proposal.Status)
		}
		if IsExpired(&proposal, time.Now()) {
			return fmt.Errorf("%w: voting deadline has passed", ErrInvalidState)
		}
		vote := domain.Vote{
			ProposalID: proposal.ID,
			UserID:     userID,
			VoteType:   voteType,
			Comment:    comment,
		}
		if err := tx.Create(&vote).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: already voted on this proposal", ErrConflict)
			}
			return err
		}
		// Relative update keeps the counter correct under concurrent voters.
		if err := tx.Model(&domain.Proposal{}).Where("id = ?", proposal.ID).
			UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error; err != nil {
			return err
		}
		// Re-read the counters this transaction just contributed to before
		// running the threshold check.
		if err := tx.First(&proposal, proposal.ID).Error; err != nil {
			return err
		}
		var group domain.Group
		if err := tx.First(&group, proposal.GroupID).Error; err != nil {
			return err
		}
		if !thresholdMet(&proposal, group.VotingThreshold) {
			return nil
		}
		proposal.Status = domain.ProposalApproved
		if err := tx.Model(&domain.Proposal{}).Where("id = ?", proposal.ID).
			Update("status", domain.ProposalApproved).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Bill{}).Where("id = ?", proposal.BillID).
			Update("status", domain.BillApproved).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"proposal_id": proposal.ID,
		"vote":        voteType,
		"status":      proposal.Status,
		"tally":       fmt.Sprintf("%d/%d/%d", proposal.VotesFor, proposal.VotesAgainst, proposal.VotesAbstain),
	}).Info("Vote recorded")
	return &proposal, nil
}

// thresholdMet applies the approval rule: percentage of FOR among cast votes,
// compared against the group threshold. A proposal with zero votes never
// approves. Only approval is evaluated; there is no symmetric rejection rule.
func thresholdMet(p *domain.Proposal, threshold int) bool {
	total := p.VotesFor + p.VotesAgainst + p.VotesAbstain
	if total == 0 {
		return false
	}
	yesPercent := float64(p.VotesFor) / float64(total) * 100
	return yesPercent >= float64(threshold)
}

// ExecuteProposal marks an APPROVED proposal EXECUTED. Only a group ADMIN may
// execute, and the vote gate cannot be bypassed: a proposal that is not
// APPROVED fails with ErrInvalidState.
func (s *ProposalService) ExecuteProposal(userID, proposalID uint) (*domain.Proposal, error) {
	var proposal domain.Proposal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proposal, proposalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		role, err := requireMember(tx, userID, proposal.GroupID)
		if err != nil {
			return err
		}
		if role != domain.RoleAdmin {
			return ErrForbidden
		}
		if proposal.Status != domain.ProposalApproved {
			return fmt.Errorf("%w: proposal is %s, only APPROVED proposals can be executed", ErrInvalidState, proposal.Status)
		}
		now := time.Now().UnixMilli()
		proposal.Status = domain.ProposalExecuted
		proposal.ExecutedAt = &now
		return tx.Model(&domain.Proposal{}).Where("id = ?", proposal.ID).
			Updates(map[string]any{"status": domain.ProposalExecuted, "executed_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"proposal_id": proposal.ID,
	}).Info("Proposal executed")
	return &proposal, nil
}

// IsExpired is the single deadline rule, shared by the vote path and the
// expiry sweep: a PENDING proposal whose deadline is behind now is stale.
func IsExpired(p *domain.Proposal, now time.Time) bool {
	return p.Status == domain.ProposalPending && now.UnixMilli() > p.VotingDeadline
}

// ExpireStaleProposals transitions every PENDING proposal past its deadline to
// EXPIRED and its bill to REJECTED. Returns the number of proposals expired.
// Invoked by the sweep command or the admin API, never implicitly.
func (s *ProposalService) ExpireStaleProposals(now time.Time) (int, error) {
	var stale []domain.Proposal
	if err := s.db.
		Where("status = ? AND voting_deadline < ?", domain.ProposalPending, now.UnixMilli()).
		Find(&stale).Error; err != nil {
		return 0, err
	}
	expired := 0
	for _, p := range stale {
		if !IsExpired(&p, now) {
			continue
		}
		flipped := false
		err := s.db.Transaction(func(tx *gorm.DB) error {
			// Guarded update: only flip if still PENDING, so a vote that
			// approved the proposal concurrently wins.
			res := tx.Model(&domain.Proposal{}).
				Where("id = ? AND status = ?", p.ID, domain.ProposalPending).
				Update("status", domain.ProposalExpired)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			flipped = true
			return tx.Model(&domain.Bill{}).Where("id = ?", p.BillID).
				Update("status", domain.BillRejected).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"proposal_id": p.ID,
				"error":       err.Error(),
			}).Error("Failed to expire proposal")
			continue
		}
		if flipped {
			expired++
		}
	}
	if expired > 0 {
		logrus.WithField("count", expired).Info("Stale proposals expired")
	}
	return expired, nil
}
