// Package gate is the admission check run before an operation is opened.
// It is advisory by design: the monthly sum is racy under concurrent
// opens from one client, and small overshoots are reconciled by the
// downstream compliance review rather than blocked with a lock.
package gate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
)

type Verdict string

const (
	VerdictAdmit    Verdict = "admit"
	VerdictReject   Verdict = "reject"
	VerdictEscalate Verdict = "requires_escalation"
)

// Decision is the gate's answer for one prospective operation.
// Escalations carry the lowest compliance level whose limits would admit
// the amount, for the external compliance workflow to request.
type Decision struct {
	Verdict   Verdict `json:"verdict"`
	NextLevel int     `json:"next_level,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

type Service struct {
	limits  Limits
	history OperationHistory
	logger  logger.Logger
	now     func() time.Time
}

func NewService(limits Limits, history OperationHistory, log logger.Logger) *Service {
	return &Service{
		limits:  limits,
		history: history,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Check admits, rejects, or escalates an operation of the given amount in
// reporting-currency minor units.
func (s *Service) Check(ctx context.Context, profile domain.ClientProfile, reportingAmount int64) (*Decision, error) {
	monthStart := startOfMonth(s.now())
	spent, err := s.history.MonthlyReportingTotal(ctx, profile.ID, monthStart)
	if err != nil {
		return nil, err
	}

	limit := s.limits.Lookup(profile.RateTemplateID, profile.ComplianceLevel)
	if limit != nil && limit.TransactionAmountMin > 0 && reportingAmount < limit.TransactionAmountMin {
		// Below the per-transaction floor; a higher tier cannot help.
		return &Decision{Verdict: VerdictReject, Reason: "amount below transaction minimum"}, nil
	}

	if admits(limit, reportingAmount, spent) {
		return &Decision{Verdict: VerdictAdmit}, nil
	}

	// A higher compliance level may carry limits that would admit this
	// amount; signal the compliance workflow instead of hard-failing.
	for _, level := range s.limits.LevelsAbove(profile.RateTemplateID, profile.ComplianceLevel) {
		if admits(s.limits.Lookup(profile.RateTemplateID, level), reportingAmount, spent) {
			s.logger.Info("Operation requires compliance escalation", map[string]interface{}{
				"client_profile_id": profile.ID,
				"current_level":     profile.ComplianceLevel,
				"next_level":        level,
				"amount":            reportingAmount,
			})
			return &Decision{Verdict: VerdictEscalate, NextLevel: level}, nil
		}
	}

	s.logger.Warn("Operation rejected by limits", map[string]interface{}{
		"client_profile_id": profile.ID,
		"compliance_level":  profile.ComplianceLevel,
		"amount":            reportingAmount,
		"monthly_spent":     spent,
	})
	return &Decision{Verdict: VerdictReject, Reason: "limit exceeded"}, nil
}

func admits(limit *domain.Limit, amount, spent int64) bool {
	if limit == nil {
		return false
	}
	if amount > limit.TransactionAmountMax {
		return false
	}
	available := limit.MonthlyAmountMax - spent
	if available <= 0 || amount > available {
		return false
	}
	return true
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

type Limits interface {
	Lookup(template uuid.UUID, level int) *domain.Limit
	LevelsAbove(template uuid.UUID, level int) []int
}

// OperationHistory sums a client's operations for the rolling month.
type OperationHistory interface {
	MonthlyReportingTotal(ctx context.Context, clientProfileID uuid.UUID, since time.Time) (int64, error)
}
