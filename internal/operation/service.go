// Package operation groups transactions into client-facing business
// actions and derives their aggregate status.
package operation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/internal/gate"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

// SubstatusAwaitingEscalation marks operations parked until the external
// compliance workflow raises the client's level.
const SubstatusAwaitingEscalation = "awaiting_compliance_escalation"

type Service struct {
	repo   OperationRepository
	txs    TransactionSource
	gate   Gate
	logger logger.Logger
}

func NewService(repo OperationRepository, txs TransactionSource, g Gate, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		txs:    txs,
		gate:   g,
		logger: log,
	}
}

type OpenRequest struct {
	Kind          domain.OperationKind `json:"kind" validate:"required"`
	FromAccountID *uuid.UUID           `json:"from_account_id"`
	ToAccountID   *uuid.UUID           `json:"to_account_id"`

	Amount   int64          `json:"amount" validate:"required,gt=0"`
	Currency money.Currency `json:"currency" validate:"required"`
	// ToAmount/ToCurrency describe the receiving side of exchange-style
	// operations; zero values mean same as the source side.
	ToAmount   int64          `json:"to_amount"`
	ToCurrency money.Currency `json:"to_currency"`

	// ReportingAmount is the operation amount in the platform reporting
	// currency, used only for limit comparisons.
	ReportingAmount int64 `json:"reporting_amount" validate:"required,gt=0"`

	Profile domain.ClientProfile `json:"profile" validate:"required"`

	// PeriodStart/PeriodEnd bound subscription-style operations.
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
}

// Open admits a new business action through the compliance gate and
// records it. Rejected operations fail with LimitExceeded before any
// transaction exists; escalations are recorded PENDING with a substatus
// and handed to the external compliance workflow.
func (s *Service) Open(ctx context.Context, req *OpenRequest) (*domain.Operation, *gate.Decision, error) {
	if req.Amount <= 0 || req.ReportingAmount <= 0 {
		return nil, nil, errors.ErrInvalidAmount
	}
	if !money.IsSupported(req.Currency) {
		return nil, nil, errors.ErrInvalidCurrency
	}

	decision, err := s.gate.Check(ctx, req.Profile, req.ReportingAmount)
	if err != nil {
		return nil, nil, errors.Wrap(err, "limit check")
	}
	if decision.Verdict == gate.VerdictReject {
		return nil, decision, errors.ErrLimitExceeded
	}

	toAmount := req.ToAmount
	toCurrency := req.ToCurrency
	if toCurrency == "" {
		toAmount = req.Amount
		toCurrency = req.Currency
	}

	substatus := ""
	if decision.Verdict == gate.VerdictEscalate {
		substatus = SubstatusAwaitingEscalation
	}

	now := time.Now().UTC()
	op := &domain.Operation{
		ID:              uuid.New(),
		Kind:            req.Kind,
		Status:          domain.OperationStatusPending,
		Substatus:       substatus,
		FromAccountID:   req.FromAccountID,
		ToAccountID:     req.ToAccountID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		ToAmount:        toAmount,
		ToCurrency:      toCurrency,
		ReportingAmount: req.ReportingAmount,
		ClientProfileID: req.Profile.ID,
		RateTemplateID:  req.Profile.RateTemplateID,
		PeriodStart:     req.PeriodStart,
		PeriodEnd:       req.PeriodEnd,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, op); err != nil {
		return nil, nil, err
	}

	s.logger.Info("Operation opened", map[string]interface{}{
		"operation_id": op.ID,
		"kind":         op.Kind,
		"amount":       op.Amount,
		"currency":     op.Currency,
		"verdict":      decision.Verdict,
	})

	return op, decision, nil
}

func (s *Service) GetOperation(ctx context.Context, id uuid.UUID) (*domain.Operation, error) {
	return s.repo.FindByID(ctx, id)
}

// ListByClientProfile pages through a client's operations, newest first.
func (s *Service) ListByClientProfile(ctx context.Context, clientProfileID uuid.UUID, limit, offset int) ([]*domain.Operation, error) {
	return s.repo.FindByClientProfile(ctx, clientProfileID, limit, offset)
}

// Transactions lists the ledger entries recorded under an operation.
func (s *Service) Transactions(ctx context.Context, id uuid.UUID) ([]*domain.Transaction, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.txs.FindByOperationID(ctx, id)
}

// RederiveStatus recomputes the aggregate status from the non-fee child
// transactions. It is the single place status is derived, invoked from
// the settlement path. SUCCESSFUL requires every non-fee child to be
// SUCCESSFUL; any failed child fails the operation; otherwise it stays
// PENDING. RETURNED is owned by the refund handler and never overridden.
func (s *Service) RederiveStatus(ctx context.Context, id uuid.UUID) (domain.OperationStatus, error) {
	op, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if op.Status == domain.OperationStatusReturned {
		return op.Status, nil
	}

	children, err := s.txs.FindByOperationID(ctx, id)
	if err != nil {
		return "", err
	}

	derived := derive(children)
	if derived == op.Status {
		return derived, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, derived, op.Substatus); err != nil {
		return "", err
	}

	s.logger.Info("Operation status derived", map[string]interface{}{
		"operation_id": id,
		"from":         op.Status,
		"to":           derived,
	})
	return derived, nil
}

// MarkReturned records that an operation's money flow was compensated by
// a completed refund.
func (s *Service) MarkReturned(ctx context.Context, id uuid.UUID, substatus string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, id, domain.OperationStatusReturned, substatus)
}

// UpdateSubstatus sets the diagnostic substatus without touching the
// derived status.
func (s *Service) UpdateSubstatus(ctx context.Context, id uuid.UUID, substatus string) error {
	op, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, id, op.Status, substatus)
}

// Reevaluate re-runs the gate for an operation parked on escalation,
// typically after the compliance workflow raised the client's level.
// On admission the substatus is cleared.
func (s *Service) Reevaluate(ctx context.Context, id uuid.UUID, profile domain.ClientProfile) (*gate.Decision, error) {
	op, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if op.Substatus != SubstatusAwaitingEscalation {
		return &gate.Decision{Verdict: gate.VerdictAdmit}, nil
	}

	decision, err := s.gate.Check(ctx, profile, op.ReportingAmount)
	if err != nil {
		return nil, err
	}
	if decision.Verdict == gate.VerdictAdmit {
		if err := s.repo.UpdateStatus(ctx, id, op.Status, ""); err != nil {
			return nil, err
		}
	}
	return decision, nil
}

// derive folds child transaction statuses into an operation status. Fee
// legs never count, and neither do compensating legs: a failed refund
// attempt leaves the operation SUCCESSFUL and retryable, with the outcome
// tracked on the Refund record instead.
func derive(children []*domain.Transaction) domain.OperationStatus {
	settled := 0
	total := 0
	for _, tx := range children {
		if tx.Type.IsFee() || tx.Type.IsCompensating() {
			continue
		}
		total++
		switch tx.Status {
		case domain.TransactionStatusFailed:
			return domain.OperationStatusFailed
		case domain.TransactionStatusSuccessful:
			settled++
		}
	}
	if total > 0 && settled == total {
		return domain.OperationStatusSuccessful
	}
	return domain.OperationStatusPending
}

type OperationRepository interface {
	Create(ctx context.Context, op *domain.Operation) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error)
	FindByClientProfile(ctx context.Context, clientProfileID uuid.UUID, limit, offset int) ([]*domain.Operation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OperationStatus, substatus string) error
}

type TransactionSource interface {
	FindByOperationID(ctx context.Context, operationID uuid.UUID) ([]*domain.Transaction, error)
}

type Gate interface {
	Check(ctx context.Context, profile domain.ClientProfile, reportingAmount int64) (*gate.Decision, error)
}
