// Package refund creates compensating transactions against completed
// operations. Existing transactions are never mutated; money only flows
// back through new ledger entries.
package refund

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/internal/ledger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

// SubstatusPartiallyRefunded marks operations with completed partial
// refunds that have remaining entitlement.
const SubstatusPartiallyRefunded = "partially_refunded"

type Service struct {
	repo   RefundRepository
	ops    Operations
	ledger Ledger
	logger logger.Logger
	now    func() time.Time
}

func NewService(repo RefundRepository, ops Operations, led Ledger, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		ops:    ops,
		ledger: led,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type RefundRequest struct {
	OperationID uuid.UUID `json:"operation_id" validate:"required"`
	// Amount is the requested refund in minor units of the operation
	// currency. Zero means the full remaining entitlement. For
	// subscription operations the amount actually refunded is the
	// time-decayed remaining entitlement, not the requested figure.
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// Refund opens a compensating transaction reversing an operation's money
// flow. Partial refunds are allowed; the remaining entitlement of
// subscription operations decays pro-rata with elapsed period time.
func (s *Service) Refund(ctx context.Context, req *RefundRequest) (*domain.Transaction, error) {
	op, err := s.ops.GetOperation(ctx, req.OperationID)
	if err != nil {
		return nil, err
	}
	if op.Status != domain.OperationStatusSuccessful {
		return nil, errors.ErrOperationNotRefundable
	}
	if op.FromAccountID == nil || op.ToAccountID == nil {
		return nil, errors.ErrOperationNotRefundable
	}

	reserved, err := s.repo.SumActiveOrCompleted(ctx, op.ID)
	if err != nil {
		return nil, err
	}

	entitlement := remainingEntitlement(op, s.now()) - reserved
	if entitlement <= 0 {
		s.record(ctx, op, 0, req.Reason, domain.RefundStatusRefused, nil)
		return nil, errors.ErrOperationNotRefundable
	}

	amount := req.Amount
	if amount <= 0 || subscriptionStyle(op) {
		// Subscription refunds always pay out the decayed entitlement.
		amount = entitlement
	}
	if amount > entitlement {
		s.record(ctx, op, amount, req.Reason, domain.RefundStatusRefused, nil)
		return nil, errors.ErrRefundExceedsEntitlement
	}

	tx, err := s.compensate(ctx, op, amount)
	if err != nil {
		return nil, err
	}

	s.record(ctx, op, amount, req.Reason, domain.RefundStatusProcessing, &tx.ID)

	s.logger.Info("Refund opened", map[string]interface{}{
		"operation_id":   op.ID,
		"transaction_id": tx.ID,
		"amount":         amount,
		"currency":       op.Currency,
	})

	return tx, nil
}

// compensate creates the reversing ledger entry: from/to swapped, type
// REFUND, settled later through the same path as any transaction.
func (s *Service) compensate(ctx context.Context, op *domain.Operation, amount int64) (*domain.Transaction, error) {
	req := &ledger.CreateTransactionRequest{
		Type:          domain.TransactionTypeRefund,
		OperationID:   &op.ID,
		FromAccountID: *op.ToAccountID,
		ToAccountID:   *op.FromAccountID,
	}

	if op.ToCurrency == op.Currency || op.ToAmount == 0 {
		req.Amount = amount
	} else {
		// The receiving side holds a different currency: debit it at the
		// operation's original implied rate. The rate is a ratio of major
		// amounts, matching how the ledger converts on settlement, so
		// pairs with different exponents round-trip exactly.
		share := decimal.NewFromInt(amount).Div(decimal.NewFromInt(op.Amount))
		req.Amount = decimal.NewFromInt(op.ToAmount).Mul(share).Round(0).IntPart()
		rate := money.New(op.Amount, op.Currency).Decimal().
			Div(money.New(op.ToAmount, op.ToCurrency).Decimal())
		req.ExchangeRate = &rate
	}

	return s.ledger.CreateTransaction(ctx, req)
}

func (s *Service) record(ctx context.Context, op *domain.Operation, amount int64, reason string, status domain.RefundStatus, txID *uuid.UUID) {
	now := s.now()
	ref := &domain.Refund{
		ID:            uuid.New(),
		OperationID:   op.ID,
		TransactionID: txID,
		Amount:        amount,
		Currency:      op.Currency,
		Reason:        reason,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, ref); err != nil {
		s.logger.Error("Refund record create failed", map[string]interface{}{
			"operation_id": op.ID,
			"error":        err.Error(),
		})
	}
}

func (s *Service) GetRefund(ctx context.Context, id uuid.UUID) (*domain.Refund, error) {
	return s.repo.FindByID(ctx, id)
}

// HandleSettlement completes or fails the refund tracked for a settled
// refund-type transaction, and marks the operation RETURNED once its
// entitlement is exhausted.
func (s *Service) HandleSettlement(ctx context.Context, tx *domain.Transaction) error {
	ref, err := s.repo.FindByTransactionID(ctx, tx.ID)
	if err == errors.ErrRefundNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	switch tx.Status {
	case domain.TransactionStatusSuccessful:
		ref.Status = domain.RefundStatusCompleted
	case domain.TransactionStatusFailed:
		ref.Status = domain.RefundStatusFailed
	default:
		return nil
	}
	ref.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, ref); err != nil {
		return err
	}

	if ref.Status != domain.RefundStatusCompleted {
		return nil
	}

	op, err := s.ops.GetOperation(ctx, ref.OperationID)
	if err != nil {
		return err
	}
	completed, err := s.repo.SumCompleted(ctx, op.ID)
	if err != nil {
		return err
	}

	if completed >= op.Amount || remainingEntitlement(op, s.now())-completed <= 0 {
		return s.ops.MarkReturned(ctx, op.ID, "")
	}
	return s.ops.UpdateSubstatus(ctx, op.ID, SubstatusPartiallyRefunded)
}

// remainingEntitlement is how much of the operation may still be
// refunded, before subtracting refunds already in flight. Subscription
// operations decay linearly over their period; everything else keeps the
// full original amount.
func remainingEntitlement(op *domain.Operation, now time.Time) int64 {
	if !subscriptionStyle(op) {
		return op.Amount
	}

	total := op.PeriodEnd.Sub(*op.PeriodStart)
	if total <= 0 {
		return op.Amount
	}
	elapsed := now.Sub(*op.PeriodStart)
	if elapsed <= 0 {
		return op.Amount
	}
	if elapsed >= total {
		return 0
	}

	remaining := decimal.NewFromInt(op.Amount).
		Mul(decimal.NewFromInt(int64(total - elapsed))).
		Div(decimal.NewFromInt(int64(total)))
	return remaining.Round(0).IntPart()
}

func subscriptionStyle(op *domain.Operation) bool {
	return op.PeriodStart != nil && op.PeriodEnd != nil
}

type RefundRepository interface {
	Create(ctx context.Context, ref *domain.Refund) error
	Update(ctx context.Context, ref *domain.Refund) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Refund, error)
	FindByTransactionID(ctx context.Context, txID uuid.UUID) (*domain.Refund, error)
	// SumActiveOrCompleted totals refund amounts not refused or failed.
	SumActiveOrCompleted(ctx context.Context, operationID uuid.UUID) (int64, error)
	SumCompleted(ctx context.Context, operationID uuid.UUID) (int64, error)
}

type Operations interface {
	GetOperation(ctx context.Context, id uuid.UUID) (*domain.Operation, error)
	MarkReturned(ctx context.Context, id uuid.UUID, substatus string) error
	UpdateSubstatus(ctx context.Context, id uuid.UUID, substatus string) error
}

type Ledger interface {
	CreateTransaction(ctx context.Context, req *ledger.CreateTransactionRequest) (*domain.Transaction, error)
}
