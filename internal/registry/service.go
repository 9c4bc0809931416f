// Package registry owns accounts, their hierarchy, and balance derivation.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

// balanceEpsilon is the reconciliation tolerance, in minor units.
const balanceEpsilon = 1

type Service struct {
	repo    AccountRepository
	history HistoryRepository
	logger  logger.Logger
}

func NewService(repo AccountRepository, history HistoryRepository, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		history: history,
		logger:  log,
	}
}

type CreateAccountRequest struct {
	OwnerKind  domain.OwnerKind   `json:"owner_kind" validate:"required,oneof=system client provider"`
	Kind       domain.AccountKind `json:"kind" validate:"required,oneof=wire card crypto wallet"`
	Currency   money.Currency     `json:"currency" validate:"required"`
	ParentID   *uuid.UUID         `json:"parent_id"`
	ProviderID *uuid.UUID         `json:"provider_id"`

	OutgoingRuleID   *uuid.UUID `json:"outgoing_rule_id"`
	IncomingRuleID   *uuid.UUID `json:"incoming_rule_id"`
	InternalRuleID   *uuid.UUID `json:"internal_rule_id"`
	RefundRuleID     *uuid.UUID `json:"refund_rule_id"`
	ChargebackRuleID *uuid.UUID `json:"chargeback_rule_id"`
}

// CreateAccount registers a new account. The currency is fixed for the
// account's lifetime; there is deliberately no way to change it later.
func (s *Service) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*domain.Account, error) {
	if !money.IsSupported(req.Currency) {
		return nil, errors.ErrInvalidCurrency
	}

	if req.OwnerKind == domain.OwnerSystem {
		// One system account per (currency, kind), with no hierarchy.
		if req.ParentID != nil || req.ProviderID != nil {
			return nil, errors.Wrap(errors.ErrAccountExists, "system accounts carry no parent or provider")
		}
		existing, err := s.repo.FindSystemAccount(ctx, req.Currency, req.Kind)
		if err != nil && err != errors.ErrAccountNotFound {
			return nil, err
		}
		if existing != nil {
			return nil, errors.ErrAccountExists
		}
	}

	if req.ParentID != nil {
		// Fee sub-accounts are provider-owned and unique per parent.
		if req.OwnerKind != domain.OwnerProvider {
			return nil, errors.Wrap(errors.ErrAccountExists, "fee sub-accounts must be provider-owned")
		}
		parent, err := s.repo.FindByID(ctx, *req.ParentID)
		if err != nil {
			return nil, errors.Wrap(err, "parent account")
		}
		if parent.Currency != req.Currency {
			return nil, errors.ErrCurrencyMismatch
		}
		existing, err := s.repo.FindFeeSubAccount(ctx, *req.ParentID)
		if err != nil && err != errors.ErrAccountNotFound {
			return nil, err
		}
		if existing != nil {
			return nil, errors.ErrAccountExists
		}
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:               uuid.New(),
		OwnerKind:        req.OwnerKind,
		Kind:             req.Kind,
		Currency:         req.Currency,
		ParentID:         req.ParentID,
		ProviderID:       req.ProviderID,
		OutgoingRuleID:   req.OutgoingRuleID,
		IncomingRuleID:   req.IncomingRuleID,
		InternalRuleID:   req.InternalRuleID,
		RefundRuleID:     req.RefundRuleID,
		ChargebackRuleID: req.ChargebackRuleID,
		Balance:          0,
		Status:           domain.AccountStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account created", map[string]interface{}{
		"account_id": account.ID,
		"owner_kind": account.OwnerKind,
		"kind":       account.Kind,
		"currency":   account.Currency,
	})

	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	return s.repo.FindAll(ctx, limit, offset)
}

// FeeSubAccount returns the provider fee-collection account attached to
// the given account.
func (s *Service) FeeSubAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	sub, err := s.repo.FindFeeSubAccount(ctx, accountID)
	if err == errors.ErrAccountNotFound {
		return nil, errors.ErrFeeAccountNotFound
	}
	return sub, err
}

// GetBalance returns the cached derived balance for an account.
func (s *Service) GetBalance(ctx context.Context, id uuid.UUID) (money.Money, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return money.Money{}, err
	}
	return account.BalanceMoney(), nil
}

// Recompute rebuilds the balance from full transaction history:
// settled incoming credits, minus outgoing money that is settled or
// reserved by a pending operation, minus pending withdrawals that have
// not materialized as transactions yet. Recomputation is idempotent and
// order-independent, so concurrent settlements converge.
//
// Recompute never fails the settlement path: on a replay error it
// degrades to the last consistent snapshot and reports the error.
func (s *Service) Recompute(ctx context.Context, id uuid.UUID) money.Money {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("Balance recompute skipped: account lookup failed", map[string]interface{}{
			"account_id": id,
			"error":      err.Error(),
		})
		return money.Money{}
	}

	incoming, err := s.history.SumSettledIncoming(ctx, id)
	if err != nil {
		return s.degrade(account, err)
	}
	outgoing, err := s.history.SumOutgoingReserved(ctx, id)
	if err != nil {
		return s.degrade(account, err)
	}
	pendingWithdraw, err := s.history.SumPendingWithdrawals(ctx, id)
	if err != nil {
		return s.degrade(account, err)
	}

	derived := incoming - outgoing - pendingWithdraw

	if diff := derived - account.Balance; diff > balanceEpsilon || diff < -balanceEpsilon {
		// Recorded for reconciliation; serving a flagged balance beats
		// refusing to serve one.
		s.logger.Warn("Balance inconsistency detected", map[string]interface{}{
			"account_id": id,
			"cached":     account.Balance,
			"recomputed": derived,
			"currency":   account.Currency,
		})
	}

	if err := s.repo.UpdateBalance(ctx, id, derived); err != nil {
		return s.degrade(account, err)
	}

	return money.New(derived, account.Currency)
}

func (s *Service) degrade(account *domain.Account, err error) money.Money {
	s.logger.Error("Balance recompute degraded to cached snapshot", map[string]interface{}{
		"account_id": account.ID,
		"error":      err.Error(),
	})
	return account.BalanceMoney()
}

// BalanceAsOf reconstructs the settled balance as it stood after the
// given transaction, for audit replay. Pending reservations are excluded:
// the replay covers recorded history only.
func (s *Service) BalanceAsOf(ctx context.Context, id uuid.UUID, txID uuid.UUID) (money.Money, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return money.Money{}, err
	}

	incoming, err := s.history.SumSettledIncomingAsOf(ctx, id, txID)
	if err != nil {
		return money.Money{}, err
	}
	outgoing, err := s.history.SumSettledOutgoingAsOf(ctx, id, txID)
	if err != nil {
		return money.Money{}, err
	}

	return money.New(incoming-outgoing, account.Currency), nil
}

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindFeeSubAccount(ctx context.Context, parentID uuid.UUID) (*domain.Account, error)
	FindSystemAccount(ctx context.Context, currency money.Currency, kind domain.AccountKind) (*domain.Account, error)
	FindAll(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance int64) error
}

// HistoryRepository exposes the aggregate sums the balance formula needs.
type HistoryRepository interface {
	SumSettledIncoming(ctx context.Context, accountID uuid.UUID) (int64, error)
	SumOutgoingReserved(ctx context.Context, accountID uuid.UUID) (int64, error)
	SumPendingWithdrawals(ctx context.Context, accountID uuid.UUID) (int64, error)
	SumSettledIncomingAsOf(ctx context.Context, accountID, txID uuid.UUID) (int64, error)
	SumSettledOutgoingAsOf(ctx context.Context, accountID, txID uuid.UUID) (int64, error)
}
