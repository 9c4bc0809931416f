// Package ledger is the append-mostly store of atomic money movements.
// Settlement is the only mutator of terminal state and runs at most once
// per transaction, enforced by a conditional update on status.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sahartak2025/Code-samples-sub000/internal/commission"
	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

type Service struct {
	repo     TransactionRepository
	accounts Accounts
	resolver Resolver
	ops      Operations
	refunds  RefundObserver
	logger   logger.Logger
}

func NewService(repo TransactionRepository, accounts Accounts, resolver Resolver, ops Operations, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		resolver: resolver,
		ops:      ops,
		logger:   log,
	}
}

// SetRefundObserver wires the refund handler in after construction; the
// refund service itself depends on the ledger for compensating entries.
func (s *Service) SetRefundObserver(obs RefundObserver) {
	s.refunds = obs
}

type CreateTransactionRequest struct {
	Type          domain.TransactionType `json:"type" validate:"required"`
	OperationID   *uuid.UUID             `json:"operation_id"`
	ParentID      *uuid.UUID             `json:"parent_id"`
	FromAccountID uuid.UUID              `json:"from_account_id" validate:"required"`
	ToAccountID   uuid.UUID              `json:"to_account_id" validate:"required"`
	// Amount is debited from the source account, in its currency's minor
	// units.
	Amount int64 `json:"amount" validate:"required,gt=0"`
	// ExchangeRate converts the debited amount into the recipient
	// currency. Required when the two accounts differ in currency; it is
	// supplied by the external rate source and never recomputed here.
	ExchangeRate *decimal.Decimal `json:"exchange_rate"`
}

// CreateTransaction records a new PENDING movement between two accounts.
func (s *Service) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, errors.ErrInvalidAmount
	}

	from, err := s.accounts.GetAccount(ctx, req.FromAccountID)
	if err != nil {
		return nil, errors.Wrap(err, "from account")
	}
	to, err := s.accounts.GetAccount(ctx, req.ToAccountID)
	if err != nil {
		return nil, errors.Wrap(err, "to account")
	}
	if from.Status != domain.AccountStatusActive || to.Status != domain.AccountStatusActive {
		return nil, errors.ErrAccountInactive
	}

	debit := money.New(req.Amount, from.Currency)

	rate := decimal.NewFromInt(1)
	credit := money.New(req.Amount, to.Currency)
	if from.Currency != to.Currency {
		if req.ExchangeRate == nil || req.ExchangeRate.LessThanOrEqual(decimal.Zero) {
			return nil, errors.ErrExchangeRateRequired
		}
		rate = *req.ExchangeRate
		credit, err = debit.Convert(rate, to.Currency)
		if err != nil {
			return nil, err
		}
	}

	tx := &domain.Transaction{
		ID:                uuid.New(),
		OperationID:       req.OperationID,
		ParentID:          req.ParentID,
		Type:              req.Type,
		FromAccountID:     from.ID,
		ToAccountID:       to.ID,
		TransAmount:       debit.Units,
		TransCurrency:     debit.Currency,
		RecipientAmount:   credit.Units,
		RecipientCurrency: credit.Currency,
		ExchangeRate:      rate,
		Status:            domain.TransactionStatusPending,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("Transaction created", map[string]interface{}{
		"transaction_id": tx.ID,
		"type":           tx.Type,
		"from":           tx.FromAccountID,
		"to":             tx.ToAccountID,
		"amount":         tx.TransAmount,
		"currency":       tx.TransCurrency,
	})

	return tx, nil
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.repo.FindByID(ctx, id)
}

// AccountTransactions pages through the entries touching an account,
// from either side, newest first.
func (s *Service) AccountTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.FindByAccountID(ctx, accountID, limit, offset)
}

// Settle reports the outcome of a transaction's execution leg. It must be
// called exactly once per transaction; a second call fails with
// AlreadySettled and changes nothing. On a successful principal
// settlement the applicable fee legs are created and settled in the same
// pass, then balances are recomputed for every account touched.
func (s *Service) Settle(ctx context.Context, id uuid.UUID, outcome domain.TransactionStatus) error {
	if !outcome.Terminal() {
		return errors.ErrInvalidOutcome
	}

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	settledAt := time.Now().UTC()
	ok, err := s.repo.Settle(ctx, id, outcome, settledAt)
	if err != nil {
		return errors.Wrap(err, "settle transaction")
	}
	if !ok {
		// The conditional update matched no pending row: somebody else
		// won the race or the caller is double-reporting. Honoring it
		// would corrupt balance history, so reject loudly.
		s.logger.Error("Duplicate settlement rejected", map[string]interface{}{
			"transaction_id": id,
			"reported":       outcome,
			"recorded":       tx.Status,
		})
		return errors.ErrAlreadySettled
	}

	tx.Status = outcome
	tx.SettledAt = &settledAt

	touched := map[uuid.UUID]struct{}{
		tx.FromAccountID: {},
		tx.ToAccountID:   {},
	}

	if outcome == domain.TransactionStatusSuccessful && !tx.Type.IsFee() {
		s.applyFees(ctx, tx, touched)
	}

	// Failed settlements release the pending reservation, so balances are
	// recomputed on every terminal outcome.
	for accountID := range touched {
		s.accounts.Recompute(ctx, accountID)
	}

	if tx.OperationID != nil {
		if _, err := s.ops.RederiveStatus(ctx, *tx.OperationID); err != nil {
			s.logger.Error("Operation status rederive failed", map[string]interface{}{
				"operation_id":   *tx.OperationID,
				"transaction_id": tx.ID,
				"error":          err.Error(),
			})
		}
	}

	if tx.Type == domain.TransactionTypeRefund && s.refunds != nil {
		if err := s.refunds.HandleSettlement(ctx, tx); err != nil {
			s.logger.Error("Refund settlement hook failed", map[string]interface{}{
				"transaction_id": tx.ID,
				"error":          err.Error(),
			})
		}
	}

	s.logger.Info("Transaction settled", map[string]interface{}{
		"transaction_id": tx.ID,
		"outcome":        outcome,
	})

	return nil
}

// applyFees resolves the commission owed on a settled movement and posts
// the fee legs. Fees settle immediately: they are not separately
// retryable, and a failed fee never fails the principal.
func (s *Service) applyFees(ctx context.Context, tx *domain.Transaction, touched map[uuid.UUID]struct{}) {
	from, err := s.accounts.GetAccount(ctx, tx.FromAccountID)
	if err != nil {
		s.logger.Error("Fee resolution skipped: source account lookup failed", map[string]interface{}{
			"transaction_id": tx.ID,
			"error":          err.Error(),
		})
		return
	}

	var template uuid.UUID
	if tx.OperationID != nil {
		op, err := s.ops.GetOperation(ctx, *tx.OperationID)
		if err != nil {
			s.logger.Error("Fee resolution skipped: operation lookup failed", map[string]interface{}{
				"transaction_id": tx.ID,
				"error":          err.Error(),
			})
			return
		}
		template = op.RateTemplateID
	}

	rule := s.resolver.Resolve(commission.Context{
		Account:        from,
		RateTemplateID: template,
		Direction:      domain.DirectionOutgoing,
		Type:           tx.Type,
	})

	principal := money.New(tx.TransAmount, tx.TransCurrency)
	serviceFee, networkFee := commission.FeeParts(rule, principal, 1)
	if serviceFee.IsZero() && networkFee.IsZero() {
		return
	}

	feeAccount, err := s.accounts.FeeSubAccount(ctx, from.ID)
	if err != nil {
		// Without a destination the fee cannot be posted; the principal
		// settlement stands and the gap is left to reconciliation.
		s.logger.Error("Fee skipped: no fee sub-account", map[string]interface{}{
			"transaction_id": tx.ID,
			"account_id":     from.ID,
			"error":          err.Error(),
		})
		return
	}

	if serviceFee.IsPositive() {
		s.postFee(ctx, tx, feeAccount.ID, domain.TransactionTypeSystemFee, serviceFee, touched)
	}
	if networkFee.IsPositive() {
		s.postFee(ctx, tx, feeAccount.ID, domain.TransactionTypeBlockchainFee, networkFee, touched)
	}
}

func (s *Service) postFee(ctx context.Context, parent *domain.Transaction, feeAccountID uuid.UUID, feeType domain.TransactionType, fee money.Money, touched map[uuid.UUID]struct{}) {
	now := time.Now().UTC()
	feeTx := &domain.Transaction{
		ID:                uuid.New(),
		OperationID:       parent.OperationID,
		ParentID:          &parent.ID,
		Type:              feeType,
		FromAccountID:     parent.FromAccountID,
		ToAccountID:       feeAccountID,
		TransAmount:       fee.Units,
		TransCurrency:     fee.Currency,
		RecipientAmount:   fee.Units,
		RecipientCurrency: fee.Currency,
		ExchangeRate:      decimal.NewFromInt(1),
		Status:            domain.TransactionStatusPending,
		CreatedAt:         now,
	}

	if err := s.repo.Create(ctx, feeTx); err != nil {
		s.logger.Error("Fee transaction create failed", map[string]interface{}{
			"parent_id": parent.ID,
			"type":      feeType,
			"error":     err.Error(),
		})
		return
	}

	if _, err := s.repo.Settle(ctx, feeTx.ID, domain.TransactionStatusSuccessful, now); err != nil {
		s.logger.Error("Fee transaction settle failed", map[string]interface{}{
			"fee_transaction_id": feeTx.ID,
			"error":              err.Error(),
		})
		return
	}

	touched[feeAccountID] = struct{}{}

	s.logger.Info("Fee transaction posted", map[string]interface{}{
		"fee_transaction_id": feeTx.ID,
		"parent_id":          parent.ID,
		"type":               feeType,
		"amount":             fee.Units,
		"currency":           fee.Currency,
	})
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindByOperationID(ctx context.Context, operationID uuid.UUID) ([]*domain.Transaction, error)
	FindByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error)
	// Settle conditionally moves status from pending to the given
	// terminal status. It reports false when no pending row matched,
	// which is how the at-most-once invariant is enforced.
	Settle(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, settledAt time.Time) (bool, error)
}

type Accounts interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FeeSubAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	Recompute(ctx context.Context, id uuid.UUID) money.Money
}

type Resolver interface {
	Resolve(rc commission.Context) *domain.CommissionRule
}

type Operations interface {
	GetOperation(ctx context.Context, id uuid.UUID) (*domain.Operation, error)
	RederiveStatus(ctx context.Context, id uuid.UUID) (domain.OperationStatus, error)
}

// RefundObserver is notified when a refund-type transaction settles.
type RefundObserver interface {
	HandleSettlement(ctx context.Context, tx *domain.Transaction) error
}
