package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sahartak2025/Code-samples-sub000/internal/commission"
	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	apperrors "github.com/sahartak2025/Code-samples-sub000/pkg/errors"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

// --- Mocks ---

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByOperationID(ctx context.Context, operationID uuid.UUID) ([]*domain.Transaction, error) {
	args := m.Called(ctx, operationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Settle(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, settledAt time.Time) (bool, error) {
	args := m.Called(ctx, id, status, settledAt)
	return args.Bool(0), args.Error(1)
}

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccounts) FeeSubAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccounts) Recompute(ctx context.Context, id uuid.UUID) money.Money {
	args := m.Called(ctx, id)
	return args.Get(0).(money.Money)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(rc commission.Context) *domain.CommissionRule {
	args := m.Called(rc)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.CommissionRule)
}

type MockOperations struct {
	mock.Mock
}

func (m *MockOperations) GetOperation(ctx context.Context, id uuid.UUID) (*domain.Operation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Operation), args.Error(1)
}

func (m *MockOperations) RederiveStatus(ctx context.Context, id uuid.UUID) (domain.OperationStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.OperationStatus), args.Error(1)
}

type MockRefundObserver struct {
	mock.Mock
}

func (m *MockRefundObserver) HandleSettlement(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func activeAccount(currency money.Currency) *domain.Account {
	return &domain.Account{
		ID:        uuid.New(),
		OwnerKind: domain.OwnerClient,
		Kind:      domain.AccountKindWire,
		Currency:  currency,
		Status:    domain.AccountStatusActive,
	}
}

// --- CreateTransaction ---

func TestCreateTransaction_SameCurrency(t *testing.T) {
	from := activeAccount(money.USD)
	to := activeAccount(money.USD)

	mockAccounts := new(MockAccounts)
	mockAccounts.On("GetAccount", mock.Anything, from.ID).Return(from, nil)
	mockAccounts.On("GetAccount", mock.Anything, to.ID).Return(to, nil)
	mockRepo := new(MockTransactionRepository)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	service := NewService(mockRepo, mockAccounts, new(MockResolver), new(MockOperations), logger.NewNop())
	tx, err := service.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type:          domain.TransactionTypePrincipal,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        5000,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, tx.Status)
	assert.Equal(t, int64(5000), tx.TransAmount)
	assert.Equal(t, int64(5000), tx.RecipientAmount)
	assert.True(t, tx.ExchangeRate.Equal(decimal.NewFromInt(1)))
}

func TestCreateTransaction_CrossCurrencyRequiresRate(t *testing.T) {
	from := activeAccount(money.USD)
	to := activeAccount(money.EUR)

	mockAccounts := new(MockAccounts)
	mockAccounts.On("GetAccount", mock.Anything, from.ID).Return(from, nil)
	mockAccounts.On("GetAccount", mock.Anything, to.ID).Return(to, nil)

	service := NewService(new(MockTransactionRepository), mockAccounts, new(MockResolver), new(MockOperations), logger.NewNop())
	_, err := service.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type:          domain.TransactionTypePrincipal,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        5000,
	})

	assert.ErrorIs(t, err, apperrors.ErrExchangeRateRequired)
}

func TestCreateTransaction_CrossCurrencyConvertsCredit(t *testing.T) {
	from := activeAccount(money.USD)
	to := activeAccount(money.EUR)

	mockAccounts := new(MockAccounts)
	mockAccounts.On("GetAccount", mock.Anything, from.ID).Return(from, nil)
	mockAccounts.On("GetAccount", mock.Anything, to.ID).Return(to, nil)
	mockRepo := new(MockTransactionRepository)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	rate := decimal.RequireFromString("0.9")
	service := NewService(mockRepo, mockAccounts, new(MockResolver), new(MockOperations), logger.NewNop())
	tx, err := service.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type:          domain.TransactionTypePrincipal,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        10000,
		ExchangeRate:  &rate,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(10000), tx.TransAmount)
	assert.Equal(t, money.USD, tx.TransCurrency)
	assert.Equal(t, int64(9000), tx.RecipientAmount)
	assert.Equal(t, money.EUR, tx.RecipientCurrency)
}

func TestCreateTransaction_InactiveAccount(t *testing.T) {
	from := activeAccount(money.USD)
	to := activeAccount(money.USD)
	to.Status = domain.AccountStatusInactive

	mockAccounts := new(MockAccounts)
	mockAccounts.On("GetAccount", mock.Anything, from.ID).Return(from, nil)
	mockAccounts.On("GetAccount", mock.Anything, to.ID).Return(to, nil)

	service := NewService(new(MockTransactionRepository), mockAccounts, new(MockResolver), new(MockOperations), logger.NewNop())
	_, err := service.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type:          domain.TransactionTypePrincipal,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        5000,
	})

	assert.ErrorIs(t, err, apperrors.ErrAccountInactive)
}

// --- Settle ---

func TestSettle_NonTerminalOutcome(t *testing.T) {
	service := NewService(new(MockTransactionRepository), new(MockAccounts), new(MockResolver), new(MockOperations), logger.NewNop())
	err := service.Settle(context.Background(), uuid.New(), domain.TransactionStatusPending)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOutcome)
}

func TestSettle_SecondAttemptRejected(t *testing.T) {
	txID := uuid.New()
	tx := &domain.Transaction{
		ID:            txID,
		Type:          domain.TransactionTypePrincipal,
		FromAccountID: uuid.New(),
		ToAccountID:   uuid.New(),
		Status:        domain.TransactionStatusSuccessful,
	}

	mockRepo := new(MockTransactionRepository)
	mockRepo.On("FindByID", mock.Anything, txID).Return(tx, nil)
	// The conditional update finds no pending row.
	mockRepo.On("Settle", mock.Anything, txID, domain.TransactionStatusFailed, mock.Anything).Return(false, nil)
	mockAccounts := new(MockAccounts)

	service := NewService(mockRepo, mockAccounts, new(MockResolver), new(MockOperations), logger.NewNop())
	err := service.Settle(context.Background(), txID, domain.TransactionStatusFailed)

	assert.ErrorIs(t, err, apperrors.ErrAlreadySettled)
	mockAccounts.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestSettle_SuccessfulPrincipalPostsFee(t *testing.T) {
	from := activeAccount(money.USD)
	to := activeAccount(money.USD)
	feeAccount := &domain.Account{ID: uuid.New(), ParentID: &from.ID, Currency: money.USD, Status: domain.AccountStatusActive}
	opID := uuid.New()
	template := uuid.New()

	txID := uuid.New()
	tx := &domain.Transaction{
		ID:            txID,
		OperationID:   &opID,
		Type:          domain.TransactionTypePrincipal,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		TransAmount:   1000,
		TransCurrency: money.USD,
		Status:        domain.TransactionStatusPending,
	}
	rule := &domain.CommissionRule{Percent: decimal.NewFromInt(2)}

	mockRepo := new(MockTransactionRepository)
	mockRepo.On("FindByID", mock.Anything, txID).Return(tx, nil)
	mockRepo.On("Settle", mock.Anything, txID, domain.TransactionStatusSuccessful, mock.Anything).Return(true, nil)
	// 2% of 10.00 is the expected fee leg, created and settled inline.
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(fee *domain.Transaction) bool {
		return fee.Type == domain.TransactionTypeSystemFee &&
			fee.TransAmount == 20 &&
			fee.ToAccountID == feeAccount.ID &&
			fee.ParentID != nil && *fee.ParentID == txID
	})).Return(nil)
	mockRepo.On("Settle", mock.Anything, mock.Anything, domain.TransactionStatusSuccessful, mock.Anything).Return(true, nil)

	mockAccounts := new(MockAccounts)
	mockAccounts.On("GetAccount", mock.Anything, from.ID).Return(from, nil)
	mockAccounts.On("FeeSubAccount", mock.Anything, from.ID).Return(feeAccount, nil)
	mockAccounts.On("Recompute", mock.Anything, mock.Anything).Return(money.New(0, money.USD))

	mockResolver := new(MockResolver)
	mockResolver.On("Resolve", mock.MatchedBy(func(rc commission.Context) bool {
		return rc.Account.ID == from.ID && rc.RateTemplateID == template && rc.Direction == domain.DirectionOutgoing
	})).Return(rule)

	mockOps := new(MockOperations)
	mockOps.On("GetOperation", mock.Anything, opID).Return(&domain.Operation{ID: opID, RateTemplateID: template}, nil)
	mockOps.On("RederiveStatus", mock.Anything, opID).Return(domain.OperationStatusSuccessful, nil)

	service := NewService(mockRepo, mockAccounts, mockResolver, mockOps, logger.NewNop())
	err := service.Settle(context.Background(), txID, domain.TransactionStatusSuccessful)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	// Source, destination, and fee accounts all get recomputed.
	mockAccounts.AssertNumberOfCalls(t, "Recompute", 3)
}

func TestSettle_FailedOutcomePostsNoFee(t *testing.T) {
	from := activeAccount(money.USD)
	to := activeAccount(money.USD)
	txID := uuid.New()
	tx := &domain.Transaction{
		ID:            txID,
		Type:          domain.TransactionTypePrincipal,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		TransAmount:   1000,
		TransCurrency: money.USD,
		Status:        domain.TransactionStatusPending,
	}

	mockRepo := new(MockTransactionRepository)
	mockRepo.On("FindByID", mock.Anything, txID).Return(tx, nil)
	mockRepo.On("Settle", mock.Anything, txID, domain.TransactionStatusFailed, mock.Anything).Return(true, nil)
	mockAccounts := new(MockAccounts)
	mockAccounts.On("Recompute", mock.Anything, mock.Anything).Return(money.New(0, money.USD))
	mockResolver := new(MockResolver)

	service := NewService(mockRepo, mockAccounts, mockResolver, new(MockOperations), logger.NewNop())
	err := service.Settle(context.Background(), txID, domain.TransactionStatusFailed)

	assert.NoError(t, err)
	mockResolver.AssertNotCalled(t, "Resolve", mock.Anything)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	// The failed reservation still releases: both accounts recompute.
	mockAccounts.AssertNumberOfCalls(t, "Recompute", 2)
}

func TestSettle_MissingFeeSubAccountSkipsFeeNotPrincipal(t *testing.T) {
	from := activeAccount(money.USD)
	to := activeAccount(money.USD)
	txID := uuid.New()
	tx := &domain.Transaction{
		ID:            txID,
		Type:          domain.TransactionTypePrincipal,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		TransAmount:   1000,
		TransCurrency: money.USD,
		Status:        domain.TransactionStatusPending,
	}
	rule := &domain.CommissionRule{Percent: decimal.NewFromInt(2)}

	mockRepo := new(MockTransactionRepository)
	mockRepo.On("FindByID", mock.Anything, txID).Return(tx, nil)
	mockRepo.On("Settle", mock.Anything, txID, domain.TransactionStatusSuccessful, mock.Anything).Return(true, nil)
	mockAccounts := new(MockAccounts)
	mockAccounts.On("GetAccount", mock.Anything, from.ID).Return(from, nil)
	mockAccounts.On("FeeSubAccount", mock.Anything, from.ID).Return(nil, apperrors.ErrFeeAccountNotFound)
	mockAccounts.On("Recompute", mock.Anything, mock.Anything).Return(money.New(0, money.USD))
	mockResolver := new(MockResolver)
	mockResolver.On("Resolve", mock.Anything).Return(rule)

	service := NewService(mockRepo, mockAccounts, mockResolver, new(MockOperations), logger.NewNop())
	err := service.Settle(context.Background(), txID, domain.TransactionStatusSuccessful)

	assert.NoError(t, err)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSettle_RefundSettlementNotifiesObserver(t *testing.T) {
	from := activeAccount(money.USD)
	to := activeAccount(money.USD)
	txID := uuid.New()
	tx := &domain.Transaction{
		ID:            txID,
		Type:          domain.TransactionTypeRefund,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		TransAmount:   500,
		TransCurrency: money.USD,
		Status:        domain.TransactionStatusPending,
	}

	mockRepo := new(MockTransactionRepository)
	mockRepo.On("FindByID", mock.Anything, txID).Return(tx, nil)
	mockRepo.On("Settle", mock.Anything, txID, domain.TransactionStatusSuccessful, mock.Anything).Return(true, nil)
	mockAccounts := new(MockAccounts)
	mockAccounts.On("GetAccount", mock.Anything, from.ID).Return(from, nil)
	mockAccounts.On("FeeSubAccount", mock.Anything, from.ID).Return(nil, apperrors.ErrFeeAccountNotFound)
	mockAccounts.On("Recompute", mock.Anything, mock.Anything).Return(money.New(0, money.USD))
	mockResolver := new(MockResolver)
	mockResolver.On("Resolve", mock.Anything).Return(nil)

	observer := new(MockRefundObserver)
	observer.On("HandleSettlement", mock.Anything, mock.MatchedBy(func(settled *domain.Transaction) bool {
		return settled.ID == txID && settled.Status == domain.TransactionStatusSuccessful
	})).Return(nil)

	service := NewService(mockRepo, mockAccounts, mockResolver, new(MockOperations), logger.NewNop())
	service.SetRefundObserver(observer)

	assert.NoError(t, service.Settle(context.Background(), txID, domain.TransactionStatusSuccessful))
	observer.AssertExpectations(t)
}
