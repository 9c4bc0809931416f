package refund

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/internal/ledger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

type MockRefundRepository struct {
	mock.Mock
}

func (m *MockRefundRepository) Create(ctx context.Context, ref *domain.Refund) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockRefundRepository) Update(ctx context.Context, ref *domain.Refund) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockRefundRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Refund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Refund), args.Error(1)
}

func (m *MockRefundRepository) FindByTransactionID(ctx context.Context, txID uuid.UUID) (*domain.Refund, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Refund), args.Error(1)
}

func (m *MockRefundRepository) SumActiveOrCompleted(ctx context.Context, operationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, operationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefundRepository) SumCompleted(ctx context.Context, operationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, operationID)
	return args.Get(0).(int64), args.Error(1)
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

func (m *MockOperations) MarkReturned(ctx context.Context, id uuid.UUID, substatus string) error {
	args := m.Called(ctx, id, substatus)
	return args.Error(0)
}

func (m *MockOperations) UpdateSubstatus(ctx context.Context, id uuid.UUID, substatus string) error {
	args := m.Called(ctx, id, substatus)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CreateTransaction(ctx context.Context, req *ledger.CreateTransactionRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func newTestService(repo *MockRefundRepository, ops *MockOperations, led *MockLedger, now time.Time) *Service {
	s := NewService(repo, ops, led, logger.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func successfulOperation(amount int64) *domain.Operation {
	from := uuid.New()
	to := uuid.New()
	return &domain.Operation{
		ID:            uuid.New(),
		Kind:          domain.OperationTopUp,
		Status:        domain.OperationStatusSuccessful,
		FromAccountID: &from,
		ToAccountID:   &to,
		Amount:        amount,
		Currency:      money.USD,
		ToAmount:      amount,
		ToCurrency:    money.USD,
	}
}

func TestRefund_SubscriptionProRataEntitlement(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(100 * 24 * time.Hour)
	now := start.Add(30 * 24 * time.Hour)

	op := successfulOperation(10000)
	op.PeriodStart = &start
	op.PeriodEnd = &end

	ops.On("GetOperation", mock.Anything, op.ID).Return(op, nil)
	repo.On("SumActiveOrCompleted", mock.Anything, op.ID).Return(int64(0), nil)

	created := &domain.Transaction{ID: uuid.New()}
	led.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(req *ledger.CreateTransactionRequest) bool {
		return req.Type == domain.TransactionTypeRefund &&
			req.Amount == 7000 &&
			req.FromAccountID == *op.ToAccountID &&
			req.ToAccountID == *op.FromAccountID
	})).Return(created, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(ref *domain.Refund) bool {
		return ref.Status == domain.RefundStatusProcessing &&
			ref.Amount == 7000 &&
			ref.TransactionID != nil && *ref.TransactionID == created.ID
	})).Return(nil)

	svc := newTestService(repo, ops, led, now)
	tx, err := svc.Refund(context.Background(), &RefundRequest{OperationID: op.ID, Amount: 9000})

	assert.NoError(t, err)
	assert.Equal(t, created.ID, tx.ID)
	led.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestRefund_PartialNonSubscription(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	op := successfulOperation(10000)
	ops.On("GetOperation", mock.Anything, op.ID).Return(op, nil)
	repo.On("SumActiveOrCompleted", mock.Anything, op.ID).Return(int64(2000), nil)

	created := &domain.Transaction{ID: uuid.New()}
	led.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(req *ledger.CreateTransactionRequest) bool {
		return req.Amount == 3000 && req.ExchangeRate == nil
	})).Return(created, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	_, err := svc.Refund(context.Background(), &RefundRequest{OperationID: op.ID, Amount: 3000})

	assert.NoError(t, err)
	led.AssertExpectations(t)
}

func TestRefund_ExceedsEntitlement(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	op := successfulOperation(10000)
	ops.On("GetOperation", mock.Anything, op.ID).Return(op, nil)
	repo.On("SumActiveOrCompleted", mock.Anything, op.ID).Return(int64(8000), nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(ref *domain.Refund) bool {
		return ref.Status == domain.RefundStatusRefused && ref.TransactionID == nil
	})).Return(nil)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	_, err := svc.Refund(context.Background(), &RefundRequest{OperationID: op.ID, Amount: 5000})

	assert.ErrorIs(t, err, errors.ErrRefundExceedsEntitlement)
	led.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestRefund_EntitlementExhausted(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	op := successfulOperation(10000)
	ops.On("GetOperation", mock.Anything, op.ID).Return(op, nil)
	repo.On("SumActiveOrCompleted", mock.Anything, op.ID).Return(int64(10000), nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(ref *domain.Refund) bool {
		return ref.Status == domain.RefundStatusRefused && ref.Amount == 0
	})).Return(nil)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	_, err := svc.Refund(context.Background(), &RefundRequest{OperationID: op.ID})

	assert.ErrorIs(t, err, errors.ErrOperationNotRefundable)
	led.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
}

func TestRefund_OperationNotSuccessful(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	op := successfulOperation(10000)
	op.Status = domain.OperationStatusPending
	ops.On("GetOperation", mock.Anything, op.ID).Return(op, nil)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	_, err := svc.Refund(context.Background(), &RefundRequest{OperationID: op.ID, Amount: 100})

	assert.ErrorIs(t, err, errors.ErrOperationNotRefundable)
	repo.AssertNotCalled(t, "SumActiveOrCompleted", mock.Anything, mock.Anything)
}

func TestRefund_CrossCurrencyImpliedRate(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	op := successfulOperation(10000)
	op.ToAmount = 9000
	op.ToCurrency = money.EUR

	ops.On("GetOperation", mock.Anything, op.ID).Return(op, nil)
	repo.On("SumActiveOrCompleted", mock.Anything, op.ID).Return(int64(0), nil)

	created := &domain.Transaction{ID: uuid.New()}
	led.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(req *ledger.CreateTransactionRequest) bool {
		// Half the operation is refunded: debit half of the EUR side,
		// convert back at the original implied rate.
		wantRate := decimal.NewFromInt(10000).Div(decimal.NewFromInt(9000))
		return req.Amount == 4500 &&
			req.ExchangeRate != nil &&
			req.ExchangeRate.Equal(wantRate)
	})).Return(created, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	_, err := svc.Refund(context.Background(), &RefundRequest{OperationID: op.ID, Amount: 5000})

	assert.NoError(t, err)
	led.AssertExpectations(t)
}

func TestRefund_CrossExponentImpliedRate(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	// 100.00 USD bought 200000 satoshi; the implied rate must be a ratio
	// of major amounts (100 / 0.002 = 50000) so the ledger's conversion
	// credits the full principal back.
	op := successfulOperation(10000)
	op.ToAmount = 200000
	op.ToCurrency = money.BTC

	ops.On("GetOperation", mock.Anything, op.ID).Return(op, nil)
	repo.On("SumActiveOrCompleted", mock.Anything, op.ID).Return(int64(0), nil)

	created := &domain.Transaction{ID: uuid.New()}
	led.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(req *ledger.CreateTransactionRequest) bool {
		if req.Amount != 200000 || req.ExchangeRate == nil {
			return false
		}
		if !req.ExchangeRate.Equal(decimal.NewFromInt(50000)) {
			return false
		}
		credited, err := money.New(req.Amount, money.BTC).Convert(*req.ExchangeRate, money.USD)
		return err == nil && credited.Units == 10000
	})).Return(created, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	_, err := svc.Refund(context.Background(), &RefundRequest{OperationID: op.ID})

	assert.NoError(t, err)
	led.AssertExpectations(t)
}

func TestHandleSettlement_FullRefundMarksReturned(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	op := successfulOperation(10000)
	tx := &domain.Transaction{ID: uuid.New(), Status: domain.TransactionStatusSuccessful}
	ref := &domain.Refund{ID: uuid.New(), OperationID: op.ID, Amount: 10000, Status: domain.RefundStatusProcessing}

	repo.On("FindByTransactionID", mock.Anything, tx.ID).Return(ref, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.Refund) bool {
		return r.Status == domain.RefundStatusCompleted
	})).Return(nil)
	ops.On("GetOperation", mock.Anything, op.ID).Return(op, nil)
	repo.On("SumCompleted", mock.Anything, op.ID).Return(int64(10000), nil)
	ops.On("MarkReturned", mock.Anything, op.ID, "").Return(nil)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	err := svc.HandleSettlement(context.Background(), tx)

	assert.NoError(t, err)
	ops.AssertExpectations(t)
	ops.AssertNotCalled(t, "UpdateSubstatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSettlement_PartialRefundSetsSubstatus(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	op := successfulOperation(10000)
	tx := &domain.Transaction{ID: uuid.New(), Status: domain.TransactionStatusSuccessful}
	ref := &domain.Refund{ID: uuid.New(), OperationID: op.ID, Amount: 4000, Status: domain.RefundStatusProcessing}

	repo.On("FindByTransactionID", mock.Anything, tx.ID).Return(ref, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)
	ops.On("GetOperation", mock.Anything, op.ID).Return(op, nil)
	repo.On("SumCompleted", mock.Anything, op.ID).Return(int64(4000), nil)
	ops.On("UpdateSubstatus", mock.Anything, op.ID, SubstatusPartiallyRefunded).Return(nil)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	err := svc.HandleSettlement(context.Background(), tx)

	assert.NoError(t, err)
	ops.AssertExpectations(t)
	ops.AssertNotCalled(t, "MarkReturned", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSettlement_FailedTransactionFailsRefund(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	tx := &domain.Transaction{ID: uuid.New(), Status: domain.TransactionStatusFailed}
	ref := &domain.Refund{ID: uuid.New(), OperationID: uuid.New(), Amount: 4000, Status: domain.RefundStatusProcessing}

	repo.On("FindByTransactionID", mock.Anything, tx.ID).Return(ref, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.Refund) bool {
		return r.Status == domain.RefundStatusFailed
	})).Return(nil)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	err := svc.HandleSettlement(context.Background(), tx)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	ops.AssertNotCalled(t, "GetOperation", mock.Anything, mock.Anything)
}

func TestHandleSettlement_NoRefundRecord(t *testing.T) {
	repo := new(MockRefundRepository)
	ops := new(MockOperations)
	led := new(MockLedger)

	tx := &domain.Transaction{ID: uuid.New(), Status: domain.TransactionStatusSuccessful}
	repo.On("FindByTransactionID", mock.Anything, tx.ID).Return(nil, errors.ErrRefundNotFound)

	svc := newTestService(repo, ops, led, time.Now().UTC())
	err := svc.HandleSettlement(context.Background(), tx)

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
