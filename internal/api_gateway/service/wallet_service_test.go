package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ecocollect-billing/internal/domain/outbox"
	"github.com/ecocollect-billing/internal/domain/shared"
	"github.com/ecocollect-billing/internal/domain/wallet"
)

type fakeTxRunner struct {
	beginErr error
}

func (f *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(nil)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetOrCreate(ctx context.Context, residentID uuid.UUID, currency string) (*wallet.Wallet, error) {
	args := m.Called(ctx, residentID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Get(ctx context.Context, residentID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, residentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) LockForUpdate(ctx context.Context, residentID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, residentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Credit(ctx context.Context, residentID uuid.UUID, amount int64) (int64, error) {
	args := m.Called(ctx, residentID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepository) Debit(ctx context.Context, residentID uuid.UUID, amount int64) (int64, error) {
	args := m.Called(ctx, residentID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepository) AddEntry(ctx context.Context, entry *wallet.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockWalletRepository) RecentHistory(ctx context.Context, residentID uuid.UUID, limit int) ([]*wallet.Entry, error) {
	args := m.Called(ctx, residentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Entry), args.Error(1)
}

func (m *MockWalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	m.Called(tx)
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}

var (
	_ wallet.Repository = (*MockWalletRepository)(nil)
	_ outbox.Repository = (*MockOutboxRepository)(nil)
)

func TestWalletServiceImpl_GetWallet(t *testing.T) {
	ctx := context.Background()
	residentID := uuid.New()

	t.Run("DefaultHistoryDepth", func(t *testing.T) {
		mockWallets := new(MockWalletRepository)
		mockOutbox := new(MockOutboxRepository)
		service := NewWalletService(newTestLogger(), &fakeTxRunner{}, mockWallets, mockOutbox, "EUR")

		w := &wallet.Wallet{ResidentID: residentID, Balance: 500, Currency: "EUR"}
		history := []*wallet.Entry{
			{ID: uuid.New(), ResidentID: residentID, Direction: shared.DirectionCredit, Amount: 500},
		}

		mockWallets.On("GetOrCreate", ctx, residentID, "EUR").Return(w, nil).Once()
		mockWallets.On("RecentHistory", ctx, residentID, 5).Return(history, nil).Once()

		gotWallet, gotHistory, err := service.GetWallet(ctx, residentID, 0)

		require.NoError(t, err)
		assert.Equal(t, w, gotWallet)
		assert.Equal(t, history, gotHistory)
		mockWallets.AssertExpectations(t)
	})

	t.Run("ExplicitLimitPassedThrough", func(t *testing.T) {
		mockWallets := new(MockWalletRepository)
		mockOutbox := new(MockOutboxRepository)
		service := NewWalletService(newTestLogger(), &fakeTxRunner{}, mockWallets, mockOutbox, "EUR")

		w := &wallet.Wallet{ResidentID: residentID, Balance: 500, Currency: "EUR"}

		mockWallets.On("GetOrCreate", ctx, residentID, "EUR").Return(w, nil).Once()
		mockWallets.On("RecentHistory", ctx, residentID, 20).Return([]*wallet.Entry{}, nil).Once()

		_, _, err := service.GetWallet(ctx, residentID, 20)

		require.NoError(t, err)
		mockWallets.AssertExpectations(t)
	})

	t.Run("OversizedLimitClamped", func(t *testing.T) {
		mockWallets := new(MockWalletRepository)
		mockOutbox := new(MockOutboxRepository)
		service := NewWalletService(newTestLogger(), &fakeTxRunner{}, mockWallets, mockOutbox, "EUR")

		w := &wallet.Wallet{ResidentID: residentID, Balance: 500, Currency: "EUR"}

		mockWallets.On("GetOrCreate", ctx, residentID, "EUR").Return(w, nil).Once()
		mockWallets.On("RecentHistory", ctx, residentID, 100).Return([]*wallet.Entry{}, nil).Once()

		_, _, err := service.GetWallet(ctx, residentID, 5000)

		require.NoError(t, err)
		mockWallets.AssertExpectations(t)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		mockWallets := new(MockWalletRepository)
		mockOutbox := new(MockOutboxRepository)
		service := NewWalletService(newTestLogger(), &fakeTxRunner{}, mockWallets, mockOutbox, "EUR")
		repoErr := errors.New("db error")

		mockWallets.On("GetOrCreate", ctx, residentID, "EUR").Return(nil, repoErr).Once()

		gotWallet, gotHistory, err := service.GetWallet(ctx, residentID, 0)

		assert.ErrorIs(t, err, repoErr)
		assert.Nil(t, gotWallet)
		assert.Nil(t, gotHistory)
	})
}

func TestWalletServiceImpl_AddFunds(t *testing.T) {
	ctx := context.Background()
	residentID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockWallets := new(MockWalletRepository)
		mockOutbox := new(MockOutboxRepository)
		service := NewWalletService(newTestLogger(), &fakeTxRunner{}, mockWallets, mockOutbox, "EUR")

		w := &wallet.Wallet{ResidentID: residentID, Balance: 100, Currency: "EUR"}

		mockWallets.On("GetOrCreate", ctx, residentID, "EUR").Return(w, nil).Once()
		mockWallets.On("WithTx", mock.Anything).Once()
		mockWallets.On("Credit", ctx, residentID, int64(250)).Return(int64(350), nil).Once()

		var entry *wallet.Entry
		mockWallets.On("AddEntry", ctx, mock.AnythingOfType("*wallet.Entry")).
			Run(func(args mock.Arguments) { entry = args.Get(1).(*wallet.Entry) }).
			Return(nil).Once()

		var msg *outbox.Message
		mockOutbox.On("WithTx", mock.Anything).Once()
		mockOutbox.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).
			Run(func(args mock.Arguments) { msg = args.Get(1).(*outbox.Message) }).
			Return(nil).Once()

		got, err := service.AddFunds(ctx, residentID, 250, "card", "corr-1")

		require.NoError(t, err)
		assert.Equal(t, int64(350), got.Balance)

		require.NotNil(t, entry)
		assert.Equal(t, shared.DirectionCredit, entry.Direction)
		assert.Equal(t, int64(250), entry.Amount)
		assert.Equal(t, "Top-up via card", entry.Note)

		require.NotNil(t, msg)
		txn, txnErr := msg.GetAuditTransaction()
		require.NoError(t, txnErr)
		assert.Equal(t, residentID, txn.ResidentID)
		assert.Equal(t, int64(250), txn.Amount)
		require.NotNil(t, txn.WalletBalanceAfter)
		assert.Equal(t, int64(350), *txn.WalletBalanceAfter)

		mockWallets.AssertExpectations(t)
		mockOutbox.AssertExpectations(t)
	})

	t.Run("RejectsNonPositiveAmount", func(t *testing.T) {
		mockWallets := new(MockWalletRepository)
		mockOutbox := new(MockOutboxRepository)
		service := NewWalletService(newTestLogger(), &fakeTxRunner{}, mockWallets, mockOutbox, "EUR")

		_, err := service.AddFunds(ctx, residentID, 0, "card", "")
		assert.ErrorIs(t, err, wallet.ErrInvalidAmount)

		_, err = service.AddFunds(ctx, residentID, -10, "card", "")
		assert.ErrorIs(t, err, wallet.ErrInvalidAmount)

		mockWallets.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CreditFailureAbortsTransaction", func(t *testing.T) {
		mockWallets := new(MockWalletRepository)
		mockOutbox := new(MockOutboxRepository)
		service := NewWalletService(newTestLogger(), &fakeTxRunner{}, mockWallets, mockOutbox, "EUR")
		creditErr := errors.New("credit failed")

		w := &wallet.Wallet{ResidentID: residentID, Balance: 100, Currency: "EUR"}
		mockWallets.On("GetOrCreate", ctx, residentID, "EUR").Return(w, nil).Once()
		mockWallets.On("WithTx", mock.Anything).Once()
		mockWallets.On("Credit", ctx, residentID, int64(250)).Return(int64(0), creditErr).Once()

		got, err := service.AddFunds(ctx, residentID, 250, "card", "")

		assert.ErrorIs(t, err, creditErr)
		assert.Nil(t, got)
		mockOutbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
