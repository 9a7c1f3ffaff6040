package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ecocollect-billing/internal/api_gateway/service"
	"github.com/ecocollect-billing/internal/domain/wallet"
)

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetWallet(ctx context.Context, residentID uuid.UUID, limit int) (*wallet.Wallet, []*wallet.Entry, error) {
	args := m.Called(ctx, residentID, limit)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var history []*wallet.Entry
	if args.Get(1) != nil {
		history = args.Get(1).([]*wallet.Entry)
	}
	return args.Get(0).(*wallet.Wallet), history, args.Error(2)
}

func (m *MockWalletService) AddFunds(ctx context.Context, residentID uuid.UUID, amount int64, method, correlationID string) (*wallet.Wallet, error) {
	args := m.Called(ctx, residentID, amount, method, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

var _ service.WalletService = (*MockWalletService)(nil)

func newWalletRouter(h *WalletHandler, residentID uuid.UUID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asPrincipal(residentID, role))
	r.GET("/wallet/:residentId", h.Get)
	r.POST("/wallet/:residentId/add-funds", h.AddFunds)
	return r
}

func TestWalletHandler_Get(t *testing.T) {
	residentID := uuid.New()

	t.Run("DefaultHistoryDepth", func(t *testing.T) {
		mockWallets := new(MockWalletService)
		h := NewWalletHandler(newTestLogger(), mockWallets)
		r := newWalletRouter(h, residentID, "resident")

		w := &wallet.Wallet{ResidentID: residentID, Balance: 800, Currency: "EUR", UpdatedAt: time.Now().UTC()}
		history := []*wallet.Entry{
			{ID: uuid.New(), ResidentID: residentID, Direction: "CREDIT", Amount: 800, CreatedAt: time.Now().UTC()},
		}
		mockWallets.On("GetWallet", mock.Anything, residentID, 0).Return(w, history, nil).Once()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/wallet/"+residentID.String(), nil)
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data WalletResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(800), resp.Data.Balance)
		require.Len(t, resp.Data.History, 1)
		mockWallets.AssertExpectations(t)
	})

	t.Run("LimitQueryPassedThrough", func(t *testing.T) {
		mockWallets := new(MockWalletService)
		h := NewWalletHandler(newTestLogger(), mockWallets)
		r := newWalletRouter(h, residentID, "resident")

		w := &wallet.Wallet{ResidentID: residentID, Balance: 0, Currency: "EUR", UpdatedAt: time.Now().UTC()}
		mockWallets.On("GetWallet", mock.Anything, residentID, 25).Return(w, []*wallet.Entry{}, nil).Once()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/wallet/"+residentID.String()+"?limit=25", nil)
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockWallets.AssertExpectations(t)
	})

	t.Run("InvalidLimitRejected", func(t *testing.T) {
		mockWallets := new(MockWalletService)
		h := NewWalletHandler(newTestLogger(), mockWallets)
		r := newWalletRouter(h, residentID, "resident")

		for _, raw := range []string{"abc", "0", "-5"} {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/wallet/"+residentID.String()+"?limit="+raw, nil)
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)
		}
		mockWallets.AssertNotCalled(t, "GetWallet", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ForeignWalletForbidden", func(t *testing.T) {
		mockWallets := new(MockWalletService)
		h := NewWalletHandler(newTestLogger(), mockWallets)
		r := newWalletRouter(h, residentID, "resident")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/wallet/"+uuid.New().String(), nil)
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockWallets.AssertNotCalled(t, "GetWallet", mock.Anything, mock.Anything, mock.Anything)
	})
}
