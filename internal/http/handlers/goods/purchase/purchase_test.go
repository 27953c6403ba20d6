package purchase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/middlewarectx"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/response"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/storage"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Purchase(ctx context.Context, goodID, buyerID int64) (*models.Order, error) {
	args := m.Called(ctx, goodID, buyerID)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newRequest(goodID string, buyerID int64, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/goods/"+goodID+"/update", strings.NewReader(body))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", goodID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middlewarectx.UserID, buyerID)
	return req.WithContext(ctx)
}

func TestPurchaseHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		goodID         string
		body           string
		mockExpected   bool
		mockOrder      *models.Order
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "successful purchase",
			goodID:         "10",
			body:           `{"status":"sold"}`,
			mockExpected:   true,
			mockOrder:      &models.Order{ID: 7, GoodsID: 10, BuyerID: 2, Status: models.OrderStatusProcessing},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "good already sold",
			goodID:         "10",
			body:           `{"status":"sold"}`,
			mockExpected:   true,
			mockErr:        storage.ErrNotAvailable,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Good is not available",
		},
		{
			name:           "good not found",
			goodID:         "999",
			body:           `{"status":"sold"}`,
			mockExpected:   true,
			mockErr:        storage.ErrNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "good not found",
		},
		{
			name:           "unsupported status",
			goodID:         "10",
			body:           `{"status":"removed"}`,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "only status sold is supported",
		},
		{
			name:           "bad good id",
			goodID:         "abc",
			body:           `{"status":"sold"}`,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid good id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.mockExpected {
				svc.On("Purchase", mock.Anything, mock.AnythingOfType("int64"), int64(2)).
					Return(tt.mockOrder, tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), svc)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newRequest(tt.goodID, 2, tt.body))

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp response.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			if tt.wantError != "" {
				assert.Contains(t, resp.Error, tt.wantError)
			}
			if tt.mockOrder != nil {
				data := resp.Data.(map[string]any)
				assert.Equal(t, "Purchase successful", data["message"])
			}
			svc.AssertExpectations(t)
		})
	}
}
