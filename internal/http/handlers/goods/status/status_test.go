package status

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
	services "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/services/market"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/storage"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) UpdateGoodStatus(ctx context.Context, callerID, goodID int64, status string) error {
	return m.Called(ctx, callerID, goodID, status).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newRequest(goodID string, callerID int64, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/goods/"+goodID+"/status", strings.NewReader(body))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", goodID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middlewarectx.UserID, callerID)
	return req.WithContext(ctx)
}

func TestStatusHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockExpected   bool
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "remove good",
			body:           `{"status":"removed"}`,
			mockExpected:   true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "unknown status value",
			body:           `{"status":"archived"}`,
			mockExpected:   true,
			mockErr:        storage.ErrInvalidStatus,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid status value",
		},
		{
			name:           "transition conflict",
			body:           `{"status":"removed"}`,
			mockExpected:   true,
			mockErr:        storage.ErrStatusConflict,
			wantStatusCode: http.StatusConflict,
			wantError:      "good is not available",
		},
		{
			name:           "not the seller",
			body:           `{"status":"removed"}`,
			mockExpected:   true,
			mockErr:        services.ErrForbidden,
			wantStatusCode: http.StatusForbidden,
			wantError:      "only the seller can change good status",
		},
		{
			name:           "missing status",
			body:           `{}`,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "field Status is a required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.mockExpected {
				svc.On("UpdateGoodStatus", mock.Anything, int64(1), int64(10), mock.AnythingOfType("string")).
					Return(tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), svc)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newRequest("10", 1, tt.body))

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp response.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			if tt.wantError != "" {
				assert.Contains(t, resp.Error, tt.wantError)
			}
			svc.AssertExpectations(t)
		})
	}
}
