package create

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/middlewarectx"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/response"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/storage"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) CreateGood(ctx context.Context, p storage.CreateGoodParams) (*models.Good, error) {
	args := m.Called(ctx, p)
	good, _ := args.Get(0).(*models.Good)
	return good, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func withCaller(req *http.Request, callerID int64) *http.Request {
	ctx := context.WithValue(req.Context(), middlewarectx.UserID, callerID)
	return req.WithContext(ctx)
}

func TestCreateHandler_JSON(t *testing.T) {
	svc := new(ServiceMock)
	wantParams := storage.CreateGoodParams{
		Name:        "calculator",
		SellerID:    1,
		Num:         2,
		Value:       25.5,
		Description: "almost new",
		Labels:      []int{1, 2},
	}
	created := &models.Good{ID: 10, Name: "calculator", SellerID: 1, Status: models.GoodStatusAvailable}
	svc.On("CreateGood", mock.Anything, wantParams).Return(created, nil).Once()

	handler := New(newNoopLogger(), svc)

	body := `{"name":"calculator","num":2,"value":25.5,"description":"almost new","labels":[1,2]}`
	req := httptest.NewRequest(http.MethodPost, "/goods", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, withCaller(req, 1))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, response.StatusOK, resp.Status)
	svc.AssertExpectations(t)
}

func TestCreateHandler_FormFallback(t *testing.T) {
	// Старые клиенты отправляют form-encoded тело со строковыми числами.
	svc := new(ServiceMock)
	wantParams := storage.CreateGoodParams{
		Name:     "soldering iron",
		SellerID: 3,
		Num:      1,
		Value:    15,
		Labels:   []int{2, 5},
		IsTask:   false,
	}
	created := &models.Good{ID: 11, Name: "soldering iron", SellerID: 3}
	svc.On("CreateGood", mock.Anything, wantParams).Return(created, nil).Once()

	handler := New(newNoopLogger(), svc)

	form := url.Values{}
	form.Set("name", "soldering iron")
	form.Set("num", "1")
	form.Set("value", "15")
	form.Set("labels", "2, 5")
	req := httptest.NewRequest(http.MethodPost, "/goods", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, withCaller(req, 3))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateHandler_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "missing name",
			body:      `{"num":1,"value":10}`,
			wantError: "field Name is a required field",
		},
		{
			name:      "zero num",
			body:      `{"name":"x","num":0,"value":10}`,
			wantError: "field Num must be positive",
		},
		{
			name:      "negative value",
			body:      `{"name":"x","num":1,"value":-5}`,
			wantError: "field Value must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := New(newNoopLogger(), new(ServiceMock))

			req := httptest.NewRequest(http.MethodPost, "/goods", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, withCaller(req, 1))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp response.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Contains(t, resp.Error, tt.wantError)
		})
	}
}

func TestCreateHandler_Unauthorized(t *testing.T) {
	handler := New(newNoopLogger(), new(ServiceMock))

	req := httptest.NewRequest(http.MethodPost, "/goods", strings.NewReader(`{"name":"x","num":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
