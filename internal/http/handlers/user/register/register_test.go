package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/response"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Register(ctx context.Context, name, email, rawPassword string) (*models.User, error) {
	args := m.Called(ctx, name, email, rawPassword)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		mockUser       *models.User
		mockErr        error
		wantStatusCode int
		wantStatus     string
		wantError      string
	}{
		{
			name:           "valid registration",
			requestBody:    Request{Name: "alice", Email: "alice@example.com", Password: "secret123"},
			mockUser:       &models.User{ID: 1, Name: "alice"},
			wantStatusCode: http.StatusCreated,
			wantStatus:     response.StatusOK,
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     response.StatusError,
			wantError:      "invalid request body",
		},
		{
			name:           "missing email",
			requestBody:    Request{Name: "alice", Password: "secret123"},
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     response.StatusError,
			wantError:      "field Email is a required field",
		},
		{
			name:           "bad email",
			requestBody:    Request{Name: "alice", Email: "not-an-email", Password: "secret123"},
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     response.StatusError,
			wantError:      "field Email must be a valid email address",
		},
		{
			name:           "short password",
			requestBody:    Request{Name: "alice", Email: "alice@example.com", Password: "123"},
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     response.StatusError,
			wantError:      "field Password is too short",
		},
		{
			name:           "service failure",
			requestBody:    Request{Name: "alice", Email: "alice@example.com", Password: "secret123"},
			mockErr:        errors.New("storage is down"),
			wantStatusCode: http.StatusInternalServerError,
			wantStatus:     response.StatusError,
			wantError:      "failed to register user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.mockUser != nil || tt.mockErr != nil {
				svc.On("Register", mock.Anything, "alice", "alice@example.com", "secret123").
					Return(tt.mockUser, tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), svc)

			body, err := json.Marshal(tt.requestBody)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/user/register", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp response.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			if tt.wantError != "" {
				assert.Contains(t, resp.Error, tt.wantError)
			}
			if tt.mockUser != nil {
				data := resp.Data.(map[string]any)
				assert.Equal(t, float64(1), data["user_id"])
			}
			svc.AssertExpectations(t)
		})
	}
}
