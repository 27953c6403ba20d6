package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/config"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/events"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/labels"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/smtp"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
)

// fakeClient собирает отправленные письма в память.
type fakeClient struct {
	rcpts []string
	body  bytes.Buffer
}

func (c *fakeClient) Mail(_ string) error { return nil }
func (c *fakeClient) Rcpt(to string) error {
	c.rcpts = append(c.rcpts, to)
	return nil
}
func (c *fakeClient) Data() (io.WriteCloser, error) { return nopWriteCloser{&c.body}, nil }
func (c *fakeClient) Quit() error                   { return nil }
func (c *fakeClient) Close() error                  { return nil }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// fakeTransport выдает по одному клиенту на соединение; failAt позволяет
// имитировать отказ SMTP для n-го по счету соединения.
type fakeTransport struct {
	clients []*fakeClient
	failAt  int
}

func (t *fakeTransport) Connect() (smtp.Client, error) {
	if t.failAt > 0 && len(t.clients)+1 == t.failAt {
		t.clients = append(t.clients, nil)
		return nil, errors.New("connection refused")
	}
	c := &fakeClient{}
	t.clients = append(t.clients, c)
	return c, nil
}

func (t *fakeTransport) GetSMTPUser() string { return "noreply@toolman.example" }

type MatcherMock struct{ mock.Mock }

func (m *MatcherMock) FindUsersInterestedIn(ctx context.Context, labelIDs []int) ([]*models.User, error) {
	args := m.Called(ctx, labelIDs)
	return args.Get(0).([]*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.PublicBaseURL = "http://localhost:8080"
	cfg.FrontendBaseURL = "http://localhost:5173"
	cfg.SMTPSenderName = "BUPT Toolman"
	return cfg
}

func testCatalog() *labels.Catalog {
	return labels.NewCatalog([]labels.Label{
		{ID: 1, Name: "книги", Preferable: true},
		{ID: 2, Name: "электроника", Preferable: true},
	})
}

func newTestService(t *testing.T, transport *fakeTransport, matcher *MatcherMock) *SenderService {
	t.Helper()
	svc, err := NewSenderService(testConfig(), newNoopLogger(), transport, matcher, testCatalog())
	require.NoError(t, err)
	return svc
}

func TestHandleUserRegistered(t *testing.T) {
	transport := &fakeTransport{}
	svc := newTestService(t, transport, new(MatcherMock))

	body, err := json.Marshal(events.UserRegistered{
		UserID:            1,
		Name:              "alice",
		Email:             "alice@example.com",
		ConfirmationToken: "tok-123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleUserRegistered(body))
	require.Len(t, transport.clients, 1)

	client := transport.clients[0]
	assert.Equal(t, []string{"alice@example.com"}, client.rcpts)
	msg := client.body.String()
	assert.Contains(t, msg, "http://localhost:8080/user/confirm?token=tok-123")
	assert.Contains(t, msg, "multipart/alternative")
}

func TestHandleUserRegistered_BadPayloadIsDropped(t *testing.T) {
	transport := &fakeTransport{}
	svc := newTestService(t, transport, new(MatcherMock))

	// Невалидное событие не должно уходить в переотправку.
	require.NoError(t, svc.HandleUserRegistered([]byte("{not json")))
	assert.Empty(t, transport.clients)
}

func TestHandleListingCreated_FanOut(t *testing.T) {
	transport := &fakeTransport{}
	matcher := new(MatcherMock)
	svc := newTestService(t, transport, matcher)

	recipients := []*models.User{
		{ID: 1, Name: "alice", Email: "alice@example.com", Prefer: []int{1}},
		{ID: 2, Name: "bob", Email: "bob@example.com", Prefer: []int{1, 2}},
	}
	matcher.On("FindUsersInterestedIn", mock.Anything, []int{1}).Return(recipients, nil)

	body, err := json.Marshal(events.ListingCreated{
		GoodID: 10,
		Name:   "Учебник по алгоритмам",
		Value:  35,
		Labels: []int{1},
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleListingCreated(body))
	require.Len(t, transport.clients, 2)
	assert.Equal(t, []string{"alice@example.com"}, transport.clients[0].rcpts)
	assert.Equal(t, []string{"bob@example.com"}, transport.clients[1].rcpts)

	msg := transport.clients[0].body.String()
	assert.Contains(t, msg, "http://localhost:5173/goods/10")
}

func TestHandleListingCreated_FailedRecipientIsSkipped(t *testing.T) {
	// Отказ SMTP на первом адресате не прерывает рассылку второму.
	transport := &fakeTransport{failAt: 1}
	matcher := new(MatcherMock)
	svc := newTestService(t, transport, matcher)

	recipients := []*models.User{
		{ID: 1, Name: "alice", Email: "alice@example.com"},
		{ID: 2, Name: "bob", Email: "bob@example.com"},
	}
	matcher.On("FindUsersInterestedIn", mock.Anything, []int{2}).Return(recipients, nil)

	body, err := json.Marshal(events.ListingCreated{GoodID: 11, Name: "Паяльник", Value: 15, Labels: []int{2}})
	require.NoError(t, err)

	require.NoError(t, svc.HandleListingCreated(body))
	require.Len(t, transport.clients, 2)
	assert.Nil(t, transport.clients[0])
	assert.Equal(t, []string{"bob@example.com"}, transport.clients[1].rcpts)
}

func TestHandleListingCreated_NoRecipients(t *testing.T) {
	transport := &fakeTransport{}
	matcher := new(MatcherMock)
	svc := newTestService(t, transport, matcher)

	matcher.On("FindUsersInterestedIn", mock.Anything, []int{1}).Return([]*models.User(nil), nil)

	body, err := json.Marshal(events.ListingCreated{GoodID: 12, Name: "Лампа", Labels: []int{1}})
	require.NoError(t, err)

	require.NoError(t, svc.HandleListingCreated(body))
	assert.Empty(t, transport.clients)
}
