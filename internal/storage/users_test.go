package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "prefer",
		"verified", "confirmation_token", "created_at",
	})
}

func TestUpdateUserPreferences(t *testing.T) {
	t.Run("wholesale replace with normalization", func(t *testing.T) {
		st, mock := newTestStorage(t)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET prefer = $1 WHERE id = $2")).
			WithArgs("[1,2]", int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := st.UpdateUserPreferences(context.Background(), 5, []int{2, 1, 2})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty set unsubscribes", func(t *testing.T) {
		st, mock := newTestStorage(t)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET prefer = $1 WHERE id = $2")).
			WithArgs("[]", int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := st.UpdateUserPreferences(context.Background(), 5, []int{})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-preferable label is rejected before touching the database", func(t *testing.T) {
		st, mock := newTestStorage(t)

		ok, err := st.UpdateUserPreferences(context.Background(), 5, []int{1, 3})
		assert.ErrorIs(t, err, ErrInvalidLabels)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindUsersInterestedIn(t *testing.T) {
	st, mock := newTestStorage(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE verified = TRUE AND prefer <> '[]'")).
		WillReturnRows(userRows().
			AddRow(int64(1), "alice", "alice@example.com", "hash", "[1]", true, nil, now).
			AddRow(int64(2), "bob", "bob@example.com", "hash", "[3]", true, nil, now).
			AddRow(int64(3), "carol", "carol@example.com", "hash", "[2,3]", true, nil, now))

	users, err := st.FindUsersInterestedIn(context.Background(), []int{1, 2})
	require.NoError(t, err)

	// Подходят только пользователи с пересекающимися подписками.
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, "carol", users[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUsersInterestedIn_EmptyLabels(t *testing.T) {
	st, mock := newTestStorage(t)

	// Объявление без меток никому не рассылается, запрос не выполняется.
	users, err := st.FindUsersInterestedIn(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserVerified(t *testing.T) {
	st, mock := newTestStorage(t)

	// Подтверждение обнуляет токен: повторное использование невозможно.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET verified = $1, confirmation_token = NULL WHERE id = $2")).
		WithArgs(true, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := st.UpdateUserVerified(context.Background(), 5, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
