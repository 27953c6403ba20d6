package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
)

const userColumns = `id, name, email, password_hash, prefer, verified, confirmation_token, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	u := &models.User{}
	var email sql.NullString
	var prefer string
	var token sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &email, &u.PasswordHash, &prefer,
		&u.Verified, &token, &u.CreatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		u.Email = email.String
	}
	if token.Valid {
		u.ConfirmationToken = &token.String
	}
	u.Prefer = deserializeLabels(prefer)
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает вставленную запись.
func (s *Storage) CreateUser(ctx context.Context, name, email, passwordHash string, verified bool, confirmationToken *string) (*models.User, error) {
	const op = "storage.CreateUser"

	query := `INSERT INTO users (name, email, password_hash, verified, confirmation_token)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query,
		name, email, passwordHash, verified, confirmationToken))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его ID.
func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUser"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByLogin возвращает пользователя по имени или email.
// Имя не уникально: берётся первая подходящая запись.
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	const op = "storage.GetUserByLogin"

	query := `SELECT ` + userColumns + ` FROM users WHERE name = $1 OR email = $1 ORDER BY id LIMIT 1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, login))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByConfirmationToken возвращает пользователя по токену подтверждения.
// Поиск строгий: после верификации токен обнуляется, поэтому повторное
// использование того же токена даёт ErrNotFound.
func (s *Storage) GetUserByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	const op = "storage.GetUserByConfirmationToken"

	query := `SELECT ` + userColumns + ` FROM users WHERE confirmation_token = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateUserVerified выставляет флаг верификации и безусловно обнуляет
// токен подтверждения. Возвращает, была ли затронута запись.
func (s *Storage) UpdateUserVerified(ctx context.Context, id int64, verified bool) (bool, error) {
	const op = "storage.UpdateUserVerified"

	query := `UPDATE users SET verified = $1, confirmation_token = NULL WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, verified, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// UpdateUserPreferences целиком заменяет набор подписок пользователя.
// Набор валидируется по каталогу: любая метка без флага preferable
// отклоняет обновление, сохранённый набор остаётся прежним.
func (s *Storage) UpdateUserPreferences(ctx context.Context, id int64, labelIDs []int) (bool, error) {
	const op = "storage.UpdateUserPreferences"

	if !s.catalog.AllPreferable(labelIDs) {
		return false, fmt.Errorf("%s: %w", op, ErrInvalidLabels)
	}

	prefer, err := serializeLabels(labelIDs)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET prefer = $1 WHERE id = $2`, prefer, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// FindUsersInterestedIn возвращает верифицированных пользователей, чей набор
// подписок пересекается с labelIDs. Это полное сканирование пользователей
// с непустыми подписками: O(число активных подписчиков) на каждое объявление,
// что приемлемо при ожидаемом масштабе.
func (s *Storage) FindUsersInterestedIn(ctx context.Context, labelIDs []int) ([]*models.User, error) {
	const op = "storage.FindUsersInterestedIn"

	if len(labelIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE verified = TRUE AND prefer <> '[]'`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if intersects(u.Prefer, labelIDs) {
			result = append(result, u)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
