// Package storage реализует хранилище данных на основе PostgreSQL.
// Владеет таблицами users, goods, orders и messages и предоставляет
// атомарные операции создания, чтения и ограниченного обновления,
// а также единственную многошаговую транзакцию — покупку товара.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/labels"
)

// Ошибки уровня хранилища. Обработчики транслируют их в HTTP-статусы.
var (
	// ErrNotFound запись отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrNotAvailable товар не в статусе available на момент покупки.
	ErrNotAvailable = errors.New("good is not available")
	// ErrInvalidStatus статус вне допустимого набора.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrStatusConflict переход статуса запрещён из текущего состояния.
	ErrStatusConflict = errors.New("status transition not allowed")
	// ErrInvalidLabels набор меток содержит метку, недоступную для подписки.
	ErrInvalidLabels = errors.New("labels contain a non-preferable label")
	// ErrEmptyText текст сообщения пуст после обрезки пробелов.
	ErrEmptyText = errors.New("message text is empty")
	// ErrInvalidReference ссылка на несуществующего пользователя или товар.
	ErrInvalidReference = errors.New("referenced row does not exist")
)

// Storage инкапсулирует пул соединений с PostgreSQL и каталог меток,
// по которому валидируются подписки пользователей.
type Storage struct {
	DB      *sql.DB
	catalog *labels.Catalog
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string, catalog *labels.Catalog) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db, catalog: catalog}, nil
}

// NewWithDB оборачивает готовое соединение. Используется в тестах.
func NewWithDB(db *sql.DB, catalog *labels.Catalog) *Storage {
	return &Storage{DB: db, catalog: catalog}
}

// normalizeLabels убирает дубликаты и сортирует набор меток.
// Хранилище гарантирует, что записанный набор читается как множество.
func normalizeLabels(ids []int) []int {
	if len(ids) == 0 {
		return []int{}
	}
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func serializeLabels(ids []int) (string, error) {
	data, err := json.Marshal(normalizeLabels(ids))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// deserializeLabels разбирает JSON-массив меток. Некорректные данные в базе
// дают пустой набор, а не ошибку чтения всей записи.
func deserializeLabels(s string) []int {
	if s == "" {
		return []int{}
	}
	var ids []int
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return []int{}
	}
	return normalizeLabels(ids)
}

// isForeignKeyViolation распознаёт нарушение внешнего ключа PostgreSQL.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// intersects сообщает, пересекаются ли два набора меток.
func intersects(a, b []int) bool {
	set := make(map[int]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
