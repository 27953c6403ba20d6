package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
)

const orderColumns = `id, goods_id, num, buyer_id, status, created_at`

// orderTransitions таблица разрешённых переходов статуса заказа:
// целевой статус -> статусы, из которых в него можно перейти.
// Терминальные статусы (completed, cancelled) не имеют исходящих переходов.
var orderTransitions = map[string][]string{
	models.OrderStatusProcessing: {models.OrderStatusPending},
	models.OrderStatusCompleted:  {models.OrderStatusProcessing},
	models.OrderStatusCancelled:  {models.OrderStatusPending, models.OrderStatusProcessing},
	models.OrderStatusPending:    {models.OrderStatusPending},
}

func scanOrder(row interface{ Scan(dest ...any) error }) (*models.Order, error) {
	o := &models.Order{}
	if err := row.Scan(&o.ID, &o.GoodsID, &o.Num, &o.BuyerID, &o.Status, &o.CreatedAt); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateOrder создаёт заказ со статусом по умолчанию pending.
func (s *Storage) CreateOrder(ctx context.Context, buyerID, goodsID int64, num int) (*models.Order, error) {
	const op = "storage.CreateOrder"

	query := `INSERT INTO orders (goods_id, num, buyer_id, status)
			  VALUES ($1, $2, $3, $4)
			  RETURNING ` + orderColumns
	o, err := scanOrder(s.DB.QueryRowContext(ctx, query,
		goodsID, num, buyerID, models.OrderStatusPending))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidReference)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

// GetOrder возвращает заказ по его ID.
func (s *Storage) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	const op = "storage.GetOrder"

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

// GetOrdersByBuyer возвращает заказы покупателя.
func (s *Storage) GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	const op = "storage.GetOrdersByBuyer"

	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`
	return s.queryOrders(ctx, op, query, buyerID)
}

// GetOrdersByGood возвращает заказы на указанный товар.
func (s *Storage) GetOrdersByGood(ctx context.Context, goodsID int64) ([]*models.Order, error) {
	const op = "storage.GetOrdersByGood"

	query := `SELECT ` + orderColumns + ` FROM orders WHERE goods_id = $1 ORDER BY created_at DESC`
	return s.queryOrders(ctx, op, query, goodsID)
}

func (s *Storage) queryOrders(ctx context.Context, op, query string, args ...any) ([]*models.Order, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateOrderStatus переводит заказ в новый статус. Переход проверяется по
// таблице orderTransitions условием в самом UPDATE, поэтому конкурентное
// обновление не может молча затереть чужой переход.
func (s *Storage) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	const op = "storage.UpdateOrderStatus"

	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidStatus, status)
	}

	from := orderTransitions[status]
	placeholders := make([]string, 0, len(from))
	args := []any{status, id}
	for _, st := range from {
		args = append(args, st)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(`UPDATE orders SET status = $1 WHERE id = $2 AND status IN (%s)`,
		strings.Join(placeholders, ", "))
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = s.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, ErrStatusConflict)
}
