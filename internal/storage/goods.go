package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
)

const goodColumns = `id, seller_id, is_task, name, num, sold_num, labels, value, description, status, created_at`

// CreateGoodParams входные данные для создания объявления.
type CreateGoodParams struct {
	Name        string
	SellerID    int64
	Num         int
	Value       float64
	Description string
	Labels      []int
	IsTask      bool
}

func scanGood(row interface{ Scan(dest ...any) error }) (*models.Good, error) {
	g := &models.Good{}
	var labelsJSON string
	var description sql.NullString
	if err := row.Scan(&g.ID, &g.SellerID, &g.IsTask, &g.Name, &g.Num, &g.SoldNum,
		&labelsJSON, &g.Value, &description, &g.Status, &g.CreatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		g.Description = description.String
	}
	g.Labels = deserializeLabels(labelsJSON)
	return g, nil
}

// CreateGood сохраняет новое объявление: sold_num = 0, статус available,
// набор меток нормализуется (сортировка, без дубликатов).
func (s *Storage) CreateGood(ctx context.Context, p CreateGoodParams) (*models.Good, error) {
	const op = "storage.CreateGood"

	labelsJSON, err := serializeLabels(p.Labels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO goods (seller_id, is_task, name, num, sold_num, labels, value, description, status)
			  VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8)
			  RETURNING ` + goodColumns
	g, err := scanGood(s.DB.QueryRowContext(ctx, query,
		p.SellerID, p.IsTask, p.Name, p.Num, labelsJSON, p.Value, p.Description,
		models.GoodStatusAvailable))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidReference)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// GetGood возвращает объявление по его ID.
func (s *Storage) GetGood(ctx context.Context, id int64) (*models.Good, error) {
	const op = "storage.GetGood"

	query := `SELECT ` + goodColumns + ` FROM goods WHERE id = $1`
	g, err := scanGood(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// GetGoodsBySeller возвращает объявления продавца указанного вида.
func (s *Storage) GetGoodsBySeller(ctx context.Context, sellerID int64, isTask bool) ([]*models.Good, error) {
	const op = "storage.GetGoodsBySeller"

	query := `SELECT ` + goodColumns + ` FROM goods WHERE seller_id = $1 AND is_task = $2`
	return s.queryGoods(ctx, op, query, sellerID, isTask)
}

// GetRandomGoods возвращает до count доступных объявлений указанного вида
// в случайном порядке. Порядок не стабилен между вызовами.
func (s *Storage) GetRandomGoods(ctx context.Context, count int, isTask bool) ([]*models.Good, error) {
	const op = "storage.GetRandomGoods"

	query := `SELECT ` + goodColumns + ` FROM goods
			  WHERE status = $1 AND is_task = $2
			  ORDER BY RANDOM() LIMIT $3`
	return s.queryGoods(ctx, op, query, models.GoodStatusAvailable, isTask, count)
}

func (s *Storage) queryGoods(ctx context.Context, op, query string, args ...any) ([]*models.Good, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Good
	for rows.Next() {
		g, err := scanGood(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateGoodStatus переводит объявление в новый статус. Переход разрешён
// только из available (включая вырожденный available -> available):
// условие в UPDATE защищает от потерянных обновлений при гонке.
func (s *Storage) UpdateGoodStatus(ctx context.Context, id int64, status string) error {
	const op = "storage.UpdateGoodStatus"

	if !models.ValidGoodStatus(status) {
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidStatus, status)
	}

	query := `UPDATE goods SET status = $1 WHERE id = $2 AND status = $3`
	res, err := s.DB.ExecContext(ctx, query, status, id, models.GoodStatusAvailable)
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
	err = s.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM goods WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, ErrStatusConflict)
}

// PurchaseGood атомарно покупает товар: читает статус с блокировкой,
// переводит товар в sold и создаёт заказ на одну единицу со статусом
// processing. Либо фиксируются обе мутации, либо ни одной: при ошибке
// между чтением и коммитом товар остаётся available и покупку можно
// повторить. Из двух конкурентных покупок успешна ровно одна, вторая
// получает ErrNotAvailable.
func (s *Storage) PurchaseGood(ctx context.Context, goodID, buyerID int64) (*models.Order, error) {
	const op = "storage.PurchaseGood"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM goods WHERE id = $1 FOR UPDATE`, goodID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if status != models.GoodStatusAvailable {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAvailable)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE goods SET status = $1 WHERE id = $2`,
		models.GoodStatusSold, goodID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order := &models.Order{
		GoodsID: goodID,
		Num:     1,
		BuyerID: buyerID,
		Status:  models.OrderStatusProcessing,
	}
	err = tx.QueryRowContext(ctx, `INSERT INTO orders (goods_id, num, buyer_id, status)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, created_at`,
		order.GoodsID, order.Num, order.BuyerID, order.Status).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}
