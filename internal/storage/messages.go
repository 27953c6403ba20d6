package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
)

// CreateMessage сохраняет личное сообщение. Текст обрезается по пробелам;
// пустой после обрезки текст отклоняется. Ссылки на отправителя и
// получателя проверяются внешними ключами.
func (s *Storage) CreateMessage(ctx context.Context, senderID, receiverID int64, text string) (*models.Message, error) {
	const op = "storage.CreateMessage"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyText)
	}

	m := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
	}
	query := `INSERT INTO messages (sender_id, receiver_id, text)
			  VALUES ($1, $2, $3)
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query, senderID, receiverID, text).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidReference)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// GetMessagesBetween возвращает переписку двух пользователей в обоих
// направлениях, упорядоченную по времени создания по возрастанию.
func (s *Storage) GetMessagesBetween(ctx context.Context, userA, userB int64) ([]*models.Message, error) {
	const op = "storage.GetMessagesBetween"

	query := `SELECT id, sender_id, receiver_id, text, created_at
			  FROM messages
			  WHERE (sender_id = $1 AND receiver_id = $2)
			     OR (sender_id = $2 AND receiver_id = $1)
			  ORDER BY created_at ASC`
	rows, err := s.DB.QueryContext(ctx, query, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err = rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListConversations возвращает собеседников пользователя с последним
// сообщением каждого диалога. Диалоги вычисляются по различным парам
// отправитель/получатель, отдельной сущности для них нет.
func (s *Storage) ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	const op = "storage.ListConversations"

	query := `SELECT DISTINCT ON (m.peer_id) m.peer_id, u.name, m.text, m.created_at
			  FROM (
			      SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS peer_id,
			             text, created_at
			      FROM messages
			      WHERE sender_id = $1 OR receiver_id = $1
			  ) m
			  JOIN users u ON u.id = m.peer_id
			  ORDER BY m.peer_id, m.created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Conversation
	for rows.Next() {
		c := &models.Conversation{}
		if err = rows.Scan(&c.PeerID, &c.PeerName, &c.LastText, &c.LastCreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
