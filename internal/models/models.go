// Package models содержит основные структуры данных приложения:
// пользователей, товары, заказы и сообщения.
package models

import "time"

// Статусы товара. Переходы разрешены только из GoodStatusAvailable.
const (
	GoodStatusAvailable = "available"
	GoodStatusSold      = "sold"
	GoodStatusRemoved   = "removed"
)

// Статусы заказа. Схема и приложение используют один и тот же набор,
// значение по умолчанию — OrderStatusPending.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// User описывает пользователя. PasswordHash и ConfirmationToken никогда
// не сериализуются в HTTP-ответы.
type User struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email,omitempty"`
	PasswordHash      string    `json:"-"`
	Prefer            []int     `json:"prefer"`
	Verified          bool      `json:"verified"`
	ConfirmationToken *string   `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

// Good описывает объявление: товар (IsTask=false) или задание (IsTask=true).
type Good struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"seller_id"`
	IsTask      bool      `json:"is_task"`
	Name        string    `json:"name"`
	Num         int       `json:"num"`
	SoldNum     int       `json:"sold_num"`
	Labels      []int     `json:"labels"`
	Value       float64   `json:"value"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Order описывает заказ на товар.
type Order struct {
	ID        int64     `json:"id"`
	GoodsID   int64     `json:"goods_id"`
	Num       int       `json:"num"`
	BuyerID   int64     `json:"buyer_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Message описывает личное сообщение между двумя пользователями.
// Сущности «диалог» нет: диалоги вычисляются запросом по парам
// отправитель/получатель.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Conversation — элемент списка диалогов: собеседник и последнее сообщение.
type Conversation struct {
	PeerID        int64     `json:"peer_id"`
	PeerName      string    `json:"peer_name"`
	LastText      string    `json:"last_text"`
	LastCreatedAt time.Time `json:"last_created_at"`
}

// ValidGoodStatus сообщает, входит ли status в допустимый набор статусов товара.
func ValidGoodStatus(status string) bool {
	switch status {
	case GoodStatusAvailable, GoodStatusSold, GoodStatusRemoved:
		return true
	}
	return false
}

// ValidOrderStatus сообщает, входит ли status в допустимый набор статусов заказа.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}
