// Package events описывает полезные нагрузки событий уведомлений,
// передаваемых через брокер между API и сервисом рассылки.
package events

// UserRegistered публикуется после фиксации новой учётной записи.
// Получатель письма один — сам зарегистрировавшийся пользователь.
type UserRegistered struct {
	UserID            int64  `json:"user_id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	ConfirmationToken string `json:"confirmation_token"`
}

// ListingCreated публикуется после фиксации нового объявления.
// Рассылка адресатам определяется на стороне потребителя: матчер находит
// верифицированных пользователей с пересекающимися подписками.
type ListingCreated struct {
	GoodID      int64   `json:"good_id"`
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
	Labels      []int   `json:"labels"`
}
