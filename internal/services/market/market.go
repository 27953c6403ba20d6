// Package services содержит бизнес-логику маркетплейса: учётные записи,
// объявления, заказы и личные сообщения. Сервис не знает про HTTP:
// обработчики передают уже проверенные данные, сервис применяет правила
// предметной области и публикует события уведомлений.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/events"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/password"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/sl"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/token"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/metrics"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/rabbitmq"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/storage"
)

// Ошибки бизнес-уровня. Обработчики переводят их в HTTP статусы.
var (
	// ErrInvalidCredentials неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified учётная запись не подтверждена по email.
	ErrNotVerified = errors.New("account is not verified")
	// ErrForbidden операция запрещена для данного пользователя.
	ErrForbidden = errors.New("operation is not allowed for this user")
)

// Repository описывает контракт хранилища, используемый сервисом.
type Repository interface {
	CreateUser(ctx context.Context, name, email, passwordHash string, verified bool, confirmationToken *string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByConfirmationToken(ctx context.Context, token string) (*models.User, error)
	UpdateUserVerified(ctx context.Context, id int64, verified bool) (bool, error)
	UpdateUserPreferences(ctx context.Context, id int64, labelIDs []int) (bool, error)

	CreateGood(ctx context.Context, p storage.CreateGoodParams) (*models.Good, error)
	GetGood(ctx context.Context, id int64) (*models.Good, error)
	GetGoodsBySeller(ctx context.Context, sellerID int64, isTask bool) ([]*models.Good, error)
	GetRandomGoods(ctx context.Context, count int, isTask bool) ([]*models.Good, error)
	UpdateGoodStatus(ctx context.Context, id int64, status string) error
	PurchaseGood(ctx context.Context, goodID, buyerID int64) (*models.Order, error)

	CreateOrder(ctx context.Context, buyerID, goodsID int64, num int) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]*models.Order, error)
	GetOrdersByGood(ctx context.Context, goodID int64) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) error

	CreateMessage(ctx context.Context, senderID, receiverID int64, text string) (*models.Message, error)
	GetMessagesBetween(ctx context.Context, userA, userB int64) ([]*models.Message, error)
	ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error)
}

// EventPublisher описывает контракт публикации событий уведомлений.
type EventPublisher interface {
	Publish(exchange, routingkey string, message any) error
}

// MarketService отвечает за операции маркетплейса поверх хранилища
// и брокера сообщений.
type MarketService struct {
	repo      Repository
	publisher EventPublisher
	log       *slog.Logger
}

// NewMarketService создает новый экземпляр MarketService.
func NewMarketService(repo Repository, publisher EventPublisher, log *slog.Logger) *MarketService {
	return &MarketService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Register создает неподтверждённую учётную запись с хэшированием пароля
// и одноразовым токеном подтверждения, затем публикует событие регистрации.
// Недоступность брокера не откатывает регистрацию: пользователь сможет
// запросить письмо повторно, а учётная запись уже зафиксирована.
func (s *MarketService) Register(ctx context.Context, name, email, rawPassword string) (*models.User, error) {
	const op = "services.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	confirmationToken, err := token.New()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.repo.CreateUser(ctx, name, email, hashed, false, &confirmationToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	event := events.UserRegistered{
		UserID:            user.ID,
		Name:              user.Name,
		Email:             user.Email,
		ConfirmationToken: confirmationToken,
	}
	if err := s.publisher.Publish(rabbitmq.Exchange, rabbitmq.RegistrationRoutingKey, event); err != nil {
		s.log.Error("failed to publish registration event",
			slog.Int64("user_id", user.ID), sl.Err(err))
	}
	return user, nil
}

// Confirm подтверждает учётную запись по токену из письма.
// Токен одноразовый: после подтверждения он обнуляется в хранилище.
func (s *MarketService) Confirm(ctx context.Context, confirmationToken string) error {
	const op = "services.Confirm"

	user, err := s.repo.GetUserByConfirmationToken(ctx, confirmationToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repo.UpdateUserVerified(ctx, user.ID, true); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Login проверяет пароль пользователя и возвращает учётную запись.
// Несуществующий логин и неверный пароль неразличимы для вызывающего,
// неподтверждённая учётная запись отклоняется отдельной ошибкой.
func (s *MarketService) Login(ctx context.Context, login, rawPassword string) (*models.User, error) {
	const op = "services.Login"

	user, err := s.repo.GetUserByLogin(ctx, login)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if !user.Verified {
		return nil, fmt.Errorf("%s: %w", op, ErrNotVerified)
	}
	return user, nil
}

// GetUser возвращает пользователя по его ID.
func (s *MarketService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdatePreferences целиком заменяет набор подписок пользователя.
func (s *MarketService) UpdatePreferences(ctx context.Context, userID int64, labelIDs []int) error {
	const op = "services.UpdatePreferences"

	ok, err := s.repo.UpdateUserPreferences(ctx, userID, labelIDs)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

// CreateGood создает объявление и публикует событие о новом объявлении.
// Как и при регистрации, недоступность брокера не откатывает запись.
func (s *MarketService) CreateGood(ctx context.Context, p storage.CreateGoodParams) (*models.Good, error) {
	const op = "services.CreateGood"

	good, err := s.repo.CreateGood(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	event := events.ListingCreated{
		GoodID:      good.ID,
		Name:        good.Name,
		Value:       good.Value,
		Description: good.Description,
		Labels:      good.Labels,
	}
	if err := s.publisher.Publish(rabbitmq.Exchange, rabbitmq.ListingRoutingKey, event); err != nil {
		s.log.Error("failed to publish listing event",
			slog.Int64("good_id", good.ID), sl.Err(err))
	}
	return good, nil
}

// GetGood возвращает объявление по его ID.
func (s *MarketService) GetGood(ctx context.Context, id int64) (*models.Good, error) {
	return s.repo.GetGood(ctx, id)
}

// GetGoodsBySeller возвращает объявления продавца указанного вида.
func (s *MarketService) GetGoodsBySeller(ctx context.Context, sellerID int64, isTask bool) ([]*models.Good, error) {
	return s.repo.GetGoodsBySeller(ctx, sellerID, isTask)
}

// GetRandomGoods возвращает случайную подборку доступных объявлений.
func (s *MarketService) GetRandomGoods(ctx context.Context, count int, isTask bool) ([]*models.Good, error) {
	return s.repo.GetRandomGoods(ctx, count, isTask)
}

// UpdateGoodStatus переводит объявление в новый статус.
// Менять статус может только владелец объявления.
func (s *MarketService) UpdateGoodStatus(ctx context.Context, callerID, goodID int64, status string) error {
	const op = "services.UpdateGoodStatus"

	good, err := s.repo.GetGood(ctx, goodID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if good.SellerID != callerID {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if err := s.repo.UpdateGoodStatus(ctx, goodID, status); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Purchase атомарно покупает товар от имени buyerID.
func (s *MarketService) Purchase(ctx context.Context, goodID, buyerID int64) (*models.Order, error) {
	const op = "services.Purchase"

	order, err := s.repo.PurchaseGood(ctx, goodID, buyerID)
	if errors.Is(err, storage.ErrNotAvailable) {
		metrics.PurchaseConflictsTotal.Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.PurchasesTotal.Inc()
	return order, nil
}

// CreateOrder создает заказ со статусом по умолчанию pending.
// Используется для заданий и многоединичных товаров, где резервирование
// объявления не требуется.
func (s *MarketService) CreateOrder(ctx context.Context, buyerID, goodsID int64, num int) (*models.Order, error) {
	const op = "services.CreateOrder"

	order, err := s.repo.CreateOrder(ctx, buyerID, goodsID, num)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

// GetOrder возвращает заказ по его ID. Видеть заказ могут только
// покупатель и продавец соответствующего объявления.
func (s *MarketService) GetOrder(ctx context.Context, callerID, orderID int64) (*models.Order, error) {
	const op = "services.GetOrder"

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.authorizeOrder(ctx, callerID, order); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

// GetOrdersByBuyer возвращает заказы покупателя, новые первыми.
func (s *MarketService) GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	return s.repo.GetOrdersByBuyer(ctx, buyerID)
}

// UpdateOrderStatus переводит заказ в новый статус. Операция доступна
// покупателю и продавцу соответствующего объявления.
func (s *MarketService) UpdateOrderStatus(ctx context.Context, callerID, orderID int64, status string) error {
	const op = "services.UpdateOrderStatus"

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.authorizeOrder(ctx, callerID, order); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *MarketService) authorizeOrder(ctx context.Context, callerID int64, order *models.Order) error {
	if order.BuyerID == callerID {
		return nil
	}
	good, err := s.repo.GetGood(ctx, order.GoodsID)
	if err != nil {
		return err
	}
	if good.SellerID != callerID {
		return ErrForbidden
	}
	return nil
}

// SendMessage сохраняет личное сообщение от senderID к receiverID.
func (s *MarketService) SendMessage(ctx context.Context, senderID, receiverID int64, text string) (*models.Message, error) {
	const op = "services.SendMessage"

	msg, err := s.repo.CreateMessage(ctx, senderID, receiverID, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msg, nil
}

// GetMessagesBetween возвращает переписку двух пользователей,
// старые сообщения первыми.
func (s *MarketService) GetMessagesBetween(ctx context.Context, userA, userB int64) ([]*models.Message, error) {
	return s.repo.GetMessagesBetween(ctx, userA, userB)
}

// ListConversations возвращает список диалогов пользователя.
func (s *MarketService) ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}
