// Package purchase реализует HTTP-обработчик атомарной покупки товара.
//
// Покупателем становится автор запроса. Товар переводится в sold и заказ
// создается одной транзакцией: из двух конкурентных покупок успешна
// ровно одна.
package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/middlewarectx"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/response"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/sl"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/storage"
)

// Request — входные данные покупки. Поддерживается единственный
// целевой статус sold.
type Request struct {
	Status string `json:"status"`
}

// Service описывает интерфейс бизнес-логики покупки.
type Service interface {
	Purchase(ctx context.Context, goodID, buyerID int64) (*models.Order, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.goods.purchase"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("invalid good id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid good id"))
		return
	}

	buyerID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if req.Status != models.GoodStatusSold {
		log.Error("unsupported status for purchase", slog.String("status", req.Status))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("only status sold is supported"))
		return
	}

	order, err := h.service.Purchase(r.Context(), id, buyerID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("good not found"))
		case errors.Is(err, storage.ErrNotAvailable):
			log.Error("good is not available", slog.Int64("good_id", id))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("Good is not available"))
		default:
			log.Error("purchase failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to purchase good"))
		}
		return
	}

	log.Info("purchase successful",
		slog.Int64("good_id", id), slog.Int64("order_id", order.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "Purchase successful",
		"order":   order,
	}))
}
