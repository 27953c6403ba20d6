// Package seller реализует HTTP-обработчик выдачи объявлений продавца.
package seller

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/response"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/sl"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
)

// Service описывает интерфейс бизнес-логики выдачи объявлений продавца.
type Service interface {
	GetGoodsBySeller(ctx context.Context, sellerID int64, isTask bool) ([]*models.Good, error)
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
	const op = "handlers.goods.seller"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sellerID, err := strconv.ParseInt(r.URL.Query().Get("seller_id"), 10, 64)
	if err != nil {
		log.Error("invalid seller_id parameter", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid seller_id parameter"))
		return
	}
	isTask := r.URL.Query().Get("is_task") == "true"

	goods, err := h.service.GetGoodsBySeller(r.Context(), sellerID, isTask)
	if err != nil {
		log.Error("failed to list seller goods", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list seller goods"))
		return
	}

	render.JSON(w, r, response.OKWithData(goods))
}
