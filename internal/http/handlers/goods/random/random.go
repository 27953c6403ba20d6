// Package random реализует HTTP-обработчик случайной подборки объявлений
// для главной страницы.
package random

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

const (
	defaultCount = 20
	maxCount     = 100
)

// Service описывает интерфейс бизнес-логики подборки объявлений.
type Service interface {
	GetRandomGoods(ctx context.Context, count int, isTask bool) ([]*models.Good, error)
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
	const op = "handlers.goods.random"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	count := defaultCount
	if v := r.URL.Query().Get("num"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Error("invalid num parameter")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid num parameter"))
			return
		}
		count = n
	}
	if count > maxCount {
		count = maxCount
	}
	isTask := r.URL.Query().Get("is_task") == "true"

	goods, err := h.service.GetRandomGoods(r.Context(), count, isTask)
	if err != nil {
		log.Error("failed to list goods", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list goods"))
		return
	}

	render.JSON(w, r, response.OKWithData(goods))
}
