// Package confirm реализует HTTP-обработчик подтверждения почты по токену
// из письма. Токен одноразовый: повторный переход по той же ссылке
// возвращает 404.
package confirm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/response"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/sl"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/storage"
)

// Service описывает интерфейс бизнес-логики подтверждения почты.
type Service interface {
	Confirm(ctx context.Context, confirmationToken string) error
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
	const op = "handlers.user.confirm"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if token == "" {
		log.Error("missing confirmation token")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing confirmation token"))
		return
	}

	if err := h.service.Confirm(r.Context(), token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Error("unknown or already used token")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("unknown or already used token"))
			return
		}
		log.Error("confirmation failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to confirm account"))
		return
	}

	log.Info("account confirmed")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "account confirmed",
	}))
}
