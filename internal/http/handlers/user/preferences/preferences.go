// Package preferences реализует HTTP-обработчик замены подписок пользователя.
//
// Набор заменяется целиком: пустой список отписывает от всех рассылок.
// Пользователь может менять только свои подписки.
package preferences

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
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/storage"
)

// Request — входные данные для замены подписок.
type Request struct {
	Labels []int `json:"labels"`
}

// Service описывает интерфейс бизнес-логики подписок.
type Service interface {
	UpdatePreferences(ctx context.Context, userID int64, labelIDs []int) error
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
	const op = "handlers.user.preferences"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("invalid user id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	callerID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	if callerID != id {
		log.Error("attempt to change preferences of another user",
			slog.Int64("caller_id", callerID), slog.Int64("target_id", id))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("cannot change preferences of another user"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if req.Labels == nil {
		log.Error("labels must be a list")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("labels must be a list"))
		return
	}

	if err := h.service.UpdatePreferences(r.Context(), id, req.Labels); err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidLabels):
			log.Error("labels contain ids not allowed for subscription")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("labels contain ids not allowed for subscription"))
		case errors.Is(err, storage.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to update preferences", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to update preferences"))
		}
		return
	}

	log.Info("preferences updated", slog.Int64("user_id", id))
	render.JSON(w, r, response.OK())
}
