// Package create реализует HTTP-обработчик создания объявления.
//
// Продавцом становится автор запроса. Кроме JSON принимается
// form-encoded тело: старые клиенты отправляют формы, числовые поля
// приводятся из строк.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/middlewarectx"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/response"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/sl"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/storage"
)

// Request — входные данные для создания объявления.
type Request struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Num         int     `json:"num" validate:"gt=0"`
	Value       float64 `json:"value" validate:"gte=0"`
	Description string  `json:"description"`
	Labels      []int   `json:"labels"`
	IsTask      bool    `json:"is_task"`
}

// Service описывает интерфейс бизнес-логики создания объявления.
type Service interface {
	CreateGood(ctx context.Context, p storage.CreateGoodParams) (*models.Good, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.goods.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sellerID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	req, err := decodeRequest(r)
	if err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	good, err := h.service.CreateGood(r.Context(), storage.CreateGoodParams{
		Name:        req.Name,
		SellerID:    sellerID,
		Num:         req.Num,
		Value:       req.Value,
		Description: req.Description,
		Labels:      req.Labels,
		IsTask:      req.IsTask,
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("seller does not exist"))
			return
		}
		log.Error("failed to create good", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create good"))
		return
	}

	log.Info("good created", slog.Int64("good_id", good.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(good))
}

// decodeRequest разбирает JSON либо form-encoded тело запроса.
func decodeRequest(r *http.Request) (Request, error) {
	var req Request

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Name = r.PostFormValue("name")
	req.Description = r.PostFormValue("description")

	var err error
	if v := r.PostFormValue("num"); v != "" {
		if req.Num, err = strconv.Atoi(v); err != nil {
			return req, err
		}
	}
	if v := r.PostFormValue("value"); v != "" {
		if req.Value, err = strconv.ParseFloat(v, 64); err != nil {
			return req, err
		}
	}
	if v := r.PostFormValue("is_task"); v != "" {
		if req.IsTask, err = strconv.ParseBool(v); err != nil {
			return req, err
		}
	}
	if v := r.PostFormValue("labels"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return req, err
			}
			req.Labels = append(req.Labels, id)
		}
	}
	return req, nil
}
