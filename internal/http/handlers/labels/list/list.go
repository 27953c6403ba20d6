// Package list реализует HTTP-обработчик для выдачи каталога меток.
package list

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/response"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/labels"
)

// Handler управляет HTTP-запросами на чтение каталога меток.
type Handler struct {
	log     *slog.Logger
	catalog *labels.Catalog
}

// New создает новый Handler с переданными логгером и каталогом.
func New(log *slog.Logger, catalog *labels.Catalog) *Handler {
	return &Handler{
		log:     log,
		catalog: catalog,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(h.catalog.All()))
}
