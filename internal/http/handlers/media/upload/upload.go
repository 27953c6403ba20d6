// Package upload реализует HTTP-обработчик загрузки медиафайлов.
//
// Поддерживаются два вида загрузки: аватар пользователя (один файл,
// прежний аватар заменяется) и медиа объявления (до девяти файлов в
// каталоге объявления). Имена файлов формируются сервером, клиентское
// имя используется только для определения расширения.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/middlewarectx"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/response"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/sl"
)

const (
	maxUploadBytes = 64 << 20
	maxGoodFiles   = 9
	typeAvatar     = "avatar"
	typeGood       = "good"
)

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".mp4":  {},
	".mov":  {},
	".avi":  {},
}

type Handler struct {
	log      *slog.Logger
	mediaDir string
}

// New создает новый Handler, сохраняющий файлы в mediaDir.
func New(log *slog.Logger, mediaDir string) *Handler {
	return &Handler{
		log:      log,
		mediaDir: mediaDir,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.media.upload"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if _, ok := middlewarectx.UserIDFromContext(r.Context()); !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		log.Error("failed to parse multipart form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid multipart form"))
		return
	}

	uploadType := r.FormValue("type")
	if uploadType != typeAvatar && uploadType != typeGood {
		log.Error("unknown upload type", slog.String("type", uploadType))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("type must be avatar or good"))
		return
	}

	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil || id <= 0 {
		log.Error("invalid id parameter")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id parameter"))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		log.Error("no files in request")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("no files in request"))
		return
	}
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if _, ok := allowedExtensions[ext]; !ok {
			log.Error("unsupported file extension", slog.String("ext", ext))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unsupported file extension"))
			return
		}
	}

	var saved []string
	switch uploadType {
	case typeAvatar:
		saved, err = h.saveAvatar(id, files[0])
	case typeGood:
		saved, err = h.saveGoodFiles(id, files)
	}
	if err != nil {
		var tooMany *tooManyFilesError
		if errors.As(err, &tooMany) {
			log.Error("too many files for good", slog.Int("existing", tooMany.existing))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("a good can have at most 9 media files"))
			return
		}
		log.Error("failed to save files", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to save files"))
		return
	}

	log.Info("files uploaded",
		slog.String("type", uploadType), slog.Int64("id", id), slog.Int("count", len(saved)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"files": saved,
	}))
}

type tooManyFilesError struct{ existing int }

func (e *tooManyFilesError) Error() string {
	return fmt.Sprintf("too many files: %d already stored", e.existing)
}

// saveAvatar сохраняет новый аватар и удаляет прежний независимо от
// его расширения.
func (h *Handler) saveAvatar(userID int64, fh *multipart.FileHeader) ([]string, error) {
	old, err := filepath.Glob(filepath.Join(h.mediaDir, fmt.Sprintf("avatar_%d.*", userID)))
	if err != nil {
		return nil, err
	}
	for _, path := range old {
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := fmt.Sprintf("avatar_%d%s", userID, ext)
	if err := h.saveFile(fh, filepath.Join(h.mediaDir, name)); err != nil {
		return nil, err
	}
	return []string{name}, nil
}

// saveGoodFiles дописывает файлы в каталог объявления, продолжая
// нумерацию. Суммарное число файлов объявления ограничено девятью.
func (h *Handler) saveGoodFiles(goodID int64, files []*multipart.FileHeader) ([]string, error) {
	dir := filepath.Join(h.mediaDir, fmt.Sprintf("good_%d", goodID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	existing, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if len(existing)+len(files) > maxGoodFiles {
		return nil, &tooManyFilesError{existing: len(existing)}
	}

	var saved []string
	next := len(existing)
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		name := fmt.Sprintf("good_%d_%d%s", goodID, next, ext)
		if err := h.saveFile(fh, filepath.Join(dir, name)); err != nil {
			return nil, err
		}
		saved = append(saved, filepath.Join(fmt.Sprintf("good_%d", goodID), name))
		next++
	}
	return saved, nil
}

func (h *Handler) saveFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	_, err = io.Copy(out, src)
	return err
}
