// Package list реализует HTTP-обработчик получения истории тредов аккаунта.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/thread-forge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/thread-forge/internal/http/response"
	"github.com/magabrotheeeer/thread-forge/internal/lib/sl"
	"github.com/magabrotheeeer/thread-forge/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler управляет HTTP-запросами на чтение истории тредов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения тредов.
type Service interface {
	ListThreads(ctx context.Context, accountUID string, limit, offset int) ([]*models.ThreadRecord, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список тредов
// @Description Возвращает треды аккаунта с пагинацией, новые первыми.
// @Tags Threads
// @Produce  json
// @Param limit query int false "Максимум записей (по умолчанию 20, не более 100)"
// @Param offset query int false "Смещение (по умолчанию 0)"
// @Success 200 {object} response.Response "Список тредов"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка чтения"
// @Router /threads/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.thread.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountUID, ok := r.Context().Value(middlewarectx.AccountUID).(string)
	if !ok || accountUID == "" {
		log.Error("account uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	limit := queryInt(r, "limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	threads, err := h.service.ListThreads(r.Context(), accountUID, limit, offset)
	if err != nil {
		log.Error("failed to list threads", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list threads"))
		return
	}
	if threads == nil {
		threads = []*models.ThreadRecord{}
	}

	log.Info("threads listed", slog.Int("count", len(threads)))
	render.JSON(w, r, response.StatusOKWithData(threads))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
