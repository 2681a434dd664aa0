// Package read реализует HTTP-обработчик сводки использования квоты.
package read

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/thread-forge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/thread-forge/internal/http/response"
	"github.com/magabrotheeeer/thread-forge/internal/lib/sl"
	"github.com/magabrotheeeer/thread-forge/internal/models"
)

// Handler управляет HTTP-запросами на чтение сводки использования.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики сводки использования.
type Service interface {
	Summary(ctx context.Context, username string, now time.Time) (*models.UsageSummary, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сводка использования
// @Description Возвращает статус подписки, расход и остаток квоты в текущем окне.
// @Tags Usage
// @Produce  json
// @Success 200 {object} response.Response "Сводка использования"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка чтения"
// @Router /usage [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usage.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	username, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || username == "" {
		log.Error("username not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	summary, err := h.service.Summary(r.Context(), username, time.Now().UTC())
	if err != nil {
		log.Error("failed to read usage summary", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read usage"))
		return
	}

	log.Info("usage summary read", slog.String("username", username))
	render.JSON(w, r, response.StatusOKWithData(summary))
}
