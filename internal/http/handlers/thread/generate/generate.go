// Package generate реализует HTTP-обработчик генерации треда из заметок.
//
// Handler принимает JSON-запрос с исходным текстом, проверяет авторизацию
// и квоту через сервис генерации и возвращает пронумерованный тред вместе
// с остатком генераций в текущем месячном окне.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/thread-forge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/thread-forge/internal/http/response"
	"github.com/magabrotheeeer/thread-forge/internal/lib/sl"
	"github.com/magabrotheeeer/thread-forge/internal/models"
	genservice "github.com/magabrotheeeer/thread-forge/internal/services/generation"
)

// Handler управляет HTTP-запросами на генерацию тредов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики генерации.
type Service interface {
	Generate(ctx context.Context, username, rawInput string) (*models.GenerationResult, error)
}

// ThreadBody тело успешного ответа: твиты по порядку.
type ThreadBody struct {
	Tweets []string `json:"tweets"`
}

// GenerateResponse успешный ответ генерации. Remaining — либо число,
// либо строка "unlimited" для Pro-аккаунтов.
type GenerateResponse struct {
	Thread    ThreadBody `json:"thread"`
	Remaining any        `json:"remaining"`
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сгенерировать тред
// @Description Превращает заметки в пронумерованный тред. Расходует одну генерацию месячной квоты.
// @Tags Threads
// @Accept  json
// @Produce  json
// @Param request body models.DummyGenerate true "Исходные заметки"
// @Success 200 {object} GenerateResponse "Сгенерированный тред и остаток квоты"
// @Failure 400 {object} response.ErrorResponse "Пустой вход"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Квота исчерпана"
// @Failure 500 {object} response.ErrorResponse "Сбой провайдера или хранилища"
// @Router /threads [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.thread.generate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyGenerate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("input is required"))
		return
	}

	username, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || username == "" {
		log.Error("username not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Generate(r.Context(), username, req.Input)
	if err != nil {
		h.writeError(w, r, log, err)
		return
	}

	var remaining any = result.Remaining
	if result.Unlimited {
		remaining = "unlimited"
	}

	log.Info("thread generated", slog.Int("tweets", len(result.Tweets)))
	render.JSON(w, r, GenerateResponse{
		Thread:    ThreadBody{Tweets: result.Tweets},
		Remaining: remaining,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var quotaErr *genservice.QuotaExceededError
	switch {
	case errors.Is(err, genservice.ErrInvalidInput):
		log.Error("empty input")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("input is required"))
	case errors.As(err, &quotaErr):
		log.Info("quota exceeded", slog.Time("reset_at", quotaErr.ResetAt))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error(
			"free tier limit reached, resets at "+quotaErr.ResetAt.Format(time.RFC3339)))
	case errors.Is(err, genservice.ErrProviderUnavailable):
		log.Error("provider unavailable", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to generate thread"))
	default:
		log.Error("failed to persist generation", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to save generated thread"))
	}
}
