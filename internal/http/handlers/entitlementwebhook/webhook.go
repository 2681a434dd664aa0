// Package entitlementwebhook реализует HTTP-обработчик вебхуков платежного
// провайдера о событиях подписки.
//
// Подпись тела проверяется HMAC-SHA256 по разделяемому секрету. Если секрет
// не сконфигурирован, проверка пропускается с громким предупреждением в логе:
// так удобнее в локальной разработке, но недопустимо в продакшене.
package entitlementwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/thread-forge/internal/http/response"
	"github.com/magabrotheeeer/thread-forge/internal/lib/sl"
	"github.com/magabrotheeeer/thread-forge/internal/models"
)

// SignatureHeader имя заголовка с hex-кодированной HMAC-SHA256 подписью тела.
const SignatureHeader = "X-Webhook-Signature"

// maxBodySize ограничивает размер тела вебхука.
const maxBodySize = 1 << 20

// Handler управляет HTTP-запросами вебхуков подписки.
type Handler struct {
	log     *slog.Logger
	service Service
	secret  string
}

// Service описывает интерфейс применения событий подписки.
type Service interface {
	Apply(ctx context.Context, event models.EntitlementEvent) error
}

// AckResponse подтверждение приема вебхука.
type AckResponse struct {
	Received bool `json:"received"`
}

// New создает новый Handler. secret — разделяемый секрет подписи,
// пустая строка отключает проверку.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{log: log, service: service, secret: secret}
}

// ServeHTTP godoc
// @Summary Вебхук подписки
// @Description Принимает события подписки от платежного провайдера и обновляет статус аккаунта.
// @Tags Entitlements
// @Accept  json
// @Produce  json
// @Param X-Webhook-Signature header string false "HMAC-SHA256 подпись тела (hex)"
// @Success 200 {object} AckResponse "Событие принято"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Ошибка применения события"
// @Router /entitlements/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlementwebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read body"))
		return
	}

	if !h.verifySignature(log, body, r.Header.Get(SignatureHeader)) {
		log.Error("webhook signature mismatch")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var event models.EntitlementEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Провайдер ретраит все, кроме 2xx: нечитаемое тело
		// подтверждаем, чтобы не копить бесконечные повторы.
		log.Warn("malformed webhook payload acknowledged", sl.Err(err))
		render.JSON(w, r, AckResponse{Received: true})
		return
	}

	if err := h.service.Apply(r.Context(), event); err != nil {
		log.Error("failed to apply subscription event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to apply event"))
		return
	}

	log.Info("webhook processed", slog.String("event", event.Type))
	render.JSON(w, r, AckResponse{Received: true})
}

func (h *Handler) verifySignature(log *slog.Logger, body []byte, signature string) bool {
	if h.secret == "" {
		log.Warn("WEBHOOK SIGNATURE VERIFICATION DISABLED: no webhook secret configured")
		return true
	}

	expected, err := hex.DecodeString(signature)
	if err != nil || len(expected) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
