package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/igorsal/commit-bridge/api/middleware"
	"github.com/igorsal/commit-bridge/internal/interfaces"
	"github.com/igorsal/commit-bridge/internal/models"
	pkgerrors "github.com/igorsal/commit-bridge/pkg/errors"
)

const (
	MaxBodySize = 10 * 1024 * 1024 // 10MB max
)

var deliveryHeaders = map[models.Provider]string{
	models.ProviderGitHub: "X-GitHub-Delivery",
	models.ProviderGitLab: "X-Gitlab-Event-UUID",
}

// WebhookResponse is returned for every delivery that passed authentication
// and parsing, whatever happened on the tracker side
type WebhookResponse struct {
	Status string `json:"status"`
}

type WebhookHandler struct {
	provider   models.Provider
	dispatcher interfaces.WebhookDispatcher
	logger     interfaces.Logger
	metrics    interfaces.MetricsCollector
}

// NewWebhookHandler creates a handler receiving deliveries from provider
func NewWebhookHandler(provider models.Provider, dispatcher interfaces.WebhookDispatcher, logger interfaces.Logger, metrics interfaces.MetricsCollector) *WebhookHandler {
	return &WebhookHandler{
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger.With("provider", string(provider)),
		metrics:    metrics,
	}
}

// Handle reads the raw body, hands it to the dispatcher and answers ok once
// the delivery was verified and parsed
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.WriteError(w, r, h.logger, &pkgerrors.AppError{
			Type:       pkgerrors.ErrorTypeValidation,
			Message:    "method not allowed",
			StatusCode: http.StatusMethodNotAllowed,
		})
		return
	}

	// The signature covers the exact bytes, so the body is kept raw
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, r, h.logger, &pkgerrors.AppError{
				Type:       pkgerrors.ErrorTypeValidation,
				Message:    "request body too large",
				StatusCode: http.StatusRequestEntityTooLarge,
			})
			return
		}
		middleware.WriteError(w, r, h.logger, pkgerrors.NewValidationError("failed to read request body").WithCause(err))
		return
	}

	raw := models.RawWebhook{
		Provider:   h.provider,
		DeliveryID: h.deliveryID(r),
		Headers:    models.HeadersFromHTTP(r.Header),
		Body:       body,
	}

	// Tracker calls run to completion even if the sender hangs up
	result, err := h.dispatcher.Dispatch(context.WithoutCancel(r.Context()), raw)
	if err != nil {
		middleware.WriteError(w, r, h.logger, err)
		return
	}

	h.logger.Debug("Webhook accepted",
		"delivery_id", result.DeliveryID,
		"kind", string(result.Kind),
		"failed", result.Failed(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(WebhookResponse{Status: "ok"}); err != nil {
		h.logger.Error("Failed to encode webhook response", err)
	}
}

func (h *WebhookHandler) deliveryID(r *http.Request) string {
	if header, ok := deliveryHeaders[h.provider]; ok {
		if id := r.Header.Get(header); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
