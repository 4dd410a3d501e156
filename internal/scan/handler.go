package scan

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stokku/stokku/internal/platform/httpx"
)

// Handler serves the device-facing webhook. The device's only required
// behavior is branching on the success flag, so every outcome carries it
// together with a human-readable message.
type Handler struct {
	logger    *slog.Logger
	processor *Processor
	now       func() time.Time
}

// NewHandler constructs the webhook handler.
func NewHandler(logger *slog.Logger, processor *Processor) *Handler {
	return &Handler{logger: logger, processor: processor, now: time.Now}
}

// MountRoutes registers the webhook routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleScan)
	r.Get("/", h.handleLiveness)
}

type successResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Product ProductResult `json:"product"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Barcode string `json:"barcode,omitempty"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var event Event
	if err := httpx.DecodeJSON(r, &event); err != nil {
		httpx.JSON(w, http.StatusBadRequest, failureResponse{Message: "Payload tidak valid"})
		return
	}

	result, err := h.processor.Process(r.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEvent):
			httpx.JSON(w, http.StatusBadRequest, failureResponse{Message: "Payload tidak valid"})
		case errors.Is(err, ErrProductNotFound):
			h.logger.Info("product not found for barcode", slog.String("barcode", event.Barcode))
			httpx.JSON(w, http.StatusNotFound, failureResponse{Message: MsgProductNotFound, Barcode: event.Barcode})
		case errors.Is(err, ErrMovementWrite):
			h.logger.Error("record movement", slog.Any("error", err))
			httpx.JSON(w, http.StatusInternalServerError, failureResponse{Message: MsgMovementFailed})
		default:
			h.logger.Error("process scan", slog.Any("error", err))
			httpx.JSON(w, http.StatusInternalServerError, failureResponse{Message: MsgServerError})
		}
		return
	}

	h.logger.Info("scan processed",
		slog.String("barcode", event.Barcode),
		slog.String("device_id", event.DeviceID),
		slog.Int("old_quantity", result.Product.OldQuantity),
		slog.Int("new_quantity", result.Product.NewQuantity))

	httpx.JSON(w, http.StatusOK, successResponse{
		Success: true,
		Message: MsgProcessed,
		Product: result.Product,
	})
}

// handleLiveness answers device probes without touching any store.
func (h *Handler) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{
		"message":   "Scanner webhook endpoint is active",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
