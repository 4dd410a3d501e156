package movement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stokku/stokku/internal/platform/httpx"
)

// ListerPort abstracts record reads for the handler.
type ListerPort interface {
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	ListByProduct(ctx context.Context, productID string, limit int) ([]Record, error)
}

// SubscriberPort abstracts feed subscription for the stream endpoint.
type SubscriberPort interface {
	Subscribe(ctx context.Context) (<-chan Record, func())
}

// Handler serves the movement history and the live stream.
type Handler struct {
	logger *slog.Logger
	repo   ListerPort
	feed   SubscriberPort
}

// NewHandler constructs the movement handler.
func NewHandler(logger *slog.Logger, repo ListerPort, feed SubscriberPort) *Handler {
	return &Handler{logger: logger, repo: repo, feed: feed}
}

// MountRoutes registers movement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/stream", h.stream)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	productID := r.URL.Query().Get("product_id")

	var (
		records []Record
		err     error
	)
	if productID != "" {
		records, err = h.repo.ListByProduct(r.Context(), productID, limit)
	} else {
		records, err = h.repo.ListRecent(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if records == nil {
		records = []Record{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": records})
}

// stream forwards the change feed as server-sent events. Observers that fall
// behind are disconnected rather than back-pressuring the feed.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Streaming Unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	records, cancel := h.feed.Subscribe(r.Context())
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			payload, err := json.Marshal(rec)
			if err != nil {
				h.logger.Warn("marshal stream record", slog.Any("error", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: movement\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
