package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veridesk/internal/console/models"
	"veridesk/internal/presence"
	dErrors "veridesk/pkg/domain-errors"
	"veridesk/pkg/httputil"
)

// Collection is the ingestion surface of the submission store.
type Collection interface {
	Add(ctx context.Context, record models.Submission) (string, error)
}

// PresenceSink receives liveness updates for submission identities.
type PresenceSink interface {
	Set(id string, state presence.State)
	Remove(id string)
}

// IngestHandler accepts new submissions and liveness updates from the
// capture side. It is mounted separately from the console routes so the two
// surfaces can carry different authentication.
type IngestHandler struct {
	collection Collection
	sink       PresenceSink
	logger     *slog.Logger
}

// NewIngest creates an ingestion handler.
func NewIngest(collection Collection, sink PresenceSink, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{
		collection: collection,
		sink:       sink,
		logger:     logger,
	}
}

// Register mounts the ingestion routes.
func (h *IngestHandler) Register(r chi.Router) {
	r.Post("/ingest/submissions", h.HandleSubmit)
	r.Put("/ingest/presence/{id}", h.HandleSetPresence)
	r.Delete("/ingest/presence/{id}", h.HandleClearPresence)
}

type submitRequest struct {
	Phone    string                  `json:"phone"`
	IDNumber string                  `json:"id_number"`
	Code     string                  `json:"code"`
	Personal *models.PersonalDetails `json:"personal,omitempty"`
	Card     *models.CardDetails     `json:"card,omitempty"`
	Images   *models.ImageSet        `json:"images,omitempty"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type presenceRequest struct {
	State string `json:"state"`
}

// HandleSubmit implements POST /ingest/submissions.
func (h *IngestHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	if req.Phone == "" && req.IDNumber == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "a phone or id number is required"))
		return
	}

	id, err := h.collection.Add(ctx, models.Submission{
		Phone:       req.Phone,
		IDNumber:    req.IDNumber,
		Code:        req.Code,
		Disposition: models.DispositionPending,
		Personal:    req.Personal,
		Card:        req.Card,
		Images:      req.Images,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to store submission",
			append(requestLogFields(r), "error", err)...,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store submission"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, submitResponse{ID: id})
}

// HandleSetPresence implements PUT /ingest/presence/{id}.
func (h *IngestHandler) HandleSetPresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	state := presence.State(req.State)
	if state != presence.StateOnline && state != presence.StateOffline {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "state must be online or offline"))
		return
	}

	h.sink.Set(chi.URLParam(r, "id"), state)
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearPresence implements DELETE /ingest/presence/{id}.
func (h *IngestHandler) HandleClearPresence(w http.ResponseWriter, r *http.Request) {
	h.sink.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
