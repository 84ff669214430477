// Package handler exposes the operator console over HTTP. Every route maps
// onto one engine operation; the handler itself holds no console state.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veridesk/internal/console/engine"
	"veridesk/internal/console/models"
	"veridesk/internal/platform/middleware"
	"veridesk/internal/presence"
	dErrors "veridesk/pkg/domain-errors"
	"veridesk/pkg/httputil"
)

// Engine is the console surface the handler drives.
type Engine interface {
	View() ([]engine.RecordView, bool)
	Record(id string) (models.Submission, bool)
	Stats() engine.Stats
	Message() (engine.StatusMessage, bool)
	PendingConfirmation() (string, bool)

	SetSearch(query string)
	SetFilter(filter models.Filter)
	ResetFilters()
	Search() string
	Filter() models.Filter

	Stage(id, value string)
	CommitCode(ctx context.Context, id string) error
	SetDisposition(ctx context.Context, id string, disposition models.Disposition) error

	RequestHide(id string)
	RequestHideAll()
	Cancel()
	Confirm(ctx context.Context) error
}

// Presence answers online-state questions for displayed records.
type Presence interface {
	Status(id string) presence.State
	OnlineCount() int
	SyncView(ctx context.Context, ids []string)
}

// Handler serves the operator console routes.
type Handler struct {
	engine   Engine
	presence Presence
	logger   *slog.Logger
}

// New creates a console handler.
func New(engine Engine, presence Presence, logger *slog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		presence: presence,
		logger:   logger,
	}
}

// Register mounts the console routes. Session middleware is applied by the
// parent router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/console/view", h.HandleView)
	r.Get("/console/stats", h.HandleStats)
	r.Get("/console/message", h.HandleMessage)
	r.Put("/console/filters", h.HandleSetFilters)
	r.Post("/console/filters/reset", h.HandleResetFilters)

	r.Get("/console/submissions/{id}/{category}", h.HandleDetail)
	r.Put("/console/submissions/{id}/code", h.HandleStageCode)
	r.Post("/console/submissions/{id}/code/commit", h.HandleCommitCode)
	r.Post("/console/submissions/{id}/disposition", h.HandleSetDisposition)
	r.Post("/console/submissions/{id}/hide", h.HandleRequestHide)

	r.Post("/console/hide-all", h.HandleRequestHideAll)
	r.Post("/console/confirm", h.HandleConfirm)
	r.Post("/console/cancel", h.HandleCancel)
}

// HandleView implements GET /console/view. Optional search and filter query
// parameters update the criteria before the view is derived.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	if query.Has("search") {
		h.engine.SetSearch(query.Get("search"))
	}
	if query.Has("filter") {
		filter, err := models.ParseFilter(query.Get("filter"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		h.engine.SetFilter(filter)
	}

	records, ready := h.engine.View()

	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.ID
	}
	h.presence.SyncView(ctx, ids)

	items := make([]recordItem, len(records))
	for i, record := range records {
		items[i] = newRecordItem(record, h.presence.Status(record.ID))
	}

	httputil.WriteJSON(w, http.StatusOK, viewResponse{
		Ready:   ready,
		Records: items,
		Search:  h.engine.Search(),
		Filter:  string(h.engine.Filter()),
	})
}

// HandleDetail implements GET /console/submissions/{id}/{category}. The
// category selects which slice of the record is returned: personal, payment,
// or images.
func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	category, err := models.ParseInfoCategory(chi.URLParam(r, "category"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, found := h.engine.Record(id)
	if !found {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "submission not found"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newDetailResponse(record, category))
}

// HandleStats implements GET /console/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	httputil.WriteJSON(w, http.StatusOK, statsResponse{
		Total:     stats.Total,
		CardCount: stats.CardCount,
		Online:    h.presence.OnlineCount(),
	})
}

// HandleMessage implements GET /console/message.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.engine.Message()
	if !ok {
		httputil.WriteJSON(w, http.StatusOK, messageResponse{})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{
		Present: true,
		Kind:    string(msg.Kind),
		Text:    msg.Text,
	})
}

// HandleSetFilters implements PUT /console/filters.
func (h *Handler) HandleSetFilters(w http.ResponseWriter, r *http.Request) {
	var req filtersRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	filter, err := models.ParseFilter(req.Filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.engine.SetSearch(req.Search)
	h.engine.SetFilter(filter)
	w.WriteHeader(http.StatusNoContent)
}

// HandleResetFilters implements POST /console/filters/reset.
func (h *Handler) HandleResetFilters(w http.ResponseWriter, r *http.Request) {
	h.engine.ResetFilters()
	w.WriteHeader(http.StatusNoContent)
}

// HandleStageCode implements PUT /console/submissions/{id}/code. Staging is
// local; nothing reaches the remote collection until commit.
func (h *Handler) HandleStageCode(w http.ResponseWriter, r *http.Request) {
	var req stageCodeRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	h.engine.Stage(chi.URLParam(r, "id"), req.Code)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCommitCode implements POST /console/submissions/{id}/code/commit.
func (h *Handler) HandleCommitCode(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.CommitCode(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetDisposition implements POST /console/submissions/{id}/disposition.
func (h *Handler) HandleSetDisposition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dispositionRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	disposition, err := models.ParseDisposition(req.Disposition)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.engine.SetDisposition(ctx, chi.URLParam(r, "id"), disposition); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRequestHide implements POST /console/submissions/{id}/hide.
func (h *Handler) HandleRequestHide(w http.ResponseWriter, r *http.Request) {
	h.engine.RequestHide(chi.URLParam(r, "id"))
	h.writePending(w)
}

// HandleRequestHideAll implements POST /console/hide-all.
func (h *Handler) HandleRequestHideAll(w http.ResponseWriter, r *http.Request) {
	h.engine.RequestHideAll()
	h.writePending(w)
}

// HandleConfirm implements POST /console/confirm.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Confirm(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCancel implements POST /console/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.engine.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writePending(w http.ResponseWriter) {
	target, pending := h.engine.PendingConfirmation()
	httputil.WriteJSON(w, http.StatusAccepted, confirmationResponse{
		Pending: pending,
		Target:  target,
	})
}

func requestLogFields(r *http.Request) []any {
	return []any{"request_id", middleware.GetRequestID(r.Context()), "path", r.URL.Path}
}
