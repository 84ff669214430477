package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridesk/internal/console/engine"
	"veridesk/internal/console/models"
	"veridesk/internal/console/store"
	"veridesk/internal/presence"
)

// The handler tests run against the real engine, memory collection, and
// presence tracker so routes are exercised end to end.

type fixture struct {
	router     *chi.Mux
	collection *store.Memory
	hub        *presence.Hub
	engine     *engine.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	collection := store.NewMemory()
	e := engine.New(collection, engine.WithLogger(logger))
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Stop)

	hub := presence.NewHub()
	tracker := presence.NewTracker(hub, presence.WithLogger(logger))
	require.NoError(t, tracker.Start(context.Background()))
	t.Cleanup(tracker.Stop)

	router := chi.NewRouter()
	New(e, tracker, logger).Register(router)
	NewIngest(collection, hub, logger).Register(router)

	return &fixture{router: router, collection: collection, hub: hub, engine: e}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) addSubmission(t *testing.T, phone, code string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/ingest/submissions", map[string]any{
		"phone":     phone,
		"id_number": "900100" + phone,
		"code":      code,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewResponse {
	t.Helper()
	var resp viewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestView_ReflectsIngestedSubmissions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/console/view", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeView(t, rec)
	assert.True(t, resp.Ready)
	assert.Empty(t, resp.Records)

	id := f.addSubmission(t, "5550100", "1111")

	resp = decodeView(t, f.do(t, http.MethodGet, "/console/view", nil))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, id, resp.Records[0].ID)
	assert.Equal(t, "pending", resp.Records[0].Disposition)
	assert.Equal(t, "unknown", resp.Records[0].Presence)
}

func TestView_SearchAndFilterParameters(t *testing.T) {
	f := newFixture(t)
	f.addSubmission(t, "5550100", "1111")
	f.addSubmission(t, "7770133", "2222")

	resp := decodeView(t, f.do(t, http.MethodGet, "/console/view?search=555", nil))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "555", resp.Search)

	rec := f.do(t, http.MethodGet, "/console/view?filter=not-a-filter", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/console/filters/reset", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	resp = decodeView(t, f.do(t, http.MethodGet, "/console/view", nil))
	assert.Len(t, resp.Records, 2)
}

func TestView_PresenceStates(t *testing.T) {
	f := newFixture(t)
	id := f.addSubmission(t, "5550100", "1111")

	// The first view opens the per-record watch.
	decodeView(t, f.do(t, http.MethodGet, "/console/view", nil))

	rec := f.do(t, http.MethodPut, "/ingest/presence/"+id, map[string]string{"state": "online"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	resp := decodeView(t, f.do(t, http.MethodGet, "/console/view", nil))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "online", resp.Records[0].Presence)

	var stats statsResponse
	require.NoError(t, json.Unmarshal(f.do(t, http.MethodGet, "/console/stats", nil).Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Online)

	rec = f.do(t, http.MethodPut, "/ingest/presence/"+id, map[string]string{"state": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStageAndCommitCode(t *testing.T) {
	f := newFixture(t)
	id := f.addSubmission(t, "5550100", "1111")

	rec := f.do(t, http.MethodPut, fmt.Sprintf("/console/submissions/%s/code", id), map[string]string{"code": "9999"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	resp := decodeView(t, f.do(t, http.MethodGet, "/console/view", nil))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "9999", resp.Records[0].EffectiveCode)
	assert.True(t, resp.Records[0].Staged)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/console/submissions/%s/code/commit", id), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	resp = decodeView(t, f.do(t, http.MethodGet, "/console/view", nil))
	assert.Equal(t, "9999", resp.Records[0].EffectiveCode)
	assert.False(t, resp.Records[0].Staged)
}

func TestSetDisposition(t *testing.T) {
	f := newFixture(t)
	id := f.addSubmission(t, "5550100", "1111")

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/console/submissions/%s/disposition", id), map[string]string{"disposition": "approved"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	resp := decodeView(t, f.do(t, http.MethodGet, "/console/view", nil))
	assert.Equal(t, "approved", resp.Records[0].Disposition)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/console/submissions/%s/disposition", id), map[string]string{"disposition": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var msg messageResponse
	require.NoError(t, json.Unmarshal(f.do(t, http.MethodGet, "/console/message", nil).Body.Bytes(), &msg))
	assert.True(t, msg.Present)
	assert.Equal(t, "submission approved", msg.Text)
}

func TestHideFlow_RequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	id := f.addSubmission(t, "5550100", "1111")
	f.addSubmission(t, "5550122", "2222")

	// Confirm with nothing pending is refused.
	rec := f.do(t, http.MethodPost, "/console/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/console/submissions/%s/hide", id), nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var pending confirmationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	assert.True(t, pending.Pending)
	assert.Equal(t, id, pending.Target)

	rec = f.do(t, http.MethodPost, "/console/confirm", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	resp := decodeView(t, f.do(t, http.MethodGet, "/console/view", nil))
	assert.Len(t, resp.Records, 1)
}

func TestHideAllFlow(t *testing.T) {
	f := newFixture(t)
	f.addSubmission(t, "5550100", "1111")
	f.addSubmission(t, "5550122", "2222")

	rec := f.do(t, http.MethodPost, "/console/hide-all", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Cancelling discards the request.
	rec = f.do(t, http.MethodPost, "/console/cancel", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodPost, "/console/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/console/hide-all", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = f.do(t, http.MethodPost, "/console/confirm", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	resp := decodeView(t, f.do(t, http.MethodGet, "/console/view", nil))
	assert.True(t, resp.Ready)
	assert.Empty(t, resp.Records)
}

func TestDetail_Categories(t *testing.T) {
	f := newFixture(t)

	ctx := context.Background()
	id, err := f.collection.Add(ctx, models.Submission{
		Phone:       "5550100",
		IDNumber:    "900100200",
		Disposition: models.DispositionPending,
		Personal:    &models.PersonalDetails{Name: "Dana Osei"},
		Card:        &models.CardDetails{Number: "4111111111111111", Bank: "meridian"},
		Images:      &models.ImageSet{Selfie: "img/selfie.jpg", Extra: []string{"img/extra-1.jpg"}},
	})
	require.NoError(t, err)

	var detail detailResponse

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/console/submissions/%s/personal", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.NotNil(t, detail.Personal)
	assert.Equal(t, "Dana Osei", detail.Personal.Name)
	assert.Nil(t, detail.Payment)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/console/submissions/%s/payment", id), nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.NotNil(t, detail.Payment)
	assert.Equal(t, "meridian", detail.Payment.Bank)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/console/submissions/%s/images", id), nil)
	detail = detailResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, []string{"img/selfie.jpg", "img/extra-1.jpg"}, detail.Images)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/console/submissions/%s/pets", id), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/console/submissions/ghost/personal", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngest_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest/submissions", map[string]string{"code": "1111"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
