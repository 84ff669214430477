// Package httptransport wires the HTTP surface: session endpoints, the
// operator console, the ingestion feed, health, and metrics.
package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veridesk/internal/console/handler"
	"veridesk/internal/platform/health"
	"veridesk/internal/platform/middleware"
	"veridesk/internal/session"
	dErrors "veridesk/pkg/domain-errors"
	"veridesk/pkg/httputil"
)

// Deps are the collaborators the router mounts.
type Deps struct {
	Console  *handler.Handler
	Ingest   *handler.IngestHandler
	Sessions *session.Manager
	Health   *health.Handler
	Logger   *slog.Logger
}

// NewRouter wires all endpoints with the shared middleware stack. Console
// routes sit behind session authentication; ingestion and health do not.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	deps.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/session/login", handleLogin(deps.Sessions, deps.Logger))
	r.Post("/session/logout", handleLogout(deps.Sessions))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		deps.Ingest.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(session.RequireSession(deps.Sessions))
		deps.Console.Register(r)
	})

	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func handleLogin(sessions *session.Manager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(r.Context(), "failed to decode login request", "error", err)
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON in request body"))
			return
		}

		token, err := sessions.Login(r.Context(), req.Username, req.Secret, r.UserAgent())
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, loginResponse{Token: token})
	}
}

func handleLogout(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token != "" {
			sessions.Logout(r.Context(), token)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return ""
	}
	return header[len(prefix):]
}
