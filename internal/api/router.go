package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/user/kvmon/internal/db"
	"github.com/user/kvmon/internal/hub"
)

type handler struct {
	eventRepo   *db.EventRepo
	sessionRepo *db.SessionRepo
	hub         *hub.Hub
}

// NewRouter builds the read-only capture API. All routes sit under
// /api/ and require the token (bearer header or query param).
func NewRouter(conn *sql.DB, hubInst *hub.Hub, token string) http.Handler {
	handler := &handler{
		eventRepo:   db.NewEventRepo(conn),
		sessionRepo: db.NewSessionRepo(conn),
		hub:         hubInst,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", handler.listEvents)
	mux.HandleFunc("GET /api/stats", handler.getStats)
	mux.HandleFunc("GET /api/sessions", handler.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", handler.getSession)
	mux.HandleFunc("GET /api/sessions/{id}/events", handler.listSessionEvents)

	return authMiddleware(token)(jsonMiddleware(corsMiddleware(mux)))
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				if strings.TrimSpace(authHeader[7:]) == token {
					next.ServeHTTP(w, r)
					return
				}
			}

			if r.URL.Query().Get("token") == token {
				next.ServeHTTP(w, r)
				return
			}

			writeError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

type apiError struct {
	Error string `json:"error"`
}

// writeJSON writes one JSON body. Every route in this API answers with
// a body, so there is no no-content variant. The Content-Type is set
// here as well because the auth rejection runs outside jsonMiddleware.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Error: message})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
