package app

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ccastromar/aos-diet-planner/internal/config"
	"github.com/ccastromar/aos-diet-planner/internal/logx"
	"github.com/ccastromar/aos-diet-planner/internal/session"
	"github.com/ccastromar/aos-diet-planner/internal/tools"
)

// Max request size for POST /tools/{name} (1MB)
const maxToolBodyBytes int64 = 1 << 20

const sessionHeader = "X-Session-ID"

type toolExecutor interface {
	Catalog() []config.Tool
	Execute(ctx context.Context, sessionID, name string, raw []byte) (any, error)
}

// ToolAPI serves the tool catalog and tool execution endpoints.
type ToolAPI struct {
	tools   toolExecutor
	store   session.Store
	apiKey  string
	limiter *clientLimiter
}

func NewToolAPI(t toolExecutor, store session.Store, apiKey string, limiter *clientLimiter) *ToolAPI {
	return &ToolAPI{
		tools:   t,
		store:   store,
		apiKey:  strings.TrimSpace(apiKey),
		limiter: limiter,
	}
}

type toolResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Tool      string `json:"tool"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (a *ToolAPI) RegisterHTTP(mux *http.ServeMux) {
	mux.Handle("GET /tools", a.guarded(http.HandlerFunc(a.handleCatalog)))
	mux.Handle("POST /tools/{name}", a.guarded(http.HandlerFunc(a.handleExecute)))
	mux.Handle("GET /session", a.guarded(session.Handler(a.store)))
}

// guarded applies optional API-key auth and the per-client rate limit.
func (a *ToolAPI) guarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.checkAuth(r) {
			w.Header().Set("WWW-Authenticate", "Bearer, X-API-Key")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !a.limiter.Allow(clientKey(r)) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkAuth enforces API key when configured via API_KEY env var
func (a *ToolAPI) checkAuth(r *http.Request) bool {
	if a.apiKey == "" {
		return true
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return subtle.ConstantTimeCompare([]byte(k), []byte(a.apiKey)) == 1
	}
	if token, ok := bearer(r); ok {
		return subtle.ConstantTimeCompare([]byte(token), []byte(a.apiKey)) == 1
	}
	return false
}

func (a *ToolAPI) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": a.tools.Catalog()})
}

func (a *ToolAPI) handleExecute(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	sid := strings.TrimSpace(r.Header.Get(sessionHeader))
	if sid == "" {
		sid = uuid.NewString()
	} else if _, err := uuid.Parse(sid); err != nil {
		http.Error(w, "invalid "+sessionHeader, http.StatusBadRequest)
		return
	}
	w.Header().Set(sessionHeader, sid)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxToolBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	logx.Info("API", "tool=%s session=%s", name, sid)
	out, err := a.tools.Execute(r.Context(), sid, name, body)
	resp := toolResponse{SessionID: sid, Tool: name}
	switch {
	case err == nil:
		resp.Result = out
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, tools.ErrUnknownTool):
		resp.Error = err.Error()
		writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, tools.ErrInvalidArgs):
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadRequest, resp)
	default:
		logx.Error("API", "tool=%s session=%s: %v", name, sid, err)
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
