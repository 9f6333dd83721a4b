package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/malbeclabs/finagent/pkg/chat"
	"github.com/malbeclabs/finagent/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type session struct {
	tenantID int64
	conv     *chat.Conversation
}

type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions *ttlcache.Cache[string, *session]
}

func NewHandler(log *slog.Logger, cfg Config) (*Handler, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{
		log: log,
		cfg: cfg,
		sessions: ttlcache.New(
			ttlcache.WithTTL[string, *session](cfg.SessionTTL),
		),
	}, nil
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(ChatPath, instrument(ChatPath, http.HandlerFunc(h.chatHandler)))
	mux.Handle(HealthzPath, instrument(HealthzPath, http.HandlerFunc(h.healthzHandler)))
	mux.Handle(MetricsPath, promhttp.Handler())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeJSONError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg, Code: status})
}

func (h *Handler) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rawID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if rawID == "" {
		h.writeJSONError(w, http.StatusUnauthorized, "missing "+UserIDHeader+" header")
		return
	}
	tenantID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || tenantID <= 0 {
		h.writeJSONError(w, http.StatusBadRequest, "invalid "+UserIDHeader+" header")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			h.writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeJSONError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID, sess, ok := h.session(req.SessionID, tenantID)
	if !ok {
		h.writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}

	reply, err := h.cfg.Replier.Reply(r.Context(), tenantID, sess.conv, req.Message)
	if err != nil {
		h.log.Error("server: failed to answer message", "error", err, "user_id", tenantID, "session_id", sessionID)
		h.writeJSONError(w, http.StatusInternalServerError, "failed to answer message")
		return
	}

	h.writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: sessionID,
		Reply:     reply.Text,
		Route:     string(reply.Route),
		ToolError: reply.ToolError,
		Attempts:  len(reply.Attempts),
	})
}

// session returns the session for id, creating one when id is empty. A session that
// belongs to another tenant is treated as missing.
func (h *Handler) session(id string, tenantID int64) (string, *session, bool) {
	if id == "" {
		id = uuid.NewString()
		sess := &session{tenantID: tenantID, conv: chat.NewConversation()}
		h.sessions.Set(id, sess, ttlcache.DefaultTTL)
		return id, sess, true
	}
	item := h.sessions.Get(id)
	if item == nil {
		return "", nil, false
	}
	sess := item.Value()
	if sess.tenantID != tenantID {
		return "", nil, false
	}
	return id, sess, true
}

func (h *Handler) healthzHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	})
}
