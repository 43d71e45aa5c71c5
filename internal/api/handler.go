package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eugenenazirov/sessionconf/internal/cachesync"
	"github.com/eugenenazirov/sessionconf/internal/dao"
	"github.com/eugenenazirov/sessionconf/internal/session"
	"github.com/eugenenazirov/sessionconf/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler wires storage and the cache sync publisher into HTTP handlers.
type Handler struct {
	storage   storage.Storage
	publisher *cachesync.Publisher
	peers     http.Handler

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source used by the health check, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithPeers mounts the websocket endpoint cache sync peers connect to.
func WithPeers(peers http.Handler) HandlerOption {
	return func(h *Handler) {
		h.peers = peers
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, publisher *cachesync.Publisher, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage:   store,
		publisher: publisher,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	d, err := h.storage.GetDescriptor(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}

	updatedAt, err := h.storage.UpdatedAt(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}

	resp := sessionResponse{
		Commands:      commandsView{CacheSync: d.Commands.CacheSync()},
		NamingService: namingView{URL: urlPointer(&d.NamingService)},
		UpdatedAt:     updatedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetCommands(w http.ResponseWriter, r *http.Request) {
	d, err := h.storage.GetDescriptor(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}

	updatedAt, err := h.storage.UpdatedAt(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commandsResponse{
		CacheSync: d.Commands.CacheSync(),
		UpdatedAt: updatedAt,
	})
}

func (h *Handler) handlePutCommands(w http.ResponseWriter, r *http.Request) {
	var req commandsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if req.CacheSync == nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "cacheSync must be provided")
		return
	}

	commands := session.NewCommandsConfig()
	commands.SetCacheSync(*req.CacheSync)
	if err := h.storage.SetCommands(r.Context(), *commands); err != nil {
		writeStorageError(w, err)
		return
	}
	updatedAt, err := h.storage.UpdatedAt(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commandsResponse{
		CacheSync: commands.CacheSync(),
		UpdatedAt: updatedAt,
		Message:   "Commands config updated successfully",
	})
}

func (h *Handler) handleGetNamingService(w http.ResponseWriter, r *http.Request) {
	d, err := h.storage.GetDescriptor(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}

	updatedAt, err := h.storage.UpdatedAt(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, namingServiceResponse{
		URL:       urlPointer(&d.NamingService),
		UpdatedAt: updatedAt,
	})
}

// handlePutNamingService stores the URL verbatim; a null or missing url clears it.
func (h *Handler) handlePutNamingService(w http.ResponseWriter, r *http.Request) {
	var req namingServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	naming := session.NewRMIRegistryNamingServiceConfig()
	if req.URL != nil {
		naming.SetURL(*req.URL)
	}
	if err := h.storage.SetNamingService(r.Context(), *naming); err != nil {
		writeStorageError(w, err)
		return
	}
	updatedAt, err := h.storage.UpdatedAt(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, namingServiceResponse{
		URL:       urlPointer(naming),
		UpdatedAt: updatedAt,
		Message:   "Naming service config updated successfully",
	})
}

func (h *Handler) handlePublishCommand(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	cmd, err := h.publisher.Publish(r.Context(), cachesync.Kind(req.Kind), req.Key)
	if err != nil {
		switch {
		case errors.Is(err, cachesync.ErrUnknownKind), errors.Is(err, cachesync.ErrEmptyKey):
			writeError(w, http.StatusBadRequest, "Invalid command", err.Error())
		case errors.Is(err, cachesync.ErrCacheSyncDisabled):
			writeError(w, http.StatusConflict, "Cache sync disabled", err.Error(),
				"Enable cacheSync via PUT /api/session/commands before publishing")
		default:
			writeStorageError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, cmd)
}

func urlPointer(naming *session.RMIRegistryNamingServiceConfig) *string {
	url, ok := naming.URL()
	if !ok {
		return nil
	}
	return &url
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type commandsRequest struct {
	CacheSync *bool `json:"cacheSync"`
}

type namingServiceRequest struct {
	URL *string `json:"url"`
}

type publishRequest struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
}

type commandsView struct {
	CacheSync bool `json:"cacheSync"`
}

type namingView struct {
	URL *string `json:"url"`
}

type sessionResponse struct {
	Commands      commandsView `json:"commands"`
	NamingService namingView   `json:"namingService"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

type commandsResponse struct {
	CacheSync bool      `json:"cacheSync"`
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type namingServiceResponse struct {
	URL       *string   `json:"url"`
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Cause      string `json:"cause,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}

// writeStorageError reports a data-access failure with its message and cause
// kept apart; other errors fall back to writeInternalError.
func writeStorageError(w http.ResponseWriter, err error) {
	de, ok := dao.AsDaoError(err)
	if !ok {
		writeInternalError(w, err)
		return
	}

	resp := errorResponse{
		Error:   "Data access failure",
		Details: de.Message(),
	}
	if cause := de.Cause(); cause != nil {
		resp.Cause = cause.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}
