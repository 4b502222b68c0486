package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wkmcp/internal/auth"
	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/shared"
	"github.com/desertthunder/wkmcp/internal/sync"
	"github.com/desertthunder/wkmcp/internal/views"
)

const version = "0.3.0"

// Handlers holds the dependencies behind every HTTP route.
type Handlers struct {
	registrar *auth.Registrar
	views     *views.Builder
	syncSvc   *sync.Service
	logger    *log.Logger
}

// NewHandlers creates the route handler set.
func NewHandlers(registrar *auth.Registrar, builder *views.Builder, syncSvc *sync.Service, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Handlers{registrar: registrar, views: builder, syncSvc: syncSvc, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Root serves the service banner.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "WaniKani MCP proxy",
		"version": version,
	})
}

// Health serves the liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type registerRequest struct {
	WaniKaniAPIKey string `json:"wanikani_api_key"`
}

type registerResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	APIKey   string `json:"api_key"`
}

// Register exchanges a WaniKani token for a locally issued API key.
//
// The key in the response is shown exactly once; only its hash survives.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, apiKey, err := h.registrar.Register(r.Context(), req.WaniKaniAPIKey)
	switch {
	case errors.Is(err, shared.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "wanikani_api_key is required")
		return
	case errors.Is(err, shared.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "WaniKani rejected the API key")
		return
	case errors.Is(err, shared.ErrDuplicateUser):
		writeError(w, http.StatusConflict, "credential already registered")
		return
	case err != nil:
		h.logger.Error("registration failed", "err", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		UserID:   user.ID,
		Username: user.Username,
		Level:    user.Level,
		APIKey:   apiKey,
	})
}

// toolInfo describes one callable tool.
type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

var tools = []toolInfo{
	{
		Name:        "get_status",
		Description: "Get current WaniKani status including lessons, reviews, and level",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}},
	},
	{
		Name:        "get_leeches",
		Description: "Get problematic items that need extra practice",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of leeches to return",
					"default":     10,
				},
			},
			"required": []string{},
		},
	},
	{
		Name:        "sync_data",
		Description: "Manually trigger synchronization with the WaniKani API",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}},
	},
}

// ListTools serves the tool catalog.
func (h *Handlers) ListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

type callRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// CallTool dispatches one tool invocation for the authenticated user.
func (h *Handlers) CallTool(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Name {
	case "get_status":
		status, err := h.views.Status(user.ID, time.Now())
		if err != nil {
			h.logger.Error("status view failed", "err", err)
			writeError(w, http.StatusInternalServerError, "failed to build status")
			return
		}
		writeJSON(w, http.StatusOK, status)

	case "get_leeches":
		limit := 10
		if raw, ok := req.Arguments["limit"].(float64); ok && raw > 0 {
			limit = int(raw)
		}
		leeches, err := h.views.Leeches(user.ID, limit)
		if err != nil {
			h.logger.Error("leech view failed", "err", err)
			writeError(w, http.StatusInternalServerError, "failed to build leeches")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"leeches": leeches, "total_leeches": len(leeches)})

	case "sync_data":
		report, err := h.syncSvc.SyncUser(r.Context(), user, models.SyncManual)
		if err != nil {
			writeError(w, http.StatusBadGateway, "sync failed: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          string(report.Status),
			"records_updated": report.Total(),
			"records_skipped": report.SkippedTotal(),
		})

	default:
		writeError(w, http.StatusNotFound, "unknown tool: "+req.Name)
	}
}

// resourceInfo describes one readable resource.
type resourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

var resources = []resourceInfo{
	{
		URI:         "wanikani://user_progress",
		Name:        "User Progress",
		Description: "Current user progress and statistics",
		MimeType:    "application/json",
	},
	{
		URI:         "wanikani://review_forecast",
		Name:        "Review Forecast",
		Description: "Timeline of upcoming reviews",
		MimeType:    "application/json",
	},
	{
		URI:         "wanikani://item_database",
		Name:        "Item Database",
		Description: "Searchable collection of the user's WaniKani items",
		MimeType:    "application/json",
	},
}

// ListResources serves the resource catalog.
func (h *Handlers) ListResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

// ReadResource serves one resource by its wanikani:// uri.
func (h *Handlers) ReadResource(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	switch r.URL.Query().Get("uri") {
	case "wanikani://user_progress":
		status, err := h.views.Status(user.ID, time.Now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build progress")
			return
		}
		writeJSON(w, http.StatusOK, status)

	case "wanikani://review_forecast":
		forecast, err := h.views.Forecast(user.ID, time.Now(), views.ForecastHorizon)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build forecast")
			return
		}
		writeJSON(w, http.StatusOK, forecast)

	case "wanikani://item_database":
		items, err := h.views.Items(user.ID, 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build items")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}
