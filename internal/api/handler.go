package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/opensource-finance/dary/internal/batch"
	"github.com/opensource-finance/dary/internal/domain"
	"github.com/opensource-finance/dary/internal/export"
	"github.com/opensource-finance/dary/internal/history"
	"github.com/opensource-finance/dary/internal/intake"
	"github.com/opensource-finance/dary/internal/rules"
	"github.com/opensource-finance/dary/internal/scoring"
)

// ScreenSource returns the screening rules applied on reload.
type ScreenSource func() ([]*domain.ScreenRule, error)

// Config holds the HTTP settings and build information.
type Config struct {
	Server  domain.ServerConfig
	Version string
}

// Deps are the collaborators served by the API.
type Deps struct {
	Cache   domain.Cache
	History *history.Store
	Engine  *rules.Engine
	Runner  *batch.Runner
	Screens ScreenSource
}

// Handler holds dependencies for API handlers.
type Handler struct {
	cache     domain.Cache
	history   *history.Store
	engine    *rules.Engine
	runner    *batch.Runner
	screens   ScreenSource
	maxUpload int64
	version   string

	// added holds rules created through POST /screens so reloads keep them.
	mu    sync.Mutex
	added []*domain.ScreenRule
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config, deps Deps) *Handler {
	maxUpload := cfg.Server.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{
		cache:     deps.Cache,
		history:   deps.History,
		engine:    deps.Engine,
		runner:    deps.Runner,
		screens:   deps.Screens,
		maxUpload: maxUpload,
		version:   cfg.Version,
	}
}

// ValidationErrorResponse is the 400 body for a malformed field.
type ValidationErrorResponse struct {
	Error  string `json:"error"`
	Row    int    `json:"row,omitempty"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Evaluate handles POST /evaluate requests.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	sessionID := GetSessionID(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "request body too large",
		})
		return
	}

	rec, err := intake.DecodeRecord(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	in, err := intake.FromRecord(rec)
	if err != nil {
		writeError(w, err)
		return
	}

	result := scoring.Evaluate(in)
	for _, warning := range result.Warnings {
		slog.Warn("unrecognized value",
			"session_id", sessionID,
			"project", in.Name,
			"warning", warning,
		)
	}

	if h.engine != nil {
		flags, err := h.engine.Screen(ctx, in, result)
		if err != nil {
			slog.Error("screening failed", "evaluation_id", result.ID, "error", err)
		}
		result.Flags = flags
	}

	if h.history != nil {
		if err := h.history.Record(ctx, sessionID, result); err != nil {
			slog.Error("failed to record history", "evaluation_id", result.ID, "error", err)
		}
	}

	slog.Info("project evaluated",
		"evaluation_id", result.ID,
		"session_id", sessionID,
		"trace_id", GetTraceID(ctx),
		"score_global", result.ScoreGlobal,
		"tier", result.Tier,
		"flags", len(result.Flags),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	writeJSON(w, http.StatusOK, result)
}

// Batch handles POST /batch requests with a CSV or JSON body.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := GetSessionID(ctx)

	if h.runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "batch runner not available",
		})
		return
	}

	format := intake.DetectFormat(r.Header.Get("Content-Type"), "")
	records, err := intake.Read(http.MaxBytesReader(w, r.Body, h.maxUpload), format)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "request body too large",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	report, err := h.runner.Run(ctx, records)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.history != nil {
		if err := h.history.Record(ctx, sessionID, report.Results()...); err != nil {
			slog.Error("failed to record batch history", "session_id", sessionID, "error", err)
		}
	}

	if r.URL.Query().Get("format") == string(export.FormatCSV) {
		var buf bytes.Buffer
		if err := export.BatchCSV(&buf, report.Outcomes); err != nil {
			slog.Error("failed to render batch csv", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to render batch",
			})
			return
		}
		w.Header().Set("Content-Type", export.FormatCSV.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="dary_batch.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Criteria handles GET /criteria.
func (h *Handler) Criteria(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scoring.Criteria())
}

// ListHistory handles GET /history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "history not available",
		})
		return
	}

	results, err := h.history.List(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluations": results,
		"count":       len(results),
	})
}

// ClearHistory handles DELETE /history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "history not available",
		})
		return
	}

	if err := h.history.Clear(r.Context(), GetSessionID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "history cleared",
	})
}

// GetEvaluation handles GET /evaluations/{id}.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	result, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ExportEvaluation handles GET /evaluations/{id}/export?format=json|csv|html|pdf.
func (h *Handler) ExportEvaluation(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	result, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, result); err != nil {
		slog.Error("failed to export evaluation", "id", result.ID, "format", format, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to export evaluation",
		})
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(result)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*domain.GlobalScoreResult, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "evaluation ID is required",
		})
		return nil, false
	}

	if h.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "history not available",
		})
		return nil, false
	}

	result, err := h.history.Get(r.Context(), GetSessionID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return result, true
}

// ListScreens handles GET /screens.
func (h *Handler) ListScreens(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "screening engine not available",
		})
		return
	}

	loaded := h.engine.GetLoadedRules()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loaded,
		"count": len(loaded),
	})
}

// CreateScreen handles POST /screens. An enabled rule is applied immediately.
func (h *Handler) CreateScreen(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "screening engine not available",
		})
		return
	}

	var rule domain.ScreenRule
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUpload)).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := rules.ValidateConfig(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	// Validate CEL expression without touching the loaded set
	if err := h.engine.ValidateRule(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if rule.Enabled {
		if err := h.engine.LoadRule(&rule); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid CEL expression: " + err.Error(),
			})
			return
		}
	}

	h.mu.Lock()
	h.added = append(lo.Reject(h.added, func(existing *domain.ScreenRule, _ int) bool {
		return existing.ID == rule.ID
	}), &rule)
	h.mu.Unlock()

	slog.Info("screen created", "id", rule.ID, "name", rule.Name, "enabled", rule.Enabled)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "screen created",
	})
}

// ReloadScreens handles POST /screens/reload. It reloads the configured
// source together with the rules created through the API.
func (h *Handler) ReloadScreens(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "screening engine not available",
		})
		return
	}

	var configs []*domain.ScreenRule
	if h.screens != nil {
		loaded, err := h.screens()
		if err != nil {
			slog.Error("failed to load screens", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to load screens: " + err.Error(),
			})
			return
		}
		configs = loaded
	}

	h.mu.Lock()
	added := append([]*domain.ScreenRule(nil), h.added...)
	h.mu.Unlock()

	// API rules override source rules with the same ID.
	addedIDs := lo.SliceToMap(added, func(rule *domain.ScreenRule) (string, struct{}) {
		return rule.ID, struct{}{}
	})
	configs = append(lo.Reject(configs, func(rule *domain.ScreenRule, _ int) bool {
		_, ok := addedIDs[rule.ID]
		return ok
	}), added...)

	if err := h.engine.ReloadRules(configs); err != nil {
		slog.Error("failed to reload screens into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload screens: " + err.Error(),
		})
		return
	}

	slog.Info("screens reloaded", "count", h.engine.RulesCount())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "screens reloaded successfully",
		"count":   h.engine.RulesCount(),
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready handles GET /ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeError maps domain errors to HTTP responses.
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:  verr.Error(),
			Row:    verr.Row,
			Field:  verr.Field,
			Value:  verr.Value,
			Reason: verr.Reason,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "evaluation not found",
		})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
