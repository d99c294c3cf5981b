// File: internal/adminapi/handlers.go
package adminapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wa-humanizer/internal/humanizer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes bounds request bodies; config documents are small.
const maxBodyBytes = 1 << 20

// Handlers manages the HTTP request handling for the admin API.
type Handlers struct {
	log      *zap.Logger
	engine   Humanizer
	configs  ConfigCache
	settings SettingsWriter
}

// NewHandlers creates a new Handlers instance. settings may be nil, in which
// case the config is read-only.
func NewHandlers(logger *zap.Logger, engine Humanizer, configs ConfigCache, settings SettingsWriter) *Handlers {
	return &Handlers{
		log:      logger.Named("admin_handlers"),
		engine:   engine,
		configs:  configs,
		settings: settings,
	}
}

// RegisterRoutes sets up the routing. apiMiddleware applies to the versioned
// API only, so health checks are never throttled.
func (h *Handlers) RegisterRoutes(r chi.Router, apiMiddleware ...func(http.Handler) http.Handler) {
	// Health check endpoint (unversioned)
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/api/v1/humanizer", func(r chi.Router) {
		r.Use(apiMiddleware...)
		r.Post("/preview", h.HandlePreview)
		r.Get("/config", h.HandleGetConfig)
		r.Put("/config", h.HandlePutConfig)
		r.Delete("/config", h.HandleDeleteConfig)
		r.Get("/config/defaults", h.HandleGetDefaults)
		r.Post("/config/invalidate", h.HandleInvalidate)
	})
}

// HandleHealthCheck is a simple handler to confirm the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandlePreview runs the engine on a sample answer and returns the plan
// without sending anything.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	in := humanizer.NewInput(req.Text, req.Emotion, req.Intention, req.Stage)
	plan := h.engine.Humanize(r.Context(), in)
	result := PreviewResult{PreviewID: uuid.NewString(), Plan: plan}

	h.log.Info("Preview generated",
		zap.String("preview_id", result.PreviewID),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("mode", string(plan.Meta.Mode)),
		zap.Int("bubbles", len(plan.Bubbles)),
	)
	h.respondWithSuccess(w, http.StatusOK, result)
}

// HandleGetConfig returns the configuration the engine is currently using.
func (h *Handlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	h.respondWithSuccess(w, http.StatusOK, ConfigResult{
		Key:    h.configs.Key(),
		Config: h.configs.Get(r.Context()),
	})
}

// HandleGetDefaults returns the built-in configuration.
func (h *Handlers) HandleGetDefaults(w http.ResponseWriter, _ *http.Request) {
	h.respondWithSuccess(w, http.StatusOK, ConfigResult{
		Key:    h.configs.Key(),
		Config: humanizer.DefaultConfig(),
	})
}

// HandlePutConfig validates and stores a configuration document, then drops
// the cache so the next plan uses it. Partial documents are merged onto the
// defaults before validation and stored in full.
func (h *Handlers) HandlePutConfig(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		h.respondWithError(w, http.StatusServiceUnavailable, "Settings backend is not configured; the config is read-only.")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		h.respondWithError(w, http.StatusBadRequest, "Request body must be a JSON config document.")
		return
	}

	cfg, doc, err := humanizer.Canonicalize(string(body))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settings.SetSettingValue(r.Context(), h.configs.Key(), doc); err != nil {
		h.log.Error("Failed to store humanizer config", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to store config.")
		return
	}
	h.configs.Invalidate()

	h.log.Info("Humanizer config updated", zap.String("key", h.configs.Key()))
	h.respondWithSuccess(w, http.StatusOK, ConfigResult{Key: h.configs.Key(), Config: cfg})
}

// HandleDeleteConfig removes the stored document so the defaults apply.
func (h *Handlers) HandleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		h.respondWithError(w, http.StatusServiceUnavailable, "Settings backend is not configured; the config is read-only.")
		return
	}
	if err := h.settings.DeleteSetting(r.Context(), h.configs.Key()); err != nil {
		h.log.Error("Failed to delete humanizer config", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete config.")
		return
	}
	h.configs.Invalidate()
	h.respondWithSuccess(w, http.StatusOK, ConfigResult{Key: h.configs.Key(), Config: humanizer.DefaultConfig()})
}

// HandleInvalidate drops the cached configuration.
func (h *Handlers) HandleInvalidate(w http.ResponseWriter, _ *http.Request) {
	h.configs.Invalidate()
	h.respondWithSuccess(w, http.StatusOK, map[string]string{"message": "config cache invalidated"})
}

// respondWithError sends a standardized JSON error response.
func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, h.log, statusCode, Response{Status: "error", Error: message})
}

// respondWithSuccess sends a standardized JSON success response.
func (h *Handlers) respondWithSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, h.log, statusCode, Response{Status: "success", Data: data})
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		log.Error("Failed to encode response", zap.Error(err))
	}
}
