package handlers

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/igorsal/commit-bridge/internal/interfaces"
)

type HealthHandler struct {
	mappings interfaces.StatusMappingSource
	logger   interfaces.Logger
	metrics  interfaces.MetricsCollector
}

type HealthResponse struct {
	Status        string   `json:"status"`
	Timestamp     string   `json:"timestamp"`
	Version       string   `json:"version"`
	StatusMapping []string `json:"status_mapping"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(mappings interfaces.StatusMappingSource, logger interfaces.Logger, metrics interfaces.MetricsCollector) *HealthHandler {
	return &HealthHandler{
		mappings: mappings,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handle processes health check requests
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.logger.Warn("Invalid method for health endpoint", "method", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       getVersion(),
		StatusMapping: h.mappings.Current().Keys(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode health response", err)
		return
	}

	h.logger.Debug("Health check completed successfully")
}

// getVersion returns build version information
func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				if len(setting.Value) > 7 {
					return setting.Value[:7] // Short commit hash
				}
				return setting.Value
			}
		}

		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return "dev"
}
