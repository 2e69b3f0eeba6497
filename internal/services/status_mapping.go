package services

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/igorsal/commit-bridge/internal/interfaces"
	"github.com/igorsal/commit-bridge/internal/models"
)

// statusID accepts both integer and string scalars
type statusID string

func (s *statusID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: status identifier must be a scalar", node.Line)
	}
	*s = statusID(strings.TrimSpace(node.Value))
	return nil
}

// ParseStatusMapping decodes a YAML (or JSON) status mapping document.
// Unknown keys are rejected; absent keys are valid.
func ParseStatusMapping(data []byte) (models.StatusMapping, error) {
	raw := map[string]statusID{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode status mapping: %w", err)
	}

	mapping := make(models.StatusMapping, len(raw))
	for key, id := range raw {
		logical := models.LogicalStatus(key)
		if !logical.Valid() {
			return nil, fmt.Errorf("unknown logical status %q", key)
		}
		if id == "" {
			continue
		}
		mapping[logical] = string(id)
	}
	return mapping, nil
}

// LoadStatusMapping reads the mapping at path. An empty path yields an empty
// mapping, which disables every status update.
func LoadStatusMapping(path string) (models.StatusMapping, error) {
	if path == "" {
		return models.StatusMapping{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read status mapping %s: %w", path, err)
	}

	mapping, err := ParseStatusMapping(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mapping, nil
}

// StatusMappingStore holds the process-wide mapping. Readers get an immutable
// snapshot; only Reload replaces it.
type StatusMappingStore struct {
	path    string
	current atomic.Pointer[models.StatusMapping]
	mu      sync.Mutex // serializes reloads
	logger  interfaces.Logger
	metrics interfaces.MetricsCollector
}

// NewStatusMappingStore loads path once and returns the store
func NewStatusMappingStore(path string, logger interfaces.Logger, metrics interfaces.MetricsCollector) (*StatusMappingStore, error) {
	s := &StatusMappingStore{
		path:    path,
		logger:  logger,
		metrics: metrics,
	}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active mapping. Callers must not modify it.
func (s *StatusMappingStore) Current() models.StatusMapping {
	if m := s.current.Load(); m != nil {
		return *m
	}
	return models.StatusMapping{}
}

// Reload re-reads the mapping file. On failure the previous mapping stays active.
func (s *StatusMappingStore) Reload() (models.StatusMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping, err := LoadStatusMapping(s.path)
	if err != nil {
		s.logger.Error("Failed to load status mapping", err, "path", s.path)
		return nil, err
	}

	s.current.Store(&mapping)
	s.metrics.SetGauge("status_mapping_entries", float64(len(mapping)), map[string]string{})

	if s.path == "" {
		s.logger.Warn("No status mapping configured, status updates are disabled")
	} else {
		s.logger.Info("Status mapping loaded", "path", s.path, "keys", mapping.Keys())
	}
	return mapping, nil
}
