// Package weights keeps per-user weight configurations in a YAML file.
package weights

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"gopkg.in/yaml.v3"
)

// DefaultUser is the key used when no user is specified.
const DefaultUser = "default"

// FileStore YAML file mapping user IDs to weight configurations:
//
//	default:
//	  rsi_weight: 1.5
//	  ...
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a store backed by path. The file may not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// GetWeights returns the configuration of userID. Fields missing in the file
// keep their default values.
func (s *FileStore) GetWeights(_ context.Context, userID string) (domain.WeightConfiguration, error) {
	if userID == "" {
		userID = DefaultUser
	}

	s.mu.RLock()
	raw, err := s.load()
	s.mu.RUnlock()
	if err != nil {
		return domain.DefaultWeights(), err
	}

	node, ok := raw[userID]
	if !ok {
		return domain.DefaultWeights(), errors.Wrapf(domain.ErrConfigurationMissing, "user %q", userID)
	}

	cfg := domain.DefaultWeights()
	if err := node.Decode(&cfg); err != nil {
		return domain.DefaultWeights(), errors.Wrapf(err, "decode weights of %q", userID)
	}
	if err := cfg.Validate(); err != nil {
		return domain.DefaultWeights(), errors.Wrapf(err, "weights of %q", userID)
	}
	return cfg, nil
}

// PutWeights validates and stores cfg for userID, rewriting the file
// atomically via a temp file.
func (s *FileStore) PutWeights(_ context.Context, userID string, cfg domain.WeightConfiguration) error {
	if userID == "" {
		userID = DefaultUser
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.load()
	if err != nil {
		return err
	}

	var node yaml.Node
	if err := node.Encode(cfg); err != nil {
		return errors.Wrap(err, "encode weights")
	}
	raw[userID] = node

	payload, err := yaml.Marshal(raw)
	if err != nil {
		return errors.Wrap(err, "encode weights file")
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create weights dir")
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write weights temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist weights")
	}
	return nil
}

func (s *FileStore) load() (map[string]yaml.Node, error) {
	raw := map[string]yaml.Node{}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return raw, nil
		}
		return nil, errors.Wrap(err, "read weights file")
	}

	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Wrap(err, "decode weights file")
	}
	return raw, nil
}
