package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"quasarcli/internal/errors"
)

const (
	fingerprintFile = "last_index_hash.txt"
	metadataFile    = "cache_metadata.json"
)

// Metadata records what the last indexed dataset looked like.
type Metadata struct {
	Timestamp   string `json:"timestamp"`
	Fingerprint string `json:"fingerprint"`
	Sheets      int    `json:"sheets_count"`
	Rows        int    `json:"total_rows"`
	CycleID     string `json:"cycle_id,omitempty"`
}

// Manager persists the last-seen fingerprint and its metadata under a cache
// directory. A missing or unreadable fingerprint file always reports that a
// rebuild is needed.
type Manager struct {
	dir    string
	logger *slog.Logger
}

func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create cache directory "+dir, err)
	}
	return &Manager{dir: dir, logger: logger}, nil
}

// NeedsReindex compares the current fingerprint against the stored one.
func (m *Manager) NeedsReindex(current string) bool {
	data, err := os.ReadFile(filepath.Join(m.dir, fingerprintFile))
	if err != nil {
		m.logger.Info("no previous fingerprint, rebuild required")
		return true
	}
	last := strings.TrimSpace(string(data))
	if last != current {
		m.logger.Info("dataset fingerprint changed",
			slog.String("previous", short(last)),
			slog.String("current", short(current)))
		return true
	}
	m.logger.Debug("dataset fingerprint unchanged", slog.String("fingerprint", short(current)))
	return false
}

// SaveFingerprint stores the fingerprint of the just-indexed dataset.
func (m *Manager) SaveFingerprint(fp string) error {
	if err := writeAtomic(filepath.Join(m.dir, fingerprintFile), []byte(fp)); err != nil {
		return errors.NewStorageError("failed to save fingerprint", err)
	}
	return nil
}

// SaveMetadata stores indexing metadata next to the fingerprint.
func (m *Manager) SaveMetadata(meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.NewStorageError("failed to encode cache metadata", err)
	}
	if err := writeAtomic(filepath.Join(m.dir, metadataFile), data); err != nil {
		return errors.NewStorageError("failed to save cache metadata", err)
	}
	return nil
}

// LoadMetadata reads the stored metadata. A missing file is not an error.
func (m *Manager) LoadMetadata() (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, nil
		}
		return Metadata{}, errors.NewStorageError("failed to read cache metadata", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, errors.NewStorageError("failed to decode cache metadata", err)
	}
	return meta, nil
}

// Clear removes the fingerprint and metadata files.
func (m *Manager) Clear() error {
	for _, name := range []string{fingerprintFile, metadataFile} {
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil && !os.IsNotExist(err) {
			return errors.NewStorageError("failed to clear cache file "+name, err)
		}
	}
	return nil
}

// writeAtomic writes via a temp file and rename so a crash never leaves a
// half-written fingerprint behind.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
