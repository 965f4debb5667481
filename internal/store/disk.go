package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karakuri/shirabe/internal/models"
	"go.uber.org/zap"
)

// DiskStore keeps one JSON snapshot file per project key under a base
// directory. Writes are atomic (temp file + rename); unreadable snapshots are
// quarantined on load instead of failing startup.
type DiskStore struct {
	dir    string
	logger *zap.Logger // optional; when set, logs quarantine events
}

// DiskOption configures a DiskStore.
type DiskOption func(*DiskStore)

// WithLogger sets a logger for quarantine and write events.
func WithLogger(l *zap.Logger) DiskOption {
	return func(s *DiskStore) { s.logger = l }
}

// NewDiskStore creates a store rooted at dir. The directory is created lazily
// on first Save.
func NewDiskStore(dir string, opts ...DiskOption) *DiskStore {
	s := &DiskStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes idx as pretty-printed JSON to <dir>/<key>.json via a temp file
// rename, overwriting any prior snapshot.
func (s *DiskStore) Save(ctx context.Context, key string, idx *models.Index) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	path := s.path(key)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot for key. A missing file returns (nil, nil). A file
// that fails to decode is renamed to <file>.corrupt.<unix-nanos> and reported
// absent, so the caller falls back to rebuilding the index.
func (s *DiskStore) Load(ctx context.Context, key string) (*models.Index, error) {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var idx models.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		quarantine := fmt.Sprintf("%s.corrupt.%d", path, time.Now().UnixNano())
		if renameErr := os.Rename(path, quarantine); renameErr != nil {
			return nil, fmt.Errorf("quarantine corrupt snapshot: %w", renameErr)
		}
		if s.logger != nil {
			s.logger.Warn("quarantined corrupt index snapshot",
				zap.String("key", key),
				zap.String("backup", quarantine),
				zap.Error(err),
			)
		}
		return nil, nil
	}
	return &idx, nil
}

// Exists reports whether a snapshot file exists for key.
func (s *DiskStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the snapshot for key; absent files are a no-op.
func (s *DiskStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Size returns the snapshot file size in bytes, 0 when absent.
func (s *DiskStore) Size(ctx context.Context, key string) (int64, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}

// Close is a no-op for DiskStore.
func (s *DiskStore) Close() error {
	return nil
}

func (s *DiskStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// sanitizeKey maps an opaque key to a safe file name. Keys are not
// interpreted; anything outside [A-Za-z0-9._-] becomes '_'.
func sanitizeKey(key string) string {
	if key == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped; errors during walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if info.IsDir() {
			n, err := dirSize(p)
			if err != nil {
				return 0, err
			}
			total += n
		} else {
			total += info.Size()
		}
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
