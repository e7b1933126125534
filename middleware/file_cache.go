package middleware

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shrek82/sqlchain/plugin"
)

const fileCacheExt = ".cache"

// FileStore keeps one file per entry in Dir, named by the MD5 of the key.
type FileStore struct {
	Dir string
}

type fileCacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func openFileStore(props plugin.Properties) (Store, error) {
	return NewFileStore(props.Get("dir", filepath.Join(os.TempDir(), "sqlchain-cache")))
}

func (s *FileStore) filename(key string) string {
	hash := md5.Sum([]byte(key))
	return filepath.Join(s.Dir, hex.EncodeToString(hash[:])+fileCacheExt)
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	filename := s.filename(key)
	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entry fileCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entries are dropped.
		_ = os.Remove(filename)
		return nil, false, nil
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(filename)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := fileCacheEntry{Data: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	// Write then rename so readers never see a partial file.
	filename := s.filename(key)
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filename)
}

func (s *FileStore) Flush(context.Context) error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileCacheExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *FileStore) Close() error { return nil }
