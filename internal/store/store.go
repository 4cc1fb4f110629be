package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Keys written by older releases that are pruned whenever a record is saved.
var legacyKeys = []string{"downloaded_timestamp"}

// typeDirs maps an item type to the directory its records live under.
var typeDirs = map[string]string{
	"movie":      "Movies",
	"show":       "TV Shows",
	"collection": "Collections",
}

// Applied-state record keys. One JSON document exists per library item,
// holding the settings hash from the last successful upload plus the source
// identifier per media kind.
const (
	KeySettingsHash = "settings_hash"
	KeyThemeURL     = "youtube_theme_url"
	KeyArtURL       = "art_url"
	KeyPosterURL    = "poster_url"
)

// Store persists per-item applied state as one small JSON document per item.
// Records for different items never share a file, so concurrent workers only
// contend when the same rating key was double-enqueued.
type Store struct {
	dir string

	migMu sync.Mutex
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) recordPath(itemType string, ratingKey int) (string, error) {
	sub, ok := typeDirs[itemType]
	if !ok {
		return "", fmt.Errorf("store: unknown item type %q", itemType)
	}
	return filepath.Join(s.dir, "data", sub, strconv.Itoa(ratingKey)+".json"), nil
}

// Load returns the applied-state record for an item, or an empty record if
// none was ever written.
func (s *Store) Load(itemType string, ratingKey int) (map[string]string, error) {
	path, err := s.recordPath(itemType, ratingKey)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	record := map[string]string{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", path, err)
	}
	return record, nil
}

// Update merges patch over the existing record, prunes legacy keys, and
// writes the result back.
func (s *Store) Update(itemType string, ratingKey int, patch map[string]string) error {
	record, err := s.Load(itemType, ratingKey)
	if err != nil {
		return err
	}
	for _, key := range legacyKeys {
		delete(record, key)
	}
	for k, v := range patch {
		record[k] = v
	}

	path, err := s.recordPath(itemType, ratingKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return nil
}

// Remove deletes an item's record. Used by the explicit media-removal
// operation; the pipeline itself never deletes records.
func (s *Store) Remove(itemType string, ratingKey int) error {
	path, err := s.recordPath(itemType, ratingKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
