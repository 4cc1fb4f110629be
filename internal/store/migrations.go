package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const migrationsFile = "migrations.json"

// CompletedMigration reports whether a one-time migration already ran.
func (s *Store) CompletedMigration(name string) (bool, error) {
	s.migMu.Lock()
	defer s.migMu.Unlock()

	flags, err := s.loadMigrationFlags()
	if err != nil {
		return false, err
	}
	return flags[name], nil
}

// MarkMigrationComplete records that a one-time migration finished.
func (s *Store) MarkMigrationComplete(name string) error {
	s.migMu.Lock()
	defer s.migMu.Unlock()

	flags, err := s.loadMigrationFlags()
	if err != nil {
		return err
	}
	flags[name] = true

	path := filepath.Join(s.dir, migrationsFile)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(flags)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) loadMigrationFlags() (map[string]bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, migrationsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	flags := map[string]bool{}
	if err := json.Unmarshal(data, &flags); err != nil {
		return nil, err
	}
	return flags, nil
}
