package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 9494 {
		t.Errorf("port: %d", cfg.Port)
	}
	if cfg.PlexURL != "http://127.0.0.1:32400" {
		t.Errorf("plex url: %q", cfg.PlexURL)
	}
	if cfg.ThemerrDBURL != "https://app.lizardbyte.dev/ThemerrDB" {
		t.Errorf("themerrdb url: %q", cfg.ThemerrDBURL)
	}
	if !cfg.MovieSupport || !cfg.SeriesSupport || !cfg.CollectionSupport {
		t.Error("support toggles should default on")
	}
	if cfg.UpdateCollectionMetadata || cfg.IgnoreLockedFields || cfg.OverwritePlexThemes {
		t.Error("destructive toggles should default off")
	}
	if cfg.UploadWorkers != 3 || cfg.UploadRetriesMax != 3 {
		t.Errorf("pipeline tuning: workers=%d retries=%d", cfg.UploadWorkers, cfg.UploadRetriesMax)
	}
	if cfg.UploadTimeout != 180*time.Second {
		t.Errorf("upload timeout: %s", cfg.UploadTimeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PLEX_URL", "http://plex.local:32400")
	t.Setenv("MOVIE_SUPPORT", "false")
	t.Setenv("UPLOAD_WORKERS", "5")
	t.Setenv("UPLOAD_TIMEOUT_SECONDS", "60")
	t.Setenv("PREFER_MP4A_CODEC", "1")

	cfg := Load()
	if cfg.PlexURL != "http://plex.local:32400" {
		t.Errorf("plex url: %q", cfg.PlexURL)
	}
	if cfg.MovieSupport {
		t.Error("movie support should be off")
	}
	if cfg.UploadWorkers != 5 {
		t.Errorf("workers: %d", cfg.UploadWorkers)
	}
	if cfg.UploadTimeout != time.Minute {
		t.Errorf("upload timeout: %s", cfg.UploadTimeout)
	}
	if !cfg.PreferMP4ACodec {
		t.Error("codec preference not parsed")
	}
}

// Unparseable values fall back to defaults rather than failing startup.
func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("UPLOAD_WORKERS", "many")
	t.Setenv("SERIES_SUPPORT", "sure")

	cfg := Load()
	if cfg.UploadWorkers != 3 {
		t.Errorf("workers: %d", cfg.UploadWorkers)
	}
	if !cfg.SeriesSupport {
		t.Error("series support should keep its default")
	}
}

// The hash must move when an output-affecting preference moves, and only then.
func TestSettingsHash(t *testing.T) {
	base := &Config{UploadTimeout: 180 * time.Second}
	same := &Config{UploadTimeout: 180 * time.Second, MovieSupport: true}
	codec := &Config{UploadTimeout: 180 * time.Second, PreferMP4ACodec: true}
	timeout := &Config{UploadTimeout: 60 * time.Second}

	if base.SettingsHash() != same.SettingsHash() {
		t.Error("unrelated preference changed the hash")
	}
	if base.SettingsHash() == codec.SettingsHash() {
		t.Error("codec preference did not change the hash")
	}
	if base.SettingsHash() == timeout.SettingsHash() {
		t.Error("upload timeout did not change the hash")
	}
}
