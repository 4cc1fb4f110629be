package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cast"
)

// Config carries every preference that changes runtime behavior. Values come
// from the environment with sensible defaults; there is no config file.
type Config struct {
	Port    int
	DataDir string

	PlexURL   string
	PlexToken string

	ThemerrDBURL string
	TMDBImageURL string

	// Feature toggles
	Enabled                  bool
	MovieSupport             bool
	SeriesSupport            bool
	CollectionSupport        bool
	UpdateCollectionMetadata bool
	IgnoreLockedFields       bool
	OverwritePlexThemes      bool
	PreferMP4ACodec          bool

	// Pipeline tuning
	UploadWorkers    int
	UploadRetriesMax int
	UploadTimeout    time.Duration

	// Scheduler intervals, in minutes. Both are clamped to a 15 minute floor
	// before use so a misconfiguration cannot hammer the remote databases.
	ThemeUpdateInterval int
	CacheUpdateInterval int

	YTDLPPath      string
	YouTubeCookies string
}

func Load() *Config {
	return &Config{
		Port:    envInt("PORT", 9494),
		DataDir: env("DATA_DIR", "/var/lib/themewire"),

		PlexURL:   env("PLEX_URL", "http://127.0.0.1:32400"),
		PlexToken: env("PLEX_TOKEN", ""),

		ThemerrDBURL: env("THEMERR_DB_URL", "https://app.lizardbyte.dev/ThemerrDB"),
		TMDBImageURL: env("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p/original"),

		Enabled:                  envBool("THEMEWIRE_ENABLED", true),
		MovieSupport:             envBool("MOVIE_SUPPORT", true),
		SeriesSupport:            envBool("SERIES_SUPPORT", true),
		CollectionSupport:        envBool("COLLECTION_SUPPORT", true),
		UpdateCollectionMetadata: envBool("UPDATE_COLLECTION_METADATA", false),
		IgnoreLockedFields:       envBool("IGNORE_LOCKED_FIELDS", false),
		OverwritePlexThemes:      envBool("OVERWRITE_PLEX_THEMES", false),
		PreferMP4ACodec:          envBool("PREFER_MP4A_CODEC", false),

		UploadWorkers:    envInt("UPLOAD_WORKERS", 3),
		UploadRetriesMax: envInt("UPLOAD_RETRIES_MAX", 3),
		UploadTimeout:    time.Duration(envInt("UPLOAD_TIMEOUT_SECONDS", 180)) * time.Second,

		ThemeUpdateInterval: envInt("THEME_UPDATE_INTERVAL_MINUTES", 60),
		CacheUpdateInterval: envInt("CACHE_UPDATE_INTERVAL_MINUTES", 60),

		YTDLPPath:      env("YTDLP_PATH", "yt-dlp"),
		YouTubeCookies: env("YOUTUBE_COOKIES_FILE", ""),
	}
}

// SettingsHash fingerprints the subset of preferences that affect uploaded
// output. Changing any of them invalidates every previously applied record,
// forcing a re-upload pass.
func (c *Config) SettingsHash() string {
	settings := struct {
		PreferMP4ACodec      bool `json:"prefer_mp4a_codec"`
		UploadTimeoutSeconds int  `json:"upload_timeout_seconds"`
	}{
		PreferMP4ACodec:      c.PreferMP4ACodec,
		UploadTimeoutSeconds: int(c.UploadTimeout / time.Second),
	}
	data, _ := json.Marshal(settings)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return fallback
}
