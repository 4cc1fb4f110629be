package themerrdb

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestThemeFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/movie_collections/themoviedb/645.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"youtube_theme_url": "https://www.youtube.com/watch?v=abc",
			"poster_path": "/poster.jpg",
			"backdrop_path": "/backdrop.jpg",
			"overview": "A collection."
		}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL)
	record, err := client.Theme(MovieCollections, "themoviedb", "645")
	if err != nil {
		t.Fatalf("theme: %v", err)
	}
	if record.YouTubeThemeURL != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("theme url: %q", record.YouTubeThemeURL)
	}
	if record.PosterPath != "/poster.jpg" || record.BackdropPath != "/backdrop.jpg" {
		t.Errorf("image paths: %q %q", record.PosterPath, record.BackdropPath)
	}
	if record.Overview != "A collection." {
		t.Errorf("overview: %q", record.Overview)
	}
}

func TestThemeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Theme(Movies, "themoviedb", "710")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
