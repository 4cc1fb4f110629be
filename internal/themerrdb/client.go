package themerrdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DatabaseType is a top-level catalog in ThemerrDB.
type DatabaseType string

const (
	Movies           DatabaseType = "movies"
	TVShows          DatabaseType = "tv_shows"
	MovieCollections DatabaseType = "movie_collections"
)

// dbIDFields lists, per database type, the sub-databases ThemerrDB indexes
// and the field under which each record carries that database's ID.
var dbIDFields = map[DatabaseType]map[string]string{
	Movies:           {"themoviedb": "id", "imdb": "imdb_id"},
	MovieCollections: {"themoviedb": "id"},
	TVShows:          {"themoviedb": "id"},
}

var ErrNotFound = errors.New("themerrdb: not found")

// ThemeRecord is a single ThemerrDB entry. Only collections carry the
// poster/backdrop/overview fields.
type ThemeRecord struct {
	YouTubeThemeURL string `json:"youtube_theme_url"`
	PosterPath      string `json:"poster_path"`
	BackdropPath    string `json:"backdrop_path"`
	Overview        string `json:"overview"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PageCount fetches the number of catalog pages for a database type.
func (c *Client) PageCount(dbType DatabaseType) (int, error) {
	var pages struct {
		Pages int `json:"pages"`
	}
	if err := c.getJSON(fmt.Sprintf("%s/%s/pages.json", c.baseURL, dbType), &pages); err != nil {
		return 0, err
	}
	return pages.Pages, nil
}

// Page fetches one catalog page. Each entry is returned raw so the caller can
// pick out the ID fields for every sub-database.
func (c *Client) Page(dbType DatabaseType, page int) ([]map[string]any, error) {
	var items []map[string]any
	url := fmt.Sprintf("%s/%s/all_page_%d.json", c.baseURL, dbType, page)
	if err := c.getJSON(url, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Theme fetches the full record for a single item.
func (c *Client) Theme(dbType DatabaseType, database, id string) (*ThemeRecord, error) {
	record := &ThemeRecord{}
	url := fmt.Sprintf("%s/%s/%s/%s.json", c.baseURL, dbType, database, id)
	if err := c.getJSON(url, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) getJSON(url string, out any) error {
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("themerrdb: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("themerrdb: get %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("themerrdb: parse %s: %w", url, err)
	}
	return nil
}
