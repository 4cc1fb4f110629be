// Package tmdb resolves external IDs and collection names to TMDB IDs using
// the movie-database proxy service built into the Plex server, so no TMDB API
// key is required.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type Client struct {
	plexURL    string
	token      string
	httpClient *http.Client

	// The proxy service throttles aggressively, so requests are paced.
	limiter *rate.Limiter
}

func NewClient(plexURL, token string) *Client {
	return &Client{
		plexURL: plexURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// FindByExternalID translates an IMDB or TVDB ID into a TMDB ID.
// itemType must be "movie" or "tv". Returns 0 if no match was found.
func (c *Client) FindByExternalID(ctx context.Context, externalID, database, itemType string) (int, error) {
	database = strings.ToLower(database)
	itemType = strings.ToLower(itemType)
	if database != "imdb" && database != "tvdb" {
		return 0, fmt.Errorf("tmdb: invalid database %q", database)
	}
	if itemType != "movie" && itemType != "tv" {
		return 0, fmt.Errorf("tmdb: invalid item type %q", itemType)
	}

	uri := fmt.Sprintf("/find/%s?external_source=%s_id", url.PathEscape(externalID), database)
	body, err := c.get(ctx, uri)
	if err != nil {
		return 0, err
	}

	var result struct {
		MovieResults []struct {
			ID int `json:"id"`
		} `json:"movie_results"`
		TVResults []struct {
			ID int `json:"id"`
		} `json:"tv_results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("tmdb: parse find response: %w", err)
	}

	if itemType == "movie" && len(result.MovieResults) > 0 {
		return result.MovieResults[0].ID, nil
	}
	if itemType == "tv" && len(result.TVResults) > 0 {
		return result.TVResults[0].ID, nil
	}
	return 0, nil
}

// SearchCollection looks up a TMDB collection ID by name. The match accepts
// the exact name or the name with a "Collection" suffix, since TMDB names
// collections that way. Returns 0 if no match was found.
func (c *Client) SearchCollection(ctx context.Context, name, language string) (int, error) {
	// The proxy rejects spaces in collection queries regardless of encoding,
	// so they are replaced with dashes before the lookup.
	query := url.PathEscape(strings.ReplaceAll(name, " ", "-"))
	uri := fmt.Sprintf("/search/collection?query=%s", query)
	if language != "" {
		uri += "&language=" + url.QueryEscape(language)
	}

	body, err := c.get(ctx, uri)
	if err != nil {
		return 0, err
	}

	var result struct {
		Results []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("tmdb: parse collection response: %w", err)
	}

	want := strings.ToLower(name)
	collectionID := 0
	for _, r := range result.Results {
		got := strings.ToLower(r.Name)
		if got == want || got == want+" collection" {
			collectionID = r.ID
		}
	}
	return collectionID, nil
}

func (c *Client) get(ctx context.Context, uri string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/services/tmdb?uri=%s", c.plexURL, url.QueryEscape(uri))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
