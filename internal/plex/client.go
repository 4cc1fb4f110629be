package plex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 30 * time.Second
	product        = "Themewire"
)

// clientID identifies this process to the Plex server across requests.
var clientID = uuid.NewString()

// Client is an authenticated Plex API client.
type Client struct {
	baseURL       string
	token         string
	httpClient    *http.Client
	uploadTimeout time.Duration
}

func NewClient(baseURL, token string, uploadTimeout time.Duration) *Client {
	if uploadTimeout <= 0 {
		uploadTimeout = defaultTimeout
	}
	return &Client{
		baseURL:       baseURL,
		token:         token,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		uploadTimeout: uploadTimeout,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("plex: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Client-Identifier", clientID)
	req.Header.Set("X-Plex-Product", product)

	httpClient := c.httpClient
	if method == http.MethodPost && c.uploadTimeout > httpClient.Timeout {
		httpClient = &http.Client{Timeout: c.uploadTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plex: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("plex: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("plex: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	return data, nil
}

func (c *Client) getContainer(ctx context.Context, path string, query url.Values) (*mediaContainerResponse, error) {
	data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	container := &mediaContainerResponse{}
	if err := json.Unmarshal(data, container); err != nil {
		return nil, fmt.Errorf("plex: parse response: %w", err)
	}
	return container, nil
}

// FetchItem returns the library item with the given rating key.
func (c *Client) FetchItem(ctx context.Context, ratingKey int) (*Item, error) {
	container, err := c.getContainer(ctx, "/library/metadata/"+strconv.Itoa(ratingKey), nil)
	if err != nil {
		return nil, err
	}
	if len(container.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("plex: item %d not found", ratingKey)
	}
	return container.MediaContainer.Metadata[0].toItem(), nil
}

// Sections returns all library sections.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	container, err := c.getContainer(ctx, "/library/sections", nil)
	if err != nil {
		return nil, err
	}
	sections := make([]Section, 0, len(container.MediaContainer.Directory))
	for _, d := range container.MediaContainer.Directory {
		sections = append(sections, d.toSection())
	}
	return sections, nil
}

// SectionByID returns a single library section.
func (c *Client) SectionByID(ctx context.Context, id int) (*Section, error) {
	sections, err := c.Sections(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sections {
		if s.Key == id {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("plex: section %d not found", id)
}

// SectionItems returns every item in a section.
func (c *Client) SectionItems(ctx context.Context, sectionKey int) ([]*Item, error) {
	return c.sectionListing(ctx, sectionKey, "all")
}

// SectionCollections returns every collection in a section.
func (c *Client) SectionCollections(ctx context.Context, sectionKey int) ([]*Item, error) {
	return c.sectionListing(ctx, sectionKey, "collections")
}

func (c *Client) sectionListing(ctx context.Context, sectionKey int, listing string) ([]*Item, error) {
	path := fmt.Sprintf("/library/sections/%d/%s", sectionKey, listing)
	container, err := c.getContainer(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	items := make([]*Item, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		items = append(items, m.toItem())
	}
	return items, nil
}

// UploadMediaURL uploads art, a poster, or a theme to an item from a remote
// URL.
func (c *Client) UploadMediaURL(ctx context.Context, ratingKey int, kind MediaKind, mediaURL string) error {
	path := fmt.Sprintf("/library/metadata/%d/%s", ratingKey, kind.uploadPath())
	query := url.Values{"url": []string{mediaURL}}
	_, err := c.do(ctx, http.MethodPost, path, query, nil)
	return err
}

// UploadMediaFile uploads art, a poster, or a theme to an item from a local
// file.
func (c *Client) UploadMediaFile(ctx context.Context, ratingKey int, kind MediaKind, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("plex: read upload file: %w", err)
	}
	path := fmt.Sprintf("/library/metadata/%d/%s", ratingKey, kind.uploadPath())
	_, err = c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(data))
	return err
}

// editItem applies field edits to an item through its section, the only
// endpoint that accepts lock changes.
func (c *Client) editItem(ctx context.Context, item *Item, edits url.Values) error {
	searchType, ok := searchTypes[item.Type]
	if !ok {
		return fmt.Errorf("plex: cannot edit item type %q", item.Type)
	}
	edits.Set("type", strconv.Itoa(searchType))
	edits.Set("id", strconv.Itoa(item.RatingKey))
	path := fmt.Sprintf("/library/sections/%d/all", item.SectionID)
	_, err := c.do(ctx, http.MethodPut, path, edits, nil)
	return err
}

// EditSummary replaces an item's summary, leaving the field unlocked so
// future automated updates are not blocked.
func (c *Client) EditSummary(ctx context.Context, item *Item, summary string) error {
	edits := url.Values{}
	edits.Set("summary.value", summary)
	edits.Set("summary.locked", "0")
	return c.editItem(ctx, item, edits)
}

// SetFieldLock sets or clears the lock flag on a field. Plex intermittently
// times out on these edits, so the call is retried a few times before giving
// up.
func (c *Client) SetFieldLock(ctx context.Context, item *Item, field string, lock bool) error {
	edits := url.Values{}
	if lock {
		edits.Set(field+".locked", "1")
	} else {
		edits.Set(field+".locked", "0")
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = c.editItem(ctx, item, edits); err == nil {
			return nil
		}
		log.Printf("[plex] %d: error setting lock on %q (attempt %d): %v", item.RatingKey, field, attempt+1, err)
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// ThemeProvider reports where an item's selected theme came from: "user" for
// locally supplied media, "plex" for server-provided themes, the raw provider
// name otherwise, or "" when the item has no selected theme.
func (c *Client) ThemeProvider(ctx context.Context, item *Item) (string, error) {
	container, err := c.getContainer(ctx, fmt.Sprintf("/library/metadata/%d/themes", item.RatingKey), nil)
	if err != nil {
		return "", err
	}

	var selected *metadataJSON
	for i := range container.MediaContainer.Metadata {
		if container.MediaContainer.Metadata[i].Selected {
			selected = &container.MediaContainer.Metadata[i]
			break
		}
	}
	if selected == nil {
		return "", nil
	}

	providerMap := map[string]string{
		"local":                             "user",
		"com.plexapp.agents.localmedia":     "user",
		"com.plexapp.agents.plexthememusic": "plex",
	}
	if p, ok := providerMap[selected.Provider]; ok {
		return p, nil
	}

	// New agents leave provider empty; server-provided themes are recognized
	// by their rating key prefix instead.
	plexPrefixes := []string{
		"metadata://themes/tv.plex.agents.movies_",
		"metadata://themes/tv.plex.agents.series_",
		"metadata://themes/com.plexapp.agents.plexthememusic_",
	}
	for _, prefix := range plexPrefixes {
		if strings.HasPrefix(selected.RatingKey, prefix) {
			return "plex", nil
		}
	}
	return selected.Provider, nil
}
