package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/themewire/themewire/internal/config"
	"github.com/themewire/themewire/internal/plex"
	"github.com/themewire/themewire/internal/store"
	"github.com/themewire/themewire/internal/themerrdb"
	"github.com/themewire/themewire/internal/tmdb"
)

// AudioResolver turns a video URL into a playable audio stream URL.
type AudioResolver interface {
	AudioURL(ctx context.Context, videoURL string) (string, error)
}

// Pipeline owns the work queue and the consumer pool that applies theme and
// collection metadata updates. Producers are the timeline listener and the
// scheduled full-library scan; both only enqueue rating keys, the worker
// re-resolves all item state at pull time.
type Pipeline struct {
	cfg    *config.Config
	plex   *plex.Client
	themes *themerrdb.Client
	cache  *themerrdb.Cache
	tmdb   *tmdb.Client
	store  *store.Store
	audio  AudioResolver

	queue *Queue
	wg    sync.WaitGroup

	// Shortened by tests.
	backoffUnit time.Duration
}

func New(cfg *config.Config, plexClient *plex.Client, themes *themerrdb.Client,
	cache *themerrdb.Cache, tmdbClient *tmdb.Client, st *store.Store, audio AudioResolver) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		plex:        plexClient,
		themes:      themes,
		cache:       cache,
		tmdb:        tmdbClient,
		store:       st,
		audio:       audio,
		queue:       NewQueue(),
		backoffUnit: time.Second,
	}
}

// Start launches the worker pool.
func (p *Pipeline) Start(ctx context.Context) {
	workers := p.Workers()
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	log.Printf("[pipeline] started %d workers", workers)
}

// Stop closes the queue and waits for workers to drain.
func (p *Pipeline) Stop() {
	p.queue.Close()
	p.wg.Wait()
}

// Enqueue adds a rating key unless it is already queued or in flight.
func (p *Pipeline) Enqueue(ratingKey int) bool {
	return p.queue.Enqueue(ratingKey)
}

// QueueStats reports pending and in-flight counts for the status endpoint.
func (p *Pipeline) QueueStats() (pending, inFlight int) {
	return p.queue.Len(), p.queue.InFlight()
}

// Workers reports the size of the consumer pool.
func (p *Pipeline) Workers() int {
	if p.cfg.UploadWorkers < 1 {
		return 1
	}
	return p.cfg.UploadWorkers
}

func (p *Pipeline) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		ratingKey, ok := p.queue.Dequeue()
		if !ok {
			return
		}
		p.safeProcess(ctx, ratingKey)
		p.queue.Done(ratingKey)
	}
}

// safeProcess isolates one item's failure from the worker loop: an error is
// logged, a panic is logged with its stack, and the worker moves on.
func (p *Pipeline) safeProcess(ctx context.Context, ratingKey int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[pipeline] panic processing %d: %v\n%s", ratingKey, r, debug.Stack())
		}
	}()
	if err := p.Process(ctx, ratingKey); err != nil {
		log.Printf("[pipeline] %d: %v", ratingKey, err)
	}
}

// HandleTimeline is the event-side producer: it enqueues items whose library
// metadata update just finished.
func (p *Pipeline) HandleTimeline(entry plex.TimelineEntry) {
	libType := entry.LibType()
	supported := (libType == "movie" && p.cfg.MovieSupport) ||
		(libType == "show" && p.cfg.SeriesSupport)
	if !supported || entry.State != plex.StateMetadataDone || entry.Identifier != plex.LibraryIdentifier {
		return
	}
	ratingKey := entry.RatingKey()
	if ratingKey == 0 {
		return
	}
	if p.queue.Enqueue(ratingKey) {
		log.Printf("[pipeline] queued %s %q (%d)", libType, entry.Title, ratingKey)
	}
}

// EnqueueAll is the scheduled producer: it refreshes the existence cache and
// enqueues every item and collection in every supported library section.
func (p *Pipeline) EnqueueAll(ctx context.Context) {
	p.cache.Refresh()

	sections, err := p.plex.Sections(ctx)
	if err != nil {
		log.Printf("[pipeline] scheduled scan: error listing sections: %v", err)
		return
	}

	queued := 0
	for _, section := range sections {
		if !p.sectionEnabled(section) {
			continue
		}

		var items []*plex.Item
		switch section.Type {
		case "movie":
			if p.cfg.MovieSupport {
				sectionItems, err := p.plex.SectionItems(ctx, section.Key)
				if err != nil {
					log.Printf("[pipeline] scheduled scan: error listing section %d: %v", section.Key, err)
					continue
				}
				items = append(items, sectionItems...)
			}
			if p.cfg.CollectionSupport {
				collections, err := p.plex.SectionCollections(ctx, section.Key)
				if err != nil {
					log.Printf("[pipeline] scheduled scan: error listing collections in %d: %v", section.Key, err)
				} else {
					items = append(items, collections...)
				}
			}
		case "show":
			if p.cfg.SeriesSupport {
				sectionItems, err := p.plex.SectionItems(ctx, section.Key)
				if err != nil {
					log.Printf("[pipeline] scheduled scan: error listing section %d: %v", section.Key, err)
					continue
				}
				items = append(items, sectionItems...)
			}
		}

		for _, item := range items {
			if p.queue.Enqueue(item.RatingKey) {
				queued++
			}
		}
	}
	log.Printf("[pipeline] scheduled scan queued %d items", queued)
}

// sectionEnabled reports whether the section's agent is supported and its
// item type is enabled in preferences.
func (p *Pipeline) sectionEnabled(section plex.Section) bool {
	switch section.Agent {
	case plex.NewMovieAgent:
		return p.cfg.MovieSupport
	case plex.NewSeriesAgent:
		return p.cfg.SeriesSupport
	default:
		return false
	}
}

// Process performs one full per-item pass: resolve identity, gate on the
// existence cache, fetch the theme record, then update collection metadata
// and the theme as allowed by locks and preferences.
func (p *Pipeline) Process(ctx context.Context, ratingKey int) error {
	item, err := p.plex.FetchItem(ctx, ratingKey)
	if err != nil {
		return fmt.Errorf("fetch item: %w", err)
	}

	identity, err := p.resolveIdentity(ctx, item)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}
	if !identity.Complete() {
		log.Printf("[pipeline] %d: no usable database identity for %s: %s", ratingKey, item.Type, item.Title)
		return nil
	}

	if !p.cache.Exists(identity.DatabaseType, identity.Database, identity.ID) {
		log.Printf("[pipeline] %d: %s not in ThemerrDB, skipping: %s (%s)", ratingKey, item.Type, item.Title, identity.ID)
		return nil
	}

	record, err := p.themes.Theme(identity.DatabaseType, identity.Database, identity.ID)
	if err != nil {
		if errors.Is(err, themerrdb.ErrNotFound) {
			log.Printf("[pipeline] %d: ThemerrDB record vanished, skipping: %s", ratingKey, item.Title)
			return nil
		}
		return fmt.Errorf("fetch theme record: %w", err)
	}

	if item.Type == "collection" {
		p.updateCollectionMetadata(ctx, item, identity, record)
	}
	p.updateTheme(ctx, item, record)
	return nil
}

// updateCollectionMetadata applies poster, art, and summary from the theme
// record, gated by the collection's agent and the update-policy preference.
func (p *Pipeline) updateCollectionMetadata(ctx context.Context, item *plex.Item, identity Identity, record *themerrdb.ThemeRecord) {
	if identity.Agent != plex.NewMovieAgent || !p.cfg.UpdateCollectionMetadata {
		return
	}

	if record.PosterPath != "" {
		p.applyMedia(ctx, item, plex.MediaPoster, record.PosterPath, p.cfg.TMDBImageURL+record.PosterPath)
	}
	if record.BackdropPath != "" {
		p.applyMedia(ctx, item, plex.MediaArt, record.BackdropPath, p.cfg.TMDBImageURL+record.BackdropPath)
	}

	if record.Overview == "" {
		return
	}
	if item.IsLocked("summary") && !p.cfg.IgnoreLockedFields {
		log.Printf("[pipeline] %d: not overwriting locked summary for collection: %s", item.RatingKey, item.Title)
		return
	}
	if item.Summary == record.Overview {
		return
	}
	log.Printf("[pipeline] %d: updating summary for collection: %s", item.RatingKey, item.Title)
	if err := p.plex.EditSummary(ctx, item, record.Overview); err != nil {
		log.Printf("[pipeline] %d: error updating summary: %v", item.RatingKey, err)
	}
}

// updateTheme resolves the playable audio URL and uploads the theme, unless
// the field is exempt or the applied state already matches.
func (p *Pipeline) updateTheme(ctx context.Context, item *plex.Item, record *themerrdb.ThemeRecord) {
	if item.IsLocked(plex.MediaTheme.LockField()) && !p.cfg.IgnoreLockedFields {
		log.Printf("[pipeline] %d: not overwriting locked theme for %s: %s", item.RatingKey, item.Type, item.Title)
		return
	}

	if !p.cfg.OverwritePlexThemes {
		provider, err := p.plex.ThemeProvider(ctx, item)
		if err != nil {
			log.Printf("[pipeline] %d: error determining theme provider: %v", item.RatingKey, err)
		} else if provider == "plex" {
			log.Printf("[pipeline] %d: not overwriting Plex provided theme for %s: %s", item.RatingKey, item.Type, item.Title)
			return
		}
	}

	if record.YouTubeThemeURL == "" {
		log.Printf("[pipeline] %d: no theme song found for %s (%d)", item.RatingKey, item.Title, item.Year)
		return
	}

	// Check the applied state before extraction so an already satisfied item
	// does not cost a yt-dlp run.
	settingsHash := p.cfg.SettingsHash()
	applied, err := p.store.Load(item.Type, item.RatingKey)
	if err == nil &&
		applied[store.KeySettingsHash] == settingsHash &&
		applied[plex.MediaTheme.StateKey()] == record.YouTubeThemeURL {
		log.Printf("[pipeline] %d: theme already current for %s: %s", item.RatingKey, item.Type, item.Title)
		return
	}

	audioURL, err := p.audio.AudioURL(ctx, record.YouTubeThemeURL)
	if err != nil {
		log.Printf("[pipeline] %d: error resolving audio url: %v", item.RatingKey, err)
		return
	}
	p.applyMedia(ctx, item, plex.MediaTheme, record.YouTubeThemeURL, audioURL)
}
