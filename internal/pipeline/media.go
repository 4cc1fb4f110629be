package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/themewire/themewire/internal/plex"
	"github.com/themewire/themewire/internal/store"
)

// applyMedia drives one (item, media kind) pair through the upload decision:
// skip when the field is locked, skip when the applied-state record already
// matches the current settings hash and source identifier, otherwise upload
// with bounded retry. On success the applied state is recorded and the lock
// flag Plex sets on automated uploads is cleared again. Returns true only
// when an upload actually happened.
func (p *Pipeline) applyMedia(ctx context.Context, item *plex.Item, kind plex.MediaKind, sourceID, mediaURL string) bool {
	if item.IsLocked(kind.LockField()) && !p.cfg.IgnoreLockedFields {
		log.Printf("[pipeline] %d: not overwriting locked %s for %s: %s", item.RatingKey, kind, item.Type, item.Title)
		return false
	}

	settingsHash := p.cfg.SettingsHash()
	record, err := p.store.Load(item.Type, item.RatingKey)
	if err != nil {
		log.Printf("[pipeline] %d: error loading applied state: %v", item.RatingKey, err)
		record = map[string]string{}
	}
	if record[store.KeySettingsHash] == settingsHash && record[kind.StateKey()] == sourceID {
		log.Printf("[pipeline] %d: %s already current for %s: %s", item.RatingKey, kind, item.Type, item.Title)
		return false
	}

	log.Printf("[pipeline] %d: uploading %s for %s: %s", item.RatingKey, kind, item.Type, item.Title)
	if !p.uploadWithRetry(ctx, item, kind, mediaURL) {
		log.Printf("[pipeline] %d: could not upload %s for %s: %s", item.RatingKey, kind, item.Type, item.Title)
		return false
	}

	if err := p.store.Update(item.Type, item.RatingKey, map[string]string{
		store.KeySettingsHash: settingsHash,
		kind.StateKey():       sourceID,
	}); err != nil {
		log.Printf("[pipeline] %d: error recording applied state: %v", item.RatingKey, err)
	}

	// Plex locks a field whenever automation uploads to it; clear the lock so
	// the next pass is not blocked by our own upload.
	if err := p.plex.SetFieldLock(ctx, item, kind.LockField(), false); err != nil {
		log.Printf("[pipeline] %d: error unlocking %s field: %v", item.RatingKey, kind.LockField(), err)
	}
	return true
}

// uploadWithRetry calls the upload endpoint up to UploadRetriesMax+1 times
// with exponential backoff between failures.
func (p *Pipeline) uploadWithRetry(ctx context.Context, item *plex.Item, kind plex.MediaKind, mediaURL string) bool {
	for attempt := 0; attempt <= p.cfg.UploadRetriesMax; attempt++ {
		err := p.plex.UploadMediaURL(ctx, item.RatingKey, kind, mediaURL)
		if err == nil {
			return true
		}
		log.Printf("[pipeline] %d: error uploading %s: %v", item.RatingKey, kind, err)
		if attempt == p.cfg.UploadRetriesMax {
			break
		}

		sleep := time.Duration(1<<uint(attempt)) * p.backoffUnit
		log.Printf("[pipeline] %d: retrying in %s", item.RatingKey, sleep)
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return false
		}
	}
	return false
}
