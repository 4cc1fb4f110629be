package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/themewire/themewire/internal/plex"
	"github.com/themewire/themewire/internal/themerrdb"
)

// guidDatabases maps a guid scheme to the database name ThemerrDB uses.
var guidDatabases = map[string]string{
	"imdb": "imdb",
	"tmdb": "themoviedb",
	"tvdb": "thetvdb",
}

// Identity locates an item in ThemerrDB.
type Identity struct {
	DatabaseType themerrdb.DatabaseType
	Database     string
	Agent        string
	ID           string
}

// Complete reports whether the identity can be looked up.
func (id Identity) Complete() bool {
	return id.DatabaseType != "" && id.Database != "" && id.ID != ""
}

// resolveIdentity derives an item's ThemerrDB identity from its guids and
// type. Movies prefer themoviedb over imdb. Show imdb/tvdb guids are
// translated to a themoviedb ID first, since ThemerrDB only indexes shows by
// that database. Collections carry no guids and fall back to a title search
// scoped by the owning section's language.
func (p *Pipeline) resolveIdentity(ctx context.Context, item *plex.Item) (Identity, error) {
	var identity Identity

	switch item.Type {
	case "movie":
		identity.DatabaseType = themerrdb.Movies
		if len(item.GUIDs) == 0 {
			break // legacy agents attach no guids
		}
		identity.Agent = plex.NewMovieAgent
		for _, guid := range item.GUIDs {
			scheme, externalID, ok := splitGUID(guid)
			if !ok {
				continue
			}
			switch guidDatabases[scheme] {
			case "imdb":
				identity.Database = "imdb"
				identity.ID = externalID
			case "themoviedb":
				identity.Database = "themoviedb"
				identity.ID = externalID
			}
			if identity.Database == "themoviedb" {
				break
			}
		}

	case "show":
		identity.DatabaseType = themerrdb.TVShows
		if len(item.GUIDs) == 0 {
			break
		}
		identity.Agent = plex.NewSeriesAgent
		for _, guid := range item.GUIDs {
			scheme, externalID, ok := splitGUID(guid)
			if !ok {
				continue
			}
			switch guidDatabases[scheme] {
			case "imdb", "thetvdb":
				tmdbID, err := p.tmdb.FindByExternalID(ctx, externalID, scheme, "tv")
				if err != nil {
					return identity, fmt.Errorf("translate %s guid: %w", scheme, err)
				}
				if tmdbID != 0 {
					identity.Database = "themoviedb"
					identity.ID = strconv.Itoa(tmdbID)
				}
			case "themoviedb":
				identity.Database = "themoviedb"
				identity.ID = externalID
			}
			if identity.Database == "themoviedb" && identity.ID != "" {
				break
			}
		}

	case "collection":
		identity.DatabaseType = themerrdb.MovieCollections
		identity.Database = "themoviedb"

		section, err := p.plex.SectionByID(ctx, item.SectionID)
		if err != nil {
			return Identity{}, fmt.Errorf("look up section %d: %w", item.SectionID, err)
		}
		identity.Agent = section.Agent

		collectionID, err := p.tmdb.SearchCollection(ctx, item.Title, section.Language)
		if err != nil {
			return identity, fmt.Errorf("search collection %q: %w", item.Title, err)
		}
		if collectionID != 0 {
			identity.ID = strconv.Itoa(collectionID)
		}
	}

	return identity, nil
}

func splitGUID(guid string) (scheme, id string, ok bool) {
	parts := strings.SplitN(guid, "://", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
