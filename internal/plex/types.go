package plex

import "github.com/spf13/cast"

// Search type codes used by the Plex API for library items.
const (
	SearchTypeMovie      = 1
	SearchTypeShow       = 2
	SearchTypeCollection = 18
)

// Timeline entry values the update pipeline filters on.
const (
	StateMetadataDone = 5
	LibraryIdentifier = "com.plexapp.plugins.library"
	NewMovieAgent     = "tv.plex.agents.movie"
	NewSeriesAgent    = "tv.plex.agents.series"
)

// searchTypes maps an item type name to its Plex search type code.
var searchTypes = map[string]int{
	"movie":      SearchTypeMovie,
	"show":       SearchTypeShow,
	"collection": SearchTypeCollection,
}

// libTypes is the reverse of searchTypes, used to decode timeline entries.
var libTypes = map[int]string{
	SearchTypeMovie:      "movie",
	SearchTypeShow:       "show",
	SearchTypeCollection: "collection",
}

// MediaKind is a kind of uploadable media. Each kind knows its Plex lock
// field, its upload endpoint, and the applied-state key it is recorded under.
type MediaKind int

const (
	MediaArt MediaKind = iota
	MediaPoster
	MediaTheme
)

func (k MediaKind) String() string {
	switch k {
	case MediaArt:
		return "art"
	case MediaPoster:
		return "poster"
	default:
		return "theme"
	}
}

// LockField is the Plex field name carrying the kind's lock flag.
func (k MediaKind) LockField() string {
	switch k {
	case MediaArt:
		return "art"
	case MediaPoster:
		return "thumb"
	default:
		return "theme"
	}
}

// uploadPath is the URL segment of the kind's upload endpoint.
func (k MediaKind) uploadPath() string {
	switch k {
	case MediaArt:
		return "arts"
	case MediaPoster:
		return "posters"
	default:
		return "themes"
	}
}

// StateKey is the applied-state record key holding the kind's last uploaded
// source identifier.
func (k MediaKind) StateKey() string {
	switch k {
	case MediaArt:
		return "art_url"
	case MediaPoster:
		return "poster_url"
	default:
		return "youtube_theme_url"
	}
}

// Section is a Plex library section.
type Section struct {
	Key      int
	Title    string
	Type     string
	Agent    string
	Language string
}

// Item is a Plex library item (movie, show, or collection).
type Item struct {
	RatingKey int
	Type      string
	Title     string
	Year      int
	Summary   string
	GUID      string
	GUIDs     []string
	SectionID int
	Theme     string

	lockedFields map[string]bool
}

// IsLocked reports whether the given field carries the Plex lock flag,
// meaning a value was set manually and automation should not overwrite it.
func (i *Item) IsLocked(field string) bool {
	return i.lockedFields[field]
}

// HasTheme reports whether the item already has any theme media.
func (i *Item) HasTheme() bool {
	return i.Theme != ""
}

// TimelineEntry is one entry of a timeline notification from the live
// activity feed.
type TimelineEntry struct {
	Identifier string `json:"identifier"`
	State      int    `json:"state"`
	Type       int    `json:"type"`
	ItemID     string `json:"itemID"`
	Title      string `json:"title"`
}

// LibType resolves the entry's numeric type code to an item type name,
// or "" when the code is not one the pipeline handles.
func (e TimelineEntry) LibType() string {
	return libTypes[e.Type]
}

// RatingKey parses the entry's item identifier, returning 0 when absent or
// malformed.
func (e TimelineEntry) RatingKey() int {
	return cast.ToInt(e.ItemID)
}

// Wire structures for the JSON API.

type mediaContainerResponse struct {
	MediaContainer struct {
		Directory []directoryJSON `json:"Directory"`
		Metadata  []metadataJSON  `json:"Metadata"`
	} `json:"MediaContainer"`
}

type directoryJSON struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Agent    string `json:"agent"`
	Language string `json:"language"`
}

type metadataJSON struct {
	RatingKey        string `json:"ratingKey"`
	Type             string `json:"type"`
	Title            string `json:"title"`
	Year             int    `json:"year"`
	Summary          string `json:"summary"`
	GUID             string `json:"guid"`
	LibrarySectionID int    `json:"librarySectionID"`
	Theme            string `json:"theme"`
	Provider         string `json:"provider"`
	Selected         bool   `json:"selected"`
	Guids            []struct {
		ID string `json:"id"`
	} `json:"Guid"`
	Fields []struct {
		Name   string `json:"name"`
		Locked bool   `json:"locked"`
	} `json:"Field"`
}

func (m metadataJSON) toItem() *Item {
	item := &Item{
		RatingKey:    cast.ToInt(m.RatingKey),
		Type:         m.Type,
		Title:        m.Title,
		Year:         m.Year,
		Summary:      m.Summary,
		GUID:         m.GUID,
		SectionID:    m.LibrarySectionID,
		Theme:        m.Theme,
		lockedFields: make(map[string]bool),
	}
	for _, g := range m.Guids {
		item.GUIDs = append(item.GUIDs, g.ID)
	}
	for _, f := range m.Fields {
		if f.Locked {
			item.lockedFields[f.Name] = true
		}
	}
	return item
}

func (d directoryJSON) toSection() Section {
	return Section{
		Key:      cast.ToInt(d.Key),
		Title:    d.Title,
		Type:     d.Type,
		Agent:    d.Agent,
		Language: d.Language,
	}
}
