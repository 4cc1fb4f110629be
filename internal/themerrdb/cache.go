package themerrdb

import (
	"log"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// Cache is an in-memory index of every ID known to ThemerrDB, keyed by
// database type and sub-database. It is rebuilt wholesale on refresh; the
// pipeline consults it before fetching a detail record so items with no
// possible theme never cost a remote call.
type Cache struct {
	client *Client
	ttl    time.Duration

	mu          sync.Mutex
	index       map[DatabaseType]map[string]map[string]struct{}
	lastRefresh time.Time
}

func NewCache(client *Client) *Cache {
	return &Cache{
		client: client,
		ttl:    time.Hour,
		index:  make(map[DatabaseType]map[string]map[string]struct{}),
	}
}

// Refresh rebuilds the ID index for every database type. A refresh already in
// progress makes concurrent callers block until it completes; a refresh
// younger than the validity window is a no-op. One type's fetch failure is
// logged and leaves that type's previous index untouched, it never blocks
// the other types.
func (c *Cache) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastRefresh) < c.ttl {
		log.Println("[themerrdb] cache updated less than an hour ago, skipping")
		return
	}

	log.Println("[themerrdb] updating database cache")

	for dbType, databases := range dbIDFields {
		index, err := c.buildTypeIndex(dbType, databases)
		if err != nil {
			log.Printf("[themerrdb] %s: error retrieving page index: %v", dbType, err)
			continue
		}
		c.index[dbType] = index
		log.Printf("[themerrdb] %s: index updated (%d databases)", dbType, len(index))
	}

	c.lastRefresh = time.Now()
}

func (c *Cache) buildTypeIndex(dbType DatabaseType, databases map[string]string) (map[string]map[string]struct{}, error) {
	pageCount, err := c.client.PageCount(dbType)
	if err != nil {
		return nil, err
	}

	index := make(map[string]map[string]struct{}, len(databases))
	for db := range databases {
		index[db] = make(map[string]struct{})
	}

	for page := 1; page <= pageCount; page++ {
		items, err := c.client.Page(dbType, page)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			for db, field := range databases {
				if raw, ok := item[field]; ok {
					index[db][cast.ToString(raw)] = struct{}{}
				}
			}
		}
	}
	return index, nil
}

// Exists reports whether an item is known to ThemerrDB. An unrecognized
// database type fails closed. A cold cache triggers a synchronous refresh
// before answering.
func (c *Cache) Exists(dbType DatabaseType, database, id string) bool {
	if _, ok := dbIDFields[dbType]; !ok {
		log.Printf("[themerrdb] %q is not a valid database type", dbType)
		return false
	}

	c.mu.Lock()
	_, populated := c.index[dbType]
	c.mu.Unlock()
	if !populated {
		c.Refresh()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	typeIndex, ok := c.index[dbType]
	if !ok {
		return false
	}
	ids, ok := typeIndex[database]
	if !ok {
		return false
	}
	_, found := ids[id]
	return found
}

// Stats describes the cache for the status endpoint.
type Stats struct {
	LastRefresh time.Time      `json:"last_refresh"`
	Counts      map[string]int `json:"counts"`
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[string]int, len(c.index))
	for dbType, typeIndex := range c.index {
		total := 0
		for _, ids := range typeIndex {
			total += len(ids)
		}
		counts[string(dbType)] = total
	}
	return Stats{LastRefresh: c.lastRefresh, Counts: counts}
}
