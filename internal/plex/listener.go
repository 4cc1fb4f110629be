package plex

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"
)

const notificationsPath = "/:/websockets/notifications"

type notification struct {
	NotificationContainer struct {
		Type            string          `json:"type"`
		TimelineEntries []TimelineEntry `json:"TimelineEntry"`
	} `json:"NotificationContainer"`
}

// Listener subscribes to the server's live activity feed and hands timeline
// entries to a callback. Connection drops are retried with backoff until the
// context is canceled.
type Listener struct {
	baseURL    string
	token      string
	onTimeline func(TimelineEntry)
}

func NewListener(baseURL, token string, onTimeline func(TimelineEntry)) *Listener {
	return &Listener{baseURL: baseURL, token: token, onTimeline: onTimeline}
}

func (l *Listener) wsURL() string {
	u := l.baseURL
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + notificationsPath + "?X-Plex-Token=" + l.token
}

// Run blocks, reading notifications until ctx is canceled.
func (l *Listener) Run(ctx context.Context) {
	backoff := time.Second
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("[plex] notification stream dropped: %v, reconnecting in %s", err, backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < time.Minute {
			backoff *= 2
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, l.wsURL(), &websocket.DialOptions{
		HTTPHeader: http.Header{
			"X-Plex-Client-Identifier": []string{clientID},
			"X-Plex-Product":           []string{product},
		},
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Notification payloads can exceed the default read limit during large
	// library scans.
	conn.SetReadLimit(1 << 20)

	log.Println("[plex] listening for server notifications")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var n notification
		if err := json.Unmarshal(data, &n); err != nil {
			log.Printf("[plex] ignoring malformed notification: %v", err)
			continue
		}
		if n.NotificationContainer.Type != "timeline" {
			continue
		}
		for _, entry := range n.NotificationContainer.TimelineEntries {
			l.onTimeline(entry)
		}
	}
}
