package route

import (
	"context"
	"time"
)

// Node is an element within a fetched page.
type Node interface {
	// Text returns the whitespace-normalized text content.
	Text() string
	Attr(name string) (string, bool)
	Find(selector string) []Node
	// NextSibling returns the first following sibling matching selector.
	NextSibling(selector string) (Node, bool)
}

// PageView is a read-only view over a fetched page.
type PageView interface {
	URL() string
	Title() string
	Find(selector string) []Node
	// FindByMarker returns the first element matching selector whose text
	// contains marker.
	FindByMarker(selector, marker string) (Node, bool)
}

// Session is a navigation context owned by a single worker.
type Session interface {
	Navigate(ctx context.Context, req NavigateRequest) (PageView, error)
	Close() error
}

// SessionFactory opens sessions for workers.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// Publisher pushes record notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RecordSink persists a batch of records to a secondary store.
type RecordSink interface {
	SaveRecords(ctx context.Context, records []Record) error
	Close() error
}

// Clock abstracts time for deterministic notifications.
type Clock interface {
	Now() time.Time
}
