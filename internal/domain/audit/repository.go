package audit

import "context"

// Repository persists audit entries
type Repository interface {
	// Append stores the entry and drops everything older than the newest
	// retain entries.
	Append(ctx context.Context, entry *Entry, retain int) error
	// FindRecent returns up to limit entries, newest first
	FindRecent(ctx context.Context, limit int) ([]*Entry, error)
	Count(ctx context.Context) (int64, error)
}
