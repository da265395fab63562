package authdb

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecordSecurityEvent appends one entry to the account's audit log. The id
// and timestamp are filled in when absent.
func (db *DB) RecordSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return db.store.CreateSecurityEvent(ctx, event)
}

// SecurityEvents returns the account's audit log, oldest first. The query
// limit is clamped to the configured maximum; zero means the default.
func (db *DB) SecurityEvents(ctx context.Context, query SecurityEventQuery) ([]*SecurityEvent, error) {
	limit := query.Limit
	if limit <= 0 || limit > db.cfg.SecurityEventsLimit {
		limit = db.cfg.SecurityEventsLimit
	}
	return db.store.SecurityEvents(ctx, query.UID, limit)
}
