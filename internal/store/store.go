package store

import (
	"context"
	"errors"
	"time"

	"github.com/joelkehle/macro-onboarding/internal/onboarding"
)

var ErrNotFound = errors.New("not found")

// Record is one stored onboarding conversation.
type Record struct {
	ID        string             `json:"session_id"`
	Session   onboarding.Session `json:"session"`
	Complete  bool               `json:"is_complete"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// SessionStore holds conversations between turns. Callers serialize turns
// per session; implementations only need to be safe for concurrent use
// across sessions.
type SessionStore interface {
	Get(ctx context.Context, id string) (Record, error)
	Put(ctx context.Context, rec Record) error
	Evict(ctx context.Context, id string) error
	Close() error
}

// ProfileSink persists the export of a completed onboarding.
type ProfileSink interface {
	SaveProfile(ctx context.Context, sessionID string, export onboarding.Export) error
	GetProfile(ctx context.Context, sessionID string) (onboarding.Export, error)
}

func stamp(rec *Record, now time.Time) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
}
