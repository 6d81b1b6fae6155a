package draft

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/roomservice/api/internal/apperr"
	"github.com/roomservice/api/internal/database"
)

// ErrNoSession is returned when an operation is called without a session key.
var ErrNoSession = apperr.New(apperr.ErrValidation, "session key is required")

// Backend persists drafts keyed by session key. GetDraft returns
// pgx.ErrNoRows when nothing is stored.
// Satisfied by *database.Queries and *MemoryBackend.
type Backend interface {
	UpsertDraft(ctx context.Context, arg database.UpsertDraftParams) error
	GetDraft(ctx context.Context, sessionKey string) (database.Draft, error)
	DeleteDraft(ctx context.Context, sessionKey string) error
}

// Purger is implemented by backends that can drop stale drafts in bulk.
type Purger interface {
	DeleteDraftsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the session-keyed draft store. Saves replace the stored draft
// wholesale; concurrent saves for one session resolve as last write wins.
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewStore wraps backend. A ttl of zero keeps drafts forever.
func NewStore(backend Backend, ttl time.Duration) *Store {
	return &Store{backend: backend, ttl: ttl, now: time.Now}
}

// Save replaces the draft for sessionKey. No validation is performed on the
// field values.
func (s *Store) Save(ctx context.Context, sessionKey string, d Draft) error {
	if sessionKey == "" {
		return ErrNoSession
	}
	quantities := make(map[string]string, len(d.Quantities))
	for k, v := range d.Quantities {
		quantities[k] = string(v)
	}
	err := s.backend.UpsertDraft(ctx, database.UpsertDraftParams{
		SessionKey:    sessionKey,
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		RoomNumber:    d.RoomNumber,
		Quantities:    quantities,
	})
	if err != nil {
		return apperr.Storage(fmt.Errorf("save draft: %w", err))
	}
	return nil
}

// Load returns the stored draft, or an empty draft when none exists or the
// stored one has expired.
func (s *Store) Load(ctx context.Context, sessionKey string) (Draft, error) {
	if sessionKey == "" {
		return Draft{}, ErrNoSession
	}
	row, err := s.backend.GetDraft(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Empty(), nil
		}
		return Draft{}, apperr.Storage(fmt.Errorf("load draft: %w", err))
	}
	if s.expired(row.UpdatedAt) {
		if err := s.backend.DeleteDraft(ctx, sessionKey); err != nil {
			log.Printf("WARN: drop expired draft: %v", err)
		}
		return Empty(), nil
	}
	return FromRow(row), nil
}

// Clear removes the draft. Clearing a session without a draft succeeds.
func (s *Store) Clear(ctx context.Context, sessionKey string) error {
	if sessionKey == "" {
		return ErrNoSession
	}
	if err := s.backend.DeleteDraft(ctx, sessionKey); err != nil {
		return apperr.Storage(fmt.Errorf("clear draft: %w", err))
	}
	return nil
}

// Purge deletes drafts idle for longer than the ttl. It is a no-op when the
// backend cannot purge or no ttl is configured.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	p, ok := s.backend.(Purger)
	if !ok || s.ttl <= 0 {
		return 0, nil
	}
	return p.DeleteDraftsBefore(ctx, s.now().Add(-s.ttl))
}

// RunPurger calls Purge every interval until ctx is cancelled.
func (s *Store) RunPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx)
			if err != nil {
				log.Printf("ERROR: purge drafts: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("purged %d expired drafts", n)
			}
		}
	}
}

func (s *Store) expired(updatedAt time.Time) bool {
	return s.ttl > 0 && !updatedAt.IsZero() && s.now().Sub(updatedAt) > s.ttl
}

// FromRow converts a stored row into a Draft.
func FromRow(row database.Draft) Draft {
	d := Draft{
		CustomerName:  row.CustomerName,
		CustomerPhone: row.CustomerPhone,
		RoomNumber:    row.RoomNumber,
		Quantities:    make(map[string]Quantity, len(row.Quantities)),
	}
	for k, v := range row.Quantities {
		d.Quantities[k] = Quantity(v)
	}
	return d
}
