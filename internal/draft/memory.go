package draft

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/roomservice/api/internal/database"
)

// MemoryBackend keeps drafts in process memory. Used by tests and by the
// server when no database is configured for drafts.
type MemoryBackend struct {
	mu     sync.Mutex
	drafts map[string]database.Draft
	now    func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{drafts: make(map[string]database.Draft), now: time.Now}
}

func (m *MemoryBackend) UpsertDraft(_ context.Context, arg database.UpsertDraftParams) error {
	quantities := make(map[string]string, len(arg.Quantities))
	for k, v := range arg.Quantities {
		quantities[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[arg.SessionKey] = database.Draft{
		SessionKey:    arg.SessionKey,
		CustomerName:  arg.CustomerName,
		CustomerPhone: arg.CustomerPhone,
		RoomNumber:    arg.RoomNumber,
		Quantities:    quantities,
		UpdatedAt:     m.now(),
	}
	return nil
}

func (m *MemoryBackend) GetDraft(_ context.Context, sessionKey string) (database.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[sessionKey]
	if !ok {
		return database.Draft{}, pgx.ErrNoRows
	}
	quantities := make(map[string]string, len(d.Quantities))
	for k, v := range d.Quantities {
		quantities[k] = v
	}
	d.Quantities = quantities
	return d, nil
}

func (m *MemoryBackend) DeleteDraft(_ context.Context, sessionKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionKey)
	return nil
}

func (m *MemoryBackend) DeleteDraftsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, d := range m.drafts {
		if d.UpdatedAt.Before(cutoff) {
			delete(m.drafts, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored drafts.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts)
}
