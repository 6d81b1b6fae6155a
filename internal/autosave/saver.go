package autosave

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/roomservice/api/internal/draft"
)

// Status of the manual save indicator.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// DefaultDelay is the quiet period before a background save.
const DefaultDelay = 400 * time.Millisecond

// statusRevert is how long saved/error stays visible before going idle.
const statusRevert = 2 * time.Second

// Pusher sends the full draft to the server. Satisfied by *client.Client.
type Pusher interface {
	SaveProgress(ctx context.Context, d draft.Draft) error
}

// Saver holds the local draft and keeps the server copy in step with it.
// Background saves are best effort: failures are logged and never retried;
// the next edit is the retry.
type Saver struct {
	pusher    Pusher
	debouncer *Debouncer
	timeout   time.Duration
	revert    time.Duration

	mu          sync.Mutex
	current     draft.Draft
	status      Status
	revertTimer *time.Timer
	onStatus    func(Status)
}

// NewSaver creates a Saver that waits delay after the last Update before
// pushing.
func NewSaver(pusher Pusher, delay time.Duration) *Saver {
	s := &Saver{
		pusher:  pusher,
		timeout: 10 * time.Second,
		revert:  statusRevert,
		current: draft.Empty(),
		status:  StatusIdle,
	}
	s.debouncer = NewDebouncer(delay, s.pushBackground)
	return s
}

// OnStatus registers a callback for status changes.
func (s *Saver) OnStatus(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

// Update replaces the local draft and schedules a background save.
func (s *Saver) Update(d draft.Draft) {
	s.mu.Lock()
	s.current = d.Clone()
	s.mu.Unlock()
	s.debouncer.Trigger()
}

// Draft returns a copy of the local draft.
func (s *Saver) Draft() draft.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Status returns the manual save indicator state.
func (s *Saver) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SaveNow pushes the draft immediately, replacing any pending background
// save, and reports the outcome through the status indicator.
func (s *Saver) SaveNow(ctx context.Context) error {
	s.debouncer.Cancel()

	s.setStatus(StatusSaving)
	err := s.pusher.SaveProgress(ctx, s.Draft())
	if err != nil {
		s.setStatus(StatusError)
	} else {
		s.setStatus(StatusSaved)
	}
	s.scheduleRevert()
	return err
}

// Flush sends a pending background save now. Used before submitting.
func (s *Saver) Flush() bool {
	return s.debouncer.Flush()
}

// Close cancels any pending background save.
func (s *Saver) Close() {
	s.debouncer.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revertTimer != nil {
		s.revertTimer.Stop()
	}
}

func (s *Saver) pushBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.pusher.SaveProgress(ctx, s.Draft()); err != nil {
		log.Printf("WARN: autosave failed: %v", err)
	}
}

func (s *Saver) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	cb := s.onStatus
	s.mu.Unlock()
	if cb != nil {
		cb(st)
	}
}

func (s *Saver) scheduleRevert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revertTimer != nil {
		s.revertTimer.Stop()
	}
	s.revertTimer = time.AfterFunc(s.revert, func() { s.setStatus(StatusIdle) })
}
