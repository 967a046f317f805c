package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-session-client/session"
)

var _ session.Storage = (*Store)(nil)

// Store is an in-memory session.Storage. It does not survive a restart and
// is meant for tests and short-lived processes.
type Store struct {
	mu     sync.RWMutex
	record session.Record
}

func New() *Store {
	return &Store{record: session.Record{}}
}

func (s *Store) Load(_ context.Context) (session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecord(s.record), nil
}

func (s *Store) Save(_ context.Context, record session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Keep a copy so callers cannot modify stored state
	s.record = copyRecord(record)
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = session.Record{}
	return nil
}

func copyRecord(in session.Record) session.Record {
	out := make(session.Record, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
