package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process. Used when no Redis address is configured and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, ttl time.Duration) (Reservation, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	id := hashKey(key)
	record, ok := s.records[id]
	if !ok || !now.Before(record.ExpiresAt) {
		record = Record{
			Fingerprint: fingerprint,
			Status:      StatusPending,
			ExpiresAt:   now.Add(resolveTTL(ttl)),
		}
		s.records[id] = record
		return Reservation{State: ReservationNew, Record: record}, nil
	}
	return reservationFor(record, fingerprint)
}

func (s *MemoryStore) SaveResponse(_ context.Context, key, fingerprint string, resp Response, ttl time.Duration) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	id := hashKey(key)
	if existing, ok := s.records[id]; ok && existing.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	s.records[id] = Record{
		Fingerprint:    fingerprint,
		Status:         StatusCompleted,
		ResponseStatus: resp.Status,
		ContentType:    resp.ContentType,
		ResponseBody:   append([]byte(nil), resp.Body...),
		ExpiresAt:      now.Add(resolveTTL(ttl)),
	}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, hashKey(key))
	return nil
}
