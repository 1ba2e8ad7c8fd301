package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// DefaultTTL is how long a completed response stays replayable.
const DefaultTTL = 24 * time.Hour

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ReservationState is the outcome of reserving a key.
type ReservationState int

const (
	// ReservationNew means the caller owns the key and should process the request.
	ReservationNew ReservationState = iota
	// ReservationCompleted means a stored response should be replayed.
	ReservationCompleted
	// ReservationPending means another request is still processing the key.
	ReservationPending
)

type Reservation struct {
	State  ReservationState
	Record Record
}

// Record is the persisted state of one idempotency key.
type Record struct {
	Fingerprint    string    `json:"fingerprint"`
	Status         Status    `json:"status"`
	ResponseStatus int       `json:"response_status,omitempty"`
	ContentType    string    `json:"content_type,omitempty"`
	ResponseBody   []byte    `json:"response_body,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Response is what gets stored for replay.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Store persists reservations and responses.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp Response, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// ErrFingerprintMismatch is returned when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency: key reserved for a different request")

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func resolveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

func reservationFor(record Record, fingerprint string) (Reservation, error) {
	if record.Fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}
	if record.Status == StatusCompleted {
		return Reservation{State: ReservationCompleted, Record: record}, nil
	}
	return Reservation{State: ReservationPending, Record: record}, nil
}
