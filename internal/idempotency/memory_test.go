package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	runStoreLifecycle(t, NewMemoryStore())
}

// runStoreLifecycle walks one key through every reservation state. Each Store
// implementation runs it.
func runStoreLifecycle(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	res, err := store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	require.Equal(t, ReservationNew, res.State)

	res, err = store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	require.Equal(t, ReservationPending, res.State)

	_, err = store.Reserve(ctx, "k1", "other", time.Minute)
	require.ErrorIs(t, err, ErrFingerprintMismatch)

	require.NoError(t, store.SaveResponse(ctx, "k1", "fp", Response{Status: 201, ContentType: "application/json", Body: []byte(`{"ok":true}`)}, time.Minute))

	res, err = store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	require.Equal(t, ReservationCompleted, res.State)
	require.Equal(t, 201, res.Record.ResponseStatus)
	require.JSONEq(t, `{"ok":true}`, string(res.Record.ResponseBody))

	require.NoError(t, store.Release(ctx, "k1"))
	res, err = store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	require.Equal(t, ReservationNew, res.State)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	_, err := store.Reserve(ctx, "k", "fp", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	res, err := store.Reserve(ctx, "k", "different", time.Minute)
	require.NoError(t, err)
	require.Equal(t, ReservationNew, res.State)
}
