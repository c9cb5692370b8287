package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	p := testPuzzle(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := r.Register(p, time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, p.ID, s.GameID())

	got, err := r.Lookup(p.ID, now)
	require.NoError(t, err)
	require.Same(t, s, got)

	_, err = r.Lookup(999, now)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = r.Register(p, time.Hour, now)
	require.ErrorIs(t, err, ErrDuplicateSession)
	require.Equal(t, 1, r.Len())
}

func TestRegistryRetentionWindow(t *testing.T) {
	r := NewRegistry(time.Minute, nil)
	p := testPuzzle(t)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := r.Register(p, time.Hour, start)
	require.NoError(t, err)

	// Expired but inside retention: still resolvable.
	_, err = r.Lookup(p.ID, start.Add(time.Hour+30*time.Second))
	require.NoError(t, err)

	// Past expiry-plus-retention: not-found before eviction even runs.
	cutoff := start.Add(time.Hour + time.Minute + time.Second)
	_, err = r.Lookup(p.ID, cutoff)
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.Equal(t, 1, r.EvictExpired(cutoff))
	require.Equal(t, 0, r.Len())
}

func TestRegistryEvictKeepsLiveSessions(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	p := testPuzzle(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := r.Register(p, time.Hour, now)
	require.NoError(t, err)

	require.Equal(t, 0, r.EvictExpired(now.Add(30*time.Minute)))

	// Expired but inside retention: still queryable, not evicted.
	require.Equal(t, 0, r.EvictExpired(now.Add(90*time.Minute)))
	got, err := r.Lookup(p.ID, now.Add(90*time.Minute))
	require.NoError(t, err)
	require.Same(t, s, got)
}

func TestRegistryTickDrivesExpiry(t *testing.T) {
	sink := &captureSink{}
	r := NewRegistry(time.Hour, sink)
	p := testPuzzle(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := r.Register(p, time.Hour, now)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	_, err = s.Join("alice")
	require.NoError(t, err)

	r.Tick(now.Add(30 * time.Minute))
	require.Empty(t, sink.snaps)

	r.Tick(now.Add(2 * time.Hour))
	require.Len(t, sink.snaps, 1)
	require.True(t, sink.snaps[0].TimedOut)
}
