package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aaronzipp/retroboard/internal/broadcast"
	"github.com/aaronzipp/retroboard/internal/catalog"
	"github.com/aaronzipp/retroboard/internal/models"
	"github.com/aaronzipp/retroboard/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	lookups atomic.Int32
	delay   time.Duration
	err     error
}

func (s *countingSource) Lookup(_ context.Context, sessionID string) (models.RoomConfig, error) {
	s.lookups.Add(1)
	time.Sleep(s.delay)
	if s.err != nil {
		return models.RoomConfig{}, s.err
	}
	return models.RoomConfig{
		SessionID: "ignored",
		Stages:    []models.Stage{{ID: models.StageBrainstorm, Enabled: true}},
	}, nil
}

func TestGetOrCreate_ConcurrentFirstConnectionsShareOneRoom(t *testing.T) {
	src := &countingSource{delay: 20 * time.Millisecond}
	s := NewRoomStore(src, Options{})
	t.Cleanup(s.CloseAll)

	const n = 32
	rooms := make([]*room.Room, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := s.GetOrCreate(context.Background(), "r1")
			assert.NoError(t, err)
			rooms[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range rooms[1:] {
		assert.Same(t, rooms[0], r)
	}
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int32(1), src.lookups.Load())

	r, ok := s.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "r1", r.ID(), "session id comes from the request, not the catalog")
}

type gatedSource struct {
	lookups atomic.Int32
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *gatedSource) Lookup(ctx context.Context, sessionID string) (models.RoomConfig, error) {
	s.lookups.Add(1)
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return models.RoomConfig{SessionID: sessionID}, nil
	case <-ctx.Done():
		return models.RoomConfig{}, ctx.Err()
	}
}

func TestGetOrCreate_FirstCallerCancelDoesNotFailOthers(t *testing.T) {
	src := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	s := NewRoomStore(src, Options{})
	t.Cleanup(s.CloseAll)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.GetOrCreate(first, "r1")
		firstErr <- err
	}()
	<-src.started

	second := make(chan *room.Room, 1)
	go func() {
		r, err := s.GetOrCreate(context.Background(), "r1")
		assert.NoError(t, err)
		second <- r
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(src.release)

	r := <-second
	require.NotNil(t, r)
	assert.Equal(t, "r1", r.ID())
	assert.Equal(t, int32(1), src.lookups.Load())
	assert.Equal(t, 1, s.Len())
}

func TestGetOrCreate_CatalogMiss(t *testing.T) {
	src := &countingSource{err: catalog.ErrSessionNotFound}
	s := NewRoomStore(src, Options{})

	_, err := s.GetOrCreate(context.Background(), "nope")
	assert.True(t, errors.Is(err, catalog.ErrSessionNotFound))
	assert.Zero(t, s.Len())
}

func TestReap_EvictsOnlyIdleRooms(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := NewRoomStore(&countingSource{}, Options{
		IdleTTL: time.Hour,
		Clock:   func() time.Time { return now },
	})
	t.Cleanup(s.CloseAll)

	idle, err := s.GetOrCreate(context.Background(), "idle")
	require.NoError(t, err)
	busy, err := s.GetOrCreate(context.Background(), "busy")
	require.NoError(t, err)
	_, err = busy.Join(context.Background(), "", broadcast.NewPeer("p", 16))
	require.NoError(t, err)

	assert.Zero(t, s.Reap(now.Add(30*time.Minute)))
	assert.Equal(t, 1, s.Reap(now.Add(2*time.Hour)))

	_, ok := s.Get("idle")
	assert.False(t, ok)
	_, ok = s.Get("busy")
	assert.True(t, ok)

	select {
	case <-idle.Done():
	default:
		t.Fatal("evicted room still running")
	}

	again, err := s.GetOrCreate(context.Background(), "idle")
	require.NoError(t, err)
	assert.NotSame(t, idle, again)
}

func TestReap_DisabledWithoutTTL(t *testing.T) {
	s := NewRoomStore(&countingSource{}, Options{})
	t.Cleanup(s.CloseAll)
	_, err := s.GetOrCreate(context.Background(), "r1")
	require.NoError(t, err)

	assert.Zero(t, s.Reap(time.Now().Add(1000*time.Hour)))
	assert.Equal(t, 1, s.Len())
}

func TestDeleteAndCloseAll(t *testing.T) {
	s := NewRoomStore(&countingSource{}, Options{})
	a, err := s.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	b, err := s.GetOrCreate(context.Background(), "b")
	require.NoError(t, err)

	s.Delete("a")
	<-a.Done()
	assert.Equal(t, 1, s.Len())

	s.CloseAll()
	<-b.Done()
	assert.Zero(t, s.Len())
}
