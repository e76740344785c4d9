package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aaronzipp/retroboard/internal/catalog"
	"github.com/aaronzipp/retroboard/internal/metrics"
	"github.com/aaronzipp/retroboard/internal/room"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Options configures a RoomStore
type Options struct {
	// IdleTTL is how long a room may sit without connections before Reap
	// evicts it. Zero disables eviction.
	IdleTTL time.Duration
	// LookupTimeout bounds one catalog lookup, shared by every caller
	// waiting on the same session
	LookupTimeout time.Duration
	Clock         func() time.Time
	Room          room.Options
	Logger        zerolog.Logger
}

const (
	defaultLookupTimeout = 10 * time.Second
	reapTimeout          = 5 * time.Second
)

// RoomStore is the in-memory room registry
type RoomStore struct {
	rooms map[string]*room.Room
	mu    sync.RWMutex

	source  catalog.Source
	opts    Options
	now     func() time.Time
	log     zerolog.Logger
	loading singleflight.Group
}

// NewRoomStore creates a registry that bootstraps rooms from source
func NewRoomStore(source catalog.Source, opts Options) *RoomStore {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}
	if opts.Room.Clock == nil {
		opts.Room.Clock = opts.Clock
	}
	opts.Room.Logger = opts.Logger
	return &RoomStore{
		rooms:  make(map[string]*room.Room),
		source: source,
		opts:   opts,
		now:    opts.Clock,
		log:    opts.Logger.With().Str("module", "store").Logger(),
	}
}

// Get retrieves a live room by session id
func (s *RoomStore) Get(sessionID string) (*room.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[sessionID]
	if !ok || closed(r) {
		return nil, false
	}
	return r, true
}

// GetOrCreate returns the room for sessionID, creating it from the catalog
// on first use. Concurrent first connections share one lookup and one room.
// A caller giving up does not cancel the lookup for the others.
func (s *RoomStore) GetOrCreate(ctx context.Context, sessionID string) (*room.Room, error) {
	if r, ok := s.Get(sessionID); ok {
		return r, nil
	}
	ch := s.loading.DoChan(sessionID, func() (any, error) {
		if r, ok := s.Get(sessionID); ok {
			return r, nil
		}
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.LookupTimeout)
		defer cancel()
		cfg, err := s.source.Lookup(lookupCtx, sessionID)
		if err != nil {
			return nil, err
		}
		cfg.SessionID = sessionID

		s.mu.Lock()
		defer s.mu.Unlock()
		if old, ok := s.rooms[sessionID]; ok {
			if !closed(old) {
				return old, nil
			}
			// closed by eviction but not yet removed
			metrics.RoomClosed()
		}
		r := room.New(cfg, s.opts.Room)
		s.rooms[sessionID] = r
		metrics.RoomOpened()
		s.log.Info().Str("session", sessionID).Str("template", cfg.Template).Msg("room created")
		return r, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*room.Room), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Delete closes and removes a room
func (s *RoomStore) Delete(sessionID string) {
	s.mu.Lock()
	r, ok := s.rooms[sessionID]
	delete(s.rooms, sessionID)
	s.mu.Unlock()
	if ok {
		r.Close()
		metrics.RoomClosed()
	}
}

// Len returns the number of rooms held
func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Reap evicts rooms that have had no connections for the idle TTL and
// returns how many were evicted. The final idle check runs on the room
// goroutine, so a join queued before it keeps the room alive.
func (s *RoomStore) Reap(now time.Time) int {
	if s.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.opts.IdleTTL)
	var candidates []*room.Room
	s.mu.RLock()
	for _, r := range s.rooms {
		since, idle := r.IdleSince()
		if closed(r) || (idle && r.ConnectionCount() == 0 && !since.After(cutoff)) {
			candidates = append(candidates, r)
		}
	}
	s.mu.RUnlock()

	evicted := 0
	for _, r := range candidates {
		if !closed(r) {
			ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
			ok, err := r.CloseIfIdle(ctx, cutoff)
			cancel()
			if err != nil && !errors.Is(err, room.ErrRoomClosed) {
				s.log.Warn().Err(err).Str("session", r.ID()).Msg("idle check failed")
				continue
			}
			if !ok && err == nil {
				continue
			}
		}
		s.mu.Lock()
		current, ok := s.rooms[r.ID()]
		if ok && current == r {
			delete(s.rooms, r.ID())
		}
		s.mu.Unlock()
		if !ok || current != r {
			continue
		}
		evicted++
		metrics.RoomClosed()
		metrics.RoomEvicted()
		s.log.Info().Str("session", r.ID()).Msg("idle room evicted")
	}
	return evicted
}

// StartReaper runs Reap every interval until ctx is done
func (s *RoomStore) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.opts.IdleTTL <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Reap(s.now())
			}
		}
	}()
}

// CloseAll closes every room, used on shutdown
func (s *RoomStore) CloseAll() {
	s.mu.Lock()
	rooms := s.rooms
	s.rooms = make(map[string]*room.Room)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, r := range rooms {
		wg.Add(1)
		go func(r *room.Room) {
			defer wg.Done()
			r.Close()
			metrics.RoomClosed()
		}(r)
	}
	wg.Wait()
}

func closed(r *room.Room) bool {
	select {
	case <-r.Done():
		return true
	default:
		return false
	}
}
