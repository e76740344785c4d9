package room

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aaronzipp/retroboard/internal/broadcast"
	"github.com/aaronzipp/retroboard/internal/models"
	"github.com/aaronzipp/retroboard/internal/retro"
	"github.com/rs/zerolog"
)

// ErrRoomClosed is returned by commands sent to a room that has shut down
var ErrRoomClosed = errors.New("room closed")

const defaultCommandBuffer = 64

// Options tunes a room
type Options struct {
	StrictStageGate bool
	CommandBuffer   int
	Clock           func() time.Time
	IDGenerator     func() string
	Logger          zerolog.Logger
}

type subscriber struct {
	peer       *broadcast.Peer
	generation uint64
}

// Room runs one retrospective, applying commands on its goroutine in arrival order
type Room struct {
	id    string
	state *retro.State
	now   func() time.Time
	log   zerolog.Logger

	cmds      chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by the room goroutine
	subs     map[string]*subscriber
	stopping bool

	conns     atomic.Int64
	idleSince atomic.Int64
}

// New starts a room for cfg
func New(cfg models.RoomConfig, opts Options) *Room {
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = defaultCommandBuffer
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	stateOpts := []retro.Option{
		retro.WithClock(opts.Clock),
		retro.WithStrictStageGate(opts.StrictStageGate),
	}
	if opts.IDGenerator != nil {
		stateOpts = append(stateOpts, retro.WithIDGenerator(opts.IDGenerator))
	}

	r := &Room{
		id:    cfg.SessionID,
		state: retro.NewState(cfg, stateOpts...),
		now:   opts.Clock,
		log:   opts.Logger.With().Str("module", "room").Str("session", cfg.SessionID).Logger(),
		cmds:  make(chan func(), opts.CommandBuffer),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		subs:  make(map[string]*subscriber),
	}
	r.idleSince.Store(opts.Clock().UnixNano())
	go r.run()
	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) run() {
	defer close(r.done)
	for {
		select {
		case cmd := <-r.cmds:
			cmd()
			if r.stopping {
				r.shutdown()
				return
			}
		case <-r.quit:
			r.shutdown()
			return
		}
	}
}

func (r *Room) shutdown() {
	for _, sub := range r.subs {
		sub.peer.Kick(broadcast.CloseRoomClosed, "room closed")
	}
	r.subs = nil
	r.conns.Store(0)
}

// Close stops the room, closes every connection with 1001 and waits for the goroutine to exit
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.quit) })
	<-r.done
}

func (r *Room) Done() <-chan struct{} { return r.done }

// CloseIfIdle closes the room if nobody has been connected since cutoff,
// dropping commands queued behind the check
func (r *Room) CloseIfIdle(ctx context.Context, cutoff time.Time) (bool, error) {
	closed, err := call(ctx, r, func() bool {
		since, idle := r.IdleSince()
		if len(r.subs) > 0 || !idle || since.After(cutoff) {
			return false
		}
		r.stopping = true
		r.closeOnce.Do(func() { close(r.quit) })
		return true
	})
	if closed {
		<-r.done
	}
	return closed, err
}

// ConnectionCount returns the number of live connections
func (r *Room) ConnectionCount() int { return int(r.conns.Load()) }

// IdleSince reports when the room last dropped to zero connections
func (r *Room) IdleSince() (time.Time, bool) {
	ns := r.idleSince.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

func (r *Room) do(ctx context.Context, fn func()) error {
	select {
	case <-r.quit:
		return ErrRoomClosed
	default:
	}
	select {
	case r.cmds <- fn:
		return nil
	case <-r.quit:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func call[T any](ctx context.Context, r *Room, fn func() T) (T, error) {
	var zero T
	reply := make(chan T, 1)
	if err := r.do(ctx, func() { reply <- fn() }); err != nil {
		return zero, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrRoomClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Snapshot returns a copy of the room state taken between two mutations
func (r *Room) Snapshot(ctx context.Context) (models.Snapshot, error) {
	return call(ctx, r, r.state.Snapshot)
}

func (r *Room) setConnections(n int) {
	r.conns.Store(int64(n))
	if n == 0 {
		r.idleSince.Store(r.now().UnixNano())
	} else {
		r.idleSince.Store(0)
	}
}
