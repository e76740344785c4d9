package broadcast

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Close codes the server uses when it ends a connection itself
const (
	CloseRoomClosed   = websocket.CloseGoingAway
	CloseSlowConsumer = websocket.CloseTryAgainLater
	CloseSuperseded   = 4001
)

// Peer is the outbound side of one connection: a bounded queue of encoded
// frames filled by the room and drained by the connection's writer
type Peer struct {
	ID string

	queue chan []byte
	done  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	code   int
	reason string
}

// NewPeer creates a peer whose queue holds size frames
func NewPeer(id string, size int) *Peer {
	if size <= 0 {
		size = 1
	}
	return &Peer{
		ID:    id,
		queue: make(chan []byte, size),
		done:  make(chan struct{}),
	}
}

// TrySend queues frame without blocking. It reports false when the queue is
// full or the peer has been kicked.
func (p *Peer) TrySend(frame []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.queue <- frame:
		return true
	default:
		return false
	}
}

// Queue is drained by the writer. It is never closed; watch Done instead.
func (p *Peer) Queue() <-chan []byte { return p.queue }

// Done is closed once the peer is kicked
func (p *Peer) Done() <-chan struct{} { return p.done }

// Kick asks the writer to close the connection with code and reason. Only
// the first call has an effect.
func (p *Peer) Kick(code int, reason string) {
	p.once.Do(func() {
		p.mu.Lock()
		p.code, p.reason = code, reason
		p.mu.Unlock()
		close(p.done)
	})
}

// Kicked reports whether Kick has been called
func (p *Peer) Kicked() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// CloseStatus returns the code and reason passed to Kick
func (p *Peer) CloseStatus() (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code, p.reason
}
