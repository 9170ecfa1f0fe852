package hub

import (
	"sync"

	"github.com/google/uuid"
)

// Conn is the transport a peer writes on. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const textMessage = 1 // websocket.TextMessage

// Peer is one connected WebSocket client. Writes go through a bounded send
// channel drained by a single write loop; a full buffer drops the peer
// rather than blocking the broadcaster.
type Peer struct {
	id   string
	conn Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// NewPeer wraps a transport. The caller starts the write loop via Run.
func NewPeer(conn Conn) *Peer {
	return &Peer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
}

// ID returns the peer's server-assigned identity.
func (p *Peer) ID() string { return p.id }

// Run drains the send channel onto the transport until the peer closes or a
// write fails.
func (p *Peer) Run() {
	defer p.Close()
	for {
		select {
		case <-p.done:
			return
		case data, ok := <-p.send:
			if !ok {
				return
			}
			if err := p.conn.WriteMessage(textMessage, data); err != nil {
				return
			}
		}
	}
}

// enqueue hands a serialized frame to the write loop. It reports false when
// the peer is gone or its buffer is full.
func (p *Peer) enqueue(data []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

// Close shuts the peer down exactly once and closes the transport.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}
