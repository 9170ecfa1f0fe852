package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Bus maintains the set of connected WebSocket peers and fans serialized
// frames out to them. A peer whose send fails or whose buffer overflows is
// dropped silently; the broadcaster never blocks on a slow peer.
type Bus struct {
	mu     sync.Mutex
	peers  map[*Peer]struct{}
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		peers:  make(map[*Peer]struct{}),
		logger: logger.With("component", "bus"),
	}
}

// Attach adds the peer and immediately sends it the given initial frames in
// order.
func (b *Bus) Attach(p *Peer, initial ...map[string]any) {
	b.mu.Lock()
	b.peers[p] = struct{}{}
	n := len(b.peers)
	b.mu.Unlock()
	b.logger.Info("peer attached", "peer", p.ID(), "clients", n)

	for _, msg := range initial {
		data, err := json.Marshal(msg)
		if err != nil {
			b.logger.Warn("drop unserializable initial frame", "error", err)
			continue
		}
		if !p.enqueue(data) {
			b.Detach(p)
			return
		}
	}
}

// Detach removes the peer and closes it.
func (b *Bus) Detach(p *Peer) {
	b.mu.Lock()
	_, present := b.peers[p]
	delete(b.peers, p)
	n := len(b.peers)
	b.mu.Unlock()
	if present {
		b.logger.Info("peer detached", "peer", p.ID(), "clients", n)
	}
	p.Close()
}

// Emit serializes the frame once and sends it to every peer.
func (b *Bus) Emit(msg map[string]any) {
	b.EmitExcept(nil, msg)
}

// EmitExcept serializes the frame once and sends it to every peer except the
// origin. origin is the *Peer handle of the sender; identity comparison on
// the handle breaks the echo loop.
func (b *Bus) EmitExcept(origin any, msg map[string]any) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Warn("drop unserializable frame", "error", err)
		return
	}
	exclude, _ := origin.(*Peer)

	b.mu.Lock()
	targets := make([]*Peer, 0, len(b.peers))
	for p := range b.peers {
		if p == exclude {
			continue
		}
		targets = append(targets, p)
	}
	b.mu.Unlock()

	for _, p := range targets {
		if !p.enqueue(data) {
			b.Detach(p)
		}
	}
}

// Clients returns the peer cardinality.
func (b *Bus) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.peers)
}
