package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeConn records frames written to it.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write on closed conn")
	}
	f.frames = append(f.frames, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) types(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, data := range f.frames {
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		typ, _ := msg["type"].(string)
		out = append(out, typ)
	}
	return out
}

func (f *fakeConn) waitFrames(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		have := len(f.frames)
		f.mu.Unlock()
		if have >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames", n)
}

func newTestPeer() (*Peer, *fakeConn) {
	conn := &fakeConn{}
	p := NewPeer(conn)
	go p.Run()
	return p, conn
}

func TestBusAttachSendsInitialFramesInOrder(t *testing.T) {
	b := NewBus(nil)
	p, conn := newTestPeer()
	defer b.Detach(p)

	b.Attach(p,
		map[string]any{"type": "initial_elements"},
		map[string]any{"type": "sync_status"},
		map[string]any{"type": "canvas_sync"},
	)

	conn.waitFrames(t, 3)
	got := conn.types(t)
	want := []string{"initial_elements", "sync_status", "canvas_sync"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("initial frames = %v, want %v", got, want)
		}
	}
	if b.Clients() != 1 {
		t.Errorf("clients = %d, want 1", b.Clients())
	}
}

func TestBusEmitExceptExcludesSender(t *testing.T) {
	b := NewBus(nil)
	p1, c1 := newTestPeer()
	p2, c2 := newTestPeer()
	defer b.Detach(p1)
	defer b.Detach(p2)
	b.Attach(p1)
	b.Attach(p2)

	b.EmitExcept(p1, map[string]any{"type": "element_created"})

	c2.waitFrames(t, 1)
	time.Sleep(20 * time.Millisecond)
	if n := len(c1.types(t)); n != 0 {
		t.Errorf("sender received its own frame (%d frames)", n)
	}
	if got := c2.types(t); len(got) != 1 || got[0] != "element_created" {
		t.Errorf("other peer frames = %v", got)
	}
}

func TestBusDropsFailingPeer(t *testing.T) {
	b := NewBus(nil)
	good, goodConn := newTestPeer()

	// A closed peer's enqueue fails; the bus must drop it and move on.
	bad := NewPeer(&fakeConn{})
	bad.Close()

	b.Attach(good)
	b.Attach(bad)

	b.Emit(map[string]any{"type": "canvas_sync"})
	goodConn.waitFrames(t, 1)

	deadline := time.Now().Add(time.Second)
	for b.Clients() > 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if b.Clients() != 1 {
		t.Errorf("dead peer not dropped: clients = %d", b.Clients())
	}
}

func TestBusDetachIsIdempotent(t *testing.T) {
	b := NewBus(nil)
	p, _ := newTestPeer()
	b.Attach(p)
	b.Detach(p)
	b.Detach(p)
	if b.Clients() != 0 {
		t.Errorf("clients = %d, want 0", b.Clients())
	}
}
