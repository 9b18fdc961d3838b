package hub

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

// fakeConn is an in-memory Conn. Reads block until Close.
type fakeConn struct {
	mu       sync.Mutex
	written  []Message
	closed   chan struct{}
	once     sync.Once
	gotClose bool

	// Set once the handler owning the conn has returned; any later use
	// counts as a late touch.
	released    atomic.Bool
	lateTouches atomic.Int32
}

func (c *fakeConn) touch() {
	if c.released.Load() {
		c.lateTouches.Add(1)
	}
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.touch()
	c.mu.Lock()
	defer c.mu.Unlock()
	switch messageType {
	case websocket.CloseMessage:
		c.gotClose = true
	case websocket.TextMessage:
		c.written = append(c.written, Message{Data: data})
	}
	return nil
}

func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { c.touch(); return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) Close() error {
	c.touch()
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.written))
	copy(out, c.written)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	a, b := newFakeConn(), newFakeConn()
	go NewClient(h, a).Run()
	go NewClient(h, b).Run()
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON("placement", map[string]float64{"scale": 20.48}); err != nil {
		t.Fatal(err)
	}

	for _, c := range []*fakeConn{a, b} {
		waitFor(t, func() bool { return len(c.messages()) == 1 })
		msgs := c.messages()

		var env struct {
			Type string             `json:"type"`
			Data map[string]float64 `json:"data"`
		}
		if err := json.Unmarshal(msgs[0].Data, &env); err != nil {
			t.Fatal(err)
		}
		if env.Type != "placement" || env.Data["scale"] != 20.48 {
			t.Errorf("envelope = %+v", env)
		}
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	conn := newFakeConn()
	go NewClient(h, conn).Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New("test")
	go h.Run(ctx)
	waitFor(t, h.IsRunning)

	conn := newFakeConn()
	done := make(chan struct{})
	go func() {
		NewClient(h, conn).Run()
		close(done)
	}()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not exit after hub shutdown")
	}
	if h.IsRunning() {
		t.Error("hub still running")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if !conn.gotClose {
		t.Error("client did not receive a close frame")
	}

	// Registering against a stopped hub must not block
	late := newFakeConn()
	late.Close()
	NewClient(h, late).Run()
}

func TestEncode(t *testing.T) {
	msg, err := Encode("state", map[string]bool{"face_visible": false})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(msg.Data), `"type":"state"`) {
		t.Errorf("Data = %s, want a state envelope", msg.Data)
	}

	if _, err := Encode("bad", make(chan int)); err == nil {
		t.Error("expected error for unencodable value")
	}
}

func TestClient_RunWaitsForWritePump(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	for i := 0; i < 20; i++ {
		conn := newFakeConn()
		client := NewClient(h, conn)
		done := make(chan struct{})
		go func() {
			client.Run()
			// The websocket handler returns here and the conn is recycled
			conn.released.Store(true)
			close(done)
		}()
		waitFor(t, func() bool { return h.ClientCount() == 1 })

		conn.Close()
		<-done
		time.Sleep(5 * time.Millisecond)

		if n := conn.lateTouches.Load(); n != 0 {
			t.Fatalf("connection used %d times after Run returned", n)
		}
		waitFor(t, func() bool { return h.ClientCount() == 0 })
	}
}
