package pool

import (
	"context"
	"testing"
	"time"
)

func testTarget() Target {
	return Target{ID: 1, Host: "example.invalid", Port: 22, User: "root", Method: AuthNone}
}

func TestSession_AcquireChannel_DialsOnlyOnceThenReuses(t *testing.T) {
	d := &fakeDialer{}
	cfg := DefaultConfig()
	s := newSession(testTarget(), d, cfg)
	ctx := context.Background()

	lease1, conn1, err := s.acquireChannel(ctx)
	if err != nil {
		t.Fatalf("acquireChannel 1: %v", err)
	}
	conn1.release(lease1)

	_, conn2, err := s.acquireChannel(ctx)
	if err != nil {
		t.Fatalf("acquireChannel 2: %v", err)
	}
	if conn1 != conn2 {
		t.Fatalf("second acquire dialed a new connection instead of reusing the idle one")
	}
	if got := d.dialCount(); got != 1 {
		t.Fatalf("dial count = %d, want 1", got)
	}
}

func TestSession_AcquireChannel_CapacityExhausted(t *testing.T) {
	d := &fakeDialer{}
	cfg := DefaultConfig()
	cfg.MaxSessionsPerTarget = 1
	cfg.MaxChannelsPerSession = 1
	s := newSession(testTarget(), d, cfg)
	ctx := context.Background()

	if _, _, err := s.acquireChannel(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	// One connection, at its channel cap, and no room for a second
	// connection: the session must refuse rather than dial past its cap.
	if _, _, err := s.acquireChannel(ctx); err != ErrCapacityExhausted {
		t.Fatalf("acquireChannel over capacity = %v, want ErrCapacityExhausted", err)
	}
}

func TestSession_AcquireChannel_DialsSecondConnectionWhenFirstIsFull(t *testing.T) {
	d := &fakeDialer{}
	cfg := DefaultConfig()
	cfg.MaxSessionsPerTarget = 2
	cfg.MaxChannelsPerSession = 1
	s := newSession(testTarget(), d, cfg)
	ctx := context.Background()

	_, conn1, err := s.acquireChannel(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	_, conn2, err := s.acquireChannel(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if conn1 == conn2 {
		t.Fatalf("second acquire should have dialed a distinct connection, first is already full")
	}
	if got := d.dialCount(); got != 2 {
		t.Fatalf("dial count = %d, want 2", got)
	}
}

func TestSession_Expire_RemovesFromLiveMovesToGraveyard(t *testing.T) {
	d := &fakeDialer{}
	s := newSession(testTarget(), d, DefaultConfig())
	ctx := context.Background()

	_, conn, err := s.acquireChannel(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok := s.expire(conn.ID); !ok {
		t.Fatalf("expire(%q) = false, want true", conn.ID)
	}
	if !conn.Expired() {
		t.Fatalf("expired connection's Expired() still false")
	}

	infos := s.listConnections()
	if len(infos) != 1 {
		t.Fatalf("listConnections() returned %d entries, want 1 (graveyard still enumerable)", len(infos))
	}
	if !infos[0].Expired {
		t.Fatalf("listed connection should report Expired=true")
	}
}

func TestSession_Reap_ClosesOnlyIdleGraveyardConnections(t *testing.T) {
	d := &fakeDialer{}
	s := newSession(testTarget(), d, DefaultConfig())
	ctx := context.Background()

	ch, conn, err := s.acquireChannel(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	s.expire(conn.ID)
	s.reap()
	if len(s.listConnections()) != 1 {
		t.Fatalf("graveyard connection with an outstanding channel should survive reap()")
	}

	conn.release(ch)
	s.reap()
	if len(s.listConnections()) != 0 {
		t.Fatalf("graveyard connection should be gone from listConnections once idle and reaped")
	}
}

func TestSession_ExpireDisconnected_SweepsHungUpTransports(t *testing.T) {
	d := &fakeDialer{}
	s := newSession(testTarget(), d, DefaultConfig())
	ctx := context.Background()

	_, conn, err := s.acquireChannel(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	d.lastConn().hangup()
	awaitDisconnect(conn.transport)

	s.expireDisconnected()
	if !conn.Expired() {
		t.Fatalf("connection behind a hung-up transport should have been expired by expireDisconnected()")
	}
}

func TestSession_ExpireIdle_SweepsOnlyPastGrace(t *testing.T) {
	d := &fakeDialer{}
	s := newSession(testTarget(), d, DefaultConfig())
	ctx := context.Background()

	ch, conn, err := s.acquireChannel(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	conn.release(ch)

	s.expireIdle(time.Hour)
	if conn.Expired() {
		t.Fatalf("connection idle for a moment should not be expired by a 1h grace period")
	}

	s.expireIdle(0)
	if conn.Expired() {
		t.Fatalf("a zero grace period should disable the sweep entirely")
	}

	s.expireIdle(-1)
	if conn.Expired() {
		t.Fatalf("a negative grace period should disable the sweep entirely")
	}

	// A grace period already in the past relative to idleSince should sweep.
	time.Sleep(time.Millisecond)
	s.expireIdle(time.Millisecond)
	if !conn.Expired() {
		t.Fatalf("connection idle past its grace period should have been expired")
	}
}

func TestSession_AcquireChannel_RefusedAfterClose(t *testing.T) {
	d := &fakeDialer{}
	s := newSession(testTarget(), d, DefaultConfig())
	s.closeAll()

	if _, _, err := s.acquireChannel(context.Background()); err != ErrSessionClosed {
		t.Fatalf("acquireChannel on closed session = %v, want ErrSessionClosed", err)
	}
}
