package pool

import "testing"

func TestResourcePool_TakeIdleEmpty(t *testing.T) {
	p := newResourcePool[int](2)
	if _, ok := p.takeIdle(); ok {
		t.Fatalf("takeIdle on empty pool returned ok=true")
	}
}

func TestResourcePool_ReserveRespectsMax(t *testing.T) {
	p := newResourcePool[int](2)
	if !p.reserve() {
		t.Fatalf("reserve 1/2 should succeed")
	}
	if !p.reserve() {
		t.Fatalf("reserve 2/2 should succeed")
	}
	if p.reserve() {
		t.Fatalf("reserve 3/2 should fail, pool is at capacity")
	}
}

func TestResourcePool_ReleaseRollsBackReservation(t *testing.T) {
	p := newResourcePool[int](1)
	if !p.reserve() {
		t.Fatalf("reserve should succeed")
	}
	p.release()
	if !p.reserve() {
		t.Fatalf("reserve after release should succeed again")
	}
}

func TestResourcePool_PutThenTakeIdle(t *testing.T) {
	p := newResourcePool[int](1)
	p.reserve()
	p.put(42)
	v, ok := p.takeIdle()
	if !ok || v != 42 {
		t.Fatalf("takeIdle() = %v, %v, want 42, true", v, ok)
	}
	if _, ok := p.takeIdle(); ok {
		t.Fatalf("takeIdle should be empty after draining the one put resource")
	}
}

func TestResourcePool_DropDecrementsTotalWithoutIdle(t *testing.T) {
	p := newResourcePool[int](1)
	p.reserve()
	p.drop()
	idle, total, max := p.snapshot()
	if idle != 0 || total != 0 || max != 1 {
		t.Fatalf("snapshot() = (%d,%d,%d), want (0,0,1)", idle, total, max)
	}
	if !p.reserve() {
		t.Fatalf("reserve should succeed again after drop freed capacity")
	}
}

func TestResourcePool_DropAndReleaseNeverGoNegative(t *testing.T) {
	p := newResourcePool[int](1)
	p.drop()
	p.release()
	_, total, _ := p.snapshot()
	if total != 0 {
		t.Fatalf("total = %d, want 0 (must not go negative)", total)
	}
}
