package registry

import (
	"errors"
	"strconv"
	"testing"

	"pgregory.net/rapid"
)

func TestRegistry_CapacityOverflow(t *testing.T) {
	// Scenario 3 from the spec: capacity 2, issue r1, r2, r3 in order.
	// r1 resolves to Err(Timeout); r2, r3 remain pending.
	r := New(2)

	r1 := make(chan Result, 1)
	r2 := make(chan Result, 1)
	r3 := make(chan Result, 1)

	r.Insert("r1", r1)
	r.Insert("r2", r2)
	r.Insert("r3", r3)

	select {
	case res := <-r1:
		if !errors.Is(res.Err, ErrTimeout) {
			t.Fatalf("r1 = %v, want ErrTimeout", res.Err)
		}
	default:
		t.Fatal("r1 was not resolved")
	}

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if _, ok := r.Remove("r2"); !ok {
		t.Error("r2 should still be pending")
	}
	if _, ok := r.Remove("r3"); !ok {
		t.Error("r3 should still be pending")
	}
}

func TestRegistry_DuplicateInsertEvictsOld(t *testing.T) {
	r := New(10)
	old := make(chan Result, 1)
	r.Insert("seg", old)

	next := make(chan Result, 1)
	r.Insert("seg", next)

	select {
	case res := <-old:
		if !errors.Is(res.Err, ErrTimeout) {
			t.Fatalf("old sink = %v, want ErrTimeout", res.Err)
		}
	default:
		t.Fatal("old sink for duplicate id was not resolved")
	}

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	sink, ok := r.Remove("seg")
	if !ok || sink == nil {
		t.Fatal("expected the replacement sink to still be registered")
	}
}

func TestRegistry_RemoveMissing(t *testing.T) {
	r := New(4)
	if _, ok := r.Remove("nope"); ok {
		t.Fatal("Remove of missing id should report false")
	}
}

func TestRegistry_DrainAll(t *testing.T) {
	r := New(4)
	a := make(chan Result, 1)
	b := make(chan Result, 1)
	r.Insert("a", a)
	r.Insert("b", b)

	sinks := r.DrainAll()
	if len(sinks) != 2 {
		t.Fatalf("DrainAll returned %d sinks, want 2", len(sinks))
	}
	if r.Len() != 0 {
		t.Fatalf("Len() after DrainAll = %d, want 0", r.Len())
	}
}

// TestRegistry_NeverExceedsCapacity is a property test over arbitrary
// sequences of Insert calls: the spec's first invariant in §8 is
// "for any sequence of RequestSegment calls, the registry size never
// exceeds the configured capacity."
func TestRegistry_NeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 8).Draw(rt, "capacity")
		r := New(capacity)

		ops := rapid.SliceOfN(rapid.IntRange(0, 15), 0, 50).Draw(rt, "ids")
		drained := make([]Sink, 0)
		for _, n := range ops {
			id := string(rune('a' + n))
			sink := make(chan Result, 1)
			r.Insert(id, sink)
			if r.Len() > capacity {
				rt.Fatalf("registry size %d exceeds capacity %d", r.Len(), capacity)
			}
		}
		drained = append(drained, r.DrainAll()...)
		_ = drained
	})
}

// TestRegistry_EverySinkResolvedOnce checks the spec's second invariant:
// every reply sink handed to the registry is resolved exactly once,
// across eviction and the final DrainAll.
func TestRegistry_EverySinkResolvedOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 4).Draw(rt, "capacity")
		r := New(capacity)

		n := rapid.IntRange(1, 20).Draw(rt, "n")
		sinks := make([]chan Result, n)
		for i := 0; i < n; i++ {
			sinks[i] = make(chan Result, 1)
			id := strconv.Itoa(rapid.IntRange(0, 100).Draw(rt, "id"))
			r.Insert(id, sinks[i])
		}
		// Every remaining pending sink is resolved by the final drain.
		for _, s := range r.DrainAll() {
			s <- Result{Err: ErrTimeout}
		}

		for _, s := range sinks {
			select {
			case <-s:
			default:
				// A sink with no value means it was neither evicted nor
				// drained: since every inserted id is either evicted by a
				// later insert/overflow or swept by DrainAll, this must
				// not happen.
				rt.Fatal("sink was never resolved")
			}
		}
	})
}
