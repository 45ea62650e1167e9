package hookstore

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	herrors "github.com/vango-dev/hookstore/internal/errors"
)

type pair struct {
	A int
	B int
}

var (
	selectA = Select(func(p pair) int { return p.A })
	selectB = Select(func(p pair) int { return p.B })
)

func TestSetStateReplaces(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := Create(reg, "s", "a")

	trig := newTestTrigger()
	if _, err := s.Attach(nil, trig); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	s.SetState("b")
	if s.GetState() != "b" {
		t.Errorf("expected state b, got %q", s.GetState())
	}
	if trig.count() != 1 {
		t.Errorf("expected 1 trigger call, got %d", trig.count())
	}
	if trig.last() != "b" {
		t.Errorf("trigger should receive the new state, got %v", trig.last())
	}
}

func TestDispatchRunsReducer(t *testing.T) {
	reg, _, _ := newTestRegistry()

	type call struct{ state, payload int }
	var calls []call
	s, _ := CreateWithReducer(reg, "sum", 10, func(state int, n int) int {
		calls = append(calls, call{state, n})
		return state + n
	})

	s.Dispatch(5)
	s.Dispatch(-3)

	if s.GetState() != 12 {
		t.Errorf("expected state 12, got %d", s.GetState())
	}
	want := []call{{10, 5}, {15, -3}}
	if len(calls) != len(want) {
		t.Fatalf("expected %d reducer calls, got %d", len(want), len(calls))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("reducer call %d: got %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestPrimitiveFastPath(t *testing.T) {
	reg, _, obs := newTestRegistry()
	s, _ := Create(reg, "n", 3)

	trig := newTestTrigger()
	s.Attach(nil, trig)
	sub := &intSubscriber{}
	s.Subscribe(sub)

	var doneWith []int
	s.SetState(3, func(v int) { doneWith = append(doneWith, v) })

	if trig.count() != 0 || sub.calls != 0 {
		t.Errorf("same primitive should notify nobody, got %d triggers and %d subscribers", trig.count(), sub.calls)
	}
	if len(doneWith) != 1 || doneWith[0] != 3 {
		t.Errorf("completion callback should run with the unchanged state, got %v", doneWith)
	}
	if len(obs.results) != 1 || !obs.results[0].FastPath {
		t.Errorf("observer should see one fast-path update, got %+v", obs.results)
	}

	s.SetState(1)
	if trig.count() != 1 || sub.calls != 1 {
		t.Errorf("expected one notification cycle, got %d triggers and %d subscribers", trig.count(), sub.calls)
	}
}

func TestFastPathSkippedForReducerStores(t *testing.T) {
	reg, _, _ := newTestRegistry()
	calls := 0
	s, _ := CreateWithReducer(reg, "r", 3, func(state int, n int) int {
		calls++
		return n
	})

	s.Dispatch(3)
	if calls != 1 {
		t.Errorf("reducer stores always run the reducer, got %d calls", calls)
	}
}

func TestSelectiveNotify(t *testing.T) {
	reg, _, obs := newTestRegistry()
	s, _ := Create(reg, "pair", pair{A: 1, B: 1})

	trigA, trigB, whole := newTestTrigger(), newTestTrigger(), newTestTrigger()
	s.Attach(selectA, trigA)
	s.Attach(selectB, trigB)
	s.Attach(nil, whole)

	s.SetState(pair{A: 2, B: 1})

	if trigA.count() != 1 {
		t.Errorf("A changed: expected 1 call for A's trigger, got %d", trigA.count())
	}
	if trigB.count() != 0 {
		t.Errorf("B unchanged: expected no call for B's trigger, got %d", trigB.count())
	}
	if whole.count() != 1 {
		t.Errorf("whole-state trigger should fire, got %d", whole.count())
	}

	res := obs.results[len(obs.results)-1]
	if res.BucketsNotified != 2 || res.BucketsSkipped != 1 {
		t.Errorf("expected 2 notified and 1 skipped bucket, got %+v", res)
	}
}

func TestSelectorReferenceEquality(t *testing.T) {
	type shop struct {
		Items []string
		Owner string
	}
	selItems := Select(func(s shop) []string { return s.Items })

	reg, _, _ := newTestRegistry()
	items := []string{"a"}
	s, _ := Create(reg, "shop", shop{Items: items, Owner: "x"})

	trig := newTestTrigger()
	s.Attach(selItems, trig)

	// Same slice, other field changed.
	s.SetState(shop{Items: items, Owner: "y"})
	if trig.count() != 0 {
		t.Errorf("same slice should not notify, got %d", trig.count())
	}

	// Equal contents but a new slice.
	s.SetState(shop{Items: []string{"a"}, Owner: "y"})
	if trig.count() != 1 {
		t.Errorf("new slice should notify, got %d", trig.count())
	}
}

func TestSetStateOnReducerStore(t *testing.T) {
	reg, logs, obs := newTestRegistry()
	calls := 0
	s, _ := CreateWithReducer(reg, "r", 1, func(state int, n int) int {
		calls++
		return state + n
	})
	trig := newTestTrigger()
	s.Attach(nil, trig)

	var doneCalled bool
	s.Handle().SetState(100, func(any) { doneCalled = true })

	if s.GetState() != 1 {
		t.Errorf("state must not change, got %d", s.GetState())
	}
	if calls != 0 {
		t.Errorf("reducer must not run, got %d calls", calls)
	}
	if trig.count() != 0 || doneCalled {
		t.Error("misuse must not notify or call back")
	}
	if logs.count("code="+herrors.CodeSetStateOnReducer) != 1 {
		t.Errorf("expected one W001 warning, logs:\n%s", logs)
	}
	if len(obs.misuse) != 1 {
		t.Fatalf("expected one misuse event, got %d", len(obs.misuse))
	}
	var herr *herrors.Error
	if !errors.As(obs.misuse[0], &herr) || !herr.IsWarning() {
		t.Errorf("misuse should be reported as a warning, got %v", obs.misuse[0])
	}
}

func TestDispatchOnStateStore(t *testing.T) {
	reg, logs, _ := newTestRegistry()
	s, _ := Create(reg, "s", 1)

	s.Handle().Dispatch(5)

	if s.GetState() != 1 {
		t.Errorf("state must not change, got %d", s.GetState())
	}
	if logs.count("code="+herrors.CodeDispatchOnState) != 1 {
		t.Errorf("expected one W002 warning, logs:\n%s", logs)
	}
}

func TestHandlePayloadType(t *testing.T) {
	reg, logs, _ := newTestRegistry()
	s, _ := Create(reg, "s", 1)
	r, _ := CreateWithReducer(reg, "r", 0, func(state int, n int) int { return state + n })

	s.Handle().SetState("one")
	r.Handle().Dispatch("two")

	if s.GetState() != 1 || r.GetState() != 0 {
		t.Errorf("wrong payload type must not change state, got %d and %d", s.GetState(), r.GetState())
	}
	if logs.count("code="+herrors.CodePayloadType) != 2 {
		t.Errorf("expected two W004 warnings, logs:\n%s", logs)
	}

	s.Handle().SetState(2)
	r.Handle().Update(3)
	if s.GetState() != 2 || r.GetState() != 3 {
		t.Errorf("well-typed payloads should apply, got %d and %d", s.GetState(), r.GetState())
	}
}

func TestNilPayloadForNilableState(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := Create(reg, "list", []string{"a"})

	s.Handle().SetState(nil)
	if s.GetState() != nil {
		t.Errorf("nil payload should clear a slice store, got %v", s.GetState())
	}
}

func TestNotificationOrder(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := Create(reg, "s", 0)

	var order []string
	trig := newTestTrigger()
	trig.onFire = func(any) {
		order = append(order, "trigger")
		if s.GetState() != 1 {
			t.Errorf("state should be committed before triggers run, got %d", s.GetState())
		}
	}
	s.Attach(nil, trig)
	s.SubscribeFunc(func(int, any) { order = append(order, "subscriber 1") })
	s.SubscribeFunc(func(int, any) { order = append(order, "subscriber 2") })

	s.SetState(1, func(int) { order = append(order, "done") })

	want := []string{"trigger", "subscriber 1", "subscriber 2", "done"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestTriggerPanicIsolated(t *testing.T) {
	reg, logs, obs := newTestRegistry()
	s, _ := Create(reg, "s", 0)

	bad := newTestTrigger()
	bad.onFire = func(any) { panic("boom") }
	good := newTestTrigger()
	s.Attach(nil, bad)
	s.Attach(nil, good)

	sub := &intSubscriber{}
	s.Subscribe(sub)

	s.SetState(1)

	if good.count() != 1 {
		t.Errorf("sibling trigger should still fire, got %d", good.count())
	}
	if sub.calls != 1 {
		t.Errorf("subscriber should still run, got %d", sub.calls)
	}
	if s.GetState() != 1 {
		t.Errorf("state should stay committed, got %d", s.GetState())
	}
	if logs.count("code="+herrors.CodeTriggerFailed) != 1 {
		t.Errorf("expected one H007 log, logs:\n%s", logs)
	}
	if len(obs.failures) != 1 {
		t.Errorf("expected one failure event, got %d", len(obs.failures))
	}
	if res := obs.results[len(obs.results)-1]; res.Failures != 1 || res.Triggers != 2 {
		t.Errorf("unexpected update result %+v", res)
	}
}

func TestSubscriberPanicIsolated(t *testing.T) {
	reg, logs, _ := newTestRegistry()
	s, _ := Create(reg, "s", 0)

	s.SubscribeFunc(func(int, any) { panic(errors.New("broken")) })
	sub := &intSubscriber{}
	s.Subscribe(sub)

	var done bool
	s.SetState(1, func(int) { done = true })

	if sub.calls != 1 || !done {
		t.Error("a panicking subscriber must not stop the others or the callback")
	}
	if logs.count("code="+herrors.CodeListenerFailed) != 1 {
		t.Errorf("expected one H008 log, logs:\n%s", logs)
	}
}

func TestSelectorPanicCountsAsChanged(t *testing.T) {
	reg, logs, _ := newTestRegistry()
	s, _ := Create(reg, "p", &pair{})

	sel := Select(func(p *pair) int { return p.A })
	trig := newTestTrigger()
	s.Attach(sel, trig)

	s.SetState(nil)

	if trig.count() != 1 {
		t.Errorf("a failing selector should notify its bucket, got %d", trig.count())
	}
	if logs.count("code="+herrors.CodeTriggerFailed) != 1 {
		t.Errorf("expected the selector failure to be logged, logs:\n%s", logs)
	}
}

func TestReducerPanicPropagates(t *testing.T) {
	reg, _, obs := newTestRegistry()
	s, _ := CreateWithReducer(reg, "r", 0, func(state int, n int) int {
		if n < 0 {
			panic("negative")
		}
		return n
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Error("reducer panic should reach the caller")
			}
		}()
		s.Dispatch(-1)
	}()

	if len(obs.results) != 1 || !obs.results[0].Panicked {
		t.Errorf("observer should see one panicked update, got %+v", obs.results)
	}

	// The update lock must have been released.
	s.Dispatch(4)
	if s.GetState() != 4 {
		t.Errorf("expected 4 after a failed dispatch, got %d", s.GetState())
	}
}

func TestNestedUpdate(t *testing.T) {
	reg, _, obs := newTestRegistry()
	a, _ := Create(reg, "a", 0)
	b, _ := Create(reg, "b", 0)

	var order []string
	trig := newTestTrigger()
	trig.onFire = func(state any) {
		b.SetState(state.(int) * 10)
	}
	a.Attach(nil, trig)
	a.SubscribeFunc(func(int, any) { order = append(order, "a") })
	b.SubscribeFunc(func(int, any) { order = append(order, "b") })

	a.SetState(2)

	if b.GetState() != 20 {
		t.Errorf("nested update should apply, got %d", b.GetState())
	}
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("nested update should finish before the outer loop continues, got %v", order)
	}
	if len(obs.started) != 2 || obs.started[1].Depth != 2 || obs.started[1].Store != "b" {
		t.Errorf("expected the nested update at depth 2, got %+v", obs.started)
	}
}

func TestUpdateDepthExceeded(t *testing.T) {
	reg, _, obs := newTestRegistry(WithMaxUpdateDepth(8))
	s, _ := Create(reg, "loop", 0)

	cancel, _ := s.SubscribeFunc(func(state int, _ any) {
		s.SetState(state + 1)
	})

	s.SetState(1)

	if s.GetState() != 8 {
		t.Errorf("expected the loop to stop at depth 8, got state %d", s.GetState())
	}
	if len(obs.failures) != 1 {
		t.Fatalf("expected one reported failure, got %d", len(obs.failures))
	}
	if !errors.Is(obs.failures[0], ErrUpdateDepthExceeded) {
		t.Errorf("failure should wrap ErrUpdateDepthExceeded, got %v", obs.failures[0])
	}

	// The registry recovers once the outermost update returns.
	cancel()
	s.SetState(100)
	if s.GetState() != 100 {
		t.Errorf("expected 100, got %d", s.GetState())
	}
}

func TestUnlimitedUpdateDepth(t *testing.T) {
	reg, _, obs := newTestRegistry(WithMaxUpdateDepth(0))
	s, _ := Create(reg, "deep", 0)

	s.SubscribeFunc(func(state int, _ any) {
		if state < 200 {
			s.SetState(state + 1)
		}
	})
	s.SetState(1)

	if s.GetState() != 200 {
		t.Errorf("expected 200, got %d", s.GetState())
	}
	if len(obs.failures) != 0 {
		t.Errorf("unlimited depth should not fail, got %v", obs.failures)
	}
}

func TestRegistrationDuringNotification(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := Create(reg, "s", 0)

	late := &intSubscriber{}
	s.SubscribeFunc(func(int, any) {
		s.Subscribe(late)
	})

	s.SetState(1)
	if late.calls != 0 {
		t.Errorf("subscriber added during notification should wait for the next update, got %d", late.calls)
	}

	s.SetState(2)
	if late.calls != 1 || late.last != 2 {
		t.Errorf("expected late subscriber to see 2, got %d calls with %d", late.calls, late.last)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := CreateWithReducer(reg, "count", 0, func(state int, n int) int { return state + n })

	var (
		mu      sync.Mutex
		seen    = map[int]bool{}
		active  int32
		overlap atomic.Bool
	)
	s.SubscribeFunc(func(state int, _ any) {
		if atomic.AddInt32(&active, 1) > 1 {
			overlap.Store(true)
		}
		mu.Lock()
		seen[state] = true
		mu.Unlock()
		atomic.AddInt32(&active, -1)
	})

	const workers, perWorker = 8, 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				s.Dispatch(1)
			}
		}()
	}
	wg.Wait()

	if s.GetState() != workers*perWorker {
		t.Errorf("expected %d, got %d", workers*perWorker, s.GetState())
	}
	if len(seen) != workers*perWorker {
		t.Errorf("every update should notify with a distinct state, got %d", len(seen))
	}
	if overlap.Load() {
		t.Error("notifications overlapped")
	}
}

func TestDetachTrigger(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := Create(reg, "pair", pair{})

	whole, partial := newTestTrigger(), newTestTrigger()
	detachWhole, _ := s.Attach(nil, whole)
	detachPartial, _ := s.Attach(selectA, partial)

	if got := s.c.bucketCount(); got != 2 {
		t.Fatalf("expected 2 buckets, got %d", got)
	}

	detachWhole()
	detachPartial()
	detachPartial()

	s.SetState(pair{A: 1})
	if whole.count() != 0 || partial.count() != 0 {
		t.Error("detached triggers must not fire")
	}
	if got := s.c.bucketCount(); got != 1 {
		t.Errorf("emptied selector bucket should be removed and the default kept, got %d buckets", got)
	}
	if s.Handle().TriggerCount() != 0 {
		t.Errorf("expected no triggers, got %d", s.Handle().TriggerCount())
	}
}

func TestAttachIdempotent(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := Create(reg, "s", 0)

	trig := newTestTrigger()
	s.Attach(nil, trig)
	s.Attach(nil, trig)

	s.SetState(1)
	if trig.count() != 1 {
		t.Errorf("trigger attached twice should fire once, got %d", trig.count())
	}

	if _, err := s.Attach(nil, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil trigger: expected ErrInvalidArgument, got %v", err)
	}
}

func TestRepeatedAttachDetachIsNoop(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := Create(reg, "s", 0)

	trig := newTestTrigger()
	first, _ := s.Attach(nil, trig)
	repeat, _ := s.Attach(nil, trig)

	repeat()
	s.SetState(1)
	if trig.count() != 1 {
		t.Fatalf("repeated detach removed the first registration, fired %d times", trig.count())
	}

	first()
	again, _ := s.Attach(nil, trig)
	repeat()
	s.SetState(2)
	if trig.count() != 2 {
		t.Errorf("stale detach removed a newer registration, fired %d times", trig.count())
	}

	again()
	s.SetState(3)
	if trig.count() != 2 {
		t.Errorf("detached trigger fired, count %d", trig.count())
	}
}

func TestDetachDuringNotification(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := Create(reg, "s", 0)

	second := newTestTrigger()
	var detachSecond func()
	first := newTestTrigger()
	first.onFire = func(any) { detachSecond() }

	s.Attach(nil, first)
	detachSecond, _ = s.Attach(nil, second)

	s.SetState(1)
	if second.count() != 1 {
		t.Errorf("snapshot should still include the detached trigger for this update, got %d", second.count())
	}

	s.SetState(2)
	if second.count() != 1 {
		t.Errorf("detached trigger must not fire on the next update, got %d", second.count())
	}
}
