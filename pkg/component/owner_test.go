package component

import (
	"sync"
	"testing"
)

func TestOwnerBasic(t *testing.T) {
	owner := NewOwner(nil)

	if owner.ID() == 0 {
		t.Error("owner should have non-zero ID")
	}
	if owner.Parent() != nil {
		t.Error("root owner should have nil parent")
	}
	if owner.IsDisposed() {
		t.Error("new owner should not be disposed")
	}
	if owner.IsDirty() {
		t.Error("new owner should not be dirty")
	}
}

func TestOwnerHierarchy(t *testing.T) {
	root := NewOwner(nil)
	child1 := NewOwner(root)
	child2 := NewOwner(root)
	grandchild := NewOwner(child1)

	if child1.Parent() != root || child2.Parent() != root {
		t.Error("children should point at root")
	}
	if grandchild.Parent() != child1 {
		t.Error("grandchild parent should be child1")
	}
	if got := len(root.Children()); got != 2 {
		t.Errorf("expected 2 children, got %d", got)
	}

	child2.Dispose()
	if got := len(root.Children()); got != 1 {
		t.Errorf("disposed child should be removed from its parent, got %d children", got)
	}
}

func TestOwnerDisposeOrder(t *testing.T) {
	root := NewOwner(nil)
	child1 := NewOwner(root)
	child2 := NewOwner(root)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(s string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, s)
		}
	}

	root.OnCleanup(record("root-1"))
	root.OnCleanup(record("root-2"))
	child1.OnCleanup(record("child1"))
	child2.OnCleanup(record("child2"))

	root.Dispose()
	root.Dispose()

	want := []string{"child2", "child1", "root-2", "root-1"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
	if !child1.IsDisposed() || !child2.IsDisposed() {
		t.Error("children should be disposed with their parent")
	}
}

func TestOnCleanupAfterDispose(t *testing.T) {
	owner := NewOwner(nil)
	owner.Dispose()

	ran := false
	owner.OnCleanup(func() { ran = true })
	if !ran {
		t.Error("cleanup registered after dispose should run immediately")
	}
}

func TestHookSlots(t *testing.T) {
	owner := NewOwner(nil)

	type slot struct{ n int }
	var first, second *slot

	owner.Render(func() {
		if owner.UseHookSlot() != nil {
			t.Error("first render should have empty slots")
		}
		first = &slot{1}
		owner.SetHookSlot(first)

		if owner.UseHookSlot() != nil {
			t.Error("second slot should be empty on first render")
		}
		second = &slot{2}
		owner.SetHookSlot(second)
	})

	owner.Render(func() {
		if got := owner.UseHookSlot(); got != first {
			t.Errorf("slot 0 should be stable, got %v", got)
		}
		if got := owner.UseHookSlot(); got != second {
			t.Errorf("slot 1 should be stable, got %v", got)
		}
	})

	if owner.RenderCount() != 2 {
		t.Errorf("expected 2 renders, got %d", owner.RenderCount())
	}
}

func TestMarkDirtySchedulesOnce(t *testing.T) {
	q := NewQueue()
	owner := NewOwner(nil, WithScheduler(q))

	owner.MarkDirty()
	owner.MarkDirty()

	if !owner.IsDirty() {
		t.Error("owner should be dirty")
	}
	if q.Len() != 1 {
		t.Errorf("owner should be scheduled once, got %d", q.Len())
	}
}

func TestMarkDirtyAfterDispose(t *testing.T) {
	q := NewQueue()
	owner := NewOwner(nil, WithScheduler(q))
	owner.Dispose()

	owner.MarkDirty()
	if owner.IsDirty() || q.Len() != 0 {
		t.Error("disposed owner must not be scheduled")
	}
}

func TestQueueFlush(t *testing.T) {
	q := NewQueue()
	renders := 0
	owner := NewOwner(nil, WithScheduler(q))
	owner = withRender(owner, func() { renders++ })

	child := NewOwner(owner)
	childRenders := 0
	child = withRender(child, func() { childRenders++ })

	owner.MarkDirty()
	child.MarkDirty()

	if n := q.Flush(); n != 2 {
		t.Errorf("expected 2 renders, got %d", n)
	}
	if renders != 1 || childRenders != 1 {
		t.Errorf("each owner should render once, got %d and %d", renders, childRenders)
	}
	if owner.IsDirty() || child.IsDirty() {
		t.Error("rendering should clear the dirty flag")
	}
	if q.Flush() != 0 {
		t.Error("second flush should have nothing to do")
	}
}

func TestQueueSkipsDisposed(t *testing.T) {
	q := NewQueue()
	renders := 0
	owner := withRender(NewOwner(nil, WithScheduler(q)), func() { renders++ })

	owner.MarkDirty()
	owner.Dispose()

	if n := q.Flush(); n != 0 || renders != 0 {
		t.Errorf("disposed owner must not render, got %d", renders)
	}
}

func TestDirtyDuringRender(t *testing.T) {
	q := NewQueue()
	var owner *Owner
	renders := 0
	owner = NewOwner(nil, WithScheduler(q), WithRender(func() {
		renders++
		if renders == 1 {
			owner.MarkDirty()
		}
	}))

	owner.MarkDirty()
	q.Flush()
	if !owner.IsDirty() || q.Len() != 1 {
		t.Error("update made during render should schedule another render")
	}
	q.Flush()
	if renders != 2 {
		t.Errorf("expected 2 renders, got %d", renders)
	}
}

func withRender(o *Owner, fn func()) *Owner {
	WithRender(fn)(o)
	return o
}
