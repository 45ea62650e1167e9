package component

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Scheduler is told about owners that need a re-render.
type Scheduler interface {
	Schedule(o *Owner)
}

// OwnerOption configures an Owner.
type OwnerOption func(*Owner)

// WithScheduler sets the scheduler notified by MarkDirty. Child owners
// inherit their parent's scheduler.
func WithScheduler(s Scheduler) OwnerOption {
	return func(o *Owner) {
		o.scheduler = s
	}
}

// WithRender sets the function Rerender runs.
func WithRender(fn func()) OwnerOption {
	return func(o *Owner) {
		o.render = fn
	}
}

// Owner represents a mounted component. When an Owner is disposed, its child
// owners are disposed first (last created first), then its cleanups run in
// reverse registration order.
type Owner struct {
	id     uint64
	parent *Owner

	mu       sync.Mutex // guards children and cleanups
	children []*Owner
	cleanups []func()

	disposed atomic.Bool
	dirty    atomic.Bool

	scheduler Scheduler
	render    func()

	// Hook slots give hooks stable state across renders. They are only
	// touched by the goroutine rendering the component.
	hookSlots   []any
	hookSlotIdx int
	renderCount atomic.Int64
}

// NewOwner creates an Owner. A non-nil parent records it as a child.
func NewOwner(parent *Owner, opts ...OwnerOption) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}
	if parent != nil {
		o.scheduler = parent.scheduler
	}
	for _, opt := range opts {
		opt(o)
	}

	if parent != nil {
		parent.addChild(o)
	}
	return o
}

// ID returns the unique identifier for this Owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent Owner, or nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// Children returns a copy of the child owners.
func (o *Owner) Children() []*Owner {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.children)
}

// IsDisposed reports whether Dispose was called.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addChild(child *Owner) {
	o.mu.Lock()
	o.children = append(o.children, child)
	o.mu.Unlock()
}

func (o *Owner) removeChild(child *Owner) {
	o.mu.Lock()
	o.children = slices.DeleteFunc(o.children, func(c *Owner) bool { return c == child })
	o.mu.Unlock()
}

// OnCleanup registers fn to run when the Owner is disposed. On a disposed
// Owner fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}

	o.mu.Lock()
	o.cleanups = append(o.cleanups, fn)
	o.mu.Unlock()
}

// Dispose unmounts the Owner and its children. Calling it again does nothing.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.mu.Lock()
	children, cleanups := o.children, o.cleanups
	o.children, o.cleanups = nil, nil
	o.mu.Unlock()

	for _, child := range slices.Backward(children) {
		child.Dispose()
	}
	for _, fn := range slices.Backward(cleanups) {
		fn()
	}
}

// =============================================================================
// Re-render scheduling
// =============================================================================

// MarkDirty flags the Owner for a re-render and tells the scheduler the first
// time it becomes dirty. It is a no-op on a disposed Owner.
func (o *Owner) MarkDirty() {
	if o.disposed.Load() {
		return
	}
	if o.dirty.Swap(true) {
		return
	}
	if o.scheduler != nil {
		o.scheduler.Schedule(o)
	}
}

// IsDirty reports whether the Owner is waiting for a re-render.
func (o *Owner) IsDirty() bool {
	return o.dirty.Load()
}

// RenderCount returns the number of completed renders.
func (o *Owner) RenderCount() int {
	return int(o.renderCount.Load())
}

// Render runs fn as one render of the component.
func (o *Owner) Render(fn func()) {
	o.StartRender()
	defer o.EndRender()
	fn()
}

// Rerender runs the render function set with WithRender. It reports false
// when the Owner is disposed or has no render function.
func (o *Owner) Rerender() bool {
	if o.disposed.Load() || o.render == nil {
		return false
	}
	o.Render(o.render)
	return true
}

// StartRender begins a render: the hook slot index is reset and the dirty
// flag cleared, so updates made during the render schedule another one.
func (o *Owner) StartRender() {
	o.hookSlotIdx = 0
	o.dirty.Store(false)
}

// EndRender completes a render.
func (o *Owner) EndRender() {
	o.renderCount.Add(1)
}

// =============================================================================
// Hook Slot Storage
// =============================================================================

// UseHookSlot returns the value stored in the current hook slot, or nil on
// the first render. The caller creates the value and stores it with
// SetHookSlot.
//
//	func useThing(o *Owner) *thing {
//	    if slot := o.UseHookSlot(); slot != nil {
//	        return slot.(*thing)
//	    }
//	    t := &thing{}
//	    o.SetHookSlot(t)
//	    return t
//	}
func (o *Owner) UseHookSlot() any {
	idx := o.hookSlotIdx
	o.hookSlotIdx++

	if idx < len(o.hookSlots) {
		return o.hookSlots[idx]
	}
	return nil
}

// SetHookSlot stores a value in the slot UseHookSlot just returned nil for.
func (o *Owner) SetHookSlot(value any) {
	o.hookSlots = append(o.hookSlots, value)
}
