// Package binding connects components to hookstore stores.
//
// UseStore is called from a component's render. On the first render it
// attaches a trigger to the store (under the given selector) and registers a
// cleanup with the host that detaches it on unmount. Later renders reuse the
// same attachment, so a component is attached exactly once per mount.
//
//	func Counter(o *component.Owner) {
//	    count, set, err := binding.UseStore[int](o, reg, hookstore.ByName("counter"), nil)
//	    ...
//	    set(count + 1)
//	}
package binding

import (
	"sync"
	"sync/atomic"

	herrors "github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/hookstore"
)

// Host is the component a binding lives in. *component.Owner implements it.
type Host interface {
	// ID identifies the component instance.
	ID() uint64

	// MarkDirty asks the host to re-render the component.
	MarkDirty()

	// OnCleanup registers fn to run when the component unmounts.
	OnCleanup(fn func())

	// UseHookSlot returns the value stored in the current hook slot, or nil
	// on the first render.
	UseHookSlot() any

	// SetHookSlot stores the value for the slot UseHookSlot returned nil for.
	SetHookSlot(v any)
}

// Updater updates the bound store. Plain stores treat payload as the new
// state; reducer stores dispatch it. A payload the store cannot accept is
// reported as a warning and ignored.
type Updater[T any] func(payload any, done ...func(T))

var bindingIDCounter uint64

// binding is the per-mount state kept in a hook slot. It is the trigger
// attached to the store.
type binding[T any] struct {
	id   uint64
	host Host
	sel  *hookstore.Selector[T]

	mu       sync.Mutex
	store    hookstore.Store[T]
	detach   func()
	state    T
	released bool
}

// ID implements hookstore.Trigger.
func (b *binding[T]) ID() uint64 {
	return b.id
}

// Fire implements hookstore.Trigger. It refreshes the local state from the
// store and asks the host to re-render.
func (b *binding[T]) Fire(any) {
	b.mu.Lock()
	if b.released || b.store == nil {
		b.mu.Unlock()
		return
	}
	// Read the committed state rather than the fired value: a nested update
	// may already have replaced it.
	b.state = b.store.GetState()
	b.mu.Unlock()

	b.host.MarkDirty()
}

// bind points the binding at s, moving the attachment when the registry now
// holds another store under the same name.
func (b *binding[T]) bind(s hookstore.Store[T]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return nil
	}
	if b.store != nil && b.store.Handle() == s.Handle() {
		b.state = s.GetState()
		return nil
	}

	if b.detach != nil {
		b.detach()
		b.detach = nil
	}
	detach, err := s.Attach(b.sel, b)
	if err != nil {
		return err
	}
	b.store = s
	b.detach = detach
	b.state = s.GetState()
	return nil
}

// release detaches the trigger. It runs once, on unmount.
func (b *binding[T]) release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.released = true
	if b.detach != nil {
		b.detach()
		b.detach = nil
	}
}

func (b *binding[T]) current() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *binding[T]) handle() *hookstore.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.store == nil {
		return nil
	}
	return b.store.Handle()
}

// use resolves the store and returns the mount's binding. It must be called
// exactly once per render, at the same position in the hook order.
func use[T any](host Host, reg *hookstore.Registry, id hookstore.Identifier, sel *hookstore.Selector[T]) (*binding[T], hookstore.Store[T], error) {
	if host == nil || reg == nil {
		return nil, nil, herrors.New(herrors.CodeInvalidArgument).
			WithStore(id.Name()).
			WithDetail("UseStore needs a host component and a registry.").
			Wrap(hookstore.ErrInvalidArgument)
	}

	var b *binding[T]
	if slot := host.UseHookSlot(); slot != nil {
		existing, ok := slot.(*binding[T])
		if !ok {
			return nil, nil, herrors.New(herrors.CodeTypeMismatch).
				WithStore(id.Name()).
				WithDetail("The hook slot holds another hook; hooks must run in the same order on every render.").
				Wrap(hookstore.ErrTypeMismatch)
		}
		b = existing
	} else {
		b = &binding[T]{
			id:   atomic.AddUint64(&bindingIDCounter, 1),
			host: host,
			sel:  sel,
		}
		host.SetHookSlot(b)
		host.OnCleanup(b.release)
	}

	s, err := hookstore.Lookup[T](reg, id)
	if err != nil {
		return b, nil, err
	}
	if err := b.bind(s); err != nil {
		return b, nil, err
	}
	return b, s, nil
}

// UseStore binds the component to a store and returns its state and an
// updater. With a non-nil selector the component re-renders only when the
// selected value changes.
func UseStore[T any](host Host, reg *hookstore.Registry, id hookstore.Identifier, sel *hookstore.Selector[T]) (T, Updater[T], error) {
	b, _, err := use(host, reg, id, sel)
	if err != nil {
		var zero T
		return zero, nil, err
	}

	update := func(payload any, done ...func(T)) {
		h := b.handle()
		if h == nil {
			return
		}
		h.Update(payload, untypedDone(done)...)
	}
	return b.current(), update, nil
}

// UseReducer binds the component to a reducer store and returns its state
// and a typed dispatch function.
func UseReducer[T, P any](host Host, reg *hookstore.Registry, id hookstore.Identifier, sel *hookstore.Selector[T]) (T, func(P, ...func(T)), error) {
	var zero T

	b, s, err := use(host, reg, id, sel)
	if err != nil {
		return zero, nil, err
	}
	rs, ok := s.(*hookstore.ReducerStore[T, P])
	if !ok {
		return zero, nil, herrors.New(herrors.CodeTypeMismatch).
			WithStore(s.Name()).
			WithDetail("UseReducer needs a store created with CreateWithReducer and the same payload type.").
			Wrap(hookstore.ErrTypeMismatch)
	}
	return b.current(), rs.Dispatch, nil
}

func untypedDone[T any](done []func(T)) []func(any) {
	if len(done) == 0 {
		return nil
	}
	out := make([]func(any), 0, len(done))
	for _, fn := range done {
		if fn == nil {
			continue
		}
		out = append(out, func(state any) {
			s, _ := state.(T)
			fn(s)
		})
	}
	return out
}
