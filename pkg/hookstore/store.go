package hookstore

import (
	"reflect"
	"sync"

	herrors "github.com/vango-dev/hookstore/internal/errors"
)

// Trigger is a re-render hook registered by a binding adapter. Membership in
// a bucket is deduplicated by ID.
type Trigger interface {
	// ID returns a unique identifier for the trigger.
	ID() uint64

	// Fire notifies the trigger that the value it watches changed.
	Fire(state any)
}

// Reducer computes the next state from the current state and a payload.
type Reducer[T, P any] func(state T, payload P) T

// Named is anything that carries a store name.
type Named interface {
	Name() string
}

// Store is the capability shared by both store variants.
type Store[T any] interface {
	Named

	// UsesReducer reports whether updates go through Dispatch.
	UsesReducer() bool

	// GetState returns the committed state.
	GetState() T

	// Subscribe registers a subscriber called after every update.
	Subscribe(sub Subscriber[T]) (cancel func(), err error)

	// SubscribeFunc registers fn as a new subscriber.
	SubscribeFunc(fn func(state T, payload any)) (cancel func(), err error)

	// Attach registers t under sel (nil means the whole state). Attaching a
	// trigger that is already registered under sel returns a no-op detach.
	Attach(sel *Selector[T], t Trigger) (detach func(), err error)

	// Handle returns the untyped handle of the store.
	Handle() *Handle
}

// bucket groups the triggers attached under one selector.
type bucket struct {
	key      any // *Selector[T]; nil for the whole-state bucket
	derive   func(any) any
	triggers []Trigger
}

// listener is one side-channel subscription.
type listener struct {
	key any // subscriber identity; nil never matches
	fn  func(state, payload any)
}

// core is the type-erased store shared by the typed variants and Handle.
type core struct {
	reg         *Registry
	name        string
	usesReducer bool

	// reducer is the sole producer of new states.
	reducer func(state, payload any) any

	// accepts converts an untyped payload for the reducer.
	accepts func(payload any) (any, bool)

	stateType   reflect.Type
	payloadType reflect.Type

	// public is the typed variant returned by Create.
	public any

	mu        sync.RWMutex
	state     any
	buckets   []*bucket
	listeners []*listener
}

func newCore(reg *Registry, name string, initial any, usesReducer bool) *core {
	return &core{
		reg:         reg,
		name:        name,
		usesReducer: usesReducer,
		state:       initial,
		buckets: []*bucket{{
			key:    nil,
			derive: identity,
		}},
	}
}

// snapshot returns the committed state.
func (c *core) snapshot() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// attach adds t to the bucket keyed by key, creating the bucket if needed.
func (c *core) attach(key any, derive func(any) any, t Trigger) (func(), error) {
	if t == nil {
		return nil, newError(herrors.CodeInvalidArgument, c.name, ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.findBucket(key)
	if b == nil {
		b = &bucket{key: key, derive: derive}
		c.buckets = append(c.buckets, b)
	}

	// The first attach owns the registration; a repeat must not be able to
	// remove it.
	if containsTrigger(b.triggers, t.ID()) {
		return func() {}, nil
	}
	b.triggers = append(b.triggers, t)

	var once sync.Once
	return func() {
		once.Do(func() { c.detach(key, t.ID()) })
	}, nil
}

// detach removes the trigger from exactly the bucket it was added to. An
// emptied selector bucket is dropped; the whole-state bucket always stays.
func (c *core) detach(key any, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, b := range c.buckets {
		if b.key != key {
			continue
		}
		for j, t := range b.triggers {
			if t.ID() == id {
				b.triggers = append(b.triggers[:j:j], b.triggers[j+1:]...)
				break
			}
		}
		if len(b.triggers) == 0 && b.key != nil {
			c.buckets = append(c.buckets[:i:i], c.buckets[i+1:]...)
		}
		return
	}
}

func (c *core) findBucket(key any) *bucket {
	for _, b := range c.buckets {
		if b.key == key {
			return b
		}
	}
	return nil
}

// bucketCount returns the number of derivation buckets, the whole-state
// bucket included.
func (c *core) bucketCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.buckets)
}

func containsTrigger(ts []Trigger, id uint64) bool {
	for _, t := range ts {
		if t.ID() == id {
			return true
		}
	}
	return false
}

// selectorKey maps a selector to its bucket key and derivation.
func selectorKey[T any](sel *Selector[T]) (any, func(any) any) {
	if sel == nil {
		return nil, identity
	}
	return sel, func(v any) any { return sel.derive(as[T](v)) }
}

// =============================================================================
// Handle
// =============================================================================

// Handle is the untyped view of a store, as returned by Registry.Get. It
// exposes both update entry points; calling the one that does not match the
// store's variant logs a warning and changes nothing.
type Handle struct {
	c *core
}

// Name returns the store name.
func (h *Handle) Name() string {
	return h.c.name
}

// UsesReducer reports whether the store was created with a reducer.
func (h *Handle) UsesReducer() bool {
	return h.c.usesReducer
}

// GetState returns the committed state.
func (h *Handle) GetState() any {
	return h.c.snapshot()
}

// SetState replaces the state of a store without reducer.
func (h *Handle) SetState(value any, done ...func(any)) {
	if h.c.usesReducer {
		h.c.reg.warn(herrors.CodeSetStateOnReducer, h.c.name)
		return
	}
	h.c.updateUntyped(OpSetState, value, done)
}

// Dispatch sends a payload to the reducer of a reducer store.
func (h *Handle) Dispatch(payload any, done ...func(any)) {
	if !h.c.usesReducer {
		h.c.reg.warn(herrors.CodeDispatchOnState, h.c.name)
		return
	}
	h.c.updateUntyped(OpDispatch, payload, done)
}

// Update routes payload to SetState or Dispatch depending on the variant.
// Binding adapters use it as the generic updater.
func (h *Handle) Update(payload any, done ...func(any)) {
	if h.c.usesReducer {
		h.Dispatch(payload, done...)
		return
	}
	h.SetState(payload, done...)
}

// Subscribe registers a subscriber called with (state, payload).
func (h *Handle) Subscribe(sub Subscriber[any]) (func(), error) {
	if sub == nil {
		return nil, newError(herrors.CodeInvalidArgument, h.c.name, ErrInvalidArgument)
	}
	return h.c.subscribe(sub, sub.OnUpdate), nil
}

// SubscribeFunc registers fn as a new subscriber.
func (h *Handle) SubscribeFunc(fn func(state, payload any)) (func(), error) {
	if fn == nil {
		return nil, newError(herrors.CodeInvalidArgument, h.c.name, ErrInvalidArgument)
	}
	return h.c.subscribe(nil, fn), nil
}

// WatchFunc calls init with the committed state and registers fn as a
// subscriber, both under the registry's update lock, so fn sees every update
// committed after the state handed to init. init may be nil.
func (h *Handle) WatchFunc(fn func(state, payload any), init func(state any)) (func(), error) {
	if fn == nil {
		return nil, newError(herrors.CodeInvalidArgument, h.c.name, ErrInvalidArgument)
	}

	lock := h.c.reg.lock
	lock.acquire()
	defer lock.release()

	if init != nil {
		init(h.c.snapshot())
	}
	return h.c.subscribe(nil, fn), nil
}

// StateType returns the Go type of the state.
func (h *Handle) StateType() reflect.Type {
	return h.c.stateType
}

// PayloadType returns the type Update accepts: the state type for plain
// stores, the payload type for reducer stores.
func (h *Handle) PayloadType() reflect.Type {
	return h.c.payloadType
}

// SubscriberCount returns the number of side-channel subscribers.
func (h *Handle) SubscriberCount() int {
	h.c.mu.RLock()
	defer h.c.mu.RUnlock()
	return len(h.c.listeners)
}

// TriggerCount returns the number of attached triggers across all buckets.
func (h *Handle) TriggerCount() int {
	h.c.mu.RLock()
	defer h.c.mu.RUnlock()
	n := 0
	for _, b := range h.c.buckets {
		n += len(b.triggers)
	}
	return n
}

func (c *core) updateUntyped(op Op, payload any, done []func(any)) {
	p, ok := c.accepts(payload)
	if !ok {
		c.reg.warn(herrors.CodePayloadType, c.name)
		return
	}
	c.update(op, p, joinDone(done))
}

func joinDone(done []func(any)) func(any) {
	if len(done) == 0 {
		return nil
	}
	return func(state any) {
		for _, fn := range done {
			if fn != nil {
				fn(state)
			}
		}
	}
}

func joinTypedDone[T any](done []func(T)) func(any) {
	if len(done) == 0 {
		return nil
	}
	return func(state any) {
		s := as[T](state)
		for _, fn := range done {
			if fn != nil {
				fn(s)
			}
		}
	}
}

// =============================================================================
// Typed variants
// =============================================================================

// StateStore is a store without reducer: SetState replaces the state.
type StateStore[T any] struct {
	c *core
	h *Handle
}

// Name returns the store name.
func (s *StateStore[T]) Name() string { return s.c.name }

// UsesReducer always returns false.
func (s *StateStore[T]) UsesReducer() bool { return false }

// GetState returns the committed state.
func (s *StateStore[T]) GetState() T {
	return as[T](s.c.snapshot())
}

// SetState replaces the state, notifies triggers whose selected value changed
// and subscribers, then calls done with the new state.
func (s *StateStore[T]) SetState(value T, done ...func(T)) {
	s.c.update(OpSetState, value, joinTypedDone(done))
}

// Subscribe registers a subscriber called after every update.
func (s *StateStore[T]) Subscribe(sub Subscriber[T]) (func(), error) {
	return subscribeTyped(s.c, sub)
}

// SubscribeFunc registers fn as a new subscriber.
func (s *StateStore[T]) SubscribeFunc(fn func(state T, payload any)) (func(), error) {
	return subscribeTypedFunc(s.c, fn)
}

// Attach registers t under sel.
func (s *StateStore[T]) Attach(sel *Selector[T], t Trigger) (func(), error) {
	key, derive := selectorKey(sel)
	return s.c.attach(key, derive, t)
}

// Handle returns the untyped handle.
func (s *StateStore[T]) Handle() *Handle { return s.h }

// ReducerStore is a store whose updates go through a reducer.
type ReducerStore[T, P any] struct {
	c *core
	h *Handle
}

// Name returns the store name.
func (s *ReducerStore[T, P]) Name() string { return s.c.name }

// UsesReducer always returns true.
func (s *ReducerStore[T, P]) UsesReducer() bool { return true }

// GetState returns the committed state.
func (s *ReducerStore[T, P]) GetState() T {
	return as[T](s.c.snapshot())
}

// Dispatch runs the reducer with payload, notifies triggers whose selected
// value changed and subscribers, then calls done with the new state.
func (s *ReducerStore[T, P]) Dispatch(payload P, done ...func(T)) {
	s.c.update(OpDispatch, payload, joinTypedDone(done))
}

// Subscribe registers a subscriber called after every update.
func (s *ReducerStore[T, P]) Subscribe(sub Subscriber[T]) (func(), error) {
	return subscribeTyped(s.c, sub)
}

// SubscribeFunc registers fn as a new subscriber.
func (s *ReducerStore[T, P]) SubscribeFunc(fn func(state T, payload any)) (func(), error) {
	return subscribeTypedFunc(s.c, fn)
}

// Attach registers t under sel.
func (s *ReducerStore[T, P]) Attach(sel *Selector[T], t Trigger) (func(), error) {
	key, derive := selectorKey(sel)
	return s.c.attach(key, derive, t)
}

// Handle returns the untyped handle.
func (s *ReducerStore[T, P]) Handle() *Handle { return s.h }
