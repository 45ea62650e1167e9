package hookstore

import (
	"reflect"
	"sync"

	herrors "github.com/vango-dev/hookstore/internal/errors"
)

// Subscriber is notified after every update of a store, independently of any
// component binding.
type Subscriber[T any] interface {
	OnUpdate(state T, payload any)
}

// SubscriberFunc adapts a function to Subscriber. Function values are not
// comparable, so a SubscriberFunc is never detected as a duplicate; keep the
// cancel func instead.
type SubscriberFunc[T any] func(state T, payload any)

// OnUpdate calls f(state, payload).
func (f SubscriberFunc[T]) OnUpdate(state T, payload any) {
	f(state, payload)
}

// subscribe registers fn under key. A non-nil key already present makes the
// call a warned no-op. The returned cancel removes exactly this registration.
func (c *core) subscribe(key any, fn func(state, payload any)) func() {
	if key != nil && !reflect.TypeOf(key).Comparable() {
		key = nil
	}

	c.mu.Lock()
	if key != nil {
		for _, l := range c.listeners {
			if l.key != nil && safeEqual(l.key, key) {
				c.mu.Unlock()
				c.reg.warn(herrors.CodeDuplicateSubscriber, c.name)
				return func() {}
			}
		}
	}
	l := &listener{key: key, fn: fn}
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(l) })
	}
}

func (c *core) unsubscribe(target *listener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, l := range c.listeners {
		if l == target {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return
		}
	}
}

func subscribeTyped[T any](c *core, sub Subscriber[T]) (func(), error) {
	if sub == nil {
		return nil, newError(herrors.CodeInvalidArgument, c.name, ErrInvalidArgument)
	}
	if _, isFunc := sub.(SubscriberFunc[T]); isFunc {
		return subscribeTypedFunc(c, sub.OnUpdate)
	}
	return c.subscribe(sub, func(state, payload any) {
		sub.OnUpdate(as[T](state), payload)
	}), nil
}

func subscribeTypedFunc[T any](c *core, fn func(state T, payload any)) (func(), error) {
	if fn == nil {
		return nil, newError(herrors.CodeInvalidArgument, c.name, ErrInvalidArgument)
	}
	return c.subscribe(nil, func(state, payload any) {
		fn(as[T](state), payload)
	}), nil
}
