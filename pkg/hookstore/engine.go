package hookstore

import (
	"fmt"

	herrors "github.com/vango-dev/hookstore/internal/errors"
)

// update is the single entry point that changes a store's state. It runs the
// reducer, commits, notifies the buckets whose derived value changed, then
// the subscribers, then done. The registry update lock is held throughout,
// so other goroutines never observe a half-notified update.
func (c *core) update(op Op, payload any, done func(any)) {
	r := c.reg
	depth := r.lock.acquire()
	defer r.lock.release()

	if depth > 1 && (r.lock.tripped || (r.opts.maxDepth > 0 && depth > r.opts.maxDepth)) {
		r.lock.tripped = true
		panic(herrors.New(herrors.CodeUpdateDepthExceeded).
			WithStore(c.name).
			WithDetail(fmt.Sprintf("Nested update depth reached %d (limit %d).", depth, r.opts.maxDepth)).
			Wrap(ErrUpdateDepthExceeded))
	}

	ctx, finish := r.opts.observer.UpdateStarted(r.lock.context(), UpdateInfo{
		Store: c.name,
		Op:    op,
		Depth: depth,
	})
	r.lock.push(ctx)
	defer r.lock.pop()

	var res UpdateResult
	defer func() {
		if v := recover(); v != nil {
			res.Panicked = true
			finish(res)
			panic(v)
		}
		finish(res)
	}()

	prev := c.snapshot()

	// Unchanged primitive: nothing to compute or notify.
	if !c.usesReducer && isPrimitive(payload) && sameValue(prev, payload) {
		res.FastPath = true
		if done != nil {
			done(prev)
		}
		return
	}

	next := c.reducer(prev, payload)

	c.mu.Lock()
	c.state = next
	buckets := make([]*bucket, len(c.buckets))
	copy(buckets, c.buckets)
	triggers := make([][]Trigger, len(buckets))
	for i, b := range buckets {
		triggers[i] = append([]Trigger(nil), b.triggers...)
	}
	listeners := append([]*listener(nil), c.listeners...)
	c.mu.Unlock()

	for i, b := range buckets {
		if len(triggers[i]) == 0 {
			continue
		}
		if !c.bucketChanged(b, prev, next) {
			res.BucketsSkipped++
			continue
		}
		res.BucketsNotified++
		for _, t := range triggers[i] {
			res.Triggers++
			if err := c.fire(t, next); err != nil {
				res.Failures++
			}
		}
	}

	for _, l := range listeners {
		res.Subscribers++
		if err := c.notify(l, next, payload); err != nil {
			res.Failures++
		}
	}

	if done != nil {
		done(next)
	}
}

// bucketChanged compares the derived values before and after the update. A
// derivation that panics counts as changed.
func (c *core) bucketChanged(b *bucket, prev, next any) (changed bool) {
	defer func() {
		if v := recover(); v != nil {
			c.reg.fail(herrors.CodeTriggerFailed, c.name, v)
			changed = true
		}
	}()
	return !sameValue(b.derive(prev), b.derive(next))
}

// fire runs one trigger and turns a panic into a reported error.
func (c *core) fire(t Trigger, state any) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = c.reg.fail(herrors.CodeTriggerFailed, c.name, v)
		}
	}()
	t.Fire(state)
	return nil
}

// notify runs one subscriber and turns a panic into a reported error.
func (c *core) notify(l *listener, state, payload any) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = c.reg.fail(herrors.CodeListenerFailed, c.name, v)
		}
	}()
	l.fn(state, payload)
	return nil
}

// panicError converts a recovered value to an error.
func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
