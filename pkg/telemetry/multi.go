package telemetry

import (
	"context"

	"github.com/vango-dev/hookstore/pkg/hookstore"
)

// multi fans events out to several observers.
type multi []hookstore.Observer

// Multi combines observers. Contexts are threaded through UpdateStarted in
// order and the finish functions run in reverse order.
func Multi(observers ...hookstore.Observer) hookstore.Observer {
	out := make(multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multi) StoreCreated(name string, replaced bool) {
	for _, o := range m {
		o.StoreCreated(name, replaced)
	}
}

func (m multi) UpdateStarted(ctx context.Context, info hookstore.UpdateInfo) (context.Context, func(hookstore.UpdateResult)) {
	finishers := make([]func(hookstore.UpdateResult), len(m))
	for i, o := range m {
		ctx, finishers[i] = o.UpdateStarted(ctx, info)
	}
	return ctx, func(res hookstore.UpdateResult) {
		for i := len(finishers) - 1; i >= 0; i-- {
			finishers[i](res)
		}
	}
}

func (m multi) Misuse(store string, err error) {
	for _, o := range m {
		o.Misuse(store, err)
	}
}

func (m multi) Failed(ctx context.Context, store string, err error) {
	for _, o := range m {
		o.Failed(ctx, store, err)
	}
}
