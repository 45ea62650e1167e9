// Package component is a minimal component host for store bindings.
//
// An Owner stands for one mounted component instance. It owns cleanup
// functions that run on unmount, hook slots that keep per-mount values
// stable across renders, and a dirty flag that store triggers set to ask for
// a re-render. A Queue collects dirty owners and re-renders each one once.
//
//	q := component.NewQueue()
//	owner := component.NewOwner(nil, component.WithScheduler(q))
//	owner.Render(func() { value, set, _ = binding.UseStore(owner, id, nil) })
//	...
//	q.Flush() // re-renders owners marked dirty since the last flush
//	owner.Dispose()
package component
