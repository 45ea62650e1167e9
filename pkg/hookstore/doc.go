// Package hookstore provides named global stores for component-based UIs.
//
// Components read and update shared stores without threading state through
// the component tree. Only components subscribed to a store, or to a derived
// slice of it, are notified when it changes.
//
// # Stores
//
// A store is created once in a Registry, either with replace semantics or
// with a reducer:
//
//	reg := hookstore.NewRegistry()
//
//	counter, _ := hookstore.Create(reg, "counter", 0)
//	counter.SetState(counter.GetState() + 1)
//
//	todos, _ := hookstore.CreateWithReducer(reg, "todos", TodoList{},
//	    func(s TodoList, a TodoAction) TodoList { ... })
//	todos.Dispatch(TodoAction{Type: "create", Text: "buy milk"})
//
// Stores are looked up by name anywhere else:
//
//	h, err := reg.Get("counter")              // untyped *Handle
//	s, err := hookstore.Lookup[int](reg, hookstore.ByName("counter"))
//
// # Update algorithm
//
// Every SetState/Dispatch runs to completion before it returns:
//
//  1. A store without reducer receiving a primitive equal to its current
//     state only runs the completion callback.
//  2. The reducer computes the new state, which is committed before anyone
//     is notified.
//  3. Each selector bucket compares its derived value before and after; only
//     buckets whose value changed fire their triggers.
//  4. Subscribers are called with (state, payload) in registration order.
//  5. The completion callback runs last.
//
// A panicking trigger or subscriber is recovered and reported; the others are
// still notified.
//
// # Concurrency
//
// Updates on one registry are serialized. The goroutine running an update may
// re-enter (a trigger updating another store), and the nested update finishes
// before the outer notification loop continues. WithMaxUpdateDepth bounds the
// nesting so two stores updating each other fail fast instead of recursing
// forever. GetState never blocks on a running update.
package hookstore
