// Package errors provides the coded, structured errors used across hookstore.
//
// Every failure and every non-fatal misuse the store engine can report has a
// registered code:
//   - H-codes are errors returned to the caller (invalid name, duplicate
//     store, unknown store, invalid argument, type mismatch, runaway updates)
//     or reported while notifying (a failing trigger or listener).
//   - W-codes are warnings. They are logged and reported to observers but
//     never returned, so a single bad call site cannot crash a UI.
//
// # Usage
//
//	err := errors.New(errors.CodeDuplicateStore).
//	    WithStore("cart").
//	    Wrap(hookstore.ErrDuplicateStore)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR H002: Store already exists
//	//
//	//   store: cart
//	//
//	//   A store with this name is already registered and the registry uses
//	//   the strict creation policy.
//	//
//	//   Hint: Pick a unique name or build the registry with WithCreatePolicy(PolicyOverride).
package errors
