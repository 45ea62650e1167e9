package hookstore

import herrors "github.com/vango-dev/hookstore/internal/errors"

// Sentinel errors. Every error returned by this package wraps one of these,
// so callers can match with errors.Is.
var (
	// ErrInvalidName is returned when a store name is empty.
	ErrInvalidName error = herrors.Sentinel("hookstore: invalid store name")

	// ErrDuplicateStore is returned by Create under PolicyStrict when the
	// name is already registered.
	ErrDuplicateStore error = herrors.Sentinel("hookstore: store already exists")

	// ErrNotFound is returned when looking up a store that does not exist.
	ErrNotFound error = herrors.Sentinel("hookstore: store does not exist")

	// ErrInvalidArgument is returned when nil is passed where a callback,
	// trigger or reducer is required.
	ErrInvalidArgument error = herrors.Sentinel("hookstore: invalid argument")

	// ErrTypeMismatch is returned by Lookup when the store holds another
	// state type.
	ErrTypeMismatch error = herrors.Sentinel("hookstore: state type mismatch")

	// ErrUpdateDepthExceeded is raised (as a panic value) when nested updates
	// go deeper than the configured maximum. Notification loops recover it
	// and report it as a trigger or subscriber failure.
	ErrUpdateDepthExceeded error = herrors.Sentinel("hookstore: maximum update depth exceeded")
)

func newError(code, store string, sentinel error) error {
	return herrors.New(code).WithStore(store).Wrap(sentinel)
}
