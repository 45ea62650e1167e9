package hookstore

import "context"

// Op identifies the update entry point.
type Op string

const (
	OpSetState Op = "setState"
	OpDispatch Op = "dispatch"
)

// UpdateInfo describes an update about to run.
type UpdateInfo struct {
	Store string
	Op    Op

	// Depth is 1 for a top-level update and grows for updates made from
	// inside triggers or subscribers.
	Depth int
}

// UpdateResult describes a finished update.
type UpdateResult struct {
	// FastPath is true when the update was skipped because a primitive
	// payload equaled the current state.
	FastPath bool

	BucketsNotified int
	BucketsSkipped  int
	Triggers        int
	Subscribers     int

	// Failures counts triggers and subscribers that panicked.
	Failures int

	// Panicked is true when the update was aborted by a panic, typically
	// from the reducer. The panic is re-raised after the observer runs.
	Panicked bool
}

// Observer receives store lifecycle and update events. Implementations must
// be fast and must not update stores.
type Observer interface {
	// StoreCreated is called after a store is registered.
	StoreCreated(name string, replaced bool)

	// UpdateStarted is called before the reducer runs. ctx carries the
	// context of the enclosing update for nested updates. The returned
	// context is handed to updates nested inside this one and the returned
	// function is called exactly once when the update completes.
	UpdateStarted(ctx context.Context, info UpdateInfo) (context.Context, func(UpdateResult))

	// Misuse is called for every non-fatal misuse warning.
	Misuse(store string, err error)

	// Failed is called for every trigger or subscriber failure. ctx is the
	// context returned by UpdateStarted for the failing update.
	Failed(ctx context.Context, store string, err error)
}

type nopObserver struct{}

func (nopObserver) StoreCreated(string, bool) {}

func (nopObserver) UpdateStarted(ctx context.Context, _ UpdateInfo) (context.Context, func(UpdateResult)) {
	return ctx, func(UpdateResult) {}
}

func (nopObserver) Misuse(string, error) {}

func (nopObserver) Failed(context.Context, string, error) {}
