package hookstore

import (
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	herrors "github.com/vango-dev/hookstore/internal/errors"
)

// Registry maps store names to stores. The zero value is not usable; build
// one with NewRegistry or use Default.
type Registry struct {
	opts options
	lock *updateLock

	mu     sync.RWMutex
	stores map[string]*core
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		opts:   o,
		lock:   newUpdateLock(),
		stores: make(map[string]*core),
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry, created with default options on
// first use.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Policy returns the registry's creation policy.
func (r *Registry) Policy() CreatePolicy {
	return r.opts.policy
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *slog.Logger {
	return r.opts.logger
}

// Create registers a store without reducer. SetState replaces its state.
func Create[T any](r *Registry, name string, initial T) (*StateStore[T], error) {
	c, err := r.register(name, initial, false, func(c *core) any {
		c.reducer = func(_, payload any) any { return payload }
		c.accepts = func(payload any) (any, bool) { return coerce[T](payload) }
		c.stateType = reflect.TypeFor[T]()
		c.payloadType = c.stateType
		s := &StateStore[T]{c: c}
		s.h = &Handle{c: c}
		return s
	})
	if err != nil {
		return nil, err
	}
	return c.public.(*StateStore[T]), nil
}

// CreateWithReducer registers a store whose updates go through reducer.
func CreateWithReducer[T, P any](r *Registry, name string, initial T, reducer Reducer[T, P]) (*ReducerStore[T, P], error) {
	if reducer == nil {
		return nil, newError(herrors.CodeInvalidArgument, name, ErrInvalidArgument)
	}
	c, err := r.register(name, initial, true, func(c *core) any {
		c.reducer = func(state, payload any) any {
			return reducer(as[T](state), as[P](payload))
		}
		c.accepts = func(payload any) (any, bool) { return coerce[P](payload) }
		c.stateType = reflect.TypeFor[T]()
		c.payloadType = reflect.TypeFor[P]()
		s := &ReducerStore[T, P]{c: c}
		s.h = &Handle{c: c}
		return s
	})
	if err != nil {
		return nil, err
	}
	return c.public.(*ReducerStore[T, P]), nil
}

// register validates the name, applies the creation policy and stores the
// new core. build fills in the variant-specific parts.
func (r *Registry) register(name string, initial any, usesReducer bool, build func(*core) any) (*core, error) {
	key, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	c := newCore(r, key, initial, usesReducer)
	c.public = build(c)

	r.mu.Lock()
	_, exists := r.stores[key]
	if exists && r.opts.policy == PolicyStrict {
		r.mu.Unlock()
		return nil, newError(herrors.CodeDuplicateStore, key, ErrDuplicateStore)
	}
	r.stores[key] = c
	r.mu.Unlock()

	if exists {
		r.warn(herrors.CodeStoreReplaced, key)
	}
	r.opts.observer.StoreCreated(key, exists)
	r.opts.logger.Debug("store created",
		"store", key,
		"reducer", usesReducer,
		"replaced", exists)

	return c, nil
}

// normalizeName returns the NFC form of name, rejecting blank names.
func normalizeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", newError(herrors.CodeInvalidName, name, ErrInvalidName)
	}
	return norm.NFC.String(name), nil
}

// Get returns the handle of the store registered under name.
func (r *Registry) Get(name string) (*Handle, error) {
	c, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return handleOf(c), nil
}

func (r *Registry) lookup(name string) (*core, error) {
	key, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	c, ok := r.stores[key]
	r.mu.RUnlock()
	if !ok {
		return nil, newError(herrors.CodeNotFound, key, ErrNotFound)
	}
	return c, nil
}

func handleOf(c *core) *Handle {
	switch s := c.public.(type) {
	case interface{ Handle() *Handle }:
		return s.Handle()
	default:
		return &Handle{c: c}
	}
}

// Identifier names a store either directly or through a store value.
type Identifier struct {
	name  string
	store Named
}

// ByName identifies a store by name.
func ByName(name string) Identifier {
	return Identifier{name: name}
}

// ByStore identifies a store by a handle. It is resolved through the
// store's name, so after an override it designates the replacement.
func ByStore(s Named) Identifier {
	return Identifier{store: s}
}

// Name returns the name the identifier resolves through.
func (id Identifier) Name() string {
	if id.store != nil {
		return id.store.Name()
	}
	return id.name
}

// String implements fmt.Stringer.
func (id Identifier) String() string {
	return id.Name()
}

// Resolve looks up the store designated by id.
func (r *Registry) Resolve(id Identifier) (*Handle, error) {
	return r.Get(id.Name())
}

// Lookup resolves id and returns the typed store. It fails with
// ErrTypeMismatch when the store's state is not a T.
func Lookup[T any](r *Registry, id Identifier) (Store[T], error) {
	c, err := r.lookup(id.Name())
	if err != nil {
		return nil, err
	}
	if s, ok := c.public.(Store[T]); ok {
		return s, nil
	}
	return nil, herrors.New(herrors.CodeTypeMismatch).
		WithStore(c.name).
		WithDetail("The store does not hold a " + reflect.TypeFor[T]().String() + ".").
		Wrap(ErrTypeMismatch)
}

// Names returns the registered store names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a store is registered under name.
func (r *Registry) Has(name string) bool {
	_, err := r.lookup(name)
	return err == nil
}

// Len returns the number of registered stores.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

// warn logs a misuse warning and reports it to the observer.
func (r *Registry) warn(code, store string) {
	err := herrors.New(code).WithStore(store)
	r.opts.logger.Warn(err.Message,
		"code", code,
		"store", store)
	r.opts.observer.Misuse(store, err)
}

// fail reports a recovered trigger or subscriber panic and returns it as an
// error. The caller holds the update lock.
func (r *Registry) fail(code, store string, recovered any) error {
	err := herrors.New(code).WithStore(store).Wrap(panicError(recovered))
	r.opts.logger.Error(err.Message,
		"code", code,
		"store", store,
		"error", err.Wrapped)
	r.opts.observer.Failed(r.lock.context(), store, err)
	return err
}
