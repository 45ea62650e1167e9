package hookstore

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

var testTriggerIDs uint64

// testTrigger records every state it is fired with.
type testTrigger struct {
	id uint64

	mu     sync.Mutex
	states []any
	onFire func(state any)
}

func newTestTrigger() *testTrigger {
	return &testTrigger{id: atomic.AddUint64(&testTriggerIDs, 1)}
}

func (t *testTrigger) ID() uint64 { return t.id }

func (t *testTrigger) Fire(state any) {
	t.mu.Lock()
	t.states = append(t.states, state)
	fn := t.onFire
	t.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

func (t *testTrigger) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

func (t *testTrigger) last() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.states) == 0 {
		return nil
	}
	return t.states[len(t.states)-1]
}

// countingSubscriber is a comparable subscriber (used through a pointer).
type countingSubscriber struct {
	mu       sync.Mutex
	calls    int
	states   []any
	payloads []any
}

func (s *countingSubscriber) OnUpdate(state any, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.states = append(s.states, state)
	s.payloads = append(s.payloads, payload)
}

func (s *countingSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// intSubscriber is a typed subscriber for int stores.
type intSubscriber struct {
	calls int
	last  int
}

func (s *intSubscriber) OnUpdate(state int, _ any) {
	s.calls++
	s.last = state
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) count(substr string) int {
	return strings.Count(b.String(), substr)
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// recordingObserver keeps every event it receives.
type recordingObserver struct {
	mu       sync.Mutex
	created  []string
	replaced int
	started  []UpdateInfo
	results  []UpdateResult
	misuse   []error
	failures []error
}

func (o *recordingObserver) StoreCreated(name string, replaced bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created = append(o.created, name)
	if replaced {
		o.replaced++
	}
}

func (o *recordingObserver) UpdateStarted(ctx context.Context, info UpdateInfo) (context.Context, func(UpdateResult)) {
	o.mu.Lock()
	o.started = append(o.started, info)
	o.mu.Unlock()
	return ctx, func(res UpdateResult) {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.results = append(o.results, res)
	}
}

func (o *recordingObserver) Misuse(_ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misuse = append(o.misuse, err)
}

func (o *recordingObserver) Failed(_ context.Context, _ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, err)
}

func newTestRegistry(opts ...Option) (*Registry, *syncBuffer, *recordingObserver) {
	logger, buf := newTestLogger()
	obs := &recordingObserver{}
	opts = append([]Option{WithLogger(logger), WithObserver(obs)}, opts...)
	return NewRegistry(opts...), buf, obs
}
