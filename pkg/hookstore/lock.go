package hookstore

import (
	"context"
	"runtime"
	"sync"
)

// getGoroutineID returns the ID of the calling goroutine, parsed from the
// header of its stack trace ("goroutine <id> [...").
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// updateLock serializes updates on a registry. The goroutine holding it may
// acquire it again, which is how triggers and subscribers update stores from
// inside notification.
type updateLock struct {
	mu    sync.Mutex
	cond  *sync.Cond
	owner uint64 // goroutine ID of the holder, 0 when free
	depth int

	// tripped is set once an update went past the depth limit; every nested
	// update fails until the outermost one returns.
	tripped bool

	// ctxs holds the observer contexts of the running updates, innermost
	// last. Only the holder touches it.
	ctxs []context.Context
}

func newUpdateLock() *updateLock {
	l := &updateLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// acquire blocks until the calling goroutine holds the lock and returns the
// nesting depth, 1 for the outermost update.
func (l *updateLock) acquire() int {
	gid := getGoroutineID()

	l.mu.Lock()
	defer l.mu.Unlock()

	for l.owner != 0 && l.owner != gid {
		l.cond.Wait()
	}
	l.owner = gid
	l.depth++
	return l.depth
}

// release undoes one acquire.
func (l *updateLock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.depth--
	if l.depth == 0 {
		l.owner = 0
		l.tripped = false
		l.ctxs = nil
		l.cond.Broadcast()
	}
}

// context returns the observer context of the innermost running update.
func (l *updateLock) context() context.Context {
	if n := len(l.ctxs); n > 0 {
		return l.ctxs[n-1]
	}
	return context.Background()
}

func (l *updateLock) push(ctx context.Context) {
	l.ctxs = append(l.ctxs, ctx)
}

func (l *updateLock) pop() {
	if n := len(l.ctxs); n > 0 {
		l.ctxs = l.ctxs[:n-1]
	}
}
