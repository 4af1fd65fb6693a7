package gate

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// pool is a non-blocking permit pool. Admission either succeeds
// immediately or the caller is turned away; nobody queues.
type pool struct {
	sem *semaphore.Weighted
}

func newPool(size int64) *pool {
	return &pool{sem: semaphore.NewWeighted(size)}
}

// tryAcquire takes one permit without blocking. The returned release is
// safe to call more than once; only the first call returns the permit.
func (p *pool) tryAcquire() (release func(), ok bool) {
	if !p.sem.TryAcquire(1) {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { p.sem.Release(1) })
	}, true
}
