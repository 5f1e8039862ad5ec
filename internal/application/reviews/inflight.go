package reviews

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/copyguard/internal/domain/reviews"
)

// InflightLocker is the single-process Locker: at most one analysis per
// review id, others are turned away rather than queued.
type InflightLocker struct {
	mu   sync.Mutex
	held map[domain.ID]struct{}
}

func NewInflightLocker() *InflightLocker {
	return &InflightLocker{held: make(map[domain.ID]struct{})}
}

func (l *InflightLocker) Acquire(_ context.Context, id domain.ID) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[id]; busy {
		return nil, false, nil
	}
	l.held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
		})
	}, true, nil
}
