package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
)

var _ port.AttemptLock = (*LocalLock)(nil)

// LocalLock is an in-process AttemptLock for single-replica deployments
// without Redis.
type LocalLock struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[uuid.UUID]struct{})}
}

func (l *LocalLock) Acquire(_ context.Context, orderID uuid.UUID) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[orderID]; ok {
		return nil, model.ErrAttemptInProgress
	}
	l.held[orderID] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, orderID)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
