package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex is an in-process ports.RefundLocker. Each id gets a one-slot
// semaphore that is dropped once no caller holds or waits on it.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*keySlot
}

type keySlot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty lock table.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[uuid.UUID]*keySlot)}
}

// Lock blocks until id is free or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[id]
	if !ok {
		s = &keySlot{ch: make(chan struct{}, 1)}
		k.slots[id] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(id, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.release(id, s)
		})
	}, nil
}

func (k *KeyedMutex) release(id uuid.UUID, s *keySlot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, id)
	}
}

// size reports the number of live slots.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
