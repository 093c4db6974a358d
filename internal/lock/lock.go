// Package lock сериализует операции над одним слотом врача (doctor_id + fecha).
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SlotLocker захватывает блокировку по ключу; unlock освобождает её.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SlotKey - ключ блокировки для пары (врач, момент).
func SlotKey(doctorID string, fecha time.Time) string {
	return fmt.Sprintf("cita-slot:%s:%d", doctorID, fecha.UTC().UnixNano())
}

// KeyedMutex - блокировка внутри одного процесса.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{} // ёмкость 1: занят, если в канале есть значение
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			m.release(key, e)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}
