package ledger

import (
	"sync"
	"time"
)

// lockMap un mutex exclusivo por clave (clase/id de ítem u orden).
// La espera es acotada: si el timeout vence, el llamador recibe falso y debe
// traducirlo a ErrLockTimeout. Los canales de capacidad 1 hacen de mutex con
// soporte de timeout, cosa que sync.Mutex no ofrece.
type lockMap struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockMap() *lockMap {
	return &lockMap{locks: make(map[string]chan struct{})}
}

func (m *lockMap) get(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[key] = ch
	}
	return ch
}

// acquire toma el lock de key o devuelve false si timeout vence.
func (m *lockMap) acquire(key string, timeout time.Duration) bool {
	ch := m.get(key)
	select {
	case ch <- struct{}{}:
		return true
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

func (m *lockMap) release(key string) {
	<-m.get(key)
}
