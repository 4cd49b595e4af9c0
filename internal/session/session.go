// Package session ties in-flight advice calls to the browser session that
// started them, so a newer upload or submit from the same browser cancels the
// older call instead of leaving it running.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const CookieName = "dietcoach_session"

// ErrSuperseded is the cancellation cause of a call replaced by a newer one.
var ErrSuperseded = errors.New("superseded by a newer request")

type flight struct {
	cancel context.CancelCauseFunc
}

// Manager tracks at most one in-flight call per session ID.
type Manager struct {
	mu      sync.Mutex
	flights map[string]*flight
}

func NewManager() *Manager {
	return &Manager{flights: make(map[string]*flight)}
}

// Begin cancels any call already running for id and returns a context for the
// new one, derived from parent so the call also ends when the client goes
// away. done must be called when the call finishes.
func (m *Manager) Begin(parent context.Context, id string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	f := &flight{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.flights[id]; ok {
		prev.cancel(ErrSuperseded)
	}
	m.flights[id] = f
	m.mu.Unlock()

	done := func() {
		m.mu.Lock()
		if m.flights[id] == f {
			delete(m.flights, id)
		}
		m.mu.Unlock()
		cancel(context.Canceled)
	}
	return ctx, done
}

// Cancel stops the call running for id, if any.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.flights[id]; ok {
		f.cancel(ErrSuperseded)
		delete(m.flights, id)
	}
}

// Active returns the number of sessions with a call in flight.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flights)
}

// ID returns the session ID carried by r, minting a new one and setting the
// cookie on w when r has none.
func ID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
