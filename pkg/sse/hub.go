package sse

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrHubClosed = errors.New("relay hub is shut down")

// Hub tracks in-flight relay sessions so they can be cancelled together on
// shutdown. Sessions never see each other through it.
type Hub struct {
	mu       sync.RWMutex
	running  bool
	sessions map[string]context.CancelFunc
}

func NewHub() *Hub {
	return &Hub{
		running:  true,
		sessions: make(map[string]context.CancelFunc),
	}
}

// Register derives a cancellable context for a new session. The returned
// release func must be called when the session ends. After Shutdown it
// returns ErrHubClosed and no session is registered.
func (h *Hub) Register(ctx context.Context) (context.Context, string, func(), error) {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil, "", nil, ErrHubClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	id := uuid.New().String()
	h.sessions[id] = cancel
	h.mu.Unlock()

	release := func() {
		h.mu.Lock()
		delete(h.sessions, id)
		h.mu.Unlock()
		cancel()
	}
	return ctx, id, release, nil
}

// Active returns the number of registered sessions.
func (h *Hub) Active() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown cancels every registered session and refuses new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.running = false
	for id, cancel := range h.sessions {
		cancel()
		delete(h.sessions, id)
	}
}
