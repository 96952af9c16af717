package api

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/shubh-37/music-brief-analyzer/internal/workflow"
)

// Registry holds one workflow controller per browser session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*workflow.Controller
	factory  func() *workflow.Controller
}

func NewRegistry(factory func() *workflow.Controller) *Registry {
	return &Registry{
		sessions: make(map[string]*workflow.Controller),
		factory:  factory,
	}
}

// Create starts a session and loads its briefs count.
func (r *Registry) Create(ctx context.Context) (string, *workflow.Controller) {
	id := uuid.NewString()
	ctrl := r.factory()
	ctrl.Init(ctx)

	r.mu.Lock()
	r.sessions[id] = ctrl
	r.mu.Unlock()

	log.Printf("🆕 session %s started", id)
	return id, ctrl
}

func (r *Registry) Get(id string) (*workflow.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctrl, ok := r.sessions[id]
	return ctrl, ok
}

// Remove drops a session after its pending saves finish.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	ctrl, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		ctrl.Wait()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Drain waits for every session's queued saves.
func (r *Registry) Drain() {
	r.mu.RLock()
	ctrls := make([]*workflow.Controller, 0, len(r.sessions))
	for _, ctrl := range r.sessions {
		ctrls = append(ctrls, ctrl)
	}
	r.mu.RUnlock()

	for _, ctrl := range ctrls {
		ctrl.Wait()
	}
}
