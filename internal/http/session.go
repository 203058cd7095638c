package httpapi

import (
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
)

// EngineFactory builds the cart engine for a session, wiring its storage keys
// to that session's slot.
type EngineFactory func(sessionID string) *cart.Engine

// SessionRegistry holds one engine per session, created on first touch. Each
// engine hydrates from its own session slot, so a returning session sees its
// cart again even after the service restarts.
type SessionRegistry struct {
	mu      sync.Mutex
	engines map[string]*cart.Engine
	factory EngineFactory
}

func NewSessionRegistry(factory EngineFactory) *SessionRegistry {
	return &SessionRegistry{
		engines: make(map[string]*cart.Engine),
		factory: factory,
	}
}

func (r *SessionRegistry) Engine(sessionID string) *cart.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[sessionID]; ok {
		return e
	}
	e := r.factory(sessionID)
	r.engines[sessionID] = e
	return e
}
