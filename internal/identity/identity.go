package identity

import "sync"

// Identity is the session user as reported by the auth provider. The cart
// engine only cares about ID; the rest is carried for surfaces that render it.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
}

// Provider is the identity port. Current returns nil while anonymous.
// Subscribe registers fn for every transition (sign-in, sign-out, user switch)
// and invokes it once immediately with the current identity, mirroring the
// provider's initial "loaded" signal. The returned func unsubscribes.
type Provider interface {
	Current() *Identity
	Subscribe(fn func(*Identity)) (unsubscribe func())
}

// ManualProvider is a Provider driven by explicit SetIdentity calls. The HTTP
// surface and the tests use it; a real deployment wraps the auth vendor's SDK
// behind the same interface.
type ManualProvider struct {
	mu          sync.Mutex
	current     *Identity
	subscribers map[int]func(*Identity)
	nextID      int
}

func NewManualProvider() *ManualProvider {
	return &ManualProvider{subscribers: make(map[int]func(*Identity))}
}

func (p *ManualProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *ManualProvider) Subscribe(fn func(*Identity)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	current := p.current
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
}

// SetIdentity records the new identity and notifies subscribers. Passing nil
// signals sign-out.
func (p *ManualProvider) SetIdentity(id *Identity) {
	p.mu.Lock()
	p.current = id
	fns := make([]func(*Identity), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}
