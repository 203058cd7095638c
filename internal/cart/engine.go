package cart

import (
	"fmt"
	"log"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/storage"
)

// KeyConfig names the two storage slots the engine owns. The engine never
// touches keys outside this namespace.
type KeyConfig struct {
	// Session is always read on construction and written on every mutation,
	// so an anonymous visitor's cart survives reloads.
	Session string
	// IdentityPrefix + <identity id> is the slot for a signed-in user's cart.
	IdentityPrefix string
}

func DefaultKeys() KeyConfig {
	return KeyConfig{Session: "cart:session", IdentityPrefix: "cart:"}
}

// Result is what every mutation returns. Mutations never return Go errors and
// never panic; validation failures come back as Success=false.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func okResult() Result { return Result{Success: true} }

func errResult(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// LineInput describes the product a surface wants to add. LineID is derived,
// never supplied.
type LineInput struct {
	ProductID       string   `json:"productId"`
	Title           string   `json:"title"`
	Price           int64    `json:"price"`
	Image           string   `json:"image"`
	SelectedVariant *Variant `json:"selectedVariant,omitempty"`
}

// Engine owns the authoritative in-memory cart state for one session and
// mirrors it to the store after every mutation. Store failures are logged and
// swallowed: the user's intent succeeded in memory, which stays authoritative
// for the rest of the session.
type Engine struct {
	store  storage.Store
	logger *log.Logger
	keys   KeyConfig

	mu         sync.Mutex
	lines      []Line
	identityID string

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObsID int
}

// New hydrates from the session slot immediately so the cart is visible
// before identity resolves. Malformed or missing stored data yields an empty
// cart; construction never fails.
func New(store storage.Store, logger *log.Logger, keys KeyConfig) *Engine {
	if keys.Session == "" {
		keys.Session = DefaultKeys().Session
	}
	if keys.IdentityPrefix == "" {
		keys.IdentityPrefix = DefaultKeys().IdentityPrefix
	}

	e := &Engine{
		store:     store,
		logger:    logger,
		keys:      keys,
		observers: make(map[int]func(State)),
	}

	if lines, ok := e.readKey(keys.Session); ok {
		e.lines = lines
	}
	return e
}

// BindProvider subscribes the engine to identity transitions. The returned
// func unsubscribes; callers release it alongside the engine's lifecycle.
func (e *Engine) BindProvider(p identity.Provider) func() {
	return p.Subscribe(e.SetIdentity)
}

// SetIdentity applies an identity transition.
//
// To a non-nil identity: if that identity has a stored cart it replaces the
// in-memory state (identity storage is authoritative for its owner), and the
// session slot is overwritten to match. If not, the current in-memory cart is
// adopted under the new identity instead of being discarded.
//
// To nil (sign-out): the session slot keeps the last known state so the
// visitor still sees their items; identity-slot writes stop until a new
// identity arrives.
func (e *Engine) SetIdentity(id *identity.Identity) {
	e.mu.Lock()
	if id == nil {
		e.identityID = ""
		e.mu.Unlock()
		return
	}

	e.identityID = id.ID
	if lines, ok := e.readKey(e.identityKey(id.ID)); ok {
		e.lines = lines
	}
	e.persistLocked()
	st := stateOf(e.lines)
	e.mu.Unlock()

	e.notify(st)
}

// AddLine merges quantity into an existing line with the same derived LineID,
// or appends a new one. On merge the existing line's price, title, and image
// win, which guards against a stale price arriving from a re-rendered product
// page.
func (e *Engine) AddLine(in LineInput, quantity int) Result {
	if in.ProductID == "" {
		return errResult("productId is required")
	}
	if in.Price <= 0 {
		return errResult("price must be positive, got %d", in.Price)
	}
	if quantity <= 0 {
		return errResult("quantity must be positive, got %d", quantity)
	}

	lineID := LineID(in.ProductID, in.SelectedVariant)

	e.mu.Lock()
	merged := false
	for i := range e.lines {
		if e.lines[i].LineID == lineID {
			e.lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		e.lines = append(e.lines, Line{
			LineID:          lineID,
			ProductID:       in.ProductID,
			Title:           in.Title,
			Price:           in.Price,
			Image:           in.Image,
			SelectedVariant: in.SelectedVariant,
			Quantity:        quantity,
		})
	}
	e.persistLocked()
	st := stateOf(e.lines)
	e.mu.Unlock()

	e.notify(st)
	return okResult()
}

// UpdateQuantity sets a line's quantity exactly. Zero or below removes the
// line. A missing line is a no-op success: the UI may race a concurrent
// removal.
func (e *Engine) UpdateQuantity(lineID string, quantity int) Result {
	if quantity <= 0 {
		return e.RemoveLine(lineID)
	}

	e.mu.Lock()
	changed := false
	for i := range e.lines {
		if e.lines[i].LineID == lineID {
			if e.lines[i].Quantity != quantity {
				e.lines[i].Quantity = quantity
				changed = true
			}
			break
		}
	}
	if !changed {
		e.mu.Unlock()
		return okResult()
	}
	e.persistLocked()
	st := stateOf(e.lines)
	e.mu.Unlock()

	e.notify(st)
	return okResult()
}

// RemoveLine removes the line if present. Removing an absent line still
// reports success.
func (e *Engine) RemoveLine(lineID string) Result {
	e.mu.Lock()
	removed := false
	for i := range e.lines {
		if e.lines[i].LineID == lineID {
			e.lines = append(e.lines[:i], e.lines[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		e.mu.Unlock()
		return okResult()
	}
	e.persistLocked()
	st := stateOf(e.lines)
	e.mu.Unlock()

	e.notify(st)
	return okResult()
}

// Clear empties the cart and persists the empty snapshot to both slots.
func (e *Engine) Clear() Result {
	e.mu.Lock()
	e.lines = nil
	e.persistLocked()
	st := stateOf(e.lines)
	e.mu.Unlock()

	e.notify(st)
	return okResult()
}

// IdentityID reports the identity the engine is currently persisting for, or
// "" while anonymous.
func (e *Engine) IdentityID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identityID
}

// State returns a copy of the lines plus derived subtotal and items count.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return stateOf(e.lines)
}

// Subscribe registers fn to run after every state change. The returned func
// unsubscribes; surfaces call it when they unmount.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.obsMu.Lock()
	id := e.nextObsID
	e.nextObsID++
	e.observers[id] = fn
	e.obsMu.Unlock()

	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		delete(e.observers, id)
	}
}

func (e *Engine) notify(st State) {
	e.obsMu.Lock()
	fns := make([]func(State), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.obsMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (e *Engine) identityKey(id string) string {
	return e.keys.IdentityPrefix + id
}

// readKey loads and decodes one slot. ok=false covers both "never written"
// and "unreadable": a malformed blob means no prior cart, logged, never
// surfaced.
func (e *Engine) readKey(key string) ([]Line, bool) {
	raw, ok, err := e.store.Get(key)
	if err != nil {
		e.logger.Printf("read %s: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	lines, err := decodeSnapshot(raw)
	if err != nil {
		e.logger.Printf("hydrate %s: %v", key, err)
		return nil, false
	}
	return lines, true
}

// persistLocked mirrors the current lines to the session slot and, when an
// identity is known, to its slot as well. Both writes share one serialized
// snapshot. Callers hold e.mu.
func (e *Engine) persistLocked() {
	raw, err := encodeSnapshot(e.lines)
	if err != nil {
		e.logger.Printf("serialize cart: %v", err)
		return
	}
	if err := e.store.Set(e.keys.Session, raw); err != nil {
		e.logger.Printf("persist %s: %v", e.keys.Session, err)
	}
	if e.identityID != "" {
		key := e.identityKey(e.identityID)
		if err := e.store.Set(key, raw); err != nil {
			e.logger.Printf("persist %s: %v", key, err)
		}
	}
}
