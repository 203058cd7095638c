package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/identity"
)

type CartEventsPublisher interface {
	PublishCartCheckedOut(ctx context.Context, cartID, userID string, st cart.State, meta events.PublishMetadata) error
}

type CartHandler struct {
	sessions  *SessionRegistry
	pricer    *cart.Pricer
	publisher CartEventsPublisher
	logger    *log.Logger
}

func NewCartHandler(sessions *SessionRegistry, pricer *cart.Pricer, publisher CartEventsPublisher, logger *log.Logger) *CartHandler {
	return &CartHandler{sessions: sessions, pricer: pricer, publisher: publisher, logger: logger}
}

func (h *CartHandler) engine(w http.ResponseWriter, r *http.Request) (*cart.Engine, bool) {
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId")
		return nil, false
	}
	return h.sessions.Engine(sessionID), true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eng.State())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}

	var body struct {
		cart.LineInput
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}

	if res := eng.AddLine(body.LineInput, body.Quantity); !res.Success {
		writeError(w, http.StatusBadRequest, res.Error)
		return
	}
	writeJSON(w, http.StatusOK, eng.State())
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	lineID := chi.URLParam(r, "lineId")
	if lineID == "" {
		writeError(w, http.StatusBadRequest, "missing lineId")
		return
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if res := eng.UpdateQuantity(lineID, body.Quantity); !res.Success {
		writeError(w, http.StatusBadRequest, res.Error)
		return
	}
	writeJSON(w, http.StatusOK, eng.State())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	lineID := chi.URLParam(r, "lineId")
	if lineID == "" {
		writeError(w, http.StatusBadRequest, "missing lineId")
		return
	}

	eng.RemoveLine(lineID)
	writeJSON(w, http.StatusOK, eng.State())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	eng.Clear()
	writeJSON(w, http.StatusOK, eng.State())
}

func (h *CartHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	promoCode := r.URL.Query().Get("promo")
	writeJSON(w, http.StatusOK, h.pricer.QuoteState(r.Context(), eng.State(), promoCode))
}

// SetIdentity is the sign-in transition: the auth callback posts the resolved
// identity here and the engine applies its replace-or-adopt merge.
func (h *CartHandler) SetIdentity(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}

	var id identity.Identity
	if err := json.NewDecoder(r.Body).Decode(&id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if id.ID == "" {
		writeError(w, http.StatusBadRequest, "missing identity id")
		return
	}

	eng.SetIdentity(&id)
	writeJSON(w, http.StatusOK, eng.State())
}

// ClearIdentity is the sign-out transition. The session cart stays visible.
func (h *CartHandler) ClearIdentity(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	eng.SetIdentity(nil)
	writeJSON(w, http.StatusOK, eng.State())
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId")
		return
	}
	eng := h.sessions.Engine(sessionID)

	st := eng.State()
	if len(st.Lines) == 0 {
		writeError(w, http.StatusNotFound, "cart is empty")
		return
	}

	meta := events.PublishMetadata{
		CorrelationID: r.Header.Get("X-Correlation-Id"),
		CausationID:   r.Header.Get("X-Causation-Id"),
	}
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}

	if err := h.publisher.PublishCartCheckedOut(r.Context(), sessionID, eng.IdentityID(), st, meta); err != nil {
		h.logger.Printf("publish cart checked out: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to publish cart checked out event")
		return
	}

	eng.Clear()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "checkout completed",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
