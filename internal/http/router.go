package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *CartHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", healthHandler)

	r.Route("/api/cart/{sessionId}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Get("/quote", h.GetQuote)
		r.Post("/items", h.AddItem)
		r.Put("/items/{lineId}", h.UpdateItem)
		r.Delete("/items/{lineId}", h.RemoveItem)
		r.Post("/clear", h.ClearCart)
		r.Post("/identity", h.SetIdentity)
		r.Delete("/identity", h.ClearIdentity)
		r.Post("/checkout", h.Checkout)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "service": "storefront-cart"}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
