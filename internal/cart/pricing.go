package cart

import (
	"context"
	"log"
	"math"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/promo"
)

// PricingConfig holds the storefront's checkout constants, in currency minor
// units. Defaults match the live storefront; deployments override via env.
type PricingConfig struct {
	FreeShippingThreshold int64
	FlatShippingFee       int64
	PromoRate             float64
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		FreeShippingThreshold: 2000,
		FlatShippingFee:       499,
		PromoRate:             0.20,
	}
}

// Quote is the derived pricing for a cart state. Pure function of the state
// and the promo decision; the engine never stores any of it.
type Quote struct {
	Subtotal     int64 `json:"subtotal"`
	Shipping     int64 `json:"shipping"`
	Discount     int64 `json:"discount"`
	Total        int64 `json:"total"`
	PromoApplied bool  `json:"promoApplied"`
}

// Pricer computes quotes. The validator is injectable so promo codes can move
// to a backend check without touching this package's callers.
type Pricer struct {
	cfg       PricingConfig
	validator promo.Validator
	logger    *log.Logger
}

func NewPricer(cfg PricingConfig, validator promo.Validator, logger *log.Logger) *Pricer {
	return &Pricer{cfg: cfg, validator: validator, logger: logger}
}

// QuoteState prices the given state. An empty promoCode skips validation. A
// validator failure degrades to "no discount": pricing must never block the
// cart surfaces.
func (p *Pricer) QuoteState(ctx context.Context, st State, promoCode string) Quote {
	q := Quote{Subtotal: st.Subtotal}

	if st.Subtotal > p.cfg.FreeShippingThreshold {
		q.Shipping = 0
	} else {
		q.Shipping = p.cfg.FlatShippingFee
	}

	if promoCode != "" && p.validator != nil {
		ok, err := p.validator.Validate(ctx, promoCode)
		if err != nil {
			p.logger.Printf("validate promo code: %v", err)
		} else if ok {
			q.PromoApplied = true
			q.Discount = int64(math.Round(float64(st.Subtotal) * p.cfg.PromoRate))
		}
	}

	q.Total = q.Subtotal + q.Shipping - q.Discount
	if q.Total < 0 {
		q.Total = 0
	}
	return q
}
