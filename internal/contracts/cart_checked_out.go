package contracts

import (
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
)

const (
	CartCheckedOutEventName           = "CartCheckedOut"
	CartCheckedOutEventVersion        = 1
	CartCheckedOutEnvelopedSchemaPath = "contracts/events/cart/CartCheckedOut.v1.enveloped.schema.json"
	StorefrontCartProducer            = "storefront-cart"
)

// EventEnvelope is the broker-wide envelope the order backend consumes. Field
// names are shared wire contract; do not rename.
type EventEnvelope struct {
	EventName     string                `json:"eventName"`
	EventVersion  int                   `json:"eventVersion"`
	EventID       string                `json:"eventId"`
	CorrelationID string                `json:"correlationId,omitempty"`
	CausationID   string                `json:"causationId,omitempty"`
	Producer      string                `json:"producer"`
	PartitionKey  string                `json:"partitionKey"`
	Sequence      int64                 `json:"sequence"`
	OccurredAt    time.Time             `json:"occurredAt"`
	Schema        string                `json:"schema"`
	Payload       CartCheckedOutPayload `json:"payload"`
}

type CartCheckedOutPayload struct {
	CartID     string               `json:"cartId"`
	UserID     string               `json:"userId,omitempty"`
	Items      []CartCheckedOutItem `json:"items"`
	Subtotal   int64                `json:"subtotal"`
	ItemsCount int                  `json:"itemsCount"`
	Timestamp  time.Time            `json:"timestamp"`
}

type CartCheckedOutItem struct {
	LineID    string `json:"lineId"`
	ProductID string `json:"productId"`
	Title     string `json:"title,omitempty"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type EnvelopeOptions struct {
	PartitionKey  string
	Sequence      int64
	Producer      string
	SchemaPath    string
	CorrelationID string
	CausationID   string
	EventID       string
	OccurredAt    time.Time
}

// BuildCartCheckedOutEvent finalizes a cart state into the handoff event.
// Zero-valued options get generated or default values.
func BuildCartCheckedOutEvent(cartID, userID string, st cart.State, opts EnvelopeOptions) EventEnvelope {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	schemaPath := opts.SchemaPath
	if schemaPath == "" {
		schemaPath = CartCheckedOutEnvelopedSchemaPath
	}

	producer := opts.Producer
	if producer == "" {
		producer = StorefrontCartProducer
	}

	payload := CartCheckedOutPayload{
		CartID:     cartID,
		UserID:     userID,
		Subtotal:   st.Subtotal,
		ItemsCount: st.ItemsCount,
		Timestamp:  occurredAt,
	}
	for _, ln := range st.Lines {
		item := CartCheckedOutItem{
			LineID:    ln.LineID,
			ProductID: ln.ProductID,
			Title:     ln.Title,
			Quantity:  ln.Quantity,
			Price:     ln.Price,
		}
		if ln.SelectedVariant != nil {
			item.Size = ln.SelectedVariant.Size
		}
		payload.Items = append(payload.Items, item)
	}

	return EventEnvelope{
		EventName:     CartCheckedOutEventName,
		EventVersion:  CartCheckedOutEventVersion,
		EventID:       eventID,
		CorrelationID: opts.CorrelationID,
		CausationID:   opts.CausationID,
		Producer:      producer,
		PartitionKey:  opts.PartitionKey,
		Sequence:      opts.Sequence,
		OccurredAt:    occurredAt,
		Schema:        schemaPath,
		Payload:       payload,
	}
}
