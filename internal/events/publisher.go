package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/contracts"
)

// PublishMetadata carries the tracing identifiers surfaces propagate through
// checkout.
type PublishMetadata struct {
	CorrelationID string
	CausationID   string
}

// amqpChannel is the slice of *amqp.Channel the publisher needs; tests swap in
// a fake.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher hands finalized carts to the order backend as enveloped
// CartCheckedOut events on the shared topic exchange.
type Publisher struct {
	ch       amqpChannel
	seq      SequenceSource
	producer string
}

type PublisherOptions struct {
	Producer string
}

func NewPublisher(conn *amqp.Connection, seq SequenceSource, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = contracts.StorefrontCartProducer
	}

	return &Publisher{ch: ch, seq: seq, producer: producer}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishCartCheckedOut envelopes the finalized state and publishes it. The
// cart ID partitions the event stream so one cart's events stay ordered.
func (p *Publisher) PublishCartCheckedOut(ctx context.Context, cartID, userID string, st cart.State, meta PublishMetadata) error {
	seq, err := p.seq.Next(cartID)
	if err != nil {
		return fmt.Errorf("checkout sequence: %w", err)
	}

	env := contracts.BuildCartCheckedOutEvent(cartID, userID, st, contracts.EnvelopeOptions{
		PartitionKey:  cartID,
		Sequence:      seq,
		Producer:      p.producer,
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
	})

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal CartCheckedOut envelope: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		EventsExchange,
		CartCheckedOutRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish CartCheckedOut: %w", err)
	}
	return nil
}

// LogPublisher stands in for the broker in local development: the handoff is
// logged instead of published.
type LogPublisher struct {
	logger *log.Logger
}

func NewLogPublisher(logger *log.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishCartCheckedOut(_ context.Context, cartID, userID string, st cart.State, meta PublishMetadata) error {
	p.logger.Printf("checkout handoff (no broker): cart=%s user=%s items=%d subtotal=%d correlation=%s",
		cartID, userID, st.ItemsCount, st.Subtotal, meta.CorrelationID)
	return nil
}
