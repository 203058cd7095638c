package events

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/storage"
)

// SequenceSource hands out monotonic per-partition sequence numbers for
// published events, so consumers can detect gaps and reorderings.
type SequenceSource interface {
	Next(partitionKey string) (int64, error)
}

// StoreSequence keeps counters in the cart's own key/value store, under
// <prefix><partitionKey>. The mutex makes increments atomic within the
// process, which is the same guarantee the rest of the cart persistence has.
type StoreSequence struct {
	store  storage.Store
	prefix string

	mu sync.Mutex
}

func NewStoreSequence(store storage.Store, prefix string) *StoreSequence {
	if prefix == "" {
		prefix = "cart:seq:"
	}
	return &StoreSequence{store: store, prefix: prefix}
}

func (s *StoreSequence) Next(partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("partition key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.prefix + partitionKey
	var last int64
	raw, ok, err := s.store.Get(key)
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", key, err)
	}
	if ok {
		last, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse sequence %s: %w", key, err)
		}
	}

	next := last + 1
	if err := s.store.Set(key, strconv.FormatInt(next, 10)); err != nil {
		return 0, fmt.Errorf("write sequence %s: %w", key, err)
	}
	return next, nil
}
