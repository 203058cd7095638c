package cart

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/identity"
)

type fakeStore struct {
	data   map[string]string
	getErr error
	setErr error
	sets   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (s *fakeStore) Get(key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *fakeStore) Set(key, value string) error {
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *fakeStore) Remove(key string) error {
	delete(s.data, key)
	return nil
}

func (s *fakeStore) storedLines(t *testing.T, key string) []Line {
	t.Helper()
	raw, ok := s.data[key]
	require.True(t, ok, "expected key %s to be written", key)
	lines, err := decodeSnapshot(raw)
	require.NoError(t, err)
	return lines
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", log.LstdFlags)
}

func newTestEngine(store *fakeStore) *Engine {
	return New(store, testLogger(), DefaultKeys())
}

func TestAddLineValidation(t *testing.T) {
	tests := map[string]struct {
		input    LineInput
		quantity int
	}{
		"missing product id": {
			input:    LineInput{Price: 100},
			quantity: 1,
		},
		"zero price": {
			input:    LineInput{ProductID: "P1", Price: 0},
			quantity: 1,
		},
		"negative price": {
			input:    LineInput{ProductID: "P1", Price: -5},
			quantity: 1,
		},
		"zero quantity": {
			input:    LineInput{ProductID: "P1", Price: 100},
			quantity: 0,
		},
		"negative quantity": {
			input:    LineInput{ProductID: "P1", Price: 100},
			quantity: -2,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			eng := newTestEngine(store)

			res := eng.AddLine(tc.input, tc.quantity)

			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
			assert.Empty(t, eng.State().Lines, "no partial mutation on validation failure")
			assert.Zero(t, store.sets, "nothing persisted on validation failure")
		})
	}
}

func TestAddLineMergesDuplicates(t *testing.T) {
	eng := newTestEngine(newFakeStore())

	require.True(t, eng.AddLine(LineInput{ProductID: "P1", Title: "Tee", Price: 10}, 1).Success)
	// second add carries a different (stale) price; the existing line wins
	require.True(t, eng.AddLine(LineInput{ProductID: "P1", Title: "Tee v2", Price: 99}, 2).Success)

	st := eng.State()
	require.Len(t, st.Lines, 1)
	assert.Equal(t, "P1", st.Lines[0].LineID)
	assert.Equal(t, 3, st.Lines[0].Quantity)
	assert.Equal(t, int64(10), st.Lines[0].Price)
	assert.Equal(t, "Tee", st.Lines[0].Title)
}

func TestAddLineVariantsAreDistinct(t *testing.T) {
	eng := newTestEngine(newFakeStore())

	require.True(t, eng.AddLine(LineInput{ProductID: "P1", Price: 10, SelectedVariant: &Variant{Size: "M"}}, 1).Success)
	require.True(t, eng.AddLine(LineInput{ProductID: "P1", Price: 10, SelectedVariant: &Variant{Size: "L"}}, 1).Success)

	st := eng.State()
	require.Len(t, st.Lines, 2)
	assert.Equal(t, "P1-size-M", st.Lines[0].LineID)
	assert.Equal(t, "P1-size-L", st.Lines[1].LineID)
}

func TestUpdateQuantity(t *testing.T) {
	tests := map[string]struct {
		quantity  int
		wantLines int
		wantQty   int
	}{
		"sets exact quantity":   {quantity: 5, wantLines: 1, wantQty: 5},
		"zero removes line":     {quantity: 0, wantLines: 0},
		"negative removes line": {quantity: -5, wantLines: 0},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			eng := newTestEngine(newFakeStore())
			require.True(t, eng.AddLine(LineInput{ProductID: "P1", Price: 10}, 2).Success)

			res := eng.UpdateQuantity("P1", tc.quantity)

			require.True(t, res.Success)
			st := eng.State()
			require.Len(t, st.Lines, tc.wantLines)
			if tc.wantLines > 0 {
				assert.Equal(t, tc.wantQty, st.Lines[0].Quantity)
			}
		})
	}

	t.Run("missing line is a no-op success", func(t *testing.T) {
		eng := newTestEngine(newFakeStore())
		res := eng.UpdateQuantity("nope", 3)
		assert.True(t, res.Success)
		assert.Empty(t, eng.State().Lines)
	})
}

func TestRemoveLineIdempotent(t *testing.T) {
	eng := newTestEngine(newFakeStore())
	require.True(t, eng.AddLine(LineInput{ProductID: "P1", Price: 10}, 1).Success)

	require.True(t, eng.RemoveLine("P1").Success)
	first := eng.State()

	res := eng.RemoveLine("P1")

	assert.True(t, res.Success, "second removal still reports success")
	assert.Equal(t, first, eng.State())
}

func TestDerivedTotals(t *testing.T) {
	eng := newTestEngine(newFakeStore())
	require.True(t, eng.AddLine(LineInput{ProductID: "A", Price: 100}, 2).Success)
	require.True(t, eng.AddLine(LineInput{ProductID: "B", Price: 50}, 1).Success)

	st := eng.State()
	assert.Equal(t, int64(250), st.Subtotal)
	assert.Equal(t, 3, st.ItemsCount)
}

func TestHydrationRoundTrip(t *testing.T) {
	store := newFakeStore()

	eng := newTestEngine(store)
	require.True(t, eng.AddLine(LineInput{ProductID: "A", Title: "Hat", Price: 999, Image: "hat.png"}, 2).Success)
	require.True(t, eng.AddLine(LineInput{ProductID: "B", Price: 50, SelectedVariant: &Variant{Size: "M"}}, 1).Success)
	want := eng.State()

	// a page reload constructs a fresh engine over the same store
	reloaded := newTestEngine(store)

	assert.Equal(t, want, reloaded.State())
}

func TestHydrationMalformedDataYieldsEmptyCart(t *testing.T) {
	tests := map[string]string{
		"garbage":             "not json at all",
		"wrong shape":         `{"schemaVersion":1,"lines":"nope"}`,
		"unsupported version": `{"schemaVersion":99,"lines":[]}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			store.data[DefaultKeys().Session] = raw

			eng := newTestEngine(store)

			assert.Empty(t, eng.State().Lines)
		})
	}
}

func TestHydrationAcceptsLegacyArrayLayout(t *testing.T) {
	store := newFakeStore()
	legacy := []Line{{LineID: "A", ProductID: "A", Price: 100, Quantity: 2}}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	store.data[DefaultKeys().Session] = string(raw)

	eng := newTestEngine(store)

	assert.Equal(t, legacy, eng.State().Lines)
}

func TestIdentityAdoption(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(store)
	require.True(t, eng.AddLine(LineInput{ProductID: "A", Price: 100}, 1).Success)

	eng.SetIdentity(&identity.Identity{ID: "U1"})

	// the anonymous cart is carried into the new identity's slot, not discarded
	lines := store.storedLines(t, "cart:U1")
	require.Len(t, lines, 1)
	assert.Equal(t, "A", lines[0].LineID)
	assert.Len(t, eng.State().Lines, 1)
}

func TestIdentityReplace(t *testing.T) {
	store := newFakeStore()

	// U2 shopped before: their stored cart is authoritative
	prior := newTestEngine(store)
	prior.SetIdentity(&identity.Identity{ID: "U2"})
	require.True(t, prior.AddLine(LineInput{ProductID: "OLD", Price: 500}, 1).Success)

	store2 := newFakeStore()
	store2.data["cart:U2"] = store.data["cart:U2"]
	eng := newTestEngine(store2)
	require.True(t, eng.AddLine(LineInput{ProductID: "ANON", Price: 100}, 1).Success)

	eng.SetIdentity(&identity.Identity{ID: "U2"})

	st := eng.State()
	require.Len(t, st.Lines, 1, "prior cart replaces, never merges")
	assert.Equal(t, "OLD", st.Lines[0].LineID)

	// session slot is overwritten to match
	sessionLines := store2.storedLines(t, DefaultKeys().Session)
	require.Len(t, sessionLines, 1)
	assert.Equal(t, "OLD", sessionLines[0].LineID)
}

func TestSignOutKeepsSessionCart(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(store)
	eng.SetIdentity(&identity.Identity{ID: "U1"})
	require.True(t, eng.AddLine(LineInput{ProductID: "A", Price: 100}, 1).Success)

	eng.SetIdentity(nil)

	assert.Len(t, eng.State().Lines, 1, "logged-out visitor still sees their items")

	// mutations after sign-out stop touching the identity slot
	identityBefore := store.data["cart:U1"]
	require.True(t, eng.AddLine(LineInput{ProductID: "B", Price: 50}, 1).Success)
	assert.Equal(t, identityBefore, store.data["cart:U1"])
	assert.Len(t, store.storedLines(t, DefaultKeys().Session), 2)
}

func TestPersistenceFailureIsolation(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("quota exceeded")
	eng := newTestEngine(store)

	res := eng.AddLine(LineInput{ProductID: "A", Price: 999}, 1)

	assert.True(t, res.Success, "in-memory state stays authoritative when the store fails")
	st := eng.State()
	require.Len(t, st.Lines, 1)
	assert.Equal(t, int64(999), st.Subtotal)
}

func TestSubscribeNotifiesOnMutation(t *testing.T) {
	eng := newTestEngine(newFakeStore())

	var got []State
	unsubscribe := eng.Subscribe(func(st State) { got = append(got, st) })

	require.True(t, eng.AddLine(LineInput{ProductID: "A", Price: 100}, 1).Success)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ItemsCount)

	unsubscribe()
	require.True(t, eng.AddLine(LineInput{ProductID: "B", Price: 50}, 1).Success)
	assert.Len(t, got, 1, "no notifications after unsubscribe")
}

func TestBindProviderAppliesTransitions(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(store)
	require.True(t, eng.AddLine(LineInput{ProductID: "A", Price: 100}, 1).Success)

	provider := identity.NewManualProvider()
	release := eng.BindProvider(provider)
	defer release()

	provider.SetIdentity(&identity.Identity{ID: "U9"})

	assert.Equal(t, "U9", eng.IdentityID())
	assert.Len(t, store.storedLines(t, "cart:U9"), 1)
}

func TestEndToEndScenario(t *testing.T) {
	eng := newTestEngine(newFakeStore())

	require.True(t, eng.AddLine(LineInput{ProductID: "A", Price: 999}, 1).Success)
	st := eng.State()
	assert.Equal(t, 1, st.ItemsCount)
	assert.Equal(t, int64(999), st.Subtotal)

	require.True(t, eng.AddLine(LineInput{ProductID: "A", Price: 999}, 1).Success)
	st = eng.State()
	assert.Equal(t, 2, st.ItemsCount)
	assert.Equal(t, int64(1998), st.Subtotal)

	require.True(t, eng.UpdateQuantity("A", 1).Success)
	assert.Equal(t, 1, eng.State().ItemsCount)

	require.True(t, eng.RemoveLine("A").Success)
	assert.Empty(t, eng.State().Lines)
}
