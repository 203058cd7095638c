package cart

// Variant holds the selected variant dimensions for a line. Size is the only
// dimension the storefront sells today.
type Variant struct {
	Size string `json:"size,omitempty"`
}

// Line is one purchasable entry in the cart, keyed by LineID. Price is the
// unit price in currency minor units.
type Line struct {
	LineID          string   `json:"lineId"`
	ProductID       string   `json:"productId"`
	Title           string   `json:"title"`
	Price           int64    `json:"price"`
	Image           string   `json:"image"`
	SelectedVariant *Variant `json:"selectedVariant,omitempty"`
	Quantity        int      `json:"quantity"`
}

// LineID derives the merge/lookup key for a product plus its selected variant:
// the bare product ID, or productId-size-<size> when a size is chosen.
func LineID(productID string, v *Variant) string {
	if v != nil && v.Size != "" {
		return productID + "-size-" + v.Size
	}
	return productID
}

// State is the engine's externally visible snapshot. Lines preserve insertion
// order; Subtotal and ItemsCount are derived, never stored.
type State struct {
	Lines      []Line `json:"lines"`
	Subtotal   int64  `json:"subtotal"`
	ItemsCount int    `json:"itemsCount"`
}

func stateOf(lines []Line) State {
	st := State{Lines: make([]Line, len(lines))}
	copy(st.Lines, lines)
	for _, ln := range lines {
		st.Subtotal += ln.Price * int64(ln.Quantity)
		st.ItemsCount += ln.Quantity
	}
	return st
}
