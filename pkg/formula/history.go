package formula

// History maps a CellId to the values computed for it, index i holding the
// value of step i. It is append-only during an evaluation run.
type History map[string][]Value

// NewHistory creates an empty history
func NewHistory() History {
	return make(History)
}

// Append records the value for the next step of a cell
func (h History) Append(id string, v Value) {
	h[id] = append(h[id], v)
}

// ValueAtStep returns the value computed for a cell at exactly that step
func (h History) ValueAtStep(id string, step int) (Value, bool) {
	values := h[id]
	if step < 0 || step >= len(values) {
		return nil, false
	}
	return values[step], true
}

// LastCommittedBefore returns the newest value recorded for a step earlier
// than the given one
func (h History) LastCommittedBefore(id string, step int) (Value, bool) {
	values := h[id]
	if step > len(values) {
		step = len(values)
	}
	if step <= 0 {
		return nil, false
	}
	return values[step-1], true
}

// Len is the number of steps recorded for a cell
func (h History) Len(id string) int {
	return len(h[id])
}

// Has reports whether any value was recorded for a cell
func (h History) Has(id string) bool {
	return len(h[id]) > 0
}
