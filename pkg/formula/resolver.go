package formula

// CellFormula is the raw text of one cell, formula or literal
type CellFormula struct {
	ID      string
	Formula string
}

// Resolution is the outcome of ordering a batch of cells. When Error is set,
// Cells holds the acyclic part in evaluation order and Blocked lists the cells
// on a cycle or depending on one.
type Resolution struct {
	Cells   []string
	Error   bool
	CycleAt string
	Blocked []string
}

// References extracts the cells a formula reads, in order of appearance and
// without duplicates. Ranges expand to every cell they cover, except ranges
// larger than MaxRangeCells which contribute their two corners. Text that is
// not a formula, or fails to lex, references nothing.
func References(text string) []string {
	seen := make(map[string]bool)
	var refs []string
	add := func(c Coords) {
		if id := CellCoordsToID(c); !seen[id] {
			seen[id] = true
			refs = append(refs, id)
		}
	}
	for _, span := range referenceSpans(text) {
		if span.Area() > MaxRangeCells {
			add(Coords{Row: span.Row1, Col: span.Col1})
			add(Coords{Row: span.Row2, Col: span.Col2})
			continue
		}
		for _, c := range span.Cells() {
			add(c)
		}
	}
	return refs
}

// referenceSpans lists the references of a formula as ranges, a single cell
// being a one-cell range
func referenceSpans(text string) []CellRange {
	if !IsFormula(text) {
		return nil
	}
	f := GetFormula(text)
	var spans []CellRange
	for _, part := range []string{f.Default, f.Primary} {
		tokens, err := Tokenize(part)
		if err != nil {
			continue
		}
		for i := 0; i < len(tokens); i++ {
			left, ok := cellToken(tokens[i])
			if !ok {
				continue
			}
			span := CellRange{Col1: left.Col, Row1: left.Row, Col2: left.Col, Row2: left.Row}
			if i+2 < len(tokens) && tokens[i+1].Kind == TokenColon {
				if right, ok := cellToken(tokens[i+2]); ok {
					span.Col2, span.Row2 = right.Col, right.Row
					i += 2
				}
			}
			spans = append(spans, span)
		}
	}
	return spans
}

func cellToken(tok Token) (Coords, bool) {
	if tok.Kind != TokenIdentifier || !isCellReference(tok.Text) {
		return Coords{}, false
	}
	lit, err := parseCellAxes(tok.Text)
	if err != nil {
		return Coords{}, false
	}
	return lit.Coords(), true
}

type batchCell struct {
	id  string
	pos Coords
}

// dependencyGraph maps each cell to the cells of the batch it reads, never
// itself. References to cells outside the batch are dropped. A range larger
// than the batch is matched against the batch cells instead of being expanded.
func dependencyGraph(cells []CellFormula) map[string][]string {
	present := make(map[string]bool, len(cells))
	located := make([]batchCell, 0, len(cells))
	for _, c := range cells {
		present[c.ID] = true
		if pos, err := CellIDToCoords(c.ID); err == nil && CellCoordsToID(pos) == c.ID {
			located = append(located, batchCell{id: c.ID, pos: pos})
		}
	}

	graph := make(map[string][]string, len(cells))
	for _, c := range cells {
		seen := map[string]bool{c.ID: true}
		deps := []string{}
		add := func(id string) {
			if present[id] && !seen[id] {
				seen[id] = true
				deps = append(deps, id)
			}
		}
		for _, span := range referenceSpans(c.Formula) {
			if span.Area() <= float64(len(cells)) {
				for _, pos := range span.Cells() {
					add(CellCoordsToID(pos))
				}
				continue
			}
			for _, bc := range located {
				if span.Contains(bc.pos) {
					add(bc.id)
				}
			}
		}
		graph[c.ID] = deps
	}
	return graph
}

// ResolveOrder returns an evaluation order in which every cell comes after
// the cells it reads, or a *CycleError naming the cell where a cycle was found
func ResolveOrder(cells []CellFormula) ([]string, error) {
	graph := dependencyGraph(cells)
	const (
		visiting = 1
		visited  = 2
	)
	state := make(map[string]int, len(cells))
	order := make([]string, 0, len(cells))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return &CycleError{CellID: id}
		case visited:
			return nil
		}
		state[id] = visiting
		for _, dep := range graph[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = visited
		order = append(order, id)
		return nil
	}

	for _, c := range cells {
		if err := visit(c.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Resolve orders a batch without failing on cycles. Cells that cannot be
// ordered are reported in Blocked so callers can mark them as errored and
// still evaluate the rest.
func Resolve(cells []CellFormula) Resolution {
	order, err := ResolveOrder(cells)
	if err == nil {
		return Resolution{Cells: order}
	}
	res := Resolution{Error: true}
	if cycle, ok := err.(*CycleError); ok {
		res.CycleAt = cycle.CellID
	}

	graph := dependencyGraph(cells)
	pending := make(map[string]int, len(cells))
	dependents := make(map[string][]string, len(cells))
	for _, c := range cells {
		pending[c.ID] = len(graph[c.ID])
		for _, dep := range graph[c.ID] {
			dependents[dep] = append(dependents[dep], c.ID)
		}
	}

	var queue []string
	for _, c := range cells {
		if pending[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}
	done := make(map[string]bool, len(cells))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		done[id] = true
		res.Cells = append(res.Cells, id)
		for _, next := range dependents[id] {
			pending[next]--
			if pending[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	for _, c := range cells {
		if !done[c.ID] {
			res.Blocked = append(res.Blocked, c.ID)
		}
	}
	return res
}
