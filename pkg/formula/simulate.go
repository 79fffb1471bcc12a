package formula

// Simulation is the result of a full run over a batch of cells
type Simulation struct {
	Steps   int
	Order   []string
	CycleAt string
	Blocked []string
	History History
}

// Simulate orders and evaluates a batch with the default evaluator
func Simulate(cells []CellFormula, steps int, opts RunOptions) *Simulation {
	return DefaultEvaluator.Simulate(cells, steps, opts)
}

// Simulate resolves the evaluation order of the cells and runs them for the
// given number of steps. Cells on or behind a dependency cycle hold a cycle
// Error at every step; the remaining cells are evaluated normally.
func (e *Evaluator) Simulate(cells []CellFormula, steps int, opts RunOptions) *Simulation {
	text := make(map[string]string, len(cells))
	for _, c := range cells {
		text[c.ID] = c.Formula
	}
	res := Resolve(cells)
	history := e.EvaluateCells(res.Cells, steps, func(id string) string {
		return text[id]
	}, opts)

	if res.Error {
		cycle := Error{Message: (&CycleError{CellID: res.CycleAt}).Error()}
		for _, id := range res.Blocked {
			for step := 0; step < steps; step++ {
				history.Append(id, cycle)
			}
		}
	}
	return &Simulation{
		Steps:   steps,
		Order:   res.Cells,
		CycleAt: res.CycleAt,
		Blocked: res.Blocked,
		History: history,
	}
}

// Final returns the last recorded value of every cell
func (s *Simulation) Final() map[string]Value {
	final := make(map[string]Value, len(s.History))
	for id, values := range s.History {
		if len(values) > 0 {
			final[id] = values[len(values)-1]
		}
	}
	return final
}
