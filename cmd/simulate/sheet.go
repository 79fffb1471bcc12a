package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/maps"

	"github.com/ilramdhan/stepsheet/internal/modules/simulation"
	"github.com/ilramdhan/stepsheet/pkg/formula"
)

// sheetFile is the on-disk TOML layout of a sheet:
//
//	name  = "Savings"
//	steps = 12
//
//	[constants]
//	rate = "0.05 / 12"
//
//	[cells]
//	A1 = "=1000=A1*(1+RATE)"
//
//	[series]
//	B1 = [1, 2, 3]
type sheetFile struct {
	Name      string                   `toml:"name"`
	Steps     int                      `toml:"steps"`
	Cells     map[string]string        `toml:"cells"`
	Constants map[string]string        `toml:"constants"`
	Series    map[string][]interface{} `toml:"series"`
}

func loadSheet(path string) (*sheetFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return parseSheet(data)
}

func parseSheet(data []byte) (*sheetFile, error) {
	var sheet sheetFile
	if err := toml.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("failed to decode sheet: %w", err)
	}
	if len(sheet.Cells) == 0 {
		return nil, fmt.Errorf("sheet has no [cells]")
	}
	return &sheet, nil
}

// seriesText renders TOML series values the way a user would have typed them
func (s *sheetFile) seriesText() map[string][]string {
	out := make(map[string][]string, len(s.Series))
	for id, values := range s.Series {
		texts := make([]string, len(values))
		for i, v := range values {
			switch v := v.(type) {
			case string:
				texts[i] = v
			case int64:
				texts[i] = strconv.FormatInt(v, 10)
			case float64:
				texts[i] = strconv.FormatFloat(v, 'g', -1, 64)
			case bool:
				texts[i] = strings.ToUpper(strconv.FormatBool(v))
			default:
				texts[i] = fmt.Sprint(v)
			}
		}
		out[id] = texts
	}
	return out
}

func (s *sheetFile) simulate(engine *simulation.SimulationEngine, steps int) (*formula.Simulation, error) {
	if steps <= 0 {
		steps = s.Steps
	}
	if steps <= 0 {
		steps = 1
	}
	return engine.Evaluate(s.Cells, s.Constants, steps, s.seriesText())
}

// writeTable prints one row per step with a column per cell
func writeTable(w io.Writer, sim *formula.Simulation) error {
	ids := maps.Keys(sim.History)
	formula.SortCellIDs(ids)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "step\t%s\n", strings.Join(ids, "\t"))
	for step := 0; step < sim.Steps; step++ {
		row := make([]string, len(ids))
		for i, id := range ids {
			if v, ok := sim.History.ValueAtStep(id, step); ok {
				row[i] = formula.FormatValue(v)
			}
		}
		fmt.Fprintf(tw, "%d\t%s\n", step, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if sim.CycleAt != "" {
		fmt.Fprintf(w, "\ncycle at %s, blocked: %s\n", sim.CycleAt, strings.Join(sim.Blocked, ", "))
	}
	return nil
}
