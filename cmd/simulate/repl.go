package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/exp/maps"

	"github.com/ilramdhan/stepsheet/internal/modules/simulation"
	"github.com/ilramdhan/stepsheet/pkg/formula"
)

const (
	historyFile = ".stepsheet_history"
	promptMain  = "sheet> "
)

var errQuit = errors.New("quit")

// session is the mutable sheet behind the REPL
type session struct {
	engine *simulation.SimulationEngine
	sheet  *sheetFile
	steps  int
}

func newSession(engine *simulation.SimulationEngine, sheet *sheetFile, steps int) *session {
	if sheet == nil {
		sheet = &sheetFile{}
	}
	if sheet.Cells == nil {
		sheet.Cells = make(map[string]string)
	}
	if steps <= 0 {
		steps = sheet.Steps
	}
	if steps <= 0 {
		steps = 5
	}
	return &session{engine: engine, sheet: sheet, steps: steps}
}

// exec handles one input line. Assignments look like "A1 = <text>"; an empty
// right-hand side clears the cell.
func (s *session) exec(line string, out io.Writer) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, ":") {
		return s.command(strings.Fields(line), out)
	}

	id, text, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("expected <cell> = <formula>, or a :command")
	}
	coords, err := formula.CellIDToCoords(strings.TrimSpace(id))
	if err != nil {
		return err
	}
	key := formula.CellCoordsToID(coords)
	text = strings.TrimSpace(text)
	if text == "" {
		delete(s.sheet.Cells, key)
		fmt.Fprintf(out, "%s cleared\n", key)
		return nil
	}

	if formula.IsFormula(text) {
		if report := formula.Lint(text); !report.Valid() {
			writeLint(out, report)
		}
	}
	s.sheet.Cells[key] = text
	return s.run(out, key)
}

func (s *session) command(fields []string, out io.Writer) error {
	switch strings.ToLower(fields[0]) {
	case ":quit", ":q":
		return errQuit
	case ":step", ":steps":
		if len(fields) < 2 {
			fmt.Fprintf(out, "steps = %d\n", s.steps)
			return nil
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return fmt.Errorf("step count must be a positive integer")
		}
		s.steps = n
		return nil
	case ":run":
		if len(s.sheet.Cells) == 0 {
			fmt.Fprintln(out, "sheet is empty")
			return nil
		}
		sim, err := s.sheet.simulate(s.engine, s.steps)
		if err != nil {
			return err
		}
		return writeTable(out, sim)
	case ":show":
		ids := maps.Keys(s.sheet.Cells)
		formula.SortCellIDs(ids)
		for _, id := range ids {
			fmt.Fprintf(out, "%s = %s\n", id, s.sheet.Cells[id])
		}
		return nil
	case ":lint":
		if len(fields) < 2 {
			return fmt.Errorf("usage: :lint <cell>")
		}
		text, ok := s.sheet.Cells[strings.ToUpper(fields[1])]
		if !ok {
			return fmt.Errorf("cell %s is empty", strings.ToUpper(fields[1]))
		}
		writeLint(out, formula.Lint(text))
		return nil
	case ":const":
		if len(fields) < 3 {
			return fmt.Errorf("usage: :const <name> <expression>")
		}
		if s.sheet.Constants == nil {
			s.sheet.Constants = make(map[string]string)
		}
		s.sheet.Constants[fields[1]] = strings.Join(fields[2:], " ")
		return nil
	case ":help":
		fmt.Fprintln(out, "A1 = <formula>   set a cell (empty clears it)")
		fmt.Fprintln(out, ":step N          set the number of steps")
		fmt.Fprintln(out, ":run             print every step")
		fmt.Fprintln(out, ":show            list cell formulas")
		fmt.Fprintln(out, ":lint A1         check a cell's formula")
		fmt.Fprintln(out, ":const NAME EXPR define a constant")
		fmt.Fprintln(out, ":quit            exit")
		return nil
	default:
		return fmt.Errorf("unknown command %s, type :help", fields[0])
	}
}

// run evaluates the sheet and prints the final value of one cell
func (s *session) run(out io.Writer, id string) error {
	sim, err := s.sheet.simulate(s.engine, s.steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s = %s\n", id, formula.FormatValue(sim.Final()[id]))
	return nil
}

func writeLint(out io.Writer, report *formula.LintReport) {
	if report.ParseError != "" {
		fmt.Fprintf(out, "parse error: %s\n", report.ParseError)
	}
	for _, issue := range report.Unknown {
		if issue.Suggestion != "" {
			fmt.Fprintf(out, "unknown function %s, did you mean %s?\n", issue.Name, issue.Suggestion)
		} else {
			fmt.Fprintf(out, "unknown function %s\n", issue.Name)
		}
	}
	if report.Valid() {
		fmt.Fprintf(out, "ok: functions %v, references %v\n", report.Functions, report.References)
	}
}

func runRepl(engine *simulation.SimulationEngine, sheet *sheetFile, steps int) int {
	fmt.Println("stepsheet REPL. Type :help for commands, :quit to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	s := newSession(engine, sheet, steps)
	for {
		line, err := ln.Prompt(promptMain)
		if err != nil {
			// io.EOF or liner.ErrPromptAborted
			fmt.Println()
			return 0
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)

		if err := s.exec(line, os.Stdout); err != nil {
			if errors.Is(err, errQuit) {
				return 0
			}
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}
