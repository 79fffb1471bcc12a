package simulation

import (
	"fmt"
	"io"
	"strconv"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
	"golang.org/x/exp/maps"

	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/pkg/formula"
)

const (
	historySheet = "History"
	cellsSheet   = "Cells"
)

// WriteWorkbook exports a run as an .xlsx workbook: one History sheet with a
// row per step and a column per cell, and a Cells sheet with each formula and
// its final value.
func WriteWorkbook(w io.Writer, project *entity.Project, run *entity.SimulationRun, entries []*entity.HistoryEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(cellsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	byCell := make(map[string]map[int]*entity.HistoryEntry)
	for _, e := range entries {
		if byCell[e.CellID] == nil {
			byCell[e.CellID] = make(map[int]*entity.HistoryEntry)
		}
		byCell[e.CellID][e.Step] = e
	}
	ids := maps.Keys(byCell)
	formula.SortCellIDs(ids)

	if err := setRow(f, historySheet, 1, append([]interface{}{"Step"}, lo.ToAnySlice(ids)...)); err != nil {
		return err
	}
	for step := 0; step < run.Steps; step++ {
		row := []interface{}{step}
		for _, id := range ids {
			row = append(row, cellValue(byCell[id][step]))
		}
		if err := setRow(f, historySheet, step+2, row); err != nil {
			return err
		}
	}

	if err := setRow(f, cellsSheet, 1, []interface{}{"Cell", "Formula", "Final", "Kind"}); err != nil {
		return err
	}
	for i, id := range ids {
		final := byCell[id][run.Steps-1]
		kind := ""
		if final != nil {
			kind = final.Kind
		}
		row := []interface{}{id, project.Cells[id], cellValue(final), kind}
		if err := setRow(f, cellsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// cellValue keeps numbers numeric in the workbook so they can be charted
func cellValue(e *entity.HistoryEntry) interface{} {
	if e == nil {
		return nil
	}
	if e.Kind == formula.KindNumber.String() {
		if n, err := strconv.ParseFloat(e.Display, 64); err == nil {
			return n
		}
	}
	return e.Display
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to address cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
