package main

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ilramdhan/stepsheet/internal/domain/entity"
)

// sheetKind selects one of the demo sheet templates
type sheetKind int

const (
	kindCompound sheetKind = iota
	kindRandomWalk
	kindMovingAverage
	kindCounter
	kindCount
)

var kindNames = map[sheetKind]string{
	kindCompound:      "Compound Interest",
	kindRandomWalk:    "Random Walk",
	kindMovingAverage: "Moving Average",
	kindCounter:       "Counter",
}

// demoProject builds the idx-th demo project with `rows` rows of cells.
// Moving-average sheets read column A from an imported series.
func demoProject(idx, rows, steps int, now time.Time) (*entity.Project, []*entity.DataSeries) {
	kind := sheetKind(idx % int(kindCount))
	project := &entity.Project{
		ID:          uuid.New(),
		Name:        fmt.Sprintf("%s #%d", kindNames[kind], idx),
		Description: fmt.Sprintf("Generated %s sheet with %d rows", kindNames[kind], rows),
		StepCount:   steps,
		Cells:       make(map[string]string, rows*3),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var series []*entity.DataSeries
	for r := 1; r <= rows; r++ {
		a, b, c := cell("A", r), cell("B", r), cell("C", r)
		switch kind {
		case kindCompound:
			project.Cells[a] = fmt.Sprintf("=PRINCIPAL*%d=%s*(1+MONTHLY)", r, a)
			project.Cells[b] = fmt.Sprintf("=%s-PREV(%s)", a, a)
			project.Cells[c] = fmt.Sprintf("=SUMHISTORY(%s)", b)
		case kindRandomWalk:
			project.Cells[a] = fmt.Sprintf("=0=%s+RANDBETWEEN(-1, 1)", a)
			project.Cells[b] = fmt.Sprintf("=MAX(TIMERANGE(%s))", a)
			project.Cells[c] = fmt.Sprintf("=MIN(TIMERANGE(%s))", a)
		case kindMovingAverage:
			project.Cells[b] = fmt.Sprintf("=AVERAGE(TIMERANGE(%s, 3))", a)
			project.Cells[c] = fmt.Sprintf(`=IF(%s > %s, "up", "down")`, a, b)
			series = append(series, &entity.DataSeries{
				ProjectID: project.ID,
				CellID:    a,
				Values:    waveSeries(steps, float64(r)),
				UpdatedAt: now,
			})
		case kindCounter:
			project.Cells[a] = fmt.Sprintf("=%d=%s+1", r, a)
			project.Cells[b] = fmt.Sprintf("=%s+5", a)
			project.Cells[c] = fmt.Sprintf("=%s*%s", b, a)
		}
	}

	if kind == kindCompound {
		project.Constants = map[string]string{
			"principal": strconv.Itoa(1000 + idx*10),
			"rate":      "0.05",
			"monthly":   "rate / 12",
		}
	}
	return project, series
}

func cell(col string, row int) string {
	return col + strconv.Itoa(row)
}

// waveSeries is a sine wave with a phase per row, rendered as cell text
func waveSeries(steps int, phase float64) []string {
	values := make([]string, steps)
	for i := range values {
		v := 100 + 10*math.Sin(float64(i)/3+phase)
		values[i] = strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	}
	return values
}
