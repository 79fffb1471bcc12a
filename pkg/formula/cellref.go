package formula

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// cellPattern recognizes a cell reference among identifier tokens. The
// dependency resolver and the parser both go through isCellReference so the
// two never disagree on what a reference is.
var cellPattern = regexp.MustCompile(`^\$?[A-Z]{1,2}\$?\d+$`)

// cellIDPattern splits a plain CellId into column letters and row digits
var cellIDPattern = regexp.MustCompile(`^([A-Z]+)([0-9]+)$`)

// Coords is a zero-based cell position
type Coords struct {
	Row int
	Col int
}

func isCellReference(ident string) bool {
	return cellPattern.MatchString(ident)
}

// ColumnIndexToText converts a zero-based column index to its bijective
// base-26 letters: 0 -> "A", 25 -> "Z", 26 -> "AA".
func ColumnIndexToText(n int) string {
	if n < 0 {
		return ""
	}
	var buf []byte
	for n >= 0 {
		buf = append(buf, byte('A'+n%26))
		n = n/26 - 1
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// ColumnTextToIndex is the inverse of ColumnIndexToText
func ColumnTextToIndex(text string) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("empty column text")
	}
	n := 0
	for _, ch := range strings.ToUpper(text) {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column text %q", text)
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, nil
}

// CellCoordsToID renders zero-based coordinates as a CellId such as "B12"
func CellCoordsToID(c Coords) string {
	return ColumnIndexToText(c.Col) + strconv.Itoa(c.Row+1)
}

// CellIDToCoords parses a CellId. Anchors ("$") are ignored.
func CellIDToCoords(id string) (Coords, error) {
	m := cellIDPattern.FindStringSubmatch(strings.ToUpper(strings.ReplaceAll(id, "$", "")))
	if m == nil {
		return Coords{}, fmt.Errorf("invalid cell id %q", id)
	}
	col, err := ColumnTextToIndex(m[1])
	if err != nil {
		return Coords{}, err
	}
	row, err := strconv.Atoi(m[2])
	if err != nil || row < 1 {
		return Coords{}, fmt.Errorf("invalid row in cell id %q", id)
	}
	return Coords{Row: row - 1, Col: col}, nil
}

// SortCellIDs orders ids row-major (A1, B1, A2). Unparseable ids go last, lexically.
func SortCellIDs(ids []string) {
	slices.SortFunc(ids, func(a, b string) int {
		ca, errA := CellIDToCoords(a)
		cb, errB := CellIDToCoords(b)
		switch {
		case errA != nil && errB != nil:
			return strings.Compare(a, b)
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		if c := cmp.Compare(ca.Row, cb.Row); c != 0 {
			return c
		}
		return cmp.Compare(ca.Col, cb.Col)
	})
}

// parseCellAxes splits an anchored reference like "$B$12" into its axes
func parseCellAxes(ref string) (CellLiteral, error) {
	var lit CellLiteral
	i := 0
	if i < len(ref) && ref[i] == '$' {
		lit.Col.Fixed = true
		i++
	}
	start := i
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	col, err := ColumnTextToIndex(ref[start:i])
	if err != nil {
		return lit, err
	}
	if i < len(ref) && ref[i] == '$' {
		lit.Row.Fixed = true
		i++
	}
	row, err := strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return lit, fmt.Errorf("invalid row in cell reference %q", ref)
	}
	lit.Col.Index = col
	lit.Row.Index = row - 1
	return lit, nil
}
