// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package coordinates

import (
	"strconv"
	"strings"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/tables"
)

// normalizedGrid is a grid reduced to a usable header and data rows: the
// header anchor has been located, duplicate and blank columns removed, and
// the axis columns moved to the front.
type normalizedGrid struct {
	columns []string
	rows    [][]string
}

// headerKey is the identity under which column headers are compared.
func headerKey(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// axisSuperset reports whether the cells contain all of x, y and z.
func axisSuperset(cells []string) bool {
	found := make(map[string]bool, 3)
	for _, cell := range cells {
		switch headerKey(cell) {
		case "x", "y", "z":
			found[headerKey(cell)] = true
		}
	}
	return found["x"] && found["y"] && found["z"]
}

// normalizeGrid locates the header row and reshapes the grid around it.
//
// The anchor is the first of the top five rows whose cells include x, y and
// z. Each column's effective header is the nearest non-blank cell at or
// above the anchor, else the declared column label; rows below the anchor
// are the data. Without an anchor the declared column labels themselves must
// carry x, y and z, in which case only those labels are renamed and every
// row is data. Returns false when neither form matches.
func normalizeGrid(grid tables.Grid) (*normalizedGrid, bool) {
	columns := append([]string(nil), grid.Columns...)
	var rows [][]string

	anchor := -1
	limit := len(grid.Rows)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		if axisSuperset(grid.Rows[i]) {
			anchor = i
			break
		}
	}

	switch {
	case anchor >= 0:
		for j := range columns {
			for r := anchor; r >= 0; r-- {
				if j < len(grid.Rows[r]) && strings.TrimSpace(grid.Rows[r][j]) != "" {
					columns[j] = grid.Rows[r][j]
					break
				}
			}
		}
		rows = grid.Rows[anchor+1:]
	case axisSuperset(columns):
		for j, col := range columns {
			switch headerKey(col) {
			case "x", "y", "z":
				columns[j] = headerKey(col)
			}
		}
		rows = grid.Rows
	default:
		return nil, false
	}

	columns, rows = dropDuplicateColumns(columns, rows)
	columns, rows = dropBlankColumns(columns, rows)
	columns, rows = axesFirst(columns, rows)
	return &normalizedGrid{columns: columns, rows: rows}, true
}

// dropDuplicateColumns keeps the first column for each header identity.
func dropDuplicateColumns(columns []string, rows [][]string) ([]string, [][]string) {
	seen := make(map[string]bool, len(columns))
	var keep []int
	for j, col := range columns {
		key := headerKey(col)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, j)
	}
	return project(columns, rows, keep)
}

// dropBlankColumns removes columns whose every data cell is blank.
func dropBlankColumns(columns []string, rows [][]string) ([]string, [][]string) {
	var keep []int
	for j := range columns {
		blank := true
		for _, row := range rows {
			if j < len(row) && strings.TrimSpace(row[j]) != "" {
				blank = false
				break
			}
		}
		if !blank {
			keep = append(keep, j)
		}
	}
	return project(columns, rows, keep)
}

// axesFirst reorders so x, y, z lead when all three are present; the other
// columns keep their relative order.
func axesFirst(columns []string, rows [][]string) ([]string, [][]string) {
	index := make(map[string]int, len(columns))
	for j, col := range columns {
		key := headerKey(col)
		if _, ok := index[key]; !ok {
			index[key] = j
		}
	}
	xi, xok := index["x"]
	yi, yok := index["y"]
	zi, zok := index["z"]
	if !xok || !yok || !zok {
		return columns, rows
	}
	order := []int{xi, yi, zi}
	for j := range columns {
		if j != xi && j != yi && j != zi {
			order = append(order, j)
		}
	}
	return project(columns, rows, order)
}

// project rebuilds columns and rows from the given column index order.
// Missing cells project to blanks.
func project(columns []string, rows [][]string, order []int) ([]string, [][]string) {
	newColumns := make([]string, len(order))
	for i, j := range order {
		newColumns[i] = columns[j]
	}
	newRows := make([][]string, len(rows))
	for r, row := range rows {
		newRow := make([]string, len(order))
		for i, j := range order {
			if j < len(row) {
				newRow[i] = row[j]
			}
		}
		newRows[r] = newRow
	}
	return newColumns, newRows
}

// triples coerces the leading axis columns of every data row, silently
// dropping rows where any of the three fails to parse.
func (g *normalizedGrid) triples() [][]float64 {
	if len(g.columns) < 3 ||
		headerKey(g.columns[0]) != "x" ||
		headerKey(g.columns[1]) != "y" ||
		headerKey(g.columns[2]) != "z" {
		return nil
	}
	var out [][]float64
	for _, row := range g.rows {
		triple := make([]float64, 3)
		ok := true
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				ok = false
				break
			}
			triple[i] = v
		}
		if ok {
			out = append(out, triple)
		}
	}
	return out
}

// headerText is the space-joined header line used for space inference.
func (g *normalizedGrid) headerText() string {
	return strings.Join(g.columns, " ")
}
