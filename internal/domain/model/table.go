// Package model contains domain models passed between layers.
package model

import (
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Cell is one survey answer. Invalid cells are missing values.
type Cell = null.String

// Table is a raw survey export: one row per respondent, one column per
// gene x question x track. Rows may be shorter than Headers; absent
// trailing cells read as missing.
type Table struct {
	Headers []string
	Rows    [][]Cell
}

// NewTable builds a Table from plain strings, treating empty strings as missing.
func NewTable(headers []string, rows [][]string) Table {
	t := Table{
		Headers: append([]string(nil), headers...),
		Rows:    make([][]Cell, len(rows)),
	}
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = null.NewString(v, v != "")
		}
		t.Rows[i] = cells
	}
	return t
}

// Len returns the number of respondent rows.
func (t Table) Len() int { return len(t.Rows) }

// At returns the cell at row r, column c. Out-of-range positions are missing.
func (t Table) At(r, c int) Cell {
	if r < 0 || r >= len(t.Rows) {
		return null.String{}
	}
	row := t.Rows[r]
	if c < 0 || c >= len(row) {
		return null.String{}
	}
	return row[c]
}

// ColumnIndex maps each header to its first column position.
func (t Table) ColumnIndex() map[string]int {
	idx := make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

// IsBlank reports whether c is missing or only whitespace.
func IsBlank(c Cell) bool {
	return !c.Valid || strings.TrimSpace(c.String) == ""
}
