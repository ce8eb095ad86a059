package sheetcalc

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Grid bounds. Positions outside this rectangle are rejected by every
// operation that takes a Position.
const (
	MaxRows = 16384
	MaxCols = 16384
)

// ErrInvalidPosition is returned for positions outside the sheet bounds.
var ErrInvalidPosition = errors.New("invalid cell position")

// Position identifies a single cell by zero-based row and column.
type Position struct {
	Row int
	Col int
}

// NewPosition creates a Position with explicit row and column.
func NewPosition(row, col int) Position {
	return Position{Row: row, Col: col}
}

// ParsePosition parses an A1-style cell name like "B12" into a Position.
func ParsePosition(name string) (Position, error) {
	col, row, err := excelize.CellNameToCoordinates(name)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, name)
	}
	pos := Position{Row: row - 1, Col: col - 1}
	if !pos.IsValid() {
		return Position{}, fmt.Errorf("%w: %q is out of bounds", ErrInvalidPosition, name)
	}
	return pos, nil
}

// IsValid reports whether the position lies inside the addressable grid.
func (p Position) IsValid() bool {
	return p.Row >= 0 && p.Col >= 0 && p.Row < MaxRows && p.Col < MaxCols
}

// String formats the position as an A1-style name, or "" if it is invalid.
func (p Position) String() string {
	if !p.IsValid() {
		return ""
	}
	name, err := excelize.CoordinatesToCellName(p.Col+1, p.Row+1)
	if err != nil {
		return ""
	}
	return name
}

// Less orders positions by row, then column.
func (p Position) Less(other Position) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Col < other.Col
}

// Size is the minimal rectangle covering all live cells of a sheet,
// expressed as row and column counts. A sheet with no cells has size (0x0).
type Size struct {
	Rows int
	Cols int
}

// String formats the Size as "(RxC)".
func (s Size) String() string {
	return fmt.Sprintf("(%dx%d)", s.Rows, s.Cols)
}
