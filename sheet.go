package sheetcalc

import "fmt"

// Options holds configuration for a Sheet.
type Options struct {
	maxRows int
	maxCols int
}

func defaultOptions() *Options {
	return &Options{maxRows: MaxRows, maxCols: MaxCols}
}

// Option configures a Sheet.
type Option func(*Options)

// WithMaxRows bounds the addressable row range of the sheet (default 16384).
func WithMaxRows(rows int) Option {
	return func(o *Options) { o.maxRows = rows }
}

// WithMaxCols bounds the addressable column range of the sheet (default 16384).
func WithMaxCols(cols int) Option {
	return func(o *Options) { o.maxCols = cols }
}

// Sheet is a sparse in-memory grid of cells. The sheet is the sole owner of
// every cell; cells refer to one another only through the dependency graph,
// whose lifetime is bounded by the sheet. A Sheet must not be used from
// multiple goroutines concurrently.
type Sheet struct {
	opts  *Options
	cells map[Position]*Cell
	size  Size
}

// NewSheet creates an empty sheet.
func NewSheet(opts ...Option) *Sheet {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Sheet{opts: o, cells: make(map[Position]*Cell)}
}

// SetCell writes text into the cell at pos, creating the cell if needed.
// Formula texts are compiled and checked for cycles before anything is
// mutated; on failure a pre-existing cell keeps its prior state and a
// freshly created one is removed again.
func (s *Sheet) SetCell(pos Position, text string) error {
	if err := s.checkPosition(pos); err != nil {
		return err
	}
	cell, exists := s.cells[pos]
	if !exists {
		cell = newCell(s)
		s.cells[pos] = cell
	}
	if err := cell.Set(text); err != nil {
		if !exists {
			delete(s.cells, pos)
		}
		return fmt.Errorf("set cell %s: %w", pos, err)
	}
	s.growSize(pos)
	return nil
}

// GetCell returns the cell at pos, or nil if no cell exists there.
func (s *Sheet) GetCell(pos Position) (*Cell, error) {
	if err := s.checkPosition(pos); err != nil {
		return nil, err
	}
	return s.cells[pos], nil
}

// ClearCell removes the cell at pos entirely. Dependent formula caches are
// invalidated first, and all graph edges touching the cell are detached; a
// dependent's formula re-resolves the position through the sheet on its
// next evaluation. Clearing an absent cell is a no-op.
func (s *Sheet) ClearCell(pos Position) error {
	if err := s.checkPosition(pos); err != nil {
		return err
	}
	cell, ok := s.cells[pos]
	if !ok {
		return nil
	}

	cell.rewire(nil)
	cell.content = emptyContent{}
	cell.invalidate()
	for dep := range cell.deps {
		delete(dep.refs, cell)
	}
	delete(s.cells, pos)

	if pos.Row == s.size.Rows-1 || pos.Col == s.size.Cols-1 {
		s.updateSize()
	}
	return nil
}

// GetPrintableSize returns the minimal rectangle covering all live cells.
func (s *Sheet) GetPrintableSize() Size {
	return s.size
}

// SetCellByName is SetCell addressed by an A1-style name like "B12".
func (s *Sheet) SetCellByName(name, text string) error {
	pos, err := ParsePosition(name)
	if err != nil {
		return err
	}
	return s.SetCell(pos, text)
}

// GetCellByName is GetCell addressed by an A1-style name.
func (s *Sheet) GetCellByName(name string) (*Cell, error) {
	pos, err := ParsePosition(name)
	if err != nil {
		return nil, err
	}
	return s.GetCell(pos)
}

// ClearCellByName is ClearCell addressed by an A1-style name.
func (s *Sheet) ClearCellByName(name string) error {
	pos, err := ParsePosition(name)
	if err != nil {
		return err
	}
	return s.ClearCell(pos)
}

// cellAt returns the cell at pos without position validation.
func (s *Sheet) cellAt(pos Position) *Cell {
	return s.cells[pos]
}

// materializeCell returns the cell at pos, creating an empty one if the
// position is vacant. Formula edits use it so that a referenced-but-absent
// position has a cell for the incoming edge to attach to; the new empty
// cell counts toward the printable size like any explicitly set cell.
func (s *Sheet) materializeCell(pos Position) *Cell {
	if cell, ok := s.cells[pos]; ok {
		return cell
	}
	cell := newCell(s)
	s.cells[pos] = cell
	s.growSize(pos)
	return cell
}

func (s *Sheet) checkPosition(pos Position) error {
	if pos.Row < 0 || pos.Col < 0 || pos.Row >= s.opts.maxRows || pos.Col >= s.opts.maxCols {
		return fmt.Errorf("%w: row %d, col %d", ErrInvalidPosition, pos.Row, pos.Col)
	}
	return nil
}

func (s *Sheet) growSize(pos Position) {
	if s.size.Rows < pos.Row+1 {
		s.size.Rows = pos.Row + 1
	}
	if s.size.Cols < pos.Col+1 {
		s.size.Cols = pos.Col + 1
	}
}

// updateSize rescans all cells after a removal on the size boundary.
func (s *Sheet) updateSize() {
	var size Size
	for pos := range s.cells {
		if size.Rows < pos.Row+1 {
			size.Rows = pos.Row + 1
		}
		if size.Cols < pos.Col+1 {
			size.Cols = pos.Col + 1
		}
	}
	s.size = size
}
