package sheetcalc

import (
	"errors"
	"fmt"
)

// ErrCircularDependency is returned when an edit would introduce a cycle in
// the dependency graph.
var ErrCircularDependency = errors.New("circular dependency")

// Cell is the unit of content at a single sheet position. A cell owns its
// content and keeps two neighbor sets in the dependency graph: refs holds
// the cells its formula reads (outgoing edges), deps holds the cells whose
// formulas read it (incoming edges). The two sets are kept symmetric at all
// times, and only Set and the sheet's ClearCell mutate them.
type Cell struct {
	sheet   *Sheet
	content cellContent
	refs    map[*Cell]struct{}
	deps    map[*Cell]struct{}
}

func newCell(sheet *Sheet) *Cell {
	return &Cell{
		sheet:   sheet,
		content: emptyContent{},
		refs:    make(map[*Cell]struct{}),
		deps:    make(map[*Cell]struct{}),
	}
}

// Set replaces the cell's content. Empty text installs empty content, text
// starting with "=" (and at least one more character) is compiled as a
// formula, anything else is literal text. A parse failure or a cycle leaves
// the cell unchanged. On success the dependency edges are rewired to match
// the new content's references and every transitive dependent's cached
// value is invalidated.
func (c *Cell) Set(text string) error {
	candidate, err := c.classify(text)
	if err != nil {
		return err
	}

	refs := candidate.GetReferencedCells()
	for _, pos := range refs {
		if err := c.sheet.checkPosition(pos); err != nil {
			return fmt.Errorf("reference %s: %w", pos, err)
		}
	}
	if err := c.detectCycle(refs); err != nil {
		return err
	}

	c.rewire(refs)
	c.content = candidate
	c.invalidate()
	return nil
}

func (c *Cell) classify(text string) (cellContent, error) {
	switch {
	case text == "":
		return emptyContent{}, nil
	case text[0] == FormulaSign && len(text) > 1:
		return newFormulaContent(text[1:], c.sheet)
	default:
		return textContent{text: text}, nil
	}
}

// GetValue returns the cell's value: the literal text (with a leading
// escape sign stripped) for text content, the empty string for empty
// content, or the formula's evaluation result. Formula values are memoized,
// so GetValue on a formula cell may populate the cache.
func (c *Cell) GetValue() Value {
	return c.content.GetValue()
}

// GetText returns the cell's content in editable form: the raw text, or
// "=" followed by the canonical formula expression.
func (c *Cell) GetText() string {
	return c.content.GetText()
}

// GetReferencedCells returns the positions the cell's formula reads,
// deduplicated and ordered by row, then column. Non-formula cells return
// nothing.
func (c *Cell) GetReferencedCells() []Position {
	return c.content.GetReferencedCells()
}

// GetCache exposes the memoized formula value for diagnostics and tests.
// It is nil for non-formula cells and for formula cells that have not been
// evaluated since the last invalidation.
func (c *Cell) GetCache() FormulaValue {
	return c.content.GetCache()
}

// detectCycle reports whether installing content with the given referenced
// positions would create a cycle: it does iff this cell is reachable from
// any of them through the live graph's outgoing edges. Unresolved positions
// contribute nothing, since absent cells have no outgoing edges.
func (c *Cell) detectCycle(refs []Position) error {
	visited := make(map[*Cell]struct{})
	return c.walkRefs(refs, visited)
}

func (c *Cell) walkRefs(positions []Position, visited map[*Cell]struct{}) error {
	for _, pos := range positions {
		ref := c.sheet.cellAt(pos)
		if ref == nil {
			continue
		}
		if ref == c {
			return ErrCircularDependency
		}
		if _, ok := visited[ref]; ok {
			continue
		}
		visited[ref] = struct{}{}
		if err := c.walkRefs(ref.GetReferencedCells(), visited); err != nil {
			return err
		}
	}
	return nil
}

// rewire replaces the cell's outgoing edges with edges to the given
// positions, materializing empty cells for positions that do not exist yet
// and keeping the incoming sets of both old and new neighbors symmetric.
func (c *Cell) rewire(refs []Position) {
	for ref := range c.refs {
		delete(ref.deps, c)
	}
	clear(c.refs)
	for _, pos := range refs {
		ref := c.sheet.materializeCell(pos)
		c.refs[ref] = struct{}{}
		ref.deps[c] = struct{}{}
	}
}

// invalidate clears this cell's own cache and the cache of every cell that
// transitively depends on it. The visited set guards against revisiting;
// the graph is acyclic, so it only bounds the traversal.
func (c *Cell) invalidate() {
	c.content.ResetCache()
	visited := make(map[*Cell]struct{})
	c.invalidateDeps(visited)
}

func (c *Cell) invalidateDeps(visited map[*Cell]struct{}) {
	for dep := range c.deps {
		if _, ok := visited[dep]; ok {
			continue
		}
		visited[dep] = struct{}{}
		dep.content.ResetCache()
		dep.invalidateDeps(visited)
	}
}
