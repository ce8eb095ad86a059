package sheetcalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustSet is a test helper that fails fast when a SetCell is expected to
// succeed.
func mustSet(t *testing.T, s *Sheet, name, text string) {
	t.Helper()
	require.NoError(t, s.SetCellByName(name, text))
}

func cellAtName(t *testing.T, s *Sheet, name string) *Cell {
	t.Helper()
	cell, err := s.GetCellByName(name)
	require.NoError(t, err)
	require.NotNil(t, cell, "no cell at %s", name)
	return cell
}

// assertGraphInvariants checks the structural invariants that must hold
// after every public operation: symmetric edges, outgoing edges matching
// formula references, no outgoing edges on non-formula cells, acyclicity,
// and printable-size correctness.
func assertGraphInvariants(t *testing.T, s *Sheet) {
	t.Helper()

	for pos, cell := range s.cells {
		for ref := range cell.refs {
			_, ok := ref.deps[cell]
			assert.True(t, ok, "edge %s -> ref not mirrored", pos)
		}
		for dep := range cell.deps {
			_, ok := dep.refs[cell]
			assert.True(t, ok, "edge dep -> %s not mirrored", pos)
		}

		resolved := make(map[*Cell]struct{})
		for _, refPos := range cell.GetReferencedCells() {
			if ref := s.cellAt(refPos); ref != nil {
				resolved[ref] = struct{}{}
			}
		}
		assert.Equal(t, len(resolved), len(cell.refs), "outgoing edges of %s do not match formula references", pos)
		for ref := range resolved {
			_, ok := cell.refs[ref]
			assert.True(t, ok, "missing outgoing edge from %s", pos)
		}
	}

	assertAcyclic(t, s)

	var want Size
	for pos := range s.cells {
		if want.Rows < pos.Row+1 {
			want.Rows = pos.Row + 1
		}
		if want.Cols < pos.Col+1 {
			want.Cols = pos.Col + 1
		}
	}
	assert.Equal(t, want, s.GetPrintableSize())
}

// assertAcyclic runs a three-state depth-first search over outgoing edges.
func assertAcyclic(t *testing.T, s *Sheet) {
	t.Helper()
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*Cell]int)
	var visit func(c *Cell) bool
	visit = func(c *Cell) bool {
		switch state[c] {
		case visiting:
			return false
		case done:
			return true
		}
		state[c] = visiting
		for ref := range c.refs {
			if !visit(ref) {
				return false
			}
		}
		state[c] = done
		return true
	}
	for _, cell := range s.cells {
		assert.True(t, visit(cell), "dependency graph contains a cycle")
	}
}

func TestCell_Classification(t *testing.T) {
	s := NewSheet()

	mustSet(t, s, "A1", "")
	mustSet(t, s, "A2", "plain text")
	mustSet(t, s, "A3", "=1+2")
	mustSet(t, s, "A4", "=") // "=" alone is text, not a formula

	assert.Equal(t, "", cellAtName(t, s, "A1").GetText())
	assert.Equal(t, "", cellAtName(t, s, "A1").GetValue())

	assert.Equal(t, "plain text", cellAtName(t, s, "A2").GetText())
	assert.Equal(t, "plain text", cellAtName(t, s, "A2").GetValue())

	assert.Equal(t, "=1 + 2", cellAtName(t, s, "A3").GetText())
	assert.Equal(t, 3.0, cellAtName(t, s, "A3").GetValue())

	assert.Equal(t, "=", cellAtName(t, s, "A4").GetText())
	assert.Equal(t, "=", cellAtName(t, s, "A4").GetValue())

	assertGraphInvariants(t, s)
}

func TestCell_EscapedText(t *testing.T) {
	s := NewSheet()
	mustSet(t, s, "A1", "'=not a formula")
	mustSet(t, s, "A2", "'quoted")

	assert.Equal(t, "'=not a formula", cellAtName(t, s, "A1").GetText())
	assert.Equal(t, "=not a formula", cellAtName(t, s, "A1").GetValue())
	assert.Equal(t, "quoted", cellAtName(t, s, "A2").GetValue())
}

func TestCell_CacheLifecycle(t *testing.T) {
	s := NewSheet()
	mustSet(t, s, "A1", "2")
	mustSet(t, s, "B1", "=A1+3")

	b1 := cellAtName(t, s, "B1")
	assert.Nil(t, b1.GetCache(), "cache must be empty before evaluation")

	assert.Equal(t, 5.0, b1.GetValue())
	assert.Equal(t, FormulaValue(5.0), b1.GetCache())

	// Re-reading uses the memoized value.
	assert.Equal(t, 5.0, b1.GetValue())

	// Writing the referenced cell clears the cache.
	mustSet(t, s, "A1", "10")
	assert.Nil(t, b1.GetCache())
	assert.Equal(t, 13.0, b1.GetValue())
}

func TestCell_NonFormulaHasNoCache(t *testing.T) {
	s := NewSheet()
	mustSet(t, s, "A1", "text")
	mustSet(t, s, "A2", "")

	assert.Nil(t, cellAtName(t, s, "A1").GetCache())
	assert.Nil(t, cellAtName(t, s, "A2").GetCache())
	assert.Nil(t, cellAtName(t, s, "A1").GetReferencedCells())
}

func TestCell_RewiringReplacesEdges(t *testing.T) {
	s := NewSheet()
	mustSet(t, s, "B1", "1")
	mustSet(t, s, "C1", "2")
	mustSet(t, s, "A1", "=B1")
	assertGraphInvariants(t, s)

	// Repointing the formula must drop the old edge and add the new one.
	mustSet(t, s, "A1", "=C1")
	a1 := cellAtName(t, s, "A1")
	b1 := cellAtName(t, s, "B1")
	c1 := cellAtName(t, s, "C1")

	_, ok := b1.deps[a1]
	assert.False(t, ok, "stale incoming edge on B1")
	_, ok = c1.deps[a1]
	assert.True(t, ok, "missing incoming edge on C1")
	assertGraphInvariants(t, s)

	// Replacing the formula with text must drop all outgoing edges.
	mustSet(t, s, "A1", "done")
	assert.Empty(t, a1.refs)
	_, ok = c1.deps[a1]
	assert.False(t, ok)
	assertGraphInvariants(t, s)
}

func TestCell_SelfReferenceIsCycle(t *testing.T) {
	s := NewSheet()
	err := s.SetCellByName("A1", "=A1")
	assert.ErrorIs(t, err, ErrCircularDependency)

	// The failed write must not leave a cell behind.
	cell, err := s.GetCellByName("A1")
	require.NoError(t, err)
	assert.Nil(t, cell)
}

func TestCell_TwoCellCycle(t *testing.T) {
	s := NewSheet()
	mustSet(t, s, "A1", "=B1")

	err := s.SetCellByName("B1", "=A1")
	assert.ErrorIs(t, err, ErrCircularDependency)

	// A1 keeps its formula; B1 stays the empty cell A1's reference created.
	assert.Equal(t, "=B1", cellAtName(t, s, "A1").GetText())
	assert.Equal(t, "", cellAtName(t, s, "B1").GetText())
	assertGraphInvariants(t, s)
}

func TestCell_LongerCycleRejected(t *testing.T) {
	s := NewSheet()
	mustSet(t, s, "A1", "=B1")
	mustSet(t, s, "B1", "=C1")

	err := s.SetCellByName("C1", "=A1+1")
	assert.ErrorIs(t, err, ErrCircularDependency)

	// The graph is untouched and still usable.
	mustSet(t, s, "C1", "7")
	assert.Equal(t, 7.0, cellAtName(t, s, "A1").GetValue())
	assertGraphInvariants(t, s)
}

func TestCell_FailedEditKeepsPriorState(t *testing.T) {
	s := NewSheet()
	mustSet(t, s, "A1", "hello")

	err := s.SetCellByName("A1", "=(")
	assert.ErrorIs(t, err, ErrFormulaParse)
	assert.Equal(t, "hello", cellAtName(t, s, "A1").GetText())

	mustSet(t, s, "B1", "=A1")
	err = s.SetCellByName("A1", "=B1")
	assert.ErrorIs(t, err, ErrCircularDependency)
	assert.Equal(t, "hello", cellAtName(t, s, "A1").GetText())
	assertGraphInvariants(t, s)
}

func TestCell_ReferenceToMissingCellCannotCycle(t *testing.T) {
	s := NewSheet()

	// D4 does not exist yet, so it cannot close a cycle at edit time.
	mustSet(t, s, "A1", "=D4")
	assert.Equal(t, 0.0, cellAtName(t, s, "A1").GetValue())
	assertGraphInvariants(t, s)
}
