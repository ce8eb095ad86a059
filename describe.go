package sheetcalc

import (
	"fmt"
	"sort"
	"strings"
)

// Describe returns a human-readable dump of a sheet: its printable size and
// every live cell with its content kind, text, references, and dependent
// count. Useful for debugging dependency problems during development.
func Describe(s *Sheet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sheet %s, %d cells\n", s.size, len(s.cells))

	for _, pos := range s.sortedPositions() {
		cell := s.cells[pos]
		fmt.Fprintf(&b, "  %s %s", pos, contentKind(cell.content))
		if text := cell.GetText(); text != "" {
			fmt.Fprintf(&b, " %q", text)
		}
		if refs := cell.GetReferencedCells(); len(refs) > 0 {
			names := make([]string, len(refs))
			for i, ref := range refs {
				names[i] = ref.String()
			}
			fmt.Fprintf(&b, " refs=%s", strings.Join(names, ","))
		}
		if len(cell.deps) > 0 {
			fmt.Fprintf(&b, " dependents=%d", len(cell.deps))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func contentKind(content cellContent) string {
	switch content.(type) {
	case emptyContent:
		return "empty"
	case textContent:
		return "text"
	case *formulaContent:
		return "formula"
	default:
		return "unknown"
	}
}

func (s *Sheet) sortedPositions() []Position {
	positions := make([]Position, 0, len(s.cells))
	for pos := range s.cells {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
	return positions
}
