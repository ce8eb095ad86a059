package sheetcalc

import "io"

// PrintValues writes the printable grid of cell values to w: one line per
// row, a tab between columns, absent cells as empty strings, arithmetic
// errors as "#ARITHM!".
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.printGrid(w, func(c *Cell) string { return FormatValue(c.GetValue()) })
}

// PrintTexts writes the printable grid of cell texts to w in the same
// layout as PrintValues.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.printGrid(w, (*Cell).GetText)
}

func (s *Sheet) printGrid(w io.Writer, render func(*Cell) string) error {
	for row := 0; row < s.size.Rows; row++ {
		for col := 0; col < s.size.Cols; col++ {
			if col > 0 {
				if _, err := io.WriteString(w, "\t"); err != nil {
					return err
				}
			}
			cell := s.cells[Position{Row: row, Col: col}]
			if cell == nil {
				continue
			}
			if _, err := io.WriteString(w, render(cell)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
