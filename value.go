package sheetcalc

import (
	"fmt"
	"strconv"
)

// Value is the observable value of a cell: a string for empty and text
// cells, a float64 for a successfully evaluated formula, or a FormulaError
// when formula evaluation failed arithmetically.
type Value any

// FormulaValue is the result of evaluating a compiled formula: a float64 or
// a FormulaError. A nil FormulaValue means "not computed".
type FormulaValue any

// FormulaErrorText is the textual rendering of every arithmetic error.
const FormulaErrorText = "#ARITHM!"

// FormulaError is the arithmetic-error arm of the value union. It prints as
// "#ARITHM!" wherever a value is rendered; Reason carries the underlying
// cause for diagnostics only.
type FormulaError struct {
	Reason string
}

func (e FormulaError) Error() string {
	return FormulaErrorText
}

// FormatValue renders a cell value in its textual form: strings verbatim,
// numbers with the fewest digits that round-trip, errors as "#ARITHM!".
func FormatValue(v Value) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case FormulaError:
		return val.Error()
	default:
		return fmt.Sprintf("%v", val)
	}
}
