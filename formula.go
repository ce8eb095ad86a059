package sheetcalc

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// ErrFormulaParse is returned when a formula expression cannot be compiled.
var ErrFormulaParse = errors.New("formula parse")

// SheetView is the read-only sheet access a formula evaluates against.
// GetCell returns nil for positions with no cell.
type SheetView interface {
	GetCell(pos Position) (*Cell, error)
}

// Formula is a compiled arithmetic expression over cell references.
type Formula interface {
	// Evaluate computes the formula against the given sheet view. A non-nil
	// error is always a FormulaError. Evaluation never mutates the sheet.
	Evaluate(view SheetView) (float64, error)
	// GetExpression returns the canonical reprint of the expression:
	// whitespace-normalized, parenthesized only where precedence demands.
	GetExpression() string
	// GetReferencedCells returns the cells the formula reads, deduplicated
	// and ordered by row, then column.
	GetReferencedCells() []Position
}

// compiledFormula implements Formula on top of expr-lang/expr: the
// expression is compiled once into a vm.Program, and the parse tree supplies
// the referenced-cell list and the canonical reprint.
type compiledFormula struct {
	program *vm.Program
	text    string
	refs    []Position
}

// ParseFormula compiles an expression into a Formula. The accepted grammar
// is the arithmetic subset of expr: number literals, cell references, unary
// "+"/"-", binary "+", "-", "*", "/", and parentheses. Anything else,
// including references outside the grid bounds, fails with ErrFormulaParse.
func ParseFormula(expression string) (Formula, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormulaParse, err)
	}

	collector := newRefCollector()
	ast.Walk(&tree.Node, collector)
	if collector.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormulaParse, collector.err)
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormulaParse, err)
	}

	return &compiledFormula{
		program: program,
		text:    tree.Node.String(),
		refs:    collector.positions(),
	}, nil
}

func (f *compiledFormula) Evaluate(view SheetView) (float64, error) {
	env := make(map[string]any, len(f.refs))
	for _, pos := range f.refs {
		num, err := referencedValue(view, pos)
		if err != nil {
			return 0, err
		}
		env[pos.String()] = num
	}

	result, err := expr.Run(f.program, env)
	if err != nil {
		return 0, FormulaError{Reason: err.Error()}
	}
	num, ok := toFloat(result)
	if !ok {
		return 0, FormulaError{Reason: fmt.Sprintf("non-numeric result %v", result)}
	}
	// expr divides in float64, so division by zero surfaces as ±Inf or NaN
	// rather than a runtime error.
	if math.IsInf(num, 0) || math.IsNaN(num) {
		return 0, FormulaError{Reason: "division by zero"}
	}
	return num, nil
}

func (f *compiledFormula) GetExpression() string {
	return f.text
}

func (f *compiledFormula) GetReferencedCells() []Position {
	refs := make([]Position, len(f.refs))
	copy(refs, f.refs)
	return refs
}

// referencedValue coerces the value of the cell at pos to a number: absent
// or empty cells count as zero, text must parse as a number, and an
// arithmetic error in a referenced formula propagates.
func referencedValue(view SheetView, pos Position) (float64, error) {
	cell, err := view.GetCell(pos)
	if err != nil || cell == nil {
		return 0, nil
	}
	switch v := cell.GetValue().(type) {
	case float64:
		return v, nil
	case string:
		if v == "" {
			return 0, nil
		}
		num, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, FormulaError{Reason: fmt.Sprintf("cell %s is not numeric", pos)}
		}
		return num, nil
	case FormulaError:
		return 0, v
	default:
		return 0, FormulaError{Reason: fmt.Sprintf("cell %s has unsupported value %v", pos, v)}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// refCollector walks a parsed expression, gathering cell references and
// rejecting nodes outside the arithmetic grammar.
type refCollector struct {
	seen map[Position]struct{}
	err  error
}

func newRefCollector() *refCollector {
	return &refCollector{seen: make(map[Position]struct{})}
}

func (c *refCollector) Visit(node *ast.Node) {
	if c.err != nil {
		return
	}
	switch n := (*node).(type) {
	case *ast.IntegerNode, *ast.FloatNode:
	case *ast.UnaryNode:
		if n.Operator != "+" && n.Operator != "-" {
			c.err = fmt.Errorf("unsupported unary operator %q", n.Operator)
		}
	case *ast.BinaryNode:
		switch n.Operator {
		case "+", "-", "*", "/":
		default:
			c.err = fmt.Errorf("unsupported operator %q", n.Operator)
		}
	case *ast.IdentifierNode:
		pos, err := ParsePosition(n.Value)
		if err != nil {
			c.err = fmt.Errorf("invalid cell reference %q", n.Value)
			return
		}
		c.seen[pos] = struct{}{}
	default:
		c.err = fmt.Errorf("unsupported expression element %q", (*node).String())
	}
}

// positions returns the collected references, deduplicated and sorted by
// row, then column.
func (c *refCollector) positions() []Position {
	refs := make([]Position, 0, len(c.seen))
	for pos := range c.seen {
		refs = append(refs, pos)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	return refs
}
