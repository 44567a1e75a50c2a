package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is a parsed dice-expression node. Nodes carry their source span
// so evaluation errors can point back at the offending characters.
type Node interface {
	// Span returns the half-open byte range [start, end) the node
	// occupies in the source expression.
	Span() (start, end int)
	// String renders the node in canonical dice notation. The canonical
	// form parses back to an equivalent node.
	String() string
}

// Op is a binary arithmetic operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

// precedence orders operators for the canonical printer. Higher binds
// tighter.
func (o Op) precedence() int {
	if o == OpMul || o == OpDiv {
		return 2
	}
	return 1
}

// Constant is an integer literal.
type Constant struct {
	Value int

	start, end int
}

func (c *Constant) Span() (int, int) { return c.start, c.end }

func (c *Constant) String() string { return strconv.Itoa(c.Value) }

// DiceTerm is a dice pool such as 4d6 together with its ordered
// modifiers. Modifiers apply in the order written; they are never
// re-sorted, because application order affects the outcome.
type DiceTerm struct {
	Count     int
	Sides     int
	Modifiers []Modifier

	start, end int
}

func (t *DiceTerm) Span() (int, int) { return t.start, t.end }

func (t *DiceTerm) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", t.Count, t.Sides)
	for _, m := range t.Modifiers {
		b.WriteString(m.String())
	}
	return b.String()
}

// BinaryOp combines two subexpressions with + - * or /.
type BinaryOp struct {
	Op    Op
	Left  Node
	Right Node

	// OpPos is the byte offset of the operator itself.
	OpPos int
}

func (b *BinaryOp) Span() (int, int) {
	start, _ := b.Left.Span()
	_, end := b.Right.Span()
	return start, end
}

func (b *BinaryOp) String() string {
	left := b.Left.String()
	if child, ok := b.Left.(*BinaryOp); ok && child.Op.precedence() < b.Op.precedence() {
		left = "(" + left + ")"
	}
	right := b.Right.String()
	if child, ok := b.Right.(*BinaryOp); ok && child.Op.precedence() <= b.Op.precedence() {
		// Subtraction and division are left-associative, so a binary
		// right child of equal precedence needs explicit grouping.
		if child.Op.precedence() < b.Op.precedence() || b.Op == OpSub || b.Op == OpDiv {
			right = "(" + right + ")"
		}
	}
	return left + " " + b.Op.String() + " " + right
}

// UnaryNegate negates its operand.
type UnaryNegate struct {
	Operand Node

	start int
}

func (u *UnaryNegate) Span() (int, int) {
	_, end := u.Operand.Span()
	return u.start, end
}

func (u *UnaryNegate) String() string {
	if _, ok := u.Operand.(*BinaryOp); ok {
		return "-(" + u.Operand.String() + ")"
	}
	return "-" + u.Operand.String()
}

// Modifier adjusts how a dice term resolves. Each variant carries only
// the data needed to replay its effect.
type Modifier interface {
	String() string
	isModifier()
}

// KeepHighest retains only the N highest kept dice.
type KeepHighest struct{ N int }

func (m KeepHighest) isModifier() {}

func (m KeepHighest) String() string { return "kh" + strconv.Itoa(m.N) }

// KeepLowest retains only the N lowest kept dice.
type KeepLowest struct{ N int }

func (m KeepLowest) isModifier() {}

func (m KeepLowest) String() string { return "kl" + strconv.Itoa(m.N) }

// DropHighest discards the N highest kept dice.
type DropHighest struct{ N int }

func (m DropHighest) isModifier() {}

func (m DropHighest) String() string { return "dh" + strconv.Itoa(m.N) }

// DropLowest discards the N lowest kept dice.
type DropLowest struct{ N int }

func (m DropLowest) isModifier() {}

func (m DropLowest) String() string { return "dl" + strconv.Itoa(m.N) }

// Explode re-rolls dice that land at or above Threshold, appending the
// extra draw after its parent in the die list. Cap bounds the number of
// extra dice a single original die may chain into; the bound is part of
// the modifier's contract so termination never depends on luck.
type Explode struct {
	// Threshold is the minimum value that triggers an extra draw.
	// Zero means the die's maximum face.
	Threshold int
	// Cap is the maximum number of extra dice per original die.
	Cap int
}

func (m Explode) isModifier() {}

func (m Explode) String() string {
	if m.Threshold == 0 {
		return "!"
	}
	return "!" + strconv.Itoa(m.Threshold)
}

// Reroll redraws dice whose value falls in Values. When Once is set a
// die is redrawn at most one time regardless of the new value.
type Reroll struct {
	Values []int
	Once   bool
}

func (m Reroll) isModifier() {}

func (m Reroll) String() string {
	keyword := "r"
	if m.Once {
		keyword = "ro"
	}
	parts := make([]string, len(m.Values))
	for i, v := range m.Values {
		parts[i] = strconv.Itoa(v)
	}
	return keyword + strings.Join(parts, ",")
}

// SuccessCount replaces the term's subtotal with the number of kept
// dice at or above Threshold.
type SuccessCount struct{ Threshold int }

func (m SuccessCount) isModifier() {}

func (m SuccessCount) String() string { return "cs" + strconv.Itoa(m.Threshold) }

// FailureCount replaces the term's subtotal with the number of kept
// dice at or below Threshold.
type FailureCount struct{ Threshold int }

func (m FailureCount) isModifier() {}

func (m FailureCount) String() string { return "cf" + strconv.Itoa(m.Threshold) }
