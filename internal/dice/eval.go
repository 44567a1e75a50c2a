package dice

import (
	"fmt"
	"sort"

	"github.com/louisbranch/dice-engine/internal/random"
)

// DefaultExplosionCap bounds how many extra dice a single original die
// may explode into. Hitting the cap stops the chain; it is not an
// error.
const DefaultExplosionCap = 100

// rerollCap bounds redraws per die for open-ended rerolls, mirroring
// the explosion cap.
const rerollCap = 100

// DivisionByZeroError reports a denominator that evaluated to zero at
// runtime, identified by its source span.
type DivisionByZeroError struct {
	Start int
	End   int
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero: denominator at positions %d-%d evaluated to zero", e.Start, e.End)
}

// RngViolationError reports a random source that failed or returned a
// value outside [1, sides]. It is a contract violation by the source
// and always fatal; out-of-range draws are never clamped.
type RngViolationError struct {
	Sides int
	Value int
	Err   error
}

func (e *RngViolationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("random source failed drawing d%d: %v", e.Sides, e.Err)
	}
	return fmt.Sprintf("random source returned %d for d%d, outside [1, %d]", e.Value, e.Sides, e.Sides)
}

func (e *RngViolationError) Unwrap() error { return e.Err }

// Evaluate walks a parsed expression, drawing raw rolls from src and
// folding the arithmetic tree into a total plus a per-die breakdown.
//
// # Determinism
//
// Evaluate is deterministic with respect to the source: the same node
// evaluated against a source in the same state always produces the
// same result.
//
// # Ordering
//
// Terms appear in Result.Terms in source order. Within a dice term the
// original roll order is preserved for display; keep and drop
// selection uses a sorted copy. Explosion draws are inserted directly
// after the die that triggered them.
//
// The caller owns the result's ID and Timestamp fields; Evaluate
// leaves them zero and fills Expression with the canonical rendering
// of node.
func Evaluate(node Node, src random.Source) (RollResult, error) {
	if node == nil {
		return RollResult{}, fmt.Errorf("expression node is required")
	}
	if src == nil {
		return RollResult{}, fmt.Errorf("random source is required")
	}

	e := &evaluator{src: src}
	total, err := e.eval(node)
	if err != nil {
		return RollResult{}, err
	}

	return RollResult{
		Expression: node.String(),
		Total:      total,
		Terms:      e.terms,
	}, nil
}

type evaluator struct {
	src   random.Source
	terms []TermResult
}

func (e *evaluator) eval(node Node) (int, error) {
	switch n := node.(type) {
	case *Constant:
		e.terms = append(e.terms, TermResult{Subtotal: n.Value})
		return n.Value, nil
	case *UnaryNegate:
		value, err := e.eval(n.Operand)
		if err != nil {
			return 0, err
		}
		return -value, nil
	case *BinaryOp:
		left, err := e.eval(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return 0, err
		}
		return foldBinary(n, left, right)
	case *DiceTerm:
		return e.evalDiceTerm(n)
	default:
		return 0, fmt.Errorf("unsupported node type %T", node)
	}
}

// foldBinary applies a binary operator to evaluated operands. Integer
// division truncates toward zero, and a zero denominator is a runtime
// error naming the denominator's span.
func foldBinary(node *BinaryOp, left, right int) (int, error) {
	switch node.Op {
	case OpAdd:
		return left + right, nil
	case OpSub:
		return left - right, nil
	case OpMul:
		return left * right, nil
	case OpDiv:
		if right == 0 {
			start, end := node.Right.Span()
			return 0, &DivisionByZeroError{Start: start, End: end}
		}
		return left / right, nil
	default:
		return 0, fmt.Errorf("unsupported operator %q", node.Op)
	}
}

func (e *evaluator) evalDiceTerm(term *DiceTerm) (int, error) {
	termIndex := len(e.terms)

	dice := make([]Die, 0, term.Count)
	for i := 0; i < term.Count; i++ {
		value, err := e.draw(term.Sides)
		if err != nil {
			return 0, err
		}
		dice = append(dice, Die{Value: value, SourceTerm: termIndex, Kept: true})
	}

	counting := countingNone
	countThreshold := 0
	for _, modifier := range term.Modifiers {
		var err error
		switch m := modifier.(type) {
		case KeepHighest:
			applySelection(dice, m.N, selectHighest, actionKeep)
		case KeepLowest:
			applySelection(dice, m.N, selectLowest, actionKeep)
		case DropHighest:
			applySelection(dice, m.N, selectHighest, actionDrop)
		case DropLowest:
			applySelection(dice, m.N, selectLowest, actionDrop)
		case Explode:
			dice, err = e.explode(dice, term, m, termIndex)
		case Reroll:
			err = e.reroll(dice, term, m)
		case SuccessCount:
			counting = countingSuccess
			countThreshold = m.Threshold
		case FailureCount:
			counting = countingFailure
			countThreshold = m.Threshold
		default:
			err = fmt.Errorf("unsupported modifier %q", modifier)
		}
		if err != nil {
			return 0, err
		}
	}

	subtotal := 0
	for _, d := range dice {
		if !d.Kept {
			continue
		}
		switch counting {
		case countingNone:
			subtotal += d.Value
		case countingSuccess:
			if d.Value >= countThreshold {
				subtotal++
			}
		case countingFailure:
			if d.Value <= countThreshold {
				subtotal++
			}
		}
	}

	e.terms = append(e.terms, TermResult{Dice: dice, Subtotal: subtotal})
	return subtotal, nil
}

type countingMode int

const (
	countingNone countingMode = iota
	countingSuccess
	countingFailure
)

type selectionEnd bool

const (
	selectHighest selectionEnd = true
	selectLowest  selectionEnd = false
)

type selectionAction bool

const (
	actionKeep selectionAction = true
	actionDrop selectionAction = false
)

// applySelection marks dice as dropped according to a keep or drop
// modifier. Selection ranks a sorted copy of the currently kept dice;
// the stable sort breaks ties by original roll order. The die list
// itself keeps its roll order for display.
func applySelection(dice []Die, n int, end selectionEnd, action selectionAction) {
	kept := make([]int, 0, len(dice))
	for i := range dice {
		if dice[i].Kept {
			kept = append(kept, i)
		}
	}
	sort.SliceStable(kept, func(a, b int) bool {
		return dice[kept[a]].Value < dice[kept[b]].Value
	})

	if n > len(kept) {
		n = len(kept)
	}
	var selected []int
	if end == selectHighest {
		selected = kept[len(kept)-n:]
	} else {
		selected = kept[:n]
	}

	if action == actionDrop {
		for _, i := range selected {
			dice[i].Kept = false
		}
		return
	}

	inSelection := make(map[int]bool, len(selected))
	for _, i := range selected {
		inSelection[i] = true
	}
	for _, i := range kept {
		if !inSelection[i] {
			dice[i].Kept = false
		}
	}
}

// explode chains extra draws for kept dice at or above the threshold.
// Each extra die is inserted after its parent and is itself subject to
// exploding, bounded by the modifier's cap per original die. A die
// that triggers at the cap is still marked exploded even though no
// draw follows.
func (e *evaluator) explode(dice []Die, term *DiceTerm, m Explode, termIndex int) ([]Die, error) {
	threshold := m.Threshold
	if threshold == 0 {
		threshold = term.Sides
	}
	limit := m.Cap
	if limit <= 0 {
		limit = DefaultExplosionCap
	}

	out := make([]Die, 0, len(dice))
	for _, d := range dice {
		out = append(out, d)
		if !d.Kept {
			continue
		}
		extra := 0
		for out[len(out)-1].Value >= threshold {
			out[len(out)-1].Exploded = true
			if extra >= limit {
				break
			}
			value, err := e.draw(term.Sides)
			if err != nil {
				return nil, err
			}
			out = append(out, Die{Value: value, SourceTerm: termIndex, Kept: true})
			extra++
		}
	}
	return out, nil
}

// reroll redraws kept dice whose value falls in the modifier's set.
// Once-only rerolls stop after a single redraw per die; open-ended
// rerolls redraw until the value leaves the set, bounded by rerollCap.
func (e *evaluator) reroll(dice []Die, term *DiceTerm, m Reroll) error {
	inSet := make(map[int]bool, len(m.Values))
	for _, v := range m.Values {
		inSet[v] = true
	}

	for i := range dice {
		if !dice[i].Kept {
			continue
		}
		redraws := 0
		for inSet[dice[i].Value] {
			if m.Once && redraws >= 1 {
				break
			}
			if redraws >= rerollCap {
				break
			}
			value, err := e.draw(term.Sides)
			if err != nil {
				return err
			}
			dice[i].Value = value
			dice[i].Rerolled = true
			redraws++
		}
	}
	return nil
}

// draw pulls one die face from the source, enforcing the [1, sides]
// contract.
func (e *evaluator) draw(sides int) (int, error) {
	value, err := e.src.Next(sides)
	if err != nil {
		return 0, &RngViolationError{Sides: sides, Err: err}
	}
	if value < 1 || value > sides {
		return 0, &RngViolationError{Sides: sides, Value: value}
	}
	return value, nil
}
