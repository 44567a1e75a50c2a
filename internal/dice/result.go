package dice

import (
	"fmt"
	"time"
)

// Die records a single physical die from a roll. Dropped dice stay in
// the record with Kept false so the full pool remains visible.
type Die struct {
	// Value is the face showing after any rerolls.
	Value int `json:"value"`
	// SourceTerm indexes the TermResult this die belongs to.
	SourceTerm int `json:"source_term"`
	// Kept reports whether the die contributes to the subtotal.
	Kept bool `json:"kept"`
	// Exploded reports that this die triggered an extra draw, or would
	// have but for the explosion cap.
	Exploded bool `json:"exploded,omitempty"`
	// Rerolled reports that the original value was redrawn.
	Rerolled bool `json:"rerolled,omitempty"`
}

// TermResult is the outcome of one leaf of the expression: a dice term
// with its pool, or a bare constant with no dice.
type TermResult struct {
	Dice     []Die `json:"dice,omitempty"`
	Subtotal int   `json:"subtotal"`
}

// RollResult is the externally persisted outcome of evaluating one
// expression. Total is always recomputable from Expression and Terms;
// see RecomputeTotal.
type RollResult struct {
	ID         string       `json:"id,omitempty"`
	Expression string       `json:"expression"`
	Total      int          `json:"total"`
	Terms      []TermResult `json:"terms"`
	Timestamp  time.Time    `json:"timestamp"`
}

// RecomputeTotal independently rebuilds a result's total from its
// expression and recorded terms. It re-parses the expression, checks
// each dice term's subtotal against its recorded pool, and refolds the
// arithmetic tree. Callers can audit a stored result without
// re-invoking the engine.
func RecomputeTotal(result RollResult) (int, error) {
	node, err := Parse(result.Expression)
	if err != nil {
		return 0, fmt.Errorf("reparse expression: %w", err)
	}

	r := &refolder{terms: result.Terms}
	total, err := r.fold(node)
	if err != nil {
		return 0, err
	}
	if r.next != len(result.Terms) {
		return 0, fmt.Errorf("expression uses %d terms, result records %d", r.next, len(result.Terms))
	}
	return total, nil
}

// Verify checks that a result's total matches its recorded breakdown.
func Verify(result RollResult) error {
	total, err := RecomputeTotal(result)
	if err != nil {
		return err
	}
	if total != result.Total {
		return fmt.Errorf("recorded total %d does not match recomputed total %d", result.Total, total)
	}
	return nil
}

type refolder struct {
	terms []TermResult
	next  int
}

func (r *refolder) fold(node Node) (int, error) {
	switch n := node.(type) {
	case *Constant:
		term, err := r.take()
		if err != nil {
			return 0, err
		}
		if len(term.Dice) != 0 || term.Subtotal != n.Value {
			return 0, fmt.Errorf("term %d: recorded %d does not match constant %d", r.next-1, term.Subtotal, n.Value)
		}
		return n.Value, nil
	case *UnaryNegate:
		value, err := r.fold(n.Operand)
		if err != nil {
			return 0, err
		}
		return -value, nil
	case *BinaryOp:
		left, err := r.fold(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := r.fold(n.Right)
		if err != nil {
			return 0, err
		}
		return foldBinary(n, left, right)
	case *DiceTerm:
		term, err := r.take()
		if err != nil {
			return 0, err
		}
		subtotal := recountTerm(n, term)
		if subtotal != term.Subtotal {
			return 0, fmt.Errorf("term %d: recorded subtotal %d does not match dice %d", r.next-1, term.Subtotal, subtotal)
		}
		return term.Subtotal, nil
	default:
		return 0, fmt.Errorf("unsupported node type %T", node)
	}
}

func (r *refolder) take() (TermResult, error) {
	if r.next >= len(r.terms) {
		return TermResult{}, fmt.Errorf("expression uses more terms than the result records")
	}
	term := r.terms[r.next]
	r.next++
	return term, nil
}

// recountTerm recomputes a dice term's subtotal from its recorded
// pool, honoring a success or failure counter if the term carries one.
func recountTerm(term *DiceTerm, result TermResult) int {
	counting := countingNone
	threshold := 0
	for _, modifier := range term.Modifiers {
		switch m := modifier.(type) {
		case SuccessCount:
			counting = countingSuccess
			threshold = m.Threshold
		case FailureCount:
			counting = countingFailure
			threshold = m.Threshold
		}
	}

	subtotal := 0
	for _, d := range result.Dice {
		if !d.Kept {
			continue
		}
		switch counting {
		case countingNone:
			subtotal += d.Value
		case countingSuccess:
			if d.Value >= threshold {
				subtotal++
			}
		case countingFailure:
			if d.Value <= threshold {
				subtotal++
			}
		}
	}
	return subtotal
}
