package dice

import (
	"errors"
	"fmt"
	"strconv"
)

// Static limits for dice terms. Expressions outside these bounds are
// rejected at parse time so evaluation cost stays predictable.
const (
	MaxDiceCount = 1000
	MaxDiceSides = 1000
)

// Sentinel causes for ParseError, matchable with errors.Is.
var (
	// ErrConflictingModifiers indicates keep/drop or success/failure
	// modifiers whose combined effect is not well-defined.
	ErrConflictingModifiers = errors.New("conflicting modifiers")

	// ErrDiceCountRange indicates a dice count outside [1, MaxDiceCount].
	ErrDiceCountRange = errors.New("dice count out of range")

	// ErrDiceSidesRange indicates a sides value outside [1, MaxDiceSides].
	ErrDiceSidesRange = errors.New("dice sides out of range")

	// ErrRerollCoversDie indicates a reroll set matching every face,
	// which would never settle on a value.
	ErrRerollCoversDie = errors.New("reroll set covers every face")
)

// ParseError reports a structural violation of the dice grammar at a
// 0-based byte offset.
type ParseError struct {
	Pos    int
	Reason string

	cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.cause }

// Parse tokenizes and parses a dice expression.
//
// Grammar, lowest precedence first:
//
//	expression := term (("+" | "-") term)*
//	term       := factor (("*" | "/") factor)*
//	factor     := dice_term | integer | "(" expression ")" | "-" factor
//	dice_term  := [integer] "d" integer modifier*
//
// A missing count defaults to 1; missing sides is an error. Modifiers
// bind to the immediately preceding dice term only.
func Parse(expression string) (Node, error) {
	tokens, err := Lex(expression)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseTokens parses an already-lexed token stream.
func ParseTokens(tokens []Token) (Node, error) {
	p := &parser{tokens: tokens}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != TokenEOF {
		return nil, &ParseError{Pos: tok.Pos, Reason: fmt.Sprintf("unexpected %s after expression", tok.Kind)}
	}
	return node, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Kind != TokenPlus && tok.Kind != TokenMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		op := OpAdd
		if tok.Kind == TokenMinus {
			op = OpSub
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, OpPos: tok.Pos}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Kind != TokenStar && tok.Kind != TokenSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		op := OpMul
		if tok.Kind == TokenSlash {
			op = OpDiv
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, OpPos: tok.Pos}
	}
}

func (p *parser) parseFactor() (Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenMinus:
		p.next()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &UnaryNegate{Operand: operand, start: tok.Pos}, nil
	case TokenLParen:
		p.next()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.Kind != TokenRParen {
			return nil, &ParseError{Pos: closing.Pos, Reason: fmt.Sprintf("expected ')', found %s", closing.Kind)}
		}
		return inner, nil
	case TokenInteger:
		p.next()
		if p.peek().Kind == TokenD {
			return p.parseDiceTerm(&tok)
		}
		value, err := parseInt(tok)
		if err != nil {
			return nil, err
		}
		return &Constant{Value: value, start: tok.Pos, end: tok.Pos + len(tok.Text)}, nil
	case TokenD:
		return p.parseDiceTerm(nil)
	default:
		return nil, &ParseError{Pos: tok.Pos, Reason: fmt.Sprintf("expected integer, dice term, '(' or '-', found %s", tok.Kind)}
	}
}

// parseDiceTerm parses "d sides modifier*". countTok is the already
// consumed count literal, or nil when the count was omitted.
func (p *parser) parseDiceTerm(countTok *Token) (Node, error) {
	count := 1
	start := p.peek().Pos
	if countTok != nil {
		start = countTok.Pos
		var err error
		count, err = parseInt(*countTok)
		if err != nil {
			return nil, err
		}
		if count < 1 || count > MaxDiceCount {
			return nil, &ParseError{
				Pos:    countTok.Pos,
				Reason: fmt.Sprintf("dice count must be between 1 and %d, got %d", MaxDiceCount, count),
				cause:  ErrDiceCountRange,
			}
		}
	}

	d := p.next() // TokenD, already checked by the caller
	sidesTok := p.next()
	if sidesTok.Kind != TokenInteger {
		return nil, &ParseError{Pos: d.Pos, Reason: "dice term is missing sides"}
	}
	sides, err := parseInt(sidesTok)
	if err != nil {
		return nil, err
	}
	if sides < 1 || sides > MaxDiceSides {
		return nil, &ParseError{
			Pos:    sidesTok.Pos,
			Reason: fmt.Sprintf("dice sides must be between 1 and %d, got %d", MaxDiceSides, sides),
			cause:  ErrDiceSidesRange,
		}
	}

	term := &DiceTerm{Count: count, Sides: sides, start: start, end: sidesTok.Pos + len(sidesTok.Text)}
	if err := p.parseModifiers(term); err != nil {
		return nil, err
	}
	return term, nil
}

func (p *parser) parseModifiers(term *DiceTerm) error {
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenKeepHigh, TokenKeepLow, TokenDropHigh, TokenDropLow:
			p.next()
			n, end, err := p.optionalArgument(tok, 1)
			if err != nil {
				return err
			}
			switch tok.Kind {
			case TokenKeepHigh:
				term.Modifiers = append(term.Modifiers, KeepHighest{N: n})
			case TokenKeepLow:
				term.Modifiers = append(term.Modifiers, KeepLowest{N: n})
			case TokenDropHigh:
				term.Modifiers = append(term.Modifiers, DropHighest{N: n})
			case TokenDropLow:
				term.Modifiers = append(term.Modifiers, DropLowest{N: n})
			}
			term.end = end
		case TokenExplode:
			p.next()
			threshold, end, err := p.optionalArgument(tok, 0)
			if err != nil {
				return err
			}
			if threshold != 0 && (threshold < 1 || threshold > term.Sides) {
				return &ParseError{Pos: tok.Pos, Reason: fmt.Sprintf("explode threshold %d out of range for d%d", threshold, term.Sides)}
			}
			term.Modifiers = append(term.Modifiers, Explode{Threshold: threshold, Cap: DefaultExplosionCap})
			term.end = end
		case TokenReroll, TokenRerollOnce:
			p.next()
			reroll, end, err := p.parseReroll(tok, term.Sides)
			if err != nil {
				return err
			}
			term.Modifiers = append(term.Modifiers, reroll)
			term.end = end
		case TokenSuccess, TokenFailure:
			p.next()
			argTok := p.next()
			if argTok.Kind != TokenInteger {
				return &ParseError{Pos: tok.Pos, Reason: fmt.Sprintf("%s requires a threshold", tok.Kind)}
			}
			threshold, err := parseInt(argTok)
			if err != nil {
				return err
			}
			if tok.Kind == TokenSuccess {
				term.Modifiers = append(term.Modifiers, SuccessCount{Threshold: threshold})
			} else {
				term.Modifiers = append(term.Modifiers, FailureCount{Threshold: threshold})
			}
			term.end = argTok.Pos + len(argTok.Text)
		default:
			return p.validateModifiers(term)
		}
	}
}

// parseReroll parses the value set after an already consumed 'r'/'ro'.
func (p *parser) parseReroll(keyword Token, sides int) (Reroll, int, error) {
	reroll := Reroll{Once: keyword.Kind == TokenRerollOnce}
	end := keyword.Pos + len(keyword.Text)

	first := p.next()
	if first.Kind != TokenInteger {
		return Reroll{}, 0, &ParseError{Pos: keyword.Pos, Reason: "reroll requires at least one value"}
	}
	argTok := first
	for {
		value, err := parseInt(argTok)
		if err != nil {
			return Reroll{}, 0, err
		}
		if value < 1 || value > sides {
			return Reroll{}, 0, &ParseError{Pos: argTok.Pos, Reason: fmt.Sprintf("reroll value %d out of range for d%d", value, sides)}
		}
		reroll.Values = append(reroll.Values, value)
		end = argTok.Pos + len(argTok.Text)

		if p.peek().Kind != TokenComma {
			break
		}
		p.next()
		argTok = p.next()
		if argTok.Kind != TokenInteger {
			return Reroll{}, 0, &ParseError{Pos: argTok.Pos, Reason: "expected reroll value after ','"}
		}
	}

	if !reroll.Once && coversAllFaces(reroll.Values, sides) {
		return Reroll{}, 0, &ParseError{
			Pos:    keyword.Pos,
			Reason: fmt.Sprintf("reroll set matches every face of d%d and would never settle", sides),
			cause:  ErrRerollCoversDie,
		}
	}
	return reroll, end, nil
}

// optionalArgument consumes an integer argument if one follows,
// returning fallback otherwise. The second result is the term's new end
// offset.
func (p *parser) optionalArgument(keyword Token, fallback int) (int, int, error) {
	if p.peek().Kind != TokenInteger {
		return fallback, keyword.Pos + len(keyword.Text), nil
	}
	argTok := p.next()
	value, err := parseInt(argTok)
	if err != nil {
		return 0, 0, err
	}
	if value < 1 {
		return 0, 0, &ParseError{Pos: argTok.Pos, Reason: fmt.Sprintf("%s argument must be positive", keyword.Kind)}
	}
	return value, argTok.Pos + len(argTok.Text), nil
}

// validateModifiers enforces the static modifier rules: at most one of
// each kind, at most one keep plus one drop, no keep/drop aimed at the
// same end, and at most one of cs/cf.
func (p *parser) validateModifiers(term *DiceTerm) error {
	var keeps, drops, counts int
	var keepHigh, keepLow, dropHigh, dropLow bool
	seen := make(map[string]bool, len(term.Modifiers))

	for _, m := range term.Modifiers {
		kind := modifierKind(m)
		if seen[kind] {
			return &ParseError{
				Pos:    term.start,
				Reason: fmt.Sprintf("duplicate %s modifier", kind),
				cause:  ErrConflictingModifiers,
			}
		}
		seen[kind] = true

		switch m.(type) {
		case KeepHighest:
			keeps++
			keepHigh = true
		case KeepLowest:
			keeps++
			keepLow = true
		case DropHighest:
			drops++
			dropHigh = true
		case DropLowest:
			drops++
			dropLow = true
		case SuccessCount, FailureCount:
			counts++
		}
	}

	switch {
	case keeps > 1:
		return &ParseError{Pos: term.start, Reason: "at most one keep modifier per term", cause: ErrConflictingModifiers}
	case drops > 1:
		return &ParseError{Pos: term.start, Reason: "at most one drop modifier per term", cause: ErrConflictingModifiers}
	case keepHigh && dropHigh, keepLow && dropLow:
		return &ParseError{Pos: term.start, Reason: "keep and drop target the same end of the pool", cause: ErrConflictingModifiers}
	case counts > 1:
		return &ParseError{Pos: term.start, Reason: "at most one success or failure counter per term", cause: ErrConflictingModifiers}
	}
	return nil
}

func modifierKind(m Modifier) string {
	switch m.(type) {
	case KeepHighest:
		return "kh"
	case KeepLowest:
		return "kl"
	case DropHighest:
		return "dh"
	case DropLowest:
		return "dl"
	case Explode:
		return "!"
	case Reroll:
		return "r"
	case SuccessCount:
		return "cs"
	case FailureCount:
		return "cf"
	default:
		return "unknown"
	}
}

// coversAllFaces reports whether values includes every face in
// [1, sides].
func coversAllFaces(values []int, sides int) bool {
	faces := make(map[int]bool, len(values))
	for _, v := range values {
		faces[v] = true
	}
	return len(faces) >= sides
}

func parseInt(tok Token) (int, error) {
	value, err := strconv.Atoi(tok.Text)
	if err != nil {
		return 0, &ParseError{Pos: tok.Pos, Reason: fmt.Sprintf("integer %q out of range", tok.Text)}
	}
	return value, nil
}
