// Package dice implements the dice expression engine: a lexer and
// recursive-descent parser for tabletop dice notation (4d6dl1, 2d20kh1,
// 3d6!, 1d20+5) and an evaluator that resolves parsed expressions
// against a random source into an auditable per-die breakdown.
package dice

import "fmt"

// LexError reports a byte that cannot start a valid token.
type LexError struct {
	Pos  int
	Char byte
}

func (e *LexError) Error() string {
	return fmt.Sprintf("unexpected character %q at position %d", e.Char, e.Pos)
}

// Lex tokenizes a dice expression. Whitespace separates tokens and is
// otherwise ignored. Keywords are case-insensitive. Integer literals are
// unsigned; sign is the parser's concern so that "3-1d6" stays
// unambiguous.
func Lex(input string) ([]Token, error) {
	tokens := make([]Token, 0, len(input)/2+1)

	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c):
			start := i
			for i < len(input) && isDigit(input[i]) {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenInteger, Text: input[start:i], Pos: start})
		default:
			token, width, err := lexSymbol(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token)
			i += width
		}
	}

	tokens = append(tokens, Token{Kind: TokenEOF, Pos: len(input)})
	return tokens, nil
}

// lexSymbol scans a single operator, punctuation, or keyword token
// starting at position pos.
func lexSymbol(input string, pos int) (Token, int, error) {
	c := input[pos]
	switch c {
	case '+':
		return Token{Kind: TokenPlus, Text: "+", Pos: pos}, 1, nil
	case '-':
		return Token{Kind: TokenMinus, Text: "-", Pos: pos}, 1, nil
	case '*':
		return Token{Kind: TokenStar, Text: "*", Pos: pos}, 1, nil
	case '/':
		return Token{Kind: TokenSlash, Text: "/", Pos: pos}, 1, nil
	case '(':
		return Token{Kind: TokenLParen, Text: "(", Pos: pos}, 1, nil
	case ')':
		return Token{Kind: TokenRParen, Text: ")", Pos: pos}, 1, nil
	case ',':
		return Token{Kind: TokenComma, Text: ",", Pos: pos}, 1, nil
	case '!':
		return Token{Kind: TokenExplode, Text: "!", Pos: pos}, 1, nil
	}

	switch lower(c) {
	case 'd':
		// "dh"/"dl" are drop modifiers; any other 'd' is the dice operator.
		switch peekLower(input, pos+1) {
		case 'h':
			return Token{Kind: TokenDropHigh, Text: input[pos : pos+2], Pos: pos}, 2, nil
		case 'l':
			return Token{Kind: TokenDropLow, Text: input[pos : pos+2], Pos: pos}, 2, nil
		}
		return Token{Kind: TokenD, Text: input[pos : pos+1], Pos: pos}, 1, nil
	case 'k':
		switch peekLower(input, pos+1) {
		case 'h':
			return Token{Kind: TokenKeepHigh, Text: input[pos : pos+2], Pos: pos}, 2, nil
		case 'l':
			return Token{Kind: TokenKeepLow, Text: input[pos : pos+2], Pos: pos}, 2, nil
		}
	case 'r':
		if peekLower(input, pos+1) == 'o' {
			return Token{Kind: TokenRerollOnce, Text: input[pos : pos+2], Pos: pos}, 2, nil
		}
		return Token{Kind: TokenReroll, Text: input[pos : pos+1], Pos: pos}, 1, nil
	case 'c':
		switch peekLower(input, pos+1) {
		case 's':
			return Token{Kind: TokenSuccess, Text: input[pos : pos+2], Pos: pos}, 2, nil
		case 'f':
			return Token{Kind: TokenFailure, Text: input[pos : pos+2], Pos: pos}, 2, nil
		}
	}

	return Token{}, 0, &LexError{Pos: pos, Char: c}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// peekLower returns the lowercased byte at pos, or 0 past the end.
func peekLower(input string, pos int) byte {
	if pos >= len(input) {
		return 0
	}
	return lower(input[pos])
}
