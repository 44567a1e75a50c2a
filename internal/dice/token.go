package dice

// TokenKind identifies a lexical unit of dice notation.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenInteger
	TokenD
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenLParen
	TokenRParen
	TokenComma
	TokenKeepHigh
	TokenKeepLow
	TokenDropHigh
	TokenDropLow
	TokenExplode
	TokenReroll
	TokenRerollOnce
	TokenSuccess
	TokenFailure
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenInteger:
		return "integer"
	case TokenD:
		return "'d'"
	case TokenPlus:
		return "'+'"
	case TokenMinus:
		return "'-'"
	case TokenStar:
		return "'*'"
	case TokenSlash:
		return "'/'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenComma:
		return "','"
	case TokenKeepHigh:
		return "'kh'"
	case TokenKeepLow:
		return "'kl'"
	case TokenDropHigh:
		return "'dh'"
	case TokenDropLow:
		return "'dl'"
	case TokenExplode:
		return "'!'"
	case TokenReroll:
		return "'r'"
	case TokenRerollOnce:
		return "'ro'"
	case TokenSuccess:
		return "'cs'"
	case TokenFailure:
		return "'cf'"
	default:
		return "unknown token"
	}
}

// Token is a single lexical unit together with the 0-based byte offset
// where it starts in the source expression.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}
