package notation

import "strconv"

// TokenKind discriminates lexer output. Structural kinds map 1:1 to a single
// source character; Number/String/Symbol carry their text.
type TokenKind int

const (
	TokNumber TokenKind = iota
	TokString
	TokSymbol
	TokListStart  // [
	TokListEnd    // ]
	TokAngleStart // <
	TokAngleEnd   // >
	TokDot        // .
	TokColon      // :
	TokSlash      // /
	TokStar       // *
	TokPlus       // +
	TokMinus      // -
	TokPercent    // %
	TokTilde      // ~
)

func (k TokenKind) String() string {
	switch k {
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokSymbol:
		return "symbol"
	case TokListStart:
		return "'['"
	case TokListEnd:
		return "']'"
	case TokAngleStart:
		return "'<'"
	case TokAngleEnd:
		return "'>'"
	case TokDot:
		return "'.'"
	case TokColon:
		return "':'"
	case TokSlash:
		return "'/'"
	case TokStar:
		return "'*'"
	case TokPlus:
		return "'+'"
	case TokMinus:
		return "'-'"
	case TokPercent:
		return "'%'"
	case TokTilde:
		return "'~'"
	default:
		return "token(" + strconv.Itoa(int(k)) + ")"
	}
}

// Token is one lexical unit. Pos is the byte offset of the token's first
// character in the original input, kept for error reporting.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// Num returns the numeric value of a TokNumber token.
// It must only be called on number tokens; the lexer guarantees the text parses.
func (t Token) Num() float64 {
	v, _ := strconv.ParseFloat(t.Text, 64)
	return v
}
