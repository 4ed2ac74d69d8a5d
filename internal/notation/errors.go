package notation

import "fmt"

// LexError reports a scanning failure, e.g. an unterminated quoted string.
type LexError struct {
	Pos int
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d: %s", e.Pos, e.Msg)
}

// MalformedPatternError reports a structural parse failure: unmatched
// brackets, a missing operand, or an unknown transform name. Pos is the byte
// offset of the offending token (or the input length when the input ended
// too early).
type MalformedPatternError struct {
	Pos int
	Got string
	Msg string
}

func (e *MalformedPatternError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("malformed pattern at %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("malformed pattern at %d: %s (got %s)", e.Pos, e.Msg, e.Got)
}

func malformed(pos int, got, format string, args ...any) error {
	return &MalformedPatternError{Pos: pos, Got: got, Msg: fmt.Sprintf(format, args...)}
}
