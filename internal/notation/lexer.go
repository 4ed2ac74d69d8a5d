package notation

import "strconv"

var structural = map[byte]TokenKind{
	'[': TokListStart,
	']': TokListEnd,
	'<': TokAngleStart,
	'>': TokAngleEnd,
	'.': TokDot,
	':': TokColon,
	'/': TokSlash,
	'*': TokStar,
	'+': TokPlus,
	'-': TokMinus,
	'%': TokPercent,
	'~': TokTilde,
}

// Tokenize scans text left to right into a flat token sequence.
//
// Whitespace outside quotes separates tokens and is discarded. A structural
// character always flushes the word being accumulated and then emits its own
// single-character token, even mid-word. Inside double quotes everything up
// to the closing quote (whitespace included) is one string token; reaching
// end of input inside a quote is a LexError.
func Tokenize(text string) ([]Token, error) {
	toks := make([]Token, 0, 16)
	wordStart := -1

	flush := func(end int) {
		if wordStart < 0 {
			return
		}
		word := text[wordStart:end]
		kind := TokSymbol
		if _, err := strconv.ParseFloat(word, 64); err == nil {
			kind = TokNumber
		}
		toks = append(toks, Token{Kind: kind, Text: word, Pos: wordStart})
		wordStart = -1
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			flush(i)
			start := i
			j := i + 1
			for j < len(text) && text[j] != '"' {
				j++
			}
			if j >= len(text) {
				return nil, &LexError{Pos: start, Msg: "unterminated string"}
			}
			toks = append(toks, Token{Kind: TokString, Text: text[start+1 : j], Pos: start})
			i = j
		case isSpace(c):
			flush(i)
		default:
			if kind, ok := structural[c]; ok {
				// A '-' directly followed by a digit starts a negative
				// number, not an operator.
				if c == '-' && wordStart < 0 && i+1 < len(text) && isDigit(text[i+1]) {
					wordStart = i
					continue
				}
				// A '.' inside a numeric word is a decimal point
				// ("0.25"), not the transform separator.
				if c == '.' && wordStart >= 0 && allDigits(text[wordStart:i]) && i+1 < len(text) && isDigit(text[i+1]) {
					continue
				}
				flush(i)
				toks = append(toks, Token{Kind: kind, Text: string(c), Pos: i})
				continue
			}
			if wordStart < 0 {
				wordStart = i
			}
		}
	}
	flush(len(text))
	return toks, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// allDigits reports whether s is a digit run with an optional leading minus,
// i.e. the integer part of a number still being accumulated.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
		if s == "" {
			return false
		}
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
