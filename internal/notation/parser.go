package notation

import "strconv"

// transformArity lists the known transform names and how many numeric
// operands each takes. The conditional forms additionally take a nested
// transform after their operands.
var transformArity = map[string]int{
	"rev":        0,
	"palindrome": 0,
	"fast":       1,
	"slow":       1,
	"degrade":    1,
	"chop":       1,
	"every":      1,
	"when":       1,
	"sometimes":  1,
}

var conditionalTransforms = map[string]bool{
	"every":     true,
	"when":      true,
	"sometimes": true,
}

// ParseString tokenizes and parses in one step.
func ParseString(text string) (*Sequence, error) {
	toks, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

// Parse builds the pattern tree from a token stream. The root is always a
// Sequence (the toplevel is an implicit bracket pair).
func Parse(toks []Token) (*Sequence, error) {
	p := &parser{toks: toks}
	seq, err := p.parseSequence(0)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		t := p.toks[p.pos]
		return nil, malformed(t.Pos, t.Kind.String(), "unmatched closing bracket")
	}
	return seq, nil
}

type parser struct {
	toks []Token
	pos  int

	// modDepth tracks nesting of '~' operand parsing so a modulation
	// amount can itself contain a modulated element.
	modDepth int
}

// parseSequence consumes elements until the given closing kind (0 at the
// toplevel). The closing token itself is consumed here, never re-emitted.
func (p *parser) parseSequence(closing TokenKind) (*Sequence, error) {
	var children []Node

	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		switch t.Kind {
		case TokListEnd, TokAngleEnd:
			if closing == t.Kind {
				p.pos++
				return &Sequence{Children: children}, nil
			}
			if closing == 0 {
				return nil, malformed(t.Pos, t.Kind.String(), "unmatched closing bracket")
			}
			return nil, malformed(t.Pos, t.Kind.String(), "mismatched closing bracket")

		case TokListStart:
			p.pos++
			sub, err := p.parseSequence(TokListEnd)
			if err != nil {
				return nil, err
			}
			children = append(children, sub)

		case TokAngleStart:
			p.pos++
			sub, err := p.parseSequence(TokAngleEnd)
			if err != nil {
				return nil, err
			}
			children = append(children, &Parallel{Children: sub.Children})

		case TokNumber:
			p.pos++
			children = append(children, &Leaf{Value: t.Text, Num: t.Num(), IsNum: true})

		case TokString, TokSymbol:
			p.pos++
			leaf := &Leaf{Value: t.Text}
			// "bd:3" selects a numbered variant of a sound; fold the
			// index into the leaf value.
			if p.peek(TokColon) && p.peekAt(1, TokNumber) {
				p.pos++ // ':'
				idx := p.toks[p.pos]
				p.pos++
				leaf.Value = t.Text + ":" + idx.Text
			}
			children = append(children, leaf)

		case TokDot:
			if len(children) == 0 {
				return nil, malformed(t.Pos, "", "transform has no subject")
			}
			p.pos++
			subject := oneOrSequence(children)
			tr, err := p.parseTransform(subject, t.Pos)
			if err != nil {
				return nil, err
			}
			children = []Node{tr}

		case TokSlash:
			if len(children) == 0 {
				return nil, malformed(t.Pos, "", "euclidean rhythm has no subject")
			}
			p.pos++
			eu, err := p.parseEuclid(children[len(children)-1], t.Pos)
			if err != nil {
				return nil, err
			}
			children[len(children)-1] = eu

		case TokTilde:
			if len(children) == 0 {
				return nil, malformed(t.Pos, "", "modulation has no subject")
			}
			p.pos++
			p.modDepth++
			amount, err := p.number("modulation amount")
			if err != nil {
				p.modDepth--
				return nil, err
			}
			rate, err := p.number("modulation rate")
			p.modDepth--
			if err != nil {
				return nil, err
			}
			children[len(children)-1] = &Modulate{
				Child:  children[len(children)-1],
				Amount: amount,
				Rate:   rate,
			}

		case TokStar, TokPlus, TokMinus, TokPercent:
			if len(children) == 0 {
				return nil, malformed(t.Pos, t.Kind.String(), "operator has no subject")
			}
			p.pos++
			operand, err := p.number("operator operand")
			if err != nil {
				return nil, err
			}
			children[len(children)-1] = &Op{
				Child:   children[len(children)-1],
				Kind:    opKind(t.Kind),
				Operand: operand,
			}

		case TokColon:
			return nil, malformed(t.Pos, t.Kind.String(), "':' outside a sound index or euclidean spec")

		default:
			return nil, malformed(t.Pos, t.Kind.String(), "unexpected token")
		}
	}

	if closing != 0 {
		return nil, malformed(p.endPos(), "", "missing %s", closing.String())
	}
	return &Sequence{Children: children}, nil
}

// parseTransform reads "name arg* [subname subarg*]" after a '.'.
func (p *parser) parseTransform(subject Node, dotPos int) (Node, error) {
	if p.pos >= len(p.toks) || p.toks[p.pos].Kind != TokSymbol {
		return nil, malformed(p.endPos(), p.curKind(), "expected transform name after '.'")
	}
	name := p.toks[p.pos]
	p.pos++

	arity, ok := transformArity[name.Text]
	if !ok {
		return nil, malformed(name.Pos, name.Text, "unknown transform")
	}

	args := make([]float64, 0, arity)
	for len(args) < arity {
		v, err := p.number(name.Text + " operand")
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	tr := &Transform{Child: subject, Name: name.Text, Args: args}

	if conditionalTransforms[name.Text] {
		if p.pos >= len(p.toks) || p.toks[p.pos].Kind != TokSymbol {
			return nil, malformed(p.endPos(), p.curKind(), "%s needs a transform to apply", name.Text)
		}
		sub := p.toks[p.pos]
		subArity, ok := transformArity[sub.Text]
		if !ok || conditionalTransforms[sub.Text] {
			return nil, malformed(sub.Pos, sub.Text, "unknown transform")
		}
		p.pos++
		tr.Sub = sub.Text
		for len(tr.SubArgs) < subArity {
			v, err := p.number(sub.Text + " operand")
			if err != nil {
				return nil, err
			}
			tr.SubArgs = append(tr.SubArgs, v)
		}
	}

	return tr, nil
}

// parseEuclid reads "steps : pulses [: rotation]" after a '/'.
func (p *parser) parseEuclid(subject Node, slashPos int) (Node, error) {
	steps, err := p.integer("euclidean steps")
	if err != nil {
		return nil, err
	}
	if !p.peek(TokColon) {
		return nil, malformed(p.endPos(), p.curKind(), "expected ':' between euclidean steps and pulses")
	}
	p.pos++
	pulses, err := p.integer("euclidean pulses")
	if err != nil {
		return nil, err
	}
	rotation := 0
	if p.peek(TokColon) {
		p.pos++
		rotation, err = p.integer("euclidean rotation")
		if err != nil {
			return nil, err
		}
	}
	if steps <= 0 || pulses < 0 || pulses > steps {
		return nil, malformed(slashPos, "", "euclidean spec needs 0 <= pulses <= steps and steps > 0")
	}
	return &Euclid{Child: subject, Steps: steps, Pulses: pulses, Rotation: rotation}, nil
}

func (p *parser) number(what string) (float64, error) {
	if p.pos >= len(p.toks) || p.toks[p.pos].Kind != TokNumber {
		return 0, malformed(p.endPos(), p.curKind(), "expected %s", what)
	}
	v := p.toks[p.pos].Num()
	p.pos++
	return v, nil
}

func (p *parser) integer(what string) (int, error) {
	if p.pos >= len(p.toks) || p.toks[p.pos].Kind != TokNumber {
		return 0, malformed(p.endPos(), p.curKind(), "expected %s", what)
	}
	t := p.toks[p.pos]
	v, err := strconv.Atoi(t.Text)
	if err != nil {
		return 0, malformed(t.Pos, t.Text, "%s must be an integer", what)
	}
	p.pos++
	return v, nil
}

func (p *parser) peek(kind TokenKind) bool {
	return p.pos < len(p.toks) && p.toks[p.pos].Kind == kind
}

func (p *parser) peekAt(off int, kind TokenKind) bool {
	return p.pos+off < len(p.toks) && p.toks[p.pos+off].Kind == kind
}

func (p *parser) curKind() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos].Kind.String()
}

func (p *parser) endPos() int {
	if p.pos < len(p.toks) {
		return p.toks[p.pos].Pos
	}
	if n := len(p.toks); n > 0 {
		last := p.toks[n-1]
		return last.Pos + len(last.Text)
	}
	return 0
}

func oneOrSequence(children []Node) Node {
	if len(children) == 1 {
		return children[0]
	}
	return &Sequence{Children: children}
}

func opKind(k TokenKind) OpKind {
	switch k {
	case TokStar:
		return OpMul
	case TokPlus:
		return OpAdd
	case TokMinus:
		return OpSub
	default:
		return OpMod
	}
}
