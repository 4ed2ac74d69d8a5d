package pattern

import (
	"fmt"
	"math/rand"
	"strconv"

	"tidalgo/internal/notation"
)

// ChoicePolicy selects which child of an alternation group plays on a given
// cycle. It must return a value in [0,n).
type ChoicePolicy func(cycle, n int) int

// RoundRobin cycles through the alternatives in order, one per cycle.
func RoundRobin(cycle, n int) int {
	if n <= 0 {
		return 0
	}
	i := cycle % n
	if i < 0 {
		i += n
	}
	return i
}

// Options parameterizes one query. The zero value queries cycle 0 with
// round-robin alternation and a fixed random seed, so identical (tree,
// Options) inputs always yield identical event lists.
type Options struct {
	// Cycle is the cycle index being queried; it drives alternation and
	// the conditional transforms (every, when).
	Cycle int

	// Policy picks the alternation child. Nil means RoundRobin.
	Policy ChoicePolicy

	// Seed feeds the random source used by degrade and sometimes. The
	// source is derived per query from Seed and Cycle, never shared.
	Seed int64
}

// Query evaluates the tree for one full cycle and returns its events in
// onset order. It is a pure function of (tree, opt).
func Query(root notation.Node, opt Options) ([]Event, error) {
	ctx := &evalCtx{
		cycle:  opt.Cycle,
		policy: opt.Policy,
		rng:    rand.New(rand.NewSource(opt.Seed ^ int64(opt.Cycle)*0x9e3779b9)),
	}
	if ctx.policy == nil {
		ctx.policy = RoundRobin
	}
	evs, err := eval(root, span{0, 1}, ctx)
	if err != nil {
		return nil, err
	}
	sortEvents(evs)
	return evs, nil
}

// QuerySpan evaluates one cycle and keeps only events whose onset lies in
// (from, to). The scheduler uses it to retarget the remainder of a cycle
// after a pattern swap.
func QuerySpan(root notation.Node, from, to float64, opt Options) ([]Event, error) {
	evs, err := Query(root, opt)
	if err != nil {
		return nil, err
	}
	kept := evs[:0:0]
	for _, ev := range evs {
		if ev.Start > from && ev.Start < to {
			kept = append(kept, ev)
		}
	}
	return kept, nil
}

// span is an absolute sub-interval of the cycle, both ends in [0,1].
type span struct {
	start, end float64
}

func (s span) width() float64 { return s.end - s.start }

type evalCtx struct {
	cycle  int
	policy ChoicePolicy
	rng    *rand.Rand
}

func eval(n notation.Node, sp span, ctx *evalCtx) ([]Event, error) {
	switch node := n.(type) {
	case *notation.Leaf:
		return []Event{{
			Value: node.Value,
			Num:   node.Num,
			IsNum: node.IsNum,
			Start: sp.start,
			End:   sp.end,
		}}, nil

	case *notation.Sequence:
		if len(node.Children) == 0 {
			return nil, nil
		}
		w := sp.width() / float64(len(node.Children))
		var out []Event
		for i, child := range node.Children {
			sub := span{sp.start + float64(i)*w, sp.start + float64(i+1)*w}
			evs, err := eval(child, sub, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, evs...)
		}
		return out, nil

	case *notation.Parallel:
		if len(node.Children) == 0 {
			return nil, nil
		}
		i := ctx.policy(ctx.cycle, len(node.Children))
		if i < 0 || i >= len(node.Children) {
			return nil, fmt.Errorf("alternation policy returned %d for %d children", i, len(node.Children))
		}
		return eval(node.Children[i], sp, ctx)

	case *notation.Transform:
		evs, err := eval(node.Child, sp, ctx)
		if err != nil {
			return nil, err
		}
		return applyTransform(node, evs, sp, ctx)

	case *notation.Euclid:
		return evalEuclid(node, sp, ctx)

	case *notation.Modulate:
		evs, err := eval(node.Child, sp, ctx)
		if err != nil {
			return nil, err
		}
		return modulate(evs, node.Amount, node.Rate), nil

	case *notation.Op:
		return evalOp(node, sp, ctx)

	default:
		return nil, fmt.Errorf("unknown pattern node %T", n)
	}
}

// evalEuclid queries the subject and lays its values onto the active slots
// of the onset mask, cycling through them in order.
func evalEuclid(node *notation.Euclid, sp span, ctx *evalCtx) ([]Event, error) {
	subject, err := eval(node.Child, sp, ctx)
	if err != nil {
		return nil, err
	}
	if len(subject) == 0 {
		return nil, nil
	}
	mask := euclidMask(node.Steps, node.Pulses, node.Rotation)
	w := sp.width() / float64(node.Steps)
	var out []Event
	vi := 0
	for i, on := range mask {
		if !on {
			continue
		}
		src := subject[vi%len(subject)]
		vi++
		out = append(out, Event{
			Value: src.Value,
			Num:   src.Num,
			IsNum: src.IsNum,
			Start: sp.start + float64(i)*w,
			End:   sp.start + float64(i+1)*w,
		})
	}
	return out, nil
}

// evalOp applies an arithmetic operator. On a numeric leaf it rewrites the
// value. '*' on a composite subject compresses time (repeat); the other
// operators shift every numeric event and leave symbolic ones alone.
func evalOp(node *notation.Op, sp span, ctx *evalCtx) ([]Event, error) {
	if leaf, ok := node.Child.(*notation.Leaf); ok && leaf.IsNum {
		v, err := arith(node.Kind, leaf.Num, node.Operand)
		if err != nil {
			return nil, err
		}
		return []Event{{
			Value: strconv.FormatFloat(v, 'g', -1, 64),
			Num:   v,
			IsNum: true,
			Start: sp.start,
			End:   sp.end,
		}}, nil
	}

	evs, err := eval(node.Child, sp, ctx)
	if err != nil {
		return nil, err
	}
	if node.Kind == notation.OpMul {
		return fastEvents(evs, node.Operand, sp)
	}
	for i := range evs {
		if !evs[i].IsNum {
			continue
		}
		v, err := arith(node.Kind, evs[i].Num, node.Operand)
		if err != nil {
			return nil, err
		}
		evs[i].Num = v
		evs[i].Value = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return evs, nil
}

func arith(kind notation.OpKind, v, operand float64) (float64, error) {
	switch kind {
	case notation.OpMul:
		return v * operand, nil
	case notation.OpAdd:
		return v + operand, nil
	case notation.OpSub:
		return v - operand, nil
	case notation.OpMod:
		if operand == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		m := v - operand*float64(int(v/operand))
		if m < 0 {
			m += operand
		}
		return m, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", byte(kind))
	}
}
