package pattern

import (
	"fmt"
	"math"

	"tidalgo/internal/notation"
)

func applyTransform(node *notation.Transform, evs []Event, sp span, ctx *evalCtx) ([]Event, error) {
	switch node.Name {
	case "every":
		// Apply the nested transform on every k-th cycle.
		k := int(node.Args[0])
		if k <= 0 {
			return nil, fmt.Errorf("every: operand must be >= 1")
		}
		if ctx.cycle%k == 0 {
			return applyNamed(node.Sub, node.SubArgs, evs, sp, ctx)
		}
		return evs, nil

	case "when":
		// Complement of every: apply on the cycles every would skip.
		k := int(node.Args[0])
		if k <= 0 {
			return nil, fmt.Errorf("when: operand must be >= 1")
		}
		if ctx.cycle%k != 0 {
			return applyNamed(node.Sub, node.SubArgs, evs, sp, ctx)
		}
		return evs, nil

	case "sometimes":
		if ctx.rng.Float64() < node.Args[0] {
			return applyNamed(node.Sub, node.SubArgs, evs, sp, ctx)
		}
		return evs, nil

	default:
		return applyNamed(node.Name, node.Args, evs, sp, ctx)
	}
}

func applyNamed(name string, args []float64, evs []Event, sp span, ctx *evalCtx) ([]Event, error) {
	switch name {
	case "rev":
		return revEvents(evs, sp), nil
	case "palindrome":
		return palindromeEvents(evs, sp), nil
	case "fast":
		return fastEvents(evs, args[0], sp)
	case "slow":
		return slowEvents(evs, args[0], sp, ctx)
	case "degrade":
		return degradeEvents(evs, args[0], ctx), nil
	case "chop":
		return chopEvents(evs, int(args[0]))
	default:
		return nil, fmt.Errorf("unknown transform %q", name)
	}
}

// revEvents reflects each event inside the span: event i of n lands where
// event n-1-i was, span boundaries stay fixed.
func revEvents(evs []Event, sp span) []Event {
	out := make([]Event, len(evs))
	for i, ev := range evs {
		r := ev
		r.Start = sp.start + sp.end - ev.End
		r.End = sp.start + sp.end - ev.Start
		out[len(evs)-1-i] = r
	}
	return out
}

// palindromeEvents plays the events forward in the first half of the span
// and reversed in the second half, each compressed to half duration.
func palindromeEvents(evs []Event, sp span) []Event {
	mid := sp.start + sp.width()/2
	out := make([]Event, 0, 2*len(evs))
	for _, ev := range evs {
		c := ev
		c.Start = sp.start + (ev.Start-sp.start)/2
		c.End = sp.start + (ev.End-sp.start)/2
		out = append(out, c)
	}
	for _, ev := range revEvents(evs, sp) {
		c := ev
		c.Start = mid + (ev.Start-sp.start)/2
		c.End = mid + (ev.End-sp.start)/2
		out = append(out, c)
	}
	return out
}

// fastEvents squeezes the events into span/rate and repeats them. Integer
// rates repeat exactly; a fractional rate truncates the final repetition at
// the span edge.
func fastEvents(evs []Event, rate float64, sp span) ([]Event, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("fast: rate must be > 0")
	}
	if rate == 1 {
		return evs, nil
	}
	reps := int(math.Ceil(rate))
	w := sp.width() / rate
	var out []Event
	for k := 0; k < reps; k++ {
		off := sp.start + float64(k)*w
		for _, ev := range evs {
			c := ev
			c.Start = off + (ev.Start-sp.start)/rate
			c.End = off + (ev.End-sp.start)/rate
			if c.Start >= sp.end {
				continue
			}
			if c.End > sp.end {
				c.End = sp.end
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// slowEvents stretches the events by rate and shows the slice that belongs
// to the current cycle, so the full figure unfolds over rate cycles.
func slowEvents(evs []Event, rate float64, sp span, ctx *evalCtx) ([]Event, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("slow: rate must be > 0")
	}
	if rate == 1 {
		return evs, nil
	}
	phases := int(math.Ceil(rate))
	k := ctx.cycle % phases
	if k < 0 {
		k += phases
	}
	lo := float64(k) / rate
	hi := float64(k+1) / rate
	var out []Event
	for _, ev := range evs {
		local := (ev.Start - sp.start) / sp.width()
		if local < lo || local >= hi {
			continue
		}
		c := ev
		c.Start = sp.start + (local-lo)*rate*sp.width()
		c.End = c.Start + ev.Duration()*rate
		if c.End > sp.end {
			c.End = sp.end
		}
		out = append(out, c)
	}
	return out, nil
}

// degradeEvents drops each event independently with probability p.
func degradeEvents(evs []Event, p float64, ctx *evalCtx) []Event {
	out := evs[:0:0]
	for _, ev := range evs {
		if ctx.rng.Float64() < p {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// chopEvents subdivides every event into n contiguous fragments covering the
// original span exactly, tagged with increasing Part indices.
func chopEvents(evs []Event, n int) ([]Event, error) {
	if n <= 0 {
		return nil, fmt.Errorf("chop: count must be >= 1")
	}
	if n == 1 {
		return evs, nil
	}
	out := make([]Event, 0, len(evs)*n)
	for _, ev := range evs {
		w := ev.Duration() / float64(n)
		for i := 0; i < n; i++ {
			frag := ev
			frag.Start = ev.Start + float64(i)*w
			frag.End = ev.Start + float64(i+1)*w
			frag.Part = i
			frag.Parts = n
			out = append(out, frag)
		}
		// Pin the last fragment to the exact original end to avoid
		// float drift.
		out[len(out)-1].End = ev.End
	}
	return out, nil
}

// modulate offsets each onset by amount*sin(2*pi*rate*onset), wrapped into
// the cycle; durations are preserved up to the cycle edge.
func modulate(evs []Event, amount, rate float64) []Event {
	out := make([]Event, 0, len(evs))
	for _, ev := range evs {
		dur := ev.Duration()
		c := ev
		c.Start = wrap01(ev.Start + amount*math.Sin(2*math.Pi*rate*ev.Start))
		c.End = c.Start + dur
		if c.End > 1 {
			c.End = 1
		}
		if c.End <= c.Start {
			continue
		}
		out = append(out, c)
	}
	sortEvents(out)
	return out
}

func wrap01(t float64) float64 {
	t = math.Mod(t, 1)
	if t < 0 {
		t += 1
	}
	return t
}
