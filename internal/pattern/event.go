package pattern

import "sort"

// Event is one playable occurrence inside a cycle. Start and End are
// cycle-relative fractions in [0,1); Start < End always holds for events
// produced by Query.
//
// Part/Parts mark a fragment of a chopped event: Part is the fragment index
// and Parts the fragment count. Both are zero for whole events.
type Event struct {
	Value string
	Num   float64
	IsNum bool

	Start float64
	End   float64

	Part  int
	Parts int
}

// Duration is the event's cycle-relative length.
func (e Event) Duration() float64 { return e.End - e.Start }

func sortEvents(evs []Event) {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Start < evs[j].Start })
}
