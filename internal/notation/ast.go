package notation

// Node is the pattern AST. Trees are immutable after Parse; a live pattern
// change always swaps in a whole new tree instead of mutating nodes.
//
// The concrete types form a closed set; evaluators dispatch with a type
// switch over all of them.
type Node interface {
	node()
}

// Leaf is a single value: a sound/sample name or a bare number.
type Leaf struct {
	Value string
	Num   float64
	IsNum bool
}

// Sequence lays out its children left to right, dividing its own time span
// evenly among them.
type Sequence struct {
	Children []Node
}

// Parallel holds alternatives; exactly one child plays per cycle.
type Parallel struct {
	Children []Node
}

// Transform reinterprets its child's events (rev, fast, chop, ...).
// Sub/SubArgs carry the nested transform for the conditional forms
// (every, when, sometimes).
type Transform struct {
	Child   Node
	Name    string
	Args    []float64
	Sub     string
	SubArgs []float64
}

// Euclid spreads Pulses onsets as evenly as possible over Steps slots,
// rotated left by Rotation. The child supplies the values played on the
// active slots.
type Euclid struct {
	Child    Node
	Steps    int
	Pulses   int
	Rotation int
}

// Modulate offsets the child's onsets with a slow sine of the given
// amount and rate.
type Modulate struct {
	Child  Node
	Amount float64
	Rate   float64
}

// OpKind is an arithmetic operator attached to an element.
type OpKind byte

const (
	OpMul OpKind = '*'
	OpAdd OpKind = '+'
	OpSub OpKind = '-'
	OpMod OpKind = '%'
)

// Op applies an arithmetic operator to its child. On a numeric leaf it
// rewrites the value; '*' on anything else is a time compression (repeat).
type Op struct {
	Child   Node
	Kind    OpKind
	Operand float64
}

func (*Leaf) node()      {}
func (*Sequence) node()  {}
func (*Parallel) node()  {}
func (*Transform) node() {}
func (*Euclid) node()    {}
func (*Modulate) node()  {}
func (*Op) node()        {}
