package animation

import "fmt"

// Params is the read side of an animator's parameter store, handed to
// transition conditions. Unset parameters read as zero values.
type Params interface {
	Float(name string) float32
	Int(name string) int32
	Bool(name string) bool
}

// Condition decides whether a transition fires.
type Condition interface {
	Evaluate(p Params) bool
}

// ConditionFunc adapts a closure to Condition.
type ConditionFunc func(p Params) bool

// Evaluate calls f.
func (f ConditionFunc) Evaluate(p Params) bool { return f(p) }

// CompareOp is a comparison used by ParamCondition.
type CompareOp string

const (
	OpEqual        CompareOp = "=="
	OpNotEqual     CompareOp = "!="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
)

// ParamKind selects which parameter map a ParamCondition reads.
type ParamKind int

const (
	ParamFloat ParamKind = iota
	ParamInt
	ParamBool
)

// ParamCondition compares one parameter against a constant. Bool parameters
// read as 1 or 0 so every operator applies uniformly.
type ParamCondition struct {
	Name  string
	Kind  ParamKind
	Op    CompareOp
	Value float64
}

// Evaluate implements Condition.
func (c ParamCondition) Evaluate(p Params) bool {
	var v float64
	switch c.Kind {
	case ParamInt:
		v = float64(p.Int(c.Name))
	case ParamBool:
		if p.Bool(c.Name) {
			v = 1
		}
	default:
		v = float64(p.Float(c.Name))
	}

	switch c.Op {
	case OpEqual:
		return v == c.Value
	case OpNotEqual:
		return v != c.Value
	case OpGreater:
		return v > c.Value
	case OpGreaterEqual:
		return v >= c.Value
	case OpLess:
		return v < c.Value
	case OpLessEqual:
		return v <= c.Value
	default:
		return false
	}
}

// ParseCompareOp validates an operator string.
func ParseCompareOp(s string) (CompareOp, error) {
	switch op := CompareOp(s); op {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return op, nil
	case "=":
		return OpEqual, nil
	default:
		return "", fmt.Errorf("unknown comparison %q", s)
	}
}

// AllOf holds when every condition holds. An empty AllOf always holds.
type AllOf []Condition

// Evaluate implements Condition.
func (a AllOf) Evaluate(p Params) bool {
	for _, c := range a {
		if c == nil || !c.Evaluate(p) {
			return false
		}
	}
	return true
}

// parameters stores gameplay-driven values. The animator never interprets
// them; only conditions do.
type parameters struct {
	floats map[string]float32
	ints   map[string]int32
	bools  map[string]bool
}

func newParameters() parameters {
	return parameters{
		floats: make(map[string]float32),
		ints:   make(map[string]int32),
		bools:  make(map[string]bool),
	}
}

func (p *parameters) Float(name string) float32 { return p.floats[name] }
func (p *parameters) Int(name string) int32     { return p.ints[name] }
func (p *parameters) Bool(name string) bool     { return p.bools[name] }
