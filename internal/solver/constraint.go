package solver

import "github.com/abax-solver/abax/internal/core"

// tern is three-valued: a constraint over unassigned variables is neither
// satisfied nor violated yet.
type tern int8

const (
	ternUnknown tern = iota
	ternTrue
	ternFalse
)

func ternOf(b bool) tern {
	if b {
		return ternTrue
	}
	return ternFalse
}

// Constraint is a boolean formula over session variables. Evaluation is
// three-valued so the search can prune as soon as a partial assignment
// violates a constraint.
type Constraint interface {
	eval(m *assignment) tern
}

// True and False are the trivial constraints.
func True() Constraint  { return boolConstraint(true) }
func False() Constraint { return boolConstraint(false) }

type boolConstraint bool

func (c boolConstraint) eval(*assignment) tern {
	return ternOf(bool(c))
}

// Eq binds a variable to a concrete value.
type eqValue struct {
	v   *Var
	val core.Value
}

func Eq(v *Var, val core.Value) Constraint {
	return eqValue{v: v, val: val}
}

func (c eqValue) eval(m *assignment) tern {
	val, ok := m.value(c.v)
	if !ok {
		return ternUnknown
	}
	return ternOf(val.Equal(c.val))
}

// EqVars requires two variables to hold equal values.
type eqVars struct {
	a, b *Var
}

func EqVars(a, b *Var) Constraint {
	return eqVars{a: a, b: b}
}

func (c eqVars) eval(m *assignment) tern {
	av, ok := m.value(c.a)
	if !ok {
		return ternUnknown
	}
	bv, ok := m.value(c.b)
	if !ok {
		return ternUnknown
	}
	return ternOf(av.Equal(bv))
}

// Not negates a constraint.
type not struct {
	c Constraint
}

func Not(c Constraint) Constraint {
	return not{c: c}
}

func (c not) eval(m *assignment) tern {
	switch c.c.eval(m) {
	case ternTrue:
		return ternFalse
	case ternFalse:
		return ternTrue
	default:
		return ternUnknown
	}
}

// And is satisfied when every conjunct is.
type and struct {
	cs []Constraint
}

func And(cs ...Constraint) Constraint {
	return and{cs: cs}
}

func (c and) eval(m *assignment) tern {
	result := ternTrue
	for _, sub := range c.cs {
		switch sub.eval(m) {
		case ternFalse:
			return ternFalse
		case ternUnknown:
			result = ternUnknown
		}
	}
	return result
}

// Or is satisfied when any disjunct is.
type or struct {
	cs []Constraint
}

func Or(cs ...Constraint) Constraint {
	return or{cs: cs}
}

func (c or) eval(m *assignment) tern {
	result := ternFalse
	for _, sub := range c.cs {
		switch sub.eval(m) {
		case ternTrue:
			return ternTrue
		case ternUnknown:
			result = ternUnknown
		}
	}
	return result
}

// Implies is material implication: ¬a ∨ b.
func Implies(a, b Constraint) Constraint {
	return Or(Not(a), b)
}

// Term is a numeric expression over variables and constants. A term whose
// variable holds a null or non-numeric value has no defined result, and any
// comparison over it is false on both evaluation paths.
type Term interface {
	// value returns the numeric result. defined=false means a referenced
	// value is null or non-numeric; ready=false means a referenced
	// variable is still unassigned.
	value(m *assignment) (result float64, defined, ready bool)
}

type constTerm float64

// Const is a numeric literal term.
func Const(n float64) Term {
	return constTerm(n)
}

func (t constTerm) value(*assignment) (float64, bool, bool) {
	return float64(t), true, true
}

type varTerm struct {
	v *Var
}

// Num reads a variable as a number.
func Num(v *Var) Term {
	return varTerm{v: v}
}

func (t varTerm) value(m *assignment) (float64, bool, bool) {
	val, ok := m.value(t.v)
	if !ok {
		return 0, false, false
	}
	n, defined := val.AsNumber()
	return n, defined, true
}

type binTerm struct {
	mul  bool
	l, r Term
}

func Add(l, r Term) Term {
	return binTerm{l: l, r: r}
}

func Mul(l, r Term) Term {
	return binTerm{mul: true, l: l, r: r}
}

func (t binTerm) value(m *assignment) (float64, bool, bool) {
	lv, lDef, lReady := t.l.value(m)
	rv, rDef, rReady := t.r.value(m)
	if !lReady || !rReady {
		return 0, false, false
	}
	if !lDef || !rDef {
		return 0, false, true
	}
	if t.mul {
		return lv * rv, true, true
	}
	return lv + rv, true, true
}

// Cmp compares two numeric terms. Comparisons over undefined terms are
// false, matching the oracle's handling of null and non-numeric values.
type cmp struct {
	l, r Term
	op   core.CompareOp
}

func Cmp(l Term, op core.CompareOp, r Term) Constraint {
	return cmp{l: l, r: r, op: op}
}

func (c cmp) eval(m *assignment) tern {
	lv, lDef, lReady := c.l.value(m)
	rv, rDef, rReady := c.r.value(m)
	if !lReady || !rReady {
		return ternUnknown
	}
	if !lDef || !rDef {
		return ternFalse
	}
	switch c.op {
	case core.OpEq:
		return ternOf(lv == rv)
	case core.OpNe:
		return ternOf(lv != rv)
	case core.OpGe:
		return ternOf(lv >= rv)
	case core.OpLe:
		return ternOf(lv <= rv)
	case core.OpLt:
		return ternOf(lv < rv)
	case core.OpGt:
		return ternOf(lv > rv)
	}
	return ternFalse
}
