// Package encode translates rule predicates into solver constraints over
// two free identifier variables, one ranging over subject ids and one over
// resource ids.
package encode

import (
	"errors"
	"fmt"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/solver"
	"github.com/abax-solver/abax/internal/store"
)

// Encoder owns one solver session plus the pair of free identifier
// variables, and lazily injects every attribute the encoded rules touch.
// One encoder per enumeration run; runs never share sessions.
type Encoder struct {
	st   *store.Store
	sess *solver.Session
	sub  *solver.Var
	res  *solver.Var

	attrs map[core.Path]*solver.Var
}

// New creates an encoder with a fresh session. The identifier variables
// range over the store's populations in declaration order.
func New(st *store.Store, opts ...solver.Option) *Encoder {
	sess := solver.NewSession(opts...)

	subDomain := idDomain(st, core.KindSubject)
	resDomain := idDomain(st, core.KindResource)

	return &Encoder{
		st:    st,
		sess:  sess,
		sub:   sess.NewVar("subject", subDomain),
		res:   sess.NewVar("resource", resDomain),
		attrs: make(map[core.Path]*solver.Var),
	}
}

func idDomain(st *store.Store, kind core.EntityKind) []core.Value {
	ids := st.IDs(kind)
	domain := make([]core.Value, len(ids))
	for i, id := range ids {
		domain[i] = core.TextValue(id)
	}
	return domain
}

func (e *Encoder) Session() *solver.Session {
	return e.sess
}

// Pair returns the two free identifier variables.
func (e *Encoder) Pair() (sub, res *solver.Var) {
	return e.sub, e.res
}

// Rule encodes one rule predicate. Structural problems come back as a
// rule-local *core.EncodingError; the session stays usable for other
// rules.
func (e *Encoder) Rule(r core.Rule) (solver.Constraint, error) {
	if err := core.CheckShape(r, e.st); err != nil {
		return nil, &core.EncodingError{Rule: r.ID, Wrapped: err}
	}
	c, err := e.expr(r.Predicate)
	if err != nil {
		return nil, &core.EncodingError{Rule: r.ID, Wrapped: err}
	}
	return c, nil
}

// Unified encodes the exact disjunction of the given rules: a pair is
// admitted iff at least one rule admits it, which keeps unified-mode
// results equal to the union of per-rule results. Unencodable rules are
// skipped and reported; they are skipped identically by the oracle.
func (e *Encoder) Unified(rules []core.Rule) (solver.Constraint, []*core.EncodingError) {
	var disjuncts []solver.Constraint
	var skipped []*core.EncodingError

	for _, r := range rules {
		c, err := e.Rule(r)
		if err != nil {
			var encErr *core.EncodingError
			if !errors.As(err, &encErr) {
				encErr = &core.EncodingError{Rule: r.ID, Wrapped: err}
			}
			skipped = append(skipped, encErr)
			continue
		}
		disjuncts = append(disjuncts, c)
	}

	if len(disjuncts) == 0 {
		return solver.False(), skipped
	}
	return solver.Or(disjuncts...), skipped
}

func (e *Encoder) idVar(kind core.EntityKind) *solver.Var {
	if kind == core.KindResource {
		return e.res
	}
	return e.sub
}

// scalarRef is a resolved scalar operand: either a solver variable or a
// literal.
type scalarRef struct {
	v   *solver.Var
	lit core.Value
}

func (e *Encoder) scalar(o core.Operand) (scalarRef, error) {
	if o.Path != nil {
		v, err := e.attrVar(*o.Path)
		if err != nil {
			return scalarRef{}, err
		}
		return scalarRef{v: v}, nil
	}
	if o.Lit == nil {
		return scalarRef{}, fmt.Errorf("empty operand")
	}
	if o.Lit.Kind == core.TypeSet {
		return scalarRef{}, fmt.Errorf("set literal where a scalar is required")
	}
	return scalarRef{lit: *o.Lit}, nil
}

func eqRefs(a, b scalarRef) solver.Constraint {
	switch {
	case a.v != nil && b.v != nil:
		return solver.EqVars(a.v, b.v)
	case a.v != nil:
		return solver.Eq(a.v, b.lit)
	case b.v != nil:
		return solver.Eq(b.v, a.lit)
	default:
		if a.lit.Equal(b.lit) {
			return solver.True()
		}
		return solver.False()
	}
}

func (r scalarRef) eqText(s string) solver.Constraint {
	if r.v != nil {
		return solver.Eq(r.v, core.TextValue(s))
	}
	if r.lit.Equal(core.TextValue(s)) {
		return solver.True()
	}
	return solver.False()
}

// expr translates one constraint shape. The switch is exhaustive over the
// closed shape set; the oracle's evaluator mirrors it case for case.
func (e *Encoder) expr(x core.Expr) (solver.Constraint, error) {
	switch t := x.(type) {
	case core.Compare:
		return e.compare(t)
	case core.Arith:
		l, err := e.numTerm(t.Left)
		if err != nil {
			return nil, err
		}
		r, err := e.numTerm(t.Right)
		if err != nil {
			return nil, err
		}
		return solver.Cmp(l, t.Op, r), nil
	case core.Membership:
		return e.membership(t.Element, t.Set)
	case core.SetContains:
		return e.membership(t.Element, t.Set)
	case core.Window:
		return e.window(t)
	case core.Conditional:
		guard, err := e.expr(t.Guard)
		if err != nil {
			return nil, err
		}
		req, err := e.expr(t.Requirement)
		if err != nil {
			return nil, err
		}
		return solver.Implies(guard, req), nil
	case core.Transitive:
		direct, err := e.compare(core.Compare{Left: t.Target, Op: core.OpEq, Right: t.Direct})
		if err != nil {
			return nil, err
		}
		viaRelation, err := e.membership(t.Target, t.Relation)
		if err != nil {
			return nil, err
		}
		return solver.Or(direct, viaRelation), nil
	case core.And:
		cs, err := e.exprs(t.Terms)
		if err != nil {
			return nil, err
		}
		return solver.And(cs...), nil
	case core.Or:
		cs, err := e.exprs(t.Terms)
		if err != nil {
			return nil, err
		}
		return solver.Or(cs...), nil
	default:
		panic(fmt.Sprintf("unhandled constraint shape %T", x))
	}
}

func (e *Encoder) exprs(terms []core.Expr) ([]solver.Constraint, error) {
	out := make([]solver.Constraint, len(terms))
	for i, sub := range terms {
		c, err := e.expr(sub)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (e *Encoder) compare(t core.Compare) (solver.Constraint, error) {
	if t.Op.Ordered() {
		l, err := e.numOperand(t.Left)
		if err != nil {
			return nil, err
		}
		r, err := e.numOperand(t.Right)
		if err != nil {
			return nil, err
		}
		return solver.Cmp(l, t.Op, r), nil
	}

	l, err := e.scalar(t.Left)
	if err != nil {
		return nil, err
	}
	r, err := e.scalar(t.Right)
	if err != nil {
		return nil, err
	}
	eq := eqRefs(l, r)
	if t.Op == core.OpNe {
		return solver.Not(eq), nil
	}
	return eq, nil
}

// membership compiles an element-in-set test to a finite disjunction of
// equality tests. A literal set enumerates directly; a set-valued
// attribute expands per candidate id, guarded by the identifier choice.
func (e *Encoder) membership(element, set core.Operand) (solver.Constraint, error) {
	elem, err := e.scalar(element)
	if err != nil {
		return nil, err
	}

	if set.Lit != nil {
		if set.Lit.Kind != core.TypeSet {
			return nil, fmt.Errorf("operand %s is not a set", set)
		}
		return memberOf(elem, *set.Lit), nil
	}
	if set.Path == nil {
		return nil, fmt.Errorf("empty set operand")
	}

	idVar := e.idVar(set.Path.Entity)
	ids, sets, err := e.setPerID(*set.Path)
	if err != nil {
		return nil, err
	}

	disjuncts := make([]solver.Constraint, 0, len(ids))
	for i, id := range ids {
		inner := memberOf(elem, sets[i])
		disjuncts = append(disjuncts, solver.And(
			solver.Eq(idVar, core.TextValue(id)),
			inner,
		))
	}
	if len(disjuncts) == 0 {
		return solver.False(), nil
	}
	return solver.Or(disjuncts...), nil
}

func memberOf(elem scalarRef, set core.Value) solver.Constraint {
	if set.Null || len(set.Set) == 0 {
		return solver.False()
	}
	tests := make([]solver.Constraint, len(set.Set))
	for i, m := range set.Set {
		tests[i] = elem.eqText(m)
	}
	return solver.Or(tests...)
}

func (e *Encoder) window(t core.Window) (solver.Constraint, error) {
	point, err := e.numOperand(t.Point)
	if err != nil {
		return nil, err
	}
	start, err := e.numOperand(t.Start)
	if err != nil {
		return nil, err
	}
	end, err := e.numOperand(t.End)
	if err != nil {
		return nil, err
	}

	// fold the normalization into constant offsets; core.NormalizeClock
	// defines the same shift for the oracle
	point = solver.Add(point, solver.Const(-t.PointOffset))
	start = solver.Add(start, solver.Const(-t.WindowOffset))
	end = solver.Add(end, solver.Const(-t.WindowOffset))

	return solver.And(
		solver.Cmp(start, core.OpLe, point),
		solver.Cmp(point, core.OpLe, end),
	), nil
}

func (e *Encoder) numOperand(o core.Operand) (solver.Term, error) {
	if o.Path != nil {
		v, err := e.attrVar(*o.Path)
		if err != nil {
			return nil, err
		}
		return solver.Num(v), nil
	}
	if o.Lit == nil {
		return nil, fmt.Errorf("empty operand")
	}
	n, ok := o.Lit.AsNumber()
	if !ok {
		return nil, fmt.Errorf("literal %s is not a number", o.Lit)
	}
	return solver.Const(n), nil
}

func (e *Encoder) numTerm(n core.NumExpr) (solver.Term, error) {
	switch t := n.(type) {
	case core.Num:
		return e.numOperand(t.Operand)
	case core.NumAdd:
		l, err := e.numTerm(t.Left)
		if err != nil {
			return nil, err
		}
		r, err := e.numTerm(t.Right)
		if err != nil {
			return nil, err
		}
		return solver.Add(l, r), nil
	case core.NumMul:
		l, err := e.numTerm(t.Left)
		if err != nil {
			return nil, err
		}
		r, err := e.numTerm(t.Right)
		if err != nil {
			return nil, err
		}
		return solver.Mul(l, r), nil
	default:
		panic(fmt.Sprintf("unhandled numeric shape %T", n))
	}
}
