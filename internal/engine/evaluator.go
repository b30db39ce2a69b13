package engine

import (
	"fmt"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/store"
)

// The brute-force evaluator is the oracle: it evaluates rule predicates
// directly against concrete attribute values, with no symbols and no
// search. Its semantics must stay byte-for-byte identical to the encoder's
// for every constraint shape (same comparison inclusivity, same null
// handling, same clock normalization, same vacuous-conditional rule) so
// the solver path can be cross-checked against it.

// EvalRule reports whether one concrete (subject, resource) pair satisfies
// the rule predicate.
func EvalRule(st *store.Store, r core.Rule, subject, resource string) (bool, error) {
	return evalExpr(st, r.Predicate, subject, resource)
}

func resolve(st *store.Store, o core.Operand, subject, resource string) (core.Value, error) {
	if o.Lit != nil {
		return *o.Lit, nil
	}
	if o.Path == nil {
		return core.Value{}, fmt.Errorf("empty operand")
	}
	id := subject
	if o.Path.Entity == core.KindResource {
		id = resource
	}
	return st.Get(o.Path.Entity, id, o.Path.Attr)
}

func evalExpr(st *store.Store, x core.Expr, subject, resource string) (bool, error) {
	switch t := x.(type) {
	case core.Compare:
		return evalCompare(st, t, subject, resource)

	case core.Arith:
		l, lDef, err := evalNum(st, t.Left, subject, resource)
		if err != nil {
			return false, err
		}
		r, rDef, err := evalNum(st, t.Right, subject, resource)
		if err != nil {
			return false, err
		}
		if !lDef || !rDef {
			return false, nil
		}
		return compareNumbers(l, t.Op, r), nil

	case core.Membership:
		return evalMembership(st, t.Element, t.Set, subject, resource)

	case core.SetContains:
		return evalMembership(st, t.Element, t.Set, subject, resource)

	case core.Window:
		point, pDef, err := numOperand(st, t.Point, subject, resource)
		if err != nil {
			return false, err
		}
		start, sDef, err := numOperand(st, t.Start, subject, resource)
		if err != nil {
			return false, err
		}
		end, eDef, err := numOperand(st, t.End, subject, resource)
		if err != nil {
			return false, err
		}
		if !pDef || !sDef || !eDef {
			return false, nil
		}
		return core.WindowContains(point, t.PointOffset, start, end, t.WindowOffset), nil

	case core.Conditional:
		guard, err := evalExpr(st, t.Guard, subject, resource)
		if err != nil {
			return false, err
		}
		if !guard {
			// vacuously true
			return true, nil
		}
		return evalExpr(st, t.Requirement, subject, resource)

	case core.Transitive:
		target, err := resolve(st, t.Target, subject, resource)
		if err != nil {
			return false, err
		}
		direct, err := resolve(st, t.Direct, subject, resource)
		if err != nil {
			return false, err
		}
		if target.Equal(direct) {
			return true, nil
		}
		relation, err := resolve(st, t.Relation, subject, resource)
		if err != nil {
			return false, err
		}
		return relation.Contains(target), nil

	case core.And:
		for _, sub := range t.Terms {
			ok, err := evalExpr(st, sub, subject, resource)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case core.Or:
		for _, sub := range t.Terms {
			ok, err := evalExpr(st, sub, subject, resource)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	default:
		panic(fmt.Sprintf("unhandled constraint shape %T", x))
	}
}

func evalCompare(st *store.Store, t core.Compare, subject, resource string) (bool, error) {
	if t.Op.Ordered() {
		l, lDef, err := numOperand(st, t.Left, subject, resource)
		if err != nil {
			return false, err
		}
		r, rDef, err := numOperand(st, t.Right, subject, resource)
		if err != nil {
			return false, err
		}
		if !lDef || !rDef {
			return false, nil
		}
		return compareNumbers(l, t.Op, r), nil
	}

	l, err := resolve(st, t.Left, subject, resource)
	if err != nil {
		return false, err
	}
	r, err := resolve(st, t.Right, subject, resource)
	if err != nil {
		return false, err
	}
	if t.Op == core.OpNe {
		return !l.Equal(r), nil
	}
	return l.Equal(r), nil
}

func evalMembership(st *store.Store, element, set core.Operand, subject, resource string) (bool, error) {
	elem, err := resolve(st, element, subject, resource)
	if err != nil {
		return false, err
	}
	setVal, err := resolve(st, set, subject, resource)
	if err != nil {
		return false, err
	}
	if setVal.Kind != core.TypeSet {
		return false, fmt.Errorf("operand %s is not a set", set)
	}
	return setVal.Contains(elem), nil
}

func numOperand(st *store.Store, o core.Operand, subject, resource string) (float64, bool, error) {
	v, err := resolve(st, o, subject, resource)
	if err != nil {
		return 0, false, err
	}
	n, ok := v.AsNumber()
	return n, ok, nil
}

func evalNum(st *store.Store, n core.NumExpr, subject, resource string) (float64, bool, error) {
	switch t := n.(type) {
	case core.Num:
		return numOperand(st, t.Operand, subject, resource)
	case core.NumAdd:
		l, lDef, err := evalNum(st, t.Left, subject, resource)
		if err != nil {
			return 0, false, err
		}
		r, rDef, err := evalNum(st, t.Right, subject, resource)
		if err != nil {
			return 0, false, err
		}
		return l + r, lDef && rDef, nil
	case core.NumMul:
		l, lDef, err := evalNum(st, t.Left, subject, resource)
		if err != nil {
			return 0, false, err
		}
		r, rDef, err := evalNum(st, t.Right, subject, resource)
		if err != nil {
			return 0, false, err
		}
		return l * r, lDef && rDef, nil
	default:
		panic(fmt.Sprintf("unhandled numeric shape %T", n))
	}
}

func compareNumbers(l float64, op core.CompareOp, r float64) bool {
	switch op {
	case core.OpEq:
		return l == r
	case core.OpNe:
		return l != r
	case core.OpGe:
		return l >= r
	case core.OpLe:
		return l <= r
	case core.OpLt:
		return l < r
	case core.OpGt:
		return l > r
	}
	return false
}
