package encode

import (
	"fmt"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/solver"
)

// attrVar returns the solver variable carrying the attribute at the given
// path, creating and injecting it on first use. Injection is the
// finite-domain technique: for every candidate id i of the path's entity
// kind, assert "id-var = i ⟹ attr-var = store value for i", so choosing an
// identifier determines every injected attribute.
//
// The variable is cached per path, so a rule (or a unified rule set)
// touching the same attribute twice shares one variable and one set of
// implications.
func (e *Encoder) attrVar(p core.Path) (*solver.Var, error) {
	if p.Attr == "id" {
		return e.idVar(p.Entity), nil
	}
	if v, ok := e.attrs[p]; ok {
		return v, nil
	}

	spec, ok := e.st.Spec(p.Entity, p.Attr)
	if !ok {
		return nil, fmt.Errorf("undeclared attribute %s", p)
	}
	if spec.Kind == core.TypeSet {
		return nil, fmt.Errorf("attribute %s is set-typed and cannot back a scalar variable", p)
	}

	idVar := e.idVar(p.Entity)
	ids := e.st.IDs(p.Entity)

	values := make([]core.Value, len(ids))
	var domain []core.Value
	for i, id := range ids {
		val, err := e.st.Get(p.Entity, id, p.Attr)
		if err != nil {
			return nil, err
		}
		values[i] = val
		if !containsValue(domain, val) {
			domain = append(domain, val)
		}
	}
	if len(domain) == 0 {
		// no entities of this kind; the id variable's empty domain
		// already makes the whole problem unsat
		domain = []core.Value{core.NullValue(spec.Kind)}
	}

	v := e.sess.NewVar(p.String(), domain)
	for i, id := range ids {
		e.sess.Assert(solver.Implies(
			solver.Eq(idVar, core.TextValue(id)),
			solver.Eq(v, values[i]),
		))
	}

	e.attrs[p] = v
	return v, nil
}

func containsValue(vals []core.Value, v core.Value) bool {
	for _, x := range vals {
		if x.Equal(v) {
			return true
		}
	}
	return false
}

// setPerID materializes a set-typed attribute at encode time: one concrete
// set value per candidate id, in declaration order. Set shapes compile to
// finite disjunctions over these.
func (e *Encoder) setPerID(p core.Path) ([]string, []core.Value, error) {
	spec, ok := e.st.Spec(p.Entity, p.Attr)
	if !ok {
		return nil, nil, fmt.Errorf("undeclared attribute %s", p)
	}
	if spec.Kind != core.TypeSet {
		return nil, nil, fmt.Errorf("attribute %s is %s-typed, expected set", p, spec.Kind)
	}

	ids := e.st.IDs(p.Entity)
	sets := make([]core.Value, len(ids))
	for i, id := range ids {
		val, err := e.st.Get(p.Entity, id, p.Attr)
		if err != nil {
			return nil, nil, err
		}
		sets[i] = val
	}
	return ids, sets, nil
}
