// Package solver implements a small backtracking solver over finite-domain
// variables. A session accumulates asserted constraints; Check searches for
// a satisfying assignment, Model reads it back, and Block excludes a found
// assignment so Enumerate can walk distinct solutions.
package solver

import (
	"fmt"

	"github.com/abax-solver/abax/internal/core"
)

// Status is the outcome of a satisfiability check.
type Status int

const (
	// Unknown means the search exhausted its node budget before deciding.
	Unknown Status = iota
	Sat
	Unsat
)

func (s Status) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Var is a finite-domain variable. Variables belong to the session that
// created them.
type Var struct {
	name   string
	index  int
	domain []core.Value
}

func (v *Var) Name() string {
	return v.name
}

// assignment maps variables to a chosen index into their domain, -1 while
// unassigned.
type assignment struct {
	chosen []int
}

func (m *assignment) value(v *Var) (core.Value, bool) {
	if i := m.chosen[v.index]; i >= 0 {
		return v.domain[i], true
	}
	return core.Value{}, false
}

// DefaultNodeBudget bounds a single Check. The identifier domains are
// finite, so any realistic policy decides well below this; hitting the
// budget surfaces as Unknown rather than an endless search.
const DefaultNodeBudget = 5_000_000

// Session is one solver run: a set of variables plus asserted constraints.
// Sessions are not safe for concurrent use; independent runs get
// independent sessions.
type Session struct {
	vars        []*Var
	constraints []Constraint
	model       *assignment
	nodeBudget  int
	nodes       int
}

// Option configures a session.
type Option func(*Session)

// WithNodeBudget overrides the search budget for a single Check.
func WithNodeBudget(n int) Option {
	return func(s *Session) {
		s.nodeBudget = n
	}
}

func NewSession(opts ...Option) *Session {
	s := &Session{nodeBudget: DefaultNodeBudget}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewVar registers a variable with the given finite domain.
func (s *Session) NewVar(name string, domain []core.Value) *Var {
	v := &Var{name: name, index: len(s.vars), domain: domain}
	s.vars = append(s.vars, v)
	return v
}

// Assert adds a constraint; it stays asserted for the session's lifetime.
func (s *Session) Assert(c Constraint) {
	s.constraints = append(s.constraints, c)
}

// Check searches for an assignment satisfying every asserted constraint.
func (s *Session) Check() Status {
	s.model = nil
	s.nodes = 0

	m := &assignment{chosen: make([]int, len(s.vars))}
	for i := range m.chosen {
		m.chosen[i] = -1
	}

	switch s.search(m, 0) {
	case searchFound:
		s.model = m
		return Sat
	case searchBudget:
		return Unknown
	default:
		return Unsat
	}
}

type searchResult int

const (
	searchExhausted searchResult = iota
	searchFound
	searchBudget
)

func (s *Session) search(m *assignment, depth int) searchResult {
	if depth == len(s.vars) {
		// Reached with no variables at all when nothing was registered;
		// the asserted constraints still decide the outcome.
		if s.consistent(m) {
			return searchFound
		}
		return searchExhausted
	}
	v := s.vars[depth]
	if len(v.domain) == 0 {
		return searchExhausted
	}

	for i := range v.domain {
		s.nodes++
		if s.nodes > s.nodeBudget {
			return searchBudget
		}
		m.chosen[v.index] = i

		if s.consistent(m) {
			if r := s.search(m, depth+1); r != searchExhausted {
				return r
			}
		}
	}
	m.chosen[v.index] = -1
	return searchExhausted
}

// consistent prunes a partial assignment as soon as any constraint is
// definitely violated.
func (s *Session) consistent(m *assignment) bool {
	for _, c := range s.constraints {
		if c.eval(m) == ternFalse {
			return false
		}
	}
	return true
}

// Model returns the value of each requested variable from the last Sat
// check.
func (s *Session) Model(vars ...*Var) ([]core.Value, error) {
	if s.model == nil {
		return nil, fmt.Errorf("no model available: last check was not sat")
	}
	out := make([]core.Value, len(vars))
	for i, v := range vars {
		val, ok := s.model.value(v)
		if !ok {
			return nil, fmt.Errorf("variable '%s' unassigned in model", v.name)
		}
		out[i] = val
	}
	return out, nil
}

// Block asserts a clause excluding exactly the current model values of the
// given variables. Blocking only the identifier pair, rather than the full
// model, forces the next check onto a materially distinct pair.
func (s *Session) Block(vars ...*Var) error {
	vals, err := s.Model(vars...)
	if err != nil {
		return err
	}
	conj := make([]Constraint, len(vars))
	for i, v := range vars {
		conj[i] = Eq(v, vals[i])
	}
	s.Assert(Not(And(conj...)))
	return nil
}

// Enumerate returns up to max distinct assignments of the given variables.
// max = 0 yields no solutions and performs no check. Each found assignment
// is blocked before the next check, so no tuple repeats and the loop runs
// at most the product of the domain sizes. An Unknown check stops the
// enumeration and surfaces core.ErrSolverUnknown alongside the solutions
// found so far.
func (s *Session) Enumerate(max int, vars ...*Var) ([][]core.Value, error) {
	var out [][]core.Value
	for max < 0 || len(out) < max {
		switch s.Check() {
		case Unsat:
			return out, nil
		case Unknown:
			return out, core.ErrSolverUnknown
		}
		vals, err := s.Model(vars...)
		if err != nil {
			return out, err
		}
		out = append(out, vals)
		if err := s.Block(vars...); err != nil {
			return out, err
		}
	}
	return out, nil
}
