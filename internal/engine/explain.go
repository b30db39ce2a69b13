package engine

import (
	"fmt"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/store"
)

// Outcome labels one traced predicate node.
type Outcome string

const (
	OutcomeTrue    Outcome = "true"
	OutcomeFalse   Outcome = "false"
	OutcomeVacuous Outcome = "vacuous"
)

// Step is one node of a rule trace, in evaluation order.
type Step struct {
	Depth   int     `json:"depth"`
	Label   string  `json:"label"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// RuleTrace explains one rule's verdict for a single pair. Skipped rules
// carry no steps, only the reason the rule could not be evaluated.
type RuleTrace struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description,omitempty"`
	Granted     bool   `json:"granted"`
	Skipped     bool   `json:"skipped,omitempty"`
	SkipReason  string `json:"skip_reason,omitempty"`
	Steps       []Step `json:"steps,omitempty"`
}

// Explain evaluates every rule against one concrete pair and records a
// per-node trace. The verdicts match EvalRule exactly; the trace only
// adds visibility.
func (c *Controller) Explain(subject, resource string) ([]RuleTrace, error) {
	if _, err := c.store.Get(core.KindSubject, subject, "id"); err != nil {
		return nil, fmt.Errorf("subject %q: %w", subject, err)
	}
	if _, err := c.store.Get(core.KindResource, resource, "id"); err != nil {
		return nil, fmt.Errorf("resource %q: %w", resource, err)
	}

	traces := make([]RuleTrace, 0, len(c.rules))
	for _, r := range c.rules {
		tr := RuleTrace{RuleID: r.ID, Description: r.Description}
		if err := core.CheckShape(r, c.store); err != nil {
			tr.Skipped = true
			tr.SkipReason = err.Error()
			traces = append(traces, tr)
			continue
		}
		granted, err := traceExpr(c.store, r.Predicate, subject, resource, 0, &tr.Steps)
		if err != nil {
			return nil, fmt.Errorf("rule '%s': %w", r.ID, err)
		}
		tr.Granted = granted
		traces = append(traces, tr)
	}
	return traces, nil
}

func outcomeOf(ok bool) Outcome {
	if ok {
		return OutcomeTrue
	}
	return OutcomeFalse
}

// traceExpr mirrors evalExpr node for node, pushing one step per visited
// node. Combinators recurse; leaves delegate to the evaluator helpers so
// the verdict cannot drift from EvalRule.
func traceExpr(st *store.Store, x core.Expr, subject, resource string, depth int, steps *[]Step) (bool, error) {
	switch t := x.(type) {
	case core.And:
		at := len(*steps)
		*steps = append(*steps, Step{Depth: depth, Label: "all of"})
		ok := true
		for _, sub := range t.Terms {
			got, err := traceExpr(st, sub, subject, resource, depth+1, steps)
			if err != nil {
				return false, err
			}
			ok = ok && got
		}
		(*steps)[at].Outcome = outcomeOf(ok)
		return ok, nil

	case core.Or:
		at := len(*steps)
		*steps = append(*steps, Step{Depth: depth, Label: "any of"})
		ok := false
		for _, sub := range t.Terms {
			got, err := traceExpr(st, sub, subject, resource, depth+1, steps)
			if err != nil {
				return false, err
			}
			ok = ok || got
		}
		(*steps)[at].Outcome = outcomeOf(ok)
		return ok, nil

	case core.Conditional:
		at := len(*steps)
		*steps = append(*steps, Step{Depth: depth, Label: "when"})
		guard, err := traceExpr(st, t.Guard, subject, resource, depth+1, steps)
		if err != nil {
			return false, err
		}
		if !guard {
			(*steps)[at].Outcome = OutcomeVacuous
			(*steps)[at].Detail = "guard not met"
			return true, nil
		}
		ok, err := traceExpr(st, t.Requirement, subject, resource, depth+1, steps)
		if err != nil {
			return false, err
		}
		(*steps)[at].Outcome = outcomeOf(ok)
		return ok, nil

	default:
		ok, err := evalExpr(st, x, subject, resource)
		if err != nil {
			return false, err
		}
		*steps = append(*steps, Step{
			Depth:   depth,
			Label:   x.String(),
			Outcome: outcomeOf(ok),
			Detail:  leafDetail(st, x, subject, resource),
		})
		return ok, nil
	}
}

// leafDetail shows the concrete attribute values behind a leaf verdict.
func leafDetail(st *store.Store, x core.Expr, subject, resource string) string {
	paths := core.CollectPaths(x)
	if len(paths) == 0 {
		return ""
	}
	out := ""
	for i, p := range paths {
		v, err := st.Get(p.Entity, pick(p.Entity, subject, resource), p.Attr)
		if err != nil {
			continue
		}
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%s", p, v)
	}
	return out
}

func pick(kind core.EntityKind, subject, resource string) string {
	if kind == core.KindResource {
		return resource
	}
	return subject
}
