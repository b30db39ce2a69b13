package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/encode"
	"github.com/abax-solver/abax/internal/solver"
	"github.com/abax-solver/abax/internal/store"
)

// Strategy selects how pairs are found: the constraint solver searches,
// the loop tries every pair. Both must return the same pair set.
type Strategy string

const (
	StrategySolver Strategy = "solver"
	StrategyLoop   Strategy = "loop"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySolver, StrategyLoop:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want solver or loop)", s)
	}
}

// Mode selects the result shape. Unified reports each granted pair once
// with no justifying rule; per-rule reports one solution per rule that
// grants the pair.
type Mode string

const (
	ModeUnified Mode = "unified"
	ModePerRule Mode = "per-rule"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeUnified, ModePerRule:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want unified or per-rule)", s)
	}
}

// Request describes one analysis run. RuleIDs restricts the run to a
// subset of the policy; empty means all rules. MaxSolutions bounds each
// unit of work (the whole run in unified mode, every rule separately in
// per-rule mode): zero yields an empty result without searching, a
// negative value means unbounded.
type Request struct {
	Mode         Mode
	Strategy     Strategy
	RuleIDs      []string
	MaxSolutions int
	NodeBudget   int
}

// Result is the outcome of one run. Warnings carry non-fatal conditions:
// rules skipped as unencodable, or a search that hit its node budget and
// returned a partial result.
type Result struct {
	RunID     string          `json:"run_id"`
	Mode      Mode            `json:"mode"`
	Strategy  Strategy        `json:"strategy"`
	Solutions []core.Solution `json:"solutions"`
	Warnings  []string        `json:"warnings,omitempty"`
	Elapsed   time.Duration   `json:"elapsed"`
}

// Controller runs analyses against one immutable policy snapshot.
type Controller struct {
	store  *store.Store
	rules  []core.Rule
	logger zerolog.Logger
}

func NewController(st *store.Store, rules []core.Rule, logger zerolog.Logger) *Controller {
	return &Controller{store: st, rules: rules, logger: logger}
}

// Rules returns the policy rules in declaration order.
func (c *Controller) Rules() []core.Rule {
	return c.rules
}

// Run executes one analysis and returns all granted pairs, sorted by
// rule, subject, resource.
func (c *Controller) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:    uuid.NewString(),
		Mode:     req.Mode,
		Strategy: req.Strategy,
	}

	rules, err := c.selectRules(req.RuleIDs)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("run_id", res.RunID).
		Str("mode", string(req.Mode)).
		Str("strategy", string(req.Strategy)).
		Int("rules", len(rules)).
		Int("subjects", c.store.Count(core.KindSubject)).
		Int("resources", c.store.Count(core.KindResource)).
		Msg("starting analysis run")

	switch req.Strategy {
	case StrategySolver:
		err = c.runSolver(ctx, req, rules, res)
	case StrategyLoop:
		err = c.runLoop(ctx, req, rules, res)
	default:
		return nil, fmt.Errorf("unknown strategy %q", req.Strategy)
	}
	if err != nil {
		return nil, err
	}

	core.SortSolutions(res.Solutions)
	res.Elapsed = time.Since(start)

	c.logger.Info().
		Str("run_id", res.RunID).
		Int("solutions", len(res.Solutions)).
		Int("warnings", len(res.Warnings)).
		Dur("elapsed", res.Elapsed).
		Msg("analysis run finished")
	return res, nil
}

func (c *Controller) selectRules(ids []string) ([]core.Rule, error) {
	if len(ids) == 0 {
		return c.rules, nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []core.Rule
	for _, r := range c.rules {
		if wanted[r.ID] {
			out = append(out, r)
			delete(wanted, r.ID)
		}
	}
	for id := range wanted {
		return nil, fmt.Errorf("rule %q not found in policy", id)
	}
	return out, nil
}

func (c *Controller) runSolver(ctx context.Context, req Request, rules []core.Rule, res *Result) error {
	if req.MaxSolutions == 0 {
		return nil
	}

	var opts []solver.Option
	if req.NodeBudget > 0 {
		opts = append(opts, solver.WithNodeBudget(req.NodeBudget))
	}

	if req.Mode == ModeUnified {
		enc := encode.New(c.store, opts...)
		combined, skipped := enc.Unified(rules)
		c.warnSkipped(res, skipped)
		sess := enc.Session()
		sess.Assert(combined)
		sub, resVar := enc.Pair()
		models, err := sess.Enumerate(req.MaxSolutions, sub, resVar)
		if err != nil && !errors.Is(err, core.ErrSolverUnknown) {
			return err
		}
		if errors.Is(err, core.ErrSolverUnknown) {
			res.Warnings = append(res.Warnings, "search hit its node budget; result may be incomplete")
		}
		for _, m := range models {
			res.Solutions = append(res.Solutions, core.Solution{
				Subject:  m[0].String(),
				Resource: m[1].String(),
			})
		}
		return nil
	}

	// Per-rule mode runs each rule in a fresh session so blocking clauses
	// from one rule never constrain another. MaxSolutions bounds every
	// rule separately; a rule with many solutions never starves the next.
	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		enc := encode.New(c.store, opts...)
		constraint, err := enc.Rule(r)
		if err != nil {
			var encErr *core.EncodingError
			if errors.As(err, &encErr) {
				c.warnSkipped(res, []*core.EncodingError{encErr})
				continue
			}
			return err
		}
		sess := enc.Session()
		sess.Assert(constraint)
		sub, resVar := enc.Pair()
		models, err := sess.Enumerate(req.MaxSolutions, sub, resVar)
		if err != nil && !errors.Is(err, core.ErrSolverUnknown) {
			return err
		}
		if errors.Is(err, core.ErrSolverUnknown) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("rule '%s': search hit its node budget; result may be incomplete", r.ID))
		}
		for _, m := range models {
			res.Solutions = append(res.Solutions, core.Solution{
				Subject:  m[0].String(),
				Resource: m[1].String(),
				RuleID:   r.ID,
			})
		}
	}
	return nil
}

func (c *Controller) runLoop(ctx context.Context, req Request, rules []core.Rule, res *Result) error {
	if req.MaxSolutions == 0 {
		return nil
	}

	// The loop must skip exactly the rules the encoder would reject, or
	// the two strategies drift apart on malformed policies.
	var usable []core.Rule
	for _, r := range rules {
		if err := core.CheckShape(r, c.store); err != nil {
			c.warnSkipped(res, []*core.EncodingError{{Rule: r.ID, Wrapped: err}})
			continue
		}
		usable = append(usable, r)
	}

	// MaxSolutions bounds each unit: the whole run in unified mode, each
	// rule separately in per-rule mode.
	remaining := req.MaxSolutions
	counts := make(map[string]int)
	st := c.store
	for _, subject := range c.store.IDs(core.KindSubject) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, resource := range c.store.IDs(core.KindResource) {
			if req.Mode == ModeUnified && remaining == 0 {
				return nil
			}
			for _, r := range usable {
				if req.Mode == ModePerRule && req.MaxSolutions > 0 && counts[r.ID] >= req.MaxSolutions {
					continue
				}
				ok, err := EvalRule(st, r, subject, resource)
				if err != nil {
					return fmt.Errorf("evaluating rule '%s' for (%s, %s): %w", r.ID, subject, resource, err)
				}
				if !ok {
					continue
				}
				sol := core.Solution{Subject: subject, Resource: resource}
				if req.Mode == ModePerRule {
					sol.RuleID = r.ID
					res.Solutions = append(res.Solutions, sol)
					counts[r.ID]++
					continue
				}
				res.Solutions = append(res.Solutions, sol)
				if remaining > 0 {
					remaining--
				}
				break
			}
		}
	}
	return nil
}

func (c *Controller) warnSkipped(res *Result, skipped []*core.EncodingError) {
	for _, e := range skipped {
		c.logger.Warn().Str("rule", e.Rule).Err(e.Wrapped).Msg("skipping unencodable rule")
		res.Warnings = append(res.Warnings, fmt.Sprintf("skipped rule '%s': %v", e.Rule, e.Wrapped))
	}
}

// Mismatch is one pair found by exactly one strategy during a cross-check.
type Mismatch struct {
	Subject  string `json:"subject"`
	Resource string `json:"resource"`
	// FoundBy names the strategy that produced the pair.
	FoundBy Strategy `json:"found_by"`
}

// CrossCheck runs the same request under both strategies and compares the
// bare pair sets. An empty mismatch list means the strategies agree.
func (c *Controller) CrossCheck(ctx context.Context, req Request) (solverRes, loopRes *Result, mismatches []Mismatch, err error) {
	req.Strategy = StrategySolver
	solverRes, err = c.Run(ctx, req)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("solver strategy: %w", err)
	}
	req.Strategy = StrategyLoop
	loopRes, err = c.Run(ctx, req)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loop strategy: %w", err)
	}

	bySolver := core.PairSet(solverRes.Solutions)
	byLoop := core.PairSet(loopRes.Solutions)
	seen := make(map[string]bool)
	for _, s := range solverRes.Solutions {
		k := s.PairKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := byLoop[k]; !ok {
			mismatches = append(mismatches, Mismatch{Subject: s.Subject, Resource: s.Resource, FoundBy: StrategySolver})
		}
	}
	seen = make(map[string]bool)
	for _, s := range loopRes.Solutions {
		k := s.PairKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := bySolver[k]; !ok {
			mismatches = append(mismatches, Mismatch{Subject: s.Subject, Resource: s.Resource, FoundBy: StrategyLoop})
		}
	}
	return solverRes, loopRes, mismatches, nil
}
