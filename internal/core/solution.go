package core

import "sort"

// Solution is one (subject, resource) pair admitted by the policy.
// RuleID names the justifying rule in per-rule and subset modes; unified
// mode leaves it empty since the disjunction does not record which rule
// fired.
type Solution struct {
	Subject  string `json:"subject"`
	Resource string `json:"resource"`
	RuleID   string `json:"rule_id,omitempty"`
}

// Key identifies a solution including its justifying rule.
func (s Solution) Key() string {
	return s.RuleID + "\x00" + s.Subject + "\x00" + s.Resource
}

// PairKey identifies the bare pair, ignoring the justifying rule.
func (s Solution) PairKey() string {
	return s.Subject + "\x00" + s.Resource
}

// SortSolutions orders solutions by rule, then subject, then resource, for
// stable output and comparison across strategies.
func SortSolutions(sols []Solution) {
	sort.Slice(sols, func(i, j int) bool {
		if sols[i].RuleID != sols[j].RuleID {
			return sols[i].RuleID < sols[j].RuleID
		}
		if sols[i].Subject != sols[j].Subject {
			return sols[i].Subject < sols[j].Subject
		}
		return sols[i].Resource < sols[j].Resource
	})
}

// PairSet collapses solutions to their distinct pairs.
func PairSet(sols []Solution) map[string]struct{} {
	out := make(map[string]struct{}, len(sols))
	for _, s := range sols {
		out[s.PairKey()] = struct{}{}
	}
	return out
}
