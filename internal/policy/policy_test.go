package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/engine"
)

const testPolicy = `
schema:
  subject:
    role: {type: text}
    budget: {type: number}
    projects: {type: set}
    clearance: {type: number, optional: true}
  resource:
    owner: {type: ref}
    cost: {type: number}
    project: {type: text}
    editors: {type: set}
    opens: {type: number}
    closes: {type: number}
    restricted: {type: bool}

subjects:
  - id: alice
    attrs:
      role: manager
      budget: 50000
      projects: [apollo, zeus]
      clearance: 4
  - id: bob
    attrs:
      role: engineer
      budget: 10000
      projects: [apollo]
      clearance: ~

resources:
  - id: plan
    attrs:
      owner: alice
      cost: 30000
      project: apollo
      editors: [bob]
      opens: 540
      closes: 1020
      restricted: true
  - id: memo
    attrs:
      owner: bob
      cost: 5000
      project: zeus
      editors: []
      opens: 0
      closes: 1440
      restricted: false

rules:
  - id: r-owner
    description: subject owns the resource
    predicate:
      kind: compare
      left: resource.owner
      op: "="
      right: subject.id

  - id: r-budget
    predicate:
      kind: arith
      left: subject.budget
      op: ">="
      right: {mul: [resource.cost, 1.5]}

  - id: r-project
    predicate:
      kind: member
      element: resource.project
      set: subject.projects

  - id: r-hours
    predicate:
      kind: all
      of:
        - kind: window
          point: subject.budget
          start: resource.opens
          end: resource.closes
        - kind: when
          guard:
            kind: compare
            left: resource.restricted
            op: "="
            right: true
          require:
            kind: compare
            left: subject.clearance
            op: ">="
            right: 3

  - id: r-editor
    predicate:
      kind: via
      target: subject.id
      relation: resource.editors
      direct: resource.owner
`

func TestParse(t *testing.T) {
	pol, err := Parse([]byte(testPolicy))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := pol.Store.Count(core.KindSubject); got != 2 {
		t.Errorf("subject count = %d, want 2", got)
	}
	if got := pol.Store.Count(core.KindResource); got != 2 {
		t.Errorf("resource count = %d, want 2", got)
	}
	if len(pol.Rules) != 5 {
		t.Fatalf("rule count = %d, want 5", len(pol.Rules))
	}

	// explicit null in YAML becomes the typed null marker
	v, err := pol.Store.Get(core.KindSubject, "bob", "clearance")
	if err != nil {
		t.Fatalf("Get(bob.clearance) error = %v", err)
	}
	if !v.Null || v.Kind != core.TypeNumber {
		t.Errorf("Get(bob.clearance) = %v, want number null", v)
	}
}

func TestParse_RulesEvaluate(t *testing.T) {
	pol, err := Parse([]byte(testPolicy))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	ctrl := engine.NewController(pol.Store, pol.Rules, zerolog.Nop())
	res, err := ctrl.Run(context.Background(), engine.Request{
		Mode:         engine.ModePerRule,
		Strategy:     engine.StrategyLoop,
		RuleIDs:      []string{"r-owner", "r-editor"},
		MaxSolutions: -1,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []core.Solution{
		{RuleID: "r-editor", Subject: "alice", Resource: "plan"},
		{RuleID: "r-editor", Subject: "bob", Resource: "memo"},
		{RuleID: "r-editor", Subject: "bob", Resource: "plan"},
		{RuleID: "r-owner", Subject: "alice", Resource: "plan"},
		{RuleID: "r-owner", Subject: "bob", Resource: "memo"},
	}
	if diff := cmp.Diff(want, res.Solutions); diff != "" {
		t.Errorf("solutions mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "undeclared attribute in rule",
			doc: `
schema:
  subject:
    role: {type: text}
subjects: [{id: a, attrs: {role: x}}]
resources: []
rules:
  - id: r1
    predicate: {kind: compare, left: subject.height, op: "=", right: 1}
`,
			wantErr: "undeclared attribute",
		},
		{
			name: "unknown predicate kind",
			doc: `
schema: {subject: {}, resource: {}}
rules:
  - id: r1
    predicate: {kind: frobnicate}
`,
			wantErr: "unknown predicate kind",
		},
		{
			name: "unknown operator",
			doc: `
schema: {subject: {}, resource: {}}
rules:
  - id: r1
    predicate: {kind: compare, left: subject.id, op: "~=", right: a}
`,
			wantErr: "unknown comparison operator",
		},
		{
			name: "duplicate rule id",
			doc: `
schema: {subject: {}, resource: {}}
rules:
  - id: r1
    predicate: {kind: compare, left: subject.id, op: "=", right: a}
  - id: r1
    predicate: {kind: compare, left: subject.id, op: "=", right: b}
`,
			wantErr: "duplicate rule id",
		},
		{
			name: "reserved id attribute",
			doc: `
schema:
  subject:
    id: {type: text}
`,
			wantErr: "reserved",
		},
		{
			name: "unknown attribute type",
			doc: `
schema:
  subject:
    role: {type: enum}
`,
			wantErr: "unknown type",
		},
		{
			name: "attribute kind mismatch",
			doc: `
schema:
  subject:
    role: {type: text}
subjects: [{id: a, attrs: {role: 42}}]
`,
			wantErr: "want text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in     string
		want   core.Path
		wantOK bool
	}{
		{"subject.role", core.Path{Entity: core.KindSubject, Attr: "role"}, true},
		{"resource.owner", core.Path{Entity: core.KindResource, Attr: "owner"}, true},
		{"subject.id", core.Path{Entity: core.KindSubject, Attr: "id"}, true},
		{"plainstring", core.Path{}, false},
		{"other.attr", core.Path{}, false},
		{"subject.", core.Path{}, false},
	}

	for _, tt := range tests {
		got, ok := parsePath(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parsePath(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
