package engine

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/store"
)

// The test population is small enough to verify every expected pair by
// hand, yet touches every constraint shape at least once.

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	schema := store.Schema{
		Subject: map[string]core.AttrSpec{
			"role":      {Kind: core.TypeText},
			"budget":    {Kind: core.TypeNumber},
			"projects":  {Kind: core.TypeSet},
			"clock":     {Kind: core.TypeNumber},
			"clearance": {Kind: core.TypeNumber, Optional: true},
		},
		Resource: map[string]core.AttrSpec{
			"owner":      {Kind: core.TypeRef},
			"cost":       {Kind: core.TypeNumber},
			"editors":    {Kind: core.TypeSet},
			"opens":      {Kind: core.TypeNumber},
			"closes":     {Kind: core.TypeNumber},
			"restricted": {Kind: core.TypeBool},
			"project":    {Kind: core.TypeText},
		},
	}

	subjects := []core.Entity{
		entity("alice",
			attr("role", core.TextValue("manager")),
			attr("budget", core.NumberValue(50000)),
			attr("projects", core.SetValue("apollo", "zeus")),
			attr("clock", core.NumberValue(600)),
			attr("clearance", core.NumberValue(4)),
		),
		entity("bob",
			attr("role", core.TextValue("engineer")),
			attr("budget", core.NumberValue(10000)),
			attr("projects", core.SetValue("apollo")),
			attr("clock", core.NumberValue(480)),
		),
		entity("carol",
			attr("role", core.TextValue("auditor")),
			attr("budget", core.NumberValue(0)),
			attr("projects", core.SetValue()),
			attr("clock", core.NumberValue(1100)),
			attr("clearance", core.NumberValue(2)),
		),
	}

	resources := []core.Entity{
		entity("plan",
			attr("owner", core.RefValue("alice")),
			attr("cost", core.NumberValue(30000)),
			attr("editors", core.SetValue("bob")),
			attr("opens", core.NumberValue(540)),
			attr("closes", core.NumberValue(1020)),
			attr("restricted", core.BoolValue(true)),
			attr("project", core.TextValue("apollo")),
		),
		entity("memo",
			attr("owner", core.RefValue("bob")),
			attr("cost", core.NumberValue(5000)),
			attr("editors", core.SetValue()),
			attr("opens", core.NumberValue(0)),
			attr("closes", core.NumberValue(1440)),
			attr("restricted", core.BoolValue(false)),
			attr("project", core.TextValue("zeus")),
		),
	}

	st, err := store.New(schema, subjects, resources)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return st
}

func entity(id string, attrs ...core.NamedValue) core.Entity {
	return core.Entity{ID: id, Attributes: attrs}
}

func attr(name string, v core.Value) core.NamedValue {
	return core.NamedValue{Name: name, Value: v}
}

func testRules() []core.Rule {
	return []core.Rule{
		{
			ID:          "r-budget",
			Description: "subject can afford the resource with margin",
			Predicate: core.Arith{
				Left: core.NumAttr(core.KindSubject, "budget"),
				Op:   core.OpGe,
				Right: core.NumMul{
					Left:  core.NumAttr(core.KindResource, "cost"),
					Right: core.NumLit(1.5),
				},
			},
		},
		{
			ID:          "r-editor",
			Description: "subject owns the resource or appears among its editors",
			Predicate: core.Transitive{
				Relation: core.Attr(core.KindResource, "editors"),
				Target:   core.Attr(core.KindSubject, "id"),
				Direct:   core.Attr(core.KindResource, "owner"),
			},
		},
		{
			ID:          "r-hours",
			Description: "access during opening hours, restricted needs clearance",
			Predicate: core.And{Terms: []core.Expr{
				core.Window{
					Point: core.Attr(core.KindSubject, "clock"),
					Start: core.Attr(core.KindResource, "opens"),
					End:   core.Attr(core.KindResource, "closes"),
				},
				core.Conditional{
					Guard: core.Compare{
						Left:  core.Attr(core.KindResource, "restricted"),
						Op:    core.OpEq,
						Right: core.Lit(core.BoolValue(true)),
					},
					Requirement: core.Compare{
						Left:  core.Attr(core.KindSubject, "clearance"),
						Op:    core.OpGe,
						Right: core.Lit(core.NumberValue(3)),
					},
				},
			}},
		},
		{
			ID:          "r-owner",
			Description: "subject owns the resource",
			Predicate: core.Compare{
				Left:  core.Attr(core.KindResource, "owner"),
				Op:    core.OpEq,
				Right: core.Attr(core.KindSubject, "id"),
			},
		},
		{
			ID:          "r-project",
			Description: "resource belongs to one of the subject's projects",
			Predicate: core.Membership{
				Element: core.Attr(core.KindResource, "project"),
				Set:     core.Attr(core.KindSubject, "projects"),
			},
		},
	}
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	return NewController(newTestStore(t), testRules(), zerolog.Nop())
}
