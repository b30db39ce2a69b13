// Package policy loads a complete analysis input from YAML: the attribute
// schema, both entity populations, and the access rules. Loading fails
// fast on anything the engine could not evaluate, so downstream code only
// ever sees well-formed policies.
package policy

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/store"
)

// Policy is one loaded and validated analysis input.
type Policy struct {
	Store *store.Store
	Rules []core.Rule
}

type document struct {
	Schema    schemaDoc   `yaml:"schema"`
	Subjects  []entityDoc `yaml:"subjects"`
	Resources []entityDoc `yaml:"resources"`
	Rules     []ruleDoc   `yaml:"rules"`
}

type schemaDoc struct {
	Subject  map[string]attrSpecDoc `yaml:"subject"`
	Resource map[string]attrSpecDoc `yaml:"resource"`
}

type attrSpecDoc struct {
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
}

type entityDoc struct {
	ID    string         `yaml:"id"`
	Attrs map[string]any `yaml:"attrs"`
}

type ruleDoc struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description"`
	Predicate   map[string]any `yaml:"predicate"`
}

// Load reads and validates one policy file.
func Load(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}
	return Parse(raw)
}

// Parse validates a policy document. Undeclared attribute references,
// malformed predicates, duplicate rule ids, and population errors all
// abort the load.
func Parse(raw []byte) (*Policy, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing policy: %w", err)
	}

	schema, err := buildSchema(doc.Schema)
	if err != nil {
		return nil, err
	}
	subjects, err := buildEntities(core.KindSubject, doc.Subjects, schema.Subject)
	if err != nil {
		return nil, err
	}
	resources, err := buildEntities(core.KindResource, doc.Resources, schema.Resource)
	if err != nil {
		return nil, err
	}
	st, err := store.New(schema, subjects, resources)
	if err != nil {
		return nil, err
	}

	rules, err := buildRules(doc.Rules, st)
	if err != nil {
		return nil, err
	}
	return &Policy{Store: st, Rules: rules}, nil
}

func buildSchema(doc schemaDoc) (store.Schema, error) {
	sub, err := buildSpecs(core.KindSubject, doc.Subject)
	if err != nil {
		return store.Schema{}, err
	}
	res, err := buildSpecs(core.KindResource, doc.Resource)
	if err != nil {
		return store.Schema{}, err
	}
	return store.Schema{Subject: sub, Resource: res}, nil
}

func buildSpecs(kind core.EntityKind, docs map[string]attrSpecDoc) (map[string]core.AttrSpec, error) {
	out := make(map[string]core.AttrSpec, len(docs))
	for name, d := range docs {
		if name == "id" {
			return nil, fmt.Errorf("%s schema redeclares reserved attribute 'id'", kind)
		}
		k := core.ValueKind(d.Type)
		if !k.IsValid() {
			return nil, fmt.Errorf("%s attribute '%s' has unknown type %q", kind, name, d.Type)
		}
		out[name] = core.AttrSpec{Kind: k, Optional: d.Optional}
	}
	return out, nil
}

func buildEntities(kind core.EntityKind, docs []entityDoc, specs map[string]core.AttrSpec) ([]core.Entity, error) {
	out := make([]core.Entity, 0, len(docs))
	for _, d := range docs {
		e := core.Entity{ID: d.ID}
		for name, raw := range d.Attrs {
			spec, ok := specs[name]
			if !ok {
				return nil, fmt.Errorf("%s '%s' carries undeclared attribute '%s'", kind, d.ID, name)
			}
			v, err := attrValue(raw, spec.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s '%s' attribute '%s': %w", kind, d.ID, name, err)
			}
			e.Attributes = append(e.Attributes, core.NamedValue{Name: name, Value: v})
		}
		out = append(out, e)
	}
	return out, nil
}

// attrValue converts one YAML scalar into a typed value. A YAML null is
// the explicit null marker for the declared kind.
func attrValue(raw any, kind core.ValueKind) (core.Value, error) {
	if raw == nil {
		return core.NullValue(kind), nil
	}
	switch kind {
	case core.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return core.Value{}, fmt.Errorf("want bool, got %T", raw)
		}
		return core.BoolValue(b), nil
	case core.TypeNumber:
		n, ok := asNumber(raw)
		if !ok {
			return core.Value{}, fmt.Errorf("want number, got %T", raw)
		}
		return core.NumberValue(n), nil
	case core.TypeText:
		s, ok := raw.(string)
		if !ok {
			return core.Value{}, fmt.Errorf("want text, got %T", raw)
		}
		return core.TextValue(s), nil
	case core.TypeRef:
		s, ok := raw.(string)
		if !ok {
			return core.Value{}, fmt.Errorf("want entity reference, got %T", raw)
		}
		return core.RefValue(s), nil
	case core.TypeSet:
		items, ok := raw.([]any)
		if !ok {
			return core.Value{}, fmt.Errorf("want set, got %T", raw)
		}
		elems := make([]string, len(items))
		for i, it := range items {
			s, ok := it.(string)
			if !ok {
				return core.Value{}, fmt.Errorf("set element #%d: want text, got %T", i, it)
			}
			elems[i] = s
		}
		return core.SetValue(elems...), nil
	}
	return core.Value{}, fmt.Errorf("unknown attribute kind %q", kind)
}

func asNumber(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func buildRules(docs []ruleDoc, schema core.SchemaView) ([]core.Rule, error) {
	seen := make(map[string]bool, len(docs))
	out := make([]core.Rule, 0, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return nil, fmt.Errorf("rule #%d has no id", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate rule id '%s'", d.ID)
		}
		seen[d.ID] = true

		pred, err := buildPredicate(d.Predicate)
		if err != nil {
			return nil, fmt.Errorf("rule '%s': %w", d.ID, err)
		}
		r := core.Rule{ID: d.ID, Description: d.Description, Predicate: pred}
		if err := core.ValidateRulePaths(r, schema); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
