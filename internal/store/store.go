// Package store holds the immutable attribute population an evaluation run
// ranges over: subjects and resources with typed attribute maps, plus the
// schema declaring which attributes exist per entity kind.
package store

import (
	"fmt"
	"sort"

	"github.com/abax-solver/abax/internal/core"
)

// Schema declares the attributes of each entity kind.
type Schema struct {
	Subject  map[string]core.AttrSpec
	Resource map[string]core.AttrSpec
}

func (s Schema) kind(k core.EntityKind) map[string]core.AttrSpec {
	if k == core.KindSubject {
		return s.Subject
	}
	return s.Resource
}

type record struct {
	id    string
	attrs map[string]core.Value
}

// Store is a read-only typed lookup table over both entity populations.
// It is constructed once from external input and safe for concurrent reads.
type Store struct {
	schema    Schema
	subjects  []record
	resources []record
	subIndex  map[string]int
	resIndex  map[string]int
}

var _ core.SchemaView = (*Store)(nil)

// New validates and freezes the populations. Every non-optional declared
// attribute must be present on every entity of its kind, and every present
// attribute must match its declared kind, so the encoder can build
// uniformly typed solver domains.
func New(schema Schema, subjects, resources []core.Entity) (*Store, error) {
	s := &Store{
		schema:   schema,
		subIndex: make(map[string]int, len(subjects)),
		resIndex: make(map[string]int, len(resources)),
	}

	var err error
	if s.subjects, err = buildRecords(core.KindSubject, schema.Subject, subjects, s.subIndex); err != nil {
		return nil, err
	}
	if s.resources, err = buildRecords(core.KindResource, schema.Resource, resources, s.resIndex); err != nil {
		return nil, err
	}
	return s, nil
}

func buildRecords(kind core.EntityKind, specs map[string]core.AttrSpec, entities []core.Entity, index map[string]int) ([]record, error) {
	records := make([]record, 0, len(entities))
	for i, e := range entities {
		if e.ID == "" {
			return nil, fmt.Errorf("%s #%d has no id", kind, i)
		}
		if _, dup := index[e.ID]; dup {
			return nil, fmt.Errorf("duplicate %s id '%s'", kind, e.ID)
		}

		rec := record{id: e.ID, attrs: make(map[string]core.Value, len(e.Attributes))}
		for _, nv := range e.Attributes {
			spec, declared := specs[nv.Name]
			if !declared {
				return nil, fmt.Errorf("%s '%s' carries undeclared attribute '%s'", kind, e.ID, nv.Name)
			}
			if !nv.Value.Null && nv.Value.Kind != spec.Kind {
				return nil, fmt.Errorf("%s '%s' attribute '%s' is %s, declared %s",
					kind, e.ID, nv.Name, nv.Value.Kind, spec.Kind)
			}
			rec.attrs[nv.Name] = nv.Value
		}
		for name, spec := range specs {
			if _, ok := rec.attrs[name]; ok || spec.Optional {
				continue
			}
			return nil, fmt.Errorf("%s '%s' is missing required attribute '%s'", kind, e.ID, name)
		}

		index[e.ID] = len(records)
		records = append(records, rec)
	}
	return records, nil
}

// Spec implements core.SchemaView. The pseudo-attribute "id" is always
// declared as text.
func (s *Store) Spec(kind core.EntityKind, attr string) (core.AttrSpec, bool) {
	if attr == "id" {
		return core.AttrSpec{Kind: core.TypeText}, true
	}
	spec, ok := s.schema.kind(kind)[attr]
	return spec, ok
}

// Get returns the value of one attribute of one entity. Absent optional
// attributes yield the null marker; anything else absent is
// ErrAttributeNotFound.
func (s *Store) Get(kind core.EntityKind, id, attr string) (core.Value, error) {
	rec, err := s.lookup(kind, id)
	if err != nil {
		return core.Value{}, err
	}
	if attr == "id" {
		return core.TextValue(rec.id), nil
	}
	if v, ok := rec.attrs[attr]; ok {
		return v, nil
	}
	spec, declared := s.schema.kind(kind)[attr]
	if declared && spec.Optional {
		return core.NullValue(spec.Kind), nil
	}
	return core.Value{}, fmt.Errorf("%s '%s' attribute '%s': %w", kind, id, attr, core.ErrAttributeNotFound)
}

func (s *Store) lookup(kind core.EntityKind, id string) (record, error) {
	index, records := s.subIndex, s.subjects
	if kind == core.KindResource {
		index, records = s.resIndex, s.resources
	}
	i, ok := index[id]
	if !ok {
		return record{}, fmt.Errorf("unknown %s '%s'", kind, id)
	}
	return records[i], nil
}

// IDs returns all entity ids of the given kind in declaration order.
func (s *Store) IDs(kind core.EntityKind) []string {
	records := s.subjects
	if kind == core.KindResource {
		records = s.resources
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.id
	}
	return out
}

// Attrs returns the declared attribute names of the given kind, sorted.
func (s *Store) Attrs(kind core.EntityKind) []string {
	specs := s.schema.kind(kind)
	out := make([]string, 0, len(specs))
	for name := range specs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Count returns the population size of the given kind.
func (s *Store) Count(kind core.EntityKind) int {
	if kind == core.KindResource {
		return len(s.resources)
	}
	return len(s.subjects)
}
