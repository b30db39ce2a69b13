package store

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abax-solver/abax/internal/core"
)

func testSchema() Schema {
	return Schema{
		Subject: map[string]core.AttrSpec{
			"role":      {Kind: core.TypeText},
			"clearance": {Kind: core.TypeNumber, Optional: true},
		},
		Resource: map[string]core.AttrSpec{
			"owner": {Kind: core.TypeRef},
		},
	}
}

func subject(id, role string) core.Entity {
	return core.Entity{ID: id, Attributes: []core.NamedValue{
		{Name: "role", Value: core.TextValue(role)},
	}}
}

func resource(id, owner string) core.Entity {
	return core.Entity{ID: id, Attributes: []core.NamedValue{
		{Name: "owner", Value: core.RefValue(owner)},
	}}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name      string
		subjects  []core.Entity
		resources []core.Entity
		wantErr   bool
	}{
		{
			name:      "valid",
			subjects:  []core.Entity{subject("alice", "admin")},
			resources: []core.Entity{resource("doc", "alice")},
		},
		{
			name:     "duplicate id",
			subjects: []core.Entity{subject("alice", "admin"), subject("alice", "dev")},
			wantErr:  true,
		},
		{
			name: "undeclared attribute",
			subjects: []core.Entity{{ID: "alice", Attributes: []core.NamedValue{
				{Name: "height", Value: core.NumberValue(170)},
			}}},
			wantErr: true,
		},
		{
			name: "kind mismatch",
			subjects: []core.Entity{{ID: "alice", Attributes: []core.NamedValue{
				{Name: "role", Value: core.NumberValue(1)},
			}}},
			wantErr: true,
		},
		{
			name:     "missing required attribute",
			subjects: []core.Entity{{ID: "alice"}},
			wantErr:  true,
		},
		{
			name:     "missing id",
			subjects: []core.Entity{{Attributes: nil}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(testSchema(), tt.subjects, tt.resources)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_Get(t *testing.T) {
	st, err := New(testSchema(),
		[]core.Entity{
			subject("alice", "admin"),
			{ID: "bob", Attributes: []core.NamedValue{
				{Name: "role", Value: core.TextValue("dev")},
				{Name: "clearance", Value: core.NumberValue(3)},
			}},
		},
		[]core.Entity{resource("doc", "alice")},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	v, err := st.Get(core.KindSubject, "bob", "clearance")
	if err != nil || !v.Equal(core.NumberValue(3)) {
		t.Errorf("Get(clearance) = %v, %v, want 3", v, err)
	}

	// absent optional attribute yields the typed null marker
	v, err = st.Get(core.KindSubject, "alice", "clearance")
	if err != nil {
		t.Fatalf("Get(absent optional) error = %v", err)
	}
	if !v.Null || v.Kind != core.TypeNumber {
		t.Errorf("Get(absent optional) = %v, want number null", v)
	}

	// the pseudo-attribute id is always available
	v, err = st.Get(core.KindResource, "doc", "id")
	if err != nil || v.Text != "doc" {
		t.Errorf("Get(id) = %v, %v, want doc", v, err)
	}

	if _, err = st.Get(core.KindSubject, "alice", "height"); !errors.Is(err, core.ErrAttributeNotFound) {
		t.Errorf("Get(undeclared) error = %v, want ErrAttributeNotFound", err)
	}

	if _, err = st.Get(core.KindSubject, "nobody", "role"); err == nil {
		t.Error("Get(unknown entity) error = nil, want error")
	}
}

func TestStore_IDsDeclarationOrder(t *testing.T) {
	st, err := New(testSchema(),
		[]core.Entity{subject("zed", "a"), subject("alice", "b"), subject("mid", "c")},
		nil,
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := []string{"zed", "alice", "mid"}
	if diff := cmp.Diff(want, st.IDs(core.KindSubject)); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}
	if got := st.Count(core.KindSubject); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	if got := st.Count(core.KindResource); got != 0 {
		t.Errorf("Count(resource) = %d, want 0", got)
	}
}

func TestStore_SpecIncludesID(t *testing.T) {
	st, err := New(testSchema(), nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	spec, ok := st.Spec(core.KindSubject, "id")
	if !ok || spec.Kind != core.TypeText {
		t.Errorf("Spec(id) = %v, %v, want text spec", spec, ok)
	}
	if _, ok := st.Spec(core.KindSubject, "owner"); ok {
		t.Error("Spec(owner) on subject ok = true, want false")
	}
}
