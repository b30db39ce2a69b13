package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// EntityKind distinguishes the two populations a policy ranges over.
type EntityKind string

const (
	KindSubject  EntityKind = "subject"
	KindResource EntityKind = "resource"
)

func (k EntityKind) IsValid() bool {
	return k == KindSubject || k == KindResource
}

// ValueKind is the type tag of an attribute value.
type ValueKind string

const (
	TypeBool   ValueKind = "bool"
	TypeNumber ValueKind = "number"
	TypeText   ValueKind = "text"
	TypeSet    ValueKind = "set"
	TypeRef    ValueKind = "ref"
)

func (k ValueKind) IsValid() bool {
	switch k {
	case TypeBool, TypeNumber, TypeText, TypeSet, TypeRef:
		return true
	default:
		return false
	}
}

// Value is a tagged union over the attribute types a policy can carry.
// The zero Value is the null marker: it compares equal only to another null.
// Both evaluation strategies share this type, so equality and null semantics
// are defined exactly once.
type Value struct {
	Kind ValueKind

	Bool   bool
	Number float64
	Text   string
	Set    []string
	Ref    string

	// Null marks the absence of an optional attribute. A null Value carries
	// the declared Kind so the encoder can still build uniformly typed
	// domains.
	Null bool
}

func BoolValue(b bool) Value      { return Value{Kind: TypeBool, Bool: b} }
func NumberValue(n float64) Value { return Value{Kind: TypeNumber, Number: n} }
func TextValue(s string) Value    { return Value{Kind: TypeText, Text: s} }
func RefValue(id string) Value    { return Value{Kind: TypeRef, Ref: id} }

func SetValue(elems ...string) Value {
	return Value{Kind: TypeSet, Set: elems}
}

// NullValue returns the null marker for an attribute declared with the given kind.
func NullValue(kind ValueKind) Value {
	return Value{Kind: kind, Null: true}
}

// scalarText returns the textual payload for text-like values. Refs and
// texts compare by this payload so a reference can match an id attribute.
func (v Value) scalarText() (string, bool) {
	switch v.Kind {
	case TypeText:
		return v.Text, true
	case TypeRef:
		return v.Ref, true
	default:
		return "", false
	}
}

// Equal reports whether two values are the same. Null equals only null.
// Text and ref values compare by their string payload; sets compare as
// unordered collections.
func (v Value) Equal(o Value) bool {
	if v.Null || o.Null {
		return v.Null && o.Null
	}
	if vs, ok := v.scalarText(); ok {
		if os, ok := o.scalarText(); ok {
			return vs == os
		}
		return false
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case TypeBool:
		return v.Bool == o.Bool
	case TypeNumber:
		return v.Number == o.Number
	case TypeSet:
		if len(v.Set) != len(o.Set) {
			return false
		}
		a := append([]string(nil), v.Set...)
		b := append([]string(nil), o.Set...)
		sort.Strings(a)
		sort.Strings(b)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Contains reports whether a set value contains the given scalar.
// Null sets and non-set values contain nothing.
func (v Value) Contains(elem Value) bool {
	if v.Null || v.Kind != TypeSet {
		return false
	}
	s, ok := elem.scalarText()
	if !ok || elem.Null {
		return false
	}
	for _, m := range v.Set {
		if m == s {
			return true
		}
	}
	return false
}

// AsNumber returns the numeric payload, or false for nulls and non-numbers.
func (v Value) AsNumber() (float64, bool) {
	if v.Null || v.Kind != TypeNumber {
		return 0, false
	}
	return v.Number, true
}

func (v Value) String() string {
	if v.Null {
		return "null"
	}
	switch v.Kind {
	case TypeBool:
		return fmt.Sprintf("%t", v.Bool)
	case TypeNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case TypeText:
		return v.Text
	case TypeRef:
		return v.Ref
	case TypeSet:
		return "{" + strings.Join(v.Set, " ") + "}"
	}
	return "?"
}

// NamedValue is one attribute of an entity. Entities keep their attributes
// as an ordered slice so declaration order survives the load.
type NamedValue struct {
	Name  string
	Value Value
}

// Entity is a subject or resource with its typed attribute map.
type Entity struct {
	ID         string
	Attributes []NamedValue
}
