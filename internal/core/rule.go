package core

import "fmt"

// Rule binds an identifier and a human-readable description to a predicate
// over one (subject, resource) pair. Rules are immutable once loaded.
type Rule struct {
	ID          string
	Description string
	Predicate   Expr
}

// AttrSpec describes one declared attribute of an entity kind.
type AttrSpec struct {
	Kind ValueKind

	// Optional attributes may be absent; lookups then yield the null
	// marker instead of AttributeNotFound.
	Optional bool
}

// SchemaView is what rule validation and encoding need to know about the
// declared attributes. The attribute store implements it.
type SchemaView interface {
	// Spec returns the declaration for an attribute of the given entity
	// kind, or ok=false when the attribute is undeclared. The pseudo-
	// attribute "id" is always declared as text.
	Spec(kind EntityKind, attr string) (AttrSpec, bool)
}

// ValidateRulePaths checks that every attribute path the rule references
// resolves against the schema. A miss is fatal for the whole load: the
// encoder and the oracle would both be unsound afterwards.
func ValidateRulePaths(r Rule, schema SchemaView) error {
	for _, p := range CollectPaths(r.Predicate) {
		if !p.Entity.IsValid() {
			return &UndeclaredAttributeError{Rule: r.ID, Path: p}
		}
		if _, ok := schema.Spec(p.Entity, p.Attr); !ok {
			return &UndeclaredAttributeError{Rule: r.ID, Path: p}
		}
	}
	return nil
}

// CheckShape verifies the structural soundness of a rule predicate against
// the schema: set operands where sets are expected, numbers under
// arithmetic, scalars under comparison. Both evaluation strategies run the
// same check, so a malformed rule is skipped identically on both paths.
func CheckShape(r Rule, schema SchemaView) error {
	return checkShapeExpr(r.Predicate, schema)
}

func checkShapeExpr(e Expr, schema SchemaView) error {
	switch t := e.(type) {
	case Compare:
		if err := wantScalar(t.Left, schema); err != nil {
			return err
		}
		if err := wantScalar(t.Right, schema); err != nil {
			return err
		}
		if t.Op.Ordered() {
			if err := wantNumber(t.Left, schema); err != nil {
				return err
			}
			if err := wantNumber(t.Right, schema); err != nil {
				return err
			}
		}
		return nil
	case Arith:
		if err := checkShapeNum(t.Left, schema); err != nil {
			return err
		}
		return checkShapeNum(t.Right, schema)
	case Membership:
		if err := wantScalar(t.Element, schema); err != nil {
			return err
		}
		return wantSet(t.Set, schema)
	case SetContains:
		if err := wantSet(t.Set, schema); err != nil {
			return err
		}
		return wantScalar(t.Element, schema)
	case Window:
		for _, o := range []Operand{t.Point, t.Start, t.End} {
			if err := wantNumber(o, schema); err != nil {
				return err
			}
		}
		return nil
	case Conditional:
		if err := checkShapeExpr(t.Guard, schema); err != nil {
			return err
		}
		return checkShapeExpr(t.Requirement, schema)
	case Transitive:
		if err := wantSet(t.Relation, schema); err != nil {
			return err
		}
		if err := wantScalar(t.Target, schema); err != nil {
			return err
		}
		return wantScalar(t.Direct, schema)
	case And:
		for _, sub := range t.Terms {
			if err := checkShapeExpr(sub, schema); err != nil {
				return err
			}
		}
		return nil
	case Or:
		for _, sub := range t.Terms {
			if err := checkShapeExpr(sub, schema); err != nil {
				return err
			}
		}
		return nil
	default:
		panic("unhandled constraint shape in CheckShape")
	}
}

func checkShapeNum(n NumExpr, schema SchemaView) error {
	switch t := n.(type) {
	case Num:
		return wantNumber(t.Operand, schema)
	case NumAdd:
		if err := checkShapeNum(t.Left, schema); err != nil {
			return err
		}
		return checkShapeNum(t.Right, schema)
	case NumMul:
		if err := checkShapeNum(t.Left, schema); err != nil {
			return err
		}
		return checkShapeNum(t.Right, schema)
	default:
		panic("unhandled numeric shape in CheckShape")
	}
}

func operandKind(o Operand, schema SchemaView) (ValueKind, error) {
	if o.Path != nil {
		spec, ok := schema.Spec(o.Path.Entity, o.Path.Attr)
		if !ok {
			return "", fmt.Errorf("operand references undeclared attribute %s", o.Path)
		}
		return spec.Kind, nil
	}
	if o.Lit != nil {
		return o.Lit.Kind, nil
	}
	return "", fmt.Errorf("empty operand")
}

func wantScalar(o Operand, schema SchemaView) error {
	k, err := operandKind(o, schema)
	if err != nil {
		return err
	}
	if k == TypeSet {
		return fmt.Errorf("operand %s is set-typed where a scalar is required", o)
	}
	return nil
}

func wantSet(o Operand, schema SchemaView) error {
	k, err := operandKind(o, schema)
	if err != nil {
		return err
	}
	if k != TypeSet {
		return fmt.Errorf("operand %s is %s-typed where a set is required", o, k)
	}
	return nil
}

func wantNumber(o Operand, schema SchemaView) error {
	k, err := operandKind(o, schema)
	if err != nil {
		return err
	}
	if k != TypeNumber {
		return fmt.Errorf("operand %s is %s-typed where a number is required", o, k)
	}
	return nil
}
