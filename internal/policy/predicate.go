package policy

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/abax-solver/abax/internal/core"
)

// Predicate nodes are kind-discriminated YAML maps. The `kind` key names
// the shape, the remaining keys are decoded per shape:
//
//	{kind: all, of: [...]}                    conjunction
//	{kind: any, of: [...]}                    disjunction
//	{kind: compare, left, op, right}          scalar comparison
//	{kind: arith, left, op, right}            numeric expression comparison
//	{kind: member, element, set}              element-in-set
//	{kind: contains, set, element}            set-holds-element
//	{kind: window, point, start, end, ...}    clock window test
//	{kind: when, guard, require}              guarded requirement
//	{kind: via, target, relation, direct}     one-hop reachability
//
// Operands are either path strings ("subject.role", "resource.owner"),
// bare literals, or explicit {value: ..., type: ...} maps.

type junctionNode struct {
	Of []map[string]any `mapstructure:"of"`
}

type compareNode struct {
	Left  any    `mapstructure:"left"`
	Op    string `mapstructure:"op"`
	Right any    `mapstructure:"right"`
}

type memberNode struct {
	Element any `mapstructure:"element"`
	Set     any `mapstructure:"set"`
}

type windowNode struct {
	Point        any     `mapstructure:"point"`
	Start        any     `mapstructure:"start"`
	End          any     `mapstructure:"end"`
	PointOffset  float64 `mapstructure:"point_offset"`
	WindowOffset float64 `mapstructure:"window_offset"`
}

type whenNode struct {
	Guard   map[string]any `mapstructure:"guard"`
	Require map[string]any `mapstructure:"require"`
}

type viaNode struct {
	Target   any `mapstructure:"target"`
	Relation any `mapstructure:"relation"`
	Direct   any `mapstructure:"direct"`
}

func decodeNode(node map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: false,
	})
	if err != nil {
		return err
	}
	return dec.Decode(node)
}

func buildPredicate(node map[string]any) (core.Expr, error) {
	if len(node) == 0 {
		return nil, fmt.Errorf("empty predicate")
	}
	kind, ok := node["kind"].(string)
	if !ok {
		return nil, fmt.Errorf("predicate node has no 'kind'")
	}

	switch kind {
	case "all", "any":
		var n junctionNode
		if err := decodeNode(node, &n); err != nil {
			return nil, err
		}
		if len(n.Of) == 0 {
			return nil, fmt.Errorf("'%s' node has no terms", kind)
		}
		terms := make([]core.Expr, len(n.Of))
		for i, sub := range n.Of {
			t, err := buildPredicate(sub)
			if err != nil {
				return nil, err
			}
			terms[i] = t
		}
		if kind == "all" {
			return core.And{Terms: terms}, nil
		}
		return core.Or{Terms: terms}, nil

	case "compare":
		var n compareNode
		if err := decodeNode(node, &n); err != nil {
			return nil, err
		}
		op := core.CompareOp(n.Op)
		if !op.IsValid() {
			return nil, fmt.Errorf("unknown comparison operator %q", n.Op)
		}
		left, err := parseOperand(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := parseOperand(n.Right)
		if err != nil {
			return nil, err
		}
		return core.Compare{Left: left, Op: op, Right: right}, nil

	case "arith":
		var n compareNode
		if err := decodeNode(node, &n); err != nil {
			return nil, err
		}
		op := core.CompareOp(n.Op)
		if !op.IsValid() {
			return nil, fmt.Errorf("unknown comparison operator %q", n.Op)
		}
		left, err := parseNum(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := parseNum(n.Right)
		if err != nil {
			return nil, err
		}
		return core.Arith{Left: left, Op: op, Right: right}, nil

	case "member":
		var n memberNode
		if err := decodeNode(node, &n); err != nil {
			return nil, err
		}
		elem, err := parseOperand(n.Element)
		if err != nil {
			return nil, err
		}
		set, err := parseOperand(n.Set)
		if err != nil {
			return nil, err
		}
		return core.Membership{Element: elem, Set: set}, nil

	case "contains":
		var n memberNode
		if err := decodeNode(node, &n); err != nil {
			return nil, err
		}
		elem, err := parseOperand(n.Element)
		if err != nil {
			return nil, err
		}
		set, err := parseOperand(n.Set)
		if err != nil {
			return nil, err
		}
		return core.SetContains{Set: set, Element: elem}, nil

	case "window":
		var n windowNode
		if err := decodeNode(node, &n); err != nil {
			return nil, err
		}
		point, err := parseOperand(n.Point)
		if err != nil {
			return nil, err
		}
		start, err := parseOperand(n.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseOperand(n.End)
		if err != nil {
			return nil, err
		}
		return core.Window{
			Point:        point,
			Start:        start,
			End:          end,
			PointOffset:  n.PointOffset,
			WindowOffset: n.WindowOffset,
		}, nil

	case "when":
		var n whenNode
		if err := decodeNode(node, &n); err != nil {
			return nil, err
		}
		guard, err := buildPredicate(n.Guard)
		if err != nil {
			return nil, fmt.Errorf("guard: %w", err)
		}
		require, err := buildPredicate(n.Require)
		if err != nil {
			return nil, fmt.Errorf("require: %w", err)
		}
		return core.Conditional{Guard: guard, Requirement: require}, nil

	case "via":
		var n viaNode
		if err := decodeNode(node, &n); err != nil {
			return nil, err
		}
		target, err := parseOperand(n.Target)
		if err != nil {
			return nil, err
		}
		relation, err := parseOperand(n.Relation)
		if err != nil {
			return nil, err
		}
		direct, err := parseOperand(n.Direct)
		if err != nil {
			return nil, err
		}
		return core.Transitive{Relation: relation, Target: target, Direct: direct}, nil

	default:
		return nil, fmt.Errorf("unknown predicate kind %q", kind)
	}
}

// literalNode is the explicit operand form, used where a bare string
// would be read as a path or where a typed null is needed.
type literalNode struct {
	Value any    `mapstructure:"value"`
	Type  string `mapstructure:"type"`
}

func parseOperand(raw any) (core.Operand, error) {
	switch v := raw.(type) {
	case nil:
		return core.Operand{}, fmt.Errorf("missing operand (use {value: null, type: ...} for a typed null)")

	case string:
		if p, ok := parsePath(v); ok {
			return core.Attr(p.Entity, p.Attr), nil
		}
		return core.Lit(core.TextValue(v)), nil

	case bool:
		return core.Lit(core.BoolValue(v)), nil

	case []any:
		elems := make([]string, len(v))
		for i, it := range v {
			s, ok := it.(string)
			if !ok {
				return core.Operand{}, fmt.Errorf("set literal element #%d: want text, got %T", i, it)
			}
			elems[i] = s
		}
		return core.Lit(core.SetValue(elems...)), nil

	case map[string]any:
		var n literalNode
		if err := decodeNode(v, &n); err != nil {
			return core.Operand{}, err
		}
		kind := core.ValueKind(n.Type)
		if n.Type == "" {
			kind = core.TypeText
		} else if !kind.IsValid() {
			return core.Operand{}, fmt.Errorf("unknown literal type %q", n.Type)
		}
		if n.Value == nil {
			return core.Lit(core.NullValue(kind)), nil
		}
		val, err := attrValue(n.Value, kind)
		if err != nil {
			return core.Operand{}, err
		}
		return core.Lit(val), nil

	default:
		if n, ok := asNumber(raw); ok {
			return core.Lit(core.NumberValue(n)), nil
		}
		return core.Operand{}, fmt.Errorf("cannot read operand of type %T", raw)
	}
}

func parsePath(s string) (core.Path, bool) {
	entity, attr, found := strings.Cut(s, ".")
	if !found || attr == "" {
		return core.Path{}, false
	}
	kind := core.EntityKind(entity)
	if !kind.IsValid() {
		return core.Path{}, false
	}
	return core.Path{Entity: kind, Attr: attr}, true
}

// parseNum reads a numeric expression: {add: [l, r]}, {mul: [l, r]}, or
// a plain operand.
func parseNum(raw any) (core.NumExpr, error) {
	if m, ok := raw.(map[string]any); ok {
		if args, ok := m["add"]; ok {
			l, r, err := parseNumPair("add", args)
			if err != nil {
				return nil, err
			}
			return core.NumAdd{Left: l, Right: r}, nil
		}
		if args, ok := m["mul"]; ok {
			l, r, err := parseNumPair("mul", args)
			if err != nil {
				return nil, err
			}
			return core.NumMul{Left: l, Right: r}, nil
		}
	}
	o, err := parseOperand(raw)
	if err != nil {
		return nil, err
	}
	return core.Num{Operand: o}, nil
}

func parseNumPair(name string, raw any) (core.NumExpr, core.NumExpr, error) {
	args, ok := raw.([]any)
	if !ok || len(args) != 2 {
		return nil, nil, fmt.Errorf("'%s' wants exactly two arguments", name)
	}
	l, err := parseNum(args[0])
	if err != nil {
		return nil, nil, err
	}
	r, err := parseNum(args[1])
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}
