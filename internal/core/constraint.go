package core

import (
	"fmt"
	"strings"
)

// CompareOp defines how two operands are compared.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "!="
	OpGe CompareOp = ">="
	OpLe CompareOp = "<="
	OpLt CompareOp = "<"
	OpGt CompareOp = ">"
)

func (op CompareOp) IsValid() bool {
	switch op {
	case OpEq, OpNe, OpGe, OpLe, OpLt, OpGt:
		return true
	default:
		return false
	}
}

// Ordered reports whether the operator needs numeric operands.
func (op CompareOp) Ordered() bool {
	switch op {
	case OpGe, OpLe, OpLt, OpGt:
		return true
	default:
		return false
	}
}

// Path names one attribute of one side of the pair under evaluation,
// e.g. subject.budget or resource.owner. The pseudo-attribute "id"
// resolves to the entity's identifier.
type Path struct {
	Entity EntityKind
	Attr   string
}

func (p Path) String() string {
	return string(p.Entity) + "." + p.Attr
}

// Operand is either an attribute path or a literal value.
type Operand struct {
	Path *Path
	Lit  *Value
}

func Attr(kind EntityKind, attr string) Operand {
	return Operand{Path: &Path{Entity: kind, Attr: attr}}
}

func Lit(v Value) Operand {
	return Operand{Lit: &v}
}

func (o Operand) String() string {
	if o.Path != nil {
		return o.Path.String()
	}
	if o.Lit != nil {
		return o.Lit.String()
	}
	return "?"
}

// Expr is the closed set of constraint shapes a rule predicate is built
// from. Both the constraint encoder and the brute-force evaluator switch
// exhaustively over these shapes; adding a shape without teaching both
// paths about it must not compile silently, hence the sealed interface.
type Expr interface {
	isExpr()
	String() string
}

// Compare tests two scalar operands.
type Compare struct {
	Left  Operand
	Op    CompareOp
	Right Operand
}

// Arith compares two numeric expressions, e.g. budget >= cost * (1 + tax).
type Arith struct {
	Left  NumExpr
	Op    CompareOp
	Right NumExpr
}

// Membership holds when the element operand appears in the set operand.
type Membership struct {
	Element Operand
	Set     Operand
}

// SetContains holds when the set operand contains the element operand.
type SetContains struct {
	Set     Operand
	Element Operand
}

// Window holds when a clock value falls inside [Start, End], all three
// normalized to a common reference offset first. Clock values and offsets
// are minutes.
type Window struct {
	Point Operand
	Start Operand
	End   Operand

	PointOffset  float64
	WindowOffset float64
}

// Conditional is an implication: vacuously true when the guard fails.
type Conditional struct {
	Guard       Expr
	Requirement Expr
}

// Transitive grants through an intermediary relation set: it holds when the
// target appears in the relation set, or equals the direct-ownership
// fallback.
type Transitive struct {
	Relation Operand
	Target   Operand
	Direct   Operand
}

type And struct {
	Terms []Expr
}

type Or struct {
	Terms []Expr
}

func (Compare) isExpr()     {}
func (Arith) isExpr()       {}
func (Membership) isExpr()  {}
func (SetContains) isExpr() {}
func (Window) isExpr()      {}
func (Conditional) isExpr() {}
func (Transitive) isExpr()  {}
func (And) isExpr()         {}
func (Or) isExpr()          {}

func (e Compare) String() string {
	return fmt.Sprintf("%s %s %s", e.Left, e.Op, e.Right)
}

func (e Arith) String() string {
	return fmt.Sprintf("%s %s %s", e.Left, e.Op, e.Right)
}

func (e Membership) String() string {
	return fmt.Sprintf("%s in %s", e.Element, e.Set)
}

func (e SetContains) String() string {
	return fmt.Sprintf("%s contains %s", e.Set, e.Element)
}

func (e Window) String() string {
	return fmt.Sprintf("%s within [%s, %s]", e.Point, e.Start, e.End)
}

func (e Conditional) String() string {
	return fmt.Sprintf("if %s then %s", e.Guard, e.Requirement)
}

func (e Transitive) String() string {
	return fmt.Sprintf("%s reaches %s (or %s)", e.Relation, e.Target, e.Direct)
}

func (e And) String() string {
	return joinExprs(e.Terms, " and ")
}

func (e Or) String() string {
	return joinExprs(e.Terms, " or ")
}

func joinExprs(terms []Expr, sep string) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = "(" + t.String() + ")"
	}
	return strings.Join(parts, sep)
}

// NumExpr is a numeric expression over attribute paths and literals,
// supporting addition and multiplication.
type NumExpr interface {
	isNum()
	String() string
}

// Num is a numeric leaf: a path or a number literal.
type Num struct {
	Operand
}

func NumAttr(kind EntityKind, attr string) Num {
	return Num{Operand: Attr(kind, attr)}
}

func NumLit(n float64) Num {
	return Num{Operand: Lit(NumberValue(n))}
}

type NumAdd struct {
	Left, Right NumExpr
}

type NumMul struct {
	Left, Right NumExpr
}

func (Num) isNum()    {}
func (NumAdd) isNum() {}
func (NumMul) isNum() {}

func (n NumAdd) String() string {
	return fmt.Sprintf("(%s + %s)", n.Left, n.Right)
}

func (n NumMul) String() string {
	return fmt.Sprintf("(%s * %s)", n.Left, n.Right)
}

// CollectPaths returns every attribute path the expression touches, in
// visit order. Used for load-time declaration checks and by the encoder to
// decide which attributes to inject.
func CollectPaths(e Expr) []Path {
	var out []Path
	walkExpr(e, func(o Operand) {
		if o.Path != nil {
			out = append(out, *o.Path)
		}
	})
	return out
}

func walkExpr(e Expr, fn func(Operand)) {
	switch t := e.(type) {
	case Compare:
		fn(t.Left)
		fn(t.Right)
	case Arith:
		walkNum(t.Left, fn)
		walkNum(t.Right, fn)
	case Membership:
		fn(t.Element)
		fn(t.Set)
	case SetContains:
		fn(t.Set)
		fn(t.Element)
	case Window:
		fn(t.Point)
		fn(t.Start)
		fn(t.End)
	case Conditional:
		walkExpr(t.Guard, fn)
		walkExpr(t.Requirement, fn)
	case Transitive:
		fn(t.Relation)
		fn(t.Target)
		fn(t.Direct)
	case And:
		for _, sub := range t.Terms {
			walkExpr(sub, fn)
		}
	case Or:
		for _, sub := range t.Terms {
			walkExpr(sub, fn)
		}
	default:
		panic(fmt.Sprintf("unhandled constraint shape %T", e))
	}
}

func walkNum(n NumExpr, fn func(Operand)) {
	switch t := n.(type) {
	case Num:
		fn(t.Operand)
	case NumAdd:
		walkNum(t.Left, fn)
		walkNum(t.Right, fn)
	case NumMul:
		walkNum(t.Left, fn)
		walkNum(t.Right, fn)
	default:
		panic(fmt.Sprintf("unhandled numeric shape %T", n))
	}
}
