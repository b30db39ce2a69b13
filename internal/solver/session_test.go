package solver

import (
	"errors"
	"testing"

	"github.com/abax-solver/abax/internal/core"
)

func textDomain(ids ...string) []core.Value {
	out := make([]core.Value, len(ids))
	for i, id := range ids {
		out[i] = core.TextValue(id)
	}
	return out
}

func TestSession_CheckSatUnsat(t *testing.T) {
	s := NewSession()
	v := s.NewVar("x", textDomain("a", "b", "c"))
	s.Assert(Eq(v, core.TextValue("b")))

	if got := s.Check(); got != Sat {
		t.Fatalf("Check() = %v, want sat", got)
	}
	vals, err := s.Model(v)
	if err != nil {
		t.Fatalf("Model() error = %v", err)
	}
	if vals[0].Text != "b" {
		t.Errorf("Model() = %v, want b", vals[0])
	}

	s.Assert(Not(Eq(v, core.TextValue("b"))))
	if got := s.Check(); got != Unsat {
		t.Fatalf("Check() after contradiction = %v, want unsat", got)
	}
}

func TestSession_CheckWithoutVariables(t *testing.T) {
	s := NewSession()
	s.Assert(True())
	if got := s.Check(); got != Sat {
		t.Fatalf("Check() with no variables = %v, want sat", got)
	}

	s.Assert(False())
	if got := s.Check(); got != Unsat {
		t.Fatalf("Check() with false assertion = %v, want unsat", got)
	}
}

func TestSession_EnumerateDistinct(t *testing.T) {
	s := NewSession()
	x := s.NewVar("x", textDomain("a", "b"))
	y := s.NewVar("y", textDomain("1", "2"))

	models, err := s.Enumerate(-1, x, y)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(models) != 4 {
		t.Fatalf("Enumerate() found %d models, want 4", len(models))
	}

	seen := make(map[string]bool)
	for _, m := range models {
		key := m[0].Text + "/" + m[1].Text
		if seen[key] {
			t.Errorf("duplicate model %s", key)
		}
		seen[key] = true
	}
}

func TestSession_EnumerateMax(t *testing.T) {
	s := NewSession()
	x := s.NewVar("x", textDomain("a", "b", "c"))

	models, err := s.Enumerate(2, x)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(models) != 2 {
		t.Errorf("Enumerate(2) found %d models, want 2", len(models))
	}
}

func TestSession_EnumerateZero(t *testing.T) {
	s := NewSession()
	x := s.NewVar("x", textDomain("a"))

	models, err := s.Enumerate(0, x)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(models) != 0 {
		t.Errorf("Enumerate(0) found %d models, want none", len(models))
	}
}

func TestSession_BlockExcludesOnlyPair(t *testing.T) {
	// blocking (x=a) must still allow (x=b) even when the helper variable
	// kept its value
	s := NewSession()
	x := s.NewVar("x", textDomain("a", "b"))
	h := s.NewVar("h", textDomain("fixed"))
	s.Assert(Eq(h, core.TextValue("fixed")))

	if got := s.Check(); got != Sat {
		t.Fatalf("Check() = %v, want sat", got)
	}
	if err := s.Block(x); err != nil {
		t.Fatalf("Block() error = %v", err)
	}
	if got := s.Check(); got != Sat {
		t.Fatalf("Check() after block = %v, want sat for the second value", got)
	}
	if err := s.Block(x); err != nil {
		t.Fatalf("Block() error = %v", err)
	}
	if got := s.Check(); got != Unsat {
		t.Fatalf("Check() after blocking both values = %v, want unsat", got)
	}
}

func TestSession_NodeBudgetUnknown(t *testing.T) {
	s := NewSession(WithNodeBudget(1))
	x := s.NewVar("x", textDomain("a", "b"))
	y := s.NewVar("y", textDomain("1", "2"))
	s.Assert(EqVars(x, y))

	if got := s.Check(); got != Unknown {
		t.Fatalf("Check() with tiny budget = %v, want unknown", got)
	}

	_, err := s.Enumerate(-1, x, y)
	if !errors.Is(err, core.ErrSolverUnknown) {
		t.Errorf("Enumerate() error = %v, want ErrSolverUnknown", err)
	}
}

func TestCmp_UndefinedIsFalse(t *testing.T) {
	s := NewSession()
	x := s.NewVar("x", []core.Value{core.NullValue(core.TypeNumber)})
	s.Assert(Cmp(Num(x), core.OpGe, Const(0)))

	if got := s.Check(); got != Unsat {
		t.Fatalf("Check() = %v, want unsat for null compared to a number", got)
	}
}

func TestCmp_Arithmetic(t *testing.T) {
	s := NewSession()
	x := s.NewVar("x", []core.Value{core.NumberValue(20000)})
	// 20000 * 1.5 = 30000, inclusive bound
	s.Assert(Cmp(Const(30000), core.OpLe, Mul(Num(x), Const(1.5))))

	if got := s.Check(); got != Sat {
		t.Fatalf("Check() = %v, want sat on the inclusive boundary", got)
	}
}
