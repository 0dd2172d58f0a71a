// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package grad_test

import (
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/maps"

	"github.com/lumen-lang/lumen/build/ir"
	"github.com/lumen-lang/lumen/math/grad"
)

// evalFunc interprets an array function at a concrete index tuple: the pure
// definition plus every update stage, with reduction variables summed over
// their domains.
func evalFunc(t *testing.T, f *ir.Func, idx ...float64) float64 {
	t.Helper()
	args := f.Args()
	if len(idx) != len(args) {
		t.Fatalf("%s: got %d indices but want %d", f, len(idx), len(args))
	}
	env := make(map[string]float64, len(args))
	for i, arg := range args {
		env[arg.Name] = idx[i]
	}
	total := evalExpr(t, f.Value(), env)
	for i := 0; i < f.NumUpdates(); i++ {
		rhs := f.UpdateValue(i)
		total += sumOverRVars(t, rhs, env, collectRVars(rhs))
	}
	return total
}

func sumOverRVars(t *testing.T, e ir.Expr, env map[string]float64, rvars []*ir.Variable) float64 {
	t.Helper()
	if len(rvars) == 0 {
		return evalExpr(t, e, env)
	}
	rv := rvars[0]
	b := rv.Domain.Bound(rv.Slot)
	lo := evalExpr(t, b.Min, env)
	extent := evalExpr(t, b.Extent, env)
	total := 0.0
	for k := 0; k < int(extent); k++ {
		env[rv.Name] = lo + float64(k)
		total += sumOverRVars(t, e, env, rvars[1:])
	}
	delete(env, rv.Name)
	return total
}

func collectRVars(e ir.Expr) []*ir.Variable {
	var rvars []*ir.Variable
	seen := make(map[string]bool)
	visited := make(map[ir.Expr]bool)
	var walk func(ir.Expr)
	walk = func(e ir.Expr) {
		if visited[e] {
			return
		}
		visited[e] = true
		if v, ok := e.(*ir.Variable); ok && v.IsRVar() && !seen[v.Name] {
			seen[v.Name] = true
			rvars = append(rvars, v)
		}
		for _, op := range ir.Operands(e) {
			walk(op)
		}
	}
	walk(e)
	return rvars
}

func evalExpr(t *testing.T, e ir.Expr, env map[string]float64) float64 {
	t.Helper()
	switch eT := e.(type) {
	case *ir.IntConst:
		return float64(eT.Value)
	case *ir.FloatConst:
		return eT.Value
	case *ir.Variable:
		v, ok := env[eT.Name]
		if !ok {
			t.Fatalf("unbound variable %s", eT.Name)
		}
		return v
	case *ir.Cast:
		return evalExpr(t, eT.Value, env)
	case *ir.Add:
		return evalExpr(t, eT.A, env) + evalExpr(t, eT.B, env)
	case *ir.Sub:
		return evalExpr(t, eT.A, env) - evalExpr(t, eT.B, env)
	case *ir.Mul:
		return evalExpr(t, eT.A, env) * evalExpr(t, eT.B, env)
	case *ir.Div:
		return evalExpr(t, eT.A, env) / evalExpr(t, eT.B, env)
	case *ir.Min:
		return math.Min(evalExpr(t, eT.A, env), evalExpr(t, eT.B, env))
	case *ir.Max:
		return math.Max(evalExpr(t, eT.A, env), evalExpr(t, eT.B, env))
	case *ir.LE:
		if evalExpr(t, eT.A, env) <= evalExpr(t, eT.B, env) {
			return 1
		}
		return 0
	case *ir.GE:
		if evalExpr(t, eT.A, env) >= evalExpr(t, eT.B, env) {
			return 1
		}
		return 0
	case *ir.Select:
		if evalExpr(t, eT.Cond, env) != 0 {
			return evalExpr(t, eT.Then, env)
		}
		return evalExpr(t, eT.Else, env)
	case *ir.Let:
		inner := make(map[string]float64, len(env)+1)
		for k, v := range env {
			inner[k] = v
		}
		inner[eT.Name] = evalExpr(t, eT.Value, env)
		return evalExpr(t, eT.Body, inner)
	case *ir.Call:
		switch eT.Kind {
		case ir.CallFunc:
			idx := make([]float64, len(eT.Args))
			for i, arg := range eT.Args {
				idx[i] = evalExpr(t, arg, env)
			}
			return evalFunc(t, eT.Func, idx...)
		case ir.CallIntrinsic:
			if eT.Name == ir.ExpIntrinsic {
				return math.Exp(evalExpr(t, eT.Args[0], env))
			}
		}
		t.Fatalf("cannot evaluate call %s", e)
		return 0
	default:
		t.Fatalf("cannot evaluate %s", e)
		return 0
	}
}

func propagate(t *testing.T, output ir.Expr) map[string]*ir.Func {
	t.Helper()
	adjoints, err := grad.PropagateAdjoints(output)
	if err != nil {
		t.Fatal(err)
	}
	return adjoints
}

func checkKeys(t *testing.T, adjoints map[string]*ir.Func, want ...string) {
	t.Helper()
	got := maps.Keys(adjoints)
	sort.Strings(got)
	sort.Strings(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected adjoint keys (-want +got):\n%s", diff)
	}
}

func checkNear(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("got %g but want %g", got, want)
	}
}

func TestElementwiseMultiply(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewFloat(2))
	g := ir.NewFunc("g", x).Define(ir.NewFloat(3))
	out := ir.NewFunc("out", x).Define(ir.NewMul(f.At(x), g.At(x)))

	adjoints := propagate(t, out.At(ir.NewInt(0)))
	checkKeys(t, adjoints, "f", "g", "out")
	checkNear(t, evalFunc(t, adjoints["f"], 0), 3)
	checkNear(t, evalFunc(t, adjoints["g"], 0), 2)
	checkNear(t, evalFunc(t, adjoints["out"], 0), 1)
}

func TestShiftedRead(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewCast(ir.Float, x))
	out := ir.NewFunc("out", x).Define(f.At(ir.NewAdd(x, ir.NewInt(1))))

	adjoints := propagate(t, out.At(ir.NewInt(0)))
	// The read at x+1 is inverted: the contribution to f at x comes from the
	// output adjoint at x-1.
	if printed := grad.Sprint(adjoints["f"]); !strings.Contains(printed, "((x - 1))") {
		t.Errorf("inverted index not found in:\n%s", printed)
	}
	checkNear(t, evalFunc(t, adjoints["f"], 1), 1)
}

func TestReductionOverCalleeAxis(t *testing.T) {
	x := ir.NewVar("x")
	y := ir.NewVar("y")
	f := ir.NewFunc("f", x, y).Define(ir.NewFloat(1))
	rd := ir.NewRDom(ir.Bound{Min: ir.NewInt(0), Extent: ir.NewInt(4)})
	out := ir.NewFunc("out", x).Define(ir.NewFloat(0))
	out.Update(f.At(x, rd.Var(0)))

	adjoints := propagate(t, out.At(ir.NewInt(0)))
	checkKeys(t, adjoints, "f", "out")
	for yv := 0.0; yv < 4; yv++ {
		checkNear(t, evalFunc(t, adjoints["f"], 0, yv), 1)
	}
	checkNear(t, evalFunc(t, adjoints["out"], 0), 1)
}

func TestPromotionToReduction(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewFloat(5))
	g := ir.NewFunc("g", x).Define(ir.NewFloat(3))
	h := ir.NewFunc("h", x).Define(ir.NewMul(f.At(ir.NewInt(0)), g.At(x)))

	adjoints := propagate(t, h.At(ir.NewInt(0)))
	// f is read at a fixed index, so the contribution through h's free
	// argument is summed over h's iteration range by a reduction variable.
	if printed := grad.Sprint(adjoints["f"]); !strings.Contains(printed, "$") {
		t.Errorf("no reduction variable in:\n%s", printed)
	}
	checkNear(t, evalFunc(t, adjoints["f"], 0), 3)
	checkNear(t, evalFunc(t, adjoints["g"], 0), 5)
}

func TestMaxSubgradient(t *testing.T) {
	x := ir.NewVar("x")
	a := ir.NewFunc("a", x).Define(ir.NewFloat(1))
	b := ir.NewFunc("b", x).Define(ir.NewFloat(2))
	out := ir.NewFunc("out", x).Define(ir.NewMax(a.At(x), b.At(x)))

	adjoints := propagate(t, out.At(ir.NewInt(0)))
	checkNear(t, evalFunc(t, adjoints["a"], 0), 0)
	checkNear(t, evalFunc(t, adjoints["b"], 0), 1)
}

func TestMinSubgradient(t *testing.T) {
	x := ir.NewVar("x")
	a := ir.NewFunc("a", x).Define(ir.NewFloat(1))
	b := ir.NewFunc("b", x).Define(ir.NewFloat(2))
	out := ir.NewFunc("out", x).Define(ir.NewMin(a.At(x), b.At(x)))

	adjoints := propagate(t, out.At(ir.NewInt(0)))
	checkNear(t, evalFunc(t, adjoints["a"], 0), 1)
	checkNear(t, evalFunc(t, adjoints["b"], 0), 0)
}

func TestDivide(t *testing.T) {
	x := ir.NewVar("x")
	a := ir.NewFunc("a", x).Define(ir.NewFloat(6))
	b := ir.NewFunc("b", x).Define(ir.NewFloat(3))
	out := ir.NewFunc("out", x).Define(ir.NewDiv(a.At(x), b.At(x)))

	adjoints := propagate(t, out.At(ir.NewInt(0)))
	checkNear(t, evalFunc(t, adjoints["a"], 0), 1.0/3.0)
	checkNear(t, evalFunc(t, adjoints["b"], 0), -2.0/3.0)
}

func TestLetBinding(t *testing.T) {
	x := ir.NewVar("x")
	a := ir.NewFunc("a", x).Define(ir.NewCast(ir.Float, x))
	tv := ir.NewVar("t")
	out := ir.NewFunc("out", x).Define(ir.NewLet("t", a.At(x), ir.NewMul(tv, tv)))

	adjoints := propagate(t, out.At(ir.NewInt(3)))
	if printed := grad.Sprint(adjoints["a"]); !strings.Contains(printed, "(let t_d = ") {
		t.Errorf("rebound let not found in:\n%s", printed)
	}
	checkNear(t, evalFunc(t, adjoints["a"], 3), 6)
}

func TestExpChainRule(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewCast(ir.Float, x))
	h := ir.NewFunc("h", x).Define(ir.Exp(f.At(x)))

	adjoints := propagate(t, h.At(ir.NewInt(2)))
	checkNear(t, evalFunc(t, adjoints["f"], 2), math.Exp(2))
}

func TestLinearity(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewFloat(5))
	g := ir.NewFunc("g", x).Define(ir.NewFloat(7))
	out := ir.NewFunc("out", x).Define(ir.NewAdd(
		ir.NewMul(ir.NewFloat(2), f.At(x)),
		ir.NewMul(ir.NewFloat(3), g.At(x)),
	))

	adjoints := propagate(t, out.At(ir.NewInt(0)))
	checkNear(t, evalFunc(t, adjoints["f"], 0), 2)
	checkNear(t, evalFunc(t, adjoints["g"], 0), 3)
}

func TestSharedSubexpression(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewFloat(4))
	read := f.At(x)
	out := ir.NewFunc("out", x).Define(ir.NewMul(read, read))

	// Both parents of the shared read contribute before it is visited:
	// d(f*f)/df = 2f.
	adjoints := propagate(t, out.At(ir.NewInt(0)))
	checkNear(t, evalFunc(t, adjoints["f"], 0), 8)
}

func TestSelfReferenceStaging(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewFloat(2))
	out := ir.NewFunc("out", x).Define(f.At(x))
	out.Update(ir.NewMul(ir.NewFloat(3), out.At(x)))

	// The update adds 3*out to out, so out = 4*f and d out/d f = 4. The
	// self-read forces the adjoint of out through its staging function.
	adjoints := propagate(t, out.At(ir.NewInt(0)))
	checkNear(t, evalFunc(t, adjoints["f"], 0), 4)
}

func TestNoFunctions(t *testing.T) {
	adjoints, err := grad.PropagateAdjoints(ir.NewFloat(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(adjoints) != 0 {
		t.Errorf("got %d adjoints but want none", len(adjoints))
	}
}

func TestAdjointArgsMatchPrimal(t *testing.T) {
	x := ir.NewVar("x")
	y := ir.NewVar("y")
	f := ir.NewFunc("f", x, y).Define(ir.NewFloat(1))
	rd := ir.NewRDom(ir.Bound{Min: ir.NewInt(0), Extent: ir.NewInt(4)})
	out := ir.NewFunc("out", x).Define(ir.NewFloat(0))
	out.Update(f.At(x, rd.Var(0)))
	primals := map[string]*ir.Func{"f": f, "out": out}

	adjoints := propagate(t, out.At(ir.NewInt(0)))
	for name, adj := range adjoints {
		primal := primals[name]
		if got, want := len(adj.Args()), len(primal.Args()); got != want {
			t.Errorf("%s: got %d arguments but want %d", name, got, want)
			continue
		}
		for i, arg := range adj.Args() {
			if arg.Name != primal.Args()[i].Name {
				t.Errorf("%s: got argument %s but want %s", name, arg.Name, primal.Args()[i].Name)
			}
		}
	}
}

func TestIdempotence(t *testing.T) {
	build := func() ir.Expr {
		x := ir.NewVar("x")
		f := ir.NewFunc("f", x).Define(ir.NewFloat(2))
		g := ir.NewFunc("g", x).Define(ir.NewFloat(3))
		out := ir.NewFunc("out", x).Define(ir.NewMul(f.At(x), g.At(x)))
		return out.At(ir.NewInt(0))
	}
	first := propagate(t, build())
	second := propagate(t, build())
	checkKeys(t, second, maps.Keys(first)...)
	for name, adj := range first {
		other := second[name]
		if adj.Name() != other.Name() {
			t.Errorf("%s: got adjoint names %s and %s", name, adj.Name(), other.Name())
		}
		if adj.NumUpdates() != other.NumUpdates() {
			t.Errorf("%s: got %d and %d update stages", name, adj.NumUpdates(), other.NumUpdates())
		}
		checkNear(t, evalFunc(t, adj, 0), evalFunc(t, other, 0))
	}
}
