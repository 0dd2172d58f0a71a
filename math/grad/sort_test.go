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

package grad

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lumen-lang/lumen/build/ir"
)

func funcNames(funcs []*ir.Func) []string {
	names := make([]string, len(funcs))
	for i, f := range funcs {
		names[i] = f.Name()
	}
	return names
}

func TestSortFunctionsCallersFirst(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewFloat(2))
	g := ir.NewFunc("g", x).Define(f.At(x))
	out := ir.NewFunc("out", x).Define(ir.NewAdd(g.At(x), f.At(x)))

	got := funcNames(sortFunctions(out.At(ir.NewInt(0))))
	want := []string{"out", "g", "f"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected function order (-want +got):\n%s", diff)
	}
}

func TestSortFunctionsVisitsUpdatesBeforePure(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewFloat(1))
	g := ir.NewFunc("g", x).Define(ir.NewFloat(2))
	out := ir.NewFunc("out", x).Define(g.At(x))
	out.Update(f.At(x))

	// Callees of the update stage are listed before those of the pure
	// definition, so f comes before g.
	got := funcNames(sortFunctions(out.At(ir.NewInt(0))))
	want := []string{"out", "f", "g"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected function order (-want +got):\n%s", diff)
	}
}

func TestSortExpressionsOperandsFirst(t *testing.T) {
	a := ir.NewVar("a")
	b := ir.NewVar("b")
	c := ir.NewVar("c")
	root := ir.NewAdd(ir.NewMul(a, b), c)

	sorted := sortExpressions(root)
	if sorted[len(sorted)-1] != root {
		t.Errorf("root is not last in the sorted list")
	}
	index := make(map[ir.Expr]int, len(sorted))
	for i, e := range sorted {
		if prev, seen := index[e]; seen {
			t.Errorf("%s appears at both %d and %d", e, prev, i)
		}
		index[e] = i
	}
	for _, e := range sorted {
		for _, op := range ir.Operands(e) {
			if index[op] >= index[e] {
				t.Errorf("operand %s does not precede %s", op, e)
			}
		}
	}
}

func TestSortExpressionsSharedNodeOnce(t *testing.T) {
	a := ir.NewVar("a")
	square := &ir.Mul{A: a, B: a}
	sorted := sortExpressions(ir.NewAdd(square, square))
	if got, want := len(sorted), 3; got != want {
		t.Errorf("got %d nodes but want %d", got, want)
	}
}

func TestSortExpressionsSkipsCallArguments(t *testing.T) {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewFloat(0))
	sorted := sortExpressions(f.At(ir.NewAdd(x, ir.NewInt(1))))
	if got, want := len(sorted), 1; got != want {
		t.Errorf("got %d nodes but want %d: call arguments must not be descended into", got, want)
	}
}
