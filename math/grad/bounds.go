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
	log "github.com/sirupsen/logrus"

	"github.com/lumen-lang/lumen/build/fmterr"
	"github.com/lumen-lang/lumen/build/ir"
)

// interval is a symbolic (lo, hi) pair over an index expression. Both ends
// are inclusive, which keeps add and sub exact; conversion to the half-open
// (min, extent) form of a domain bound happens when a call site is recorded.
type interval struct {
	lo, hi ir.Expr
}

// frame describes the iteration domain of the function currently being
// walked: its argument variables and the bounds inferred for them.
type frame struct {
	args   []*ir.Variable
	bounds *ir.ReductionDomain
}

// exprBounds computes a symbolic interval for an index expression against the
// given frame. A reduction variable yields the inclusive range of its domain
// slot; a free argument of the current function yields the range of its axis
// in the frame. Any other node shape is an internal error: the pass refuses
// to guess a bound.
func exprBounds(e ir.Expr, fr frame) (interval, error) {
	switch eT := e.(type) {
	case *ir.IntConst:
		return interval{lo: e, hi: e}, nil
	case *ir.Variable:
		if eT.IsRVar() {
			return boundInterval(eT.Domain.Bound(eT.Slot)), nil
		}
		for i, arg := range fr.args {
			if arg.Name == eT.Name {
				return boundInterval(fr.bounds.Bound(i)), nil
			}
		}
		return interval{}, fmterr.Internalf("cannot infer bounds: variable %s is neither a reduction variable nor a current argument", eT.Name)
	case *ir.Add:
		a, b, err := operandBounds(eT.A, eT.B, fr)
		if err != nil {
			return interval{}, err
		}
		return interval{lo: ir.NewAdd(a.lo, b.lo), hi: ir.NewAdd(a.hi, b.hi)}, nil
	case *ir.Sub:
		a, b, err := operandBounds(eT.A, eT.B, fr)
		if err != nil {
			return interval{}, err
		}
		return interval{lo: ir.NewSub(a.lo, b.hi), hi: ir.NewSub(a.hi, b.lo)}, nil
	case *ir.Min:
		a, b, err := operandBounds(eT.A, eT.B, fr)
		if err != nil {
			return interval{}, err
		}
		return interval{lo: ir.NewMin(a.lo, b.lo), hi: ir.NewMin(a.hi, b.hi)}, nil
	case *ir.Max:
		a, b, err := operandBounds(eT.A, eT.B, fr)
		if err != nil {
			return interval{}, err
		}
		return interval{lo: ir.NewMax(a.lo, b.lo), hi: ir.NewMax(a.hi, b.hi)}, nil
	default:
		return interval{}, fmterr.Internalf("cannot infer bounds: unsupported node %s", e)
	}
}

// boundInterval converts a half-open (min, extent) bound to an inclusive
// interval.
func boundInterval(b ir.Bound) interval {
	return interval{
		lo: b.Min,
		hi: ir.NewSub(ir.NewAdd(b.Min, b.Extent), ir.NewInt(1)),
	}
}

func operandBounds(a, b ir.Expr, fr frame) (interval, interval, error) {
	aBounds, err := exprBounds(a, fr)
	if err != nil {
		return interval{}, interval{}, err
	}
	bBounds, err := exprBounds(b, fr)
	if err != nil {
		return interval{}, interval{}, err
	}
	return aBounds, bBounds, nil
}

// mergeBounds returns the interval hull of two intervals. Structurally equal
// intervals are returned as-is to keep repeated merges from growing.
func mergeBounds(a, b interval) interval {
	if ir.Equal(a.lo, b.lo) && ir.Equal(a.hi, b.hi) {
		return a
	}
	return interval{lo: ir.NewMin(a.lo, b.lo), hi: ir.NewMax(a.hi, b.hi)}
}

// boundsInferencer walks the function DAG from the output and derives, for
// every reachable function, the union over all call sites of the index
// ranges it is read at.
//
// Functions are processed root to leaves over a topological order of the
// call graph, so each function's bounds are final before its own call sites
// contribute to its callees.
type boundsInferencer struct {
	bounds map[string]*ir.ReductionDomain
}

// inferBounds returns the bounds map for every function reachable from the
// output expression. funcs is the caller-first list from sortFunctions.
func inferBounds(output ir.Expr, funcs []*ir.Func) (map[string]*ir.ReductionDomain, error) {
	inf := &boundsInferencer{bounds: make(map[string]*ir.ReductionDomain)}
	order, err := callOrder(output, funcs)
	if err != nil {
		return nil, err
	}
	if err := inf.visitStage(output, frame{}); err != nil {
		return nil, err
	}
	for _, f := range order {
		bd, ok := inf.bounds[f.Name()]
		if !ok {
			return nil, fmterr.Internalf("no bounds recorded for %s before traversing its stages", f.Name())
		}
		fr := frame{args: f.Args(), bounds: bd}
		for stage := f.NumUpdates() - 1; stage >= -1; stage-- {
			if err := inf.visitStage(stageValue(f, stage), fr); err != nil {
				return nil, err
			}
		}
	}
	return inf.bounds, nil
}

// visitStage scans one right-hand side for array-function calls and merges
// each call's argument intervals into the callee's bounds. Arguments of
// array-function calls are index expressions consumed by the estimator, not
// descended into.
func (inf *boundsInferencer) visitStage(e ir.Expr, fr frame) error {
	visited := make(map[ir.Expr]bool)
	var walk func(ir.Expr) error
	walk = func(e ir.Expr) error {
		if visited[e] {
			return nil
		}
		visited[e] = true
		if call, ok := e.(*ir.Call); ok && call.Kind == ir.CallFunc {
			return inf.visitCall(call, fr)
		}
		for _, op := range ir.Operands(e) {
			if err := walk(op); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(e)
}

func (inf *boundsInferencer) visitCall(call *ir.Call, fr frame) error {
	name := call.Func.Name()
	argBounds := make([]ir.Bound, len(call.Args))
	for i, arg := range call.Args {
		iv, err := exprBounds(arg, fr)
		if err != nil {
			return fmterr.PrefixWith("inferring bounds of %s argument %d", name, i)(err)
		}
		if prev := inf.bounds[name]; prev != nil {
			iv = mergeBounds(boundInterval(prev.Bound(i)), iv)
		}
		argBounds[i] = ir.Bound{Min: iv.lo, Extent: ir.NewAdd(ir.NewSub(iv.hi, iv.lo), ir.NewInt(1))}
	}
	inf.bounds[name] = ir.NewRDom(argBounds...)
	log.Debugf("bounds of %s: %s", name, inf.bounds[name])
	return nil
}

// callOrder returns the reachable functions in topological order of the call
// graph, callers before callees. A cycle is an internal error.
func callOrder(output ir.Expr, funcs []*ir.Func) ([]*ir.Func, error) {
	byName := make(map[string]*ir.Func, len(funcs))
	for _, f := range funcs {
		byName[f.Name()] = f
	}
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int)
	var order []*ir.Func
	var visitFunc func(f *ir.Func) error
	// A function reading itself in an update stage is a recurrence, not a
	// cycle: self edges are skipped.
	visitExpr := func(e ir.Expr, self string) error {
		for _, callee := range calleesOf(e) {
			if callee == self {
				continue
			}
			if err := visitFunc(byName[callee]); err != nil {
				return err
			}
		}
		return nil
	}
	visitFunc = func(f *ir.Func) error {
		switch state[f.Name()] {
		case done:
			return nil
		case onStack:
			return fmterr.Internalf("cycle in the function call graph involving %s", f.Name())
		}
		state[f.Name()] = onStack
		for stage := f.NumUpdates() - 1; stage >= -1; stage-- {
			if err := visitExpr(stageValue(f, stage), f.Name()); err != nil {
				return err
			}
		}
		state[f.Name()] = done
		order = append(order, f)
		return nil
	}
	if err := visitExpr(output, ""); err != nil {
		return nil, err
	}
	// DFS post-order lists callees first; reverse for callers first.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// calleesOf returns the names of the array functions called in e, in
// first-encounter order, without descending into their call arguments.
func calleesOf(e ir.Expr) []string {
	var names []string
	seen := make(map[string]bool)
	visited := make(map[ir.Expr]bool)
	var walk func(ir.Expr)
	walk = func(e ir.Expr) {
		if visited[e] {
			return
		}
		visited[e] = true
		if call, ok := e.(*ir.Call); ok && call.Kind == ir.CallFunc {
			if !seen[call.Func.Name()] {
				seen[call.Func.Name()] = true
				names = append(names, call.Func.Name())
			}
			return
		}
		for _, op := range ir.Operands(e) {
			walk(op)
		}
	}
	walk(e)
	return names
}
