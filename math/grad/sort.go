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
	"github.com/lumen-lang/lumen/build/ir"
)

// functionSorter gathers the array functions reachable from a root and lists
// them in reverse topological order: callers before callees, ties broken by
// first-visit order.
type functionSorter struct {
	visited   map[ir.Expr]bool
	traversed map[string]bool
	funcs     []*ir.Func
}

func newFunctionSorter() *functionSorter {
	return &functionSorter{
		visited:   make(map[ir.Expr]bool),
		traversed: make(map[string]bool),
	}
}

// sortFunctions returns the contributing functions of an output expression,
// callers first.
func sortFunctions(output ir.Expr) []*ir.Func {
	s := newFunctionSorter()
	s.sortExpr(output)
	return s.funcs
}

// sortFromFunc returns the function DAG rooted at f, callers first.
func sortFromFunc(f *ir.Func) []*ir.Func {
	s := newFunctionSorter()
	s.sortFunc(f)
	return s.funcs
}

func (s *functionSorter) sortExpr(e ir.Expr) {
	if s.visited[e] {
		return
	}
	s.visited[e] = true
	if call, ok := e.(*ir.Call); ok && call.Kind == ir.CallFunc {
		if !s.traversed[call.Func.Name()] {
			s.sortFunc(call.Func)
		}
		return
	}
	ops := ir.Operands(e)
	for i := len(ops) - 1; i >= 0; i-- {
		s.sortExpr(ops[i])
	}
}

func (s *functionSorter) sortFunc(f *ir.Func) {
	s.traversed[f.Name()] = true
	// Stages are traversed from the pure definition up to the last update,
	// operands right to left, and f is prepended once everything it reads has
	// been listed. The result is a reverse post-order: every caller precedes
	// its callees, and callees of later stages precede those of earlier ones.
	for stage := -1; stage < f.NumUpdates(); stage++ {
		s.sortExpr(stageValue(f, stage))
	}
	s.funcs = append([]*ir.Func{f}, s.funcs...)
}

// stageValue returns the right-hand side of update stage i, with stage -1
// denoting the pure definition.
func stageValue(f *ir.Func, stage int) ir.Expr {
	if stage >= 0 {
		return f.UpdateValue(stage)
	}
	return f.Value()
}

// expressionSorter lists the subexpressions of a single right-hand side in
// topological order: every operand strictly precedes its parents, and each
// node appears exactly once. Arguments of array-function and image calls are
// not descended into; they belong to the callee's own traversal.
type expressionSorter struct {
	visited map[ir.Expr]bool
	list    []ir.Expr
}

// sortExpressions returns the topologically sorted subexpressions of e,
// with e itself last.
func sortExpressions(e ir.Expr) []ir.Expr {
	s := &expressionSorter{visited: make(map[ir.Expr]bool)}
	s.visitOperands(e)
	s.list = append(s.list, e)
	return s.list
}

func (s *expressionSorter) include(e ir.Expr) {
	if s.visited[e] {
		return
	}
	s.visited[e] = true
	s.visitOperands(e)
	s.list = append(s.list, e)
}

func (s *expressionSorter) visitOperands(e ir.Expr) {
	if call, ok := e.(*ir.Call); ok {
		if call.Kind == ir.CallFunc || call.Kind == ir.CallImage {
			return
		}
	}
	for _, op := range ir.Operands(e) {
		s.include(op)
	}
}
