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
	"go.uber.org/multierr"

	"github.com/lumen-lang/lumen/base/uname"
	"github.com/lumen-lang/lumen/build/fmterr"
	"github.com/lumen-lang/lumen/build/ir"
)

// adjointSuffix is appended to a primal function name to name its adjoint.
// Staging functions created per update stage draw fresh names from the same
// root, so repeated stages yield f_d__, f_d__1, f_d__2 and so on.
const adjointSuffix = "_d__"

// engine owns all the state of one reverse-accumulation run. The per-node
// adjoint map and the let table are scoped to a single right-hand side and
// reset before each stage is walked.
type engine struct {
	unames *uname.Unique

	// adjoints maps a primal function name to its adjoint function. Values
	// are replaced by their staging function after each update stage.
	adjoints map[string]*ir.Func
	bounds   map[string]*ir.ReductionDomain

	// nodeAdjoints keys on node pointers so shared subexpressions sum the
	// contributions of all their parents before being visited.
	nodeAdjoints map[ir.Expr]ir.Expr
	lets         map[string]ir.Expr

	current     frame
	currentName string
	tmp         *ir.Func
}

func newEngine() *engine {
	return &engine{
		unames:   uname.New(),
		adjoints: make(map[string]*ir.Func),
	}
}

// propagate runs the full pass: bounds inference, adjoint allocation, output
// seeding, then one reverse walk per update stage of every contributing
// function, callers first.
func (e *engine) propagate(output ir.Expr, funcs []*ir.Func) (map[string]*ir.Func, error) {
	bounds, err := inferBounds(output, funcs)
	if err != nil {
		return nil, err
	}
	e.bounds = bounds
	for _, f := range funcs {
		e.unames.Register(f.Name())
	}
	for _, f := range funcs {
		adj := ir.NewFunc(e.unames.Name(f.Name()+adjointSuffix), f.Args()...)
		adj.Define(ir.NewFloat(0))
		e.adjoints[f.Name()] = adj
	}

	// The output expression is walked with an empty frame: its adjoint is the
	// identity seed and any function it reads receives that seed directly.
	e.current = frame{}
	e.currentName = ""
	e.tmp = nil
	if err := e.backprop(output, ir.NewFloat(1)); err != nil {
		return nil, err
	}

	for _, f := range funcs {
		bd, ok := e.bounds[f.Name()]
		if !ok {
			return nil, fmterr.Internalf("no bounds for %s before differentiating its stages", f.Name())
		}
		e.current = frame{args: f.Args(), bounds: bd}
		e.currentName = f.Name()
		for stage := f.NumUpdates() - 1; stage >= -1; stage-- {
			if err := e.backpropStage(f, stage); err != nil {
				return nil, fmterr.PrefixWith("differentiating stage %d of %s", stage, f.Name())(err)
			}
		}
	}

	result := make(map[string]*ir.Func, len(funcs))
	for _, f := range funcs {
		result[f.Name()] = e.adjoints[f.Name()]
	}
	return result, nil
}

// backpropStage differentiates one right-hand side of f, seeding the root
// with a read of the accumulated adjoint and scattering self-contributions
// into a fresh staging function. After the walk, the previous adjoint is
// folded into the staging function, which then replaces it. Staging keeps a
// function off both sides of any single update it appears in.
func (e *engine) backpropStage(f *ir.Func, stage int) error {
	prev := e.adjoints[f.Name()]
	e.tmp = ir.NewFunc(e.unames.Name(f.Name()+adjointSuffix), f.Args()...)
	e.tmp.Define(ir.NewFloat(0))

	seed := prev.At(f.ArgExprs()...)
	if err := e.backprop(stageValue(f, stage), seed); err != nil {
		return err
	}

	e.tmp.Update(prev.At(f.ArgExprs()...))
	e.adjoints[f.Name()] = e.tmp
	e.tmp = nil
	return nil
}

// backprop seeds the root of one right-hand side and visits its
// subexpressions in reverse topological order, parents strictly before
// operands.
func (e *engine) backprop(root ir.Expr, seed ir.Expr) error {
	e.nodeAdjoints = make(map[ir.Expr]ir.Expr)
	e.lets = make(map[string]ir.Expr)
	e.nodeAdjoints[root] = seed
	sorted := sortExpressions(root)
	for i := len(sorted) - 1; i >= 0; i-- {
		if err := e.visit(sorted[i]); err != nil {
			return err
		}
	}
	return nil
}

// accumulate adds a contribution to the adjoint slot of x.
func (e *engine) accumulate(x ir.Expr, contrib ir.Expr) {
	if prev, ok := e.nodeAdjoints[x]; ok {
		e.nodeAdjoints[x] = ir.NewAdd(prev, contrib)
		return
	}
	e.nodeAdjoints[x] = contrib
}

// visit applies the per-node accumulation rule for one expression. A node
// with no accumulated adjoint contributes nothing to the output along any
// path (select conditions, index arithmetic inside call arguments) and is
// skipped.
func (e *engine) visit(node ir.Expr) error {
	adj, ok := e.nodeAdjoints[node]
	if !ok {
		return nil
	}
	switch nT := node.(type) {
	case *ir.IntConst, *ir.FloatConst:
	case *ir.Variable:
		value, bound := e.lets[nT.Name]
		if !bound {
			return nil
		}
		// Rebind the value under a fresh name so the adjoint expression does
		// not shadow the original binding.
		fresh := e.unames.Name(nT.Name + "_d")
		rebound := ir.Substitute(adj, nT.Name, ir.NewVar(fresh))
		e.accumulate(value, ir.NewLet(fresh, value, rebound))
	case *ir.Cast:
		e.accumulate(nT.Value, adj)
	case *ir.Add:
		e.accumulate(nT.A, adj)
		e.accumulate(nT.B, adj)
	case *ir.Sub:
		e.accumulate(nT.A, adj)
		e.accumulate(nT.B, ir.Neg(adj))
	case *ir.Mul:
		e.accumulate(nT.A, ir.NewMul(adj, nT.B))
		e.accumulate(nT.B, ir.NewMul(adj, nT.A))
	case *ir.Div:
		e.accumulate(nT.A, ir.NewDiv(adj, nT.B))
		e.accumulate(nT.B, ir.NewDiv(ir.NewMul(ir.Neg(adj), nT.A), ir.NewMul(nT.B, nT.B)))
	case *ir.Min:
		// At a tie both branches receive the contribution, keeping the
		// result a valid subgradient.
		e.accumulate(nT.A, ir.NewSelect(ir.NewLE(nT.A, nT.B), adj, ir.NewFloat(0)))
		e.accumulate(nT.B, ir.NewSelect(ir.NewLE(nT.B, nT.A), adj, ir.NewFloat(0)))
	case *ir.Max:
		e.accumulate(nT.A, ir.NewSelect(ir.NewGE(nT.A, nT.B), adj, ir.NewFloat(0)))
		e.accumulate(nT.B, ir.NewSelect(ir.NewGE(nT.B, nT.A), adj, ir.NewFloat(0)))
	case *ir.Select:
		e.accumulate(nT.Then, ir.NewSelect(nT.Cond, adj, ir.NewFloat(0)))
		e.accumulate(nT.Else, ir.NewSelect(nT.Cond, ir.NewFloat(0), adj))
	case *ir.Let:
		e.lets[nT.Name] = nT.Value
		e.accumulate(nT.Body, adj)
	case *ir.Call:
		return e.visitCall(nT, adj)
	default:
		return fmterr.Internalf("cannot accumulate adjoint of unsupported node %s", node)
	}
	return nil
}

func (e *engine) visitCall(call *ir.Call, adj ir.Expr) error {
	switch call.Kind {
	case ir.CallFunc:
		return e.scatter(call, adj)
	case ir.CallIntrinsic:
		if call.Name != ir.ExpIntrinsic {
			return fmterr.Internalf("cannot differentiate intrinsic %s", call.Name)
		}
		e.accumulate(call.Args[0], ir.NewMul(adj, ir.Exp(call.Args[0])))
		return nil
	case ir.CallImage:
		// Image reads are inputs: nothing upstream to propagate to.
		return nil
	default:
		return fmterr.Internalf("cannot differentiate call of kind %d", call.Kind)
	}
}

// scatter canonicalizes one adjoint contribution to an array function into a
// legal update stage of its adjoint. A call indexed by anything other than
// the canonical arguments is rewritten position by position: arguments
// containing their canonical variable are inverted and substituted into the
// contribution; missing caller variables are promoted to reduction variables
// over the caller's iteration range; reduction variables used as indices are
// renamed to the canonical argument.
func (e *engine) scatter(call *ir.Call, adj ir.Expr) error {
	name := call.Func.Name()
	target := e.adjoints[name]
	if name == e.currentName {
		target = e.tmp
	}
	if target == nil {
		return fmterr.Internalf("no adjoint function for %s", name)
	}
	args := target.Args()
	if len(call.Args) != len(args) {
		return fmterr.Internalf("call to %s has %d arguments, its adjoint has %d", name, len(call.Args), len(args))
	}

	var errs error
	for i, arg := range call.Args {
		x := args[i]
		if ir.Contains(arg, x.Name) {
			inv, err := invert(arg, x)
			if err != nil {
				errs = multierr.Append(errs, fmterr.PrefixWith("argument %d", i)(err))
				continue
			}
			adj = ir.Substitute(adj, x.Name, inv)
			continue
		}
		if i < len(e.current.args) {
			caller := e.current.args[i]
			if ir.Contains(adj, caller.Name) {
				if e.current.bounds == nil {
					errs = multierr.Append(errs, fmterr.Internalf("no bounds for %s while promoting %s to a reduction", e.currentName, caller.Name))
					continue
				}
				adj = ir.Substitute(adj, caller.Name, e.current.bounds.Var(i))
			}
		}
		if rv, ok := arg.(*ir.Variable); ok && rv.IsRVar() {
			adj = ir.Substitute(adj, rv.Name, x)
		}
	}
	if errs != nil {
		return fmterr.PrefixWith("canonicalizing write to %s", target.Name())(errs)
	}

	target.Update(adj)
	log.Debugf("%s += %s", target, adj)
	return nil
}
