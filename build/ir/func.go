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

package ir

import "strings"

// Func is a named array function: an ordered list of free index variables, a
// pure right-hand side, and zero or more update stages. Update stages are
// append-only; each represents f(args) += rhs, applied after the pure
// definition in declaration order.
type Func struct {
	name    string
	args    []*Variable
	pure    Expr
	updates []Expr
}

func (*Func) node() {}

// NewFunc returns an undefined function over the given argument variables.
func NewFunc(name string, args ...*Variable) *Func {
	return &Func{name: name, args: args}
}

// Name of the function.
func (f *Func) Name() string {
	return f.name
}

// Args returns the ordered free argument variables.
func (f *Func) Args() []*Variable {
	return f.args
}

// ArgExprs returns the argument variables as expressions, in order.
func (f *Func) ArgExprs() []Expr {
	exprs := make([]Expr, len(f.args))
	for i, arg := range f.args {
		exprs[i] = arg
	}
	return exprs
}

// Define sets the pure right-hand side and returns the function.
func (f *Func) Define(rhs Expr) *Func {
	f.pure = rhs
	return f
}

// Defined reports whether the function has a pure definition.
func (f *Func) Defined() bool {
	return f.pure != nil
}

// Value returns the pure right-hand side.
func (f *Func) Value() Expr {
	return f.pure
}

// Update appends an update stage f(args) += rhs.
func (f *Func) Update(rhs Expr) {
	f.updates = append(f.updates, rhs)
}

// NumUpdates returns the number of update stages.
func (f *Func) NumUpdates() int {
	return len(f.updates)
}

// UpdateValue returns the right-hand side of update stage i.
func (f *Func) UpdateValue(i int) Expr {
	return f.updates[i]
}

// At returns a call reading the function at the given index expressions.
func (f *Func) At(args ...Expr) *Call {
	return &Call{Kind: CallFunc, Name: f.name, Args: args, Func: f}
}

// String returns the function signature, for example "blur(x, y)".
func (f *Func) String() string {
	names := make([]string, len(f.args))
	for i, arg := range f.args {
		names[i] = arg.Name
	}
	return f.name + "(" + strings.Join(names, ", ") + ")"
}
