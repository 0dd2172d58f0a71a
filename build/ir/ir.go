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

// Package ir is the Lumen intermediate representation (IR) tree.
//
// The tree is a closed set of immutable scalar expression nodes over which
// compiler passes operate. Substructure sharing is permitted: the same node
// may appear under multiple parents, and passes that need node identity key
// on the node pointer. Array computations are represented by [Func], a named
// definition over a tuple of integer index variables with a pure
// right-hand side and zero or more update stages.
package ir

// ----------------------------------------------------------------------------
// Types of node in the tree.
type (
	// Node in the tree.
	Node interface {
		// node marks a structure as a node structure.
		// It prevents external implementations of the interface.
		node()
	}

	// Expr is a scalar expression node.
	Expr interface {
		Node

		// String representation of the expression.
		String() string

		// expr marks a structure as an expression node.
		expr()
	}
)

// DType is the scalar type of an expression.
type DType int

const (
	// Int is the integer scalar type, used for indices.
	Int DType = iota
	// Float is the floating-point scalar type, used for function values.
	Float
)

// String representation of the type.
func (t DType) String() string {
	if t == Int {
		return "int"
	}
	return "float"
}

// CallKind distinguishes what a Call node refers to.
type CallKind int

const (
	// CallFunc is a call reading an array function.
	CallFunc CallKind = iota
	// CallImage is a call reading an input image buffer.
	CallImage
	// CallIntrinsic is a call to a named scalar intrinsic (for example exp).
	CallIntrinsic
)

// ----------------------------------------------------------------------------
// Expression nodes.
type (
	// IntConst is an integer constant.
	IntConst struct {
		Value int64
	}

	// FloatConst is a floating-point constant.
	FloatConst struct {
		Value float64
	}

	// Variable is a reference to a named free variable.
	// A variable bound to a reduction domain carries the domain and the
	// slot it occupies in it; a free index variable carries neither.
	Variable struct {
		Name   string
		Domain *ReductionDomain
		Slot   int
	}

	// Cast converts a value to another scalar type.
	Cast struct {
		To    DType
		Value Expr
	}

	// Add is the sum of two expressions.
	Add struct {
		A, B Expr
	}

	// Sub is the difference of two expressions.
	Sub struct {
		A, B Expr
	}

	// Mul is the product of two expressions.
	Mul struct {
		A, B Expr
	}

	// Div is the quotient of two expressions.
	Div struct {
		A, B Expr
	}

	// Min is the smaller of two expressions.
	Min struct {
		A, B Expr
	}

	// Max is the larger of two expressions.
	Max struct {
		A, B Expr
	}

	// LE is the boolean comparison a <= b.
	LE struct {
		A, B Expr
	}

	// GE is the boolean comparison a >= b.
	GE struct {
		A, B Expr
	}

	// Select picks one of two values given a boolean condition.
	Select struct {
		Cond, Then, Else Expr
	}

	// Let binds a name to a value inside a body expression.
	Let struct {
		Name  string
		Value Expr
		Body  Expr
	}

	// Call reads an array function, an image, or applies an intrinsic.
	// Func is set if and only if Kind is CallFunc.
	Call struct {
		Kind CallKind
		Name string
		Args []Expr
		Func *Func
	}
)

func (*IntConst) node()   {}
func (*FloatConst) node() {}
func (*Variable) node()   {}
func (*Cast) node()       {}
func (*Add) node()        {}
func (*Sub) node()        {}
func (*Mul) node()        {}
func (*Div) node()        {}
func (*Min) node()        {}
func (*Max) node()        {}
func (*LE) node()         {}
func (*GE) node()         {}
func (*Select) node()     {}
func (*Let) node()        {}
func (*Call) node()       {}

func (*IntConst) expr()   {}
func (*FloatConst) expr() {}
func (*Variable) expr()   {}
func (*Cast) expr()       {}
func (*Add) expr()        {}
func (*Sub) expr()        {}
func (*Mul) expr()        {}
func (*Div) expr()        {}
func (*Min) expr()        {}
func (*Max) expr()        {}
func (*LE) expr()         {}
func (*GE) expr()         {}
func (*Select) expr()     {}
func (*Let) expr()        {}
func (*Call) expr()       {}

// IsRVar reports whether the variable is bound to a reduction domain.
func (v *Variable) IsRVar() bool {
	return v.Domain != nil
}

// Operands returns the direct children of an expression in evaluation order.
// Constants and variables have no operands.
func Operands(e Expr) []Expr {
	switch eT := e.(type) {
	case *Cast:
		return []Expr{eT.Value}
	case *Add:
		return []Expr{eT.A, eT.B}
	case *Sub:
		return []Expr{eT.A, eT.B}
	case *Mul:
		return []Expr{eT.A, eT.B}
	case *Div:
		return []Expr{eT.A, eT.B}
	case *Min:
		return []Expr{eT.A, eT.B}
	case *Max:
		return []Expr{eT.A, eT.B}
	case *LE:
		return []Expr{eT.A, eT.B}
	case *GE:
		return []Expr{eT.A, eT.B}
	case *Select:
		return []Expr{eT.Cond, eT.Then, eT.Else}
	case *Let:
		return []Expr{eT.Value, eT.Body}
	case *Call:
		return eT.Args
	default:
		return nil
	}
}
