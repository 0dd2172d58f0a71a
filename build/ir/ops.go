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

// ExpIntrinsic is the name of the exponential intrinsic call.
const ExpIntrinsic = "exp"

// NewInt returns an integer constant.
func NewInt(v int64) *IntConst {
	return &IntConst{Value: v}
}

// NewFloat returns a floating-point constant.
func NewFloat(v float64) *FloatConst {
	return &FloatConst{Value: v}
}

// NewVar returns a free index variable.
func NewVar(name string) *Variable {
	return &Variable{Name: name}
}

// NewCast returns a cast of x to the given type.
func NewCast(to DType, x Expr) *Cast {
	return &Cast{To: to, Value: x}
}

func isZero(e Expr) bool {
	switch eT := e.(type) {
	case *IntConst:
		return eT.Value == 0
	case *FloatConst:
		return eT.Value == 0
	}
	return false
}

func isOne(e Expr) bool {
	switch eT := e.(type) {
	case *IntConst:
		return eT.Value == 1
	case *FloatConst:
		return eT.Value == 1
	}
	return false
}

// NewAdd returns a + b, folding additions of zero.
func NewAdd(a, b Expr) Expr {
	if isZero(a) {
		return b
	}
	if isZero(b) {
		return a
	}
	return &Add{A: a, B: b}
}

// NewSub returns a - b, folding subtractions of zero.
func NewSub(a, b Expr) Expr {
	if isZero(b) {
		return a
	}
	return &Sub{A: a, B: b}
}

// NewMul returns a * b, folding multiplications by zero and one.
func NewMul(a, b Expr) Expr {
	if isZero(a) {
		return a
	}
	if isZero(b) {
		return b
	}
	if isOne(a) {
		return b
	}
	if isOne(b) {
		return a
	}
	return &Mul{A: a, B: b}
}

// NewDiv returns a / b, folding divisions by one.
func NewDiv(a, b Expr) Expr {
	if isOne(b) {
		return a
	}
	return &Div{A: a, B: b}
}

// NewMin returns min(a, b).
func NewMin(a, b Expr) *Min {
	return &Min{A: a, B: b}
}

// NewMax returns max(a, b).
func NewMax(a, b Expr) *Max {
	return &Max{A: a, B: b}
}

// NewLE returns the comparison a <= b.
func NewLE(a, b Expr) *LE {
	return &LE{A: a, B: b}
}

// NewGE returns the comparison a >= b.
func NewGE(a, b Expr) *GE {
	return &GE{A: a, B: b}
}

// NewSelect returns select(cond, then, els).
func NewSelect(cond, then, els Expr) *Select {
	return &Select{Cond: cond, Then: then, Else: els}
}

// NewLet binds name to value inside body.
func NewLet(name string, value, body Expr) *Let {
	return &Let{Name: name, Value: value, Body: body}
}

// Neg returns the negation of x as 0 - x.
func Neg(x Expr) Expr {
	return &Sub{A: NewFloat(0), B: x}
}

// Exp returns the exponential intrinsic applied to x.
func Exp(x Expr) *Call {
	return &Call{Kind: CallIntrinsic, Name: ExpIntrinsic, Args: []Expr{x}}
}

// NewImageCall returns a read of a named input image at the given indices.
func NewImageCall(name string, args ...Expr) *Call {
	return &Call{Kind: CallImage, Name: name, Args: args}
}
