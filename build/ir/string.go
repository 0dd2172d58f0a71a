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

import (
	"fmt"
	"strconv"
	"strings"
)

// String returns the constant value.
func (e *IntConst) String() string {
	return strconv.FormatInt(e.Value, 10)
}

// String returns the constant value with a decimal point.
func (e *FloatConst) String() string {
	s := strconv.FormatFloat(e.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// String returns the variable name.
func (e *Variable) String() string {
	return e.Name
}

// String returns the cast in functional form.
func (e *Cast) String() string {
	return fmt.Sprintf("%s(%s)", e.To, e.Value)
}

// String returns the sum in infix form.
func (e *Add) String() string {
	return fmt.Sprintf("(%s + %s)", e.A, e.B)
}

// String returns the difference in infix form.
func (e *Sub) String() string {
	return fmt.Sprintf("(%s - %s)", e.A, e.B)
}

// String returns the product in infix form.
func (e *Mul) String() string {
	return fmt.Sprintf("(%s * %s)", e.A, e.B)
}

// String returns the quotient in infix form.
func (e *Div) String() string {
	return fmt.Sprintf("(%s / %s)", e.A, e.B)
}

// String returns the minimum in functional form.
func (e *Min) String() string {
	return fmt.Sprintf("min(%s, %s)", e.A, e.B)
}

// String returns the maximum in functional form.
func (e *Max) String() string {
	return fmt.Sprintf("max(%s, %s)", e.A, e.B)
}

// String returns the comparison in infix form.
func (e *LE) String() string {
	return fmt.Sprintf("(%s <= %s)", e.A, e.B)
}

// String returns the comparison in infix form.
func (e *GE) String() string {
	return fmt.Sprintf("(%s >= %s)", e.A, e.B)
}

// String returns the selection in functional form.
func (e *Select) String() string {
	return fmt.Sprintf("select(%s, %s, %s)", e.Cond, e.Then, e.Else)
}

// String returns the binding in let-in form.
func (e *Let) String() string {
	return fmt.Sprintf("(let %s = %s in %s)", e.Name, e.Value, e.Body)
}

// String returns the call in functional form.
func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = arg.String()
	}
	return e.Name + "(" + strings.Join(args, ", ") + ")"
}
