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
	"github.com/lumen-lang/lumen/build/fmterr"
	"github.com/lumen-lang/lumen/build/ir"
)

// invert solves e for the variable v, returning the inverse expressed in
// terms of v itself. Supported shapes are the variable, add and sub with v in
// exactly one branch, and min/max clamps, which pass through on the clamped
// side and keep the other branch as an outer clamp. Any other shape is an
// internal error: canonicalization must check invertibility before calling.
func invert(e ir.Expr, v *ir.Variable) (ir.Expr, error) {
	switch eT := e.(type) {
	case *ir.Variable:
		if eT.Name != v.Name {
			return nil, fmterr.Internalf("cannot invert %s with respect to %s", e, v.Name)
		}
		return v, nil
	case *ir.Add:
		branch, other, err := invertBranch(eT.A, eT.B, v)
		if err != nil {
			return nil, err
		}
		inv, err := invert(branch, v)
		if err != nil {
			return nil, err
		}
		return ir.NewSub(inv, other), nil
	case *ir.Sub:
		inA, inB := ir.Contains(eT.A, v.Name), ir.Contains(eT.B, v.Name)
		if inA == inB {
			return nil, fmterr.Internalf("cannot invert %s with respect to %s: the variable must occur in exactly one branch", e, v.Name)
		}
		if inA {
			inv, err := invert(eT.A, v)
			if err != nil {
				return nil, err
			}
			return ir.NewAdd(inv, eT.B), nil
		}
		inv, err := invert(eT.B, v)
		if err != nil {
			return nil, err
		}
		return ir.NewSub(eT.A, inv), nil
	case *ir.Min:
		branch, other, err := invertBranch(eT.A, eT.B, v)
		if err != nil {
			return nil, err
		}
		inv, err := invert(branch, v)
		if err != nil {
			return nil, err
		}
		if branch == eT.A {
			return ir.NewMin(inv, other), nil
		}
		return ir.NewMin(other, inv), nil
	case *ir.Max:
		branch, other, err := invertBranch(eT.A, eT.B, v)
		if err != nil {
			return nil, err
		}
		inv, err := invert(branch, v)
		if err != nil {
			return nil, err
		}
		if branch == eT.A {
			return ir.NewMax(inv, other), nil
		}
		return ir.NewMax(other, inv), nil
	default:
		return nil, fmterr.Internalf("cannot invert %s with respect to %s: unsupported node", e, v.Name)
	}
}

// invertBranch returns the branch of a binary node containing v and the
// opposite branch. The variable must occur in exactly one branch.
func invertBranch(a, b ir.Expr, v *ir.Variable) (branch, other ir.Expr, err error) {
	inA, inB := ir.Contains(a, v.Name), ir.Contains(b, v.Name)
	if inA == inB {
		return nil, nil, fmterr.Internalf("cannot invert with respect to %s: the variable must occur in exactly one branch", v.Name)
	}
	if inA {
		return a, b, nil
	}
	return b, a, nil
}
