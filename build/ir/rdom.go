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
	"strings"
)

// Bound is a symbolic (min, extent) pair describing one axis of a domain.
type Bound struct {
	Min, Extent Expr
}

// ReductionDomain is an ordered tuple of named reduction variables, each with
// symbolic (min, extent) bounds. It serves both as the bounds polytope of an
// array function and as the iteration domain of a scattered update.
type ReductionDomain struct {
	vars   []*Variable
	bounds []Bound
}

func (*ReductionDomain) node() {}

// Domain names only need to be unique within a single pass invocation, but a
// process-wide counter keeps printed IR unambiguous across domains.
var nextDomainID int

// NewRDom returns a reduction domain over the given (min, extent) bounds.
// Reduction variable names are generated as r<domain>$<slot>.
func NewRDom(bounds ...Bound) *ReductionDomain {
	id := nextDomainID
	nextDomainID++
	rd := &ReductionDomain{bounds: bounds}
	rd.vars = make([]*Variable, len(bounds))
	for i := range bounds {
		rd.vars[i] = &Variable{
			Name:   fmt.Sprintf("r%d$%d", id, i),
			Domain: rd,
			Slot:   i,
		}
	}
	return rd
}

// Len returns the number of axes in the domain.
func (rd *ReductionDomain) Len() int {
	return len(rd.vars)
}

// Var returns the reduction variable bound to slot i.
func (rd *ReductionDomain) Var(i int) *Variable {
	return rd.vars[i]
}

// Bound returns the (min, extent) pair of slot i.
func (rd *ReductionDomain) Bound(i int) Bound {
	return rd.bounds[i]
}

// String representation of the domain.
func (rd *ReductionDomain) String() string {
	axes := make([]string, len(rd.vars))
	for i, v := range rd.vars {
		axes[i] = fmt.Sprintf("%s[%s, %s]", v.Name, rd.bounds[i].Min, rd.bounds[i].Extent)
	}
	return "{" + strings.Join(axes, ", ") + "}"
}
