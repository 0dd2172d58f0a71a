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

// Package grad computes reverse-mode derivatives of array-function graphs.
//
// Given a scalar output expression over a DAG of array functions, the pass
// produces one adjoint array function per contributing function, whose value
// at an index tuple is the partial derivative of the output with respect to
// the primal's value at that tuple. The pass proceeds in three traversals: a
// reverse-topological sort of the function DAG, a bounds-inference walk
// deriving the index range each function is read at, and a reverse
// accumulation over each right-hand side that scatters contributions into
// the adjoints, canonicalizing every write into a legal update stage.
package grad

import (
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/lumen-lang/lumen/build/ir"
)

// PropagateAdjoints differentiates the scalar output expression with respect
// to every array function reachable from it. The returned map is keyed by
// primal function name. An output reading no array function is not an error:
// the pass logs and returns an empty map.
func PropagateAdjoints(output ir.Expr) (map[string]*ir.Func, error) {
	funcs := sortFunctions(output)
	if len(funcs) == 0 {
		log.Warnf("no array functions contribute to %s: nothing to differentiate", output)
		return map[string]*ir.Func{}, nil
	}
	if err := ir.Validate(funcs...); err != nil {
		return nil, err
	}
	adjoints, err := newEngine().propagate(output, funcs)
	if err != nil {
		return nil, err
	}
	names := maps.Keys(adjoints)
	sort.Strings(names)
	log.Debugf("adjoints computed for %v", names)
	return adjoints, nil
}
