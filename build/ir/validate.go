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
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Validate checks the structural well-formedness of the given functions,
// reporting every violation rather than stopping at the first one.
func Validate(funcs ...*Func) error {
	var errs error
	for _, f := range funcs {
		errs = multierr.Append(errs, validateFunc(f))
	}
	return errs
}

func validateFunc(f *Func) error {
	var errs error
	if f.name == "" {
		errs = multierr.Append(errs, errors.New("function has an empty name"))
	}
	seen := make(map[string]bool)
	for _, arg := range f.args {
		if arg.IsRVar() {
			errs = multierr.Append(errs, errors.Errorf("%s: argument %s is a reduction variable", f.name, arg.Name))
		}
		if seen[arg.Name] {
			errs = multierr.Append(errs, errors.Errorf("%s: duplicate argument name %s", f.name, arg.Name))
		}
		seen[arg.Name] = true
	}
	if f.pure == nil {
		errs = multierr.Append(errs, errors.Errorf("%s: missing pure definition", f.name))
	}
	for i, rhs := range f.updates {
		if rhs == nil {
			errs = multierr.Append(errs, errors.Errorf("%s: update stage %d has no right-hand side", f.name, i))
		}
	}
	return errs
}
