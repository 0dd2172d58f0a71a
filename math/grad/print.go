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
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/lumen-lang/lumen/build/ir"
)

// Print logs every function reachable from f with the right-hand side of
// each of its stages, callers first.
func Print(f *ir.Func) {
	log.Debug(Sprint(f))
}

// Sprint renders the function DAG rooted at f, one stage per line.
func Sprint(f *ir.Func) string {
	var sb strings.Builder
	for _, fn := range sortFromFunc(f) {
		fmt.Fprintf(&sb, "%s = %s\n", fn, fn.Value())
		for i := 0; i < fn.NumUpdates(); i++ {
			fmt.Fprintf(&sb, "%s += %s\n", fn, fn.UpdateValue(i))
		}
	}
	return sb.String()
}
