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

// Contains reports whether a variable with the given name occurs anywhere in
// the expression, including inside call arguments.
func Contains(e Expr, name string) bool {
	found := false
	visited := make(map[Expr]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		if found || visited[e] {
			return
		}
		visited[e] = true
		if v, ok := e.(*Variable); ok {
			if v.Name == name {
				found = true
			}
			return
		}
		for _, op := range Operands(e) {
			walk(op)
		}
	}
	walk(e)
	return found
}

// Substitute returns the expression with every variable named name replaced
// by repl. Subtrees that do not contain the variable are shared unchanged.
func Substitute(e Expr, name string, repl Expr) Expr {
	memo := make(map[Expr]Expr)
	var rewrite func(Expr) Expr
	rewrite = func(e Expr) Expr {
		if out, ok := memo[e]; ok {
			return out
		}
		out := rewriteNode(e, name, repl, rewrite)
		memo[e] = out
		return out
	}
	return rewrite(e)
}

func rewriteNode(e Expr, name string, repl Expr, rewrite func(Expr) Expr) Expr {
	switch eT := e.(type) {
	case *IntConst, *FloatConst:
		return e
	case *Variable:
		if eT.Name == name {
			return repl
		}
		return e
	case *Cast:
		v := rewrite(eT.Value)
		if v == eT.Value {
			return e
		}
		return &Cast{To: eT.To, Value: v}
	case *Add:
		a, b := rewrite(eT.A), rewrite(eT.B)
		if a == eT.A && b == eT.B {
			return e
		}
		return &Add{A: a, B: b}
	case *Sub:
		a, b := rewrite(eT.A), rewrite(eT.B)
		if a == eT.A && b == eT.B {
			return e
		}
		return &Sub{A: a, B: b}
	case *Mul:
		a, b := rewrite(eT.A), rewrite(eT.B)
		if a == eT.A && b == eT.B {
			return e
		}
		return &Mul{A: a, B: b}
	case *Div:
		a, b := rewrite(eT.A), rewrite(eT.B)
		if a == eT.A && b == eT.B {
			return e
		}
		return &Div{A: a, B: b}
	case *Min:
		a, b := rewrite(eT.A), rewrite(eT.B)
		if a == eT.A && b == eT.B {
			return e
		}
		return &Min{A: a, B: b}
	case *Max:
		a, b := rewrite(eT.A), rewrite(eT.B)
		if a == eT.A && b == eT.B {
			return e
		}
		return &Max{A: a, B: b}
	case *LE:
		a, b := rewrite(eT.A), rewrite(eT.B)
		if a == eT.A && b == eT.B {
			return e
		}
		return &LE{A: a, B: b}
	case *GE:
		a, b := rewrite(eT.A), rewrite(eT.B)
		if a == eT.A && b == eT.B {
			return e
		}
		return &GE{A: a, B: b}
	case *Select:
		cond, then, els := rewrite(eT.Cond), rewrite(eT.Then), rewrite(eT.Else)
		if cond == eT.Cond && then == eT.Then && els == eT.Else {
			return e
		}
		return &Select{Cond: cond, Then: then, Else: els}
	case *Let:
		value, body := rewrite(eT.Value), rewrite(eT.Body)
		if value == eT.Value && body == eT.Body {
			return e
		}
		return &Let{Name: eT.Name, Value: value, Body: body}
	case *Call:
		changed := false
		args := make([]Expr, len(eT.Args))
		for i, arg := range eT.Args {
			args[i] = rewrite(arg)
			if args[i] != arg {
				changed = true
			}
		}
		if !changed {
			return e
		}
		return &Call{Kind: eT.Kind, Name: eT.Name, Args: args, Func: eT.Func}
	default:
		return e
	}
}

// Equal reports structural equality of two expressions. Variables compare by
// name; calls compare by kind, name, and arguments.
func Equal(a, b Expr) bool {
	if a == b {
		return true
	}
	switch aT := a.(type) {
	case *IntConst:
		bT, ok := b.(*IntConst)
		return ok && aT.Value == bT.Value
	case *FloatConst:
		bT, ok := b.(*FloatConst)
		return ok && aT.Value == bT.Value
	case *Variable:
		bT, ok := b.(*Variable)
		return ok && aT.Name == bT.Name
	case *Cast:
		bT, ok := b.(*Cast)
		return ok && aT.To == bT.To && Equal(aT.Value, bT.Value)
	case *Add:
		bT, ok := b.(*Add)
		return ok && Equal(aT.A, bT.A) && Equal(aT.B, bT.B)
	case *Sub:
		bT, ok := b.(*Sub)
		return ok && Equal(aT.A, bT.A) && Equal(aT.B, bT.B)
	case *Mul:
		bT, ok := b.(*Mul)
		return ok && Equal(aT.A, bT.A) && Equal(aT.B, bT.B)
	case *Div:
		bT, ok := b.(*Div)
		return ok && Equal(aT.A, bT.A) && Equal(aT.B, bT.B)
	case *Min:
		bT, ok := b.(*Min)
		return ok && Equal(aT.A, bT.A) && Equal(aT.B, bT.B)
	case *Max:
		bT, ok := b.(*Max)
		return ok && Equal(aT.A, bT.A) && Equal(aT.B, bT.B)
	case *LE:
		bT, ok := b.(*LE)
		return ok && Equal(aT.A, bT.A) && Equal(aT.B, bT.B)
	case *GE:
		bT, ok := b.(*GE)
		return ok && Equal(aT.A, bT.A) && Equal(aT.B, bT.B)
	case *Select:
		bT, ok := b.(*Select)
		return ok && Equal(aT.Cond, bT.Cond) && Equal(aT.Then, bT.Then) && Equal(aT.Else, bT.Else)
	case *Let:
		bT, ok := b.(*Let)
		return ok && aT.Name == bT.Name && Equal(aT.Value, bT.Value) && Equal(aT.Body, bT.Body)
	case *Call:
		bT, ok := b.(*Call)
		if !ok || aT.Kind != bT.Kind || aT.Name != bT.Name || len(aT.Args) != len(bT.Args) {
			return false
		}
		for i := range aT.Args {
			if !Equal(aT.Args[i], bT.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
