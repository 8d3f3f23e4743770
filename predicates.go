// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package residual

// IsNull is a convenience wrapper for calling NewIsNull(t)
//
// Will panic if t is nil
func IsNull(t Expr) Expr { return NewIsNull(t) }

// NotNull is a convenience wrapper for calling NewNotNull(t)
//
// Will panic if t is nil
func NotNull(t Expr) Expr { return NewNotNull(t) }

// EqualTo is a convenience wrapper for calling NewCmp(OpEQ, t, Lit(NewLiteral(v)))
//
// Will panic if t is nil
func EqualTo[T LiteralType](t Expr, v T) Expr {
	return NewCmp(OpEQ, t, Lit(NewLiteral(v)))
}

// NotEqualTo is the negation of EqualTo.
func NotEqualTo[T LiteralType](t Expr, v T) Expr {
	return NewNot(EqualTo(t, v))
}

func GreaterThanEqual[T LiteralType](t Expr, v T) Expr {
	return NewCmp(OpGTEQ, t, Lit(NewLiteral(v)))
}

func GreaterThan[T LiteralType](t Expr, v T) Expr {
	return NewCmp(OpGT, t, Lit(NewLiteral(v)))
}

func LessThanEqual[T LiteralType](t Expr, v T) Expr {
	return NewCmp(OpLTEQ, t, Lit(NewLiteral(v)))
}

func LessThan[T LiteralType](t Expr, v T) Expr {
	return NewCmp(OpLT, t, Lit(NewLiteral(v)))
}

// IsIn builds an ordered membership test of t against literal
// candidates. With no candidates the result is AlwaysFalse.
//
// Will panic if t is nil
func IsIn[T LiteralType](t Expr, vals ...T) Expr {
	if len(vals) == 0 {
		return AlwaysFalse{}
	}

	list := make([]Expr, len(vals))
	for i, v := range vals {
		list[i] = Lit(NewLiteral(v))
	}

	return NewIn(t, list...)
}

// InSet builds an unordered membership test of t against a literal set.
//
// Will panic if t is nil
func InSet[T LiteralType](t Expr, vals ...T) Expr {
	lits := make([]Literal, len(vals))
	for i, v := range vals {
		lits[i] = NewLiteral(v)
	}

	return NewInSet(t, lits...)
}

// Between is lo <= t AND t <= hi.
func Between[T LiteralType](t Expr, lo, hi T) Expr {
	return NewAnd(GreaterThanEqual(t, lo), LessThanEqual(t, hi))
}
