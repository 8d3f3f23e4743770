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

import (
	"fmt"
	"strconv"
)

// DefaultMaxDepth bounds how deeply nested a predicate may be before
// reduction gives up with ErrResourceExhausted.
const DefaultMaxDepth = 2048

// Outcome is the result of partially reducing a predicate. It is either
// a known truth value or a residual predicate over the columns that
// are still unknown, never both.
type Outcome struct {
	known    bool
	value    bool
	residual Expr
}

// Known is a definite outcome.
func Known(b bool) Outcome { return Outcome{known: true, value: b} }

// Unresolved is an outcome that still depends on unknown columns.
func Unresolved(residual Expr) Outcome {
	if residual == nil {
		panic(fmt.Errorf("%w: unresolved outcome without a residual", ErrInternalInvariant))
	}

	return Outcome{residual: residual}
}

func (o Outcome) IsKnown() bool { return o.known }

// Value is the truth value of a known outcome, false otherwise.
func (o Outcome) Value() bool { return o.known && o.value }

// Residual is the remaining predicate of an unresolved outcome, nil
// for a known one.
func (o Outcome) Residual() Expr { return o.residual }

// Expr returns the outcome as a predicate, known outcomes become
// AlwaysTrue or AlwaysFalse.
func (o Outcome) Expr() Expr {
	if o.known {
		return BoolExpr(o.value)
	}

	return o.residual
}

func (o Outcome) String() string {
	if o.known {
		return "Known(" + strconv.FormatBool(o.value) + ")"
	}

	return "Unresolved(" + o.residual.String() + ")"
}

func (o Outcome) valid() bool { return o.known != (o.residual != nil) }

// Mode controls how IsNull and NotNull nodes resolve during a
// reduction.
//
// With a Target, a null check whose operand still depends on the
// target column resolves to CheckNull for IsNull and to its negation
// for NotNull. Without a Target and with CheckNull set, unknown
// operands are taken to be null. Otherwise null checks stay residual.
type Mode struct {
	CheckNull bool
	Target    Reference
}

func (m Mode) hasTarget() bool { return m.Target != "" }

// operand is the outcome of reducing a value position: either a
// resolved value with its declared type or a residual expression.
// src is the unbound form of the node the operand came from, used
// when a resolved range has to re-enter a residual.
type operand struct {
	val      Literal
	typ      Type
	residual Expr
	src      Expr
}

func (o operand) resolved() bool { return o.val != nil }

// expr is the operand as it should appear inside a residual. A single
// point becomes a literal while a range falls back to the original
// operand, which can still be evaluated per row.
func (o operand) expr() Expr {
	if !o.resolved() {
		return o.residual
	}

	if r, ok := o.val.(RangeLiteral); ok {
		if !r.IsPoint() {
			return o.src
		}

		return LiteralExpr{val: r.lower, typ: o.typ}
	}

	return LiteralExpr{val: o.val, typ: o.typ}
}

// Reduce partially evaluates a bound predicate against a row in which
// some columns may be unknown. Known columns may hold ranges, such as
// partition bounds, which are compared with CompareTyped.
//
// A Known outcome holds for every row consistent with the known
// columns. Residuals are expressed over unbound column references.
func Reduce(bound Expr, row Row, mode Mode) (Outcome, error) {
	return ReduceWithLimit(bound, row, mode, DefaultMaxDepth)
}

// ReduceWithLimit is Reduce with an explicit nesting limit.
func ReduceWithLimit(bound Expr, row Row, mode Mode, maxDepth int) (out Outcome, err error) {
	if bound == nil || row == nil {
		return Outcome{}, fmt.Errorf("%w: reduce needs a predicate and a row", ErrInvalidArgument)
	}

	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case string:
				err = fmt.Errorf("error encountered during Reduce: %s", e)
			case error:
				err = e
			default:
				panic(r)
			}
		}
	}()

	rd := &reducer{row: row, mode: mode, maxDepth: maxDepth}

	return rd.predicate(bound, 0), nil
}

// PartialEvaluator reduces one predicate, bound once, against many rows.
type PartialEvaluator struct {
	bound    Expr
	MaxDepth int
}

func NewPartialEvaluator(s *Schema, unbound Expr, caseSensitive bool) (*PartialEvaluator, error) {
	bound, err := Bind(s, unbound, caseSensitive)
	if err != nil {
		return nil, err
	}

	return &PartialEvaluator{bound: bound, MaxDepth: DefaultMaxDepth}, nil
}

func (p *PartialEvaluator) Bound() Expr { return p.bound }

func (p *PartialEvaluator) Eval(row Row, mode Mode) (Outcome, error) {
	return ReduceWithLimit(p.bound, row, mode, p.MaxDepth)
}

type reducer struct {
	row      Row
	mode     Mode
	maxDepth int
}

func (r *reducer) enter(depth int) {
	if depth > r.maxDepth {
		panic(fmt.Errorf("%w: predicate nested deeper than %d", ErrResourceExhausted, r.maxDepth))
	}
}

func (r *reducer) check(e Expr, o Outcome) Outcome {
	if !o.valid() {
		panic(fmt.Errorf("%w: malformed outcome for %s", ErrInternalInvariant, e))
	}

	return o
}

func (r *reducer) predicate(e Expr, depth int) Outcome {
	r.enter(depth)

	switch e := e.(type) {
	case AlwaysTrue:
		return Known(true)
	case AlwaysFalse:
		return Known(false)
	case AndExpr:
		return r.and(e, depth)
	case OrExpr:
		return r.or(e, depth)
	case NotExpr:
		c := r.check(e.child, r.predicate(e.child, depth+1))
		if c.known {
			return Known(!c.value)
		}

		if orig := mustUnbind(e.child); sameExpr(c.residual, orig) {
			return Unresolved(NotExpr{child: orig})
		}

		return Unresolved(NewNot(c.residual))
	case InExpr:
		return r.in(e, depth)
	case InSetExpr:
		return r.inSet(e, depth)
	case IsNullExpr:
		return r.nullCheck(e, e.child, true, depth)
	case NotNullExpr:
		return r.nullCheck(e, e.child, false, depth)
	case IfExpr:
		c := r.check(e.cond, r.predicate(e.cond, depth+1))
		if !c.known {
			return Unresolved(mustUnbind(e))
		}

		if c.value {
			return r.predicate(e.then, depth+1)
		}

		return r.predicate(e.els, depth+1)
	case CmpExpr:
		return r.compare(e, depth)
	case LiteralExpr, *BoundRef, *NamedLeaf:
		return r.valueAsPredicate(e, depth)
	case Reference:
		panic(fmt.Errorf("%w: found unbound reference %s, bind the predicate first",
			ErrInvalidArgument, e))
	case nil:
		panic(fmt.Errorf("%w: nil predicate node", ErrInvalidArgument))
	}

	// casts, arithmetic and anything unknown are never simplified
	return Unresolved(mustUnbind(e))
}

func (r *reducer) and(e AndExpr, depth int) Outcome {
	l := r.check(e.left, r.predicate(e.left, depth+1))
	if l.known && !l.value {
		return Known(false)
	}

	rt := r.check(e.right, r.predicate(e.right, depth+1))
	if rt.known && !rt.value {
		return Known(false)
	}

	switch {
	case l.known && rt.known:
		return Known(true)
	case l.known:
		return rt
	case rt.known:
		return l
	}

	origL, origR := mustUnbind(e.left), mustUnbind(e.right)
	if sameExpr(l.residual, origL) && sameExpr(rt.residual, origR) {
		return Unresolved(AndExpr{left: origL, right: origR})
	}

	return Unresolved(NewAnd(l.residual, rt.residual))
}

func (r *reducer) or(e OrExpr, depth int) Outcome {
	l := r.check(e.left, r.predicate(e.left, depth+1))
	if l.known && l.value {
		return Known(true)
	}

	rt := r.check(e.right, r.predicate(e.right, depth+1))
	if rt.known && rt.value {
		return Known(true)
	}

	switch {
	case l.known && rt.known:
		return Known(false)
	case l.known:
		return rt
	case rt.known:
		return l
	}

	origL, origR := mustUnbind(e.left), mustUnbind(e.right)
	if sameExpr(l.residual, origL) && sameExpr(rt.residual, origR) {
		return Unresolved(OrExpr{left: origL, right: origR})
	}

	return Unresolved(NewOr(l.residual, rt.residual))
}

// value reduces a node in operand position.
func (r *reducer) value(e Expr, depth int) operand {
	r.enter(depth)

	switch e := e.(type) {
	case LiteralExpr:
		return operand{val: e.val, typ: e.typ, src: e}
	case *BoundRef:
		v := r.row.Get(e.pos)
		if !v.Valid || v.Val == nil {
			return operand{typ: e.Type(), residual: e.Ref(), src: e.Ref()}
		}

		return operand{val: v.Val, typ: e.Type(), src: e.Ref()}
	case *NamedLeaf:
		v, err := e.Eval(r.row)
		if err != nil {
			panic(err)
		}

		if !v.Valid || v.Val == nil {
			return operand{typ: e.typ, residual: e, src: e}
		}

		return operand{val: v.Val, typ: e.typ, src: e}
	case Reference:
		panic(fmt.Errorf("%w: found unbound reference %s, bind the predicate first",
			ErrInvalidArgument, e))
	case IfExpr:
		c := r.check(e.cond, r.predicate(e.cond, depth+1))
		if !c.known {
			orig := mustUnbind(e)

			return operand{typ: e.Type(), residual: orig, src: orig}
		}

		if c.value {
			return r.value(e.then, depth+1)
		}

		return r.value(e.els, depth+1)
	case OpaqueExpr:
		orig := mustUnbind(e)

		return operand{typ: e.Type(), residual: orig, src: orig}
	}

	if _, isBool := e.Type().(BooleanType); !isBool || !isPredicate(e) {
		orig := mustUnbind(e)

		return operand{typ: e.Type(), residual: orig, src: orig}
	}

	o := r.check(e, r.predicate(e, depth))
	if o.known {
		return operand{val: BoolLiteral(o.value), typ: PrimitiveTypes.Bool, src: mustUnbind(e)}
	}

	return operand{typ: PrimitiveTypes.Bool, residual: o.residual, src: mustUnbind(e)}
}

func isPredicate(e Expr) bool {
	switch e.(type) {
	case AlwaysTrue, AlwaysFalse, AndExpr, OrExpr, NotExpr, InExpr, InSetExpr,
		IsNullExpr, NotNullExpr, CmpExpr:
		return true
	}

	return false
}

func (r *reducer) valueAsPredicate(e Expr, depth int) Outcome {
	v := r.value(e, depth)
	if !v.resolved() {
		return Unresolved(v.residual)
	}

	if _, ok := v.typ.(BooleanType); !ok {
		panic(fmt.Errorf("%w: %s of type %s used as a predicate", ErrTypeMismatch, e, v.typ))
	}

	val := v.val
	if rng, ok := val.(RangeLiteral); ok {
		if !rng.IsPoint() {
			return Unresolved(v.src)
		}
		val = rng.lower
	}

	lit, err := val.To(PrimitiveTypes.Bool)
	if err != nil {
		panic(fmt.Errorf("%w: %s is not a boolean", ErrTypeMismatch, val))
	}

	return Known(bool(lit.(BoolLiteral)))
}

func (r *reducer) nullCheck(e, child Expr, isNull bool, depth int) Outcome {
	wrap := func(x Expr) Expr {
		if isNull {
			return IsNullExpr{child: x}
		}

		return NotNullExpr{child: x}
	}

	switch {
	case r.mode.hasTarget():
		c := r.value(child, depth+1)
		if c.resolved() {
			// a known value is never null
			return Known(!isNull)
		}

		if References(c.residual, string(r.mode.Target)) {
			return Known(r.mode.CheckNull == isNull)
		}

		return Unresolved(wrap(c.residual))
	case r.mode.CheckNull:
		c := r.value(child, depth+1)

		return Known(c.resolved() != isNull)
	}

	return Unresolved(mustUnbind(e))
}

func (r *reducer) in(e InExpr, depth int) Outcome {
	v := r.value(e.value, depth+1)
	if !v.resolved() {
		list := make([]Expr, len(e.list))
		for i, c := range e.list {
			list[i] = r.value(c, depth+1).expr()
		}

		return Unresolved(InExpr{value: v.residual, list: list})
	}

	survivors := make([]Expr, 0, len(e.list))
	for _, c := range e.list {
		cand := r.value(c, depth+1)
		if !cand.resolved() {
			survivors = append(survivors, cand.residual)

			continue
		}

		code, ok, err := CompareTyped(v.typ, cand.typ, v.val, cand.val)
		if err != nil {
			panic(err)
		}

		if ok {
			switch code {
			case Equal:
				return Known(true)
			case StrictlyLess, StrictlyGreater:
				continue
			}
		}

		survivors = append(survivors, cand.expr())
	}

	if len(survivors) == 0 {
		return Known(false)
	}

	return Unresolved(InExpr{value: v.expr(), list: survivors})
}

func (r *reducer) inSet(e InSetExpr, depth int) Outcome {
	v := r.value(e.value, depth+1)
	if !v.resolved() {
		return Unresolved(InSetExpr{value: v.residual, set: e.set})
	}

	survivors := make([]Literal, 0, e.set.Len())
	for _, m := range e.set.Members() {
		code, ok, err := CompareTyped(v.typ, v.typ, v.val, m)
		if err != nil {
			panic(err)
		}

		if ok {
			switch code {
			case Equal:
				return Known(true)
			case StrictlyLess, StrictlyGreater:
				continue
			}
		}

		survivors = append(survivors, m)
	}

	if len(survivors) == 0 {
		return Known(false)
	}

	return Unresolved(InSetExpr{value: v.expr(), set: NewLiteralSet(survivors...)})
}

func (r *reducer) compare(e CmpExpr, depth int) Outcome {
	l, rt := r.value(e.left, depth+1), r.value(e.right, depth+1)
	if !l.resolved() || !rt.resolved() {
		return Unresolved(CmpExpr{op: e.op, left: l.expr(), right: rt.expr()})
	}

	code, ok, err := CompareTyped(l.typ, rt.typ, l.val, rt.val)
	if err != nil {
		panic(err)
	}

	residual := func(op Operation) Outcome {
		return Unresolved(CmpExpr{op: op, left: l.expr(), right: rt.expr()})
	}

	if !ok {
		return residual(e.op)
	}

	switch e.op {
	case OpEQ:
		switch code {
		case Equal:
			return Known(true)
		case StrictlyLess, StrictlyGreater:
			return Known(false)
		}
	case OpLT:
		switch code {
		case StrictlyLess:
			return Known(true)
		case Equal, GreaterOrTouching, StrictlyGreater:
			return Known(false)
		}
	case OpLTEQ:
		switch code {
		case StrictlyLess, LessOrTouching, Equal:
			return Known(true)
		case StrictlyGreater:
			return Known(false)
		case GreaterOrTouching:
			// only equality at the shared bound can still satisfy <=
			return residual(OpEQ)
		}
	case OpGT:
		switch code {
		case StrictlyGreater:
			return Known(true)
		case Equal, LessOrTouching, StrictlyLess:
			return Known(false)
		}
	case OpGTEQ:
		switch code {
		case StrictlyGreater, GreaterOrTouching, Equal:
			return Known(true)
		case StrictlyLess:
			return Known(false)
		case LessOrTouching:
			return residual(OpEQ)
		}
	default:
		panic(fmt.Errorf("%w: unexpected comparison %s", ErrInternalInvariant, e.op))
	}

	return residual(e.op)
}
