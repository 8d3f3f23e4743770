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
	"slices"

	"github.com/twmb/murmur3"
)

// ExprVisitor is visited bottom up by VisitExpr. Leaves are nodes
// without children, every other node kind besides the boolean
// connectives is passed to VisitNode along with its children's results.
type ExprVisitor[T any] interface {
	VisitTrue() T
	VisitFalse() T
	VisitNot(childResult T) T
	VisitAnd(left, right T) T
	VisitOr(left, right T) T
	VisitLeaf(Expr) T
	VisitNode(e Expr, children []T) T
}

// VisitExpr walks expr with visitor. Visitors report failures by
// panicking with an error, which is returned here. Trees nested deeper
// than DefaultMaxDepth fail with ErrResourceExhausted.
func VisitExpr[T any](expr Expr, visitor ExprVisitor[T]) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case string:
				err = fmt.Errorf("error encountered during VisitExpr: %s", e)
			case error:
				err = e
			default:
				panic(r)
			}
		}
	}()

	return visitExpr(expr, visitor, 0), err
}

func visitExpr[T any](e Expr, visitor ExprVisitor[T], depth int) T {
	if depth > DefaultMaxDepth {
		panic(fmt.Errorf("%w: expression nested deeper than %d", ErrResourceExhausted, DefaultMaxDepth))
	}

	switch e := e.(type) {
	case nil:
		panic(fmt.Errorf("%w: nil expression", ErrInvalidArgument))
	case AlwaysTrue:
		return visitor.VisitTrue()
	case AlwaysFalse:
		return visitor.VisitFalse()
	case NotExpr:
		return visitor.VisitNot(visitExpr(e.child, visitor, depth+1))
	case AndExpr:
		left, right := visitExpr(e.left, visitor, depth+1), visitExpr(e.right, visitor, depth+1)

		return visitor.VisitAnd(left, right)
	case OrExpr:
		left, right := visitExpr(e.left, visitor, depth+1), visitExpr(e.right, visitor, depth+1)

		return visitor.VisitOr(left, right)
	}

	children := e.Children()
	if len(children) == 0 {
		return visitor.VisitLeaf(e)
	}

	results := make([]T, len(children))
	for i, c := range children {
		results[i] = visitExpr(c, visitor, depth+1)
	}

	return visitor.VisitNode(e, results)
}

// Bind resolves every Reference in expr against the schema. Literal
// operands of comparisons and membership tests are cast to the type of
// the value they are compared with whenever that cast succeeds, a
// literal that cannot be cast keeps its own type.
func Bind(s *Schema, expr Expr, caseSensitive bool) (Expr, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: cannot bind without a schema", ErrInvalidArgument)
	}

	return VisitExpr(expr, &bindVisitor{schema: s, caseSensitive: caseSensitive})
}

type bindVisitor struct {
	schema        *Schema
	caseSensitive bool
}

func (*bindVisitor) VisitTrue() Expr                { return AlwaysTrue{} }
func (*bindVisitor) VisitFalse() Expr               { return AlwaysFalse{} }
func (*bindVisitor) VisitNot(child Expr) Expr       { return NewNot(child) }
func (*bindVisitor) VisitAnd(left, right Expr) Expr { return NewAnd(left, right) }
func (*bindVisitor) VisitOr(left, right Expr) Expr  { return NewOr(left, right) }

func (b *bindVisitor) VisitLeaf(e Expr) Expr {
	var name string
	switch e := e.(type) {
	case Reference:
		name = string(e)
	case *BoundRef:
		name = e.field.Name
	default:
		return e
	}

	field, pos, ok := b.schema.findField(name, b.caseSensitive)
	if !ok {
		panic(fmt.Errorf("%w: could not bind reference '%s', caseSensitive=%t",
			ErrInvalidSchema, name, b.caseSensitive))
	}

	return &BoundRef{field: field, pos: pos}
}

func (b *bindVisitor) VisitNode(e Expr, children []Expr) Expr {
	out := e.WithChildren(children...)

	switch out := out.(type) {
	case CmpExpr:
		return CmpExpr{op: out.op,
			left:  coerceOperand(out.left, out.right.Type()),
			right: coerceOperand(out.right, out.left.Type())}
	case InExpr:
		list := make([]Expr, len(out.list))
		for i, c := range out.list {
			list[i] = coerceOperand(c, out.value.Type())
		}

		return InExpr{value: out.value, list: list}
	case InSetExpr:
		typ := out.value.Type()
		if typ == nil {
			return out
		}

		members := out.set.Members()
		for i, m := range members {
			if cast, err := m.To(typ); err == nil {
				members[i] = cast
			}
		}

		return InSetExpr{value: out.value, set: NewLiteralSet(members...)}
	}

	return out
}

func coerceOperand(e Expr, target Type) Expr {
	lit, ok := e.(LiteralExpr)
	if !ok || target == nil || lit.typ.Equals(target) {
		return e
	}

	cast, err := lit.val.To(target)
	if err != nil {
		return e
	}

	return LiteralExpr{val: cast, typ: target}
}

// Unbind replaces every bound column in expr with a Reference to the
// column's name, keeping the shape of the tree otherwise intact.
func Unbind(expr Expr) (Expr, error) {
	return VisitExpr(expr, unbindVisitor{})
}

func mustUnbind(expr Expr) Expr {
	return visitExpr(expr, unbindVisitor{}, 0)
}

type unbindVisitor struct{}

func (unbindVisitor) VisitTrue() Expr                { return AlwaysTrue{} }
func (unbindVisitor) VisitFalse() Expr               { return AlwaysFalse{} }
func (unbindVisitor) VisitNot(child Expr) Expr       { return NotExpr{child: child} }
func (unbindVisitor) VisitAnd(left, right Expr) Expr { return AndExpr{left: left, right: right} }
func (unbindVisitor) VisitOr(left, right Expr) Expr  { return OrExpr{left: left, right: right} }

func (unbindVisitor) VisitLeaf(e Expr) Expr {
	if b, ok := e.(*BoundRef); ok {
		return b.Ref()
	}

	return e
}

func (unbindVisitor) VisitNode(e Expr, children []Expr) Expr {
	return e.WithChildren(children...)
}

// Columns returns the names of the columns expr refers to, bound or
// not, in the order they are first seen.
func Columns(expr Expr) ([]string, error) {
	c := &columnCollector{seen: map[string]struct{}{}}
	if _, err := VisitExpr[struct{}](expr, c); err != nil {
		return nil, err
	}

	return c.names, nil
}

func mustColumns(expr Expr) []string {
	c := &columnCollector{seen: map[string]struct{}{}}
	visitExpr[struct{}](expr, c, 0)

	return c.names
}

// References reports whether col is among the free columns of expr.
func References(expr Expr, col string) bool {
	return slices.Contains(mustColumns(expr), col)
}

type columnCollector struct {
	seen  map[string]struct{}
	names []string
}

func (*columnCollector) VisitTrue() (_ struct{})                 { return }
func (*columnCollector) VisitFalse() (_ struct{})                { return }
func (*columnCollector) VisitNot(struct{}) (_ struct{})          { return }
func (*columnCollector) VisitAnd(_, _ struct{}) (_ struct{})     { return }
func (*columnCollector) VisitOr(_, _ struct{}) (_ struct{})      { return }
func (*columnCollector) VisitNode(Expr, []struct{}) (_ struct{}) { return }

func (c *columnCollector) VisitLeaf(e Expr) (_ struct{}) {
	var name string
	switch e := e.(type) {
	case Reference:
		name = string(e)
	case *BoundRef:
		name = e.field.Name
	default:
		return
	}

	if _, ok := c.seen[name]; !ok {
		c.seen[name] = struct{}{}
		c.names = append(c.names, name)
	}

	return
}

// Fingerprint is a 64-bit murmur3 hash of the expression's printed
// form, used to group and quickly tell apart residual expressions.
func Fingerprint(expr Expr) (uint64, error) {
	// printing recurses without a limit, walk the tree under one first
	if _, err := VisitExpr[struct{}](expr, &columnCollector{seen: map[string]struct{}{}}); err != nil {
		return 0, err
	}

	return fingerprint(expr), nil
}

func fingerprint(expr Expr) uint64 {
	return murmur3.Sum64([]byte(expr.String()))
}

// sameExpr is structural equality with a fingerprint fast path. Both
// sides must be canonical, bound with the same schema and then unbound,
// so equal trees print the same.
func sameExpr(a, b Expr) bool {
	if fingerprint(a) != fingerprint(b) {
		return false
	}

	return a.Equals(b)
}
