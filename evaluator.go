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

import "fmt"

// ExpressionEvaluator binds unbound against s and returns a function
// that evaluates it exactly over complete rows. A column without a
// value is SQL NULL and nulls propagate with three-valued logic, an
// invalid result means the predicate is NULL for that row.
func ExpressionEvaluator(s *Schema, unbound Expr, caseSensitive bool) (func(Row) (Optional[bool], error), error) {
	bound, err := Bind(s, unbound, caseSensitive)
	if err != nil {
		return nil, err
	}

	return (&exprEvaluator{bound: bound}).Eval, nil
}

type exprEvaluator struct {
	bound Expr
	row   Row
}

func (e *exprEvaluator) Eval(row Row) (Optional[bool], error) {
	e.row = row
	res, err := VisitExpr(e.bound, e)
	if err != nil || !res.Valid {
		return Optional[bool]{}, err
	}

	b, ok := res.Val.(BoolLiteral)
	if !ok {
		return Optional[bool]{}, fmt.Errorf("%w: predicate produced %s, not a boolean",
			ErrTypeMismatch, res.Val.Type())
	}

	return Some(bool(b)), nil
}

var (
	null     = Optional[Literal]{}
	trueLit  = Some[Literal](BoolLiteral(true))
	falseLit = Some[Literal](BoolLiteral(false))
)

func boolOf(v Optional[Literal]) Optional[bool] {
	if !v.Valid {
		return Optional[bool]{}
	}

	b, ok := v.Val.(BoolLiteral)
	if !ok {
		panic(fmt.Errorf("%w: %s used as a boolean", ErrTypeMismatch, v.Val.Type()))
	}

	return Some(bool(b))
}

func fromBool(b bool) Optional[Literal] {
	if b {
		return trueLit
	}

	return falseLit
}

// pointValue rejects ranges, exact evaluation needs a single value.
func pointValue(v Literal) Literal {
	if r, ok := v.(RangeLiteral); ok {
		if !r.IsPoint() {
			panic(fmt.Errorf("%w: cannot evaluate exactly over range %s", ErrInvalidArgument, r))
		}

		return r.lower
	}

	return v
}

func (*exprEvaluator) VisitTrue() Optional[Literal]  { return trueLit }
func (*exprEvaluator) VisitFalse() Optional[Literal] { return falseLit }

func (*exprEvaluator) VisitNot(child Optional[Literal]) Optional[Literal] {
	b := boolOf(child)
	if !b.Valid {
		return null
	}

	return fromBool(!b.Val)
}

func (*exprEvaluator) VisitAnd(left, right Optional[Literal]) Optional[Literal] {
	l, r := boolOf(left), boolOf(right)
	switch {
	case (l.Valid && !l.Val) || (r.Valid && !r.Val):
		return falseLit
	case l.Valid && r.Valid:
		return trueLit
	}

	return null
}

func (*exprEvaluator) VisitOr(left, right Optional[Literal]) Optional[Literal] {
	l, r := boolOf(left), boolOf(right)
	switch {
	case (l.Valid && l.Val) || (r.Valid && r.Val):
		return trueLit
	case l.Valid && r.Valid:
		return falseLit
	}

	return null
}

func (e *exprEvaluator) VisitLeaf(leaf Expr) Optional[Literal] {
	switch leaf := leaf.(type) {
	case LiteralExpr:
		return Some(pointValue(leaf.val))
	case *BoundRef:
		v := e.row.Get(leaf.pos)
		if !v.Valid {
			return null
		}

		return Some(pointValue(v.Val))
	case *NamedLeaf:
		v, err := leaf.Eval(e.row)
		if err != nil {
			panic(err)
		}

		if !v.Valid {
			return null
		}

		return Some(pointValue(v.Val))
	case Reference:
		panic(fmt.Errorf("%w: found unbound reference %s when evaluating expression",
			ErrInvalidArgument, leaf))
	}

	panic(fmt.Errorf("%w: cannot evaluate %s", ErrNotImplemented, leaf))
}

// order compares two non-null point values with declared types lt and
// rt, returning -1, 0 or 1.
func order(lt, rt Type, v1, v2 Literal) int {
	code, ok, err := CompareTyped(lt, rt, v1, v2)
	if err != nil {
		panic(err)
	}

	if !ok {
		panic(fmt.Errorf("%w: %s and %s are not ordered", ErrInternalInvariant, v1, v2))
	}

	switch {
	case code < 0:
		return -1
	case code > 0:
		return 1
	}

	return 0
}

func (e *exprEvaluator) VisitNode(node Expr, children []Optional[Literal]) Optional[Literal] {
	switch node := node.(type) {
	case IsNullExpr:
		return fromBool(!children[0].Valid)
	case NotNullExpr:
		return fromBool(children[0].Valid)
	case CmpExpr:
		l, r := children[0], children[1]
		if !l.Valid || !r.Valid {
			return null
		}

		c := order(node.left.Type(), node.right.Type(), l.Val, r.Val)
		switch node.op {
		case OpEQ:
			return fromBool(c == 0)
		case OpLT:
			return fromBool(c < 0)
		case OpLTEQ:
			return fromBool(c <= 0)
		case OpGT:
			return fromBool(c > 0)
		case OpGTEQ:
			return fromBool(c >= 0)
		}
	case InExpr:
		v := children[0]
		if !v.Valid {
			return null
		}

		sawNull := false
		for i, cand := range children[1:] {
			if !cand.Valid {
				sawNull = true

				continue
			}

			if order(node.value.Type(), node.list[i].Type(), v.Val, cand.Val) == 0 {
				return trueLit
			}
		}

		if sawNull {
			return null
		}

		return falseLit
	case InSetExpr:
		v := children[0]
		if !v.Valid {
			return null
		}

		typ := node.value.Type()
		found := !node.set.All(func(m Literal) bool {
			return order(typ, typ, v.Val, m) != 0
		})

		return fromBool(found)
	case IfExpr:
		if c := boolOf(children[0]); c.Valid && c.Val {
			return children[1]
		}

		return children[2]
	case OpaqueExpr:
		return evalOpaque(node, children)
	}

	panic(fmt.Errorf("%w: cannot evaluate %s", ErrNotImplemented, node))
}

func evalOpaque(node OpaqueExpr, args []Optional[Literal]) Optional[Literal] {
	if len(args) != 1 {
		panic(fmt.Errorf("%w: cannot evaluate %s", ErrNotImplemented, node))
	}

	v := args[0]
	if !v.Valid {
		return null
	}

	switch node.name {
	case "cast":
		out, err := v.Val.To(node.Type())
		if err != nil {
			panic(err)
		}

		return Some(out)
	case "negative":
		switch n := v.Val.(type) {
		case Int32Literal:
			return Some[Literal](-n)
		case Int64Literal:
			return Some[Literal](-n)
		case Float32Literal:
			return Some[Literal](-n)
		case Float64Literal:
			return Some[Literal](-n)
		case DecimalLiteral:
			return Some[Literal](DecimalLiteral{Val: n.Val.Negate(), Scale: n.Scale})
		}

		panic(fmt.Errorf("%w: cannot negate %s", ErrTypeMismatch, v.Val.Type()))
	}

	panic(fmt.Errorf("%w: cannot evaluate %s", ErrNotImplemented, node))
}
