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

package residual_test

import (
	"fmt"
	"testing"

	"github.com/residualeval/residual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func reduce(t *testing.T, expr residual.Expr, row residual.Row, mode residual.Mode) residual.Outcome {
	t.Helper()

	bound, err := residual.Bind(tableSchema, expr, true)
	require.NoError(t, err)

	out, err := residual.Reduce(bound, row, mode)
	require.NoError(t, err)

	return out
}

func TestReduceComparisons(t *testing.T) {
	x7 := row(residual.Int32Literal(7), nil, nil)
	x5to10 := row(intRange(5, 10), nil, nil)

	tests := []struct {
		name     string
		expr     residual.Expr
		row      residual.Record
		expected string
	}{
		{"known lt", residual.LessThan(refX, int32(8)), x7, "Known(true)"},
		{"known eq", residual.EqualTo(refX, int32(8)), x7, "Known(false)"},
		{"unknown column", residual.EqualTo(refY, "a"), x7, "Unresolved(y = 'a')"},
		{"range eq touching", residual.EqualTo(refX, int32(5)), x5to10, "Unresolved(x = 5)"},
		{"range gteq touching", residual.GreaterThanEqual(refX, int32(5)), x5to10, "Known(true)"},
		{"range lteq rewrites to eq", residual.LessThanEqual(refX, int32(5)), x5to10, "Unresolved(x = 5)"},
		{"range lt touching", residual.LessThan(refX, int32(5)), x5to10, "Known(false)"},
		{"range gt touching", residual.GreaterThan(refX, int32(10)), x5to10, "Known(false)"},
		{"range gteq rewrites to eq", residual.GreaterThanEqual(refX, int32(10)), x5to10, "Unresolved(x = 10)"},
		{"range strictly below", residual.LessThan(refX, int32(11)), x5to10, "Known(true)"},
		{"range overlapping", residual.GreaterThan(refX, int32(7)), x5to10, "Unresolved(x > 7)"},
		{"range eq outside", residual.EqualTo(refX, int32(42)), x5to10, "Known(false)"},
		{"point vs range literal",
			residual.NewCmp(residual.OpLTEQ, residual.Lit(residual.Int32Literal(5)),
				residual.TypedLit(intRange(5, 10), residual.PrimitiveTypes.Int32)),
			x7, "Known(true)"},
		{"point vs range literal eq",
			residual.NewCmp(residual.OpEQ, residual.Lit(residual.Int32Literal(5)),
				residual.TypedLit(intRange(5, 10), residual.PrimitiveTypes.Int32)),
			x7, "Unresolved(5 = [5, 10])"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := reduce(t, tt.expr, tt.row, residual.Mode{})
			assert.Equal(t, tt.expected, out.String())
		})
	}
}

func TestReduceConnectives(t *testing.T) {
	x7 := row(residual.Int32Literal(7), nil, nil)

	tests := []struct {
		name     string
		expr     residual.Expr
		expected string
	}{
		{"and drops known true", residual.NewAnd(residual.GreaterThan(refX, int32(5)), residual.EqualTo(refY, "a")),
			"Unresolved(y = 'a')"},
		{"and short circuits", residual.NewAnd(residual.EqualTo(refY, "a"), residual.LessThan(refX, int32(5))),
			"Known(false)"},
		{"or drops known false", residual.NewOr(residual.LessThan(refX, int32(5)), residual.EqualTo(refY, "a")),
			"Unresolved(y = 'a')"},
		{"or short circuits", residual.NewOr(residual.EqualTo(refY, "a"), residual.GreaterThan(refX, int32(5))),
			"Known(true)"},
		{"or without progress", residual.NewOr(residual.EqualTo(refY, "a"), residual.IsIn(refZ, int64(1))),
			"Unresolved((y = 'a' OR z IN (1)))"},
		{"nested partial", residual.NewOr(
			residual.NewAnd(residual.GreaterThan(refX, int32(5)), residual.EqualTo(refY, "a")),
			residual.NewAnd(residual.EqualTo(refY, "b"), residual.EqualTo(refZ, int64(3)))),
			"Unresolved((y = 'a' OR (y = 'b' AND z = 3)))"},
		{"not known", residual.NewNot(residual.GreaterThan(refX, int32(5))), "Known(false)"},
		{"not residual", residual.NewNot(residual.EqualTo(refY, "a")), "Unresolved(NOT y = 'a')"},
		{"not simplified residual",
			residual.NewNot(residual.NewAnd(residual.GreaterThan(refX, int32(5)), residual.EqualTo(refY, "a"))),
			"Unresolved(NOT y = 'a')"},
		{"if selects then", residual.NewIf(residual.GreaterThan(refX, int32(5)), residual.EqualTo(refY, "a"),
			residual.AlwaysFalse{}), "Unresolved(y = 'a')"},
		{"if selects else", residual.NewIf(residual.LessThan(refX, int32(5)), residual.EqualTo(refY, "a"),
			residual.AlwaysFalse{}), "Known(false)"},
		{"if unknown condition", residual.NewIf(residual.EqualTo(refY, "a"), residual.AlwaysTrue{},
			residual.GreaterThan(refX, int32(5))), "Unresolved(IF(y = 'a', true, x > 5))"},
		{"opaque stays residual", residual.EqualTo(residual.Negative(refX), int32(-7)),
			"Unresolved(negative(x) = -7)"},
		{"constant", residual.AlwaysTrue{}, "Known(true)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := reduce(t, tt.expr, x7, residual.Mode{})
			assert.Equal(t, tt.expected, out.String())
		})
	}
}

func TestReduceMembership(t *testing.T) {
	x5 := row(residual.Int32Literal(5), nil, nil)

	assert.Equal(t, "Known(true)",
		reduce(t, residual.IsIn(refX, int32(1), int32(2), int32(5), int32(9)), x5, residual.Mode{}).String())
	assert.Equal(t, "Known(false)",
		reduce(t, residual.IsIn(refX, int32(1), int32(2), int32(9)), x5, residual.Mode{}).String())
	assert.Equal(t, "Known(true)",
		reduce(t, residual.InSet(refX, int32(9), int32(5)), x5, residual.Mode{}).String())
	assert.Equal(t, "Known(false)",
		reduce(t, residual.InSet(refX, int32(9), int32(1)), x5, residual.Mode{}).String())

	// unknown candidates survive, definite misses are dropped
	x5z := residual.NewIn(refX, residual.Lit(residual.Int32Literal(1)), residual.Cast(refZ, residual.PrimitiveTypes.Int32))
	assert.Equal(t, "Unresolved(5 IN (cast<int>(z)))", reduce(t, x5z, x5, residual.Mode{}).String())

	// an unknown probe rebuilds the list with resolved candidates inlined
	probe := residual.NewIn(refZ, residual.Lit(residual.Int64Literal(1)), refX)
	assert.Equal(t, "Unresolved(z IN (1, 5))", reduce(t, probe, x5, residual.Mode{}).String())

	ranged := row(intRange(5, 10), nil, nil)
	assert.Equal(t, "Unresolved(x IN (5, 7))",
		reduce(t, residual.IsIn(refX, int32(1), int32(5), int32(7), int32(12)), ranged, residual.Mode{}).String())
	assert.Equal(t, "Known(false)",
		reduce(t, residual.InSet(refX, int32(1), int32(12)), ranged, residual.Mode{}).String())
}

func TestReduceNullChecks(t *testing.T) {
	onlyX := row(residual.Int32Literal(7), nil, nil)
	targetY := residual.Mode{CheckNull: true, Target: refY}

	tests := []struct {
		name     string
		expr     residual.Expr
		mode     residual.Mode
		expected string
	}{
		{"plain mode keeps is null", residual.IsNull(refY), residual.Mode{}, "Unresolved(y IS NULL)"},
		{"plain mode keeps is null on known column", residual.IsNull(refX), residual.Mode{}, "Unresolved(x IS NULL)"},
		{"check null unknown", residual.IsNull(refY), residual.Mode{CheckNull: true}, "Known(true)"},
		{"check null known", residual.IsNull(refX), residual.Mode{CheckNull: true}, "Known(false)"},
		{"check not null unknown", residual.NotNull(refY), residual.Mode{CheckNull: true}, "Known(false)"},
		{"check not null known", residual.NotNull(refX), residual.Mode{CheckNull: true}, "Known(true)"},
		{"target null", residual.IsNull(refY), targetY, "Known(true)"},
		{"target null negated", residual.NotNull(refY), targetY, "Known(false)"},
		{"target not null", residual.IsNull(refY), residual.Mode{Target: refY}, "Known(false)"},
		{"other column stays", residual.IsNull(refZ), targetY, "Unresolved(z IS NULL)"},
		{"known value is not null", residual.IsNull(refX), targetY, "Known(false)"},
		{"target inside predicate", residual.IsNull(residual.EqualTo(refY, "a")), targetY, "Known(true)"},
		{"target constant child", residual.IsNull(residual.AlwaysFalse{}), targetY, "Known(false)"},
		{"target constant child negated", residual.NotNull(residual.AlwaysFalse{}), targetY, "Known(true)"},
		{"target not null constant child", residual.IsNull(residual.AlwaysTrue{}), residual.Mode{Target: refY}, "Known(false)"},
		{"target resolved predicate child", residual.NotNull(residual.EqualTo(refX, int32(7))), targetY, "Known(true)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := reduce(t, tt.expr, onlyX, tt.mode)
			assert.Equal(t, tt.expected, out.String())
		})
	}
}

func TestReduceBooleanColumns(t *testing.T) {
	flagged := residual.NewRecord(nil, nil, nil, nil, residual.BoolLiteral(true))
	unknown := residual.UnknownRecord(5)
	flag := residual.Reference("flag")

	assert.Equal(t, "Known(true)", reduce(t, flag, flagged, residual.Mode{}).String())
	assert.Equal(t, "Known(false)", reduce(t, residual.NewNot(flag), flagged, residual.Mode{}).String())
	assert.Equal(t, "Unresolved(flag)", reduce(t, flag, unknown, residual.Mode{}).String())
	assert.Equal(t, "Known(true)",
		reduce(t, residual.EqualTo(flag, true), flagged, residual.Mode{}).String())

	bound, err := residual.Bind(tableSchema, refX, true)
	require.NoError(t, err)
	_, err = residual.Reduce(bound, row(residual.Int32Literal(1), nil, nil), residual.Mode{})
	assert.ErrorIs(t, err, residual.ErrTypeMismatch)
}

func TestReduceNamedLeaf(t *testing.T) {
	bucket := residual.NewNamedLeaf("bucket", residual.PrimitiveTypes.Int32,
		func(r residual.Row) (residual.Optional[residual.Literal], error) {
			v := r.Get(0)
			if !v.Valid {
				return residual.Optional[residual.Literal]{}, nil
			}

			return residual.Some[residual.Literal](residual.Int32Literal(int32(v.Val.(residual.Int32Literal)) % 4)), nil
		})

	pred := residual.EqualTo(bucket, int32(3))
	assert.Equal(t, "Known(true)", reduce(t, pred, row(residual.Int32Literal(7), nil, nil), residual.Mode{}).String())
	assert.Equal(t, "Known(false)", reduce(t, pred, row(residual.Int32Literal(8), nil, nil), residual.Mode{}).String())
	assert.Equal(t, "Unresolved(bucket() = 3)", reduce(t, pred, row(nil, nil, nil), residual.Mode{}).String())
}

func TestReduceErrors(t *testing.T) {
	x1 := row(residual.Int32Literal(1), residual.StringLiteral("a"), nil)

	t.Run("short circuit skips ill typed operand", func(t *testing.T) {
		pred := residual.NewAnd(residual.GreaterThan(refX, int32(5)), residual.EqualTo(refY, int32(3)))
		assert.Equal(t, "Known(false)", reduce(t, pred, x1, residual.Mode{}).String())
	})

	t.Run("type mismatch", func(t *testing.T) {
		pred := residual.NewAnd(residual.EqualTo(refY, int32(3)), residual.GreaterThan(refX, int32(5)))
		bound, err := residual.Bind(tableSchema, pred, true)
		require.NoError(t, err)

		_, err = residual.Reduce(bound, x1, residual.Mode{})
		assert.ErrorIs(t, err, residual.ErrTypeMismatch)
	})

	t.Run("unbound reference", func(t *testing.T) {
		_, err := residual.Reduce(residual.LessThan(refX, int32(5)), x1, residual.Mode{})
		assert.ErrorIs(t, err, residual.ErrInvalidArgument)
	})

	t.Run("missing inputs", func(t *testing.T) {
		_, err := residual.Reduce(nil, x1, residual.Mode{})
		assert.ErrorIs(t, err, residual.ErrInvalidArgument)

		_, err = residual.Reduce(residual.AlwaysTrue{}, nil, residual.Mode{})
		assert.ErrorIs(t, err, residual.ErrInvalidArgument)
	})

	t.Run("unordered type", func(t *testing.T) {
		s := residual.MustSchema(residual.Field{Name: "u", Type: residual.PrimitiveTypes.Unknown})
		pred := residual.NewCmp(residual.OpEQ, residual.Reference("u"),
			residual.TypedLit(residual.Int32Literal(1), residual.PrimitiveTypes.Unknown))
		bound, err := residual.Bind(s, pred, true)
		require.NoError(t, err)

		_, err = residual.Reduce(bound, residual.NewRecord(residual.Int32Literal(1)), residual.Mode{})
		assert.ErrorIs(t, err, residual.ErrUnsupportedType)
	})

	t.Run("depth limit", func(t *testing.T) {
		var pred residual.Expr = residual.EqualTo(refY, "a")
		for i := range 64 {
			pred = residual.NewAnd(pred, residual.EqualTo(refZ, int64(i)))
		}

		bound, err := residual.Bind(tableSchema, pred, true)
		require.NoError(t, err)

		_, err = residual.ReduceWithLimit(bound, residual.UnknownRecord(5), residual.Mode{}, 16)
		assert.ErrorIs(t, err, residual.ErrResourceExhausted)

		out, err := residual.Reduce(bound, residual.UnknownRecord(5), residual.Mode{})
		require.NoError(t, err)
		assert.False(t, out.IsKnown())
	})
}

func TestPartialEvaluator(t *testing.T) {
	pe, err := residual.NewPartialEvaluator(tableSchema,
		residual.NewAnd(residual.GreaterThan(residual.Reference("X"), int32(5)), residual.EqualTo(refY, "a")), false)
	require.NoError(t, err)
	assert.Equal(t, "(x > 5 AND y = 'a')", pe.Bound().String())

	out, err := pe.Eval(row(residual.Int32Literal(9), nil, nil), residual.Mode{})
	require.NoError(t, err)
	assert.Equal(t, "y = 'a'", out.Residual().String())
	assert.False(t, out.Value())

	out, err = pe.Eval(row(residual.Int32Literal(9), residual.StringLiteral("a"), nil), residual.Mode{})
	require.NoError(t, err)
	assert.True(t, out.IsKnown())
	assert.True(t, out.Value())
	assert.Equal(t, residual.AlwaysTrue{}, out.Expr())

	_, err = residual.NewPartialEvaluator(tableSchema, residual.IsNull(residual.Reference("X")), true)
	assert.ErrorIs(t, err, residual.ErrInvalidSchema)
}

// soundnessSuite checks reduction against exact evaluation: a known
// outcome must agree with every complete row consistent with the
// partial one, and a residual must evaluate like the original.
type soundnessSuite struct {
	suite.Suite

	preds []residual.Expr
}

func (s *soundnessSuite) SetupSuite() {
	s.preds = []residual.Expr{
		residual.LessThan(refX, int32(5)),
		residual.LessThanEqual(refX, int32(5)),
		residual.GreaterThan(refX, int32(5)),
		residual.GreaterThanEqual(refX, int32(5)),
		residual.EqualTo(refX, int32(5)),
		residual.NotEqualTo(refX, int32(5)),
		residual.IsIn(refX, int32(2), int32(5), int32(8)),
		residual.InSet(refX, int32(3), int32(6)),
		residual.Between(refX, int32(3), int32(6)),
		residual.NewAnd(residual.GreaterThan(refX, int32(3)), residual.EqualTo(refY, "a")),
		residual.NewOr(residual.LessThan(refX, int32(3)), residual.EqualTo(refY, "b")),
		residual.NewNot(residual.NewOr(residual.LessThan(refX, int32(3)), residual.GreaterThan(refZ, int64(0)))),
		residual.NewIf(residual.GreaterThan(refX, int32(4)), residual.EqualTo(refY, "a"), residual.LessThan(refZ, int64(2))),
	}
}

func (s *soundnessSuite) check(pred residual.Expr, lo, hi int32, y residual.Literal, z residual.Literal) {
	bound, err := residual.Bind(tableSchema, pred, true)
	s.Require().NoError(err)

	var xv residual.Literal = intRange(lo, hi)
	partial := row(xv, nil, nil)
	out, err := residual.Reduce(bound, partial, residual.Mode{})
	s.Require().NoError(err)

	exact, err := residual.ExpressionEvaluator(tableSchema, pred, true)
	s.Require().NoError(err)

	var residualEval func(residual.Row) (residual.Optional[bool], error)
	if !out.IsKnown() {
		residualEval, err = residual.ExpressionEvaluator(tableSchema, out.Residual(), true)
		s.Require().NoError(err)
	}

	for x := lo; x <= hi; x++ {
		full := row(residual.Int32Literal(x), y, z)
		want, err := exact(full)
		s.Require().NoError(err)

		msg := fmt.Sprintf("%s with x=%d in [%d, %d]: %s", pred, x, lo, hi, out)
		if out.IsKnown() {
			s.Equal(want.Valid && want.Val, out.Value(), msg)

			continue
		}

		got, err := residualEval(full)
		s.Require().NoError(err)
		s.Equal(want, got, msg)
	}
}

func (s *soundnessSuite) TestRanges() {
	ys := []residual.Literal{residual.StringLiteral("a"), residual.StringLiteral("b")}
	zs := []residual.Literal{residual.Int64Literal(-1), residual.Int64Literal(1)}

	for _, pred := range s.preds {
		for lo := int32(0); lo <= 9; lo++ {
			for hi := lo; hi <= 9; hi++ {
				for _, y := range ys {
					for _, z := range zs {
						s.check(pred, lo, hi, y, z)
					}
				}
			}
		}
	}
}

func (s *soundnessSuite) TestIdempotent() {
	partial := row(intRange(4, 6), nil, nil)
	for _, pred := range s.preds {
		bound, err := residual.Bind(tableSchema, pred, true)
		s.Require().NoError(err)

		first, err := residual.Reduce(bound, partial, residual.Mode{})
		s.Require().NoError(err)
		if first.IsKnown() {
			continue
		}

		rebound, err := residual.Bind(tableSchema, first.Residual(), true)
		s.Require().NoError(err)

		second, err := residual.Reduce(rebound, partial, residual.Mode{})
		s.Require().NoError(err)
		s.Equal(first.String(), second.String(), pred.String())
	}
}

func TestReduceSoundness(t *testing.T) {
	suite.Run(t, new(soundnessSuite))
}
