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
	"testing"

	"github.com/residualeval/residual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intRange(lo, hi int32) residual.RangeLiteral {
	return residual.MustRange(residual.Int32Literal(lo), residual.Int32Literal(hi))
}

func TestNewRange(t *testing.T) {
	r, err := residual.NewRange(residual.Int32Literal(1), residual.Int64Literal(5))
	require.NoError(t, err)
	assert.Equal(t, "[1, 5]", r.String())
	assert.True(t, r.Upper().Equals(residual.Int32Literal(5)))
	assert.False(t, r.IsPoint())
	assert.True(t, intRange(3, 3).IsPoint())

	_, err = residual.NewRange(residual.Int32Literal(5), residual.Int32Literal(1))
	assert.ErrorIs(t, err, residual.ErrInvalidArgument)

	_, err = residual.NewRange(residual.Int32Literal(1), residual.StringLiteral("a"))
	assert.ErrorIs(t, err, residual.ErrTypeMismatch)

	_, err = residual.NewRange(nil, residual.Int32Literal(1))
	assert.ErrorIs(t, err, residual.ErrInvalidArgument)

	_, err = intRange(1, 2).MarshalBinary()
	assert.ErrorIs(t, err, residual.ErrInvalidBinSerialization)
}

func TestCompareTyped(t *testing.T) {
	i32 := residual.PrimitiveTypes.Int32

	tests := []struct {
		name     string
		v1, v2   residual.Literal
		code     residual.OrderCode
		resolved bool
	}{
		{"points less", residual.Int32Literal(1), residual.Int32Literal(2), residual.StrictlyLess, true},
		{"points equal", residual.Int32Literal(2), residual.Int32Literal(2), residual.Equal, true},
		{"points greater", residual.Int32Literal(3), residual.Int32Literal(2), residual.StrictlyGreater, true},
		{"point below range", residual.Int32Literal(4), intRange(5, 10), residual.StrictlyLess, true},
		{"point touches range start", residual.Int32Literal(5), intRange(5, 10), residual.LessOrTouching, true},
		{"point inside range", residual.Int32Literal(7), intRange(5, 10), 0, false},
		{"point touches range end", residual.Int32Literal(10), intRange(5, 10), residual.GreaterOrTouching, true},
		{"point above range", residual.Int32Literal(11), intRange(5, 10), residual.StrictlyGreater, true},
		{"range touches point", intRange(5, 10), residual.Int32Literal(10), residual.LessOrTouching, true},
		{"ranges disjoint", intRange(1, 4), intRange(5, 10), residual.StrictlyLess, true},
		{"ranges touching", intRange(1, 5), intRange(5, 10), residual.LessOrTouching, true},
		{"ranges touching reversed", intRange(5, 10), intRange(1, 5), residual.GreaterOrTouching, true},
		{"ranges overlapping", intRange(1, 6), intRange(5, 10), 0, false},
		{"point ranges equal", intRange(5, 5), residual.Int32Literal(5), residual.Equal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok, err := residual.CompareTyped(i32, i32, tt.v1, tt.v2)
			require.NoError(t, err)
			assert.Equal(t, tt.resolved, ok)
			if tt.resolved {
				assert.Equal(t, tt.code, code, "got %s", code)
			}
		})
	}
}

func TestCompareTypedErrors(t *testing.T) {
	i32, str := residual.PrimitiveTypes.Int32, residual.PrimitiveTypes.String

	_, _, err := residual.CompareTyped(i32, str, residual.Int32Literal(1), residual.StringLiteral("a"))
	assert.ErrorIs(t, err, residual.ErrTypeMismatch)

	_, _, err = residual.CompareTyped(i32, i32, residual.Int32Literal(1), residual.StringLiteral("a"))
	assert.ErrorIs(t, err, residual.ErrTypeMismatch)

	unknown := residual.PrimitiveTypes.Unknown
	_, _, err = residual.CompareTyped(unknown, unknown, residual.Int32Literal(1), residual.Int32Literal(1))
	assert.ErrorIs(t, err, residual.ErrUnsupportedType)

	_, _, err = residual.CompareTyped(nil, i32, residual.Int32Literal(1), residual.Int32Literal(1))
	assert.ErrorIs(t, err, residual.ErrInvalidArgument)
}

func TestOrderCodeString(t *testing.T) {
	assert.Equal(t, "StrictlyLess", residual.StrictlyLess.String())
	assert.Equal(t, "Equal", residual.Equal.String())
	assert.Equal(t, "GreaterOrTouching", residual.GreaterOrTouching.String())
}
