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
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/google/uuid"
	"github.com/residualeval/residual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLiteral(t *testing.T) {
	id := uuid.MustParse("f79c3e09-677c-4d38-9a3e-3b6b8a2e3c4d")

	tests := []struct {
		lit      residual.Literal
		typ      residual.Type
		expected string
	}{
		{residual.NewLiteral(true), residual.PrimitiveTypes.Bool, "true"},
		{residual.NewLiteral(int32(-7)), residual.PrimitiveTypes.Int32, "-7"},
		{residual.NewLiteral(int64(1) << 40), residual.PrimitiveTypes.Int64, "1099511627776"},
		{residual.NewLiteral(float32(1.5)), residual.PrimitiveTypes.Float32, "1.5"},
		{residual.NewLiteral(2.25), residual.PrimitiveTypes.Float64, "2.25"},
		{residual.NewLiteral(residual.Date(19723)), residual.PrimitiveTypes.Date, "2024-01-01"},
		{residual.NewLiteral(residual.Timestamp(1704067200000000)), residual.PrimitiveTypes.Timestamp,
			"2024-01-01 00:00:00.000000"},
		{residual.NewLiteral("abc"), residual.PrimitiveTypes.String, "abc"},
		{residual.NewLiteral([]byte{0xca, 0xfe}), residual.PrimitiveTypes.Binary, "cafe"},
		{residual.NewLiteral(id), residual.PrimitiveTypes.UUID, id.String()},
		{residual.NewLiteral(residual.Decimal{Val: decimal128.FromI64(12345), Scale: 2}),
			residual.DecimalTypeOf(38, 2), "123.45"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.True(t, tt.lit.Type().Equals(tt.typ), "got type %s", tt.lit.Type())
			assert.Equal(t, tt.expected, tt.lit.String())
			assert.True(t, tt.lit.Equals(tt.lit))
		})
	}
}

func TestLiteralBinaryRoundTrip(t *testing.T) {
	tests := []struct {
		lit residual.Literal
		typ residual.Type
	}{
		{residual.BoolLiteral(true), residual.PrimitiveTypes.Bool},
		{residual.Int32Literal(-42), residual.PrimitiveTypes.Int32},
		{residual.Int64Literal(math.MaxInt64), residual.PrimitiveTypes.Int64},
		{residual.Float32Literal(3.25), residual.PrimitiveTypes.Float32},
		{residual.Float64Literal(-0.5), residual.PrimitiveTypes.Float64},
		{residual.DateLiteral(19723), residual.PrimitiveTypes.Date},
		{residual.TimestampLiteral(1704067200000001), residual.PrimitiveTypes.TimestampTz},
		{residual.StringLiteral("héllo"), residual.PrimitiveTypes.String},
		{residual.BinaryLiteral{0x00, 0x01, 0xff}, residual.PrimitiveTypes.Binary},
		{residual.UUIDLiteral(uuid.MustParse("f79c3e09-677c-4d38-9a3e-3b6b8a2e3c4d")), residual.PrimitiveTypes.UUID},
		{residual.DecimalLiteral{Val: decimal128.FromI64(-12800), Scale: 2}, residual.DecimalTypeOf(9, 2)},
		{residual.DecimalLiteral{Val: decimal128.FromI64(0), Scale: 3}, residual.DecimalTypeOf(9, 3)},
		{residual.DecimalLiteral{Val: decimal128.FromI64(128), Scale: 0}, residual.DecimalTypeOf(9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.lit.String(), func(t *testing.T) {
			data, err := tt.lit.MarshalBinary()
			require.NoError(t, err)

			out, err := residual.LiteralFromBytes(tt.typ, data)
			require.NoError(t, err)
			assert.True(t, tt.lit.Equals(out), "got %s", out)
		})
	}
}

func TestLiteralFromBytesErrors(t *testing.T) {
	_, err := residual.LiteralFromBytes(residual.PrimitiveTypes.Int32, []byte{1, 2})
	assert.ErrorIs(t, err, residual.ErrInvalidBinSerialization)

	_, err = residual.LiteralFromBytes(residual.PrimitiveTypes.Int32, nil)
	assert.ErrorIs(t, err, residual.ErrInvalidBinSerialization)

	_, err = residual.LiteralFromBytes(residual.PrimitiveTypes.Unknown, []byte{1})
	assert.ErrorIs(t, err, residual.ErrUnsupportedType)
}

func TestLiteralConversions(t *testing.T) {
	tests := []struct {
		name     string
		lit      residual.Literal
		to       residual.Type
		expected residual.Literal
	}{
		{"int to long", residual.Int32Literal(5), residual.PrimitiveTypes.Int64, residual.Int64Literal(5)},
		{"long to int", residual.Int64Literal(5), residual.PrimitiveTypes.Int32, residual.Int32Literal(5)},
		{"int to double", residual.Int32Literal(5), residual.PrimitiveTypes.Float64, residual.Float64Literal(5)},
		{"int to decimal", residual.Int32Literal(5), residual.DecimalTypeOf(9, 2),
			residual.DecimalLiteral{Val: decimal128.FromI64(500), Scale: 2}},
		{"string to int", residual.StringLiteral("12"), residual.PrimitiveTypes.Int32, residual.Int32Literal(12)},
		{"string to date", residual.StringLiteral("2024-01-01"), residual.PrimitiveTypes.Date, residual.DateLiteral(19723)},
		{"string to timestamp", residual.StringLiteral("2024-01-01T00:00:00.000001"),
			residual.PrimitiveTypes.Timestamp, residual.TimestampLiteral(1704067200000001)},
		{"string to timestamptz", residual.StringLiteral("2024-01-01T01:00:00+01:00"),
			residual.PrimitiveTypes.TimestampTz, residual.TimestampLiteral(1704067200000000)},
		{"string to bool", residual.StringLiteral("true"), residual.PrimitiveTypes.Bool, residual.BoolLiteral(true)},
		{"string to decimal", residual.StringLiteral("1.25"), residual.DecimalTypeOf(9, 2),
			residual.DecimalLiteral{Val: decimal128.FromI64(125), Scale: 2}},
		{"timestamp to date", residual.TimestampLiteral(1704067200000000 + 5), residual.PrimitiveTypes.Date,
			residual.DateLiteral(19723)},
		{"decimal rescale", residual.DecimalLiteral{Val: decimal128.FromI64(125), Scale: 2}, residual.DecimalTypeOf(9, 3),
			residual.DecimalLiteral{Val: decimal128.FromI64(1250), Scale: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.lit.To(tt.to)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equals(out), "expected %s, got %s", tt.expected, out)
		})
	}
}

func TestLiteralBadConversions(t *testing.T) {
	tests := []struct {
		name string
		lit  residual.Literal
		to   residual.Type
	}{
		{"long overflows int", residual.Int64Literal(math.MaxInt32 + 1), residual.PrimitiveTypes.Int32},
		{"long to string", residual.Int64Literal(1), residual.PrimitiveTypes.String},
		{"string to int", residual.StringLiteral("abc"), residual.PrimitiveTypes.Int32},
		{"bool to int", residual.BoolLiteral(true), residual.PrimitiveTypes.Int32},
		{"double to date", residual.Float64Literal(1), residual.PrimitiveTypes.Date},
		{"bad uuid", residual.StringLiteral("not-a-uuid"), residual.PrimitiveTypes.UUID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.lit.To(tt.to)
			assert.ErrorIs(t, err, residual.ErrBadCast)
		})
	}
}

func TestDecimalEqualityAcrossScales(t *testing.T) {
	a := residual.DecimalLiteral{Val: decimal128.FromI64(150), Scale: 2}
	b := residual.DecimalLiteral{Val: decimal128.FromI64(15), Scale: 1}
	c := residual.DecimalLiteral{Val: decimal128.FromI64(151), Scale: 2}

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.Equal(t, 0, a.Comparator()(a.Value(), b.Value()))
	assert.Equal(t, -1, b.Comparator()(b.Value(), c.Value()))
}

func TestBinaryLiteralEquality(t *testing.T) {
	assert.True(t, residual.BinaryLiteral{1, 2}.Equals(residual.BinaryLiteral{1, 2}))
	assert.False(t, residual.BinaryLiteral{1, 2}.Equals(residual.BinaryLiteral{1, 3}))
	assert.False(t, residual.BinaryLiteral{1, 2}.Equals(residual.StringLiteral("\x01\x02")))
}
