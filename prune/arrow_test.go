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

package prune_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/residualeval/residual"
	"github.com/residualeval/residual/prune"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionsFromRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	sc := arrow.NewSchema([]arrow.Field{
		{Name: "partition", Type: arrow.BinaryTypes.String},
		{Name: "record_count", Type: arrow.PrimitiveTypes.Int64},
		{Name: "x_min", Type: arrow.PrimitiveTypes.Int32},
		{Name: "x_max", Type: arrow.PrimitiveTypes.Int32},
		{Name: "y_nulls", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "z_min", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "z_max", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "y_null_count", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)

	bldr := array.NewRecordBuilder(mem, sc)
	defer bldr.Release()

	bldr.Field(0).(*array.StringBuilder).AppendValues([]string{"a", "b"}, nil)
	bldr.Field(1).(*array.Int64Builder).AppendValues([]int64{10, 0}, nil)
	bldr.Field(2).(*array.Int32Builder).AppendValues([]int32{1, 7}, nil)
	bldr.Field(3).(*array.Int32Builder).AppendValues([]int32{5, 9}, nil)
	bldr.Field(4).(*array.BooleanBuilder).AppendValues([]bool{true, false}, []bool{true, false})
	bldr.Field(5).(*array.Int32Builder).AppendValues([]int32{2, 0}, []bool{true, false})
	bldr.Field(6).(*array.Int32Builder).AppendValues([]int32{3, 0}, []bool{true, false})
	bldr.Field(7).(*array.Int64Builder).AppendValues([]int64{10, 0}, []bool{true, false})

	rec := bldr.NewRecord()
	defer rec.Release()

	parts, err := prune.PartitionsFromRecord(tableSchema, rec)
	require.NoError(t, err)

	assert.Equal(t, []prune.Partition{
		{
			Name:        "a",
			RecordCount: 10,
			Columns: map[string]prune.ColumnStats{
				"x": bounds(residual.Int32Literal(1), residual.Int32Literal(5), true),
				"y": {ContainsNull: true, AllNull: true},
				"z": bounds(residual.Int64Literal(2), residual.Int64Literal(3), true),
			},
		},
		{
			Name:        "b",
			RecordCount: 0,
			Columns: map[string]prune.ColumnStats{
				"x": bounds(residual.Int32Literal(7), residual.Int32Literal(9), true),
			},
		},
	}, parts)
}

func TestPartitionsFromRecordTypes(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := residual.MustSchema(
		residual.Field{Name: "ts", Type: residual.PrimitiveTypes.Timestamp},
		residual.Field{Name: "d", Type: residual.DecimalTypeOf(9, 2)},
		residual.Field{Name: "day", Type: residual.PrimitiveTypes.Date},
	)

	sc := arrow.NewSchema([]arrow.Field{
		{Name: "ts_min", Type: &arrow.TimestampType{Unit: arrow.Millisecond}},
		{Name: "ts_max", Type: &arrow.TimestampType{Unit: arrow.Nanosecond}},
		{Name: "d_min", Type: &arrow.Decimal128Type{Precision: 9, Scale: 2}},
		{Name: "d_max", Type: &arrow.Decimal128Type{Precision: 9, Scale: 2}},
		{Name: "day_min", Type: arrow.FixedWidthTypes.Date32},
		{Name: "day_max", Type: arrow.FixedWidthTypes.Date32},
		{Name: "day_nulls", Type: arrow.FixedWidthTypes.Boolean},
	}, nil)

	bldr := array.NewRecordBuilder(mem, sc)
	defer bldr.Release()

	bldr.Field(0).(*array.TimestampBuilder).Append(arrow.Timestamp(1704067200000))
	bldr.Field(1).(*array.TimestampBuilder).Append(arrow.Timestamp(1704067200001000000))
	bldr.Field(2).(*array.Decimal128Builder).Append(decimal128.FromI64(-125))
	bldr.Field(3).(*array.Decimal128Builder).Append(decimal128.FromI64(990))
	bldr.Field(4).(*array.Date32Builder).Append(arrow.Date32(19723))
	bldr.Field(5).(*array.Date32Builder).Append(arrow.Date32(19724))
	bldr.Field(6).(*array.BooleanBuilder).Append(false)

	rec := bldr.NewRecord()
	defer rec.Release()

	parts, err := prune.PartitionsFromRecord(schema, rec)
	require.NoError(t, err)
	require.Len(t, parts, 1)

	p := parts[0]
	assert.Equal(t, "0", p.Name)
	assert.EqualValues(t, -1, p.RecordCount)
	assert.Equal(t, bounds(residual.TimestampLiteral(1704067200000000), residual.TimestampLiteral(1704067200001000), true),
		p.Columns["ts"])
	assert.Equal(t, bounds(residual.DecimalLiteral{Val: decimal128.FromI64(-125), Scale: 2},
		residual.DecimalLiteral{Val: decimal128.FromI64(990), Scale: 2}, true), p.Columns["d"])
	assert.Equal(t, bounds(residual.DateLiteral(19723), residual.DateLiteral(19724), false), p.Columns["day"])
}

func TestPartitionsFromRecordErrors(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	build := func(fields ...arrow.Field) arrow.Record {
		bldr := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
		defer bldr.Release()

		for i := range fields {
			bldr.Field(i).AppendEmptyValue()
		}

		return bldr.NewRecord()
	}

	tests := []struct {
		name  string
		field arrow.Field
		err   error
	}{
		{"unsupported bound", arrow.Field{Name: "x_min", Type: arrow.PrimitiveTypes.Uint8}, residual.ErrUnsupportedType},
		{"mistyped nulls", arrow.Field{Name: "x_nulls", Type: arrow.PrimitiveTypes.Int32}, residual.ErrInvalidSchema},
		{"mistyped null count", arrow.Field{Name: "y_null_count", Type: arrow.FixedWidthTypes.Boolean}, residual.ErrInvalidSchema},
		{"mistyped name", arrow.Field{Name: "partition", Type: arrow.PrimitiveTypes.Int32}, residual.ErrInvalidSchema},
		{"mistyped count", arrow.Field{Name: "record_count", Type: arrow.BinaryTypes.String}, residual.ErrInvalidSchema},
		{"uncastable bound", arrow.Field{Name: "x_max", Type: arrow.BinaryTypes.String}, residual.ErrBadCast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := build(tt.field)
			defer rec.Release()

			_, err := prune.PartitionsFromRecord(tableSchema, rec)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
