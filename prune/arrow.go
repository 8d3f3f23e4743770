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

package prune

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/residualeval/residual"
)

const (
	partitionNameColumn = "partition"
	recordCountColumn   = "record_count"

	minSuffix   = "_min"
	maxSuffix   = "_max"
	nullsSuffix = "_nulls"
	countSuffix = "_null_count"
)

func columnIndex(sc *arrow.Schema, name string) int {
	if idx := sc.FieldIndices(name); len(idx) > 0 {
		return idx[0]
	}

	return -1
}

// PartitionsFromRecord reads one partition per row of an Arrow record.
// For every column c of s the record may carry c_min and c_max bound
// columns, a boolean c_nulls column and a long c_null_count column.
// A null count equal to the record count marks the column all null.
// An optional string "partition"
// column names the partitions, they are numbered otherwise, and an
// optional integer "record_count" column holds their sizes.
func PartitionsFromRecord(s *residual.Schema, rec arrow.Record) ([]Partition, error) {
	sc := rec.Schema()

	var names *array.String
	if idx := columnIndex(sc, partitionNameColumn); idx >= 0 {
		col, ok := rec.Column(idx).(*array.String)
		if !ok {
			return nil, fmt.Errorf("%w: column %s must be a string, not %s",
				residual.ErrInvalidSchema, partitionNameColumn, rec.Column(idx).DataType())
		}
		names = col
	}

	var counts *array.Int64
	if idx := columnIndex(sc, recordCountColumn); idx >= 0 {
		col, ok := rec.Column(idx).(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("%w: column %s must be a long, not %s",
				residual.ErrInvalidSchema, recordCountColumn, rec.Column(idx).DataType())
		}
		counts = col
	}

	type statColumns struct {
		field        residual.Field
		lower, upper arrow.Array
		nulls        *array.Boolean
		nullCount    *array.Int64
	}

	var stats []statColumns
	for _, f := range s.Fields() {
		cols := statColumns{field: f}
		if idx := columnIndex(sc, f.Name+minSuffix); idx >= 0 {
			cols.lower = rec.Column(idx)
		}

		if idx := columnIndex(sc, f.Name+maxSuffix); idx >= 0 {
			cols.upper = rec.Column(idx)
		}

		if idx := columnIndex(sc, f.Name+nullsSuffix); idx >= 0 {
			col, ok := rec.Column(idx).(*array.Boolean)
			if !ok {
				return nil, fmt.Errorf("%w: column %s must be a boolean, not %s",
					residual.ErrInvalidSchema, f.Name+nullsSuffix, rec.Column(idx).DataType())
			}
			cols.nulls = col
		}

		if idx := columnIndex(sc, f.Name+countSuffix); idx >= 0 {
			col, ok := rec.Column(idx).(*array.Int64)
			if !ok {
				return nil, fmt.Errorf("%w: column %s must be a long, not %s",
					residual.ErrInvalidSchema, f.Name+countSuffix, rec.Column(idx).DataType())
			}
			cols.nullCount = col
		}

		if cols.lower != nil || cols.upper != nil || cols.nulls != nil || cols.nullCount != nil {
			stats = append(stats, cols)
		}
	}

	parts := make([]Partition, rec.NumRows())
	for i := range parts {
		p := Partition{
			Name:        strconv.Itoa(i),
			RecordCount: -1,
			Columns:     make(map[string]ColumnStats, len(stats)),
		}

		if names != nil && names.IsValid(i) {
			p.Name = names.Value(i)
		}

		if counts != nil && counts.IsValid(i) {
			p.RecordCount = counts.Value(i)
		}

		for _, cols := range stats {
			var (
				st  ColumnStats
				err error
			)

			if cols.lower != nil {
				if st.Lower, err = statValue(cols.field, cols.lower, i); err != nil {
					return nil, err
				}
			}

			if cols.upper != nil {
				if st.Upper, err = statValue(cols.field, cols.upper, i); err != nil {
					return nil, err
				}
			}

			known := cols.nulls != nil && cols.nulls.IsValid(i)
			if known {
				st.ContainsNull = cols.nulls.Value(i)
			}

			if cols.nullCount != nil && cols.nullCount.IsValid(i) {
				n := cols.nullCount.Value(i)
				st.ContainsNull, known = n > 0, true
				st.AllNull = n > 0 && n == p.RecordCount
			}

			switch {
			case known:
			case !st.hasBounds():
				// nothing is known about this column here
				continue
			default:
				st.ContainsNull = true
			}

			p.Columns[cols.field.Name] = st
		}

		parts[i] = p
	}

	return parts, nil
}

func statValue(f residual.Field, arr arrow.Array, i int) (residual.Literal, error) {
	lit, err := arrowValue(arr, i)
	if err != nil || lit == nil {
		return nil, err
	}

	out, err := lit.To(f.Type)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", f.Name, err)
	}

	return out, nil
}

// arrowValue converts one cell to a literal, nil for a null cell.
func arrowValue(arr arrow.Array, i int) (residual.Literal, error) {
	if arr.IsNull(i) {
		return nil, nil
	}

	switch a := arr.(type) {
	case *array.Boolean:
		return residual.BoolLiteral(a.Value(i)), nil
	case *array.Int32:
		return residual.Int32Literal(a.Value(i)), nil
	case *array.Int64:
		return residual.Int64Literal(a.Value(i)), nil
	case *array.Float32:
		return residual.Float32Literal(a.Value(i)), nil
	case *array.Float64:
		return residual.Float64Literal(a.Value(i)), nil
	case *array.String:
		return residual.StringLiteral(a.Value(i)), nil
	case *array.LargeString:
		return residual.StringLiteral(a.Value(i)), nil
	case *array.Binary:
		return residual.BinaryLiteral(slices.Clone(a.Value(i))), nil
	case *array.FixedSizeBinary:
		return residual.BinaryLiteral(slices.Clone(a.Value(i))), nil
	case *array.Date32:
		return residual.DateLiteral(a.Value(i)), nil
	case *array.Timestamp:
		v := int64(a.Value(i))
		switch a.DataType().(*arrow.TimestampType).Unit {
		case arrow.Second:
			v *= 1_000_000
		case arrow.Millisecond:
			v *= 1_000
		case arrow.Nanosecond:
			v /= 1_000
		}

		return residual.TimestampLiteral(v), nil
	case *array.Decimal128:
		dt := a.DataType().(*arrow.Decimal128Type)

		return residual.DecimalLiteral{Val: a.Value(i), Scale: int(dt.Scale)}, nil
	}

	return nil, fmt.Errorf("%w: statistics of arrow type %s", residual.ErrUnsupportedType, arr.DataType())
}
