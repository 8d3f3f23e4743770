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
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"
	"github.com/residualeval/residual"
)

// schemaMetadataKey holds the table schema, as JSON, in the metadata
// of a partition summary file. Bounds are decoded with its types.
const schemaMetadataKey = "residual.schema"

var summarySchema = avro.MustParse(`{
	"type": "record",
	"name": "partition_summary",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "record_count", "type": "long"},
		{"name": "columns", "type": {
			"type": "array",
			"items": {
				"type": "record",
				"name": "column_summary",
				"fields": [
					{"name": "column", "type": "string"},
					{"name": "contains_null", "type": "boolean"},
					{"name": "all_null", "type": "boolean", "default": false},
					{"name": "lower_bound", "type": ["null", "bytes"], "default": null},
					{"name": "upper_bound", "type": ["null", "bytes"], "default": null}
				]
			}
		}}
	]
}`)

type columnSummary struct {
	Column       string  `avro:"column"`
	ContainsNull bool    `avro:"contains_null"`
	AllNull      bool    `avro:"all_null"`
	LowerBound   *[]byte `avro:"lower_bound"`
	UpperBound   *[]byte `avro:"upper_bound"`
}

type partitionSummary struct {
	Name        string          `avro:"name"`
	RecordCount int64           `avro:"record_count"`
	Columns     []columnSummary `avro:"columns"`
}

func encodeBound(v residual.Literal) (*[]byte, error) {
	if v == nil {
		return nil, nil
	}

	data, err := v.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return &data, nil
}

func decodeBound(f residual.Field, data *[]byte) (residual.Literal, error) {
	if data == nil {
		return nil, nil
	}

	return residual.LiteralFromBytes(f.Type, *data)
}

// WritePartitions writes partition statistics as an Avro object
// container file. Bounds are stored in their binary form and the
// schema is kept in the file metadata.
func WritePartitions(w io.Writer, s *residual.Schema, parts []Partition) error {
	schemaJSON, err := s.MarshalJSON()
	if err != nil {
		return err
	}

	enc, err := ocf.NewEncoderWithSchema(summarySchema, w,
		ocf.WithSchemaMarshaler(ocf.FullSchemaMarshaler),
		ocf.WithEncoderSchemaCache(&avro.SchemaCache{}),
		ocf.WithMetadata(map[string][]byte{schemaMetadataKey: schemaJSON}),
		ocf.WithCodec(ocf.Deflate))
	if err != nil {
		return err
	}

	for _, p := range parts {
		rec := partitionSummary{Name: p.Name, RecordCount: p.RecordCount}
		for _, col := range slices.Sorted(maps.Keys(p.Columns)) {
			if _, _, ok := s.FindFieldByName(col); !ok {
				return fmt.Errorf("%w: partition %s has statistics for unknown column %s",
					residual.ErrInvalidSchema, p.Name, col)
			}

			st := p.Columns[col]
			summary := columnSummary{Column: col, ContainsNull: st.ContainsNull, AllNull: st.AllNull}
			if summary.LowerBound, err = encodeBound(st.Lower); err != nil {
				return err
			}

			if summary.UpperBound, err = encodeBound(st.Upper); err != nil {
				return err
			}
			rec.Columns = append(rec.Columns, summary)
		}

		if err := enc.Encode(rec); err != nil {
			return err
		}
	}

	return enc.Close()
}

// ReadPartitions reads a file written by WritePartitions, returning
// the schema stored with it and the partitions in file order.
func ReadPartitions(r io.Reader) (*residual.Schema, []Partition, error) {
	dec, err := ocf.NewDecoder(r, ocf.WithDecoderSchemaCache(&avro.SchemaCache{}))
	if err != nil {
		return nil, nil, err
	}

	schemaJSON, ok := dec.Metadata()[schemaMetadataKey]
	if !ok {
		return nil, nil, fmt.Errorf("%w: partition summaries carry no schema", residual.ErrInvalidSchema)
	}

	var s residual.Schema
	if err := s.UnmarshalJSON(schemaJSON); err != nil {
		return nil, nil, err
	}

	var parts []Partition
	for dec.HasNext() {
		var rec partitionSummary
		if err := dec.Decode(&rec); err != nil {
			return nil, nil, err
		}

		p := Partition{
			Name:        rec.Name,
			RecordCount: rec.RecordCount,
			Columns:     make(map[string]ColumnStats, len(rec.Columns)),
		}

		for _, c := range rec.Columns {
			f, _, ok := s.FindFieldByName(c.Column)
			if !ok {
				return nil, nil, fmt.Errorf("%w: partition %s has statistics for unknown column %s",
					residual.ErrInvalidSchema, rec.Name, c.Column)
			}

			lower, err := decodeBound(f, c.LowerBound)
			if err != nil {
				return nil, nil, fmt.Errorf("partition %s column %s: %w", rec.Name, c.Column, err)
			}

			upper, err := decodeBound(f, c.UpperBound)
			if err != nil {
				return nil, nil, fmt.Errorf("partition %s column %s: %w", rec.Name, c.Column, err)
			}

			p.Columns[c.Column] = ColumnStats{
				Lower:        lower,
				Upper:        upper,
				ContainsNull: c.ContainsNull,
				AllNull:      c.AllNull,
			}
		}
		parts = append(parts, p)
	}

	if err := dec.Error(); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}

	return &s, parts, nil
}
