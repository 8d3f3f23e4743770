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
	"bytes"
	"testing"

	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"
	"github.com/residualeval/residual"
	"github.com/residualeval/residual/prune"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var summaryParts = []prune.Partition{
	{
		Name:        "2024-01",
		RecordCount: 120,
		Columns: map[string]prune.ColumnStats{
			"x": bounds(residual.Int32Literal(-4), residual.Int32Literal(17), false),
			"y": bounds(residual.StringLiteral("apple"), residual.StringLiteral("pear"), true),
		},
	},
	{
		Name:        "2024-02",
		RecordCount: 3,
		Columns: map[string]prune.ColumnStats{
			"y": {ContainsNull: true, AllNull: true},
			"z": bounds(residual.Int64Literal(1<<40), residual.Int64Literal(1<<41), false),
		},
	},
}

func TestPartitionsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, prune.WritePartitions(&buf, tableSchema, summaryParts))

	s, parts, err := prune.ReadPartitions(&buf)
	require.NoError(t, err)

	assert.True(t, tableSchema.Equals(s), "got %s", s)
	assert.Equal(t, summaryParts, parts)
}

func TestPartitionsEmptyFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, prune.WritePartitions(&buf, tableSchema, nil))

	s, parts, err := prune.ReadPartitions(&buf)
	require.NoError(t, err)
	assert.True(t, tableSchema.Equals(s))
	assert.Empty(t, parts)
}

func TestPartitionsErrors(t *testing.T) {
	var buf bytes.Buffer
	err := prune.WritePartitions(&buf, tableSchema, []prune.Partition{{
		Name:        "bad",
		RecordCount: 1,
		Columns:     map[string]prune.ColumnStats{"nope": {ContainsNull: true}},
	}})
	assert.ErrorIs(t, err, residual.ErrInvalidSchema)

	_, _, err = prune.ReadPartitions(bytes.NewReader([]byte("not an avro file")))
	assert.Error(t, err)

	// an object container file without the table schema
	sc := avro.MustParse(`{"type": "record", "name": "r", "fields": [{"name": "a", "type": "int"}]}`)
	buf.Reset()
	enc, err := ocf.NewEncoderWithSchema(sc, &buf)
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	_, _, err = prune.ReadPartitions(&buf)
	assert.ErrorIs(t, err, residual.ErrInvalidSchema)
}
