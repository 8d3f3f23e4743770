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
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Field is a single typed column of a Schema.
type Field struct {
	Name     string
	Type     Type
	Required bool
	Doc      string
}

func optOrReq(required bool) string {
	if required {
		return "required"
	}

	return "optional"
}

func (f Field) String() string {
	var doc string
	if f.Doc != "" {
		doc = " (" + f.Doc + ")"
	}

	return fmt.Sprintf("%s: %s %s%s", f.Name, optOrReq(f.Required), f.Type, doc)
}

func (f Field) Equals(other Field) bool {
	return f.Name == other.Name && f.Required == other.Required &&
		f.Doc == other.Doc && f.Type.Equals(other.Type)
}

func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string    `json:"name"`
		Type     typeIFace `json:"type"`
		Required bool      `json:"required"`
		Doc      string    `json:"doc,omitempty"`
	}{f.Name, typeIFace{f.Type}, f.Required, f.Doc})
}

func (f *Field) UnmarshalJSON(b []byte) error {
	aux := struct {
		Name     string    `json:"name"`
		Type     typeIFace `json:"type"`
		Required bool      `json:"required"`
		Doc      string    `json:"doc"`
	}{}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	if aux.Name == "" {
		return fmt.Errorf("%w: field without a name", ErrInvalidSchema)
	}

	if aux.Type.Type == nil {
		return fmt.Errorf("%w: field %s has no type", ErrInvalidSchema, aux.Name)
	}

	*f = Field{Name: aux.Name, Type: aux.Type.Type, Required: aux.Required, Doc: aux.Doc}

	return nil
}

// Schema is an ordered sequence of typed columns. Columns are bound to
// their position in the schema, which is also their position in a Row.
// A Schema is immutable once constructed.
type Schema struct {
	fields []Field

	nameToPos      func() map[string]int
	nameToPosLower func() map[string]int
}

// NewSchema constructs a schema from the given fields. Field names must
// be unique.
func NewSchema(fields ...Field) (*Schema, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" || f.Type == nil {
			return nil, fmt.Errorf("%w: field must have a name and a type", ErrInvalidSchema)
		}

		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field name %s", ErrInvalidSchema, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	s := &Schema{fields: slices.Clone(fields)}
	s.init()

	return s, nil
}

// MustSchema is NewSchema that panics on error.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}

	return s
}

func (s *Schema) init() {
	s.nameToPos = sync.OnceValue(func() map[string]int {
		idx := make(map[string]int, len(s.fields))
		for i, f := range s.fields {
			idx[f.Name] = i
		}

		return idx
	})
	s.nameToPosLower = sync.OnceValue(func() map[string]int {
		idx := make(map[string]int, len(s.fields))
		for i, f := range s.fields {
			// first match wins when names only differ by case
			if _, ok := idx[strings.ToLower(f.Name)]; !ok {
				idx[strings.ToLower(f.Name)] = i
			}
		}

		return idx
	})
}

func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString("schema {")
	for _, f := range s.fields {
		b.WriteString("\n\t")
		b.WriteString(f.String())
	}
	b.WriteString("\n}")

	return b.String()
}

func (s *Schema) NumFields() int    { return len(s.fields) }
func (s *Schema) Field(i int) Field { return s.fields[i] }
func (s *Schema) Fields() []Field   { return slices.Clone(s.fields) }

// FindFieldByName returns the field identified by the name given along
// with its position. The search is case sensitive.
func (s *Schema) FindFieldByName(name string) (Field, int, bool) {
	pos, ok := s.nameToPos()[name]
	if !ok {
		return Field{}, -1, false
	}

	return s.fields[pos], pos, true
}

// FindFieldByNameCaseInsensitive is like [*Schema.FindFieldByName],
// but performs a case insensitive search.
func (s *Schema) FindFieldByNameCaseInsensitive(name string) (Field, int, bool) {
	pos, ok := s.nameToPosLower()[strings.ToLower(name)]
	if !ok {
		return Field{}, -1, false
	}

	return s.fields[pos], pos, true
}

func (s *Schema) findField(name string, caseSensitive bool) (Field, int, bool) {
	if caseSensitive {
		return s.FindFieldByName(name)
	}

	return s.FindFieldByNameCaseInsensitive(name)
}

func (s *Schema) Equals(other *Schema) bool {
	if other == nil {
		return false
	}

	if s == other {
		return true
	}

	return slices.EqualFunc(s.fields, other.fields, Field.Equals)
}

// Select creates a new schema with just the named fields, kept in
// their original schema order. An error is returned if a requested name
// cannot be found.
func (s *Schema) Select(caseSensitive bool, names ...string) (*Schema, error) {
	keep := make([]bool, len(s.fields))
	for _, n := range names {
		_, pos, ok := s.findField(n, caseSensitive)
		if !ok {
			return nil, fmt.Errorf("%w: could not find column %s", ErrInvalidSchema, n)
		}
		keep[pos] = true
	}

	out := make([]Field, 0, len(names))
	for i, f := range s.fields {
		if keep[i] {
			out = append(out, f)
		}
	}

	return NewSchema(out...)
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	fields := s.fields
	if fields == nil {
		fields = []Field{}
	}

	return json.Marshal(struct {
		Fields []Field `json:"fields"`
	}{fields})
}

func (s *Schema) UnmarshalJSON(b []byte) error {
	aux := struct {
		Fields []Field `json:"fields"`
	}{}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	parsed, err := NewSchema(aux.Fields...)
	if err != nil {
		return err
	}

	s.fields = parsed.fields
	s.init()

	return nil
}
