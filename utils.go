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
	"runtime/debug"
	"slices"
	"strings"
)

var version string

func init() {
	version = "(unknown version)"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if strings.HasPrefix(dep.Path, "github.com/residualeval/residual") {
				version = dep.Version

				break
			}
		}
	}
}

func Version() string { return version }

// Optional represents a typed value that may be absent.
type Optional[T any] struct {
	Val   T
	Valid bool
}

func Some[T any](v T) Optional[T] { return Optional[T]{Val: v, Valid: true} }

// Row is a read-only snapshot of one row's columns, indexed by schema
// position. A column whose Optional is not Valid is not yet known.
type Row interface {
	// Size returns the number of columns in this row
	Size() int
	// Get returns the value in the requested column. Positions
	// outside of [0, Size()) report an unknown value.
	Get(pos int) Optional[Literal]
}

// Record is the default Row implementation.
type Record []Optional[Literal]

// NewRecord builds a Record from literal values, a nil value marks an
// unknown column.
func NewRecord(vals ...Literal) Record {
	out := make(Record, len(vals))
	for i, v := range vals {
		if v != nil {
			out[i] = Some(v)
		}
	}

	return out
}

// UnknownRecord returns a Record of n columns, none of them known.
func UnknownRecord(n int) Record { return make(Record, n) }

func (r Record) Size() int { return len(r) }

func (r Record) Get(pos int) Optional[Literal] {
	if pos < 0 || pos >= len(r) {
		return Optional[Literal]{}
	}

	return r[pos]
}

func (r Record) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range r {
		if i > 0 {
			b.WriteString(", ")
		}

		if v.Valid {
			b.WriteString(v.Val.String())
		} else {
			b.WriteByte('?')
		}
	}
	b.WriteByte(')')

	return b.String()
}

type Set[E any] interface {
	Add(...E)
	Contains(E) bool
	Members() []E
	Equals(Set[E]) bool
	Len() int
	All(func(E) bool) bool
}

// literalSet keys members by type and binary form so that byte slice
// backed literals can be members too.
type literalSet map[string]Literal

func literalKey(v Literal) string {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Sprintf("%s\x00%s", v.Type(), v)
	}

	return v.Type().Type() + "\x00" + string(data)
}

// NewLiteralSet constructs a set of literals. Duplicate values are
// kept once.
func NewLiteralSet(vals ...Literal) Set[Literal] {
	s := literalSet{}
	s.Add(vals...)

	return s
}

func (l literalSet) Add(lits ...Literal) {
	for _, v := range lits {
		l[literalKey(v)] = v
	}
}

func (l literalSet) Contains(lit Literal) bool {
	v, ok := l[literalKey(lit)]

	return ok && v.Equals(lit)
}

// Members returns the set's values in a deterministic order.
func (l literalSet) Members() []Literal {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]Literal, len(keys))
	for i, k := range keys {
		out[i] = l[k]
	}

	return out
}

func (l literalSet) Equals(other Set[Literal]) bool {
	if other == nil || l.Len() != other.Len() {
		return false
	}

	return l.All(other.Contains)
}

func (l literalSet) Len() int { return len(l) }

func (l literalSet) All(fn func(Literal) bool) bool {
	for _, v := range l {
		if !fn(v) {
			return false
		}
	}

	return true
}
