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
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
)

var decimalRegex = regexp.MustCompile(`^decimal\(\s*(\d+)\s*,\s*(\d+)\s*\)$`)

// Type is the declared type of a column or an operand. Two operands
// may only be compared when their declared types are Equal.
type Type interface {
	fmt.Stringer
	Type() string
	Equals(Type) bool
}

// PrimitiveType is any of the scalar column types.
type PrimitiveType interface {
	Type
	primitive()
}

// OrderedType is implemented by types that define an order relation
// over their values. Comparing operands of any other type fails with
// ErrUnsupportedType.
type OrderedType interface {
	PrimitiveType
	ordered()
}

// IsOrdered reports whether values of t can be ordered.
func IsOrdered(t Type) bool {
	_, ok := t.(OrderedType)

	return ok
}

// ParseType parses the string form of a primitive type, as produced
// by Type.Type(). Decimals are written as "decimal(P, S)".
func ParseType(typename string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(typename)) {
	case "boolean", "bool":
		return PrimitiveTypes.Bool, nil
	case "int":
		return PrimitiveTypes.Int32, nil
	case "long":
		return PrimitiveTypes.Int64, nil
	case "float":
		return PrimitiveTypes.Float32, nil
	case "double":
		return PrimitiveTypes.Float64, nil
	case "date":
		return PrimitiveTypes.Date, nil
	case "timestamp":
		return PrimitiveTypes.Timestamp, nil
	case "timestamptz":
		return PrimitiveTypes.TimestampTz, nil
	case "string":
		return PrimitiveTypes.String, nil
	case "binary":
		return PrimitiveTypes.Binary, nil
	case "uuid":
		return PrimitiveTypes.UUID, nil
	case "unknown":
		return PrimitiveTypes.Unknown, nil
	}

	matches := decimalRegex.FindStringSubmatch(strings.TrimSpace(typename))
	if len(matches) != 3 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTypeString, typename)
	}

	prec, _ := strconv.Atoi(matches[1])
	scale, _ := strconv.Atoi(matches[2])
	if prec < 1 || prec > 38 || scale > prec {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTypeString, typename)
	}

	return DecimalTypeOf(prec, scale), nil
}

// typeIFace wraps a Type so it can be used as a json field.
type typeIFace struct {
	Type
}

func (t typeIFace) MarshalJSON() ([]byte, error) {
	if t.Type == nil {
		return []byte("null"), nil
	}

	return json.Marshal(t.Type.Type())
}

func (t *typeIFace) UnmarshalJSON(b []byte) error {
	var typename string
	if err := json.Unmarshal(b, &typename); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTypeString, string(b))
	}

	typ, err := ParseType(typename)
	if err != nil {
		return err
	}
	t.Type = typ

	return nil
}

type BooleanType struct{}

func (BooleanType) Equals(other Type) bool {
	_, ok := other.(BooleanType)

	return ok
}

func (BooleanType) primitive()     {}
func (BooleanType) ordered()       {}
func (BooleanType) Type() string   { return "boolean" }
func (BooleanType) String() string { return "boolean" }

// Int32Type is a 32-bit signed integer.
type Int32Type struct{}

func (Int32Type) Equals(other Type) bool {
	_, ok := other.(Int32Type)

	return ok
}

func (Int32Type) primitive()     {}
func (Int32Type) ordered()       {}
func (Int32Type) Type() string   { return "int" }
func (Int32Type) String() string { return "int" }

// Int64Type is a 64-bit signed integer.
type Int64Type struct{}

func (Int64Type) Equals(other Type) bool {
	_, ok := other.(Int64Type)

	return ok
}

func (Int64Type) primitive()     {}
func (Int64Type) ordered()       {}
func (Int64Type) Type() string   { return "long" }
func (Int64Type) String() string { return "long" }

type Float32Type struct{}

func (Float32Type) Equals(other Type) bool {
	_, ok := other.(Float32Type)

	return ok
}

func (Float32Type) primitive()     {}
func (Float32Type) ordered()       {}
func (Float32Type) Type() string   { return "float" }
func (Float32Type) String() string { return "float" }

type Float64Type struct{}

func (Float64Type) Equals(other Type) bool {
	_, ok := other.(Float64Type)

	return ok
}

func (Float64Type) primitive()     {}
func (Float64Type) ordered()       {}
func (Float64Type) Type() string   { return "double" }
func (Float64Type) String() string { return "double" }

// Date is the number of days since the unix epoch.
type Date int32

func (d Date) ToTime() time.Time {
	return time.Unix(0, 0).UTC().AddDate(0, 0, int(d))
}

type DateType struct{}

func (DateType) Equals(other Type) bool {
	_, ok := other.(DateType)

	return ok
}

func (DateType) primitive()     {}
func (DateType) ordered()       {}
func (DateType) Type() string   { return "date" }
func (DateType) String() string { return "date" }

// Timestamp is the number of microseconds since the unix epoch.
type Timestamp int64

func (t Timestamp) ToTime() time.Time {
	return time.UnixMicro(int64(t)).UTC()
}

func (t Timestamp) ToDate() Date {
	tm := t.ToTime()

	return Date(tm.Truncate(24*time.Hour).Unix() / int64((24 * time.Hour).Seconds()))
}

// TimestampType is a timestamp without a time zone.
type TimestampType struct{}

func (TimestampType) Equals(other Type) bool {
	_, ok := other.(TimestampType)

	return ok
}

func (TimestampType) primitive()     {}
func (TimestampType) ordered()       {}
func (TimestampType) Type() string   { return "timestamp" }
func (TimestampType) String() string { return "timestamp" }

// TimestampTzType is a timestamp stored as UTC.
type TimestampTzType struct{}

func (TimestampTzType) Equals(other Type) bool {
	_, ok := other.(TimestampTzType)

	return ok
}

func (TimestampTzType) primitive()     {}
func (TimestampTzType) ordered()       {}
func (TimestampTzType) Type() string   { return "timestamptz" }
func (TimestampTzType) String() string { return "timestamptz" }

type StringType struct{}

func (StringType) Equals(other Type) bool {
	_, ok := other.(StringType)

	return ok
}

func (StringType) primitive()     {}
func (StringType) ordered()       {}
func (StringType) Type() string   { return "string" }
func (StringType) String() string { return "string" }

type BinaryType struct{}

func (BinaryType) Equals(other Type) bool {
	_, ok := other.(BinaryType)

	return ok
}

func (BinaryType) primitive()     {}
func (BinaryType) ordered()       {}
func (BinaryType) Type() string   { return "binary" }
func (BinaryType) String() string { return "binary" }

type UUIDType struct{}

func (UUIDType) Equals(other Type) bool {
	_, ok := other.(UUIDType)

	return ok
}

func (UUIDType) primitive()     {}
func (UUIDType) ordered()       {}
func (UUIDType) Type() string   { return "uuid" }
func (UUIDType) String() string { return "uuid" }

func DecimalTypeOf(prec, scale int) DecimalType {
	return DecimalType{precision: prec, scale: scale}
}

// DecimalType is a fixed point decimal with a precision of at most 38.
type DecimalType struct {
	precision, scale int
}

func (d DecimalType) Equals(other Type) bool {
	rhs, ok := other.(DecimalType)
	if !ok {
		return false
	}

	return d == rhs
}

func (d DecimalType) Type() string   { return fmt.Sprintf("decimal(%d, %d)", d.precision, d.scale) }
func (d DecimalType) String() string { return fmt.Sprintf("decimal(%d, %d)", d.precision, d.scale) }
func (d DecimalType) Precision() int { return d.precision }
func (d DecimalType) Scale() int     { return d.scale }
func (DecimalType) primitive()       {}
func (DecimalType) ordered()         {}

// Decimal is an unscaled 128-bit value together with its scale.
type Decimal struct {
	Val   decimal128.Num
	Scale int
}

func (d Decimal) String() string {
	return d.Val.ToString(int32(d.Scale))
}

// UnknownType is used for columns whose type could not be determined.
// It has no order relation.
type UnknownType struct{}

func (UnknownType) Equals(other Type) bool {
	_, ok := other.(UnknownType)

	return ok
}

func (UnknownType) primitive()     {}
func (UnknownType) Type() string   { return "unknown" }
func (UnknownType) String() string { return "unknown" }

var PrimitiveTypes = struct {
	Bool        PrimitiveType
	Int32       PrimitiveType
	Int64       PrimitiveType
	Float32     PrimitiveType
	Float64     PrimitiveType
	Date        PrimitiveType
	Timestamp   PrimitiveType
	TimestampTz PrimitiveType
	String      PrimitiveType
	Binary      PrimitiveType
	UUID        PrimitiveType
	Unknown     PrimitiveType
}{
	Bool:        BooleanType{},
	Int32:       Int32Type{},
	Int64:       Int64Type{},
	Float32:     Float32Type{},
	Float64:     Float64Type{},
	Date:        DateType{},
	Timestamp:   TimestampType{},
	TimestampTz: TimestampTzType{},
	String:      StringType{},
	Binary:      BinaryType{},
	UUID:        UUIDType{},
	Unknown:     UnknownType{},
}
