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
	"bytes"
	"cmp"
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/google/uuid"
)

// LiteralType is the set of Go types backing a Literal value.
type LiteralType interface {
	bool | int32 | int64 | float32 | float64 | Date |
		Timestamp | string | []byte | uuid.UUID | Decimal
}

// Comparator is a comparison function for specific literal types:
//
//	returns 0 if v1 == v2
//	returns <0 if v1 < v2
//	returns >0 if v1 > v2
type Comparator[T LiteralType] func(v1, v2 T) int

// Literal is a non-null value. It can be cast to another type with To
// and checked for equality against other literals.
type Literal interface {
	fmt.Stringer
	encoding.BinaryMarshaler

	Any() any
	Type() Type
	To(Type) (Literal, error)
	Equals(Literal) bool
}

// TypedLiteral exposes the physical value of a Literal along with the
// comparator for its type.
type TypedLiteral[T LiteralType] interface {
	Literal

	Value() T
	Comparator() Comparator[T]
}

// NewLiteral provides a literal based on the type of T
func NewLiteral[T LiteralType](val T) Literal {
	switch v := any(val).(type) {
	case bool:
		return BoolLiteral(v)
	case int32:
		return Int32Literal(v)
	case int64:
		return Int64Literal(v)
	case float32:
		return Float32Literal(v)
	case float64:
		return Float64Literal(v)
	case Date:
		return DateLiteral(v)
	case Timestamp:
		return TimestampLiteral(v)
	case string:
		return StringLiteral(v)
	case []byte:
		return BinaryLiteral(v)
	case uuid.UUID:
		return UUIDLiteral(v)
	case Decimal:
		return DecimalLiteral(v)
	}
	panic("can't happen due to literal type constraint")
}

// LiteralFromBytes decodes a value of the given type from its binary
// form, the same encoding MarshalBinary produces. It is used to read
// lower and upper bounds out of partition statistics.
func LiteralFromBytes(typ Type, data []byte) (Literal, error) {
	if data == nil {
		return nil, ErrInvalidBinSerialization
	}

	var lit interface {
		Literal
		encoding.BinaryUnmarshaler
	}

	switch t := typ.(type) {
	case BooleanType:
		lit = new(BoolLiteral)
	case Int32Type:
		lit = new(Int32Literal)
	case Int64Type:
		lit = new(Int64Literal)
	case Float32Type:
		lit = new(Float32Literal)
	case Float64Type:
		lit = new(Float64Literal)
	case DateType:
		lit = new(DateLiteral)
	case TimestampType, TimestampTzType:
		lit = new(TimestampLiteral)
	case StringType:
		lit = new(StringLiteral)
	case BinaryType:
		lit = new(BinaryLiteral)
	case UUIDType:
		lit = new(UUIDLiteral)
	case DecimalType:
		lit = &DecimalLiteral{Scale: t.scale}
	default:
		return nil, fmt.Errorf("%w: no binary form for %s", ErrUnsupportedType, typ)
	}

	if err := lit.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	// dereference so callers get the value type back
	switch v := lit.(type) {
	case *BoolLiteral:
		return *v, nil
	case *Int32Literal:
		return *v, nil
	case *Int64Literal:
		return *v, nil
	case *Float32Literal:
		return *v, nil
	case *Float64Literal:
		return *v, nil
	case *DateLiteral:
		return *v, nil
	case *TimestampLiteral:
		return *v, nil
	case *StringLiteral:
		return *v, nil
	case *BinaryLiteral:
		return *v, nil
	case *UUIDLiteral:
		return *v, nil
	case *DecimalLiteral:
		return *v, nil
	}

	return nil, ErrInternalInvariant
}

func typedCompare[T LiteralType](lhs TypedLiteral[T], rhs Literal) (int, error) {
	r, ok := rhs.(TypedLiteral[T])
	if !ok {
		return 0, fmt.Errorf("%w: cannot compare %s with %s",
			ErrTypeMismatch, lhs.Type(), rhs.Type())
	}

	return lhs.Comparator()(lhs.Value(), r.Value()), nil
}

// compareLiterals orders two literals backed by the same Go type.
func compareLiterals(lhs, rhs Literal) (int, error) {
	switch l := lhs.(type) {
	case BoolLiteral:
		return typedCompare[bool](l, rhs)
	case Int32Literal:
		return typedCompare[int32](l, rhs)
	case Int64Literal:
		return typedCompare[int64](l, rhs)
	case Float32Literal:
		return typedCompare[float32](l, rhs)
	case Float64Literal:
		return typedCompare[float64](l, rhs)
	case DateLiteral:
		return typedCompare[Date](l, rhs)
	case TimestampLiteral:
		return typedCompare[Timestamp](l, rhs)
	case StringLiteral:
		return typedCompare[string](l, rhs)
	case BinaryLiteral:
		return typedCompare[[]byte](l, rhs)
	case UUIDLiteral:
		return typedCompare[uuid.UUID](l, rhs)
	case DecimalLiteral:
		return typedCompare[Decimal](l, rhs)
	}

	return 0, fmt.Errorf("%w: no order for literal %s", ErrUnsupportedType, lhs)
}

func literalEq[L interface {
	comparable
	LiteralType
}, T TypedLiteral[L]](lhs T, other Literal) bool {
	rhs, ok := other.(T)
	if !ok {
		return false
	}

	return lhs.Value() == rhs.Value()
}

func toDecimal(v int64, t DecimalType) (Literal, error) {
	unscaled := decimal128.FromI64(v)
	if t.scale == 0 {
		return DecimalLiteral{Val: unscaled}, nil
	}

	out, err := unscaled.Rescale(0, int32(t.scale))
	if err != nil {
		return nil, fmt.Errorf("%w: %d to %s: %s", ErrBadCast, v, t, err.Error())
	}

	return DecimalLiteral{Val: out, Scale: t.scale}, nil
}

type BoolLiteral bool

func (BoolLiteral) Comparator() Comparator[bool] {
	return func(v1, v2 bool) int {
		switch {
		case v1 == v2:
			return 0
		case v1:
			return 1
		default:
			return -1
		}
	}
}

func (b BoolLiteral) Any() any       { return b.Value() }
func (b BoolLiteral) Type() Type     { return PrimitiveTypes.Bool }
func (b BoolLiteral) Value() bool    { return bool(b) }
func (b BoolLiteral) String() string { return strconv.FormatBool(bool(b)) }
func (b BoolLiteral) To(t Type) (Literal, error) {
	if _, ok := t.(BooleanType); ok {
		return b, nil
	}

	return nil, fmt.Errorf("%w: BoolLiteral to %s", ErrBadCast, t)
}

func (b BoolLiteral) Equals(l Literal) bool { return literalEq(b, l) }

func (b BoolLiteral) MarshalBinary() ([]byte, error) {
	if b {
		return []byte{0x1}, nil
	}

	return []byte{0x0}, nil
}

func (b *BoolLiteral) UnmarshalBinary(data []byte) error {
	// anything non-zero is true
	if len(data) < 1 {
		return fmt.Errorf("%w: expected at least 1 byte for bool", ErrInvalidBinSerialization)
	}
	*b = data[0] != 0

	return nil
}

type Int32Literal int32

func (Int32Literal) Comparator() Comparator[int32] { return cmp.Compare[int32] }
func (i Int32Literal) Type() Type                  { return PrimitiveTypes.Int32 }
func (i Int32Literal) Value() int32                { return int32(i) }
func (i Int32Literal) Any() any                    { return i.Value() }
func (i Int32Literal) String() string              { return strconv.FormatInt(int64(i), 10) }
func (i Int32Literal) To(t Type) (Literal, error) {
	switch t := t.(type) {
	case Int32Type:
		return i, nil
	case Int64Type:
		return Int64Literal(i), nil
	case Float32Type:
		return Float32Literal(i), nil
	case Float64Type:
		return Float64Literal(i), nil
	case DateType:
		return DateLiteral(i), nil
	case TimestampType, TimestampTzType:
		return TimestampLiteral(i), nil
	case DecimalType:
		return toDecimal(int64(i), t)
	}

	return nil, fmt.Errorf("%w: Int32Literal to %s", ErrBadCast, t)
}

func (i Int32Literal) Equals(other Literal) bool { return literalEq(i, other) }

func (i Int32Literal) MarshalBinary() ([]byte, error) {
	// 4 bytes little endian
	return binary.LittleEndian.AppendUint32(nil, uint32(i)), nil
}

func (i *Int32Literal) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("%w: expected 4 bytes for int32 value, got %d",
			ErrInvalidBinSerialization, len(data))
	}
	*i = Int32Literal(binary.LittleEndian.Uint32(data))

	return nil
}

type Int64Literal int64

func (Int64Literal) Comparator() Comparator[int64] { return cmp.Compare[int64] }
func (i Int64Literal) Type() Type                  { return PrimitiveTypes.Int64 }
func (i Int64Literal) Value() int64                { return int64(i) }
func (i Int64Literal) Any() any                    { return i.Value() }
func (i Int64Literal) String() string              { return strconv.FormatInt(int64(i), 10) }
func (i Int64Literal) To(t Type) (Literal, error) {
	switch t := t.(type) {
	case Int32Type:
		if i > math.MaxInt32 || i < math.MinInt32 {
			return nil, fmt.Errorf("%w: %d overflows int", ErrBadCast, i)
		}

		return Int32Literal(i), nil
	case Int64Type:
		return i, nil
	case Float32Type:
		return Float32Literal(i), nil
	case Float64Type:
		return Float64Literal(i), nil
	case DateType:
		if i > math.MaxInt32 || i < math.MinInt32 {
			return nil, fmt.Errorf("%w: %d overflows date", ErrBadCast, i)
		}

		return DateLiteral(i), nil
	case TimestampType, TimestampTzType:
		return TimestampLiteral(i), nil
	case DecimalType:
		return toDecimal(int64(i), t)
	}

	return nil, fmt.Errorf("%w: Int64Literal to %s", ErrBadCast, t)
}

func (i Int64Literal) Equals(other Literal) bool { return literalEq(i, other) }

func (i Int64Literal) MarshalBinary() ([]byte, error) {
	// 8 bytes little endian
	return binary.LittleEndian.AppendUint64(nil, uint64(i)), nil
}

func (i *Int64Literal) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("%w: expected 8 bytes for int64 value, got %d",
			ErrInvalidBinSerialization, len(data))
	}
	*i = Int64Literal(binary.LittleEndian.Uint64(data))

	return nil
}

type Float32Literal float32

func (Float32Literal) Comparator() Comparator[float32] { return cmp.Compare[float32] }
func (f Float32Literal) Type() Type                    { return PrimitiveTypes.Float32 }
func (f Float32Literal) Value() float32                { return float32(f) }
func (f Float32Literal) Any() any                      { return f.Value() }
func (f Float32Literal) String() string                { return strconv.FormatFloat(float64(f), 'g', -1, 32) }
func (f Float32Literal) To(t Type) (Literal, error) {
	switch t := t.(type) {
	case Float32Type:
		return f, nil
	case Float64Type:
		return Float64Literal(f), nil
	case DecimalType:
		v, err := decimal128.FromFloat32(float32(f), int32(t.precision), int32(t.scale))
		if err != nil {
			return nil, errors.Join(ErrBadCast, err)
		}

		return DecimalLiteral{Val: v, Scale: t.scale}, nil
	}

	return nil, fmt.Errorf("%w: Float32Literal to %s", ErrBadCast, t)
}

func (f Float32Literal) Equals(other Literal) bool { return literalEq(f, other) }

func (f Float32Literal) MarshalBinary() ([]byte, error) {
	return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(f))), nil
}

func (f *Float32Literal) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("%w: expected 4 bytes for float32 value, got %d",
			ErrInvalidBinSerialization, len(data))
	}
	*f = Float32Literal(math.Float32frombits(binary.LittleEndian.Uint32(data)))

	return nil
}

type Float64Literal float64

func (Float64Literal) Comparator() Comparator[float64] { return cmp.Compare[float64] }
func (f Float64Literal) Type() Type                    { return PrimitiveTypes.Float64 }
func (f Float64Literal) Value() float64                { return float64(f) }
func (f Float64Literal) Any() any                      { return f.Value() }
func (f Float64Literal) String() string                { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (f Float64Literal) To(t Type) (Literal, error) {
	switch t := t.(type) {
	case Float32Type:
		if math.Abs(float64(f)) > math.MaxFloat32 {
			return nil, fmt.Errorf("%w: %v overflows float", ErrBadCast, f)
		}

		return Float32Literal(f), nil
	case Float64Type:
		return f, nil
	case DecimalType:
		v, err := decimal128.FromFloat64(float64(f), int32(t.precision), int32(t.scale))
		if err != nil {
			return nil, errors.Join(ErrBadCast, err)
		}

		return DecimalLiteral{Val: v, Scale: t.scale}, nil
	}

	return nil, fmt.Errorf("%w: Float64Literal to %s", ErrBadCast, t)
}

func (f Float64Literal) Equals(other Literal) bool { return literalEq(f, other) }

func (f Float64Literal) MarshalBinary() ([]byte, error) {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(float64(f))), nil
}

func (f *Float64Literal) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("%w: expected 8 bytes for float64 value, got %d",
			ErrInvalidBinSerialization, len(data))
	}
	*f = Float64Literal(math.Float64frombits(binary.LittleEndian.Uint64(data)))

	return nil
}

type DateLiteral Date

func (DateLiteral) Comparator() Comparator[Date] { return cmp.Compare[Date] }
func (d DateLiteral) Type() Type                 { return PrimitiveTypes.Date }
func (d DateLiteral) Value() Date                { return Date(d) }
func (d DateLiteral) Any() any                   { return d.Value() }
func (d DateLiteral) String() string             { return Date(d).ToTime().Format("2006-01-02") }
func (d DateLiteral) To(t Type) (Literal, error) {
	switch t.(type) {
	case DateType:
		return d, nil
	case TimestampType, TimestampTzType:
		return TimestampLiteral(Date(d).ToTime().UnixMicro()), nil
	}

	return nil, fmt.Errorf("%w: DateLiteral to %s", ErrBadCast, t)
}

func (d DateLiteral) Equals(other Literal) bool { return literalEq(d, other) }

func (d DateLiteral) MarshalBinary() ([]byte, error) {
	return binary.LittleEndian.AppendUint32(nil, uint32(d)), nil
}

func (d *DateLiteral) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("%w: expected 4 bytes for date value, got %d",
			ErrInvalidBinSerialization, len(data))
	}
	*d = DateLiteral(binary.LittleEndian.Uint32(data))

	return nil
}

// TimestampLiteral holds microseconds since the epoch. It backs both
// timestamp and timestamptz columns.
type TimestampLiteral Timestamp

func (TimestampLiteral) Comparator() Comparator[Timestamp] { return cmp.Compare[Timestamp] }
func (t TimestampLiteral) Type() Type                      { return PrimitiveTypes.Timestamp }
func (t TimestampLiteral) Value() Timestamp                { return Timestamp(t) }
func (t TimestampLiteral) Any() any                        { return t.Value() }
func (t TimestampLiteral) String() string {
	return Timestamp(t).ToTime().Format("2006-01-02 15:04:05.000000")
}

func (t TimestampLiteral) To(typ Type) (Literal, error) {
	switch typ.(type) {
	case TimestampType, TimestampTzType:
		return t, nil
	case DateType:
		return DateLiteral(Timestamp(t).ToDate()), nil
	}

	return nil, fmt.Errorf("%w: TimestampLiteral to %s", ErrBadCast, typ)
}

func (t TimestampLiteral) Equals(other Literal) bool { return literalEq(t, other) }

func (t TimestampLiteral) MarshalBinary() ([]byte, error) {
	return binary.LittleEndian.AppendUint64(nil, uint64(t)), nil
}

func (t *TimestampLiteral) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("%w: expected 8 bytes for timestamp value, got %d",
			ErrInvalidBinSerialization, len(data))
	}
	*t = TimestampLiteral(binary.LittleEndian.Uint64(data))

	return nil
}

type StringLiteral string

func (StringLiteral) Comparator() Comparator[string] { return cmp.Compare[string] }
func (s StringLiteral) Type() Type                   { return PrimitiveTypes.String }
func (s StringLiteral) Value() string                { return string(s) }
func (s StringLiteral) Any() any                     { return s.Value() }
func (s StringLiteral) String() string               { return string(s) }

// To parses the string into the requested type. Dates use the form
// 2006-01-02, timestamps RFC3339 without a zone, and timestamptz
// RFC3339 with one.
func (s StringLiteral) To(typ Type) (Literal, error) {
	castErr := func(err error) error {
		return fmt.Errorf("%w: casting '%s' to %s - %s", ErrBadCast, s, typ, err.Error())
	}

	switch t := typ.(type) {
	case StringType:
		return s, nil
	case Int32Type:
		n, err := strconv.ParseInt(string(s), 10, 32)
		if err != nil {
			return nil, castErr(err)
		}

		return Int32Literal(n), nil
	case Int64Type:
		n, err := strconv.ParseInt(string(s), 10, 64)
		if err != nil {
			return nil, castErr(err)
		}

		return Int64Literal(n), nil
	case Float32Type:
		n, err := strconv.ParseFloat(string(s), 32)
		if err != nil {
			return nil, castErr(err)
		}

		return Float32Literal(n), nil
	case Float64Type:
		n, err := strconv.ParseFloat(string(s), 64)
		if err != nil {
			return nil, castErr(err)
		}

		return Float64Literal(n), nil
	case BooleanType:
		v, err := strconv.ParseBool(string(s))
		if err != nil {
			return nil, castErr(err)
		}

		return BoolLiteral(v), nil
	case DateType:
		tm, err := time.Parse("2006-01-02", string(s))
		if err != nil {
			return nil, castErr(err)
		}

		return DateLiteral(tm.Unix() / int64((24 * time.Hour).Seconds())), nil
	case TimestampType:
		tm, err := time.Parse("2006-01-02T15:04:05.999999", string(s))
		if err != nil {
			return nil, castErr(err)
		}

		return TimestampLiteral(tm.UTC().UnixMicro()), nil
	case TimestampTzType:
		tm, err := time.Parse(time.RFC3339Nano, string(s))
		if err != nil {
			return nil, castErr(err)
		}

		return TimestampLiteral(tm.UTC().UnixMicro()), nil
	case UUIDType:
		v, err := uuid.Parse(string(s))
		if err != nil {
			return nil, castErr(err)
		}

		return UUIDLiteral(v), nil
	case DecimalType:
		n, err := decimal128.FromString(string(s), int32(t.precision), int32(t.scale))
		if err != nil {
			return nil, castErr(err)
		}

		return DecimalLiteral{Val: n, Scale: t.scale}, nil
	case BinaryType:
		return BinaryLiteral(s), nil
	}

	return nil, fmt.Errorf("%w: StringLiteral to %s", ErrBadCast, typ)
}

func (s StringLiteral) Equals(other Literal) bool { return literalEq(s, other) }

func (s StringLiteral) MarshalBinary() ([]byte, error) {
	// UTF-8 bytes without a length prefix
	return []byte(s), nil
}

func (s *StringLiteral) UnmarshalBinary(data []byte) error {
	*s = StringLiteral(data)

	return nil
}

type BinaryLiteral []byte

func (BinaryLiteral) Comparator() Comparator[[]byte] { return bytes.Compare }
func (b BinaryLiteral) Type() Type                   { return PrimitiveTypes.Binary }
func (b BinaryLiteral) Value() []byte                { return []byte(b) }
func (b BinaryLiteral) Any() any                     { return b.Value() }
func (b BinaryLiteral) String() string               { return fmt.Sprintf("%x", []byte(b)) }
func (b BinaryLiteral) To(typ Type) (Literal, error) {
	switch typ.(type) {
	case BinaryType:
		return b, nil
	case UUIDType:
		v, err := uuid.FromBytes(b)
		if err != nil {
			return nil, errors.Join(ErrBadCast, err)
		}

		return UUIDLiteral(v), nil
	}

	return nil, fmt.Errorf("%w: BinaryLiteral to %s", ErrBadCast, typ)
}

func (b BinaryLiteral) Equals(other Literal) bool {
	rhs, ok := other.(BinaryLiteral)
	if !ok {
		return false
	}

	return bytes.Equal(b, rhs)
}

func (b BinaryLiteral) MarshalBinary() ([]byte, error) { return b, nil }

func (b *BinaryLiteral) UnmarshalBinary(data []byte) error {
	*b = BinaryLiteral(bytes.Clone(data))

	return nil
}

type UUIDLiteral uuid.UUID

func (UUIDLiteral) Comparator() Comparator[uuid.UUID] {
	return func(v1, v2 uuid.UUID) int {
		return bytes.Compare(v1[:], v2[:])
	}
}

func (UUIDLiteral) Type() Type         { return PrimitiveTypes.UUID }
func (u UUIDLiteral) Value() uuid.UUID { return uuid.UUID(u) }
func (u UUIDLiteral) Any() any         { return u.Value() }
func (u UUIDLiteral) String() string   { return uuid.UUID(u).String() }
func (u UUIDLiteral) To(typ Type) (Literal, error) {
	switch typ.(type) {
	case UUIDType:
		return u, nil
	case BinaryType:
		return BinaryLiteral(bytes.Clone(u[:])), nil
	case StringType:
		return StringLiteral(u.String()), nil
	}

	return nil, fmt.Errorf("%w: UUIDLiteral to %s", ErrBadCast, typ)
}

func (u UUIDLiteral) Equals(other Literal) bool {
	rhs, ok := other.(UUIDLiteral)
	if !ok {
		return false
	}

	return u == rhs
}

func (u UUIDLiteral) MarshalBinary() ([]byte, error) {
	return uuid.UUID(u).MarshalBinary()
}

func (u *UUIDLiteral) UnmarshalBinary(data []byte) error {
	// 16 bytes big endian
	out, err := uuid.FromBytes(data)
	if err != nil {
		return errors.Join(ErrInvalidBinSerialization, err)
	}
	*u = UUIDLiteral(out)

	return nil
}

type DecimalLiteral Decimal

func (DecimalLiteral) Comparator() Comparator[Decimal] {
	return func(v1, v2 Decimal) int {
		if v1.Scale == v2.Scale {
			return v1.Val.Cmp(v2.Val)
		}

		// compare at the wider scale so no digits are lost
		if v1.Scale < v2.Scale {
			lhs, err := v1.Val.Rescale(int32(v1.Scale), int32(v2.Scale))
			if err != nil {
				return v1.Val.Sign()
			}

			return lhs.Cmp(v2.Val)
		}

		rhs, err := v2.Val.Rescale(int32(v2.Scale), int32(v1.Scale))
		if err != nil {
			return -v2.Val.Sign()
		}

		return v1.Val.Cmp(rhs)
	}
}

func (d DecimalLiteral) Type() Type     { return DecimalTypeOf(38, d.Scale) }
func (d DecimalLiteral) Value() Decimal { return Decimal(d) }
func (d DecimalLiteral) Any() any       { return d.Value() }
func (d DecimalLiteral) String() string { return d.Val.ToString(int32(d.Scale)) }

func (d DecimalLiteral) To(t Type) (Literal, error) {
	switch t := t.(type) {
	case DecimalType:
		if d.Scale == t.scale {
			return d, nil
		}

		out, err := d.Val.Rescale(int32(d.Scale), int32(t.scale))
		if err != nil {
			return nil, fmt.Errorf("%w: %s to %s - %s", ErrBadCast, d, t, err.Error())
		}

		return DecimalLiteral{Val: out, Scale: t.scale}, nil
	case Float64Type:
		return Float64Literal(d.Val.ToFloat64(int32(d.Scale))), nil
	case Float32Type:
		return Float32Literal(d.Val.ToFloat32(int32(d.Scale))), nil
	}

	return nil, fmt.Errorf("%w: DecimalLiteral to %s", ErrBadCast, t)
}

func (d DecimalLiteral) Equals(other Literal) bool {
	rhs, ok := other.(DecimalLiteral)
	if !ok {
		return false
	}

	return d.Comparator()(Decimal(d), Decimal(rhs)) == 0
}

func (d DecimalLiteral) MarshalBinary() ([]byte, error) {
	// unscaled value as two's complement big-endian in the fewest bytes
	n := d.Val.BigInt()
	data := n.FillBytes(make([]byte, (n.BitLen()+8)/8))
	if n.Sign() < 0 {
		twosComplement(data)
	}

	return data, nil
}

func (d *DecimalLiteral) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		d.Val = decimal128.Num{}

		return nil
	}

	if int8(data[0]) >= 0 {
		d.Val = decimal128.FromBigInt(new(big.Int).SetBytes(data))

		return nil
	}

	out := bytes.Clone(data)
	twosComplement(out)
	value := new(big.Int).SetBytes(out)
	d.Val = decimal128.FromBigInt(value.Neg(value))

	return nil
}

// twosComplement negates a big-endian magnitude in place.
func twosComplement(data []byte) {
	for i, v := range data {
		data[i] = ^v
	}

	for i := len(data) - 1; i >= 0; i-- {
		data[i]++
		if data[i] != 0 {
			break
		}
	}
}
