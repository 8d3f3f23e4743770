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
)

// OrderCode is the result of comparing two range-capable values.
type OrderCode int

const (
	// StrictlyLess means every value of the left operand is below every
	// value of the right operand.
	StrictlyLess OrderCode = -2
	// LessOrTouching means the upper bound of the left operand equals
	// the lower bound of the right one. Equality at that boundary cannot
	// be excluded.
	LessOrTouching OrderCode = -1
	// Equal means both operands are the same single point.
	Equal OrderCode = 0
	// GreaterOrTouching mirrors LessOrTouching.
	GreaterOrTouching OrderCode = 1
	// StrictlyGreater mirrors StrictlyLess.
	StrictlyGreater OrderCode = 2
)

func (o OrderCode) String() string {
	switch o {
	case StrictlyLess:
		return "StrictlyLess"
	case LessOrTouching:
		return "LessOrTouching"
	case Equal:
		return "Equal"
	case GreaterOrTouching:
		return "GreaterOrTouching"
	case StrictlyGreater:
		return "StrictlyGreater"
	}

	return fmt.Sprintf("OrderCode(%d)", int(o))
}

// RangeLiteral is a closed interval [Lower, Upper] of values of one
// type. It is used as a row value when only the bounds of a column are
// known, such as the min/max statistics of a partition. A range whose
// bounds are equal is a single point.
type RangeLiteral struct {
	lower, upper Literal
}

// NewRange constructs a closed range. Both bounds must share a type
// and lower must not be greater than upper.
func NewRange(lower, upper Literal) (RangeLiteral, error) {
	if lower == nil || upper == nil {
		return RangeLiteral{}, fmt.Errorf("%w: range bounds must not be nil", ErrInvalidArgument)
	}

	upper, err := upper.To(lower.Type())
	if err != nil {
		return RangeLiteral{}, fmt.Errorf("%w: range bounds %s and %s differ in type",
			ErrTypeMismatch, lower.Type(), upper.Type())
	}

	c, err := compareLiterals(lower, upper)
	if err != nil {
		return RangeLiteral{}, err
	}

	if c > 0 {
		return RangeLiteral{}, fmt.Errorf("%w: range lower bound %s is above upper bound %s",
			ErrInvalidArgument, lower, upper)
	}

	return RangeLiteral{lower: lower, upper: upper}, nil
}

// MustRange is NewRange for callers with static bounds, it panics on error.
func MustRange(lower, upper Literal) RangeLiteral {
	r, err := NewRange(lower, upper)
	if err != nil {
		panic(err)
	}

	return r
}

func (r RangeLiteral) Lower() Literal { return r.lower }
func (r RangeLiteral) Upper() Literal { return r.upper }
func (r RangeLiteral) Type() Type     { return r.lower.Type() }
func (r RangeLiteral) Any() any       { return [2]any{r.lower.Any(), r.upper.Any()} }
func (r RangeLiteral) String() string { return "[" + r.lower.String() + ", " + r.upper.String() + "]" }

// IsPoint reports whether both bounds are the same value.
func (r RangeLiteral) IsPoint() bool { return r.lower.Equals(r.upper) }

func (r RangeLiteral) To(t Type) (Literal, error) {
	lo, err := r.lower.To(t)
	if err != nil {
		return nil, err
	}

	hi, err := r.upper.To(t)
	if err != nil {
		return nil, err
	}

	return RangeLiteral{lower: lo, upper: hi}, nil
}

func (r RangeLiteral) Equals(other Literal) bool {
	rhs, ok := other.(RangeLiteral)
	if !ok {
		return false
	}

	return r.lower.Equals(rhs.lower) && r.upper.Equals(rhs.upper)
}

func (RangeLiteral) MarshalBinary() ([]byte, error) {
	return nil, fmt.Errorf("%w: range literals have no binary form",
		ErrInvalidBinSerialization)
}

// bounds projects a value of type t into its closed range. A plain
// literal v becomes [v, v].
func bounds(t Type, v Literal) (lo, hi Literal, err error) {
	if v == nil {
		return nil, nil, fmt.Errorf("%w: cannot compare a missing value", ErrInvalidArgument)
	}

	switch v := v.(type) {
	case RangeLiteral:
		if lo, err = v.lower.To(t); err != nil {
			return nil, nil, fmt.Errorf("%w: %s is not a %s", ErrTypeMismatch, v, t)
		}
		if hi, err = v.upper.To(t); err != nil {
			return nil, nil, fmt.Errorf("%w: %s is not a %s", ErrTypeMismatch, v, t)
		}

		return lo, hi, nil
	default:
		if lo, err = v.To(t); err != nil {
			return nil, nil, fmt.Errorf("%w: %s is not a %s", ErrTypeMismatch, v, t)
		}

		return lo, lo, nil
	}
}

// CompareTyped compares two operands whose declared types are lt and
// rt. It fails with ErrTypeMismatch when the declared types differ and
// with ErrUnsupportedType when the type has no order. The boolean
// result is false when the operands overlap so that no order code
// holds.
func CompareTyped(lt, rt Type, v1, v2 Literal) (OrderCode, bool, error) {
	if lt == nil || rt == nil {
		return 0, false, fmt.Errorf("%w: operand without a declared type", ErrInvalidArgument)
	}

	if !lt.Equals(rt) {
		return 0, false, fmt.Errorf("%w: cannot compare %s with %s", ErrTypeMismatch, lt, rt)
	}

	if !IsOrdered(lt) {
		return 0, false, fmt.Errorf("%w: %s has no order relation", ErrUnsupportedType, lt)
	}

	lo1, hi1, err := bounds(lt, v1)
	if err != nil {
		return 0, false, err
	}

	lo2, hi2, err := bounds(lt, v2)
	if err != nil {
		return 0, false, err
	}

	c, err := compareLiterals(hi1, lo2)
	if err != nil {
		return 0, false, err
	}

	switch {
	case c < 0:
		return StrictlyLess, true, nil
	case c == 0:
		if lo1.Equals(hi1) && lo2.Equals(hi2) {
			return Equal, true, nil
		}

		return LessOrTouching, true, nil
	}

	if c, err = compareLiterals(lo1, hi2); err != nil {
		return 0, false, err
	}

	switch {
	case c > 0:
		return StrictlyGreater, true, nil
	case c == 0:
		return GreaterOrTouching, true, nil
	}

	return 0, false, nil
}
