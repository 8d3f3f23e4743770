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

import "errors"

var (
	// ErrTypeMismatch is returned when two operands being compared
	// declare different types. It is never silently coerced.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrInternalInvariant signals an outcome combination the reducer
	// does not expect. It indicates a defect, not bad input.
	ErrInternalInvariant = errors.New("internal invariant violated")
	// ErrUnsupportedType is returned when a type with no order relation
	// is used in a comparison.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrResourceExhausted is returned when a predicate tree is nested
	// deeper than the configured reduction limit.
	ErrResourceExhausted = errors.New("resource exhausted")

	ErrInvalidArgument         = errors.New("invalid argument")
	ErrInvalidSchema           = errors.New("invalid schema")
	ErrInvalidTypeString       = errors.New("invalid type string")
	ErrBadCast                 = errors.New("could not cast value")
	ErrBadLiteral              = errors.New("invalid literal value")
	ErrNotImplemented          = errors.New("not implemented")
	ErrInvalidBinSerialization = errors.New("invalid binary serialization")
)
