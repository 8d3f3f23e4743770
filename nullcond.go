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

// DeriveNullCondition computes a predicate over the nullness of the
// columns pred refers to which must hold for pred to be true. The
// result is built from IsNull and NotNull checks and from parts of
// pred that could not be separated from a column's nullness.
//
// The predicate is canonicalized first by binding and unbinding it,
// which folds constants and collapses double negations. Then for every
// column, in order of first appearance, the current condition is
// reduced twice over a row with no known values, once assuming the
// column is null and once assuming it is not, and the two outcomes are
// combined. A predicate without columns is returned unchanged.
func DeriveNullCondition(s *Schema, pred Expr, caseSensitive bool) (Expr, error) {
	bound, err := Bind(s, pred, caseSensitive)
	if err != nil {
		return nil, err
	}

	y, err := Unbind(bound)
	if err != nil {
		return nil, err
	}

	cols, err := Columns(y)
	if err != nil {
		return nil, err
	}

	if len(cols) == 0 {
		return pred, nil
	}

	for _, col := range cols {
		current, err := Columns(y)
		if err != nil {
			return nil, err
		}

		restricted, err := s.Select(true, current...)
		if err != nil {
			return nil, err
		}

		by, err := Bind(restricted, y, true)
		if err != nil {
			return nil, err
		}

		if y, err = Unbind(by); err != nil {
			return nil, err
		}

		row := UnknownRecord(restricted.NumFields())
		target := Reference(col)

		whenNull, err := Reduce(by, row, Mode{CheckNull: true, Target: target})
		if err != nil {
			return nil, err
		}

		whenNotNull, err := Reduce(by, row, Mode{CheckNull: false, Target: target})
		if err != nil {
			return nil, err
		}

		y = combineNullOutcomes(target, y, whenNull, whenNotNull)
	}

	return y, nil
}

// combineNullOutcomes merges the outcome assuming col is null with the
// one assuming it is not into a single condition.
func combineNullOutcomes(col Reference, y Expr, whenNull, whenNotNull Outcome) Expr {
	var (
		isNull  = IsNullExpr{child: col}
		notNull = NotNullExpr{child: col}
		name    = string(col)
	)

	switch {
	case whenNull.known && whenNotNull.known:
		switch {
		case whenNull.value && whenNotNull.value:
			return AlwaysTrue{}
		case whenNull.value:
			return isNull
		case whenNotNull.value:
			return notNull
		}

		return AlwaysFalse{}
	case whenNull.known:
		e2 := whenNotNull.residual
		if whenNull.value {
			return NewOr(isNull, e2)
		}

		if References(e2, name) {
			return e2
		}

		return NewAnd(notNull, e2)
	case whenNotNull.known:
		e1 := whenNull.residual
		if whenNotNull.value {
			if References(e1, name) {
				return notNull
			}

			return NewOr(notNull, e1)
		}

		if References(e1, name) {
			return AlwaysFalse{}
		}

		return NewAnd(isNull, e1)
	}

	e1, e2 := whenNull.residual, whenNotNull.residual
	switch {
	case sameExpr(e1, e2):
		return e1
	case sameExpr(e1, y), sameExpr(e2, y):
		return y
	}

	refs1, refs2 := References(e1, name), References(e2, name)
	switch {
	case refs1 && refs2:
		return e2
	case refs1:
		return NewAnd(notNull, e2)
	case refs2:
		return NewOr(NewAnd(isNull, e1), e2)
	}

	return NewOr(NewAnd(isNull, e1), NewAnd(notNull, e2))
}
