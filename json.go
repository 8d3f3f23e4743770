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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	timestampFormat   = "2006-01-02T15:04:05.999999"
	timestampTzFormat = time.RFC3339Nano
)

var cmpOps = map[string]Operation{
	"eq":   OpEQ,
	"lt":   OpLT,
	"lteq": OpLTEQ,
	"gt":   OpGT,
	"gteq": OpGTEQ,
}

func cmpOpName(op Operation) string {
	for k, v := range cmpOps {
		if v == op {
			return k
		}
	}

	return op.String()
}

// MarshalExpr encodes an expression as JSON. Every node is an object
// with an "op" member, bound columns are written as plain references.
// Named leaves have no JSON form.
func MarshalExpr(e Expr) ([]byte, error) {
	v, err := exprToJSON(e)
	if err != nil {
		return nil, err
	}

	return json.Marshal(v)
}

func exprsToJSON(exprs []Expr) ([]any, error) {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		v, err := exprToJSON(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

func exprToJSON(e Expr) (any, error) {
	node := func(op string, kv ...any) (map[string]any, error) {
		out := map[string]any{"op": op}
		for i := 0; i < len(kv); i += 2 {
			switch v := kv[i+1].(type) {
			case Expr:
				child, err := exprToJSON(v)
				if err != nil {
					return nil, err
				}
				out[kv[i].(string)] = child
			case []Expr:
				children, err := exprsToJSON(v)
				if err != nil {
					return nil, err
				}
				out[kv[i].(string)] = children
			default:
				out[kv[i].(string)] = v
			}
		}

		return out, nil
	}

	switch e := e.(type) {
	case AlwaysTrue:
		return node("true")
	case AlwaysFalse:
		return node("false")
	case Reference:
		return node("ref", "name", string(e))
	case *BoundRef:
		return node("ref", "name", e.field.Name)
	case LiteralExpr:
		return literalExprToJSON(e)
	case NotExpr:
		return node("not", "child", e.child)
	case AndExpr:
		return node("and", "args", []Expr{e.left, e.right})
	case OrExpr:
		return node("or", "args", []Expr{e.left, e.right})
	case IsNullExpr:
		return node("is_null", "child", e.child)
	case NotNullExpr:
		return node("not_null", "child", e.child)
	case CmpExpr:
		return node(cmpOpName(e.op), "left", e.left, "right", e.right)
	case InExpr:
		return node("in", "value", e.value, "list", e.list)
	case InSetExpr:
		members := e.set.Members()
		values := make([]any, len(members))
		for i, m := range members {
			v, err := literalExprToJSON(LiteralExpr{val: m, typ: m.Type()})
			if err != nil {
				return nil, err
			}
			values[i] = v
		}

		return node("in_set", "value", e.value, "values", values)
	case IfExpr:
		return node("if", "cond", e.cond, "then", e.then, "else", e.els)
	case OpaqueExpr:
		if e.typ != nil {
			return node("call", "name", e.name, "type", e.typ.Type(), "args", e.args)
		}

		return node("call", "name", e.name, "args", e.args)
	}

	return nil, fmt.Errorf("%w: no JSON form for %s", ErrNotImplemented, e)
}

func literalExprToJSON(e LiteralExpr) (map[string]any, error) {
	out := map[string]any{"op": "literal", "type": e.typ.Type()}
	if r, ok := e.val.(RangeLiteral); ok {
		lo, err := literalToJSON(e.typ, r.lower)
		if err != nil {
			return nil, err
		}

		hi, err := literalToJSON(e.typ, r.upper)
		if err != nil {
			return nil, err
		}
		out["lower"], out["upper"] = lo, hi

		return out, nil
	}

	v, err := literalToJSON(e.typ, e.val)
	if err != nil {
		return nil, err
	}
	out["value"] = v

	return out, nil
}

// literalToJSON returns the JSON form of a value declared as t.
// Non-finite floats, dates, timestamps, decimals and uuids are written
// as strings and binary values as base64.
func literalToJSON(t Type, v Literal) (any, error) {
	switch v := v.(type) {
	case BoolLiteral, Int32Literal, Int64Literal, StringLiteral:
		return v.Any(), nil
	case Float32Literal:
		if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
			return v.String(), nil
		}

		return v.Any(), nil
	case Float64Literal:
		if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
			return v.String(), nil
		}

		return v.Any(), nil
	case DateLiteral, UUIDLiteral, DecimalLiteral:
		return v.String(), nil
	case TimestampLiteral:
		tm := Timestamp(v).ToTime().UTC()
		if _, ok := t.(TimestampTzType); ok {
			return tm.Format(timestampTzFormat), nil
		}

		return tm.Format(timestampFormat), nil
	case BinaryLiteral:
		return base64.StdEncoding.EncodeToString(v), nil
	}

	return nil, fmt.Errorf("%w: no JSON form for literal %s", ErrNotImplemented, v)
}

// LiteralFromJSON decodes a JSON scalar as a value of type t. It
// accepts the forms literalToJSON writes as well as strings for any
// type that can be parsed from one.
func LiteralFromJSON(t Type, data json.RawMessage) (Literal, error) {
	v, err := decodeScalar(data)
	if err != nil {
		return nil, err
	}

	badLiteral := func(err error) error {
		return fmt.Errorf("%w: %s as %s: %w", ErrBadLiteral, string(data), t, err)
	}

	var lit Literal
	switch v := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: null is not a %s value", ErrBadLiteral, t)
	case bool:
		lit, err = BoolLiteral(v).To(t)
	case json.Number:
		switch t.(type) {
		case DateType:
			var n int64
			if n, err = v.Int64(); err == nil {
				lit = DateLiteral(n)
			}
		case TimestampType, TimestampTzType:
			var n int64
			if n, err = v.Int64(); err == nil {
				lit = TimestampLiteral(n)
			}
		default:
			lit, err = StringLiteral(v.String()).To(t)
		}
	case string:
		if _, ok := t.(BinaryType); ok {
			var raw []byte
			if raw, err = base64.StdEncoding.DecodeString(v); err == nil {
				lit = BinaryLiteral(raw)
			}

			break
		}

		lit, err = StringLiteral(v).To(t)
	default:
		return nil, fmt.Errorf("%w: %s is not a scalar", ErrBadLiteral, string(data))
	}

	if err != nil {
		return nil, badLiteral(err)
	}

	return lit, nil
}

func decodeScalar(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadLiteral, err.Error())
	}

	return v, nil
}

// inferLiteral picks a type for an untyped scalar: integers are longs,
// other numbers doubles and strings stay strings.
func inferLiteral(v any) (Literal, error) {
	switch v := v.(type) {
	case bool:
		return BoolLiteral(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return Int64Literal(n), nil
		}

		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadLiteral, v)
		}

		return Float64Literal(f), nil
	case string:
		return StringLiteral(v), nil
	}

	return nil, fmt.Errorf("%w: cannot infer a type for %v", ErrBadLiteral, v)
}

type exprJSON struct {
	Op     string            `json:"op"`
	Name   string            `json:"name"`
	Type   *typeIFace        `json:"type"`
	Value  json.RawMessage   `json:"value"`
	Lower  json.RawMessage   `json:"lower"`
	Upper  json.RawMessage   `json:"upper"`
	Left   json.RawMessage   `json:"left"`
	Right  json.RawMessage   `json:"right"`
	Child  json.RawMessage   `json:"child"`
	Cond   json.RawMessage   `json:"cond"`
	Then   json.RawMessage   `json:"then"`
	Else   json.RawMessage   `json:"else"`
	Args   []json.RawMessage `json:"args"`
	List   []json.RawMessage `json:"list"`
	Values []json.RawMessage `json:"values"`
}

// UnmarshalExpr decodes an expression written by MarshalExpr. Bare
// JSON scalars are accepted as shorthand: true and false are the
// constant predicates, numbers and strings untyped literals whose type
// is settled when the expression is bound.
func UnmarshalExpr(data []byte) (Expr, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: missing expression", ErrInvalidArgument)
	}

	if data[0] != '{' {
		v, err := decodeScalar(data)
		if err != nil {
			return nil, err
		}

		if b, ok := v.(bool); ok {
			return BoolExpr(b), nil
		}

		lit, err := inferLiteral(v)
		if err != nil {
			return nil, err
		}

		return Lit(lit), nil
	}

	var n exprJSON
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, err.Error())
	}

	return n.decode()
}

func decodeList(raw []json.RawMessage) ([]Expr, error) {
	out := make([]Expr, len(raw))
	for i, r := range raw {
		e, err := UnmarshalExpr(r)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}

	return out, nil
}

func (n *exprJSON) children(raw ...json.RawMessage) ([]Expr, error) {
	for _, r := range raw {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: %s is missing an operand", ErrInvalidArgument, n.Op)
		}
	}

	return decodeList(raw)
}

func (n *exprJSON) decode() (Expr, error) {
	if op, ok := cmpOps[n.Op]; ok {
		c, err := n.children(n.Left, n.Right)
		if err != nil {
			return nil, err
		}

		return CmpExpr{op: op, left: c[0], right: c[1]}, nil
	}

	switch n.Op {
	case "true":
		return AlwaysTrue{}, nil
	case "false":
		return AlwaysFalse{}, nil
	case "ref":
		if n.Name == "" {
			return nil, fmt.Errorf("%w: reference without a name", ErrInvalidArgument)
		}

		return Reference(n.Name), nil
	case "literal":
		return n.literal()
	case "not", "is_null", "not_null", "negative":
		c, err := n.children(n.Child)
		if err != nil {
			return nil, err
		}

		switch n.Op {
		case "not":
			return NotExpr{child: c[0]}, nil
		case "is_null":
			return IsNullExpr{child: c[0]}, nil
		case "not_null":
			return NotNullExpr{child: c[0]}, nil
		}

		return Negative(c[0]), nil
	case "neq":
		c, err := n.children(n.Left, n.Right)
		if err != nil {
			return nil, err
		}

		return NotExpr{child: CmpExpr{op: OpEQ, left: c[0], right: c[1]}}, nil
	case "and", "or":
		if len(n.Args) < 2 {
			return nil, fmt.Errorf("%w: %s needs at least two arguments", ErrInvalidArgument, n.Op)
		}

		args, err := decodeList(n.Args)
		if err != nil {
			return nil, err
		}

		out := args[0]
		for _, a := range args[1:] {
			if n.Op == "and" {
				out = AndExpr{left: out, right: a}
			} else {
				out = OrExpr{left: out, right: a}
			}
		}

		return out, nil
	case "in":
		c, err := n.children(n.Value)
		if err != nil {
			return nil, err
		}

		list, err := decodeList(n.List)
		if err != nil {
			return nil, err
		}

		return NewIn(c[0], list...), nil
	case "in_set":
		c, err := n.children(n.Value)
		if err != nil {
			return nil, err
		}

		vals, err := decodeList(n.Values)
		if err != nil {
			return nil, err
		}

		lits := make([]Literal, len(vals))
		for i, v := range vals {
			lit, ok := v.(LiteralExpr)
			if !ok {
				return nil, fmt.Errorf("%w: in_set members must be literals, got %s",
					ErrInvalidArgument, v)
			}
			lits[i] = lit.val
		}

		return NewInSet(c[0], lits...), nil
	case "if":
		c, err := n.children(n.Cond, n.Then, n.Else)
		if err != nil {
			return nil, err
		}

		return IfExpr{cond: c[0], then: c[1], els: c[2]}, nil
	case "cast":
		c, err := n.children(n.Child)
		if err != nil {
			return nil, err
		}

		if n.Type == nil {
			return nil, fmt.Errorf("%w: cast without a target type", ErrInvalidArgument)
		}

		return Cast(c[0], n.Type.Type), nil
	case "call":
		args, err := decodeList(n.Args)
		if err != nil {
			return nil, err
		}

		var typ Type
		if n.Type != nil {
			typ = n.Type.Type
		}

		if n.Name == "" {
			return nil, fmt.Errorf("%w: call without a name", ErrInvalidArgument)
		}

		return NewOpaque(n.Name, typ, args...), nil
	}

	return nil, fmt.Errorf("%w: unknown expression op '%s'", ErrInvalidArgument, n.Op)
}

func (n *exprJSON) literal() (Expr, error) {
	if len(n.Lower) > 0 || len(n.Upper) > 0 {
		if n.Type == nil {
			return nil, fmt.Errorf("%w: range literal without a type", ErrInvalidArgument)
		}

		r, err := rangeFromJSON(n.Type.Type, n.Lower, n.Upper)
		if err != nil {
			return nil, err
		}

		return TypedLit(r, n.Type.Type), nil
	}

	if len(n.Value) == 0 {
		return nil, fmt.Errorf("%w: literal without a value", ErrInvalidArgument)
	}

	if n.Type == nil {
		v, err := decodeScalar(n.Value)
		if err != nil {
			return nil, err
		}

		lit, err := inferLiteral(v)
		if err != nil {
			return nil, err
		}

		return Lit(lit), nil
	}

	lit, err := LiteralFromJSON(n.Type.Type, n.Value)
	if err != nil {
		return nil, err
	}

	return TypedLit(lit, n.Type.Type), nil
}

func rangeFromJSON(t Type, lower, upper json.RawMessage) (RangeLiteral, error) {
	if len(lower) == 0 || len(upper) == 0 {
		return RangeLiteral{}, fmt.Errorf("%w: a range needs both bounds", ErrInvalidArgument)
	}

	lo, err := LiteralFromJSON(t, lower)
	if err != nil {
		return RangeLiteral{}, err
	}

	hi, err := LiteralFromJSON(t, upper)
	if err != nil {
		return RangeLiteral{}, err
	}

	return NewRange(lo, hi)
}

// ParseRow decodes a JSON object of column values into a Record laid
// out by s. A value is either a scalar, an object with "min" and "max"
// bounds or null. Columns that are null or missing are unknown.
func ParseRow(s *Schema, data []byte) (Record, error) {
	var cols map[string]json.RawMessage
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("%w: row must be a JSON object: %s", ErrInvalidArgument, err.Error())
	}

	row := UnknownRecord(s.NumFields())
	for name, raw := range cols {
		f, pos, ok := s.FindFieldByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: row has unknown column %s", ErrInvalidSchema, name)
		}

		raw = bytes.TrimSpace(raw)
		switch {
		case bytes.Equal(raw, []byte("null")):
			continue
		case len(raw) > 0 && raw[0] == '{':
			var b struct {
				Min json.RawMessage `json:"min"`
				Max json.RawMessage `json:"max"`
			}
			if err := json.Unmarshal(raw, &b); err != nil {
				return nil, fmt.Errorf("%w: column %s: %s", ErrInvalidArgument, name, err.Error())
			}

			r, err := rangeFromJSON(f.Type, b.Min, b.Max)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			row[pos] = Some[Literal](r)
		default:
			lit, err := LiteralFromJSON(f.Type, raw)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			row[pos] = Some(lit)
		}
	}

	return row, nil
}

// MarshalJSON writes a known outcome as {"known":true,"value":b} and
// an unresolved one as {"known":false,"residual":expr}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.known {
		return json.Marshal(struct {
			Known bool `json:"known"`
			Value bool `json:"value"`
		}{true, o.value})
	}

	if o.residual == nil {
		return nil, fmt.Errorf("%w: empty outcome", ErrInvalidArgument)
	}

	residual, err := exprToJSON(o.residual)
	if err != nil {
		return nil, err
	}

	return json.Marshal(struct {
		Known    bool `json:"known"`
		Residual any  `json:"residual"`
	}{false, residual})
}
