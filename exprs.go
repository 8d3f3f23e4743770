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
	"slices"
	"strconv"
	"strings"
)

// Operation identifies the kind of an expression node.
type Operation int

const (
	OpTrue Operation = iota
	OpFalse
	// leaves
	OpLiteral
	OpReference
	OpColumn
	OpNamed
	// null checks
	OpIsNull
	OpNotNull
	// comparisons, keep grouped between OpLT and OpEQ
	OpLT
	OpLTEQ
	OpGT
	OpGTEQ
	OpEQ
	// membership
	OpIn
	OpInSet
	// boolean ops
	OpNot
	OpAnd
	OpOr
	OpIf
	// anything the reducer does not look into
	OpOpaque
)

var opNames = [...]string{
	OpTrue:      "True",
	OpFalse:     "False",
	OpLiteral:   "Literal",
	OpReference: "Reference",
	OpColumn:    "Column",
	OpNamed:     "Named",
	OpIsNull:    "IsNull",
	OpNotNull:   "NotNull",
	OpLT:        "LessThan",
	OpLTEQ:      "LessThanEqual",
	OpGT:        "GreaterThan",
	OpGTEQ:      "GreaterThanEqual",
	OpEQ:        "Equal",
	OpIn:        "In",
	OpInSet:     "InSet",
	OpNot:       "Not",
	OpAnd:       "And",
	OpOr:        "Or",
	OpIf:        "If",
	OpOpaque:    "Opaque",
}

func (op Operation) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return "Operation(" + strconv.Itoa(int(op)) + ")"
	}

	return opNames[op]
}

// IsComparison reports whether op is one of the binary comparison
// operations.
func (op Operation) IsComparison() bool { return op >= OpLT && op <= OpEQ }

// FlipLR returns the operation to use if the left and right operands
// of a comparison are swapped.
func (op Operation) FlipLR() Operation {
	switch op {
	case OpLT:
		return OpGT
	case OpLTEQ:
		return OpGTEQ
	case OpGT:
		return OpLT
	case OpGTEQ:
		return OpLTEQ
	case OpEQ:
		return OpEQ
	default:
		panic("no left-right flip for operation: " + op.String())
	}
}

func (op Operation) symbol() string {
	switch op {
	case OpLT:
		return "<"
	case OpLTEQ:
		return "<="
	case OpGT:
		return ">"
	case OpGTEQ:
		return ">="
	case OpEQ:
		return "="
	}

	return op.String()
}

// Expr is a node of a predicate tree. Nodes are immutable: every
// transformation builds new nodes and shares the untouched ones.
type Expr interface {
	fmt.Stringer
	Op() Operation
	// Type is the declared result type of the node. It is nil for an
	// unbound Reference, whose type is only known after binding.
	Type() Type
	Children() []Expr
	// WithChildren returns a node of the same kind over new children,
	// which must match the arity of Children.
	WithChildren(children ...Expr) Expr
	// Equals is structural equality, operand order matters.
	Equals(Expr) bool
}

func exprsEqual(a, b []Expr) bool {
	return slices.EqualFunc(a, b, func(l, r Expr) bool { return l.Equals(r) })
}

func typesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.Equals(b)
}

func checkArity(e Expr, children []Expr, n int) {
	if len(children) != n {
		panic(fmt.Errorf("%w: %s expects %d children, got %d",
			ErrInvalidArgument, e.Op(), n, len(children)))
	}
}

// AlwaysTrue is the boolean literal true.
type AlwaysTrue struct{}

func (AlwaysTrue) String() string              { return "true" }
func (AlwaysTrue) Op() Operation               { return OpTrue }
func (AlwaysTrue) Type() Type                  { return PrimitiveTypes.Bool }
func (AlwaysTrue) Children() []Expr            { return nil }
func (t AlwaysTrue) WithChildren(...Expr) Expr { return t }
func (AlwaysTrue) Equals(other Expr) bool {
	_, ok := other.(AlwaysTrue)

	return ok
}

// AlwaysFalse is the boolean literal false.
type AlwaysFalse struct{}

func (AlwaysFalse) String() string              { return "false" }
func (AlwaysFalse) Op() Operation               { return OpFalse }
func (AlwaysFalse) Type() Type                  { return PrimitiveTypes.Bool }
func (AlwaysFalse) Children() []Expr            { return nil }
func (f AlwaysFalse) WithChildren(...Expr) Expr { return f }
func (AlwaysFalse) Equals(other Expr) bool {
	_, ok := other.(AlwaysFalse)

	return ok
}

// BoolExpr returns AlwaysTrue or AlwaysFalse.
func BoolExpr(b bool) Expr {
	if b {
		return AlwaysTrue{}
	}

	return AlwaysFalse{}
}

// LiteralExpr is a constant operand with a declared type. The value
// may be a RangeLiteral.
type LiteralExpr struct {
	val Literal
	typ Type
}

// Lit wraps a literal as an operand declared with the literal's own type.
func Lit(v Literal) LiteralExpr {
	if v == nil {
		panic(fmt.Errorf("%w: cannot create literal expression from nil", ErrInvalidArgument))
	}

	return LiteralExpr{val: v, typ: v.Type()}
}

// TypedLit wraps a literal as an operand of declared type t.
func TypedLit(v Literal, t Type) LiteralExpr {
	if v == nil || t == nil {
		panic(fmt.Errorf("%w: cannot create literal expression from nil", ErrInvalidArgument))
	}

	return LiteralExpr{val: v, typ: t}
}

func (l LiteralExpr) Value() Literal            { return l.val }
func (LiteralExpr) Op() Operation               { return OpLiteral }
func (l LiteralExpr) Type() Type                { return l.typ }
func (LiteralExpr) Children() []Expr            { return nil }
func (l LiteralExpr) WithChildren(...Expr) Expr { return l }
func (l LiteralExpr) String() string {
	switch l.typ.(type) {
	case StringType, UUIDType, DateType, TimestampType, TimestampTzType:
		if _, isRange := l.val.(RangeLiteral); !isRange {
			return "'" + strings.ReplaceAll(l.val.String(), "'", "''") + "'"
		}
	}

	return l.val.String()
}

func (l LiteralExpr) Equals(other Expr) bool {
	rhs, ok := other.(LiteralExpr)
	if !ok {
		return false
	}

	return l.typ.Equals(rhs.typ) && l.val.Equals(rhs.val)
}

// Reference is a column referenced by name that has not been bound to
// a schema yet. Residual expressions are always expressed over
// References.
type Reference string

func (r Reference) String() string            { return string(r) }
func (Reference) Op() Operation               { return OpReference }
func (Reference) Type() Type                  { return nil }
func (Reference) Children() []Expr            { return nil }
func (r Reference) WithChildren(...Expr) Expr { return r }
func (r Reference) Equals(other Expr) bool {
	rhs, ok := other.(Reference)

	return ok && r == rhs
}

// BoundRef is a column reference resolved to a position in a schema.
type BoundRef struct {
	field Field
	pos   int
}

func (b *BoundRef) Field() Field              { return b.field }
func (b *BoundRef) Pos() int                  { return b.pos }
func (b *BoundRef) Ref() Reference            { return Reference(b.field.Name) }
func (b *BoundRef) String() string            { return b.field.Name }
func (*BoundRef) Op() Operation               { return OpColumn }
func (b *BoundRef) Type() Type                { return b.field.Type }
func (*BoundRef) Children() []Expr            { return nil }
func (b *BoundRef) WithChildren(...Expr) Expr { return b }
func (b *BoundRef) Equals(other Expr) bool {
	rhs, ok := other.(*BoundRef)
	if !ok {
		return false
	}

	return b.pos == rhs.pos && b.field.Equals(rhs.field)
}

// LeafFunc evaluates a NamedLeaf against a row. An invalid result
// means the value cannot be determined from the row.
type LeafFunc func(Row) (Optional[Literal], error)

// NamedLeaf is a leaf computed directly from a row by a function, such
// as a partition value derived from several columns. Two named leaves
// are equal when their names and types are.
type NamedLeaf struct {
	name string
	typ  Type
	fn   LeafFunc
}

func NewNamedLeaf(name string, typ Type, fn LeafFunc) *NamedLeaf {
	if name == "" || typ == nil || fn == nil {
		panic(fmt.Errorf("%w: named leaf needs a name, a type and a function", ErrInvalidArgument))
	}

	return &NamedLeaf{name: name, typ: typ, fn: fn}
}

func (n *NamedLeaf) Name() string                          { return n.name }
func (n *NamedLeaf) Eval(r Row) (Optional[Literal], error) { return n.fn(r) }
func (n *NamedLeaf) String() string                        { return n.name + "()" }
func (*NamedLeaf) Op() Operation                           { return OpNamed }
func (n *NamedLeaf) Type() Type                            { return n.typ }
func (*NamedLeaf) Children() []Expr                        { return nil }
func (n *NamedLeaf) WithChildren(...Expr) Expr             { return n }
func (n *NamedLeaf) Equals(other Expr) bool {
	rhs, ok := other.(*NamedLeaf)
	if !ok {
		return false
	}

	return n == rhs || (n.name == rhs.name && n.typ.Equals(rhs.typ))
}

type NotExpr struct {
	child Expr
}

// NewNot creates the negation of child. Negating AlwaysTrue or
// AlwaysFalse yields the other constant, and a double negation
// collapses to the inner expression.
func NewNot(child Expr) Expr {
	if child == nil {
		panic(fmt.Errorf("%w: cannot create NotExpr with nil child",
			ErrInvalidArgument))
	}

	switch t := child.(type) {
	case NotExpr:
		return t.child
	case AlwaysTrue:
		return AlwaysFalse{}
	case AlwaysFalse:
		return AlwaysTrue{}
	}

	return NotExpr{child: child}
}

func (n NotExpr) Child() Expr      { return n.child }
func (n NotExpr) String() string   { return "NOT " + n.child.String() }
func (NotExpr) Op() Operation      { return OpNot }
func (NotExpr) Type() Type         { return PrimitiveTypes.Bool }
func (n NotExpr) Children() []Expr { return []Expr{n.child} }
func (n NotExpr) WithChildren(children ...Expr) Expr {
	checkArity(n, children, 1)

	return NotExpr{child: children[0]}
}

func (n NotExpr) Equals(other Expr) bool {
	rhs, ok := other.(NotExpr)

	return ok && n.child.Equals(rhs.child)
}

type AndExpr struct {
	left, right Expr
}

func newAnd(left, right Expr) Expr {
	if left == nil || right == nil {
		panic(fmt.Errorf("%w: cannot construct AndExpr with nil arguments",
			ErrInvalidArgument))
	}

	switch {
	case left == AlwaysFalse{} || right == AlwaysFalse{}:
		return AlwaysFalse{}
	case left == AlwaysTrue{}:
		return right
	case right == AlwaysTrue{}:
		return left
	}

	return AndExpr{left: left, right: right}
}

// NewAnd folds its arguments left to right into a conjunction, so
// NewAnd(a, b, c) is And(And(a, b), c). AlwaysTrue arguments are
// dropped and any AlwaysFalse argument makes the result AlwaysFalse.
//
// Will panic if any argument is nil
func NewAnd(left, right Expr, addl ...Expr) Expr {
	folded := newAnd(left, right)
	for _, a := range addl {
		folded = newAnd(folded, a)
	}

	return folded
}

func (a AndExpr) Left() Expr       { return a.left }
func (a AndExpr) Right() Expr      { return a.right }
func (a AndExpr) String() string   { return "(" + a.left.String() + " AND " + a.right.String() + ")" }
func (AndExpr) Op() Operation      { return OpAnd }
func (AndExpr) Type() Type         { return PrimitiveTypes.Bool }
func (a AndExpr) Children() []Expr { return []Expr{a.left, a.right} }
func (a AndExpr) WithChildren(children ...Expr) Expr {
	checkArity(a, children, 2)

	return AndExpr{left: children[0], right: children[1]}
}

func (a AndExpr) Equals(other Expr) bool {
	rhs, ok := other.(AndExpr)

	return ok && a.left.Equals(rhs.left) && a.right.Equals(rhs.right)
}

type OrExpr struct {
	left, right Expr
}

func newOr(left, right Expr) Expr {
	if left == nil || right == nil {
		panic(fmt.Errorf("%w: cannot construct OrExpr with nil arguments",
			ErrInvalidArgument))
	}

	switch {
	case left == AlwaysTrue{} || right == AlwaysTrue{}:
		return AlwaysTrue{}
	case left == AlwaysFalse{}:
		return right
	case right == AlwaysFalse{}:
		return left
	}

	return OrExpr{left: left, right: right}
}

// NewOr is the disjunctive counterpart of NewAnd. AlwaysFalse
// arguments are dropped and any AlwaysTrue argument makes the result
// AlwaysTrue.
//
// Will panic if any argument is nil
func NewOr(left, right Expr, addl ...Expr) Expr {
	folded := newOr(left, right)
	for _, a := range addl {
		folded = newOr(folded, a)
	}

	return folded
}

func (o OrExpr) Left() Expr       { return o.left }
func (o OrExpr) Right() Expr      { return o.right }
func (o OrExpr) String() string   { return "(" + o.left.String() + " OR " + o.right.String() + ")" }
func (OrExpr) Op() Operation      { return OpOr }
func (OrExpr) Type() Type         { return PrimitiveTypes.Bool }
func (o OrExpr) Children() []Expr { return []Expr{o.left, o.right} }
func (o OrExpr) WithChildren(children ...Expr) Expr {
	checkArity(o, children, 2)

	return OrExpr{left: children[0], right: children[1]}
}

func (o OrExpr) Equals(other Expr) bool {
	rhs, ok := other.(OrExpr)

	return ok && o.left.Equals(rhs.left) && o.right.Equals(rhs.right)
}

// IsNullExpr is true when its child evaluates to null.
type IsNullExpr struct {
	child Expr
}

func NewIsNull(child Expr) IsNullExpr {
	if child == nil {
		panic(fmt.Errorf("%w: cannot create IsNullExpr with nil child", ErrInvalidArgument))
	}

	return IsNullExpr{child: child}
}

func (n IsNullExpr) Child() Expr      { return n.child }
func (n IsNullExpr) String() string   { return n.child.String() + " IS NULL" }
func (IsNullExpr) Op() Operation      { return OpIsNull }
func (IsNullExpr) Type() Type         { return PrimitiveTypes.Bool }
func (n IsNullExpr) Children() []Expr { return []Expr{n.child} }
func (n IsNullExpr) WithChildren(children ...Expr) Expr {
	checkArity(n, children, 1)

	return IsNullExpr{child: children[0]}
}

func (n IsNullExpr) Equals(other Expr) bool {
	rhs, ok := other.(IsNullExpr)

	return ok && n.child.Equals(rhs.child)
}

// NotNullExpr is true when its child evaluates to a non-null value.
type NotNullExpr struct {
	child Expr
}

func NewNotNull(child Expr) NotNullExpr {
	if child == nil {
		panic(fmt.Errorf("%w: cannot create NotNullExpr with nil child", ErrInvalidArgument))
	}

	return NotNullExpr{child: child}
}

func (n NotNullExpr) Child() Expr      { return n.child }
func (n NotNullExpr) String() string   { return n.child.String() + " IS NOT NULL" }
func (NotNullExpr) Op() Operation      { return OpNotNull }
func (NotNullExpr) Type() Type         { return PrimitiveTypes.Bool }
func (n NotNullExpr) Children() []Expr { return []Expr{n.child} }
func (n NotNullExpr) WithChildren(children ...Expr) Expr {
	checkArity(n, children, 1)

	return NotNullExpr{child: children[0]}
}

func (n NotNullExpr) Equals(other Expr) bool {
	rhs, ok := other.(NotNullExpr)

	return ok && n.child.Equals(rhs.child)
}

// CmpExpr is one of the binary comparisons =, <, <=, > and >=.
type CmpExpr struct {
	op          Operation
	left, right Expr
}

// NewCmp builds a comparison node, op must be a comparison operation.
func NewCmp(op Operation, left, right Expr) CmpExpr {
	if !op.IsComparison() {
		panic(fmt.Errorf("%w: %s is not a comparison", ErrInvalidArgument, op))
	}

	if left == nil || right == nil {
		panic(fmt.Errorf("%w: cannot construct %s with nil arguments", ErrInvalidArgument, op))
	}

	return CmpExpr{op: op, left: left, right: right}
}

func (c CmpExpr) Left() Expr       { return c.left }
func (c CmpExpr) Right() Expr      { return c.right }
func (c CmpExpr) Op() Operation    { return c.op }
func (CmpExpr) Type() Type         { return PrimitiveTypes.Bool }
func (c CmpExpr) Children() []Expr { return []Expr{c.left, c.right} }
func (c CmpExpr) String() string {
	return c.left.String() + " " + c.op.symbol() + " " + c.right.String()
}

func (c CmpExpr) WithChildren(children ...Expr) Expr {
	checkArity(c, children, 2)

	return CmpExpr{op: c.op, left: children[0], right: children[1]}
}

func (c CmpExpr) Equals(other Expr) bool {
	rhs, ok := other.(CmpExpr)

	return ok && c.op == rhs.op && c.left.Equals(rhs.left) && c.right.Equals(rhs.right)
}

// InExpr tests a value against an ordered list of candidate
// expressions.
type InExpr struct {
	value Expr
	list  []Expr
}

func NewIn(value Expr, list ...Expr) InExpr {
	if value == nil || slices.Contains(list, nil) {
		panic(fmt.Errorf("%w: cannot construct InExpr with nil arguments", ErrInvalidArgument))
	}

	return InExpr{value: value, list: slices.Clone(list)}
}

func (in InExpr) Value() Expr  { return in.value }
func (in InExpr) List() []Expr { return slices.Clone(in.list) }
func (InExpr) Op() Operation   { return OpIn }
func (InExpr) Type() Type      { return PrimitiveTypes.Bool }
func (in InExpr) Children() []Expr {
	return append([]Expr{in.value}, in.list...)
}

func (in InExpr) String() string {
	parts := make([]string, len(in.list))
	for i, e := range in.list {
		parts[i] = e.String()
	}

	return in.value.String() + " IN (" + strings.Join(parts, ", ") + ")"
}

func (in InExpr) WithChildren(children ...Expr) Expr {
	if len(children) == 0 {
		checkArity(in, children, 1)
	}

	return InExpr{value: children[0], list: slices.Clone(children[1:])}
}

func (in InExpr) Equals(other Expr) bool {
	rhs, ok := other.(InExpr)

	return ok && in.value.Equals(rhs.value) && exprsEqual(in.list, rhs.list)
}

// InSetExpr tests a value against an unordered set of literals which
// share the value's type.
type InSetExpr struct {
	value Expr
	set   Set[Literal]
}

func NewInSet(value Expr, vals ...Literal) InSetExpr {
	if value == nil || slices.Contains(vals, nil) {
		panic(fmt.Errorf("%w: cannot construct InSetExpr with nil arguments", ErrInvalidArgument))
	}

	return InSetExpr{value: value, set: NewLiteralSet(vals...)}
}

func (in InSetExpr) Value() Expr            { return in.value }
func (in InSetExpr) Literals() Set[Literal] { return in.set }
func (InSetExpr) Op() Operation             { return OpInSet }
func (InSetExpr) Type() Type                { return PrimitiveTypes.Bool }
func (in InSetExpr) Children() []Expr       { return []Expr{in.value} }
func (in InSetExpr) String() string {
	members := in.set.Members()
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = LiteralExpr{val: m, typ: m.Type()}.String()
	}

	return in.value.String() + " IN {" + strings.Join(parts, ", ") + "}"
}

func (in InSetExpr) WithChildren(children ...Expr) Expr {
	checkArity(in, children, 1)

	return InSetExpr{value: children[0], set: in.set}
}

func (in InSetExpr) Equals(other Expr) bool {
	rhs, ok := other.(InSetExpr)

	return ok && in.value.Equals(rhs.value) && in.set.Equals(rhs.set)
}

// IfExpr selects one of two branches depending on a predicate. A null
// predicate selects the else branch.
type IfExpr struct {
	cond, then, els Expr
}

func NewIf(cond, then, els Expr) IfExpr {
	if cond == nil || then == nil || els == nil {
		panic(fmt.Errorf("%w: cannot construct IfExpr with nil arguments", ErrInvalidArgument))
	}

	return IfExpr{cond: cond, then: then, els: els}
}

func (i IfExpr) Cond() Expr       { return i.cond }
func (i IfExpr) Then() Expr       { return i.then }
func (i IfExpr) Else() Expr       { return i.els }
func (IfExpr) Op() Operation      { return OpIf }
func (i IfExpr) Children() []Expr { return []Expr{i.cond, i.then, i.els} }
func (i IfExpr) String() string {
	return "IF(" + i.cond.String() + ", " + i.then.String() + ", " + i.els.String() + ")"
}

func (i IfExpr) Type() Type {
	if t := i.then.Type(); t != nil {
		return t
	}

	return i.els.Type()
}

func (i IfExpr) WithChildren(children ...Expr) Expr {
	checkArity(i, children, 3)

	return IfExpr{cond: children[0], then: children[1], els: children[2]}
}

func (i IfExpr) Equals(other Expr) bool {
	rhs, ok := other.(IfExpr)

	return ok && i.cond.Equals(rhs.cond) && i.then.Equals(rhs.then) && i.els.Equals(rhs.els)
}

// OpaqueExpr is a function application the reducer never looks into,
// such as a cast or an arithmetic negation. When no type is given the
// node takes the type of its first argument.
type OpaqueExpr struct {
	name string
	typ  Type
	args []Expr
}

func NewOpaque(name string, typ Type, args ...Expr) OpaqueExpr {
	if name == "" || slices.Contains(args, nil) {
		panic(fmt.Errorf("%w: opaque expression needs a name and non-nil arguments", ErrInvalidArgument))
	}

	return OpaqueExpr{name: name, typ: typ, args: slices.Clone(args)}
}

// Cast converts e to typ.
func Cast(e Expr, typ Type) OpaqueExpr { return NewOpaque("cast", typ, e) }

// Negative is the arithmetic negation of e.
func Negative(e Expr) OpaqueExpr { return NewOpaque("negative", nil, e) }

func (o OpaqueExpr) Name() string       { return o.name }
func (OpaqueExpr) Op() Operation        { return OpOpaque }
func (o OpaqueExpr) Children() []Expr   { return slices.Clone(o.args) }
func (o OpaqueExpr) DeclaredType() Type { return o.typ }
func (o OpaqueExpr) Type() Type {
	if o.typ != nil {
		return o.typ
	}

	if len(o.args) > 0 {
		return o.args[0].Type()
	}

	return nil
}

func (o OpaqueExpr) String() string {
	parts := make([]string, len(o.args))
	for i, a := range o.args {
		parts[i] = a.String()
	}

	name := o.name
	if o.typ != nil {
		name += "<" + o.typ.String() + ">"
	}

	return name + "(" + strings.Join(parts, ", ") + ")"
}

func (o OpaqueExpr) WithChildren(children ...Expr) Expr {
	checkArity(o, children, len(o.args))

	return OpaqueExpr{name: o.name, typ: o.typ, args: slices.Clone(children)}
}

func (o OpaqueExpr) Equals(other Expr) bool {
	rhs, ok := other.(OpaqueExpr)

	return ok && o.name == rhs.name && typesEqual(o.typ, rhs.typ) && exprsEqual(o.args, rhs.args)
}
