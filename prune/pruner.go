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

// Package prune decides, from per-partition column statistics, which
// partitions of a table a filter can skip and which residual filter
// must still be applied to the rows of the others.
package prune

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/residualeval/residual"
	"golang.org/x/sync/errgroup"
)

// DefaultInPredicateLimit is the largest membership list the pruner
// resolves against statistics. Filters with longer lists are applied
// per row without trying.
const DefaultInPredicateLimit = 200

// ColumnStats summarizes the values of one column in a partition.
// Lower and Upper are nil when the column has no non-null values or
// when no bounds were collected, so missing bounds alone say nothing
// about nulls. AllNull marks a column that is null in every row.
type ColumnStats struct {
	Lower        residual.Literal
	Upper        residual.Literal
	ContainsNull bool
	AllNull      bool
}

func (c ColumnStats) hasBounds() bool { return c.Lower != nil && c.Upper != nil }

// Partition is the statistics of one partition. Columns is keyed by
// schema field name, a column without an entry has no statistics. A
// RecordCount of zero marks an empty partition, a negative one an
// unknown count.
type Partition struct {
	Name        string
	RecordCount int64
	Columns     map[string]ColumnStats
}

type Decision int8

const (
	// Skip means no row of the partition can satisfy the filter.
	Skip Decision = iota
	// ScanFiltered means rows must be read and checked against the
	// result's residual.
	ScanFiltered
	// ScanAll means every row satisfies the filter.
	ScanAll
)

func (d Decision) String() string {
	switch d {
	case Skip:
		return "skip"
	case ScanFiltered:
		return "scan-filtered"
	case ScanAll:
		return "scan-all"
	}

	return fmt.Sprintf("Decision(%d)", d)
}

// Result is the pruning decision for a single partition. Residual is
// only set for ScanFiltered.
type Result struct {
	Partition string
	Decision  Decision
	Residual  residual.Expr
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Partition string          `json:"partition"`
		Decision  string          `json:"decision"`
		Residual  json.RawMessage `json:"residual,omitempty"`
	}{Partition: r.Partition, Decision: r.Decision.String()}

	if r.Residual != nil {
		data, err := residual.MarshalExpr(r.Residual)
		if err != nil {
			return nil, err
		}
		out.Residual = data
	}

	return json.Marshal(out)
}

type Option func(*Pruner)

// WithLogger sets the logger decisions are reported to at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pruner) {
		if l != nil {
			p.log = l
		}
	}
}

// WithCaseSensitive controls how filter columns are matched to schema
// fields. The default is case sensitive.
func WithCaseSensitive(b bool) Option {
	return func(p *Pruner) { p.caseSensitive = b }
}

// WithWorkers bounds the number of partitions Prune evaluates at once.
func WithWorkers(n int) Option {
	return func(p *Pruner) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMaxDepth sets the nesting limit used when reducing the filter.
func WithMaxDepth(n int) Option {
	return func(p *Pruner) { p.maxDepth = n }
}

// WithInPredicateLimit overrides DefaultInPredicateLimit.
func WithInPredicateLimit(n int) Option {
	return func(p *Pruner) {
		if n > 0 {
			p.inLimit = n
		}
	}
}

// Pruner evaluates one filter against many partitions. It is safe for
// concurrent use.
type Pruner struct {
	schema   *residual.Schema
	filter   residual.Expr
	eval     *residual.PartialEvaluator
	nullCond residual.Expr
	columns  []string

	hasIf     bool
	oversized bool
	// nullSkip is set when every null check in the filter tests a
	// column directly. Only then may a false null condition skip.
	nullSkip bool

	log           *slog.Logger
	caseSensitive bool
	workers       int
	maxDepth      int
	inLimit       int
}

// NewPruner binds filter against the schema and derives its null
// condition once for all partitions.
func NewPruner(s *residual.Schema, filter residual.Expr, opts ...Option) (*Pruner, error) {
	p := &Pruner{
		schema:        s,
		log:           slog.New(slog.DiscardHandler),
		caseSensitive: true,
		workers:       runtime.GOMAXPROCS(0),
		maxDepth:      residual.DefaultMaxDepth,
		inLimit:       DefaultInPredicateLimit,
	}

	for _, opt := range opts {
		opt(p)
	}

	eval, err := residual.NewPartialEvaluator(s, filter, p.caseSensitive)
	if err != nil {
		return nil, err
	}
	eval.MaxDepth = p.maxDepth
	p.eval = eval

	if p.filter, err = residual.Unbind(eval.Bound()); err != nil {
		return nil, err
	}

	if p.columns, err = residual.Columns(p.filter); err != nil {
		return nil, err
	}

	if p.nullCond, err = residual.DeriveNullCondition(s, p.filter, true); err != nil {
		return nil, err
	}

	shape := &shapeVisitor{limit: p.inLimit}
	if _, err = residual.VisitExpr[struct{}](p.filter, shape); err != nil {
		return nil, err
	}
	p.hasIf, p.oversized = shape.hasIf, shape.oversized
	p.nullSkip = !shape.nestedNullCheck

	p.log.Debug("pruner ready",
		slog.String("filter", p.filter.String()),
		slog.String("null_condition", p.nullCond.String()))

	return p, nil
}

// Filter returns the bound filter rewritten over column names.
func (p *Pruner) Filter() residual.Expr { return p.filter }

// NullCondition returns the filter's derived null condition.
func (p *Pruner) NullCondition() residual.Expr { return p.nullCond }

// Evaluate decides what to do with a single partition.
func (p *Pruner) Evaluate(part Partition) (Result, error) {
	res, err := p.evaluate(part)
	if err != nil {
		return Result{}, err
	}

	attrs := []any{slog.String("partition", part.Name), slog.String("decision", res.Decision.String())}
	if res.Residual != nil {
		attrs = append(attrs, slog.String("residual", res.Residual.String()))
	}
	p.log.Debug("partition evaluated", attrs...)

	return res, nil
}

func (p *Pruner) evaluate(part Partition) (Result, error) {
	res := Result{Partition: part.Name}
	if part.RecordCount == 0 {
		res.Decision = Skip

		return res, nil
	}

	// the null condition only has to hold for a row to match, so it
	// can rule a partition out but never in
	nulls := p.nullStates(part)
	if p.nullSkip {
		cond, err := residual.VisitExpr[residual.Optional[bool]](p.nullCond, &nullConditionEval{nulls: nulls})
		if err != nil {
			return Result{}, err
		}

		if cond.Valid && !cond.Val {
			res.Decision = Skip

			return res, nil
		}
	}

	if p.oversized {
		res.Decision, res.Residual = ScanFiltered, p.filter

		return res, nil
	}

	row, err := p.row(part)
	if err != nil {
		return Result{}, err
	}

	out, err := p.eval.Eval(row, residual.Mode{})
	if err != nil {
		return Result{}, fmt.Errorf("partition %s: %w", part.Name, err)
	}

	switch {
	case !out.IsKnown():
		res.Decision, res.Residual = ScanFiltered, out.Residual()
	case out.Value() && !p.mayContainNulls(row, nulls):
		res.Decision = ScanAll
	case !out.Value() && !(p.hasIf && p.mayContainNulls(row, nulls)):
		res.Decision = Skip
	default:
		res.Decision, res.Residual = ScanFiltered, p.filter
	}

	return res, nil
}

// Prune evaluates every partition, at most the configured number of
// workers at a time. Results are in the order of parts.
func (p *Pruner) Prune(ctx context.Context, parts []Partition) ([]Result, error) {
	results := make([]Result, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(p.workers, max(len(parts), 1)))

	for i, part := range parts {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			r, err := p.Evaluate(part)
			if err != nil {
				return err
			}
			results[i] = r

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// row lays partition bounds out as ranges by schema position.
func (p *Pruner) row(part Partition) (residual.Record, error) {
	row := residual.UnknownRecord(p.schema.NumFields())
	for i, f := range p.schema.Fields() {
		st, ok := part.Columns[f.Name]
		if !ok || !st.hasBounds() {
			continue
		}

		lo, err := st.Lower.To(f.Type)
		if err != nil {
			return nil, fmt.Errorf("partition %s column %s lower bound: %w", part.Name, f.Name, err)
		}

		hi, err := st.Upper.To(f.Type)
		if err != nil {
			return nil, fmt.Errorf("partition %s column %s upper bound: %w", part.Name, f.Name, err)
		}

		rng, err := residual.NewRange(lo, hi)
		if err != nil {
			return nil, fmt.Errorf("partition %s column %s: %w", part.Name, f.Name, err)
		}
		row[i] = residual.Some[residual.Literal](rng)
	}

	return row, nil
}

// nullStates reports, per filter column, whether the column is null in
// every row, in no row, or neither.
func (p *Pruner) nullStates(part Partition) map[string]residual.Optional[bool] {
	out := make(map[string]residual.Optional[bool], len(p.columns))
	for _, col := range p.columns {
		f, _, ok := p.schema.FindFieldByName(col)
		st, hasStats := part.Columns[col]
		switch {
		case ok && f.Required:
			out[col] = residual.Some(false)
		case !hasStats:
			out[col] = residual.Optional[bool]{}
		case st.AllNull:
			out[col] = residual.Some(true)
		case !st.ContainsNull:
			out[col] = residual.Some(false)
		default:
			out[col] = residual.Optional[bool]{}
		}
	}

	return out
}

// mayContainNulls reports whether a column the filter reads through
// its bounds might also hold nulls.
func (p *Pruner) mayContainNulls(row residual.Record, nulls map[string]residual.Optional[bool]) bool {
	return slices.ContainsFunc(p.columns, func(col string) bool {
		_, pos, ok := p.schema.FindFieldByName(col)
		if !ok || !row.Get(pos).Valid {
			return false
		}

		st := nulls[col]

		return !st.Valid || st.Val
	})
}

type shapeVisitor struct {
	limit           int
	hasIf           bool
	oversized       bool
	nestedNullCheck bool
}

func (*shapeVisitor) VisitTrue() (_ struct{})             { return }
func (*shapeVisitor) VisitFalse() (_ struct{})            { return }
func (*shapeVisitor) VisitNot(struct{}) (_ struct{})      { return }
func (*shapeVisitor) VisitAnd(_, _ struct{}) (_ struct{}) { return }
func (*shapeVisitor) VisitOr(_, _ struct{}) (_ struct{})  { return }
func (*shapeVisitor) VisitLeaf(residual.Expr) (_ struct{}) {
	return
}

func (s *shapeVisitor) VisitNode(e residual.Expr, _ []struct{}) (_ struct{}) {
	switch e := e.(type) {
	case residual.IfExpr:
		s.hasIf = true
	case residual.InExpr:
		s.oversized = s.oversized || len(e.List()) > s.limit
	case residual.InSetExpr:
		s.oversized = s.oversized || e.Literals().Len() > s.limit
	case residual.IsNullExpr, residual.NotNullExpr:
		if _, ok := e.Children()[0].(residual.Reference); !ok {
			s.nestedNullCheck = true
		}
	}

	return
}

// nullConditionEval evaluates a null condition with Kleene logic.
// Null checks are answered from the partition's null counts, every
// other leaf is unknown.
type nullConditionEval struct {
	nulls map[string]residual.Optional[bool]
}

func (*nullConditionEval) VisitTrue() residual.Optional[bool]  { return residual.Some(true) }
func (*nullConditionEval) VisitFalse() residual.Optional[bool] { return residual.Some(false) }

func (*nullConditionEval) VisitNot(child residual.Optional[bool]) residual.Optional[bool] {
	if !child.Valid {
		return child
	}

	return residual.Some(!child.Val)
}

func (*nullConditionEval) VisitAnd(left, right residual.Optional[bool]) residual.Optional[bool] {
	switch {
	case left.Valid && !left.Val, right.Valid && !right.Val:
		return residual.Some(false)
	case left.Valid && right.Valid:
		return residual.Some(true)
	}

	return residual.Optional[bool]{}
}

func (*nullConditionEval) VisitOr(left, right residual.Optional[bool]) residual.Optional[bool] {
	switch {
	case left.Valid && left.Val, right.Valid && right.Val:
		return residual.Some(true)
	case left.Valid && right.Valid:
		return residual.Some(false)
	}

	return residual.Optional[bool]{}
}

func (*nullConditionEval) VisitLeaf(residual.Expr) residual.Optional[bool] {
	return residual.Optional[bool]{}
}

func (n *nullConditionEval) VisitNode(e residual.Expr, _ []residual.Optional[bool]) residual.Optional[bool] {
	var negate bool
	switch e.(type) {
	case residual.IsNullExpr:
	case residual.NotNullExpr:
		negate = true
	default:
		return residual.Optional[bool]{}
	}

	ref, ok := e.Children()[0].(residual.Reference)
	if !ok {
		return residual.Optional[bool]{}
	}

	st := n.nulls[string(ref)]
	if st.Valid && negate {
		st.Val = !st.Val
	}

	return st
}

// Group is a set of partitions that share one residual filter.
type Group struct {
	Residual   residual.Expr
	Partitions []string
}

// GroupByResidual collects the partitions to scan by the filter their
// rows still need, so each distinct residual is planned once. Scanned
// partitions without a residual fall under AlwaysTrue, skipped ones
// are left out. Groups are in order of first appearance.
func GroupByResidual(results []Result) ([]Group, error) {
	var groups []Group
	byHash := make(map[uint64][]int)

	for _, r := range results {
		var filter residual.Expr
		switch r.Decision {
		case Skip:
			continue
		case ScanAll:
			filter = residual.AlwaysTrue{}
		default:
			filter = r.Residual
		}

		h, err := residual.Fingerprint(filter)
		if err != nil {
			return nil, fmt.Errorf("partition %s: %w", r.Partition, err)
		}

		idx := slices.IndexFunc(byHash[h], func(i int) bool { return groups[i].Residual.Equals(filter) })
		if idx < 0 {
			byHash[h] = append(byHash[h], len(groups))
			groups = append(groups, Group{Residual: filter})
			idx = len(byHash[h]) - 1
		}

		g := &groups[byHash[h][idx]]
		g.Partitions = append(g.Partitions, r.Partition)
	}

	return groups, nil
}
