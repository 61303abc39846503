/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package query

import (
	"context"
	"fmt"
	"slices"

	"github.com/uptrace/bun"
)

// Query is a type-safe SELECT over entity T. Every builder method returns a
// new Query; a Query value is never modified after construction.
type Query[T any] struct {
	factory *Factory
	from    *EntityPath[T]
	where   []Predicate
	orders  []OrderSpecifier
	fetches []*Relation
	joins   []*Relation
	limit   int
	offset  int
}

// SelectFrom starts a query selecting whole T rows.
//
//	query.SelectFrom(f, entity.QMember.EntityPath).
//		Where(entity.QMember.Username.Eq("member1")).
//		FetchOne(ctx)
func SelectFrom[T any](f *Factory, from *EntityPath[T]) *Query[T] {
	return &Query[T]{factory: f, from: from}
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.where = slices.Clone(q.where)
	c.orders = slices.Clone(q.orders)
	c.fetches = slices.Clone(q.fetches)
	c.joins = slices.Clone(q.joins)
	return &c
}

// Where adds predicates combined with AND. Nil and otherwise absent
// predicates are dropped, so optional conditions can be passed inline.
func (q *Query[T]) Where(preds ...Predicate) *Query[T] {
	c := q.clone()
	c.where = append(c.where, present(preds)...)
	return c
}

func (q *Query[T]) OrderBy(orders ...OrderSpecifier) *Query[T] {
	c := q.clone()
	c.orders = append(c.orders, orders...)
	return c
}

// Limit caps the number of rows; n <= 0 removes the cap.
func (q *Query[T]) Limit(n int) *Query[T] {
	c := q.clone()
	c.limit = max(n, 0)
	return c
}

func (q *Query[T]) Offset(n int) *Query[T] {
	c := q.clone()
	c.offset = max(n, 0)
	return c
}

// FetchJoin joins the association and loads it into the result rows in the
// same statement.
func (q *Query[T]) FetchJoin(rel Joinable) *Query[T] {
	spec := rel.JoinSpec()
	if spec == nil || containsRelation(q.fetches, spec) {
		return q
	}
	c := q.clone()
	c.fetches = append(c.fetches, spec)
	return c
}

// Join joins the association for filtering or projection without loading it.
func (q *Query[T]) Join(rel Joinable) *Query[T] {
	spec := rel.JoinSpec()
	if spec == nil || containsRelation(q.joins, spec) {
		return q
	}
	c := q.clone()
	c.joins = append(c.joins, spec)
	return c
}

func containsRelation(rels []*Relation, r *Relation) bool {
	return slices.ContainsFunc(rels, func(x *Relation) bool { return x.Name == r.Name && x.SourceAlias == r.SourceAlias })
}

// Predicate returns the combined WHERE predicate, or nil.
func (q *Query[T]) Predicate() Predicate {
	return AllOf(q.where...)
}

func joinRelation(sel *bun.SelectQuery, kind string, r *Relation) *bun.SelectQuery {
	return sel.Join(kind+" ? AS ?", bun.Ident(r.Table), bun.Ident(r.Alias)).
		JoinOn("?.? = ?.?", bun.Ident(r.Alias), bun.Ident(r.RefColumn), bun.Ident(r.SourceAlias), bun.Ident(r.Column))
}

func (q *Query[T]) build(model any, fetch bool) (*bun.SelectQuery, error) {
	sel := q.factory.db.NewSelect().Model(model)
	for _, r := range q.fetches {
		if fetch {
			sel = sel.Relation(r.Name)
		} else {
			// Relation renders a LEFT JOIN; counts and projections must
			// keep the rows it keeps.
			sel = joinRelation(sel, "LEFT JOIN", r)
		}
	}
	for _, r := range q.joins {
		if containsRelation(q.fetches, r) {
			continue
		}
		sel = joinRelation(sel, "JOIN", r)
	}
	if p := q.Predicate(); p != nil {
		text, args, err := p.ToSql()
		if err != nil {
			return nil, fmt.Errorf("render predicate: %w", err)
		}
		sel = sel.Where(text, args...)
	}
	for _, o := range q.orders {
		sel = o.apply(sel)
	}
	if q.limit > 0 {
		sel = sel.Limit(q.limit)
	}
	if q.offset > 0 {
		sel = sel.Offset(q.offset)
	}
	return sel, nil
}

// Build returns the bun query this Query renders to, for callers that need
// bun features the builder does not expose.
func (q *Query[T]) Build() (*bun.SelectQuery, error) {
	return q.build((*T)(nil), true)
}

// Fetch returns all matching rows; no match yields an empty slice.
func (q *Query[T]) Fetch(ctx context.Context) ([]*T, error) {
	rows := make([]*T, 0)
	sel, err := q.build(&rows, true)
	if err != nil {
		return nil, err
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchOne returns the only matching row. It fails with ErrNoResult when
// nothing matches and with ErrNonUniqueResult when more than one row does.
// A limit set by the caller is replaced, so Limit(1) cannot hide a second
// match; the offset still applies.
func (q *Query[T]) FetchOne(ctx context.Context) (*T, error) {
	rows, err := q.Limit(2).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNoResult
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNonUniqueResult, q.String())
	}
}

// FetchFirst returns the first matching row or ErrNoResult.
func (q *Query[T]) FetchFirst(ctx context.Context) (*T, error) {
	rows, err := q.Limit(1).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoResult
	}
	return rows[0], nil
}

// FetchCount counts matching rows, ignoring limit, offset and ordering.
func (q *Query[T]) FetchCount(ctx context.Context) (int, error) {
	c := q.clone()
	c.orders, c.limit, c.offset = nil, 0, 0
	sel, err := c.build((*T)(nil), false)
	if err != nil {
		return 0, err
	}
	return sel.Count(ctx)
}

// Project scans the selected columns into dest, a pointer to a slice of
// structs whose bun tags name the selection aliases. Fetch joins become left
// joins.
func (q *Query[T]) Project(ctx context.Context, dest any, selections ...Selection) error {
	if len(selections) == 0 {
		return fmt.Errorf("project %s: no selections", q.from.table)
	}
	sel, err := q.build((*T)(nil), false)
	if err != nil {
		return err
	}
	for _, s := range selections {
		sel = sel.ColumnExpr(s.query, s.args...)
	}
	return sel.Scan(ctx, dest)
}

// String renders the SQL text of the query with arguments inlined.
func (q *Query[T]) String() string {
	sel, err := q.Build()
	if err != nil {
		return fmt.Sprintf("<invalid query: %v>", err)
	}
	return sel.String()
}
