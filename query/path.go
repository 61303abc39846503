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
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/uptrace/bun"
)

// Relation describes a to-one association from a source entity to a target
// entity, as declared by the bun relation field named Name.
type Relation struct {
	Name        string // bun relation field, e.g. "Team"
	Table       string // target table
	Alias       string // target alias, bun uses the lower-cased field name
	SourceAlias string
	Column      string // foreign key column on the source
	RefColumn   string // referenced column on the target
}

// Joinable is implemented by entity paths that can be joined to a query.
type Joinable interface {
	JoinSpec() *Relation
}

// EntityPath is the root metadata of one aliased entity.
type EntityPath[T any] struct {
	table    string
	alias    string
	relation *Relation
}

// NewEntityPath returns the metadata for table T under alias. The alias must
// match the alias declared in the bun model tag.
func NewEntityPath[T any](table, alias string) *EntityPath[T] {
	return &EntityPath[T]{table: table, alias: alias}
}

// NewRelationPath returns the metadata of the to-one association name on
// source. The target is aliased the way bun aliases relation joins.
func NewRelationPath[T any, S any](source *EntityPath[S], name, table, column, refColumn string) *EntityPath[T] {
	alias := strings.ToLower(name)
	return &EntityPath[T]{
		table: table,
		alias: alias,
		relation: &Relation{
			Name:        name,
			Table:       table,
			Alias:       alias,
			SourceAlias: source.alias,
			Column:      column,
			RefColumn:   refColumn,
		},
	}
}

func (p *EntityPath[T]) Table() string { return p.table }

func (p *EntityPath[T]) Alias() string { return p.alias }

// JoinSpec returns the association this path was reached through, or nil for
// a root entity.
func (p *EntityPath[T]) JoinSpec() *Relation { return p.relation }

// Column is an aliased column reference.
type Column struct {
	alias string
	name  string
}

func (c Column) Alias() string { return c.alias }

func (c Column) Name() string { return c.name }

func (c Column) expr(op string, args ...any) Predicate {
	return newPredicate(sq.Expr("?.? "+op, append([]any{bun.Ident(c.alias), bun.Ident(c.name)}, args...)...))
}

// As selects the column under a result name, for projections.
func (c Column) As(name string) Selection {
	return Selection{query: "?.? AS ?", args: []any{bun.Ident(c.alias), bun.Ident(c.name), bun.Ident(name)}}
}

// Asc orders by the column ascending.
func (c Column) Asc() OrderSpecifier { return OrderSpecifier{column: c} }

// Desc orders by the column descending.
func (c Column) Desc() OrderSpecifier { return OrderSpecifier{column: c, desc: true} }

// IsNull tests the column for NULL.
func (c Column) IsNull() Predicate { return c.expr("IS NULL") }

// IsNotNull tests the column for NOT NULL.
func (c Column) IsNotNull() Predicate { return c.expr("IS NOT NULL") }

// ComparablePath is a typed column supporting equality and membership tests.
type ComparablePath[V any] struct {
	Column
}

// NewComparablePath returns the path of column on parent.
func NewComparablePath[V any, T any](parent *EntityPath[T], column string) *ComparablePath[V] {
	return &ComparablePath[V]{Column: Column{alias: parent.alias, name: column}}
}

func (p *ComparablePath[V]) Eq(v V) Predicate { return p.expr("= ?", v) }

func (p *ComparablePath[V]) Ne(v V) Predicate { return p.expr("<> ?", v) }

// In matches any of values; an empty list matches nothing.
func (p *ComparablePath[V]) In(values ...V) Predicate {
	if len(values) == 0 {
		return newPredicate(sq.Expr("1 = 0"))
	}
	return p.expr("IN (?)", bun.In(values))
}

// NotIn matches none of values; an empty list matches everything.
func (p *ComparablePath[V]) NotIn(values ...V) Predicate {
	if len(values) == 0 {
		return newPredicate(sq.Expr("1 = 1"))
	}
	return p.expr("NOT IN (?)", bun.In(values))
}

// EqColumn compares with another column, e.g. across a join.
func (p *ComparablePath[V]) EqColumn(other *ComparablePath[V]) Predicate {
	return p.expr("= ?.?", bun.Ident(other.alias), bun.Ident(other.name))
}

// Number is the set of types accepted by NumberPath.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NumberPath adds ordering comparisons to a numeric column.
type NumberPath[N Number] struct {
	ComparablePath[N]
}

func NewNumberPath[N Number, T any](parent *EntityPath[T], column string) *NumberPath[N] {
	return &NumberPath[N]{ComparablePath: ComparablePath[N]{Column: Column{alias: parent.alias, name: column}}}
}

func (p *NumberPath[N]) Gt(v N) Predicate { return p.expr("> ?", v) }

// Goe is greater or equal.
func (p *NumberPath[N]) Goe(v N) Predicate { return p.expr(">= ?", v) }

func (p *NumberPath[N]) Lt(v N) Predicate { return p.expr("< ?", v) }

// Loe is less or equal.
func (p *NumberPath[N]) Loe(v N) Predicate { return p.expr("<= ?", v) }

// Between is inclusive on both ends.
func (p *NumberPath[N]) Between(from, to N) Predicate {
	return p.expr("BETWEEN ? AND ?", from, to)
}

// StringPath adds pattern matching to a text column.
type StringPath struct {
	ComparablePath[string]
}

func NewStringPath[T any](parent *EntityPath[T], column string) *StringPath {
	return &StringPath{ComparablePath: ComparablePath[string]{Column: Column{alias: parent.alias, name: column}}}
}

// Like matches pattern as given, wildcards included.
func (p *StringPath) Like(pattern string) Predicate { return p.expr("LIKE ?", pattern) }

// Contains matches s anywhere. Wildcards in s are not escaped.
func (p *StringPath) Contains(s string) Predicate { return p.Like("%" + s + "%") }

func (p *StringPath) StartsWith(s string) Predicate { return p.Like(s + "%") }

func (p *StringPath) EndsWith(s string) Predicate { return p.Like("%" + s) }

func (p *StringPath) EqualsIgnoreCase(s string) Predicate {
	return newPredicate(sq.Expr("LOWER(?.?) = LOWER(?)", bun.Ident(p.alias), bun.Ident(p.name), s))
}

// OrderSpecifier is one ORDER BY term.
type OrderSpecifier struct {
	column Column
	desc   bool
}

func (o OrderSpecifier) apply(q *bun.SelectQuery) *bun.SelectQuery {
	if o.desc {
		return q.OrderExpr("?.? DESC", bun.Ident(o.column.alias), bun.Ident(o.column.name))
	}
	return q.OrderExpr("?.? ASC", bun.Ident(o.column.alias), bun.Ident(o.column.name))
}

// Selection is one projected column.
type Selection struct {
	query string
	args  []any
}

// EntityPathOf derives the root path of T from its bun model, for code that
// has no generated descriptor.
func EntityPathOf[T any](db bun.IDB) *EntityPath[T] {
	t := db.Dialect().Tables().Get(reflect.TypeFor[T]())
	return NewEntityPath[T](t.Name, t.Alias)
}
