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
	sq "github.com/Masterminds/squirrel"
)

// Predicate is a boolean SQL expression usable in a WHERE clause.
//
// ToSql renders the expression with '?' placeholders; arguments may be bun
// values such as bun.Ident and are formatted by bun when the query runs.
type Predicate interface {
	sq.Sqlizer
	And(right Predicate) Predicate
	Or(right Predicate) Predicate
	Not() Predicate
}

// absent is implemented by predicates that may carry no expression at all.
type absent interface {
	isAbsent() bool
}

// BooleanExpression is the Predicate produced by paths and combinators.
// A nil *BooleanExpression is a valid, absent predicate.
type BooleanExpression struct {
	expr sq.Sqlizer
}

var _ Predicate = (*BooleanExpression)(nil)

func newPredicate(expr sq.Sqlizer) *BooleanExpression {
	return &BooleanExpression{expr: expr}
}

// Expr wraps a raw SQL fragment as a predicate. Use ?TableAlias or bun.Ident
// arguments for identifiers.
func Expr(sql string, args ...any) Predicate {
	return newPredicate(sq.Expr(sql, args...))
}

func (e *BooleanExpression) isAbsent() bool {
	return e == nil || e.expr == nil
}

func (e *BooleanExpression) ToSql() (string, []any, error) {
	if e.isAbsent() {
		return "", nil, nil
	}
	return e.expr.ToSql()
}

// And returns e AND right. A nil operand yields the other one.
func (e *BooleanExpression) And(right Predicate) Predicate {
	return AllOf(e, right)
}

// Or returns e OR right. A nil operand yields the other one.
func (e *BooleanExpression) Or(right Predicate) Predicate {
	return AnyOf(e, right)
}

// Not negates e; the negation of an absent predicate stays absent.
func (e *BooleanExpression) Not() Predicate {
	if e.isAbsent() {
		return e
	}
	return newPredicate(sq.Expr("NOT (?)", e.expr))
}

// IsAbsent reports whether p contributes nothing to a WHERE clause: an untyped
// nil, a typed nil, or an empty BooleanBuilder.
func IsAbsent(p Predicate) bool {
	if p == nil {
		return true
	}
	if a, ok := p.(absent); ok {
		return a.isAbsent()
	}
	return false
}

func present(preds []Predicate) []Predicate {
	out := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if !IsAbsent(p) {
			out = append(out, p)
		}
	}
	return out
}

// AllOf combines the non-absent predicates with AND. It returns nil when none
// are left and the predicate itself when only one is.
func AllOf(preds ...Predicate) Predicate {
	parts := present(preds)
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	and := make(sq.And, 0, len(parts))
	for _, p := range parts {
		and = append(and, p)
	}
	return newPredicate(and)
}

// AnyOf combines the non-absent predicates with OR.
func AnyOf(preds ...Predicate) Predicate {
	parts := present(preds)
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	or := make(sq.Or, 0, len(parts))
	for _, p := range parts {
		or = append(or, p)
	}
	return newPredicate(or)
}

// When returns p if cond holds and nil otherwise.
func When(cond bool, p Predicate) Predicate {
	if !cond {
		return nil
	}
	return p
}

// IfNotZero builds a predicate from v unless v is the zero value.
//
//	query.IfNotZero(cond.Username, entity.QMember.Username.Eq)
func IfNotZero[V comparable](v V, fn func(V) Predicate) Predicate {
	var zero V
	if v == zero {
		return nil
	}
	return fn(v)
}

// IfPresent builds a predicate from *v unless v is nil.
func IfPresent[V any](v *V, fn func(V) Predicate) Predicate {
	if v == nil {
		return nil
	}
	return fn(*v)
}

// BooleanBuilder accumulates predicates in place. The zero value is empty
// and absent.
type BooleanBuilder struct {
	value Predicate
}

var _ Predicate = (*BooleanBuilder)(nil)

// NewBooleanBuilder returns a builder seeded with the given predicates joined by AND.
func NewBooleanBuilder(preds ...Predicate) *BooleanBuilder {
	return &BooleanBuilder{value: AllOf(preds...)}
}

func (b *BooleanBuilder) isAbsent() bool {
	return b == nil || IsAbsent(b.value)
}

// HasValue reports whether any predicate has been added.
func (b *BooleanBuilder) HasValue() bool {
	return !b.isAbsent()
}

// Value returns the accumulated predicate or nil.
func (b *BooleanBuilder) Value() Predicate {
	if b.isAbsent() {
		return nil
	}
	return b.value
}

func (b *BooleanBuilder) ToSql() (string, []any, error) {
	if b.isAbsent() {
		return "", nil, nil
	}
	return b.value.ToSql()
}

// And appends right with AND and returns the builder.
func (b *BooleanBuilder) And(right Predicate) Predicate {
	b.value = AllOf(b.value, right)
	return b
}

// Or appends right with OR and returns the builder.
func (b *BooleanBuilder) Or(right Predicate) Predicate {
	b.value = AnyOf(b.value, right)
	return b
}

// Not negates the accumulated predicate in place.
func (b *BooleanBuilder) Not() Predicate {
	if !b.isAbsent() {
		b.value = b.value.Not()
	}
	return b
}
