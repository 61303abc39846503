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

package querykit

import (
	"context"
	"sync"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/database"
	"github.com/tomoncle/querykit/query"
	"github.com/tomoncle/querykit/repository"
	"github.com/tomoncle/querykit/types"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities matching every non-nil predicate.
	List(ctx context.Context, preds ...query.Predicate) ([]*T, error)

	// FindOne returns the only entity matching the predicates.
	FindOne(ctx context.Context, preds ...query.Predicate) (*T, error)

	Count(ctx context.Context, preds ...query.Predicate) (int, error)

	// Query runs a literal template with :name parameters.
	Query(ctx context.Context, template string, params map[string]any) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Update modifies an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error

	SaveOrUpdateWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, model ...*T) error

	UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error

	DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error

	// Select starts a typed query over T.
	Select() *query.Query[T]

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() *bun.SelectQuery

	InsertBuilder() *bun.InsertQuery

	UpdateBuilder() *bun.UpdateQuery

	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[T any] struct {
	db   func() bun.IDB
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a Service using the generic repository backed by the
// global database connection. The connection is resolved on first use.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{db: func() bun.IDB { return database.GetDB() }}
}

// NewServiceWithDB returns a Service bound to db.
func NewServiceWithDB[T any](db bun.IDB) Service[T] {
	return &baseServiceImpl[T]{db: func() bun.IDB { return db }}
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() { s.repo = repository.NewRepository[T](s.db()) })
	return s.repo
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.baseRepo().Create(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.baseRepo().Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().GetOne(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, preds ...query.Predicate) ([]*T, error) {
	return s.baseRepo().List(ctx, preds...)
}

func (s *baseServiceImpl[T]) FindOne(ctx context.Context, preds ...query.Predicate) (*T, error) {
	return s.baseRepo().FindOne(ctx, preds...)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, preds ...query.Predicate) (int, error) {
	return s.baseRepo().Count(ctx, preds...)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, template string, params map[string]any) ([]*T, error) {
	return s.baseRepo().Query(ctx, template, params)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.baseRepo().Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.baseRepo().Delete(ctx, id)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, page)
}

func (s *baseServiceImpl[T]) SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error {
	return s.baseRepo().CreateWithTx(ctx, tx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdateWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, model ...*T) error {
	return s.baseRepo().UpsertWithTx(ctx, tx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error {
	return s.baseRepo().UpdateWithTx(ctx, tx, model)
}

func (s *baseServiceImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return s.baseRepo().DeleteWithTx(ctx, tx, id)
}

func (s *baseServiceImpl[T]) Select() *query.Query[T] {
	return s.baseRepo().Select()
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.baseRepo().NewSelect()
}

func (s *baseServiceImpl[T]) InsertBuilder() *bun.InsertQuery {
	return s.baseRepo().NewInsert()
}

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery {
	return s.baseRepo().NewUpdate()
}

func (s *baseServiceImpl[T]) DeleteBuilder() *bun.DeleteQuery {
	return s.baseRepo().NewDelete()
}
