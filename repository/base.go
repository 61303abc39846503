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

package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/querykit/query"
	"github.com/tomoncle/querykit/types"
)

type baseRepositoryImpl[T any] struct {
	db      bun.IDB
	factory *query.Factory
	root    *query.EntityPath[T]
}

// NewRepository returns a generic repository backed by db, which may be a
// *bun.DB or a transaction. The root path is derived from T's bun model.
func NewRepository[T any](db bun.IDB) Repository[T] {
	return newBaseRepository(query.NewFactory(db), query.EntityPathOf[T](db))
}

// NewRepositoryWithPath returns a repository using an existing factory and
// a generated root path.
func NewRepositoryWithPath[T any](factory *query.Factory, root *query.EntityPath[T]) Repository[T] {
	return newBaseRepository(factory, root)
}

func newBaseRepository[T any](factory *query.Factory, root *query.EntityPath[T]) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{db: factory.DB(), factory: factory, root: root}
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) Factory() *query.Factory { return r.factory }

func (r *baseRepositoryImpl[T]) Select() *query.Query[T] {
	return query.SelectFrom(r.factory, r.root)
}

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	entity := new(T)
	err := r.db.NewSelect().Model(entity).Where("?TableAlias.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	return r.Select().Fetch(ctx)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, preds ...query.Predicate) ([]*T, error) {
	return r.Select().Where(preds...).Fetch(ctx)
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, preds ...query.Predicate) (*T, error) {
	return r.Select().Where(preds...).FetchOne(ctx)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, preds ...query.Predicate) (int, error) {
	return r.Select().Where(preds...).FetchCount(ctx)
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, template string, params map[string]any) ([]*T, error) {
	return query.CreateQuery[T](r.factory, template).SetParameters(params).GetResultList(ctx)
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	q := r.Select().Where(pageRequest.GetFilter())
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := q.FetchCount(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	items, err := q.OrderBy(pageRequest.GetOrders()...).
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = items
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	return r.create(ctx, r.db, entity)
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, r.db, fields, duplicateKeys, entity)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	_, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	return r.delete(ctx, r.db, id)
}

func (r *baseRepositoryImpl[T]) CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error {
	return r.create(ctx, tx, entity)
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, tx, fields, duplicateKeys, entity)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	_, err := tx.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return r.delete(ctx, tx, id)
}

func (r *baseRepositoryImpl[T]) create(ctx context.Context, db bun.IDB, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	q := db.NewInsert().Model(&entities)
	// bun renders "() VALUES ()" for a model whose only columns are
	// defaulted keys. Naming the keys makes it send DEFAULT, or NULL on sqlite.
	if table := db.Dialect().Tables().Get(reflect.TypeFor[T]()); len(table.DataFields) == 0 {
		for _, pk := range table.PKs {
			q = q.Column(pk.Name)
		}
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) delete(ctx context.Context, db bun.IDB, id any) error {
	_, err := db.NewDelete().Model((*T)(nil)).Where("?TableAlias.id = ?", id).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) multipleUpsert(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entities []*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entities) == 0 {
		return nil
	}

	features := db.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		return r.upsertOnConflict(ctx, db.NewInsert(), fields, duplicateKeys, entities)
	case features.Has(feature.InsertOnDuplicateKey):
		return r.upsertOnDuplicateKey(ctx, db.NewInsert(), fields, entities)
	default:
		return r.upsertFallback(ctx, db, entities)
	}
}

func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, 2*len(fields))
	for _, field := range fields {
		sets = append(sets, "? = VALUES(?)")
		args = append(args, bun.Ident(field), bun.Ident(field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE "+strings.Join(sets, ", "), args...).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{"id"}
	}
	keys := make([]string, 0, len(duplicateKeys))
	keyArgs := make([]any, 0, len(duplicateKeys))
	for _, key := range duplicateKeys {
		keys = append(keys, "?")
		keyArgs = append(keyArgs, bun.Ident(key))
	}
	q := insertQuery.
		Model(&entities).
		On("CONFLICT ("+strings.Join(keys, ", ")+") DO UPDATE", keyArgs...)
	for _, field := range fields {
		q = q.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, db bun.IDB, entities []*T) error {
	for _, entity := range entities {
		if _, err := db.NewInsert().Model(entity).Exec(ctx); err != nil {
			if _, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx); updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %w", err, updateErr)
			}
		}
	}
	return nil
}
