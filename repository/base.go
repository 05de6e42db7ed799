/*
 * Copyright 2026 quarrydb.
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
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"reflect"

	"github.com/quarrydb/quarry/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T Entity] struct {
	uow *UnitOfWork
}

// NewRepository returns a generic repository over one entity type, bound to
// the provided unit of work. Repositories for different entity types may
// share a unit of work; they then share its change set and commit boundary.
func NewRepository[T Entity](uow *UnitOfWork) Repository[T] {
	return &baseRepositoryImpl[T]{uow: uow}
}

func (r *baseRepositoryImpl[T]) Unit() *UnitOfWork { return r.uow }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.uow.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.uow.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.uow.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.uow.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.uow.db.NewDelete() }

func (r *baseRepositoryImpl[T]) key(id int64) identityKey {
	return identityKey{typ: reflect.TypeFor[T](), id: id}
}

func (r *baseRepositoryImpl[T]) count(ctx context.Context) (int, error) {
	return r.uow.db.NewSelect().Model((*T)(nil)).Count(ctx)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, window types.Window, strategy types.LoadStrategy) (*types.PageResult[T], error) {
	return r.list(ctx, window, nil, "", strategy)
}

func (r *baseRepositoryImpl[T]) ListWhere(ctx context.Context, window types.Window, filter *types.QueryFilter, strategy types.LoadStrategy) (*types.PageResult[T], error) {
	return r.list(ctx, window, filter, "", strategy)
}

func (r *baseRepositoryImpl[T]) ListOrdered(ctx context.Context, window types.Window, filter *types.QueryFilter, orderBy string, strategy types.LoadStrategy) (*types.PageResult[T], error) {
	return r.list(ctx, window, filter, orderBy, strategy)
}

func (r *baseRepositoryImpl[T]) list(ctx context.Context, window types.Window, filter *types.QueryFilter, orderBy string, strategy types.LoadStrategy) (*types.PageResult[T], error) {
	// Total deliberately counts the unfiltered collection, even when a
	// filter is supplied. Count-before-filter is part of the contract.
	total, err := r.count(ctx)
	if err != nil {
		return nil, err
	}
	page := types.NewPageResult[T](window, total)
	if total == 0 || window.Take() == 0 {
		return page, nil
	}

	var entities []*T
	query := r.uow.db.NewSelect().Model(&entities)
	if orderBy != "" {
		query = query.OrderExpr("? ASC", bun.Ident(orderBy))
	}
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Offset(window.Skip()).Limit(window.Take()).Scan(ctx); err != nil {
		return nil, err
	}
	if strategy == types.TrackedLoad {
		r.resolveAll(entities)
	}
	page.Items = entities
	return page, nil
}

// resolveAll applies identity-map resolution to a freshly scanned page:
// rows already resident in the unit of work are swapped for their resident
// instance, new rows are registered.
func (r *baseRepositoryImpl[T]) resolveAll(entities []*T) {
	for i, entity := range entities {
		key := r.key((*entity).GetID())
		if model, ok := r.uow.resident(key); ok {
			entities[i] = model.(*T)
		} else {
			r.uow.track(key, entity)
		}
	}
}

func (r *baseRepositoryImpl[T]) GetByID(ctx context.Context, id int64, strategy types.LoadStrategy) (*T, error) {
	if strategy == types.TrackedLoad {
		return r.getTracked(ctx, id)
	}
	return r.getUntracked(ctx, id)
}

func (r *baseRepositoryImpl[T]) getTracked(ctx context.Context, id int64) (*T, error) {
	if model, ok := r.uow.resident(r.key(id)); ok {
		return model.(*T), nil
	}
	var entity T
	err := r.uow.db.NewSelect().Model(&entity).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.uow.track(r.key(id), &entity)
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) getUntracked(ctx context.Context, id int64) (*T, error) {
	var matches []*T
	err := r.uow.db.NewSelect().Model(&matches).Where("id = ?", id).Limit(2).Scan(ctx)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: id %d", ErrMultipleResults, id)
	}
}

func (r *baseRepositoryImpl[T]) Add(entity *T) {
	r.uow.stage(OpInsert, entity)
}

func (r *baseRepositoryImpl[T]) AddAll(entities []*T) {
	for _, entity := range entities {
		r.Add(entity)
	}
}

func (r *baseRepositoryImpl[T]) AddEach(entities iter.Seq[*T]) iter.Seq[*T] {
	return r.stageEach(OpInsert, entities)
}

func (r *baseRepositoryImpl[T]) Update(entity *T) {
	r.uow.stage(OpUpdate, entity)
}

func (r *baseRepositoryImpl[T]) UpdateAll(entities []*T) {
	for _, entity := range entities {
		r.Update(entity)
	}
}

func (r *baseRepositoryImpl[T]) UpdateEach(entities iter.Seq[*T]) iter.Seq[*T] {
	return r.stageEach(OpUpdate, entities)
}

// stageEach wraps the input in a single-pass sequence that stages each
// element exactly when the consumer pulls it. Breaking out early leaves the
// remaining elements unstaged.
func (r *baseRepositoryImpl[T]) stageEach(kind OpKind, entities iter.Seq[*T]) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for entity := range entities {
			r.uow.stage(kind, entity)
			if !yield(entity) {
				return
			}
		}
	}
}

func (r *baseRepositoryImpl[T]) Remove(entity *T) {
	r.uow.evict(r.key((*entity).GetID()))
	r.uow.stage(OpDelete, entity)
}

func (r *baseRepositoryImpl[T]) RemoveWhere(ctx context.Context, filter *types.QueryFilter) (int, error) {
	// Snapshot the matching rows now; rows inserted after this call are not
	// part of the staged removal.
	var matches []*T
	query := r.uow.db.NewSelect().Model(&matches)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil {
		return 0, err
	}
	for _, match := range matches {
		r.Remove(match)
	}
	return len(matches), nil
}

func (r *baseRepositoryImpl[T]) Commit(ctx context.Context) error {
	return r.uow.Commit(ctx)
}

func (r *baseRepositoryImpl[T]) Pending() int { return r.uow.Pending() }

func (r *baseRepositoryImpl[T]) Discard() { r.uow.Discard() }
