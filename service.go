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

package quarry

import (
	"context"
	"sync"

	"github.com/quarrydb/quarry/database"
	"github.com/quarrydb/quarry/repository"
	"github.com/quarrydb/quarry/types"

	"github.com/uptrace/bun"
)

// Service is a convenience facade over one entity's repository and its unit
// of work: each mutating call stages the change and commits immediately.
// Callers needing multi-entity commit boundaries use the repository and unit
// of work directly.
type Service[T repository.Entity] interface {
	// Get returns a detached snapshot of the entity, or nil when absent.
	Get(ctx context.Context, id int64) (*T, error)

	// Find returns the tracked instance of the entity, resolving repeated
	// lookups to the same in-memory instance.
	Find(ctx context.Context, id int64) (*T, error)

	// Page returns one page of entities plus the total collection count.
	Page(ctx context.Context, window types.Window) (*types.PageResult[T], error)

	// Search returns one page of entities matching the filter. The total
	// count reflects the unfiltered collection size.
	Search(ctx context.Context, window types.Window, filter *types.QueryFilter) (*types.PageResult[T], error)

	// SearchOrdered is Search with an ascending order column.
	SearchOrdered(ctx context.Context, window types.Window, filter *types.QueryFilter, orderBy string) (*types.PageResult[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// Update persists field changes of an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity.
	Delete(ctx context.Context, model *T) error

	// DeleteWhere removes every entity matching the filter at call time and
	// returns the number of removed rows.
	DeleteWhere(ctx context.Context, filter *types.QueryFilter) (int, error)

	// Repo exposes the underlying repository for staged, multi-step work.
	Repo() repository.Repository[T]

	// Unit exposes the unit of work shared by this service's repository.
	Unit() *repository.UnitOfWork

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() *bun.SelectQuery

	// InsertBuilder returns a Bun insert query builder for the entity.
	InsertBuilder() *bun.InsertQuery

	// UpdateBuilder returns a Bun update query builder for the entity.
	UpdateBuilder() *bun.UpdateQuery

	// DeleteBuilder returns a Bun delete query builder for the entity.
	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[T repository.Entity] struct {
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a default Service implementation backed by a fresh unit
// of work over the global database connection.
func NewService[T repository.Entity]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithUnit returns a Service bound to an existing unit of work.
func NewServiceWithUnit[T repository.Entity](uow *repository.UnitOfWork) Service[T] {
	s := &baseServiceImpl[T]{}
	s.once.Do(func() { s.repo = repository.NewRepository[T](uow) })
	return s
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() {
		s.repo = repository.NewRepository[T](repository.NewUnitOfWork(database.GetDB()))
	})
	return s.repo
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id int64) (*T, error) {
	return s.baseRepo().GetByID(ctx, id, types.UntrackedLoad)
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, id int64) (*T, error) {
	return s.baseRepo().GetByID(ctx, id, types.TrackedLoad)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, window types.Window) (*types.PageResult[T], error) {
	return s.baseRepo().List(ctx, window, types.UntrackedLoad)
}

func (s *baseServiceImpl[T]) Search(ctx context.Context, window types.Window, filter *types.QueryFilter) (*types.PageResult[T], error) {
	return s.baseRepo().ListWhere(ctx, window, filter, types.UntrackedLoad)
}

func (s *baseServiceImpl[T]) SearchOrdered(ctx context.Context, window types.Window, filter *types.QueryFilter, orderBy string) (*types.PageResult[T], error) {
	return s.baseRepo().ListOrdered(ctx, window, filter, orderBy, types.UntrackedLoad)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	repo := s.baseRepo()
	repo.AddAll(model)
	return repo.Commit(ctx)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	repo := s.baseRepo()
	repo.Update(model)
	return repo.Commit(ctx)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, model *T) error {
	repo := s.baseRepo()
	repo.Remove(model)
	return repo.Commit(ctx)
}

func (s *baseServiceImpl[T]) DeleteWhere(ctx context.Context, filter *types.QueryFilter) (int, error) {
	repo := s.baseRepo()
	removed, err := repo.RemoveWhere(ctx, filter)
	if err != nil {
		return 0, err
	}
	if err := repo.Commit(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *baseServiceImpl[T]) Repo() repository.Repository[T] {
	return s.baseRepo()
}

func (s *baseServiceImpl[T]) Unit() *repository.UnitOfWork {
	return s.baseRepo().Unit()
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
