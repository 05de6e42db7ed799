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
	"iter"

	"github.com/quarrydb/quarry/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Entity is the contract every repository entity must satisfy: a unique
// integer identity. Identity is the only invariant this layer relies on
// for lookup and identity-map resolution.
type Entity interface {
	GetID() int64
}

// Reader defines paginated and single-entity read operations. Every read
// takes a LoadStrategy choosing tracked or untracked materialization.
type Reader[T Entity] interface {
	// GetByID returns the entity with the given identity, or (nil, nil)
	// when no row matches. Untracked lookups fail with ErrMultipleResults
	// when more than one row shares the identity; tracked lookups resolve
	// through the identity map and may not touch the store at all.
	GetByID(ctx context.Context, id int64, strategy types.LoadStrategy) (*T, error)

	// List returns one page of entities plus the total collection count.
	List(ctx context.Context, window types.Window, strategy types.LoadStrategy) (*types.PageResult[T], error)

	// ListWhere restricts the page to rows matching the filter. The total
	// count still reflects the unfiltered collection size.
	ListWhere(ctx context.Context, window types.Window, filter *types.QueryFilter, strategy types.LoadStrategy) (*types.PageResult[T], error)

	// ListOrdered additionally sorts ascending by the given column before
	// the filter and window are applied.
	ListOrdered(ctx context.Context, window types.Window, filter *types.QueryFilter, orderBy string, strategy types.LoadStrategy) (*types.PageResult[T], error)
}

// Writer defines staging operations. Staged changes touch only the pending
// change set of the unit of work; no store I/O happens before Commit, except
// the RemoveWhere snapshot query.
type Writer[T Entity] interface {
	Add(entity *T)

	AddAll(entities []*T)

	// AddEach stages entities lazily: each input element is staged exactly
	// when the consumer pulls the corresponding output element. The returned
	// sequence is single-pass.
	AddEach(entities iter.Seq[*T]) iter.Seq[*T]

	Update(entity *T)

	UpdateAll(entities []*T)

	// UpdateEach is the lazy staging counterpart of AddEach for updates.
	UpdateEach(entities iter.Seq[*T]) iter.Seq[*T]

	Remove(entity *T)

	// RemoveWhere snapshots the rows matching the filter at call time and
	// stages each for removal. Rows inserted afterwards are unaffected.
	// It returns the number of staged removals.
	RemoveWhere(ctx context.Context, filter *types.QueryFilter) (int, error)
}

// Committer flushes or inspects the pending change set of the unit of work.
type Committer interface {
	// Commit writes all staged changes to the store in stage order inside a
	// single transaction. An empty change set is a successful no-op. On
	// failure a *PersistenceError is returned and the change set is kept.
	Commit(ctx context.Context) error

	// Pending reports the number of staged changes.
	Pending() int

	// Discard drops all staged changes without touching the store.
	Discard()
}

// Repository combines reads, staged writes, and commit over one entity type,
// and exposes Bun query builders for advanced use cases.
type Repository[T Entity] interface {
	Reader[T]
	Writer[T]
	Committer
	Unit() *UnitOfWork
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
