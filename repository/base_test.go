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

package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quarrydb/quarry/repository"
	"github.com/quarrydb/quarry/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Gadget struct {
	bun.BaseModel `bun:"table:gadgets,alias:g"`

	ID        int64            `bun:"id,pk,autoincrement" json:"id"`
	Code      string           `bun:"code,notnull,unique" json:"code"`
	Label     string           `bun:"label" json:"label"`
	Stock     int              `bun:"stock" json:"stock"`
	Attrs     types.JsonObject `bun:"attrs" json:"attrs"`
	CreatedAt time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func (g Gadget) GetID() int64 { return g.ID }

// Reading has a deliberately non-unique id column, to exercise the
// single-row lookup assertion.
type Reading struct {
	bun.BaseModel `bun:"table:readings,alias:r"`

	ID    int64 `bun:"id" json:"id"`
	Value int   `bun:"value" json:"value"`
}

func (r Reading) GetID() int64 { return r.ID }

var memCounter atomic.Int64

func newTestDB(t *testing.T, models ...interface{}) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", memCounter.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	// Keep at least one connection open so the memory database survives.
	sqldb.SetMaxIdleConns(1000)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}
	return db
}

func seedGadgets(t *testing.T, db *bun.DB, n int) []*Gadget {
	t.Helper()

	gadgets := make([]*Gadget, 0, n)
	for i := 1; i <= n; i++ {
		gadgets = append(gadgets, &Gadget{
			ID:    int64(i),
			Code:  fmt.Sprintf("G-%03d", i),
			Label: fmt.Sprintf("gadget %d", i),
			Stock: i,
			Attrs: types.JsonObject{"seq": float64(i)},
		})
	}
	_, err := db.NewInsert().Model(&gadgets).Exec(context.Background())
	require.NoError(t, err)
	return gadgets
}

func newGadgetRepo(t *testing.T) (repository.Repository[Gadget], *bun.DB) {
	t.Helper()
	db := newTestDB(t, (*Gadget)(nil))
	return repository.NewRepository[Gadget](repository.NewUnitOfWork(db)), db
}

func TestListWindowAndTotal(t *testing.T) {
	repo, db := newGadgetRepo(t)
	seedGadgets(t, db, 7)
	ctx := context.Background()

	page, err := repo.List(ctx, types.NewWindow(2, 3), types.UntrackedLoad)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	assert.Len(t, page.Items, 3)

	// A zero take yields an empty page but still reports the total.
	page, err = repo.List(ctx, types.NewWindow(0, 0), types.UntrackedLoad)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	assert.Empty(t, page.Items)

	// Skipping past the end yields an empty page.
	page, err = repo.List(ctx, types.NewWindow(100, 5), types.UntrackedLoad)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	assert.Empty(t, page.Items)

	// Negative values are clamped.
	page, err = repo.List(ctx, types.NewWindow(-5, 4), types.UntrackedLoad)
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)
}

func TestListWhereCountsUnfiltered(t *testing.T) {
	repo, db := newGadgetRepo(t)
	seedGadgets(t, db, 7)
	ctx := context.Background()

	filter := types.NewQueryFilter("stock >= ?", 5)
	page, err := repo.ListWhere(ctx, types.NewWindow(0, 10), filter, types.UntrackedLoad)
	require.NoError(t, err)

	// Three rows satisfy the filter, but the total reflects the whole
	// collection. This mismatch is part of the contract.
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 7, page.Total)
	for _, g := range page.Items {
		assert.GreaterOrEqual(t, g.Stock, 5)
	}
}

func TestListOrdered(t *testing.T) {
	repo, db := newGadgetRepo(t)
	ctx := context.Background()

	rows := []*Gadget{
		{Code: "ZZ", Stock: 1},
		{Code: "AA", Stock: 2},
		{Code: "MM", Stock: 3},
	}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	require.NoError(t, err)

	page, err := repo.ListOrdered(ctx, types.NewWindow(0, 10), nil, "code", types.UntrackedLoad)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "AA", page.Items[0].Code)
	assert.Equal(t, "MM", page.Items[1].Code)
	assert.Equal(t, "ZZ", page.Items[2].Code)
}

func TestGetByIDAbsent(t *testing.T) {
	repo, _ := newGadgetRepo(t)
	ctx := context.Background()

	for _, strategy := range []types.LoadStrategy{types.TrackedLoad, types.UntrackedLoad} {
		got, err := repo.GetByID(ctx, 12345, strategy)
		require.NoError(t, err)
		assert.Nil(t, got, "strategy %s", strategy)
	}
}

func TestGetByIDTrackedIdentity(t *testing.T) {
	repo, db := newGadgetRepo(t)
	seeded := seedGadgets(t, db, 3)
	ctx := context.Background()
	id := seeded[0].ID

	first, err := repo.GetByID(ctx, id, types.TrackedLoad)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, id, types.TrackedLoad)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// A tracked list resolves the already resident row to the same instance.
	page, err := repo.List(ctx, types.NewWindow(0, 10), types.TrackedLoad)
	require.NoError(t, err)
	var found bool
	for _, g := range page.Items {
		if g.ID == id {
			assert.Same(t, first, g)
			found = true
		}
	}
	assert.True(t, found)

	// Untracked reads materialize a fresh copy every time.
	u1, err := repo.GetByID(ctx, id, types.UntrackedLoad)
	require.NoError(t, err)
	u2, err := repo.GetByID(ctx, id, types.UntrackedLoad)
	require.NoError(t, err)
	assert.NotSame(t, u1, u2)
	assert.NotSame(t, first, u1)
}

func TestGetByIDMultipleResults(t *testing.T) {
	db := newTestDB(t, (*Reading)(nil))
	repo := repository.NewRepository[Reading](repository.NewUnitOfWork(db))
	ctx := context.Background()

	rows := []*Reading{{ID: 1, Value: 10}, {ID: 1, Value: 20}}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, 1, types.UntrackedLoad)
	assert.ErrorIs(t, err, repository.ErrMultipleResults)
}

func TestAddEachLazyStaging(t *testing.T) {
	repo, db := newGadgetRepo(t)
	ctx := context.Background()

	input := []*Gadget{
		{Code: "L-1", Stock: 1},
		{Code: "L-2", Stock: 2},
		{Code: "L-3", Stock: 3},
	}

	// Consuming only the first yielded element stages exactly one record.
	for range repo.AddEach(gadgetSeq(input)) {
		break
	}
	assert.Equal(t, 1, repo.Pending())
	repo.Discard()

	// Full consumption stages everything, in input order.
	staged := make([]*Gadget, 0, len(input))
	for g := range repo.AddEach(gadgetSeq(input)) {
		staged = append(staged, g)
	}
	assert.Equal(t, input, staged)
	assert.Equal(t, 3, repo.Pending())

	require.NoError(t, repo.Commit(ctx))
	assert.Zero(t, repo.Pending())

	count, err := db.NewSelect().Model((*Gadget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func gadgetSeq(gadgets []*Gadget) func(yield func(*Gadget) bool) {
	return func(yield func(*Gadget) bool) {
		for _, g := range gadgets {
			if !yield(g) {
				return
			}
		}
	}
}

func TestUpdateThenCommitPersists(t *testing.T) {
	repo, db := newGadgetRepo(t)
	seeded := seedGadgets(t, db, 2)
	ctx := context.Background()

	tracked, err := repo.GetByID(ctx, seeded[0].ID, types.TrackedLoad)
	require.NoError(t, err)
	tracked.Label = "renamed"
	tracked.Stock = 99
	repo.Update(tracked)
	require.NoError(t, repo.Commit(ctx))

	fresh, err := repo.GetByID(ctx, seeded[0].ID, types.UntrackedLoad)
	require.NoError(t, err)
	assert.Equal(t, "renamed", fresh.Label)
	assert.Equal(t, 99, fresh.Stock)
}

func TestCommitWithoutChangesIsNoop(t *testing.T) {
	repo, _ := newGadgetRepo(t)
	assert.Zero(t, repo.Pending())
	assert.NoError(t, repo.Commit(context.Background()))
}

func TestRemoveWhereSnapshotsAtCallTime(t *testing.T) {
	repo, db := newGadgetRepo(t)
	seedGadgets(t, db, 5)
	ctx := context.Background()

	removed, err := repo.RemoveWhere(ctx, types.NewQueryFilter("stock <= ?", 2))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, repo.Pending())

	// A row matching the predicate but inserted after the call is not part
	// of the staged removal.
	late := &Gadget{Code: "LATE", Stock: 1}
	_, err = db.NewInsert().Model(late).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Commit(ctx))

	var remaining []*Gadget
	require.NoError(t, db.NewSelect().Model(&remaining).Scan(ctx))
	assert.Len(t, remaining, 4)
	codes := make([]string, 0, len(remaining))
	for _, g := range remaining {
		codes = append(codes, g.Code)
	}
	assert.Contains(t, codes, "LATE")
	assert.NotContains(t, codes, "G-001")
	assert.NotContains(t, codes, "G-002")
}

func TestCommitConstraintViolation(t *testing.T) {
	repo, db := newGadgetRepo(t)
	seedGadgets(t, db, 1)
	ctx := context.Background()

	repo.Add(&Gadget{Code: "DUP-A", Stock: 1})
	repo.Add(&Gadget{Code: "G-001", Stock: 2}) // duplicate unique code
	err := repo.Commit(ctx)
	require.Error(t, err)

	var pErr *repository.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, repository.OpInsert, pErr.Op)
	assert.Equal(t, 1, pErr.Stage)

	kind, ok := pErr.SQLCause()
	assert.True(t, ok)
	assert.Equal(t, "duplicate key", kind.String())

	// The change set is retained for inspection, and nothing was applied.
	assert.Equal(t, 2, repo.Pending())
	count, err := db.NewSelect().Model((*Gadget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	repo.Discard()
	assert.Zero(t, repo.Pending())
}

func TestMixedStagingCommitsInOrder(t *testing.T) {
	repo, db := newGadgetRepo(t)
	seeded := seedGadgets(t, db, 3)
	ctx := context.Background()

	tracked, err := repo.GetByID(ctx, seeded[1].ID, types.TrackedLoad)
	require.NoError(t, err)
	tracked.Label = "touched"

	repo.Add(&Gadget{Code: "NEW", Stock: 8})
	repo.Update(tracked)
	repo.Remove(seeded[2])
	assert.Equal(t, 3, repo.Pending())

	changes := repo.Unit().Changes()
	require.Len(t, changes, 3)
	assert.Equal(t, repository.OpInsert, changes[0].Kind)
	assert.Equal(t, repository.OpUpdate, changes[1].Kind)
	assert.Equal(t, repository.OpDelete, changes[2].Kind)

	require.NoError(t, repo.Commit(ctx))

	page, err := repo.List(ctx, types.NewWindow(0, 10), types.UntrackedLoad)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	fresh, err := repo.GetByID(ctx, seeded[1].ID, types.UntrackedLoad)
	require.NoError(t, err)
	assert.Equal(t, "touched", fresh.Label)

	gone, err := repo.GetByID(ctx, seeded[2].ID, types.UntrackedLoad)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSharedUnitOfWorkAcrossRepositories(t *testing.T) {
	db := newTestDB(t, (*Gadget)(nil), (*Reading)(nil))
	uow := repository.NewUnitOfWork(db)
	gadgets := repository.NewRepository[Gadget](uow)
	readings := repository.NewRepository[Reading](uow)
	ctx := context.Background()

	gadgets.Add(&Gadget{Code: "X", Stock: 4})
	readings.Add(&Reading{ID: 7, Value: 42})
	assert.Equal(t, 2, uow.Pending())

	require.NoError(t, uow.Commit(ctx))
	assert.Zero(t, uow.Pending())

	got, err := readings.GetByID(ctx, 7, types.UntrackedLoad)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 42, got.Value)
}
