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

package quarry_test

import (
	"context"
	"testing"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/database"
	"github.com/quarrydb/quarry/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type Widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Name  string `bun:"name,notnull" json:"name"`
	Grade int    `bun:"grade" json:"grade"`
}

func (w Widget) GetID() int64 { return w.ID }

func initGlobalDB(t *testing.T) {
	t.Helper()

	database.RegisteredModel(database.NewModelAdapter((*Widget)(nil), 1))
	cfg := &database.Config{
		Connection: database.ConnectionConfig{
			Type:   "sqlite",
			DBName: ":memory:",
		},
		Bootstrap: database.BootstrapConfig{
			CreateTablesOnStartup: true,
			DropTablesFirst:       true,
		},
	}
	_, err := database.InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })
}

func TestServiceRoundTrip(t *testing.T) {
	initGlobalDB(t)
	ctx := context.Background()

	svc := quarry.NewService[Widget]()

	widgets := []*Widget{
		{ID: 1, Name: "anvil", Grade: 3},
		{ID: 2, Name: "bolt", Grade: 1},
		{ID: 3, Name: "cog", Grade: 2},
	}
	require.NoError(t, svc.Save(ctx, widgets...))

	got, err := svc.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bolt", got.Name)

	page, err := svc.SearchOrdered(ctx, types.NewWindow(0, 10), nil, "name")
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "anvil", page.Items[0].Name)
	assert.Equal(t, 3, page.Total)

	// Tracked finds resolve to one instance per unit of work.
	f1, err := svc.Find(ctx, 1)
	require.NoError(t, err)
	f2, err := svc.Find(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, f1, f2)

	f1.Grade = 9
	require.NoError(t, svc.Update(ctx, f1))
	fresh, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, fresh.Grade)

	removed, err := svc.DeleteWhere(ctx, types.NewQueryFilter("grade >= ?", 2))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	page, err = svc.Page(ctx, types.NewWindow(0, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bolt", page.Items[0].Name)

	health := database.GetHealthStatus(ctx)
	assert.True(t, health.Healthy)
}
