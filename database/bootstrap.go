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

package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// BootstrapManager creates tables for all registered models. Schema
// evolution beyond initial table creation is owned by external migration
// tooling, not by this layer.
type BootstrapManager struct {
	db     *bun.DB
	logger Logger
}

// NewBootstrapManager constructs a BootstrapManager for the given database.
func NewBootstrapManager(db *bun.DB, logger Logger) *BootstrapManager {
	return &BootstrapManager{db: db, logger: logger}
}

// CreateTables creates a table for every registered model, in priority
// order, skipping tables that already exist.
func (b *BootstrapManager) CreateTables(ctx context.Context) error {
	for _, model := range GetRegisteredModels() {
		instance := model.Instance()
		if _, err := b.db.NewCreateTable().Model(instance).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for model %T: %w", instance, err)
		}
		if b.logger != nil {
			b.logger.Debug("Table ensured for model", "model", fmt.Sprintf("%T", instance))
		}
	}
	return nil
}

// ResetTables drops and recreates the tables of all registered models.
// Intended for tests and throwaway environments.
func (b *BootstrapManager) ResetTables(ctx context.Context) error {
	models := GetRegisteredModels()
	for i := len(models) - 1; i >= 0; i-- {
		instance := models[i].Instance()
		if _, err := b.db.NewDropTable().Model(instance).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for model %T: %w", instance, err)
		}
	}
	return b.CreateTables(ctx)
}
