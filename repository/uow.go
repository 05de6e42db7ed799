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
	"errors"
	"reflect"

	"github.com/quarrydb/quarry/database"

	"github.com/uptrace/bun"
)

// OpKind identifies the kind of a staged change.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
	OpDelete
	// OpCommit marks a failure of the transaction itself rather than of a
	// single staged change.
	OpCommit
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// StagedChange is one pending mutation in the unit of work. Model is a
// struct pointer compatible with Bun.
type StagedChange struct {
	Kind  OpKind
	Model interface{}
}

type identityKey struct {
	typ reflect.Type
	id  int64
}

// UnitOfWork holds a Bun database handle, the pending change set, and the
// per-unit identity map shared by every repository bound to it.
//
// A UnitOfWork is not safe for concurrent use. It carries the implicit
// contract of one logical operation sequence in flight at a time; callers
// needing concurrency use independent units of work.
type UnitOfWork struct {
	db       *bun.DB
	changes  []StagedChange
	identity map[identityKey]interface{}
	logger   database.Logger
}

// NewUnitOfWork returns a unit of work over the provided Bun DB.
func NewUnitOfWork(db *bun.DB) *UnitOfWork {
	return &UnitOfWork{
		db:       db,
		changes:  make([]StagedChange, 0),
		identity: make(map[identityKey]interface{}),
		logger:   database.GetLogger(),
	}
}

// DB returns the underlying Bun database handle.
func (u *UnitOfWork) DB() *bun.DB { return u.db }

// Pending reports the number of staged changes.
func (u *UnitOfWork) Pending() int { return len(u.changes) }

// Changes returns a copy of the pending change set in stage order.
func (u *UnitOfWork) Changes() []StagedChange {
	out := make([]StagedChange, len(u.changes))
	copy(out, u.changes)
	return out
}

// Discard drops all staged changes without touching the store. The identity
// map is left intact.
func (u *UnitOfWork) Discard() {
	u.changes = u.changes[:0]
}

// Commit flushes all staged changes to the store in stage order inside a
// single transaction. An empty change set is a successful no-op. On failure
// the change set is retained so the caller can inspect or discard it.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if len(u.changes) == 0 {
		return nil
	}

	err := u.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i, change := range u.changes {
			var execErr error
			switch change.Kind {
			case OpInsert:
				_, execErr = tx.NewInsert().Model(change.Model).Exec(ctx)
			case OpUpdate:
				_, execErr = tx.NewUpdate().Model(change.Model).WherePK().Exec(ctx)
			case OpDelete:
				_, execErr = tx.NewDelete().Model(change.Model).WherePK().Exec(ctx)
			}
			if execErr != nil {
				return &PersistenceError{Op: change.Kind, Stage: i, Err: execErr}
			}
		}
		return nil
	})
	if err != nil {
		var pErr *PersistenceError
		if !errors.As(err, &pErr) {
			pErr = &PersistenceError{Op: OpCommit, Stage: -1, Err: err}
		}
		u.logger.Error("Unit of work commit failed", "op", pErr.Op, "stage", pErr.Stage, "error", pErr.Err)
		return pErr
	}

	committed := len(u.changes)
	u.changes = u.changes[:0]
	u.logger.Debug("Unit of work committed", "changes", committed)
	return nil
}

func (u *UnitOfWork) stage(kind OpKind, model interface{}) {
	u.changes = append(u.changes, StagedChange{Kind: kind, Model: model})
}

func (u *UnitOfWork) resident(key identityKey) (interface{}, bool) {
	model, ok := u.identity[key]
	return model, ok
}

func (u *UnitOfWork) track(key identityKey, model interface{}) {
	u.identity[key] = model
}

func (u *UnitOfWork) evict(key identityKey) {
	delete(u.identity, key)
}
