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
	"errors"
	"fmt"

	"github.com/quarrydb/quarry/database"
)

// ErrMultipleResults reports that a single-row lookup matched more than one
// record. Identity should be unique, but this layer does not enforce it; it
// surfaces the store's single-row assertion instead.
var ErrMultipleResults = errors.New("single-row lookup matched more than one record")

// PersistenceError reports a failed commit. It names the staged operation
// that failed and its position in the stage order, so callers can tell which
// change the store rejected.
type PersistenceError struct {
	Op    OpKind
	Stage int // index in stage order, -1 when the transaction itself failed
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Stage < 0 {
		return fmt.Sprintf("commit failed: %v", e.Err)
	}
	return fmt.Sprintf("commit failed at %s (stage %d): %v", e.Op, e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SQLCause classifies the underlying driver error using the database error
// taxonomy. The second return value is false when the cause is not a
// recognizable SQL error.
func (e *PersistenceError) SQLCause() (database.SQLError, bool) {
	if e.Err == nil {
		return database.UnknownErr, false
	}
	is, kind := database.IsSqlError(e.Err)
	return kind, is
}
