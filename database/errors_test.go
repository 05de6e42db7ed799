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
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsSqlErrorMySQLNumbers(t *testing.T) {
	cases := []struct {
		number uint16
		want   SQLError
	}{
		{1062, DuplicateKeyErr},
		{1048, NotNullViolationErr},
		{1054, NoColumnErr},
		{1216, ForeignKeyViolationErr},
		{3819, CheckConstraintViolationErr},
		{1265, DataTruncatedErr},
		{9999, UnknownErr},
	}
	for _, c := range cases {
		err := &mysql.MySQLError{Number: c.number, Message: "boom"}
		is, kind := IsSqlError(fmt.Errorf("exec failed: %w", err))
		assert.True(t, is, "number %d", c.number)
		assert.Equal(t, c.want, kind, "number %d", c.number)
	}
}

func TestIsSqlErrorMessages(t *testing.T) {
	cases := []struct {
		msg  string
		is   bool
		want SQLError
	}{
		{`ERROR: duplicate key value violates unique constraint "gadgets_code_key" (SQLSTATE 23505)`, true, DuplicateKeyErr},
		{"UNIQUE constraint failed: gadgets.code", true, DuplicateKeyErr},
		{"NOT NULL constraint failed: gadgets.code", true, NotNullViolationErr},
		{`ERROR: null value in column "code" violates not-null constraint (SQLSTATE 23502)`, true, NotNullViolationErr},
		{"FOREIGN KEY constraint failed", true, ForeignKeyViolationErr},
		{"no such table: gadgets", true, NoTableErr},
		{"no such column: stok", true, NoColumnErr},
		{`relation "gadgets" already exists (SQLSTATE 42P07)`, true, ExistTableErr},
		{"CHECK constraint failed: stock_nonnegative", true, CheckConstraintViolationErr},
		{"datatype mismatch", true, InvalidTypeCastErr},
		{"connection refused", false, UnknownErr},
	}
	for _, c := range cases {
		is, kind := IsSqlError(errors.New(c.msg))
		assert.Equal(t, c.is, is, "msg %q", c.msg)
		assert.Equal(t, c.want, kind, "msg %q", c.msg)
	}
}

func TestSQLErrorString(t *testing.T) {
	assert.Equal(t, "duplicate key", DuplicateKeyErr.String())
	assert.Equal(t, "unknown", UnknownErr.String())
	assert.Equal(t, "unknown", SQLError(99).String())
}
