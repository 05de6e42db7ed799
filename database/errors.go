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
	"strings"

	"github.com/go-sql-driver/mysql"
)

// SQLError classifies driver errors into a dialect-independent taxonomy.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

func (e SQLError) String() string {
	switch e {
	case NoRowsErr:
		return "no rows"
	case NoIndexErr:
		return "no such index"
	case NoColumnErr:
		return "no such column"
	case ExistIndexErr:
		return "index already exists"
	case ExistColumnErr:
		return "column already exists"
	case NoTableErr:
		return "no such table"
	case ExistTableErr:
		return "table already exists"
	case DuplicateKeyErr:
		return "duplicate key"
	case NotNullViolationErr:
		return "not-null violation"
	case ForeignKeyViolationErr:
		return "foreign key violation"
	case CheckConstraintViolationErr:
		return "check constraint violation"
	case DataTruncatedErr:
		return "data truncated"
	case InvalidTypeCastErr:
		return "invalid type cast"
	default:
		return "unknown"
	}
}

// MySQL server error numbers, see
// https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
var mysqlErrorNumbers = map[uint16]SQLError{
	1091: NoIndexErr,
	1054: NoColumnErr,
	1061: ExistIndexErr,
	1060: ExistColumnErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
}

type messageRule struct {
	kind  SQLError
	match func(s string) bool
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

// Message heuristics covering Postgres SQLSTATE text and SQLite phrasing.
var messageRules = []messageRule{
	{NoColumnErr, func(s string) bool {
		return containsAny(s, "sqlstate 42703", "undefined column", "no such column")
	}},
	{NoIndexErr, func(s string) bool {
		return containsAny(s, "sqlstate 42704", "no such index") ||
			containsAll(s, "does not exist", "index")
	}},
	{NoTableErr, func(s string) bool {
		return containsAny(s, "sqlstate 42p01", "undefined table", "no such table")
	}},
	{ExistIndexErr, func(s string) bool {
		return containsAll(s, "already exists", "index")
	}},
	{ExistTableErr, func(s string) bool {
		return containsAll(s, "already exists", "table") ||
			containsAll(s, "already exists", "relation")
	}},
	{DuplicateKeyErr, func(s string) bool {
		return containsAny(s, "duplicate key value", "unique constraint failed", "sqlstate 23505")
	}},
	{NotNullViolationErr, func(s string) bool {
		return containsAny(s, "not-null constraint", "sqlstate 23502", "not null constraint failed")
	}},
	{ForeignKeyViolationErr, func(s string) bool {
		return containsAny(s, "foreign key violation", "foreign key constraint failed", "sqlstate 23503")
	}},
	{CheckConstraintViolationErr, func(s string) bool {
		return containsAny(s, "check constraint", "sqlstate 23514")
	}},
	{DataTruncatedErr, func(s string) bool {
		return containsAny(s, "string data right truncation", "sqlstate 22001", "data truncated")
	}},
	{InvalidTypeCastErr, func(s string) bool {
		return containsAny(s, "datatype mismatch", "sqlstate 42804")
	}},
}

// IsSqlError reports whether err is a recognizable SQL error and classifies
// it. MySQL errors are matched by server error number, everything else by
// message heuristics.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlErrorNumbers[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, UnknownErr
	}

	s := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		if rule.match(s) {
			return true, rule.kind
		}
	}
	return false, UnknownErr
}
