/*
 * Copyright 2025 tomoncle.
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
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

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
		return "no_rows"
	case NoIndexErr:
		return "no_index"
	case NoColumnErr:
		return "no_column"
	case ExistIndexErr:
		return "exist_index"
	case ExistColumnErr:
		return "exist_column"
	case NoTableErr:
		return "no_table"
	case ExistTableErr:
		return "exist_table"
	case DuplicateKeyErr:
		return "duplicate_key"
	case NotNullViolationErr:
		return "not_null_violation"
	case ForeignKeyViolationErr:
		return "foreign_key_violation"
	case CheckConstraintViolationErr:
		return "check_violation"
	case DataTruncatedErr:
		return "data_truncated"
	case InvalidTypeCastErr:
		return "invalid_type_cast"
	default:
		return "unknown"
	}
}

// IsSqlError classifies err. The first result is false when err is not a
// database error at all.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return true, mysqlErrorKind(mysqlErr.Number)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true, sqlStateKind(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true, sqlStateKind(string(pqErr.Code))
	}
	return messageKind(strings.ToLower(err.Error()))
}

func mysqlErrorKind(number uint16) SQLError {
	switch number {
	case 1091:
		return NoIndexErr
	case 1054:
		return NoColumnErr
	case 1061:
		return ExistIndexErr
	case 1060:
		return ExistColumnErr
	case 1146:
		return NoTableErr
	case 1050:
		return ExistTableErr
	case 1062:
		return DuplicateKeyErr
	case 1048:
		return NotNullViolationErr
	case 1216, 1217, 1451, 1452:
		return ForeignKeyViolationErr
	case 3819:
		return CheckConstraintViolationErr
	case 1265, 1406:
		return DataTruncatedErr
	default:
		return UnknownErr
	}
}

func sqlStateKind(code string) SQLError {
	switch code {
	case pgerrcode.UndefinedColumn:
		return NoColumnErr
	case pgerrcode.UndefinedObject:
		return NoIndexErr
	case pgerrcode.UndefinedTable:
		return NoTableErr
	case pgerrcode.DuplicateTable:
		return ExistTableErr
	case pgerrcode.DuplicateColumn:
		return ExistColumnErr
	case pgerrcode.UniqueViolation:
		return DuplicateKeyErr
	case pgerrcode.NotNullViolation:
		return NotNullViolationErr
	case pgerrcode.ForeignKeyViolation:
		return ForeignKeyViolationErr
	case pgerrcode.CheckViolation:
		return CheckConstraintViolationErr
	case pgerrcode.StringDataRightTruncationDataException:
		return DataTruncatedErr
	case pgerrcode.DatatypeMismatch, pgerrcode.InvalidTextRepresentation:
		return InvalidTypeCastErr
	default:
		return UnknownErr
	}
}

// messageKind matches driver messages that carry no typed error, mainly sqlite.
func messageKind(s string) (bool, SQLError) {
	switch {
	case strings.Contains(s, "undefined column") ||
		strings.Contains(s, "no such column"):
		return true, NoColumnErr
	case strings.Contains(s, "no such index") ||
		(strings.Contains(s, "does not exist") && strings.Contains(s, "index")):
		return true, NoIndexErr
	case strings.Contains(s, "undefined table") ||
		strings.Contains(s, "no such table"):
		return true, NoTableErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "index"):
		return true, ExistIndexErr
	case strings.Contains(s, "already exists") &&
		(strings.Contains(s, "table") || strings.Contains(s, "relation")):
		return true, ExistTableErr
	case strings.Contains(s, "duplicate column name"):
		return true, ExistColumnErr
	case strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "unique constraint failed"):
		return true, DuplicateKeyErr
	case strings.Contains(s, "not-null constraint") ||
		strings.Contains(s, "not null constraint failed"):
		return true, NotNullViolationErr
	case strings.Contains(s, "foreign key violation") ||
		strings.Contains(s, "foreign key constraint failed"):
		return true, ForeignKeyViolationErr
	case strings.Contains(s, "check constraint"):
		return true, CheckConstraintViolationErr
	case strings.Contains(s, "string data right truncation") ||
		strings.Contains(s, "data truncated"):
		return true, DataTruncatedErr
	case strings.Contains(s, "datatype mismatch"):
		return true, InvalidTypeCastErr
	}
	return false, UnknownErr
}
