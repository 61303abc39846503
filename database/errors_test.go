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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSqlError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		is   bool
		kind SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", fmt.Errorf("load: %w", sql.ErrNoRows), true, NoRowsErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{"mysql missing table", &mysql.MySQLError{Number: 1146}, true, NoTableErr},
		{"pgx unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, true, DuplicateKeyErr},
		{"pgx foreign key", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}), true, ForeignKeyViolationErr},
		{"pq not null", &pq.Error{Code: pq.ErrorCode(pgerrcode.NotNullViolation)}, true, NotNullViolationErr},
		{"pq unknown code", &pq.Error{Code: "XX000"}, true, UnknownErr},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: team.id (1555)"), true, DuplicateKeyErr},
		{"sqlite missing table", errors.New("SQL logic error: no such table: hello (1)"), true, NoTableErr},
		{"plain error", errors.New("boom"), false, UnknownErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			is, kind := IsSqlError(tc.err)
			assert.Equal(t, tc.is, is)
			assert.Equal(t, tc.kind, kind, kind.String())
		})
	}
}

func TestIsSqlErrorFromSqlite(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t, nil).GetDB()
	_, err := db.NewCreateTable().Model((*widget)(nil)).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&widget{ID: 1, Name: "a"}).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&widget{ID: 1, Name: "b"}).Exec(ctx)
	is, kind := IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, DuplicateKeyErr, kind)

	_, err = db.NewRaw("INSERT INTO widgets (id, name) VALUES (2, NULL)").Exec(ctx)
	is, kind = IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, NotNullViolationErr, kind)

	err = db.NewSelect().Model(new(widget)).Where("id = ?", 42).Scan(ctx)
	is, kind = IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, NoRowsErr, kind)
}
