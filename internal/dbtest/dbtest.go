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

// Package dbtest opens isolated in-memory sqlite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/database"
	_ "github.com/tomoncle/querykit/entity"
)

var seq atomic.Int64

// Open returns a migrated in-memory database private to t. The database is
// closed when t ends.
func Open(t testing.TB) *bun.DB {
	t.Helper()
	ctx := context.Background()

	cfg := database.DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = fmt.Sprintf("file:querykit_test_%d?mode=memory&cache=shared", seq.Add(1))
	cfg.HealthCheckInterval = 0
	cfg.EnableReconnect = false

	manager := database.NewDatabaseManager(cfg)
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })
	require.NoError(t, manager.RunMigrations(ctx))
	return manager.GetDB()
}

// Tx begins a transaction on db that is rolled back when t ends. The
// in-memory pool holds a single connection, so every query of the test has
// to go through the returned transaction.
func Tx(t testing.TB, db *bun.DB) bun.Tx {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}
