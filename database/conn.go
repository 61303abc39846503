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
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

var errNotInitialized = errors.New("database not initialized")

// global holds the connection set up by InitDB for the package level helpers.
var global struct {
	mu      sync.RWMutex
	factory *BaseDatabaseFactory
	config  *Config
}

// currentConfig returns the config passed to InitDB, or DefaultConfig.
func currentConfig() *Config {
	global.mu.RLock()
	defer global.mu.RUnlock()
	if global.config != nil {
		return global.config
	}
	return DefaultConfig()
}

func GetDatabaseFactory() *BaseDatabaseFactory {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.factory
}

// GetDB returns the global bun database, nil before InitDB.
func GetDB() *bun.DB {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetDB()
	}
	return nil
}

func GetDatabaseManager() AbstractDatabaseManager {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetManager()
	}
	return nil
}

// InitDB connects the global database, migrating it when
// EnableMigrateOnStartup is set.
func InitDB(ctx context.Context, cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return InitDatabaseWithOptions(ctx, cfg, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

// InitDatabaseWithOptions connects the global database, migrates it when
// runMigrations is set and runs the seed files when AutoInitOnStartup is.
// A previous global connection is closed first.
func InitDatabaseWithOptions(ctx context.Context, cfg *Config, runMigrations bool) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if err := CloseDB(); err != nil {
		GetLogger().Warn("Failed to close the previous database", "error", err.Error())
	}

	factory := NewDatabaseFactory()
	if _, err := factory.CreateFromConfig(&cfg.ConnectionConfig); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	global.mu.Lock()
	global.factory, global.config = factory, cfg
	global.mu.Unlock()

	if err := factory.InitializeDatabase(ctx, runMigrations); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db := factory.GetDB()
	db.RegisterModel(RegisteredModelInstances()...)

	if cfg.DataInitConfig.AutoInitOnStartup {
		if err := InitData(ctx); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// CloseDB closes the global database. It is a no-op before InitDB.
func CloseDB() error {
	global.mu.Lock()
	factory := global.factory
	global.factory = nil
	global.mu.Unlock()
	if factory == nil {
		return nil
	}
	return factory.Close()
}

func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: errNotInitialized.Error()}
}

func GetDatabaseStats() *DBStats {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}

// RunMigrations migrates the global database.
func RunMigrations(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return errNotInitialized
	}
	return manager.RunMigrations(ctx)
}

// InitData runs the seed files of the configured environment.
func InitData(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return errNotInitialized
	}
	return manager.InitData(ctx)
}

// InitDataWithSQL runs the seed files of environment, which may differ from
// the configured one.
func InitDataWithSQL(ctx context.Context, environment string) error {
	db := GetDB()
	if db == nil {
		return errNotInitialized
	}
	s := NewSQLInitManager(db, environment)
	if root := currentConfig().DataInitConfig.Filepath; root != "" {
		s.SetSQLRootPath(root)
	}
	return s.ExecuteInitialization(ctx)
}
