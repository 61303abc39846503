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
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/tomoncle/querykit/utils"
)

// MigrationManager applies the schema steps that a database has not seen yet
// and records each one in the migrations table.
type MigrationManager struct {
	db          *bun.DB
	logger      Logger
	environment string
	config      Config
}

// Migration is one applied step.
type Migration struct {
	bun.BaseModel `bun:"table:migrations,alias:migration"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc runs inside the transaction that records the step.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// NewMigrationManager reads the migrate and init settings from the config
// passed to InitDB, or from DefaultConfig before that.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	mm := &MigrationManager{db: db, logger: logger}
	mm.SetConfig(currentConfig())
	return mm
}

func (mm *MigrationManager) SetConfig(cfg *Config) {
	mm.config = *cfg
	mm.environment = cmp.Or(cfg.DataInitConfig.Environment, "dev")
}

// SetEnvironment selects the environments/<env> seed directory.
func (mm *MigrationManager) SetEnvironment(env string) {
	mm.environment = env
}

// RunMigrations applies the pending steps in version order. Their SQL is
// not printed unless BUNDEBUG_MIGRATION is true.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return errNotInitialized
	}
	if !utils.EnvDefaultBool("BUNDEBUG_MIGRATION", false) {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if _, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	var applied []string
	if err := mm.db.NewSelect().Model((*Migration)(nil)).Column("version").Scan(ctx, &applied); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	count := 0
	for _, step := range mm.steps() {
		if slices.Contains(applied, step.Version) {
			continue
		}
		if err := mm.apply(ctx, step); err != nil {
			return fmt.Errorf("failed to execute migration %s (%s): %w", step.Version, step.Name, err)
		}
		count++
	}
	mm.logger.Info("Database migrations completed", "applied", count, "dialect", mm.db.Dialect().Name().String())
	return nil
}

// steps lists the schema steps enabled by the configuration. Version 002 is
// skipped on sqlite, which cannot add a constraint to an existing table and
// gets its keys from 001 instead.
func (mm *MigrationManager) steps() []MigrationItem {
	steps := []MigrationItem{{
		Version:     "001",
		Name:        "create_tables",
		Description: "Create the tables of the registered models",
		Up:          mm.createTables,
	}}
	if mm.config.DataMigrateConfig.EnableForeignKey && mm.db.Dialect().Name() != dialect.SQLite {
		steps = append(steps, MigrationItem{
			Version:     "002",
			Name:        "add_foreign_keys",
			Description: "Add the registered and configured foreign keys",
			Up:          mm.addForeignKeys,
		})
	}
	if mm.config.DataInitConfig.AutoInitOnMigration {
		steps = append(steps, MigrationItem{
			Version:     "003",
			Name:        "seed_data",
			Description: "Run the SQL seed files",
			Up:          mm.seed,
		})
	}
	slices.SortFunc(steps, func(a, b MigrationItem) int { return cmp.Compare(a.Version, b.Version) })
	return steps
}

func (mm *MigrationManager) apply(ctx context.Context, step MigrationItem) error {
	err := mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := step.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&Migration{
			Version:     step.Version,
			Name:        step.Name,
			AppliedAt:   time.Now(),
			Description: step.Description,
		}).Exec(ctx)
		return err
	})
	if err == nil {
		mm.logger.Info("Migration applied", "version", step.Version, "name", step.Name)
	}
	return err
}

// createTables creates the registered models in priority order, so team
// exists before member references it.
func (mm *MigrationManager) createTables(ctx context.Context, db bun.IDB) error {
	inlineFK := mm.config.DataMigrateConfig.EnableForeignKey && db.Dialect().Name() == dialect.SQLite
	for _, model := range RegisteredModelInstances() {
		q := db.NewCreateTable().Model(model).IfNotExists()
		if inlineFK {
			q = q.WithForeignKeys()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func (mm *MigrationManager) addForeignKeys(ctx context.Context, db bun.IDB) error {
	path := mm.config.DataMigrateConfig.ForeignKeyFile
	fks := NewConfigurableForeignKeyManager(mm.logger, path)
	if errs := fks.ValidateConstraints(); len(errs) > 0 {
		for _, err := range errs {
			mm.logger.Warn("Invalid foreign key constraint", "error", err.Error())
		}
		return fmt.Errorf("foreign key validation failed with %d errors", len(errs))
	}
	mm.logger.Debug("Adding foreign keys", "count", len(fks.ListAllConstraints()), "config_path", path)
	return fks.AddAllForeignKeys(ctx, db)
}

// InitData runs the SQL seed files outside of the migration table.
func (mm *MigrationManager) InitData(ctx context.Context) error {
	if mm.db == nil {
		return errNotInitialized
	}
	return mm.seed(ctx, mm.db)
}

func (mm *MigrationManager) seed(ctx context.Context, db bun.IDB) error {
	s := NewSQLInitManager(db, mm.environment)
	if root := mm.config.DataInitConfig.Filepath; root != "" {
		s.SetSQLRootPath(root)
	}
	s.SetLogger(mm.logger)
	if err := s.ExecuteInitialization(ctx); err != nil {
		return fmt.Errorf("SQL file initialization failed: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns the applied steps ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().Model(&migrations).Order("version").Scan(ctx)
	return migrations, err
}
