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
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

var (
	registeredForeignKeys   []ForeignKeyConstraint
	registeredForeignKeysMu sync.RWMutex
)

// RegisterForeignKeys adds code-defined constraints, usually from a model
// package's init.
func RegisterForeignKeys(fks ...ForeignKeyConstraint) {
	registeredForeignKeysMu.Lock()
	defer registeredForeignKeysMu.Unlock()
	registeredForeignKeys = append(registeredForeignKeys, fks...)
}

func getForeignKeyConstraints() []ForeignKeyConstraint {
	registeredForeignKeysMu.RLock()
	defer registeredForeignKeysMu.RUnlock()
	return slices.Clone(registeredForeignKeys)
}

var validReferentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// ForeignKeyConstraint describes a foreign key relationship between tables.
type ForeignKeyConstraint struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete,omitempty"` // CASCADE, RESTRICT, SET NULL, NO ACTION
	OnUpdate        string `yaml:"on_update,omitempty"`
	ConstraintName  string `yaml:"constraint_name,omitempty"`
}

// GenerateConstraintName returns the explicit name or a derived name.
func (fk *ForeignKeyConstraint) GenerateConstraintName() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// AlterQuery returns the ALTER TABLE statement adding the constraint, with
// identifiers quoted by the dialect of db.
func (fk *ForeignKeyConstraint) AlterQuery(db bun.IDB) *bun.RawQuery {
	var b strings.Builder
	b.WriteString("ALTER TABLE ? ADD CONSTRAINT ? FOREIGN KEY (?) REFERENCES ? (?)")
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + strings.ToUpper(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + strings.ToUpper(fk.OnUpdate))
	}
	return db.NewRaw(b.String(),
		bun.Ident(fk.Table), bun.Ident(fk.GenerateConstraintName()), bun.Ident(fk.Column),
		bun.Ident(fk.ReferenceTable), bun.Ident(fk.ReferenceColumn))
}

// Validate reports the problems of one constraint.
func (fk *ForeignKeyConstraint) Validate() []error {
	var errs []error
	if fk.Table == "" {
		errs = append(errs, fmt.Errorf("table name cannot be empty"))
	}
	if fk.Column == "" {
		errs = append(errs, fmt.Errorf("column name cannot be empty: %s", fk.Table))
	}
	if fk.ReferenceTable == "" {
		errs = append(errs, fmt.Errorf("reference table name cannot be empty: %s.%s", fk.Table, fk.Column))
	}
	if fk.ReferenceColumn == "" {
		errs = append(errs, fmt.Errorf("reference column name cannot be empty: %s.%s -> %s", fk.Table, fk.Column, fk.ReferenceTable))
	}
	for _, action := range []struct{ kind, value string }{{"delete", fk.OnDelete}, {"update", fk.OnUpdate}} {
		if action.value == "" {
			continue
		}
		if !slices.ContainsFunc(validReferentialActions, func(a string) bool { return strings.EqualFold(a, action.value) }) {
			errs = append(errs, fmt.Errorf("invalid %s policy: %s, constraint: %s", action.kind, action.value, fk.GenerateConstraintName()))
		}
	}
	return errs
}

// ForeignKeyManager manages adding and validating foreign key constraints.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

// NewForeignKeyManager creates a manager with the registered constraints.
func NewForeignKeyManager(logger Logger) *ForeignKeyManager {
	return &ForeignKeyManager{
		constraints: getForeignKeyConstraints(),
		logger:      logger,
	}
}

// AddAllForeignKeys adds every constraint. Failures are logged and skipped,
// since most dialects fail when the constraint already exists.
func (fkm *ForeignKeyManager) AddAllForeignKeys(ctx context.Context, db bun.IDB) error {
	for _, constraint := range fkm.constraints {
		if _, err := constraint.AlterQuery(db).Exec(ctx); err != nil {
			if fkm.logger != nil {
				fkm.logger.Debug("Failed to add foreign key constraint", "constraint", constraint.GenerateConstraintName(), "error", err.Error())
			}
			continue
		}
		if fkm.logger != nil {
			fkm.logger.Debug("Successfully added foreign key constraint", "constraint", constraint.GenerateConstraintName())
		}
	}
	return nil
}

// RemoveForeignKey drops a named foreign key from a table.
func (fkm *ForeignKeyManager) RemoveForeignKey(ctx context.Context, db bun.IDB, tableName, constraintName string) error {
	_, err := db.NewRaw("ALTER TABLE ? DROP CONSTRAINT ?", bun.Ident(tableName), bun.Ident(constraintName)).Exec(ctx)
	return err
}

// GetConstraintsByTable returns the constraints defined for a table.
func (fkm *ForeignKeyManager) GetConstraintsByTable(tableName string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, constraint := range fkm.constraints {
		if strings.EqualFold(constraint.Table, tableName) {
			result = append(result, constraint)
		}
	}
	return result
}

func (fkm *ForeignKeyManager) ListAllConstraints() []ForeignKeyConstraint {
	return fkm.constraints
}

// ValidateConstraints checks every constraint for common issues.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error
	for _, constraint := range fkm.constraints {
		errs = append(errs, constraint.Validate()...)
	}
	return errs
}

// ForeignKeyConfig is the YAML structure that lists foreign key constraints.
type ForeignKeyConfig struct {
	ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys"`
}

// ConfigurableForeignKeyManager adds the constraints of a YAML file to the
// registered ones.
type ConfigurableForeignKeyManager struct {
	*ForeignKeyManager
	configPath string
}

// NewConfigurableForeignKeyManager loads configPath. A missing or unreadable
// file leaves only the registered constraints.
func NewConfigurableForeignKeyManager(logger Logger, configPath string) *ConfigurableForeignKeyManager {
	manager := &ConfigurableForeignKeyManager{
		ForeignKeyManager: NewForeignKeyManager(logger),
		configPath:        configPath,
	}
	if configPath == "" {
		return manager
	}
	extra, err := manager.loadFromConfig()
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to load foreign key constraints from config, using code-defined defaults", "error", err.Error(), "config_path", configPath)
		}
		return manager
	}
	manager.constraints = mergeConstraints(manager.constraints, extra)
	return manager
}

func (cfm *ConfigurableForeignKeyManager) loadFromConfig() ([]ForeignKeyConstraint, error) {
	data, err := os.ReadFile(cfm.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var config ForeignKeyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config.ForeignKeys, nil
}

// mergeConstraints appends extra, replacing base entries with the same name.
func mergeConstraints(base, extra []ForeignKeyConstraint) []ForeignKeyConstraint {
	out := slices.Clone(base)
	for _, fk := range extra {
		i := slices.IndexFunc(out, func(x ForeignKeyConstraint) bool {
			return x.GenerateConstraintName() == fk.GenerateConstraintName()
		})
		if i >= 0 {
			out[i] = fk
		} else {
			out = append(out, fk)
		}
	}
	return out
}

// ReloadConfig rereads the YAML file on top of the registered constraints.
func (cfm *ConfigurableForeignKeyManager) ReloadConfig() error {
	extra, err := cfm.loadFromConfig()
	if err != nil {
		return err
	}
	cfm.constraints = mergeConstraints(getForeignKeyConstraints(), extra)
	return nil
}

// ExportToConfig writes the current constraints to a YAML file.
func (cfm *ConfigurableForeignKeyManager) ExportToConfig(outputPath string) error {
	data, err := yaml.Marshal(&ForeignKeyConfig{ForeignKeys: cfm.constraints})
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (cfm *ConfigurableForeignKeyManager) GetConfigPath() string {
	return cfm.configPath
}
