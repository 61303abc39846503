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
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// LoadConfig reads a YAML configuration file on top of DefaultConfig, so a
// file only needs the keys it changes.
//
//	connection:
//	  type: postgres
//	  driver: pgx
//	  host: localhost
//	migrate:
//	  enable_foreign_key: true
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	conn := c.ConnectionConfig
	if !slices.Contains(supportedTypes, conn.Type) {
		return fmt.Errorf("unsupported database type: %q, supported types: %v", conn.Type, supportedTypes)
	}
	switch conn.Driver {
	case "", "pq", "pgx":
	default:
		return fmt.Errorf("unsupported postgres driver: %q", conn.Driver)
	}
	switch conn.QueryLogStyle {
	case "", "color", "bundebug":
	default:
		return fmt.Errorf("unsupported query log style: %q", conn.QueryLogStyle)
	}
	return nil
}
