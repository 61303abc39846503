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
	"bufio"
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/uptrace/bun"
)

var fileOrderPattern = regexp.MustCompile(`^(\d+)_`)

// SQLInitManager runs the seed files below a root directory: common/ first,
// then environments/<env>/, each ordered by the NNN_ file name prefix. Every
// file runs in its own transaction.
type SQLInitManager struct {
	db          bun.IDB
	environment string
	root        fs.FS
	rootName    string
	logger      Logger
}

// SQLFileInfo is one discovered seed file. Path is relative to the root.
type SQLFileInfo struct {
	Path        string
	Name        string
	Order       int
	Environment string
}

func NewSQLInitManager(db bun.IDB, environment string) *SQLInitManager {
	s := &SQLInitManager{db: db, environment: environment, logger: GetLogger()}
	s.SetSQLRootPath("configs/sql")
	return s
}

// SetSQLRootPath reads the seed files from a directory.
func (s *SQLInitManager) SetSQLRootPath(dir string) {
	s.SetSQLRoot(os.DirFS(dir), dir)
}

// SetSQLRoot reads the seed files from fsys, an embed.FS for instance. name
// is only used in log lines.
func (s *SQLInitManager) SetSQLRoot(fsys fs.FS, name string) {
	s.root, s.rootName = fsys, name
}

func (s *SQLInitManager) SetLogger(logger Logger) {
	s.logger = logger
}

// ExecuteInitialization runs every seed file and stops at the first failure.
// Files already run stay committed.
func (s *SQLInitManager) ExecuteInitialization(ctx context.Context) error {
	files, err := s.GetSQLFiles()
	if err != nil {
		return fmt.Errorf("failed to get SQL files: %w", err)
	}
	s.logger.Info("Running SQL seed files", "environment", s.environment, "sql_path", s.rootName, "files", len(files))

	for _, file := range files {
		start := time.Now()
		rows, err := s.executeFile(ctx, file)
		if err != nil {
			s.logger.Error("SQL file execution failed", "file", file.Path, "error", err.Error())
			return fmt.Errorf("SQL file execution failed %s: %w", file.Path, err)
		}
		s.logger.Info("SQL file executed", "file", file.Path, "duration", time.Since(start).String(), "rows_affected", rows)
	}
	return nil
}

// GetSQLFiles lists the common files followed by those of the environment.
func (s *SQLInitManager) GetSQLFiles() ([]SQLFileInfo, error) {
	files, err := s.filesIn("common", "common")
	if err != nil {
		return nil, fmt.Errorf("failed to get common SQL files: %w", err)
	}
	if s.environment == "" {
		return files, nil
	}
	envFiles, err := s.filesIn(path.Join("environments", s.environment), s.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to get environment SQL files: %w", err)
	}
	return append(files, envFiles...), nil
}

// filesIn returns the .sql files below dir; a missing dir yields none.
func (s *SQLInitManager) filesIn(dir, environment string) ([]SQLFileInfo, error) {
	var files []SQLFileInfo
	err := fs.WalkDir(s.root, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".sql") {
			return nil
		}
		files = append(files, SQLFileInfo{
			Path:        p,
			Name:        d.Name(),
			Order:       parseFileOrder(d.Name()),
			Environment: environment,
		})
		return nil
	})
	slices.SortStableFunc(files, func(a, b SQLFileInfo) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), strings.Compare(a.Name, b.Name))
	})
	return files, err
}

// parseFileOrder reads the NNN_ prefix; files without one run last.
func parseFileOrder(filename string) int {
	if m := fileOrderPattern.FindStringSubmatch(filename); m != nil {
		if order, err := strconv.Atoi(m[1]); err == nil {
			return order
		}
	}
	return 999
}

func (s *SQLInitManager) executeFile(ctx context.Context, file SQLFileInfo) (int64, error) {
	content, err := fs.ReadFile(s.root, file.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}
	text := string(content)
	if strings.Contains(text, "{{") {
		if text, err = s.render(text); err != nil {
			return 0, err
		}
	}

	var rows int64
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range splitSQLStatements(text) {
			res, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("failed to execute SQL statement: %s, error: %w", stmt, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				rows += n
			}
		}
		return nil
	})
	return rows, err
}

// render executes content as a text/template over the process environment
// plus ENVIRONMENT and TIMESTAMP, for example
//
//	INSERT INTO team (name) VALUES ('{{.ENVIRONMENT}}-team');
func (s *SQLInitManager) render(content string) (string, error) {
	tmpl, err := template.New("sql").Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	data := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			data[k] = v
		}
	}
	data["ENVIRONMENT"] = s.environment
	data["TIMESTAMP"] = time.Now().Format(time.DateTime)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// splitSQLStatements splits on lines ending with ';' and drops blank and
// '--' comment lines. A statement never ends inside a line.
func splitSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte(' ')
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
