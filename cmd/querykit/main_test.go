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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querykit/internal/dbtest"
	"github.com/tomoncle/querykit/internal/fixture"
)

func TestOptionsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querykit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection:\n  type: postgres\n  host: from-file\n  port: 5432\n"), 0o644))

	opts := options{Config: path, Host: "from-flag", Debug: true}
	cfg, err := opts.config()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.ConnectionConfig.Type)
	assert.Equal(t, "from-flag", cfg.ConnectionConfig.Host)
	assert.Equal(t, 5432, cfg.ConnectionConfig.Port)
	assert.True(t, cfg.ConnectionConfig.EnableQueryLog)
	assert.Zero(t, cfg.ConnectionConfig.HealthCheckInterval)

	opts = options{Type: "oracle"}
	_, err = opts.config()
	assert.ErrorContains(t, err, "unsupported database type")
}

func runScenario(t *testing.T, name string, seed bool) string {
	t.Helper()
	ctx := context.Background()
	tx := dbtest.Tx(t, dbtest.Open(t))
	if seed {
		_, err := fixture.Load(ctx, tx)
		require.NoError(t, err)
	}
	for _, s := range scenarios {
		if s.name == name {
			var buf bytes.Buffer
			require.NoError(t, s.run(ctx, tx, &buf))
			return buf.String()
		}
	}
	t.Fatalf("no scenario %q", name)
	return ""
}

func TestScenarios(t *testing.T) {
	member1 := "Member(id=1, username=member1, age=10)"
	cases := []struct {
		name string
		want []string
	}{
		{name: "template", want: []string{"template: " + member1}},
		{name: "builder", want: []string{"builder: " + member1}},
		{name: "builder-nil-predicate", want: []string{"builder-nil-predicate: " + member1}},
		{name: "builder-and", want: []string{"builder-and: " + member1}},
		{name: "fetch-join", want: []string{
			"fetch-join: " + member1 + " -> Team(id=1, name=teamA)",
			"fetch-join: Member(id=4, username=member4, age=40) -> Team(id=2, name=teamB)",
		}},
		{name: "projection", want: []string{"TeamName:teamA", "TeamName:teamB"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := runScenario(t, tc.name, true)
			for _, want := range tc.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestScenariosOnEmptyDatabase(t *testing.T) {
	out := runScenario(t, "builder", false)
	assert.Contains(t, out, "builder: query: no result")
}
