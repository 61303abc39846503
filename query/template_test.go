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

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileTemplate(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		sql   string
		names []string
	}{
		{
			name:  "single parameter",
			text:  "SELECT * FROM member WHERE username = :username",
			sql:   "SELECT * FROM member WHERE username = ?",
			names: []string{"username"},
		},
		{
			name:  "parameters in order",
			text:  "SELECT * FROM member WHERE age >= :min AND age <= :max_age",
			sql:   "SELECT * FROM member WHERE age >= ? AND age <= ?",
			names: []string{"min", "max_age"},
		},
		{
			name:  "repeated parameter",
			text:  "WHERE username = :name OR nickname = :name",
			sql:   "WHERE username = ? OR nickname = ?",
			names: []string{"name", "name"},
		},
		{
			name:  "quoted text untouched",
			text:  `WHERE username = ':literal' AND "weird:col" = :v`,
			sql:   `WHERE username = ':literal' AND "weird:col" = ?`,
			names: []string{"v"},
		},
		{
			name:  "cast kept",
			text:  "WHERE id = :id::bigint",
			sql:   "WHERE id = ?::bigint",
			names: []string{"id"},
		},
		{
			name: "lone colon",
			text: "SELECT 1 AS a, ': ' AS b WHERE 1 = 1 :",
			sql:  "SELECT 1 AS a, ': ' AS b WHERE 1 = 1 :",
		},
		{
			name:  "line comment",
			text:  "SELECT * FROM member -- don't filter by team\nWHERE username = :username",
			sql:   "SELECT * FROM member -- don't filter by team\nWHERE username = ?",
			names: []string{"username"},
		},
		{
			name:  "block comment",
			text:  "SELECT * FROM member /* username = :ignored */ WHERE username = :username",
			sql:   "SELECT * FROM member /* username = :ignored */ WHERE username = ?",
			names: []string{"username"},
		},
		{
			name:  "trailing line comment",
			text:  "WHERE id = :id -- or :other?",
			sql:   `WHERE id = ? -- or :other\?`,
			names: []string{"id"},
		},
		{
			name:  "comment markers inside quotes",
			text:  "WHERE note = '-- :a' AND tag = '/*' AND id = :id",
			sql:   "WHERE note = '-- :a' AND tag = '/*' AND id = ?",
			names: []string{"id"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := compileTemplate(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, c.sql)
			assert.Equal(t, tc.names, c.names)
		})
	}
}

func TestCompileTemplateRejects(t *testing.T) {
	for _, text := range []string{
		"SELECT * FROM member WHERE id = ?",
		"SELECT * FROM member WHERE username = '?'",
		"SELECT * FROM member WHERE username = 'open",
		"SELECT * FROM member /* open",
	} {
		_, err := compileTemplate(text)
		assert.ErrorIs(t, err, ErrInvalidTemplate, text)
	}
}

func TestBind(t *testing.T) {
	c, err := compileTemplate("WHERE a = :a AND b = :b AND c = :a")
	require.NoError(t, err)

	sql, args, err := c.bind(map[string]any{"a": 1, "b": "x"})
	require.NoError(t, err)
	assert.Equal(t, "WHERE a = ? AND b = ? AND c = ?", sql)
	assert.Equal(t, []any{1, "x", 1}, args)

	_, _, err = c.bind(map[string]any{"a": 1})
	assert.ErrorIs(t, err, ErrUnboundParameter)
	assert.ErrorContains(t, err, "b")

	_, _, err = c.bind(map[string]any{"a": 1, "b": 2, "z": 3, "y": 4})
	assert.ErrorIs(t, err, ErrUnknownParameter)
	assert.ErrorContains(t, err, "y, z")
}

func TestFactoryCachesTemplates(t *testing.T) {
	f := NewFactoryWithCacheSize(nil, 2)
	first, err := f.compile("WHERE id = :id")
	require.NoError(t, err)
	second, err := f.compile("WHERE id = :id")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, f.templates.Len())

	_, err = f.compile("WHERE id = ?")
	assert.Error(t, err)
	assert.Equal(t, 1, f.templates.Len())

	tx := f.WithDB(nil)
	assert.Same(t, f.templates, tx.templates)
}

func TestTemplateSQL(t *testing.T) {
	sql, args, err := CreateQuery[struct{}](NewFactory(nil), "SELECT * FROM member WHERE username = :username").
		SetParameter("username", "member1").
		SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM member WHERE username = ?", sql)
	assert.Equal(t, []any{"member1"}, args)

	_, _, err = CreateQuery[struct{}](NewFactory(nil), "SELECT * FROM member WHERE username = :username").
		SetParameters(map[string]any{"age": 10}).
		SQL()
	assert.ErrorIs(t, err, ErrUnboundParameter)
}
