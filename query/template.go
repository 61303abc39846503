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
	"context"
	"fmt"
	"sort"
	"strings"
)

// Template is a literal SQL query with :name parameters whose rows map to T.
//
//	query.CreateQuery[entity.Member](f, "SELECT * FROM member WHERE username = :username").
//		SetParameter("username", "member1").
//		GetSingleResult(ctx)
type Template[T any] struct {
	factory *Factory
	text    string
	params  map[string]any
}

// CreateQuery wraps text; compilation happens on first execution.
func CreateQuery[T any](f *Factory, text string) *Template[T] {
	return &Template[T]{factory: f, text: text, params: make(map[string]any)}
}

// SetParameter binds value to :name and returns the template.
func (t *Template[T]) SetParameter(name string, value any) *Template[T] {
	t.params[name] = value
	return t
}

// SetParameters binds every entry of params.
func (t *Template[T]) SetParameters(params map[string]any) *Template[T] {
	for k, v := range params {
		t.params[k] = v
	}
	return t
}

// SQL returns the compiled text with '?' placeholders and the bound arguments
// in placeholder order.
func (t *Template[T]) SQL() (string, []any, error) {
	c, err := t.factory.compile(t.text)
	if err != nil {
		return "", nil, err
	}
	return c.bind(t.params)
}

// GetResultList runs the template and returns every row.
func (t *Template[T]) GetResultList(ctx context.Context) ([]*T, error) {
	text, args, err := t.SQL()
	if err != nil {
		return nil, err
	}
	rows := make([]*T, 0)
	if err := t.factory.db.NewRaw(text, args...).Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetSingleResult runs the template and returns its only row, failing with
// ErrNoResult or ErrNonUniqueResult otherwise.
func (t *Template[T]) GetSingleResult(ctx context.Context) (*T, error) {
	rows, err := t.GetResultList(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNoResult
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%w: %d rows", ErrNonUniqueResult, len(rows))
	}
}

type compiledTemplate struct {
	sql   string
	names []string // one entry per placeholder, repeats included
}

func (c *compiledTemplate) bind(params map[string]any) (string, []any, error) {
	args := make([]any, len(c.names))
	for i, name := range c.names {
		v, ok := params[name]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnboundParameter, name)
		}
		args[i] = v
	}
	var unknown []string
	for name := range params {
		if !c.references(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownParameter, strings.Join(unknown, ", "))
	}
	return c.sql, args, nil
}

func (c *compiledTemplate) references(name string) bool {
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}

// compileTemplate rewrites :name parameters to '?' placeholders. Quoted text
// and '::' casts are copied unchanged. Comments are copied with any '?'
// escaped for bun. Positional '?' is rejected anywhere else because bun
// would consume it as a placeholder, including inside quoted text.
func compileTemplate(text string) (*compiledTemplate, error) {
	var (
		b     strings.Builder
		names []string
		quote byte
	)
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if quote == 0 {
			end, err := commentEnd(text, i)
			if err != nil {
				return nil, err
			}
			if end > i {
				b.WriteString(strings.ReplaceAll(text[i:end], "?", `\?`))
				i = end - 1
				continue
			}
		}
		if ch == '?' {
			return nil, fmt.Errorf("%w: positional '?' at offset %d", ErrInvalidTemplate, i)
		}
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			b.WriteByte(ch)
			continue
		}
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			b.WriteByte(ch)
		case ch == ':' && i+1 < len(text) && text[i+1] == ':':
			b.WriteString("::")
			i++
		case ch == ':' && i+1 < len(text) && isIdentStart(text[i+1]):
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			names = append(names, text[i+1:j])
			b.WriteByte('?')
			i = j - 1
		default:
			b.WriteByte(ch)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated %c quote", ErrInvalidTemplate, quote)
	}
	return &compiledTemplate{sql: b.String(), names: names}, nil
}

// commentEnd returns the offset just past a "--" or "/* */" comment starting
// at i, or i when none starts there. A line comment stops before its newline.
func commentEnd(text string, i int) (int, error) {
	switch rest := text[i:]; {
	case strings.HasPrefix(rest, "--"):
		if n := strings.IndexByte(rest, '\n'); n >= 0 {
			return i + n, nil
		}
		return len(text), nil
	case strings.HasPrefix(rest, "/*"):
		if n := strings.Index(rest[2:], "*/"); n >= 0 {
			return i + n + 4, nil
		}
		return 0, fmt.Errorf("%w: unterminated comment at offset %d", ErrInvalidTemplate, i)
	}
	return i, nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
