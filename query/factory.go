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
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/uptrace/bun"
)

// DefaultTemplateCacheSize bounds the number of compiled templates a Factory keeps.
const DefaultTemplateCacheSize = 256

// Factory is the entry point for builder and template queries against one
// bun.IDB, which may be a *bun.DB, a bun.Conn or a bun.Tx.
type Factory struct {
	db        bun.IDB
	templates *lru.Cache[string, *compiledTemplate]
}

// NewFactory returns a Factory with the default template cache size.
func NewFactory(db bun.IDB) *Factory {
	return NewFactoryWithCacheSize(db, DefaultTemplateCacheSize)
}

// NewFactoryWithCacheSize returns a Factory caching at most size compiled
// templates; size <= 0 selects the default.
func NewFactoryWithCacheSize(db bun.IDB, size int) *Factory {
	if size <= 0 {
		size = DefaultTemplateCacheSize
	}
	cache, err := lru.New[string, *compiledTemplate](size)
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}
	return &Factory{db: db, templates: cache}
}

// DB returns the handle queries run against.
func (f *Factory) DB() bun.IDB {
	return f.db
}

// WithDB returns a Factory running against db that shares the template cache,
// typically used to run the same queries inside a transaction.
func (f *Factory) WithDB(db bun.IDB) *Factory {
	return &Factory{db: db, templates: f.templates}
}

func (f *Factory) compile(text string) (*compiledTemplate, error) {
	if t, ok := f.templates.Get(text); ok {
		return t, nil
	}
	t, err := compileTemplate(text)
	if err != nil {
		return nil, err
	}
	f.templates.Add(text, t)
	return t, nil
}
