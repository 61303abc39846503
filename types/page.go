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

package types

import "github.com/tomoncle/querykit/query"

const defaultPageSize = 10

// PageRequest describes one page, an optional filter and the ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   query.Predicate
	orders   []query.OrderSpecifier
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		return defaultPageSize
	}
	return p.pageSize
}

// GetPage returns the 1-based page number.
func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		return 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// GetFilter returns the filter, nil when every row matches.
func (p *PageRequest) GetFilter() query.Predicate {
	return p.filter
}

func (p *PageRequest) GetOrders() []query.OrderSpecifier {
	return p.orders
}

// NewPageRequest constructs a PageRequest with filter and order settings.
// A nil filter selects every row.
func NewPageRequest(page int, pageSize int, filter query.Predicate, orders ...query.OrderSpecifier) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize, filter: filter, orders: orders}
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil)
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{Page: page, PageSize: pageSize, Items: make([]*T, 0)}
}

// TotalPages is the number of pages needed for Total items.
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// HasNext reports whether a page follows this one.
func (p *Pagination[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}
