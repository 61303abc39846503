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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestDefaults(t *testing.T) {
	p := NewDefaultPageRequest(0, 0)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, 10, p.GetPageSize())
	assert.Zero(t, p.GetOffset())
	assert.Nil(t, p.GetFilter())
	assert.Empty(t, p.GetOrders())
}

func TestPageRequestOffset(t *testing.T) {
	assert.Equal(t, 6, NewDefaultPageRequest(3, 3).GetOffset())
	assert.Equal(t, 20, NewDefaultPageRequest(2, 20).GetOffset())
}

func TestPagination(t *testing.T) {
	cases := []struct {
		page, size, total int
		pages             int
		next              bool
	}{
		{page: 1, size: 3, total: 0, pages: 0, next: false},
		{page: 1, size: 3, total: 4, pages: 2, next: true},
		{page: 2, size: 3, total: 4, pages: 2, next: false},
		{page: 1, size: 2, total: 4, pages: 2, next: true},
		{page: 1, size: 0, total: 4, pages: 0, next: false},
	}
	for _, tc := range cases {
		p := NewDefaultPagination[struct{}](tc.page, tc.size)
		p.Total = tc.total
		assert.Equal(t, tc.pages, p.TotalPages(), "%+v", tc)
		assert.Equal(t, tc.next, p.HasNext(), "%+v", tc)
		assert.NotNil(t, p.Items)
	}
}
