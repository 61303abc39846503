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

import "errors"

var (
	// ErrNoResult is returned when a single-result query matched zero rows.
	ErrNoResult = errors.New("query: no result")
	// ErrNonUniqueResult is returned when a single-result query matched more than one row.
	ErrNonUniqueResult = errors.New("query: non-unique result")
	// ErrUnboundParameter is returned when a template is executed with a named parameter left unset.
	ErrUnboundParameter = errors.New("query: unbound parameter")
	// ErrUnknownParameter is returned when a parameter is set that the template does not reference.
	ErrUnknownParameter = errors.New("query: unknown parameter")
	// ErrInvalidTemplate is returned when template text cannot be compiled.
	ErrInvalidTemplate = errors.New("query: invalid template")
)

// IsNoUniqueResult reports whether err came from a single-result query that
// did not match exactly one row.
func IsNoUniqueResult(err error) bool {
	return errors.Is(err, ErrNoResult) || errors.Is(err, ErrNonUniqueResult)
}
