/*
 * Copyright 2026 quarrydb.
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

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// Window describes a skip/take page window over a collection. Negative
// values are clamped to zero; a zero take yields an empty page.
type Window struct {
	skip int
	take int
}

// NewWindow constructs a page window from skip and take values.
func NewWindow(skip int, take int) Window {
	return Window{skip: skip, take: take}
}

// Skip returns the number of leading records to skip, never negative.
func (w Window) Skip() int {
	if w.skip < 0 {
		return 0
	}
	return w.skip
}

// Take returns the maximum page size, never negative.
func (w Window) Take() int {
	if w.take < 0 {
		return 0
	}
	return w.take
}

// PageResult holds one page of items along with the total collection count.
// Total always reflects the full, unfiltered collection size at read time.
type PageResult[T any] struct {
	Skip  int
	Take  int
	Total int
	Items []*T
}

// NewPageResult constructs an empty page result for the given window.
func NewPageResult[T any](window Window, total int) *PageResult[T] {
	return &PageResult[T]{
		Skip:  window.Skip(),
		Take:  window.Take(),
		Total: total,
		Items: make([]*T, 0),
	}
}
