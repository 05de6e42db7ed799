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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// LoadStrategy selects how read operations materialize entities: tracked
// instances are resolved through the unit of work's identity map and can be
// staged for update directly, untracked instances are detached snapshots.
type LoadStrategy int

const (
	// TrackedLoad returns live instances resolved through the identity map.
	TrackedLoad LoadStrategy = iota
	// UntrackedLoad returns fresh detached copies on every read.
	UntrackedLoad
)

var _ BaseEnum = TrackedLoad

// IsValid reports whether the strategy is one of the declared values.
func (s LoadStrategy) IsValid() bool {
	return s == TrackedLoad || s == UntrackedLoad
}

// Number returns the numeric enum value, or IllegalValue when invalid.
func (s LoadStrategy) Number() int {
	if !s.IsValid() {
		return IllegalValue
	}
	return int(s)
}

// Name returns the identifier-style name of the strategy.
func (s LoadStrategy) Name() string {
	switch s {
	case TrackedLoad:
		return "tracked"
	case UntrackedLoad:
		return "untracked"
	default:
		return IllegalName
	}
}

func (s LoadStrategy) String() string { return s.Name() }

// Desc returns a human readable description of the strategy.
func (s LoadStrategy) Desc() string {
	switch s {
	case TrackedLoad:
		return "identity-map resolved, change-monitored instances"
	case UntrackedLoad:
		return "detached snapshots, one per read"
	default:
		return IllegalDesc
	}
}
