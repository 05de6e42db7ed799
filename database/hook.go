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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var querySilentMode bool

// EnableQuerySilent suppresses all query hook output when set. Useful in
// tests that exercise failing statements on purpose.
func EnableQuerySilent(b bool) {
	querySilentMode = b
}

var (
	selectColor  = color.New(color.FgGreen)
	insertColor  = color.New(color.FgBlue)
	updateColor  = color.New(color.FgYellow)
	deleteColor  = color.New(color.FgMagenta)
	defaultColor = color.New(color.FgRed)
	tagColor     = color.New(color.FgCyan)
	errColor     = color.New(color.BgRed, color.FgWhite)
)

func colorizeQuery(event *bun.QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return selectColor.Sprint(event.Query)
	case "INSERT":
		return insertColor.Sprint(event.Query)
	case "UPDATE":
		return updateColor.Sprint(event.Query)
	case "DELETE":
		return deleteColor.Sprint(event.Query)
	default:
		return defaultColor.Sprint(event.Query)
	}
}

// QueryHook prints executed statements colored by operation. The envName
// variable overrides the static enable/verbose settings at runtime: empty or
// "0" disables output, "2" enables verbose mode (successful statements too).
type QueryHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook constructs a query hook writing to stdout.
func NewQueryHook(envName string, verbose bool) *QueryHook {
	return &QueryHook{envName: envName, enabled: true, verbose: verbose, writer: os.Stdout}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if querySilentMode {
		return
	}
	enabled := h.enabled
	verbose := h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	if !enabled {
		return
	}

	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	dur := now.Sub(event.StartTime)

	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		tagColor.Sprintf("%10s", "[SQL]"),
		fmt.Sprintf("%17s", dur.Round(time.Microsecond)),
		"  ", colorizeQuery(event),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, "\t", errColor.Sprintf(" %s: %s ", typ, event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

// SlowQueryHook logs statements whose execution time exceeds the threshold.
type SlowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

// NewSlowQueryHook constructs a slow query hook with the given threshold.
func NewSlowQueryHook(slowTime time.Duration, logger Logger) *SlowQueryHook {
	return &SlowQueryHook{slowTime: slowTime, logger: logger}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if querySilentMode || event.Err != nil || h.logger == nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.slowTime {
		h.logger.Warn("Database slow query detected",
			"duration", duration,
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}
