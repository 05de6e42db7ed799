// Package database provides connection management, configuration loading,
// table bootstrap, query logging hooks, error classification, health checks,
// and related utilities built on top of Bun.
package database
