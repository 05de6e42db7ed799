// Package repository provides a generic repository abstraction built on Bun
// with staged mutations, unit-of-work commit, identity-map tracking, and
// paginated reads.
package repository
