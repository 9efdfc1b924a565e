// Package buildid mints identifiers and filename stamps for builds.
//
// Everything that records a build (journal rows, HTTP responses, MCP
// results) accepts a Generator, keeping the ID strategy a startup-time
// decision rather than a compile-time one.
package buildid

import (
	"time"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, so journal rows order naturally by ID.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default mints build identifiers: UUIDv7 under a "bld_" prefix.
var Default Generator = Prefixed("bld_", UUIDv7())

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Stamp renders t in the compact form derived output filenames carry,
// two-digit year first so siblings sort chronologically.
func Stamp(t time.Time) string {
	return t.Format("060102_1504")
}
