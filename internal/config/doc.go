// Package config loads, normalizes, and validates discbackup configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and resolves the performance profile table
// that every backup job draws its MakeMKV cache, buffer, timeout, split, and
// retry parameters from. The profile table is immutable once built; loading a
// profiles file replaces the table rather than patching it.
//
// Cache wraps a loader with a freshness comparator so long-running callers can
// re-read settings cheaply without a background refresher.
package config
