// Package hostfs provides file helpers for the host files the greeter reads
// and the few it writes.
//
// All lookups go through Root so tests can point the greeter at a fake
// filesystem tree:
//
//	Root = /           (production)
//	Root = t.TempDir() (tests)
//
// Writes are atomic: temp file in the same directory, fsync, rename.
package hostfs
