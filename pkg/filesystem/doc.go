// Package filesystem provides implementations of types.FS: the real OS
// filesystem and an afero-backed in-memory one for tests.
package filesystem
