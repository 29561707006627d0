//go:build sqlite

package storage

// DefaultStoreKind names the backend used when none is configured.
func DefaultStoreKind() string { return "sqlite" }
