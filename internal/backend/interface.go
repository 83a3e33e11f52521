package backend

import (
	"context"

	"conti/internal/auth"
	"conti/internal/blob"
	"conti/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles what the configured backend provides
type BackendResult struct {
	Repository storage.Repository
	Blobs      blob.Store
	Auth       auth.Gateway
	Cleanup    CleanupFunc
}

// Close runs the cleanup function if there is one
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Auth gateway: memory or supabase
	AuthType AuthType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// Supabase specific, also used by supabase auth
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SupabaseBackend BackendType = "supabase"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend:
		return true
	default:
		return false
	}
}

// AuthType selects the auth gateway implementation
type AuthType string

const (
	MemoryAuth   AuthType = "memory"
	SupabaseAuth AuthType = "supabase"
)

func (at AuthType) IsValid() bool {
	return at == MemoryAuth || at == SupabaseAuth
}
