package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	supa "github.com/supabase-community/supabase-go"

	"conti/internal/auth"
	authmemory "conti/internal/auth/memory"
	authsupabase "conti/internal/auth/supabase"
	"conti/internal/blob"
	blobmemory "conti/internal/blob/memory"
	"conti/internal/blob/supablob"
	"conti/internal/storage/memory"
	"conti/internal/storage/postgres"
	"conti/internal/storage/sqlite"
	"conti/internal/storage/supastore"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var client *supa.Client
	if config.needsSupabase() {
		var err error
		client, err = supa.NewClient(config.SupabaseURL, config.SupabaseKey, &supa.ClientOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Supabase client: %w", err)
		}
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result = f.createMemoryBackend()
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(ctx, config)
	case SupabaseBackend:
		result, err = f.createSupabaseBackend(client, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result.Auth, err = f.createAuth(client, config.AuthType)
	if err != nil {
		return nil, errors.Join(err, result.Close())
	}
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Info("Initialized memory backend")
	return &BackendResult{
		Repository: memory.New(),
		Blobs:      blobmemory.New("receipts"),
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Repository: repo,
		Blobs:      localBlobs(),
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := postgres.NewRepository(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{
		Repository: repo,
		Blobs:      localBlobs(),
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createSupabaseBackend(client *supa.Client, config Config) (*BackendResult, error) {
	blobs, err := supablob.FromSupabase(client, config.SupabaseBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase storage: %w", err)
	}

	f.logger.Info("Initialized Supabase backend", "bucket", config.SupabaseBucket)

	return &BackendResult{
		Repository: supastore.NewRepository(client),
		Blobs:      blobs,
	}, nil
}

func (f *DefaultFactory) createAuth(client *supa.Client, authType AuthType) (auth.Gateway, error) {
	switch authType {
	case SupabaseAuth:
		if client == nil {
			return nil, errors.New("supabase auth needs a supabase client")
		}
		f.logger.Info("Using Supabase auth")
		return authsupabase.NewGateway(client), nil
	case MemoryAuth:
		f.logger.Warn("Using in-memory auth, accounts are lost on restart")
		return authmemory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", authType)
	}
}

// localBlobs keeps receipt images in process for backends without object storage.
func localBlobs() blob.Store {
	return blobmemory.New("receipts")
}
