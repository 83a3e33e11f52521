package backend

import (
	"errors"
	"fmt"
	"strings"

	"conti/internal/config"
)

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("backend: nil app config")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("DATA_BACKEND %q: want one of %s",
			appConfig.DataBackend, strings.Join(GetBackendTypeStrings(), ", "))
	}
	authType := AuthType(appConfig.AuthBackend)
	if !authType.IsValid() {
		return Config{}, fmt.Errorf("AUTH_BACKEND %q: want memory or supabase", appConfig.AuthBackend)
	}

	return Config{
		Type:     backendType,
		AuthType: authType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		SupabaseURL:    appConfig.SupabaseURL,
		SupabaseKey:    appConfig.SupabaseKey,
		SupabaseBucket: appConfig.SupabaseBucket,
	}, nil
}

// needsSupabase reports whether any part of the backend talks to Supabase
func (c Config) needsSupabase() bool {
	return c.Type == SupabaseBackend || c.AuthType == SupabaseAuth
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.AuthType.IsValid() {
		return fmt.Errorf("invalid auth type: %s", c.AuthType)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case SupabaseBackend:
		if c.SupabaseBucket == "" {
			return fmt.Errorf("Supabase bucket is required for supabase backend")
		}
	case MemoryBackend:
		// Memory backend doesn't require additional validation
	}

	if c.needsSupabase() && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		return fmt.Errorf("Supabase URL and key are required for supabase %s", c.supabaseUser())
	}

	return nil
}

func (c Config) supabaseUser() string {
	if c.Type == SupabaseBackend {
		return "backend"
	}
	return "auth"
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
