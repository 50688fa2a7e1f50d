package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths and translates it into
	// the format-agnostic model. Paths that do not exist are skipped.
	Load(ctx context.Context, paths ...string) (*Model, error)

	// Extensions lists the file extensions this loader understands,
	// including the leading dot.
	Extensions() []string
}
