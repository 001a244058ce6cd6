package spotter

import "embed"

// MigrationsFS holds the schema migrations, one directory per storage driver.
//
//go:embed migrations
var MigrationsFS embed.FS

// DefaultExercises is the bundled exercise library imported into an empty database.
//
//go:embed seed/default_exercises.yaml
var DefaultExercises []byte
