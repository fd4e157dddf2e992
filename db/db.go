// Package db embeds the SQL migrations so the binary and the integration
// tests apply the same schema.
package db

import "embed"

// Migrations holds the goose migration files under "migrations/".
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads from.
const MigrationsDir = "migrations"
