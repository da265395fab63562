package authdb

import "embed"

// Migrations holds the embedded goose migration scripts for PostgresStore.
// Apply them with pg.MigrateFS before first use.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose should walk.
const MigrationsDir = "migrations"
