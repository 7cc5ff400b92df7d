package postgres

import "embed"

// Migrations holds the schema migrations, applied with golang-migrate from
// paymentd at startup and from paymentctl.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"
