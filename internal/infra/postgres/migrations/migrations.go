package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema for users, quizzes, questions and choices, applied in file order.
var Migrations = migrate.NewMigrations()
