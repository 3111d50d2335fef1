// Package migrations registers the schema migrations of the application.
// Import it for side effects before running a migration.Migrator.
package migrations
