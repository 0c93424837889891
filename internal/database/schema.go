package database

import (
	"embed"
	"fmt"
	"strings"
)

// Schemas are embedded in the binary so migration works regardless of
// working directory (tests, CI, production).
//
//go:embed schemas/*.sql
var schemaFS embed.FS

// schemaFiles maps database names to their schema files.
var schemaFiles = map[string]string{
	"flips":   "flips_schema.sql",
	"catalog": "catalog_schema.sql",
}

// Migrate applies the database schema for this database's name.
// Schemas are written to be idempotent (CREATE TABLE IF NOT EXISTS),
// so calling Migrate on every startup is safe.
func (db *DB) Migrate() error {
	schemaFile, ok := schemaFiles[db.name]
	if !ok {
		// Unknown database name, skip migration
		return nil
	}

	content, err := schemaFS.ReadFile("schemas/" + schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read embedded schema %s: %w", schemaFile, err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schema %s: %w", schemaFile, err)
	}

	if _, err := tx.Exec(string(content)); err != nil {
		_ = tx.Rollback()

		// If error indicates schema already applied, skip it
		errStr := err.Error()
		if strings.Contains(errStr, "duplicate column") ||
			strings.Contains(errStr, "already exists") {
			return nil
		}

		return fmt.Errorf("failed to execute schema %s for %s: %w", schemaFile, db.name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema %s for %s: %w", schemaFile, db.name, err)
	}

	return nil
}
