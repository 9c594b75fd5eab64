package database

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"stockledger/internal/pkg/database/migrations"
)

// Migrate aplica todas as migrações embutidas pendentes.
func Migrate(db *sql.DB) error {
	return RunMigrations(db, "up")
}

// RunMigrations executa um comando do goose (up, down, status, ...) sobre as migrações embutidas.
func RunMigrations(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose: dialeto inválido: %w", err)
	}

	if err := goose.Run(command, db, ".", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
