package database

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migrate 내장 SQL 마이그레이션 적용
func Migrate(db *DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	logger.Info("Migrations completed successfully")
	return nil
}
