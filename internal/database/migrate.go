package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	// registers the Go migrations with goose
	_ "github.com/iliyamo/counseling-booking/migrations"
)

// Migrate applies every pending migration registered in the migrations
// package.  dir is the migrations directory goose scans for files; the
// Go migrations themselves are compiled into the binary.
func Migrate(ctx context.Context, db *sql.DB, dir string, log *zap.Logger) error {
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	before, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get migration version: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	after, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get migration version: %w", err)
	}
	log.Info("migrations applied", zap.Int64("from", before), zap.Int64("to", after))
	return nil
}
