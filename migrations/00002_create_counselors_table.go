package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateCounselorsTable, downCreateCounselorsTable)
}

func upCreateCounselorsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE counselors (
	  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	  user_id BIGINT UNSIGNED NOT NULL,
	  bio TEXT NOT NULL,
	  specialization VARCHAR(190) NULL,
	  profile_picture VARCHAR(512) NULL,
	  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	  UNIQUE KEY uq_counselors_user (user_id),
	  CONSTRAINT fk_counselors_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateCounselorsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS counselors;`)
	return err
}
