package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateSchedulesTable, downCreateSchedulesTable)
}

func upCreateSchedulesTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE schedules (
	  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	  counselor_id BIGINT UNSIGNED NOT NULL,
	  date DATE NOT NULL,
	  start_time TIME NOT NULL,
	  end_time TIME NOT NULL,
	  status ENUM('available','booked','cancelled') NOT NULL DEFAULT 'available',
	  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	  KEY idx_schedules_counselor_date (counselor_id, date, start_time),
	  CONSTRAINT fk_schedules_counselor FOREIGN KEY (counselor_id) REFERENCES counselors(id),
	  CONSTRAINT chk_schedules_order CHECK (start_time < end_time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateSchedulesTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS schedules;`)
	return err
}
