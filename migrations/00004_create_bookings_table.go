package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateBookingsTable, downCreateBookingsTable)
}

// active_schedule_id is NULL unless the booking is pending or
// confirmed, so the unique key allows any number of finished bookings
// per schedule but only one live one.
func upCreateBookingsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE bookings (
	  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	  student_id BIGINT UNSIGNED NOT NULL,
	  schedule_id BIGINT UNSIGNED NOT NULL,
	  topic VARCHAR(255) NOT NULL,
	  notes TEXT NOT NULL,
	  status ENUM('pending','confirmed','completed','cancelled') NOT NULL DEFAULT 'pending',
	  active_schedule_id BIGINT UNSIGNED AS (IF(status IN ('pending','confirmed'), schedule_id, NULL)) STORED,
	  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	  UNIQUE KEY uq_bookings_active_schedule (active_schedule_id),
	  KEY idx_bookings_student (student_id, status),
	  KEY idx_bookings_schedule (schedule_id, status),
	  CONSTRAINT fk_bookings_student FOREIGN KEY (student_id) REFERENCES users(id),
	  CONSTRAINT fk_bookings_schedule FOREIGN KEY (schedule_id) REFERENCES schedules(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateBookingsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS bookings;`)
	return err
}
