// Package repository holds the MySQL data access layer.  Repositories
// return sql.ErrNoRows when a lookup misses and the sentinel values
// below when a write collides with a database constraint, so services
// can translate them without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when a user insert or update hits the
// unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrScheduleBooked is returned when a booking insert or status change
// would leave two active bookings on one schedule.  It is backed by the
// unique generated column bookings.active_schedule_id.
var ErrScheduleBooked = errors.New("schedule already booked")

// ErrConflict is returned when a write cannot proceed because of
// dependent rows, such as a foreign key from another table.
var ErrConflict = errors.New("conflict")

// ErrMissingParent is returned when an insert references a row that no
// longer exists, such as a booking for a deleted student.
var ErrMissingParent = errors.New("referenced row missing")

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// duplicateKey reports whether err is a MySQL duplicate-entry error on
// the named index.  An empty index matches any unique key.
func duplicateKey(err error, index string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return false
	}
	return index == "" || strings.Contains(me.Message, index)
}

// referenced reports whether err is a foreign key violation raised by
// deleting a parent row that still has children.
func referenced(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlRowIsReferenced
}

// missingParent reports whether err is a foreign key violation raised by
// inserting a child whose parent row is gone.
func missingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoReferencedRow
}
