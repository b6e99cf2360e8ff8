package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDuplicate is a uniqueness violation reported by the database.
	ErrDuplicate = errors.New("duplicate row")
	ErrNotFound  = errors.New("record not found")
	ErrNotUnique = errors.New("record type is not unique")
	// ErrNotRegistered is returned for record types without a registered table.
	ErrNotRegistered = errors.New("record type is not registered")
)

const (
	pgUniqueViolation = "23505"
	mysqlDuplicateKey = 1062
	sqliteUniqueCode  = sqlite3.SQLITE_CONSTRAINT_UNIQUE
	sqlitePrimaryCode = sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
)

// IsDuplicate reports whether err is a uniqueness violation of any supported driver.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrDuplicate) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateKey
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqliteUniqueCode, sqlitePrimaryCode:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// extended codes disabled
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}

	return false
}

// classify marks driver uniqueness violations with ErrDuplicate.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrDuplicate) || !IsDuplicate(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrDuplicate, err)
}
