// Package store persists records into the tables derived by package schema.
//
// Open connects through database/sql to SQLite (modernc.org/sqlite, driver
// "sqlite"), PostgreSQL (pgx, driver "pgx") or MySQL (driver "mysql").
// A Session is one transaction: Save writes a record with every nested
// record, Load reads it back, and GetOrCreate resolves Unique records to a
// single row per distinct value tuple, cached for the session.
//
// Column encoding:
//   - primitive.Date as DATE, time.Time as a UTC timestamp;
//   - time.Duration as BIGINT nanoseconds;
//   - map[string]any as JSON text.
package store
