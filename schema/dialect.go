package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders identifiers, placeholders and column types for one SQL engine.
type Dialect interface {
	// Name is the database/sql driver name the dialect is meant for.
	Name() string
	Quote(ident string) string
	// Table returns the quoted, namespace-qualified table name.
	Table(namespace, name string) string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// Returning reports whether INSERT ... RETURNING is supported.
	Returning() bool

	columnType(c *Column) string
	primaryKey(auto bool) string
	inlineComment(comment string) string
	createNamespace(ns string) string
}

var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
	MySQL    Dialect = mysqlDialect{}
)

// DialectFor returns the dialect of a driver name: "sqlite", "pgx" or "postgres", "mysql".
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Quote(ident string) string { return quoteWith(ident, '"') }

// Table ignores the namespace: SQLite has no schemas beyond attached databases.
func (d sqliteDialect) Table(_, name string) string { return d.Quote(name) }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) Returning() bool { return true }

func (sqliteDialect) columnType(c *Column) string {
	switch c.Type {
	case TypeBigInt, TypeInterval:
		return "INTEGER"
	case TypeDouble:
		return "REAL"
	case TypeBytes:
		return "BLOB"
	case TypeBool:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (sqliteDialect) primaryKey(auto bool) string {
	if auto {
		return "PRIMARY KEY AUTOINCREMENT"
	}

	return "PRIMARY KEY"
}

func (sqliteDialect) inlineComment(string) string { return "" }

func (sqliteDialect) createNamespace(string) string { return "" }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "pgx" }

func (postgresDialect) Quote(ident string) string { return quoteWith(ident, '"') }

func (d postgresDialect) Table(ns, name string) string {
	if ns == "" {
		return d.Quote(name)
	}

	return d.Quote(ns) + "." + d.Quote(name)
}

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) Returning() bool { return true }

func (postgresDialect) columnType(c *Column) string {
	switch c.Type {
	case TypeBigInt, TypeInterval:
		return "BIGINT"
	case TypeDouble:
		return "DOUBLE PRECISION"
	case TypeBytes:
		return "BYTEA"
	case TypeBool:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeTimestamp:
		return "TIMESTAMPTZ"
	case TypeJSON:
		return "JSONB"
	default:
		return "TEXT"
	}
}

func (postgresDialect) primaryKey(auto bool) string {
	if auto {
		return "GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	}

	return "PRIMARY KEY"
}

func (postgresDialect) inlineComment(string) string { return "" }

func (d postgresDialect) createNamespace(ns string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + d.Quote(ns)
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Quote(ident string) string { return quoteWith(ident, '`') }

func (d mysqlDialect) Table(ns, name string) string {
	if ns == "" {
		return d.Quote(name)
	}

	return d.Quote(ns) + "." + d.Quote(name)
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) Returning() bool { return false }

func (mysqlDialect) columnType(c *Column) string {
	switch c.Type {
	case TypeBigInt, TypeInterval:
		return "BIGINT"
	case TypeDouble:
		return "DOUBLE"
	case TypeBytes:
		return "LONGBLOB"
	case TypeBool:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeTimestamp:
		return "DATETIME(6)"
	case TypeJSON:
		return "JSON"
	default:
		// indexed text needs a bounded length
		if c.Unique || c.indexed {
			return "VARCHAR(255)"
		}

		return "TEXT"
	}
}

func (mysqlDialect) primaryKey(auto bool) string {
	if auto {
		return "NOT NULL AUTO_INCREMENT PRIMARY KEY"
	}

	return "NOT NULL PRIMARY KEY"
}

func (mysqlDialect) inlineComment(comment string) string {
	return "COMMENT " + quoteLiteral(comment)
}

func (d mysqlDialect) createNamespace(ns string) string {
	return "CREATE DATABASE IF NOT EXISTS " + d.Quote(ns)
}

func quoteWith(ident string, q byte) string {
	s := string(q)
	return s + strings.ReplaceAll(ident, s, s+s) + s
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
