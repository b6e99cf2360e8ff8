package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"record-mapper/record"
	"record-mapper/schema"
)

const (
	DefaultDriver = "sqlite"
	DefaultDSN    = ":memory:"

	defaultPingTimeout = 5 * time.Second
)

// Config selects and tunes the database connection.
type Config struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int           `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty"`
	PingTimeout     time.Duration `yaml:"ping_timeout,omitempty"`
}

// Schemas resolves the schema a record type was registered with.
// *registry.Registry implements it.
type Schemas interface {
	Lookup(t *record.Type) (*schema.Schema, bool)
	Schemas() []*schema.Schema
}

// DB is an open database together with its dialect.
type DB struct {
	db      *sql.DB
	dialect schema.Dialect
}

// Open connects to the database described by cfg and pings it.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DefaultDriver
	}

	dialect, err := schema.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := normalizeDSN(dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	configurePool(db, dialect, cfg)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	return &DB{db: db, dialect: dialect}, nil
}

// MySQLDSN builds a go-sql-driver DSN that parses DATE and DATETIME columns
// into time.Time.
func MySQLDSN(host string, port int, database, user, password string) string {
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", host, port)
	c.DBName = database
	c.User = user
	c.Passwd = password
	c.ParseTime = true
	c.Loc = time.UTC

	return c.FormatDSN()
}

func normalizeDSN(d schema.Dialect, dsn string) (string, error) {
	switch d {
	case schema.SQLite:
		if dsn == "" {
			dsn = DefaultDSN
		}

		if !strings.Contains(dsn, "foreign_keys") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}

			dsn += sep + "_pragma=foreign_keys(1)"
		}

		return dsn, nil
	case schema.MySQL:
		c, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("failed to parse mysql dsn: %w", err)
		}

		c.ParseTime = true

		return c.FormatDSN(), nil
	default:
		return dsn, nil
	}
}

func configurePool(db *sql.DB, d schema.Dialect, cfg Config) {
	if d == schema.SQLite {
		// one connection: an in-memory database lives and dies with it
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		return
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// Dialect returns the SQL dialect of the connection.
func (d *DB) Dialect() schema.Dialect { return d.dialect }

// SQL exposes the underlying *sql.DB.
func (d *DB) SQL() *sql.DB { return d.db }

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// CreateSchema executes the DDL of s. Tables that already exist are kept.
func (d *DB) CreateSchema(ctx context.Context, s *schema.Schema) error {
	for _, stmt := range s.DDL(d.dialect) {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// CreateAll creates the tables of every schema of reg.
func (d *DB) CreateAll(ctx context.Context, reg Schemas) error {
	for _, s := range reg.Schemas() {
		if err := d.CreateSchema(ctx, s); err != nil {
			return err
		}
	}

	return nil
}

// Begin starts a unit of work resolving record types through reg.
func (d *DB) Begin(ctx context.Context, reg Schemas) (*Session, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &Session{
		tx:      tx,
		dialect: d.dialect,
		schemas: reg,
		cache:   make(map[cacheKey]int64),
		tables:  make(map[*record.Type]*schema.Table),
	}, nil
}
