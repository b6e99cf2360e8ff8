package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"record-mapper/record"
	"record-mapper/schema"
)

type cacheKey struct {
	table string
	hash  uint64
}

// Session is one unit of work. It deduplicates Unique records within its
// lifetime and is not safe for concurrent use.
type Session struct {
	tx         *sql.Tx
	dialect    schema.Dialect
	schemas    Schemas
	cache      map[cacheKey]int64
	tables     map[*record.Type]*schema.Table
	savepoints int
}

// Commit commits the unit of work.
func (s *Session) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Rollback discards the unit of work. It is a no-op after Commit.
func (s *Session) Rollback() error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back: %w", err)
	}

	return nil
}

// Save inserts the record v of type t with all its nested records and
// returns the ident of its row. Unique records are resolved by GetOrCreate.
func (s *Session) Save(ctx context.Context, t *record.Type, v any) (int64, error) {
	return s.save(ctx, t, v, nil)
}

// SaveUnder is Save for a record type registered with a parent table; parent
// is the ident of the owning row.
func (s *Session) SaveUnder(ctx context.Context, t *record.Type, parent int64, v any) (int64, error) {
	return s.save(ctx, t, v, parent)
}

func (s *Session) save(ctx context.Context, t *record.Type, v any, parent any) (int64, error) {
	tb, err := s.tableOf(t)
	if err != nil {
		return 0, err
	}

	rv, err := structValue(t, v)
	if err != nil {
		return 0, err
	}

	if t.Kind() == record.Unique {
		return s.getOrCreate(ctx, tb, rv)
	}

	id, err := s.insert(ctx, tb, rv, parent)
	if err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", t.Name(), err)
	}

	return id, nil
}

// GetOrCreate returns the ident of the row holding the scalar values and the
// referenced Unique rows of the Unique record v, inserting it when no such
// row exists. Rows are cached per
// session by a hash of their values. A concurrent insert of the same row is
// recovered by querying again.
func (s *Session) GetOrCreate(ctx context.Context, t *record.Type, v any) (int64, error) {
	if t.Kind() != record.Unique {
		return 0, fmt.Errorf("failed to get or create %s: %w", t.Name(), ErrNotUnique)
	}

	tb, err := s.tableOf(t)
	if err != nil {
		return 0, err
	}

	rv, err := structValue(t, v)
	if err != nil {
		return 0, err
	}

	return s.getOrCreate(ctx, tb, rv)
}

// Count returns the number of rows in the table of t.
func (s *Session) Count(ctx context.Context, t *record.Type) (int64, error) {
	tb, err := s.tableOf(t)
	if err != nil {
		return 0, err
	}

	var n int64

	q := "SELECT COUNT(*) FROM " + s.table(tb)
	if err := s.tx.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", tb.Name, err)
	}

	return n, nil
}

func (s *Session) getOrCreate(ctx context.Context, tb *schema.Table, v reflect.Value) (int64, error) {
	cols := uniqueColumns(tb)

	args := make([]any, len(cols))
	parts := make([]string, len(cols))

	for i, c := range cols {
		if c.References != nil {
			ref, err := s.reference(ctx, tb, c, v)
			if err != nil {
				return 0, err
			}

			args[i] = ref
			parts[i] = c.Name + "=" + refKey(ref)

			continue
		}

		arg, err := encodeField(c.Field, v)
		if err != nil {
			return 0, err
		}

		args[i] = arg
		parts[i] = c.Name + "=" + canonical(c.Field, v)
	}

	key := cacheKey{table: tb.QualifiedName(), hash: xxhash.Sum64String(strings.Join(parts, ";"))}
	if id, ok := s.cache[key]; ok {
		return id, nil
	}

	id, found, err := s.findUnique(ctx, tb, cols, args)
	if err != nil {
		return 0, err
	}

	if !found {
		id, err = s.createUnique(ctx, tb, v, cols, args)
		if err != nil {
			return 0, err
		}
	}

	s.cache[key] = id

	return id, nil
}

func (s *Session) createUnique(
	ctx context.Context, tb *schema.Table, v reflect.Value, cols []*schema.Column, args []any,
) (int64, error) {
	s.savepoints++
	sp := "dedup_" + strconv.Itoa(s.savepoints)

	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return 0, fmt.Errorf("failed to create savepoint: %w", err)
	}

	id, err := s.insert(ctx, tb, v, nil)
	if err == nil {
		if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
			return 0, fmt.Errorf("failed to release savepoint: %w", err)
		}

		return id, nil
	}

	if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
		return 0, errors.Join(err, rbErr)
	}

	if !errors.Is(err, ErrDuplicate) {
		return 0, fmt.Errorf("failed to create %s: %w", tb.Name, err)
	}

	id, found, qErr := s.findUnique(ctx, tb, cols, args)
	if qErr != nil {
		return 0, qErr
	}

	if !found {
		return 0, fmt.Errorf("failed to create %s: %w", tb.Name, err)
	}

	return id, nil
}

// findUnique selects the row equal to args in every column; NULL matches NULL.
func (s *Session) findUnique(ctx context.Context, tb *schema.Table, cols []*schema.Column, args []any) (int64, bool, error) {
	conds := make([]string, 0, len(cols))
	bind := make([]any, 0, len(cols))

	for i, c := range cols {
		if args[i] == nil {
			conds = append(conds, s.dialect.Quote(c.Name)+" IS NULL")
			continue
		}

		bind = append(bind, args[i])
		conds = append(conds, s.dialect.Quote(c.Name)+" = "+s.param(c, len(bind)))
	}

	q := "SELECT " + s.dialect.Quote(schema.IdentColumn) + " FROM " + s.table(tb) +
		" WHERE " + strings.Join(conds, " AND ")

	var id int64

	err := s.tx.QueryRowContext(ctx, q, bind...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to query %s: %w", tb.Name, err)
	default:
		return id, true, nil
	}
}

// insert writes one row of tb and the rows of its children.
func (s *Session) insert(ctx context.Context, tb *schema.Table, v reflect.Value, parent any) (int64, error) {
	var (
		cols     []string
		args     []any
		ident    int64
		explicit bool
	)

	for _, c := range tb.Columns {
		var arg any

		switch {
		case c.Name == schema.IdentColumn:
			if c.Field == nil {
				continue
			}

			ident = c.Field.Get(v).Int()
			explicit = true
			arg = ident
		case c.Field == nil:
			arg = parent
		case c.References != nil:
			ref, err := s.reference(ctx, tb, c, v)
			if err != nil {
				return 0, err
			}

			arg = ref
		default:
			enc, err := encodeField(c.Field, v)
			if err != nil {
				return 0, err
			}

			arg = enc
		}

		cols = append(cols, s.dialect.Quote(c.Name))
		args = append(args, arg)
	}

	id, err := s.exec(ctx, tb, cols, args, explicit)
	if err != nil {
		return 0, err
	}

	if explicit {
		id = ident
	}

	for _, rel := range tb.Relations {
		if err := s.insertChildren(ctx, rel, v, id); err != nil {
			return 0, err
		}
	}

	return id, nil
}

func (s *Session) reference(ctx context.Context, tb *schema.Table, c *schema.Column, v reflect.Value) (any, error) {
	rel, ok := tb.Relation(c.Field.Name)
	if !ok {
		return nil, fmt.Errorf("no relation for column %s of %s", c.Name, tb.Name)
	}

	f := c.Field.Get(v)
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return nil, nil
		}

		f = f.Elem()
	}

	id, err := s.getOrCreate(ctx, rel.Target, f)
	if err != nil {
		return nil, err
	}

	return id, nil
}

func (s *Session) insertChildren(ctx context.Context, rel schema.Relation, v reflect.Value, parent int64) error {
	f := rel.Field.Get(v)

	switch rel.Kind {
	case schema.OneToOne:
		if f.Kind() == reflect.Pointer {
			if f.IsNil() {
				return nil
			}

			f = f.Elem()
		}

		_, err := s.insert(ctx, rel.Target, f, parent)

		return err
	case schema.OneToMany:
		for i := range f.Len() {
			if _, err := s.insert(ctx, rel.Target, reflect.Indirect(f.Index(i)), parent); err != nil {
				return err
			}
		}
	}

	return nil
}

// exec runs the INSERT and returns the generated ident unless explicit.
func (s *Session) exec(ctx context.Context, tb *schema.Table, cols []string, args []any, explicit bool) (int64, error) {
	q := "INSERT INTO " + s.table(tb)

	switch {
	case len(cols) > 0:
		params := make([]string, len(cols))
		for i := range cols {
			params[i] = s.dialect.Placeholder(i + 1)
		}

		q += " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(params, ", ") + ")"
	case s.dialect == schema.MySQL:
		q += " () VALUES ()"
	default:
		q += " DEFAULT VALUES"
	}

	if explicit {
		if _, err := s.tx.ExecContext(ctx, q, args...); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", tb.Name, classify(err))
		}

		return 0, nil
	}

	if s.dialect.Returning() {
		var id int64

		q += " RETURNING " + s.dialect.Quote(schema.IdentColumn)
		if err := s.tx.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", tb.Name, classify(err))
		}

		return id, nil
	}

	res, err := s.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", tb.Name, classify(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read ident of %s: %w", tb.Name, err)
	}

	return id, nil
}

// tableOf resolves the table of t: the root of its own registration, or a
// table of any registration deriving an equal record type.
func (s *Session) tableOf(t *record.Type) (*schema.Table, error) {
	if tb, ok := s.tables[t]; ok {
		return tb, nil
	}

	var found *schema.Table

	if sc, ok := s.schemas.Lookup(t); ok {
		found = sc.Root
	} else {
	search:
		for _, sc := range s.schemas.Schemas() {
			for _, tb := range sc.Tables() {
				if tb.Record.Equal(t) {
					found = tb
					break search
				}
			}
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, t.Name())
	}

	s.tables[t] = found

	return found, nil
}

func (s *Session) table(tb *schema.Table) string {
	return s.dialect.Table(tb.Namespace, tb.Name)
}

// param returns the bind expression for c; MySQL compares JSON only with JSON.
func (s *Session) param(c *schema.Column, n int) string {
	p := s.dialect.Placeholder(n)
	if c.Type == schema.TypeJSON && s.dialect == schema.MySQL {
		return "CAST(" + p + " AS JSON)"
	}

	return p
}

func uniqueColumns(tb *schema.Table) []*schema.Column {
	cols := make([]*schema.Column, 0, len(tb.Unique))

	for _, name := range tb.Unique {
		if c, ok := tb.Column(name); ok {
			cols = append(cols, c)
		}
	}

	return cols
}

// refKey renders a resolved reference for the dedup cache key.
func refKey(ref any) string {
	id, ok := ref.(int64)
	if !ok {
		return "nil"
	}

	return "#" + strconv.FormatInt(id, 10)
}

func canonical(d *record.Descriptor, v reflect.Value) string {
	f := d.Get(v)
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return "nil"
		}

		f = f.Elem()
	}

	return record.EncodeScalar(d.Scalar, f)
}

// structValue unwraps v, a T or *T of the Go type of t.
func structValue(t *record.Type, v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Value{}, fmt.Errorf("nil %s", t.Name())
	}

	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil %s", t.Name())
		}

		rv = rv.Elem()
	}

	if rv.Type() != t.GoType() {
		return reflect.Value{}, fmt.Errorf("expected %s, got %s", t.GoType(), rv.Type())
	}

	return rv, nil
}
