package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"record-mapper/record"
	"record-mapper/schema"
)

// Load reads the record of type t stored under ident, with all its nested
// records. It returns a pointer to a new value of t's Go type. Temporary
// fields are left at their zero value.
func (s *Session) Load(ctx context.Context, t *record.Type, ident int64) (any, error) {
	tb, err := s.tableOf(t)
	if err != nil {
		return nil, err
	}

	rows, err := s.selectRows(ctx, tb, t.GoType(), schema.IdentColumn, ident)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, t.Name(), ident)
	}

	return rows[0].Addr().Interface(), nil
}

// LoadAll reads every record of the table of t in ident order.
func (s *Session) LoadAll(ctx context.Context, t *record.Type) ([]any, error) {
	tb, err := s.tableOf(t)
	if err != nil {
		return nil, err
	}

	rows, err := s.selectRows(ctx, tb, t.GoType(), "", nil)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r.Addr().Interface()
	}

	return out, nil
}

// selectRows builds one value of rt per row of tb matching column = arg, or
// every row when column is empty.
func (s *Session) selectRows(
	ctx context.Context, tb *schema.Table, rt reflect.Type, column string, arg any,
) ([]reflect.Value, error) {
	raw, err := s.query(ctx, tb, column, arg)
	if err != nil {
		return nil, err
	}

	out := make([]reflect.Value, 0, len(raw))

	for _, values := range raw {
		v := reflect.New(rt).Elem()

		if err := s.fill(ctx, tb, v, values); err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

// query reads the matching rows completely before returning, so nested
// queries never overlap an open result set.
func (s *Session) query(ctx context.Context, tb *schema.Table, column string, arg any) ([][]any, error) {
	cols := make([]string, len(tb.Columns))
	for i, c := range tb.Columns {
		cols[i] = s.dialect.Quote(c.Name)
	}

	q := "SELECT " + strings.Join(cols, ", ") + " FROM " + s.table(tb)

	var args []any
	if column != "" {
		q += " WHERE " + s.dialect.Quote(column) + " = " + s.dialect.Placeholder(1)
		args = append(args, arg)
	}

	q += " ORDER BY " + s.dialect.Quote(schema.IdentColumn)

	rows, err := s.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tb.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var out [][]any

	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))

		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", tb.Name, err)
		}

		out = append(out, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tb.Name, err)
	}

	return out, nil
}

// fill sets the fields of v from one row of tb and loads its relations.
func (s *Session) fill(ctx context.Context, tb *schema.Table, v reflect.Value, values []any) error {
	var ident int64

	for i, c := range tb.Columns {
		src := values[i]

		switch {
		case c.Name == schema.IdentColumn:
			id, err := asInt(src)
			if err != nil {
				return fmt.Errorf("failed to read ident of %s: %w", tb.Name, err)
			}

			ident = id

			if c.Field != nil {
				c.Field.Get(v).SetInt(id)
			}
		case c.Field == nil:
			// parent key
		case c.References != nil:
			if src == nil {
				continue
			}

			ref, err := asInt(src)
			if err != nil {
				return fmt.Errorf("failed to read %s of %s: %w", c.Name, tb.Name, err)
			}

			if err := s.loadReference(ctx, tb, c.Field, v, ref); err != nil {
				return err
			}
		default:
			if err := decodeField(c.Field, v, src); err != nil {
				return err
			}
		}
	}

	for _, rel := range tb.Relations {
		if rel.Kind == schema.ManyToOne {
			continue
		}

		if err := s.loadChildren(ctx, rel, v, ident); err != nil {
			return err
		}
	}

	return nil
}

func (s *Session) loadReference(ctx context.Context, tb *schema.Table, d *record.Descriptor, v reflect.Value, ref int64) error {
	rel, ok := tb.Relation(d.Name)
	if !ok {
		return fmt.Errorf("no relation for column %s of %s", d.Name, tb.Name)
	}

	rows, err := s.selectRows(ctx, rel.Target, d.ValueType(), schema.IdentColumn, ref)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("%w: %s %d referenced by %s", ErrNotFound, rel.Target.Name, ref, tb.Name)
	}

	set(d.Get(v), rows[0])

	return nil
}

func (s *Session) loadChildren(ctx context.Context, rel schema.Relation, v reflect.Value, parent int64) error {
	rows, err := s.selectRows(ctx, rel.Target, rel.Field.ValueType(), schema.ParentColumn, parent)
	if err != nil {
		return err
	}

	f := rel.Field.Get(v)

	if rel.Kind == schema.OneToMany {
		slice := reflect.MakeSlice(f.Type(), 0, len(rows))
		for _, r := range rows {
			slice = reflect.Append(slice, r)
		}

		f.Set(slice)

		return nil
	}

	if len(rows) > 0 {
		set(f, rows[0])
	}

	return nil
}

// set assigns the struct value r to f, taking its address for pointer fields.
func set(f, r reflect.Value) {
	if f.Kind() == reflect.Pointer {
		f.Set(r.Addr())
		return
	}

	f.Set(r)
}
