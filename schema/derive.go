package schema

import (
	"errors"
	"fmt"

	"record-mapper/internal/naming"
	"record-mapper/primitive"
	"record-mapper/record"
)

// ErrNameCollision is returned when two distinct record types derive the
// same table name.
var ErrNameCollision = errors.New("table name collision")

// TableName returns the table name of a record type: "FooBar1" -> "foo_bar_1".
func TableName(t *record.Type) string {
	return naming.TableName(t.Name())
}

// Derive derives the schema of t in namespace ns. A non-nil parent adds a
// "parent" foreign key from the root table to that table.
func Derive(t *record.Type, ns string, parent *Parent) (*Schema, error) {
	d := &deriver{
		ns:    ns,
		cache: make(map[string]*Table),
	}

	root, err := d.derive(t, nil, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to derive schema of %s: %w", t.Name(), err)
	}

	return &Schema{
		Namespace: ns,
		Root:      root,
		Parent:    parent,
		tables:    d.tables,
	}, nil
}

// deriver holds the memoization cache of one derivation.
type deriver struct {
	ns     string
	cache  map[string]*Table
	tables []*Table
}

// derive returns the table of t. Exactly one of parentTable and parentRef may be set.
func (d *deriver) derive(t *record.Type, parentTable *Table, parentRef *Parent) (*Table, error) {
	name := TableName(t)

	if cached, ok := d.cache[name]; ok {
		if !cached.Record.Equal(t) {
			return nil, fmt.Errorf("%w: %s and %s both map to %q", ErrNameCollision, cached.Record, t, name)
		}

		return cached, nil
	}

	tb := &Table{
		Name:      name,
		Namespace: d.ns,
		Record:    t,
	}

	ident := t.IdentField()
	tb.Columns = append(tb.Columns, &Column{
		Name:          IdentColumn,
		Type:          TypeBigInt,
		PrimaryKey:    true,
		AutoIncrement: ident == nil,
		Field:         ident,
	})

	for _, f := range t.Fields() {
		if f.IsColumn() {
			tb.Columns = append(tb.Columns, scalarColumn(f))
		}
	}

	switch {
	case parentRef != nil:
		tb.HasParent = true
		tb.Columns = append(tb.Columns, parentColumn(parentRef.Namespace, parentRef.Name, parentRef.Unique))
	case parentTable != nil:
		tb.HasParent = true
		tb.Columns = append(tb.Columns, parentColumn(d.ns, parentTable.Name, t.Kind() == record.Plain))
	}

	// unique references are created before the table referencing them
	for _, f := range t.Fields() {
		if !isUniqueReference(f) {
			continue
		}

		target, err := d.derive(f.Record, nil, nil)
		if err != nil {
			return nil, err
		}

		tb.Columns = append(tb.Columns, &Column{
			Name:       f.Name,
			Type:       TypeBigInt,
			Nullable:   f.Optional && f.Shape == record.ShapeRecord,
			References: &ForeignKey{Namespace: d.ns, Table: target.Name},
			Field:      f,
		})
		tb.Relations = append(tb.Relations, Relation{Field: f, Kind: ManyToOne, Target: target})
	}

	if t.Kind() == record.Unique {
		for _, c := range tb.Columns {
			// references to other Unique rows are part of the value
			if c.Field != nil && (c.Field.IsColumn() || c.References != nil) {
				c.indexed = true
				tb.Unique = append(tb.Unique, c.Name)
			}
		}
	}

	d.cache[name] = tb
	d.tables = append(d.tables, tb)

	for _, f := range t.Fields() {
		var kind RelationKind

		switch {
		case f.Shape == record.ShapeCollection:
			kind = OneToMany
		case f.Shape == record.ShapeRecord && !isUniqueReference(f):
			kind = OneToOne
		default:
			continue
		}

		target, err := d.derive(f.Record, tb, nil)
		if err != nil {
			return nil, err
		}

		tb.Relations = append(tb.Relations, Relation{Field: f, Kind: kind, Target: target})
	}

	return tb, nil
}

func isUniqueReference(f *record.Descriptor) bool {
	switch f.Shape {
	case record.ShapeSeriesIdent:
		return true
	case record.ShapeRecord:
		return f.Record.Kind() == record.Unique
	default:
		return false
	}
}

func parentColumn(ns, table string, unique bool) *Column {
	return &Column{
		Name:       ParentColumn,
		Type:       TypeBigInt,
		Unique:     unique,
		References: &ForeignKey{Namespace: ns, Table: table, Cascade: true},
	}
}

func scalarColumn(f *record.Descriptor) *Column {
	return &Column{
		Name:     f.Name,
		Type:     columnType(f.Scalar),
		Nullable: f.Optional,
		Unique:   f.UniqueIndex,
		Comment:  f.Comment,
		Field:    f,
	}
}

func columnType(k primitive.KindEnum) ColumnType {
	switch k {
	case primitive.KindInt:
		return TypeBigInt
	case primitive.KindFloat:
		return TypeDouble
	case primitive.KindString:
		return TypeText
	case primitive.KindBytes:
		return TypeBytes
	case primitive.KindBool:
		return TypeBool
	case primitive.KindDate:
		return TypeDate
	case primitive.KindDateTime:
		return TypeTimestamp
	case primitive.KindDuration:
		return TypeInterval
	case primitive.KindMap:
		return TypeJSON
	default:
		return TypeText
	}
}
