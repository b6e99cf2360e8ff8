package schema

import (
	"cmp"
	"slices"

	"record-mapper/record"
)

// Generated column names.
const (
	IdentColumn  = "ident"
	ParentColumn = "parent"
)

// ColumnType is the storage type of a column, rendered per dialect.
type ColumnType int

const (
	_ ColumnType = iota

	TypeBigInt
	TypeDouble
	TypeText
	TypeBytes
	TypeBool
	TypeDate
	TypeTimestamp
	TypeInterval // nanoseconds in a BIGINT
	TypeJSON
)

// Column is one table column.
type Column struct {
	Name          string
	Type          ColumnType
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Unique        bool
	Comment       string
	References    *ForeignKey

	// Field is the record field stored in the column; nil for the generated
	// primary and parent keys.
	Field *record.Descriptor

	indexed bool // part of the table-wide UNIQUE constraint
}

// ForeignKey references the ident column of another table.
type ForeignKey struct {
	Namespace string
	Table     string
	Cascade   bool
}

// RelationKind is the cardinality of a relation seen from the owning table.
type RelationKind int

const (
	_ RelationKind = iota

	OneToOne  // plain or nested-series child, FK "parent" on the target
	OneToMany // head-series collection, FK "parent" on the target
	ManyToOne // unique reference, FK column on the owner
)

func (k RelationKind) String() string {
	switch k {
	case OneToOne:
		return "one_to_one"
	case OneToMany:
		return "one_to_many"
	case ManyToOne:
		return "many_to_one"
	default:
		return "unknown"
	}
}

// Relation wires a record field to the table holding its value.
type Relation struct {
	Field  *record.Descriptor
	Kind   RelationKind
	Target *Table
}

// Parent is a table outside the derivation that the root table references
// through its "parent" column. It must have a BIGINT "ident" key.
type Parent struct {
	Namespace string
	Name      string
	Unique    bool
}

// QualifiedName returns "namespace.name", or the name alone without namespace.
func (p Parent) QualifiedName() string {
	return qualify(p.Namespace, p.Name)
}

// Table is the derived table of one record type.
type Table struct {
	Name      string
	Namespace string
	Record    *record.Type
	Columns   []*Column
	Unique    []string // table-wide UNIQUE constraint, empty unless Record is Unique
	Relations []Relation
	// HasParent reports whether the table carries the "parent" column.
	HasParent bool
}

// QualifiedName returns "namespace.name", or the name alone without namespace.
func (t *Table) QualifiedName() string {
	return qualify(t.Namespace, t.Name)
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	i := slices.IndexFunc(t.Columns, func(c *Column) bool { return c.Name == name })
	if i < 0 {
		return nil, false
	}

	return t.Columns[i], true
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}

	return names
}

// Relation returns the relation of the given field.
func (t *Table) Relation(field string) (Relation, bool) {
	i := slices.IndexFunc(t.Relations, func(r Relation) bool { return r.Field.Name == field })
	if i < 0 {
		return Relation{}, false
	}

	return t.Relations[i], true
}

// Schema is the result of one derivation.
type Schema struct {
	Namespace string
	Root      *Table
	Parent    *Parent

	tables []*Table // derivation order
}

// Table returns the derived table with the given name.
func (s *Schema) Table(name string) (*Table, bool) {
	i := slices.IndexFunc(s.tables, func(t *Table) bool { return t.Name == name })
	if i < 0 {
		return nil, false
	}

	return s.tables[i], true
}

// TableOf returns the table derived for a record type.
func (s *Schema) TableOf(t *record.Type) (*Table, bool) {
	i := slices.IndexFunc(s.tables, func(tb *Table) bool { return tb.Record == t })
	if i < 0 {
		return nil, false
	}

	return s.tables[i], true
}

// Names returns the sorted table names.
func (s *Schema) Names() []string {
	names := make([]string, len(s.tables))
	for i, t := range s.tables {
		names[i] = t.Name
	}

	slices.Sort(names)

	return names
}

// Tables returns the tables in creation order: every table follows the
// tables its foreign keys reference.
func (s *Schema) Tables() []*Table {
	sorted := slices.Clone(s.tables)
	slices.SortFunc(sorted, func(a, b *Table) int { return cmp.Compare(a.Name, b.Name) })

	index := make(map[string]int, len(sorted))
	for i, t := range sorted {
		index[t.Name] = i
	}

	order, err := topoSort(len(sorted), func(i int) []int {
		var deps []int

		for _, c := range sorted[i].Columns {
			if c.References == nil || c.References.Namespace != sorted[i].Namespace {
				continue
			}

			if j, ok := index[c.References.Table]; ok && j != i {
				deps = append(deps, j)
			}
		}

		return deps
	})
	if err != nil {
		// unreachable: record types are defined before use, so references cannot cycle
		return sorted
	}

	tables := make([]*Table, len(order))
	for i, j := range order {
		tables[i] = sorted[j]
	}

	return tables
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}

	return namespace + "." + name
}
