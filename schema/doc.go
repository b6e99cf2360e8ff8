// Package schema derives a normalized relational schema from a record type.
//
// Derive walks the field graph of a *record.Type depth first and produces
// one table per distinct record type:
//
//   - every table has an "ident" BIGINT primary key, auto-incremented unless
//     the record declares an ident field;
//   - a table derived below another table carries a "parent" foreign key,
//     unique for 1-to-1 relations and non-unique for 1-to-many;
//   - references to Unique records become nullable-iff-optional foreign key
//     columns named after the field;
//   - Unique tables carry a table-wide UNIQUE constraint over their scalar columns.
//
// Derivation is memoized by table name within one call, so a record type
// referenced from several places yields exactly one table. Two different
// record types mapping to the same table name are rejected.
//
// A Schema renders itself as DDL for SQLite, PostgreSQL and MySQL.
package schema
