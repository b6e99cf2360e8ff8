// Package ingest converts flat string rows into typed records.
//
// Engine.Ingest walks a *record.Type field by field. Scalars are looked up
// by their input source and coerced; nested records recurse; head-series
// collections recurse once per series key found in the element type's
// input sources.
//
// Conversion problems never stop ingestion. They are collected into a
// Report keyed by record type name and field name. A required field that
// fails conversion, or is missing in a record that has other values,
// poisons its record: the record resolves to absent. A poisoned required
// nested record poisons its owner as well; an optional one becomes nil.
// A record with no values at all is absent without errors.
package ingest
