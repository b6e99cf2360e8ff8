// Package diagnostic collects the problems found while validating record
// definitions, so that a definition fails once with every problem listed
// instead of stopping at the first one.
//
// Each diagnostic names the record, the field and a stable snake_case code,
// e.g. "optional_without_reason" or "field_without_descriptor".
package diagnostic
