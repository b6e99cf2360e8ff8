// Package warehouse declares the assessment records loaded by the
// record-mapper command.
//
// An Assessment is one row of a clinical assessment export: a case, the
// analysing Lab (shared between rows), an optional Glucose measurement with
// its reference Range and up to three timed blood Draws (series keys t0, t1
// and t2), each with an optional Hemolysis grade.
//
// Free-text dates and clock times go through internal/dateparse, and
// concentrations are normalized with internal/units before they reach a
// record.
package warehouse
