// Package match compares the source keys a record reads with the columns an
// input file offers.
//
// Key functions:
//   - InputKeys: lists every source key of a record type and its fields
//   - CheckHeader: reports the source keys missing from a header
//   - Suggest: ranks header columns by similarity to a missing key
//   - Levenshtein: computes edit distance between strings
package match
