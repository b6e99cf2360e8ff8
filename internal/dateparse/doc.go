// Package dateparse reads the loosely formatted dates and times found in
// questionnaire exports.
//
// Accepted dates (delimiters '.' or '-'):
//   - dd.mm.yyyy and yyyy.mm.dd
//   - dd.mm.yy, where yy < 40 maps to 20yy and any other value to 19yy
//   - a bare year yyyy, which maps to January 1st
//
// Days and months may be written without a leading zero or as the unknown
// placeholders "xx" and "un"; unknown or zero components become 1.
// Times are hh:mm or hh:mm:ss, and a date-time joins a date and a time with
// one of 'T', 't', '_' or ' '.
package dateparse
