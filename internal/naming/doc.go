// Package naming turns Go identifiers into SQL identifiers.
//
// Identifiers are split at case changes, acronym ends, digit runs and
// separators ('_', '-', ' '); the tokens are lower-cased and joined with '_':
//
//	SubAssessment1  -> sub_assessment_1
//	XMLParser       -> xml_parser
//	Sf12Freq        -> sf_12_freq
package naming
