// Package mapping loads YAML source-mapping files that override how record
// fields are read from input rows, without touching the struct tags.
//
// A questionnaire export renamed between releases only needs a new mapping
// file:
//
//	version: "1"
//	records:
//	  - record: Reading          # Go type name
//	    name: Glucose            # optional record rename
//	    fields:
//	      - field: Value         # Go field name
//	        column: glucose
//	        input: glc           # or [a, b] for a transformer tuple
//	        null: [NA, n/a]
//	        default: "5"
//	        comment: mg/dL
//	      - field: Level
//	        series: {s0: level_0, s1: level_1}
//
// MappingFile.Options turns the overrides of one record into record.Option
// values for record.Define.
package mapping
