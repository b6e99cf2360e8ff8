// Package units converts measured values between units of one dimension.
//
// A conversion table maps every dimension to a reference unit and to the
// number of units that make up one reference unit:
//
//	density:
//	  ref_unit: g/L
//	  conversion:
//	    mg/L: 1000
//	    mg/dL: 100
//
// The factor from unit a to unit b is conversion[b] / conversion[a]. The
// table is loaded once; Default returns the table embedded in the binary.
package units
