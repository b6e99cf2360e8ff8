package match

import (
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected int
	}{
		// Identical strings
		{"", "", 0},
		{"a", "a", 0},
		{"glucose", "glucose", 0},

		// Empty vs non-empty
		{"", "abc", 3},
		{"abc", "", 3},

		// Single character operations
		{"a", "b", 1},
		{"a", "ab", 1},
		{"ab", "a", 1},

		// Multiple operations
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},

		// Case-sensitive
		{"ABC", "abc", 3},

		// Runes, not bytes
		{"µmol/L", "umol/L", 1},
		{"µg/mL", "µg/mL", 0},

		// Column names
		{"lactate_0", "lactate_1", 1},
		{"hemolysis0", "haemolysis0", 1},
		{"draw_0", "drawn_0", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := Levenshtein(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, result, tt.expected)
			}

			if reverse := Levenshtein(tt.b, tt.a); result != reverse {
				t.Errorf("Levenshtein symmetry failed: (%q, %q) = %d, (%q, %q) = %d",
					tt.a, tt.b, result, tt.b, tt.a, reverse)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected float64
	}{
		{"", "", 1.0},
		{"glucose", "glucose", 1.0},
		{"abc", "xyz", 0.0},
		{"kitten", "sitting", 1.0 - 3.0/7.0},
		{"abc", "ab", 1.0 - 1.0/3.0},
		{"µmol", "umol", 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := Similarity(tt.a, tt.b)
			if diff := result - tt.expected; diff < -0.001 || diff > 0.001 {
				t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestKeySimilarity(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		minScore float64
	}{
		// Exact match after normalization
		{"CaseID", "case_id", 1.0},
		{"Lactate 0", "lactate-0", 1.0},
		{"visit.date", "VisitDate", 1.0},

		// Similar names
		{"glucose_unit", "glucose_units", 0.9},
		{"hemolysis_0", "haemolysis_0", 0.9},

		// Different names
		{"lab", "arrival_time", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := KeySimilarity(tt.a, tt.b)
			if result < tt.minScore {
				t.Errorf("KeySimilarity(%q, %q) = %f, want >= %f", tt.a, tt.b, result, tt.minScore)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Lactate_0":    "lactate0",
		"lactate-0":    "lactate0",
		"Lactate 0":    "lactate0",
		"visit.date":   "visitdate",
		"CaseID":       "caseid",
		"__range_low_": "rangelow",
		"":             "",
	}

	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func BenchmarkKeySimilarity(b *testing.B) {
	for b.Loop() {
		KeySimilarity("hemolysis_index_2", "HaemolysisIndex2")
	}
}
