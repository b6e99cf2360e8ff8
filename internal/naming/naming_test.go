package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"Reading", "reading"},
		{"FooBar1", "foo_bar_1"},
		{"SetSubAssessment1Ident", "set_sub_assessment_1_ident"},
		{"AbAbb1A1b", "ab_abb_1_a_1_b"},
		{"1234", "1234"},
		{"Sf12Freq", "sf_12_freq"},
		{"Abb_b_Ab_1_2b", "abb_b_ab_1_2_b"},
		{"__Abb____bAb_12b_", "abb_b_ab_12_b"},
		{"XMLParser", "xml_parser"},
		{"OrderID", "order_id"},
		{"customerName", "customer_name"},
		{"already_snake", "already_snake"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, Snake(tt.input))
		})
	}
}

func TestTableNameIsDeterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TableName("SubConfig"), TableName("SubConfig"))
	assert.NotEqual(t, TableName("SubConfig"), TableName("SubConfig1"))
}
