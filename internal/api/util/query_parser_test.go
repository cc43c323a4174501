package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []QueryFilter
	}{
		{"empty", "", nil},
		{"implicit equality", "exit_code|0", []QueryFilter{{Field: "exit_code", Operator: OpEq, Value: "0"}}},
		{"null check", "finished|isnull", []QueryFilter{{Field: "finished", Operator: OpIsNull}}},
		{"explicit operator", "exit_code|NE|0", []QueryFilter{{Field: "exit_code", Operator: OpNe, Value: "0"}}},
		{"in list", "exit_code|in|1;2", []QueryFilter{{Field: "exit_code", Operator: OpIn, Value: []string{"1", "2"}}}},
		{
			"several conditions",
			"started|gte|2024-03-02, finished|isnotnull",
			[]QueryFilter{
				{Field: "started", Operator: OpGte, Value: "2024-03-02"},
				{Field: "finished", Operator: OpIsNotNull},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQueryString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQueryStringErrors(t *testing.T) {
	for _, input := range []string{"exit_code", "exit_code|like|1", "finished|isnull|x", "|0", "a|b|c|d"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseQueryString(input)
			assert.Error(t, err)
		})
	}
}

func TestParseOrderString(t *testing.T) {
	got, err := ParseOrderString("started|DESC,id|asc")
	require.NoError(t, err)
	assert.Equal(t, []OrderClause{{Field: "started", Direction: OrderDesc}, {Field: "id", Direction: OrderAsc}}, got)

	for _, input := range []string{"started", "started|up", "|asc"} {
		_, err := ParseOrderString(input)
		assert.Error(t, err, input)
	}
}

func TestValidateFields(t *testing.T) {
	allowed := []string{"started", "id"}

	assert.NoError(t, ValidateFilterFields([]QueryFilter{{Field: "id"}}, allowed))
	err := ValidateFilterFields([]QueryFilter{{Field: "log"}}, allowed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid fields: id, started")

	assert.NoError(t, ValidateOrderFields([]OrderClause{{Field: "started"}}, allowed))
	assert.Error(t, ValidateOrderFields([]OrderClause{{Field: "log"}}, allowed))
}
