package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string  `json:"title" validate:"required,max=5"`
	Note  *string `json:"note" validate:"omitempty,min=1,max=3"`
	Year  *int    `json:"year" validate:"omitempty,gte=0"`
	Limit int     `json:"limit" validate:"gte=1,lte=100"`
}

func ptr[T any](v T) *T { return &v }

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      sample
		wantFields []string
	}{
		{
			name:  "valid",
			input: sample{Title: "Dune", Limit: 10},
		},
		{
			name:       "missing title",
			input:      sample{Limit: 10},
			wantFields: []string{"title"},
		},
		{
			name:       "title counts characters not bytes",
			input:      sample{Title: "éééééé", Limit: 10},
			wantFields: []string{"title"},
		},
		{
			name:  "multibyte title within bound",
			input: sample{Title: "ééééé", Limit: 10},
		},
		{
			name:       "empty optional string is rejected",
			input:      sample{Title: "Dune", Note: ptr(""), Limit: 10},
			wantFields: []string{"note"},
		},
		{
			name:  "nil optional fields are skipped",
			input: sample{Title: "Dune", Note: nil, Year: nil, Limit: 1},
		},
		{
			name:       "negative year",
			input:      sample{Title: "Dune", Year: ptr(-1), Limit: 10},
			wantFields: []string{"year"},
		},
		{
			name:  "zero year",
			input: sample{Title: "Dune", Year: ptr(0), Limit: 10},
		},
		{
			name:       "limit out of range",
			input:      sample{Title: "Dune", Limit: 101},
			wantFields: []string{"limit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Struct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, len(tt.wantFields))
			for i, f := range tt.wantFields {
				assert.Equal(t, f, errs[i].Field)
				assert.NotEmpty(t, errs[i].Message)
			}
		})
	}
}

func TestStruct_Messages(t *testing.T) {
	errs := Struct(sample{Limit: 0})
	require.Len(t, errs, 2)
	assert.Equal(t, "title is required", errs[0].Message)
	assert.Equal(t, "limit must be greater than or equal to 1", errs[1].Message)
}
