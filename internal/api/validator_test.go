package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	type sample struct {
		Name     string `json:"name,omitempty" validate:"required"`
		Language string `json:"language" validate:"omitempty,oneof=sw-KE en"`
		Score    int    `validate:"gte=0,lte=100"`
	}

	tests := []struct {
		name   string
		input  sample
		fields map[string]string
	}{
		{name: "valid", input: sample{Name: "Amina", Language: "en", Score: 50}},
		{name: "missing name", input: sample{Score: 1}, fields: map[string]string{"name": "is required"}},
		{
			name:  "several failures",
			input: sample{Name: "x", Language: "fr", Score: 101},
			fields: map[string]string{
				"language": "must be one of: sw-KE en",
				"Score":    "must be less than or equal to 100",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.fields, verr.Fields)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}
