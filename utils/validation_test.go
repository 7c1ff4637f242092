package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testProvider struct {
	ID     string `validate:"required"`
	Kind   string `validate:"required,oneof=openai anthropic gemini"`
	Weight int    `validate:"gte=0,lte=100"`
	Tokens int    `validate:"gt=0"`
	Lang   string `validate:"max=5"`
}

func TestValidateStruct(t *testing.T) {
	valid := func() testProvider {
		return testProvider{ID: "chatgpt", Kind: "openai", Weight: 85, Tokens: 500, Lang: "en"}
	}

	t.Run("valid struct", func(t *testing.T) {
		s := valid()
		assert.NoError(t, ValidateStruct(&s))
	})

	tests := []struct {
		name      string
		mutate    func(*testProvider)
		wantField string
		wantMsg   string
	}{
		{"missing required field", func(s *testProvider) { s.ID = "" }, "ID", "ID is required"},
		{"unknown kind", func(s *testProvider) { s.Kind = "bedrock" }, "Kind", "Kind must be one of: openai anthropic gemini"},
		{"weight too high", func(s *testProvider) { s.Weight = 101 }, "Weight", "Weight must be less than or equal to 100"},
		{"weight negative", func(s *testProvider) { s.Weight = -1 }, "Weight", "Weight must be greater than or equal to 0"},
		{"zero tokens", func(s *testProvider) { s.Tokens = 0 }, "Tokens", "Tokens must be greater than 0"},
		{"long lang", func(s *testProvider) { s.Lang = "english" }, "Lang", "Lang must be at most 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)

			err := ValidateStruct(&s)
			assert.Error(t, err)
			assert.True(t, IsValidationError(err))

			fields := GetValidationFields(err)
			assert.Equal(t, tt.wantMsg, fields[tt.wantField])
		})
	}
}

func TestGetValidationFields_NonValidationError(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, IsValidationError(err))
	assert.Nil(t, GetValidationFields(err))
}
