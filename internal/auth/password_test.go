package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hashed, err := HashPassword("Sup3rSecret!")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret!", hashed)
	assert.True(t, ComparePassword("Sup3rSecret!", hashed))
	assert.False(t, ComparePassword("wrong", hashed))
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"too short", "Ab1", false},
		{"no uppercase", "abcdef1", false},
		{"no lowercase", "ABCDEF1", false},
		{"no digit", "Abcdefgh", false},
		{"repeated character", "aaaaaaa", false},
		{"literal password", "password", false},
		{"acceptable", "Abcdef1", true},
		{"strong", "C0rrectHorse!Battery", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidatePasswordStrength(tt.password)
			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				assert.NotEmpty(t, result.Errors)
			}
		})
	}
}

func TestAllSameCharacterRejected(t *testing.T) {
	for _, password := range []string{"aaaaaaa", "1111111", "ZZZZZZZZ"} {
		result := ValidatePasswordStrength(password)
		assert.False(t, result.Valid, password)
		assert.Contains(t, result.Errors, "Password cannot be all the same character")
	}
	assert.NotContains(t, ValidatePasswordStrength("Abcdef1").Errors, "Password cannot be all the same character")
}

func TestScoreStrengthLabels(t *testing.T) {
	assert.Equal(t, "very strong", ValidatePasswordStrength("C0rrectHorse!Battery").Strength)
	assert.Equal(t, "very weak", ValidatePasswordStrength("aaaaaaa").Strength)
}
