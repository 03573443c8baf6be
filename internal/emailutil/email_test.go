package emailutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "user@example.com", "user@example.com"},
		{"uppercase", "USER@EXAMPLE.COM", "user@example.com"},
		{"mixed_case", "User@Example.Com", "user@example.com"},
		{"surrounding_whitespace", "  User@Example.Com  ", "user@example.com"},
		{"empty", "", ""},
		{"only_whitespace", "   \t\n   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "user@example.com", "example.com"},
		{"no_at_sign", "userexample.com", ""},
		{"multiple_at_signs", "user@foo@example.com", ""},
		{"missing_domain", "user@", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractDomain(tt.input))
		})
	}
}
