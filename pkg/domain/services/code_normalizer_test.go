package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

func TestCodeNormalizer_Exact(t *testing.T) {
	n := NewCodeNormalizer(entities.CodePolicy{Mode: entities.CodeModeExact})

	assert.Equal(t, entities.ProductCode("A001"), n.Normalize("  A001 "))
	assert.Equal(t, entities.ProductCode(""), n.Normalize("   "))
	assert.Equal(t, "A001", n.JoinKey("A001\t"))
}

func TestCodeNormalizer_Numeric(t *testing.T) {
	n := NewCodeNormalizer(entities.CodePolicy{Mode: entities.CodeModeNumeric})

	testCases := []struct {
		raw      string
		wantCode entities.ProductCode
		wantKey  string
	}{
		{"12345", "00000012345", "0000012345"},
		{"12345.0", "00000012345", "0000012345"},
		{"0012345", "00000012345", "0000012345"},
		{" 1-234-5 ", "00000012345", "0000012345"},
		{"901234567890", "901234567890", "1234567890"},
		{"00901234567890", "00901234567890", "1234567890"},
		{"n/a", "", ""},
		{"", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.wantCode, n.Normalize(tc.raw))
			assert.Equal(t, tc.wantKey, n.JoinKey(tc.raw))
		})
	}
}

func TestCodeNormalizer_CustomWidth(t *testing.T) {
	n := NewCodeNormalizer(entities.CodePolicy{Mode: entities.CodeModeNumeric, Width: 6, KeyDigits: 4})

	assert.Equal(t, entities.ProductCode("000042"), n.Normalize("42"))
	assert.Equal(t, "3456", n.JoinKey("123456"))
	assert.Equal(t, "0042", n.JoinKey("42"))
}

func TestCodeNormalizer_DefaultsToExact(t *testing.T) {
	n := NewCodeNormalizer(entities.CodePolicy{})

	assert.Equal(t, entities.ProductCode("0042"), n.Normalize("0042"))
}
