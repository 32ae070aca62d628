package services

import (
	"strings"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

const (
	defaultCodeWidth = 11
	defaultKeyDigits = 10
)

// CodeNormalizer turns raw item numbers from spreadsheet exports into product codes
// and join keys. Exports often carry item numbers as floats ("12345.0") or with
// leading zeros dropped, so numeric mode compares digits only.
type CodeNormalizer struct {
	mode      entities.CodeMode
	width     int
	keyDigits int
}

// NewCodeNormalizer creates a normalizer for the given code policy
func NewCodeNormalizer(policy entities.CodePolicy) *CodeNormalizer {
	n := &CodeNormalizer{
		mode:      policy.Mode,
		width:     policy.Width,
		keyDigits: policy.KeyDigits,
	}
	if n.mode == "" {
		n.mode = entities.CodeModeExact
	}
	if n.mode == entities.CodeModeNumeric {
		if n.width == 0 {
			n.width = defaultCodeWidth
		}
		if n.keyDigits == 0 {
			n.keyDigits = defaultKeyDigits
		}
	}
	return n
}

// Normalize returns the canonical product code, or "" when raw holds no usable code
func (n *CodeNormalizer) Normalize(raw string) entities.ProductCode {
	if n.mode != entities.CodeModeNumeric {
		return entities.ProductCode(strings.TrimSpace(raw))
	}

	digits := digitsOnly(raw)
	if digits == "" {
		return ""
	}
	if len(digits) < n.width {
		digits = strings.Repeat("0", n.width-len(digits)) + digits
	}
	return entities.ProductCode(digits)
}

// JoinKey returns the key used to match stock rows against item master rows. In
// numeric mode it is the last keyDigits digits of the padded code, so leading zeros
// lost by one export do not break the match.
func (n *CodeNormalizer) JoinKey(raw string) string {
	if n.mode != entities.CodeModeNumeric {
		return strings.TrimSpace(raw)
	}

	code := string(n.Normalize(raw))
	if len(code) > n.keyDigits {
		return code[len(code)-n.keyDigits:]
	}
	return code
}

func digitsOnly(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".0")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
