package cardcrypto_test

import (
	"strings"
	"testing"

	"github.com/cyphera/sdd-notifier/internal/cardcrypto"
	"github.com/stretchr/testify/assert"
)

func TestPadKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: "0000000000000000"},
		{name: "short", raw: "secret", want: "secret0000000000"},
		{name: "exact", raw: "0123456789abcdef", want: "0123456789abcdef"},
		{name: "long keeps prefix", raw: "0123456789abcdefXYZ", want: "0123456789abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cardcrypto.PadKey(tt.raw))
		})
	}
}

func TestPadKey_AlwaysSixteen(t *testing.T) {
	for n := 0; n <= 40; n++ {
		raw := strings.Repeat("k", n)
		padded := cardcrypto.PadKey(raw)
		assert.Len(t, padded, cardcrypto.KeyLength)
		assert.Equal(t, padded, cardcrypto.PadKey(raw))
	}
}
