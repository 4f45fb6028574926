package cardcrypto

import "strings"

const (
	// KeyLength is the padded key size in bytes (AES-128).
	KeyLength = 16

	// KeyFiller is appended to short keys.
	KeyFiller = '0'
)

// PadKey normalizes raw to exactly KeyLength bytes. Short keys are right-padded
// with KeyFiller; long keys keep their first KeyLength bytes.
func PadKey(raw string) string {
	if len(raw) >= KeyLength {
		return raw[:KeyLength]
	}
	return raw + strings.Repeat(string(KeyFiller), KeyLength-len(raw))
}
