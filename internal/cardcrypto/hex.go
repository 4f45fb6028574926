package cardcrypto

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// BytesToHex encodes b as lowercase hex, two characters per byte.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// HexToBytes decodes hex text. Upper and lower case digits are accepted.
func HexToBytes(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("odd hex length %d", len(s))}
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		var invalid hex.InvalidByteError
		if errors.As(err, &invalid) {
			return nil, &FormatError{Reason: fmt.Sprintf("invalid hex character %q", byte(invalid))}
		}
		return nil, &FormatError{Reason: "invalid hex", Err: err}
	}
	return b, nil
}
