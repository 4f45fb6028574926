package cardcrypto

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/subtle"
	"fmt"

	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// Decrypt decodes cipherHex and decrypts it with AES-128/ECB/PKCS#7 using the
// padded key. No plaintext is returned on failure.
func Decrypt(cipherHex, key string) (string, error) {
	ciphertext, err := HexToBytes(cipherHex)
	if err != nil {
		return "", &DecryptionError{Reason: "invalid ciphertext encoding", Err: err}
	}

	plain, err := decryptBytes(ciphertext, []byte(PadKey(key)))
	if err != nil {
		return "", err
	}
	defer wipe(plain)
	return string(plain), nil
}

// Encrypt is the inverse of Decrypt and returns lowercase hex ciphertext.
func Encrypt(plaintext, key string) (string, error) {
	block, err := aes.NewCipher([]byte(PadKey(key)))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	size := block.BlockSize()
	padLen := size - len(plaintext)%size
	buf := append([]byte(plaintext), bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	for i := 0; i < len(buf); i += size {
		block.Encrypt(buf[i:i+size], buf[i:i+size])
	}
	return BytesToHex(buf), nil
}

func decryptBytes(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &DecryptionError{Reason: "invalid key", Err: err}
	}

	size := block.BlockSize()
	if len(ciphertext) == 0 {
		return nil, &DecryptionError{Reason: "empty ciphertext"}
	}
	if len(ciphertext)%size != 0 {
		return nil, &DecryptionError{Reason: fmt.Sprintf("ciphertext length %d is not a multiple of %d", len(ciphertext), size)}
	}

	plain := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += size {
		block.Decrypt(plain[i:i+size], ciphertext[i:i+size])
	}

	padLen := int(plain[len(plain)-1])
	if padLen == 0 || padLen > size || padLen > len(plain) {
		wipe(plain)
		return nil, &DecryptionError{Reason: "bad padding"}
	}
	expected := bytes.Repeat([]byte{byte(padLen)}, padLen)
	if subtle.ConstantTimeCompare(plain[len(plain)-padLen:], expected) != 1 {
		wipe(plain)
		return nil, &DecryptionError{Reason: "bad padding"}
	}
	return plain[:len(plain)-padLen], nil
}

// KeySource resolves the raw key for a card reference key id.
type KeySource interface {
	Key(ctx context.Context, keyID string) (string, error)
}

// StaticKeySource serves keys from memory. The empty key id maps to Default.
type StaticKeySource struct {
	Default string
	ByID    map[string]string
}

func (s StaticKeySource) Key(ctx context.Context, keyID string) (string, error) {
	if keyID == "" {
		if s.Default == "" {
			return "", fmt.Errorf("no default card key configured")
		}
		return s.Default, nil
	}
	if k, ok := s.ByID[keyID]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown card key id %q", keyID)
}

// Decryptor turns card references into DecryptedCard values.
type Decryptor struct {
	keys KeySource
}

func NewDecryptor(keys KeySource) *Decryptor {
	return &Decryptor{keys: keys}
}

// DecryptCard decrypts the card number referenced by ref. The caller owns the
// returned card and must Wipe it.
func (d *Decryptor) DecryptCard(ctx context.Context, ref business.CardReference) (*DecryptedCard, error) {
	if ref.EncryptedPAN == "" {
		return nil, &DecryptionError{Reason: "card reference has no encrypted PAN"}
	}

	key, err := d.keys.Key(ctx, ref.KeyID)
	if err != nil {
		return nil, &DecryptionError{Reason: "key unavailable", Err: err}
	}

	ciphertext, err := HexToBytes(ref.EncryptedPAN)
	if err != nil {
		return nil, &DecryptionError{Reason: "invalid ciphertext encoding", Err: err}
	}

	plain, err := decryptBytes(ciphertext, []byte(PadKey(key)))
	if err != nil {
		return nil, err
	}
	return &DecryptedCard{pan: plain}, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
