package cardcrypto

import "strings"

// DecryptedCard holds a plaintext card number for the duration of rendering.
// String never exposes the full number.
type DecryptedCard struct {
	pan []byte
}

// NewDecryptedCard copies pan into a new card.
func NewDecryptedCard(pan string) *DecryptedCard {
	return &DecryptedCard{pan: []byte(pan)}
}

// Last4 returns the last four characters of the card number.
func (c *DecryptedCard) Last4() string {
	if c == nil {
		return ""
	}
	if len(c.pan) <= 4 {
		return string(c.pan)
	}
	return string(c.pan[len(c.pan)-4:])
}

// Masked returns the card number with everything but the last four characters
// replaced by '*'.
func (c *DecryptedCard) Masked() string {
	if c == nil || len(c.pan) == 0 {
		return ""
	}
	last4 := c.Last4()
	return strings.Repeat("*", len(c.pan)-len(last4)) + last4
}

// Wipe zeroes the card number. The card is unusable afterwards.
func (c *DecryptedCard) Wipe() {
	if c == nil {
		return
	}
	wipe(c.pan)
	c.pan = nil
}

func (c *DecryptedCard) String() string {
	return c.Masked()
}
