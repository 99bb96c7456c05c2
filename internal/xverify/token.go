package xverify

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewToken mints the proof string an agent's human must publish from the
// claimed X account. 16 random bytes is far past collision range for the
// handful of challenges pending at any moment.
func NewToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "clawhammer-verify-" + strings.ToLower(tokenEncoding.EncodeToString(b[:])), nil
}
