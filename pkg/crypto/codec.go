package crypto

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrDecryptionFailed is returned when a stored token is malformed, was
// produced under a different key, or has been tampered with. It must reach
// the caller as-is; the codec never substitutes garbage plaintext.
var ErrDecryptionFailed = errors.New("crypto: message could not be decrypted")

// Codec encrypts and decrypts message bodies with a process-wide
// symmetric key. Tokens are authenticated, so tampering is detected at
// decrypt time.
type Codec struct {
	keys []*fernet.Key
}

// NewCodec parses the base64-encoded key loaded from configuration.
func NewCodec(encodedKey string) (*Codec, error) {
	if encodedKey == "" {
		return nil, errors.New("crypto: encryption key is not configured")
	}
	keys, err := fernet.DecodeKeys(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid encryption key: %w", err)
	}
	return &Codec{keys: keys}, nil
}

// Encrypt seals plaintext into a token suitable for persistence.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), c.keys[0])
	if err != nil {
		return "", fmt.Errorf("crypto: encrypt: %w", err)
	}
	return string(tok), nil
}

// Decrypt opens a stored token. Stored tokens do not expire, so no TTL is
// enforced here.
func (c *Codec) Decrypt(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, c.keys)
	if msg == nil {
		return "", ErrDecryptionFailed
	}
	return string(msg), nil
}

// GenerateKey returns a fresh encoded key for tests and initial
// ENCRYPTION_KEY provisioning.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", err
	}
	return k.Encode(), nil
}
