// Package seal provides the sealed token codec: small JSON records are
// encrypted into opaque strings with a shared secret. The same codec backs
// both the browser session cookie and the mobile bearer token.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the minimum length of the shared secret.
const MinSecretLength = 32

// keyInfo is the HKDF domain-separation string. Changing it invalidates
// every previously issued token.
const keyInfo = "go-atproto-sessions/sealed-token/v1"

var (
	ErrSecretTooShort = errors.New("secret must be at least 32 characters")
	ErrInvalidToken   = errors.New("invalid sealed token")
)

// Codec seals and opens tokens with a key derived from a shared secret.
// A Codec is safe for concurrent use.
type Codec struct {
	aeadKey []byte
}

// New derives the sealing key from secret via HKDF-SHA256.
func New(secret string) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, errors.Wrap(err, "[seal.New] key derivation")
	}

	return &Codec{aeadKey: key}, nil
}

// Seal marshals v to JSON and encrypts it with XChaCha20-Poly1305.
// The output is base64url (unpadded) of nonce || ciphertext.
func (c *Codec) Seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "[Codec.Seal] marshal")
	}

	aead, err := chacha20poly1305.NewX(c.aeadKey)
	if err != nil {
		return "", errors.Wrap(err, "[Codec.Seal] aead")
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "[Codec.Seal] nonce")
	}

	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a sealed token and unmarshals the payload into v.
// Any tampering, truncation, or secret mismatch yields ErrInvalidToken.
func (c *Codec) Open(token string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrInvalidToken
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return ErrInvalidToken
	}

	aead, err := chacha20poly1305.NewX(c.aeadKey)
	if err != nil {
		return errors.Wrap(err, "[Codec.Open] aead")
	}

	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrInvalidToken
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return ErrInvalidToken
	}
	return nil
}
