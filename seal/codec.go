package seal

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
)

var (
	// ErrDecryption is returned by Unseal for malformed, foreign, or modified tokens.
	ErrDecryption = errors.New("sealed token decryption failed")
	// ErrEncryption is returned by Seal when the payload cannot be sealed.
	ErrEncryption = errors.New("sealed token encryption failed")
)

var (
	allowedKeyAlgorithms = []jose.KeyAlgorithm{jose.DIRECT}
	allowedEncryptions   = []jose.ContentEncryption{jose.A256GCM}
)

// Codec seals and unseals payloads under one symmetric key.
//
// A Codec holds no mutable state and is safe for concurrent use.
type Codec struct {
	kid       string
	key       []byte
	encrypter jose.Encrypter
}

// NewCodec builds a codec bound to key for its whole lifetime.
func NewCodec(key Key) (*Codec, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	material := make([]byte, len(key.Material))
	copy(material, key.Material)

	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: material, KeyID: key.ID},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return &Codec{kid: key.ID, key: material, encrypter: encrypter}, nil
}

// KeyID returns the identifier stamped into every token header.
func (c *Codec) KeyID() string {
	return c.kid
}

// Algorithm returns the content encryption algorithm.
func (c *Codec) Algorithm() string {
	return Algorithm
}

// Seal encrypts plaintext and returns a JWE compact token. An empty
// plaintext is refused with ErrEncryption: its token would carry an empty
// ciphertext segment that go-jose cannot decrypt.
func (c *Codec) Seal(plaintext []byte) (string, error) {
	if c == nil || c.encrypter == nil {
		return "", ErrEncryption
	}
	if len(plaintext) == 0 {
		return "", fmt.Errorf("%w: empty plaintext", ErrEncryption)
	}
	obj, err := c.encrypter.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	token, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	return token, nil
}

// Unseal authenticates and decrypts token.
func (c *Codec) Unseal(token string) ([]byte, error) {
	if c == nil || token == "" {
		return nil, ErrDecryption
	}
	if !canonicalCompact(token) {
		return nil, fmt.Errorf("%w: malformed token", ErrDecryption)
	}
	obj, err := jose.ParseEncrypted(token, allowedKeyAlgorithms, allowedEncryptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if obj.Header.KeyID != c.kid {
		return nil, fmt.Errorf("%w: unknown kid", ErrDecryption)
	}
	plaintext, err := obj.Decrypt(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

// SealRecord encodes and seals r.
func (c *Codec) SealRecord(r Record) (string, error) {
	payload, err := EncodeRecord(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	return c.Seal(payload)
}

// UnsealRecord unseals token and decodes the record inside it. A payload that
// authenticates but does not decode is reported as ErrDecryption as well.
func (c *Codec) UnsealRecord(token string) (Record, error) {
	payload, err := c.Unseal(token)
	if err != nil {
		return Record{}, err
	}
	r, err := DecodeRecord(payload)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return r, nil
}

// canonicalCompact rejects compact tokens whose segments carry non-zero
// padding bits, so two distinct strings never unseal to the same payload.
func canonicalCompact(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 5 {
		return false
	}
	for _, part := range parts {
		if _, err := base64.RawURLEncoding.Strict().DecodeString(part); err != nil {
			return false
		}
	}
	return true
}
