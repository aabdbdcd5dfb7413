package seal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
)

const (
	// Algorithm is the only content encryption accepted by the codec.
	Algorithm = string(jose.A256GCM)
	// KeySize is the raw key length required by Algorithm.
	KeySize = 32

	keyTypeOctet = "oct"
	keyUseEnc    = "enc"
)

// ErrInvalidKey is returned when key material cannot back a Codec.
var ErrInvalidKey = errors.New("invalid sealing key")

// Key is a symmetric sealing key with a fixed identifier.
type Key struct {
	ID       string
	Material []byte
}

// ParseKey reads a JSON Web Key of the form
//
//	{"kty":"oct","kid":"...","use":"enc","alg":"A256GCM","k":"..."}
func ParseKey(data []byte) (Key, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(data, &jwk); err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	raw, ok := jwk.Key.([]byte)
	if !ok {
		return Key{}, fmt.Errorf("%w: key type must be %q", ErrInvalidKey, keyTypeOctet)
	}
	if jwk.Algorithm != "" && jwk.Algorithm != Algorithm {
		return Key{}, fmt.Errorf("%w: unsupported alg %q", ErrInvalidKey, jwk.Algorithm)
	}
	if jwk.Use != "" && jwk.Use != keyUseEnc {
		return Key{}, fmt.Errorf("%w: unsupported use %q", ErrInvalidKey, jwk.Use)
	}
	key := Key{ID: strings.TrimSpace(jwk.KeyID), Material: raw}
	if err := key.validate(); err != nil {
		return Key{}, err
	}
	return key, nil
}

// GenerateKey creates a random key. An empty kid is replaced by a random
// URL-safe identifier.
func GenerateKey(kid string) (Key, error) {
	material := make([]byte, KeySize)
	if _, err := rand.Read(material); err != nil {
		return Key{}, err
	}
	kid = strings.TrimSpace(kid)
	if kid == "" {
		var id [16]byte
		if _, err := rand.Read(id[:]); err != nil {
			return Key{}, err
		}
		kid = base64.RawURLEncoding.EncodeToString(id[:])
	}
	return Key{ID: kid, Material: material}, nil
}

// MarshalJSON renders the key as a JWK, including the secret material.
func (k Key) MarshalJSON() ([]byte, error) {
	if err := k.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(jose.JSONWebKey{
		Key:       k.Material,
		KeyID:     k.ID,
		Algorithm: Algorithm,
		Use:       keyUseEnc,
	})
}

func (k Key) validate() error {
	if k.ID == "" {
		return fmt.Errorf("%w: missing kid", ErrInvalidKey)
	}
	if len(k.Material) != KeySize {
		return fmt.Errorf("%w: %s requires a %d byte key, got %d", ErrInvalidKey, Algorithm, KeySize, len(k.Material))
	}
	return nil
}
