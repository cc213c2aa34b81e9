package cryptox

import (
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrNoKeyMaterial is returned when neither a key nor a passphrase is configured.
	ErrNoKeyMaterial = errors.New("no encryption key or passphrase configured")
	// ErrNoSalt is returned for a passphrase without a salt.
	ErrNoSalt = errors.New("encryption salt is required with a passphrase")
)

// KeyMaterial is the symmetric key and the optional fixed iv used by Engine.
type KeyMaterial struct {
	Key []byte
	IV  []byte
}

// DeriveKey stretches a passphrase into a 32-byte AES key with Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// LoadKeyMaterial builds KeyMaterial from configuration values.
//
// keyB64 and ivB64 are standard base64 strings. When keyB64 is empty the key
// is derived from passphrase and the base64 saltB64 instead. ivB64 may be
// empty unless the caller runs in fixed-iv mode.
func LoadKeyMaterial(keyB64, ivB64, passphrase, saltB64 string) (*KeyMaterial, error) {
	km := &KeyMaterial{}

	switch {
	case keyB64 != "":
		key, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		km.Key = key
	case passphrase != "":
		salt, err := base64.StdEncoding.DecodeString(saltB64)
		if err != nil {
			return nil, fmt.Errorf("decode encryption salt: %w", err)
		}
		if len(salt) == 0 {
			return nil, ErrNoSalt
		}
		km.Key = DeriveKey([]byte(passphrase), salt)
	default:
		return nil, ErrNoKeyMaterial
	}

	if len(km.Key) != KeySize {
		return nil, ErrInvalidKeyLength
	}

	if ivB64 != "" {
		iv, err := base64.StdEncoding.DecodeString(ivB64)
		if err != nil {
			return nil, fmt.Errorf("decode encryption iv: %w", err)
		}
		if len(iv) != IVSize {
			return nil, ErrInvalidIVLength
		}
		km.IV = iv
	}

	return km, nil
}
