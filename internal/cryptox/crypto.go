package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/continu/internal/common"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the CBC initialization vector length, equal to the AES block size.
	IVSize = aes.BlockSize
)

var (
	ErrInvalidKeyLength = errors.New("invalid key length: expected 32 bytes for AES-256")
	ErrInvalidIVLength  = errors.New("invalid IV length: expected 16 bytes")
	ErrPadding          = errors.New("invalid PKCS#7 padding")
	ErrDecryptionFailed = errors.New("decryption failed")
)

func checkKeyIV(key, iv []byte) error {
	if len(key) != KeySize {
		return ErrInvalidKeyLength
	}
	if len(iv) != IVSize {
		return ErrInvalidIVLength
	}
	return nil
}

// Encrypt encrypts plaintext with AES-256 in CBC mode using PKCS#7 padding.
//
// The key must be exactly 32 bytes and the iv exactly 16 bytes, otherwise
// ErrInvalidKeyLength or ErrInvalidIVLength is returned. The output is always
// block aligned and at least one byte longer than the input: block-aligned
// plaintext gains a full padding block.
//
// Encrypt is deterministic for a fixed (plaintext, key, iv) triple. Reusing an
// iv across values leaks equal prefixes; prefer Seal, which draws a fresh iv
// for every call.
//
// Example:
//
//	key := common.GenerateRandByteArray(cryptox.KeySize)
//	iv := common.GenerateRandByteArray(cryptox.IVSize)
//
//	ct, err := cryptox.Encrypt([]byte("export EDITOR=vim\n"), key, iv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(ct)) // 32
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	if err := checkKeyIV(key, iv); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	padded := pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return ciphertext, nil
}

// Decrypt reverses Encrypt. It validates key and iv lengths the same way and
// returns ErrDecryptionFailed for empty or non block-aligned input and
// ErrPadding when the trailing padding is malformed, which is the usual
// symptom of a wrong key or iv.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	if err := checkKeyIV(key, iv); err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d",
			ErrDecryptionFailed, len(ciphertext), aes.BlockSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext, aes.BlockSize)
}

// Seal encrypts plaintext under key with a freshly generated iv and returns
// iv || ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	iv := common.GenerateRandByteArray(IVSize)
	ct, err := Encrypt(plaintext, key, iv)
	if err != nil {
		return nil, err
	}

	return append(iv, ct...), nil
}

// Open splits a blob produced by Seal into iv and ciphertext and decrypts it.
func Open(blob, key []byte) ([]byte, error) {
	if len(blob) < IVSize {
		return nil, fmt.Errorf("%w: blob shorter than iv", ErrDecryptionFailed)
	}
	return Decrypt(blob[IVSize:], key, blob[:IVSize])
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrPadding
		}
	}
	return data[:len(data)-n], nil
}
