// Package aesgcm implements AES-256-GCM authenticated encryption with caller
// supplied additional authenticated data.
//
// The default output layout is iv (12 bytes) || ciphertext || tag (16 bytes).
// IVs are drawn from crypto/rand.Reader, which is safe for concurrent use, so
// concurrent Encrypt calls under one key never share an IV. The static IV
// variants leave IV uniqueness to the caller and do not prepend the IV.
package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	KeySize = 32
	IVSize  = 12
	TagSize = 16
)

var (
	ErrInvalidKey           = errors.New("aes-gcm key must be 32 bytes")
	ErrInvalidIV            = errors.New("aes-gcm iv must be 12 bytes")
	ErrAuthenticationFailed = errors.New("aes-gcm decryption failed")
)

// Cipher holds an AES-256-GCM AEAD for repeated use under one key. It is safe
// for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher with the given 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidKey, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes-gcm: create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("aes-gcm: create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random IV and returns iv || ciphertext || tag.
func (c *Cipher) Encrypt(plaintext, aad []byte) ([]byte, error) {
	iv, err := GenerateIV()
	if err != nil {
		return nil, err
	}

	// Seal appends to iv, so the result is iv + ciphertext + tag.
	return c.aead.Seal(iv, iv, plaintext, aad), nil
}

// Decrypt splits the leading IV from input and opens the remainder.
func (c *Cipher) Decrypt(input, aad []byte) ([]byte, error) {
	if len(input) < IVSize+TagSize {
		return nil, fmt.Errorf("%w: input of %d bytes is too short", ErrAuthenticationFailed, len(input))
	}

	iv, sealed := input[:IVSize], input[IVSize:]
	return c.open(iv, sealed, aad)
}

// EncryptWithStaticIV seals plaintext under the caller's IV. The IV is not
// part of the output.
func (c *Cipher) EncryptWithStaticIV(plaintext, aad, iv []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidIV, len(iv))
	}
	return c.aead.Seal(nil, iv, plaintext, aad), nil
}

// DecryptWithStaticIV opens ciphertext || tag produced by EncryptWithStaticIV.
func (c *Cipher) DecryptWithStaticIV(sealed, aad, iv []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidIV, len(iv))
	}
	if len(sealed) < TagSize {
		return nil, fmt.Errorf("%w: input of %d bytes is too short", ErrAuthenticationFailed, len(sealed))
	}
	return c.open(iv, sealed, aad)
}

func (c *Cipher) open(iv, sealed, aad []byte) ([]byte, error) {
	plaintext, err := c.aead.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// Encrypt is a one-shot Cipher.Encrypt.
func Encrypt(plaintext, aad, key []byte) ([]byte, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(plaintext, aad)
}

// Decrypt is a one-shot Cipher.Decrypt.
func Decrypt(input, aad, key []byte) ([]byte, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(input, aad)
}

// EncryptWithStaticIV is a one-shot Cipher.EncryptWithStaticIV.
func EncryptWithStaticIV(plaintext, aad, key, iv []byte) ([]byte, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	return c.EncryptWithStaticIV(plaintext, aad, iv)
}

// DecryptWithStaticIV is a one-shot Cipher.DecryptWithStaticIV.
func DecryptWithStaticIV(sealed, aad, key, iv []byte) ([]byte, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	return c.DecryptWithStaticIV(sealed, aad, iv)
}

// GenerateKey returns a random AES-256 key.
func GenerateKey() ([]byte, error) {
	return randomBytes(KeySize)
}

// GenerateIV returns a random 96-bit IV.
func GenerateIV() ([]byte, error) {
	return randomBytes(IVSize)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("aes-gcm: read random: %w", err)
	}
	return b, nil
}
