// Package vault implements the symmetric encryption protecting stored
// provider tokens. Ciphertext is self-describing: a random IV travels with
// every encrypted value as "hex(iv):hex(ciphertext)".
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeyLength is the required key size in bytes (AES-256).
const KeyLength = 32

// Common vault errors.
var (
	// ErrInvalidKeyLength is returned by New when the key is not exactly
	// KeyLength bytes. Callers treat this as startup-fatal.
	ErrInvalidKeyLength = errors.New("encryption key must be exactly 32 bytes")

	// ErrDecryptionFailed is returned for any malformed or tampered
	// ciphertext. Callers treat it as "credential unavailable".
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Vault encrypts and decrypts provider tokens with AES-256-CBC.
// It is stateless and safe for concurrent use.
type Vault struct {
	key []byte
}

// New creates a Vault from the configured key.
func New(key string) (*Vault, error) {
	if len(key) != KeyLength {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(key))
	}

	return &Vault{key: []byte(key)}, nil
}

// Encrypt returns the ciphertext for the given plaintext with a fresh random
// IV. The empty string is its own fixed point; existing stored rows rely on
// this short-circuit.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

// Decrypt reverses Encrypt. It never panics: structurally invalid input
// (missing separator, non-hex payload, bad IV size, tampered padding) yields
// ErrDecryptionFailed. The empty string is its own fixed point.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	ivHex, encryptedHex, found := strings.Cut(ciphertext, ":")
	if !found {
		return "", fmt.Errorf("%w: missing separator", ErrDecryptionFailed)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: invalid IV", ErrDecryptionFailed)
	}

	encrypted, err := hex.DecodeString(encryptedHex)
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid payload", ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, encrypted)

	plaintext, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: invalid padding", ErrDecryptionFailed)
	}

	return string(plaintext), nil
}

// pkcs7Pad appends PKCS#7 padding up to the next block boundary.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

// pkcs7Unpad strips and validates PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("invalid padding byte")
	}

	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("inconsistent padding")
		}
	}

	return data[:len(data)-padding], nil
}
