package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"

	"vectorportal/internal/domain"
)

// SealedPrefix marks a value produced by Seal or SealValue.
const SealedPrefix = "enc:"

// SaltSize is the length of the key-derivation salt.
const SaltSize = 16

// SecretBox encrypts individual config values with AES-256-GCM. The key is
// derived once from a passphrase and a salt the caller persists, so values
// sealed in one process open in the next.
type SecretBox struct {
	mu  sync.RWMutex
	key []byte
}

// NewSalt returns a random salt for NewSecretBox.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// NewSecretBox derives the box key from passphrase and salt.
func NewSecretBox(passphrase string, salt []byte) (*SecretBox, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: passphrase must not be empty", domain.ErrEncryption)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes", domain.ErrEncryption, SaltSize)
	}
	return &SecretBox{key: deriveKey(passphrase, salt)}, nil
}

// Seal encrypts plaintext and returns "enc:" + base64(nonce + ciphertext).
func (b *SecretBox) Seal(plaintext string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sealed, err := seal(b.key, plaintext)
	if err != nil {
		return "", err
	}
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Values without the prefix are returned
// unchanged so rows written before encryption was enabled still read.
func (b *SecretBox) Open(value string) (string, error) {
	if !IsSealedValue(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode: %v", domain.ErrDecryption, err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return open(b.key, data)
}

// Zeroize clears the key. The box is unusable afterwards.
func (b *SecretBox) Zeroize() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.key {
		b.key[i] = 0
	}
}

// IsSealedValue reports whether s carries the sealed prefix.
func IsSealedValue(s string) bool {
	return strings.HasPrefix(s, SealedPrefix)
}

// SealValue encrypts a standalone value with its own salt, for secrets kept
// in the config file. Format: "enc:" + hex(salt) + ":" + hex(nonce+ciphertext).
func SealValue(plaintext, passphrase string) (string, error) {
	salt, err := NewSalt()
	if err != nil {
		return "", err
	}
	sealed, err := seal(deriveKey(passphrase, salt), plaintext)
	if err != nil {
		return "", err
	}
	return SealedPrefix + hex.EncodeToString(salt) + ":" + hex.EncodeToString(sealed), nil
}

// OpenValue decrypts a value produced by SealValue.
func OpenValue(value, passphrase string) (string, error) {
	parts := strings.SplitN(strings.TrimPrefix(value, SealedPrefix), ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: invalid sealed format", domain.ErrDecryption)
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: decode salt: %v", domain.ErrDecryption, err)
	}
	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", domain.ErrDecryption, err)
	}
	return open(deriveKey(passphrase, salt), data)
}

func seal(key []byte, plaintext string) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncryption, err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: generate nonce: %v", domain.ErrEncryption, err)
	}
	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func open(key, data []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryption)
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}
