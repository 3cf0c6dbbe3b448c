// Package vault encrypts provider tokens at rest.
//
// Every blob is self-contained: base64(version | salt | nonce | ciphertext+tag). The AES-256-GCM
// key for a blob is derived from the master key and the blob's salt with HKDF-SHA256, so the
// only secret needed to decrypt is the master key itself.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"demantive/internal/common/errs"
	"demantive/internal/config"

	"golang.org/x/crypto/hkdf"
)

const (
	version   byte = 1
	saltSize       = 16
	nonceSize      = 12
	keySize        = 32
	tagSize        = 16
)

var hkdfInfo = []byte("demantive token vault v1")

type Vault struct {
	masterKey []byte
}

// New builds a vault from a 64 character hex master key.
func New(keyHex string) (*Vault, error) {
	if len(keyHex) != keySize*2 {
		return nil, &errs.ConfigurationError{Key: "ENCRYPTION_KEY", Reason: "must be 64 hex characters"}
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, &errs.ConfigurationError{Key: "ENCRYPTION_KEY", Reason: "must be hex encoded"}
	}
	return &Vault{masterKey: key}, nil
}

// NewFromConfig is the fx constructor.
func NewFromConfig(cfg *config.Config) (*Vault, error) {
	return New(cfg.EncryptionKey)
}

// Encrypt seals plaintext with a fresh salt and nonce.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	gcm, err := v.aead(salt)
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, 1+saltSize+nonceSize+len(plaintext)+tagSize)
	out = append(out, version)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, []byte(plaintext), []byte{version})

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a blob produced by Encrypt. Any malformed or tampered input yields ErrIntegrity.
func (v *Vault) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", errs.ErrIntegrity
	}
	if len(raw) < 1+saltSize+nonceSize+tagSize || raw[0] != version {
		return "", errs.ErrIntegrity
	}

	salt := raw[1 : 1+saltSize]
	nonce := raw[1+saltSize : 1+saltSize+nonceSize]
	sealed := raw[1+saltSize+nonceSize:]

	gcm, err := v.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, []byte{version})
	if err != nil {
		return "", errs.ErrIntegrity
	}
	return string(plaintext), nil
}

func (v *Vault) aead(salt []byte) (cipher.AEAD, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, v.masterKey, salt, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
