// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vault provides encrypted at-rest storage for API credentials.
//
// Secrets are encrypted with AES-256-GCM under a key derived via
// PBKDF2-SHA-256 from a random master seed kept alongside the secrets
// with owner-only permissions. This protects against casual disclosure
// (backups, copied home directories), not against an attacker with
// full access to the same user account.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/inkwell/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// KeyOpenAIAPI is the well-known secret name for the OpenAI API key.
const KeyOpenAIAPI = "openai_api_key"

// EncryptedPrefix marks a value as encrypted (format: ENC:base64(nonce|ciphertext|tag))
const EncryptedPrefix = "ENC:"

// NonceSize is the size of the nonce/IV for AES-GCM (12 bytes / 96 bits)
const NonceSize = 12

// KeySize is the size of the AES-256 key (32 bytes / 256 bits)
const KeySize = 32

// SaltSize is the size of the salt for key derivation (32 bytes)
const SaltSize = 32

// PBKDF2Iterations is the number of iterations for PBKDF2 key derivation.
// OWASP 2023 recommends 600,000+ for PBKDF2-SHA-256.
const PBKDF2Iterations = 600000

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSecretNotFound indicates the named secret is not stored.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrInvalidCiphertext indicates the stored ciphertext format is invalid.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptFailed indicates decryption failed (wrong key or tampered data).
	ErrDecryptFailed = errors.New("decryption failed: authentication tag mismatch")
	// ErrInvalidSecretName indicates a name that could escape the vault directory.
	ErrInvalidSecretName = errors.New("invalid secret name")
)

// =============================================================================
// VAULT INTERFACE
// =============================================================================

// Vault stores named secrets encrypted at rest.
type Vault interface {
	// Store encrypts and persists a secret under the given name.
	Store(name, value string) error
	// Retrieve decrypts and returns the named secret.
	Retrieve(name string) (string, error)
	// Delete removes the named secret.
	Delete(name string) error
	// Exists reports whether the named secret is stored.
	Exists(name string) bool
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// ZeroBytes securely zeros sensitive byte slices.
// SECURITY: Zero key material to prevent memory disclosure via crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// validSecretName rejects names that could traverse outside the vault
// directory.
func validSecretName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// =============================================================================
// FILE VAULT
// =============================================================================

// FileVault is a file-based Vault. Each secret lives in its own
// <name>.secret file under the vault directory; the master key material
// lives in master.key next to them.
type FileVault struct {
	dir string
	key []byte
}

// NewFileVault opens (or initializes) a vault rooted at dir. On first
// use a fresh master seed and salt are generated and persisted; later
// opens derive the same encryption key from them.
func NewFileVault(dir string) (*FileVault, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	v := &FileVault{dir: dir}
	if err := v.loadOrCreateKey(); err != nil {
		return nil, err
	}
	return v, nil
}

// NewDefaultFileVault opens the vault at its default location,
// ~/.inkwell/vault.
func NewDefaultFileVault() (*FileVault, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	return NewFileVault(filepath.Join(home, ".inkwell", "vault"))
}

// loadOrCreateKey reads master.key (salt || seed) or generates it, then
// derives the AES-256 key.
func (v *FileVault) loadOrCreateKey() error {
	keyPath := filepath.Join(v.dir, "master.key")

	material, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		material = make([]byte, SaltSize+KeySize)
		if _, err := io.ReadFull(rand.Reader, material); err != nil {
			return fmt.Errorf("failed to generate key material: %w", err)
		}
		// RELIABILITY: Atomic write with fsync prevents data loss on crash
		if err := util.AtomicWriteFile(keyPath, material, 0600); err != nil {
			return fmt.Errorf("failed to write master key: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to read master key: %w", err)
	}

	if len(material) != SaltSize+KeySize {
		return fmt.Errorf("master key file corrupted: unexpected length %d", len(material))
	}

	salt, seed := material[:SaltSize], material[SaltSize:]
	v.key = pbkdf2.Key(seed, salt, PBKDF2Iterations, KeySize, sha256.New)
	ZeroBytes(material)
	return nil
}

// Store encrypts and persists a secret.
// SECURITY: Secret files are 0600, written atomically.
func (v *FileVault) Store(name, value string) error {
	if !validSecretName(name) {
		return ErrInvalidSecretName
	}

	encrypted, err := v.encrypt([]byte(value))
	if err != nil {
		return fmt.Errorf("failed to encrypt secret %s: %w", name, err)
	}

	if err := util.AtomicWriteFile(v.secretPath(name), []byte(encrypted), 0600); err != nil {
		return fmt.Errorf("failed to write secret %s: %w", name, err)
	}
	return nil
}

// Retrieve decrypts and returns the named secret. Returns
// ErrSecretNotFound if it was never stored.
func (v *FileVault) Retrieve(name string) (string, error) {
	if !validSecretName(name) {
		return "", ErrInvalidSecretName
	}

	data, err := os.ReadFile(v.secretPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("failed to read secret %s: %w", name, err)
	}

	plaintext, err := v.decrypt(string(data))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Delete removes the named secret. Deleting a missing secret is not an
// error.
func (v *FileVault) Delete(name string) error {
	if !validSecretName(name) {
		return ErrInvalidSecretName
	}
	if err := os.Remove(v.secretPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete secret %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the named secret is stored.
func (v *FileVault) Exists(name string) bool {
	if !validSecretName(name) {
		return false
	}
	_, err := os.Stat(v.secretPath(name))
	return err == nil
}

func (v *FileVault) secretPath(name string) string {
	return filepath.Join(v.dir, name+".secret")
}

// =============================================================================
// ENCRYPTION
// =============================================================================

// encrypt seals plaintext as ENC:base64(nonce|ciphertext|tag).
func (v *FileVault) encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt opens an ENC:-prefixed value.
func (v *FileVault) decrypt(value string) ([]byte, error) {
	if !strings.HasPrefix(value, EncryptedPrefix) {
		return nil, ErrInvalidCiphertext
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	if len(sealed) < NonceSize {
		return nil, ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce, ciphertext := sealed[:NonceSize], sealed[NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
