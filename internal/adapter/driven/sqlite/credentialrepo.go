package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretStore = (*CredentialRepo)(nil)

// KeySize is the required length of the AES-256 key.
const KeySize = 32

// CredentialRepo is the SQLite implementation of the SecretStore port.
// Every row is scoped to a service name, the equivalent of a keychain service.
// Values are encrypted with AES-256-GCM before write and decrypted after read.
type CredentialRepo struct {
	db      *DB
	service string
	key     []byte // nil when encryption is disabled.
}

// NewCredentialRepo creates a CredentialRepo for service. key must be 32 bytes,
// or nil to disable the store (Get and Set return driven.ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, service string, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, service: service, key: key}
}

// Get retrieves and decrypts the blob stored under key.
// Returns (nil, nil) if nothing is stored.
func (r *CredentialRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value FROM secrets WHERE service = ? AND key = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, r.service, key).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get secret %q: %w", key, err)
	}

	plaintext, err := r.decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt secret %q: %w", key, err)
	}
	return plaintext, nil
}

// Set encrypts value and stores or replaces it under key.
func (r *CredentialRepo) Set(ctx context.Context, key string, value []byte) error {
	encrypted, err := r.encrypt(value)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO secrets (service, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, r.service, key, encrypted); err != nil {
		return fmt.Errorf("set secret %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob stored under key. It works without an encryption
// key so that a misconfigured client can still sign out.
func (r *CredentialRepo) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM secrets WHERE service = ? AND key = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, r.service, key); err != nil {
		return fmt.Errorf("delete secret %q: %w", key, err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext []byte) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends to nonce, producing: nonce || ciphertext || tag.
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
