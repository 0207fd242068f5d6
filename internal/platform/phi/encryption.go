package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// FieldEncryptor encrypts and decrypts individual text columns that carry
// patient-identifying or clinical narrative data.
type FieldEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AESEncryptor is an AES-256-GCM FieldEncryptor. Ciphertexts are base64 with
// the nonce prepended.
type AESEncryptor struct {
	aead cipher.AEAD
}

func NewAESEncryptor(key []byte) (*AESEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("phi encryptor: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create GCM: %w", err)
	}
	return &AESEncryptor{aead: aead}, nil
}

func (e *AESEncryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("phi encrypt: generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *AESEncryptor) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("phi decrypt: base64 decode: %w", err)
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("phi decrypt: ciphertext too short")
	}
	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("phi decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Plaintext stores values unchanged. Used when no key is configured.
type Plaintext struct{}

func (Plaintext) Encrypt(s string) (string, error) { return s, nil }
func (Plaintext) Decrypt(s string) (string, error) { return s, nil }

// NewFieldEncryptor builds an encryptor from a 64-character hex key. An empty
// key disables encryption and logs a warning.
func NewFieldEncryptor(hexKey string, logger zerolog.Logger) (FieldEncryptor, error) {
	if hexKey == "" {
		logger.Warn().Msg("PHI encryption disabled: PHI_ENCRYPTION_KEY is not set")
		return Plaintext{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	enc, err := NewAESEncryptor(key)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("PHI field-level encryption enabled")
	return enc, nil
}

// EncryptPtr encrypts an optional column value. nil and empty stay as they are.
func EncryptPtr(enc FieldEncryptor, v *string) (*string, error) {
	if v == nil || *v == "" {
		return v, nil
	}
	out, err := enc.Encrypt(*v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func DecryptPtr(enc FieldEncryptor, v *string) (*string, error) {
	if v == nil || *v == "" {
		return v, nil
	}
	out, err := enc.Decrypt(*v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
