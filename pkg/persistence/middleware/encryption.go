package middleware

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/spindle/pkg/ports"
)

// KeySize is the AES-256 key length.
const KeySize = 32

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// envelope is what reaches the store: an opaque blob, base64 encoded by
// encoding/json.
type envelope struct {
	Encrypted []byte `json:"__encrypted__"`
}

type encryptionCodec struct {
	next   ports.Codec
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals encoded States with
// AES-GCM (Envelope Encryption).
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != KeySize {
		return nil, fmt.Errorf("active key must be %d bytes (AES-256), got %d", KeySize, len(config.ActiveKey))
	}
	for i, k := range config.FallbackKeys {
		if len(k) != KeySize {
			return nil, fmt.Errorf("fallback key %d must be %d bytes (AES-256), got %d", i, KeySize, len(k))
		}
	}
	return func(next ports.Codec) ports.Codec {
		return &encryptionCodec{
			next:   next,
			config: config,
		}
	}, nil
}

func (c *encryptionCodec) Marshal(v any) ([]byte, error) {
	plainText, err := c.next.Marshal(v)
	if err != nil {
		return nil, err
	}

	ciphertext, err := encrypt(plainText, c.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt state: %w", err)
	}
	return json.Marshal(envelope{Encrypted: ciphertext})
}

func (c *encryptionCodec) Unmarshal(data []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}
	// Plain States written before encryption was enabled are refused.
	if len(env.Encrypted) == 0 {
		return errors.New("state is missing encrypted data envelope")
	}

	plainText, err := decryptWithRotation(env.Encrypted, c.config.ActiveKey, c.config.FallbackKeys)
	if err != nil {
		return fmt.Errorf("failed to decrypt state: %w", err)
	}
	return c.next.Unmarshal(plainText, v)
}

// Helpers

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
