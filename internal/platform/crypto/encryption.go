package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Service encrypts sensitive employee fields (BPJS and tax numbers,
// MFA secrets) with AES-GCM. An empty key leaves the service
// unconfigured and values pass through as plaintext; production config
// validation rejects that.
type Service struct {
	aead cipher.AEAD
}

func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	decoded, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be 32 bytes after decoding")
	}
	block, err := aes.NewCipher(decoded)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

func (s *Service) Configured() bool {
	return s.aead != nil
}

// Encrypt returns nonce||ciphertext for plain, or plain unchanged when
// no key is configured.
func (s *Service) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *Service) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return ciphertext, nil
	}
	if len(ciphertext) < s.aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:s.aead.NonceSize()]
	data := ciphertext[s.aead.NonceSize():]
	return s.aead.Open(nil, nonce, data, nil)
}

func (s *Service) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return s.Encrypt([]byte(value))
}

func (s *Service) DecryptString(value []byte) (string, error) {
	plain, err := s.Decrypt(value)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// DecryptStringFallback returns the decrypted value, or plain when the
// service is unconfigured, the ciphertext is empty, or decryption
// fails. Rows written before encryption was enabled keep working.
func DecryptStringFallback(s *Service, encrypted []byte, plain string) string {
	if s == nil || !s.Configured() || len(encrypted) == 0 {
		return plain
	}
	value, err := s.DecryptString(encrypted)
	if err != nil {
		return plain
	}
	return value
}

func DecryptFloatFallback(s *Service, encrypted []byte, plain *float64) *float64 {
	if s == nil || !s.Configured() || len(encrypted) == 0 {
		return plain
	}
	value, err := s.DecryptString(encrypted)
	if err != nil {
		return plain
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return plain
	}
	return &parsed
}

// decodeKey accepts hex, standard or raw base64, or raw bytes.
func decodeKey(raw string) ([]byte, error) {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded, nil
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	return []byte(raw), nil
}
