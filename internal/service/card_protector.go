package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"bepay-gateway/internal/core/ports"
)

// sealedPrefix marks values written by AESCardProtector. Values without it
// are treated as legacy plaintext rows and returned unchanged by Reveal.
const sealedPrefix = "gcm1:"

// PlaintextProtector stores card fields as-is.
type PlaintextProtector struct{}

func (PlaintextProtector) Protect(plaintext string) (string, error) { return plaintext, nil }
func (PlaintextProtector) Reveal(stored string) (string, error)    { return stored, nil }

// AESCardProtector seals card fields with AES-256-GCM.
type AESCardProtector struct {
	aead cipher.AEAD
}

// NewAESCardProtector creates a protector from a 64-character hex key (32 bytes decoded).
func NewAESCardProtector(hexKey string) (*AESCardProtector, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding card key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("card key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &AESCardProtector{aead: aead}, nil
}

// NewCardDataProtector picks AES when a key is configured, plaintext otherwise.
func NewCardDataProtector(hexKey string) (ports.CardDataProtector, error) {
	if hexKey == "" {
		return PlaintextProtector{}, nil
	}
	return NewAESCardProtector(hexKey)
}

// Protect returns "gcm1:" + hex(nonce || ciphertext).
func (p *AESCardProtector) Protect(plaintext string) (string, error) {
	nonce := make([]byte, p.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := p.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + hex.EncodeToString(sealed), nil
}

func (p *AESCardProtector) Reveal(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}

	sealed, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding sealed card field: %w", err)
	}

	n := p.aead.NonceSize()
	if len(sealed) < n {
		return "", errors.New("sealed card field too short")
	}

	plain, err := p.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return "", fmt.Errorf("opening sealed card field: %w", err)
	}
	return string(plain), nil
}
