package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"sync"

	"bepay-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// StaticAPIKey compares the presented key against a configured plaintext key.
type StaticAPIKey struct {
	key []byte
}

func NewStaticAPIKey(key string) *StaticAPIKey {
	return &StaticAPIKey{key: []byte(key)}
}

func (v *StaticAPIKey) Verify(key string) bool {
	if len(v.key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.key, []byte(key)) == 1
}

// HashedAPIKey verifies against an Argon2id hash. Accepted keys are
// remembered by SHA-256 digest so the hash runs once per distinct key.
type HashedAPIKey struct {
	hash     string
	hasher   ports.HashService
	accepted sync.Map // [32]byte -> struct{}
	log      zerolog.Logger
}

func NewHashedAPIKey(hash string, hasher ports.HashService, log zerolog.Logger) *HashedAPIKey {
	return &HashedAPIKey{hash: hash, hasher: hasher, log: log}
}

func (v *HashedAPIKey) Verify(key string) bool {
	digest := sha256.Sum256([]byte(key))
	if _, ok := v.accepted.Load(digest); ok {
		return true
	}

	ok, err := v.hasher.Verify(key, v.hash)
	if err != nil {
		v.log.Error().Err(err).Msg("api key hash is malformed")
		return false
	}
	if ok {
		v.accepted.Store(digest, struct{}{})
	}
	return ok
}

// NewAPIKeyVerifier prefers the hash when both are configured.
func NewAPIKeyVerifier(key, hash string, log zerolog.Logger) ports.APIKeyVerifier {
	if hash != "" {
		return NewHashedAPIKey(hash, NewArgon2HashService(), log)
	}
	return NewStaticAPIKey(key)
}
