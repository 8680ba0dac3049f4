// Package cryptox implements the password hashing schemes understood by the
// server. New hashes are produced by one configured PasswordHasher; Verify
// accepts every scheme that may already be stored.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/timeline/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcrypt   = "bcrypt"
	SchemeArgon2id = "argon2id"
	SchemeSHA256   = "sha256"

	// SchemeResetRequired tags accounts whose password can no longer be
	// verified. Such hashes are never produced, only recognized.
	SchemeResetRequired = "reset_required"

	saltSize = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

var ErrUnknownScheme = errors.New("unknown password hashing scheme")

// PasswordHasher produces stored password hashes for one scheme.
type PasswordHasher interface {
	Scheme() string
	Hash(password []byte) (string, error)
}

// NewHasher returns the hasher registered under name. An empty name selects
// bcrypt.
func NewHasher(name string) (PasswordHasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SchemeBcrypt:
		return BcryptHasher{Cost: bcrypt.DefaultCost}, nil
	case SchemeArgon2id:
		return Argon2Hasher{}, nil
	case SchemeSHA256:
		return SHA256Hasher{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// BcryptHasher stores standard "$2a$" hashes.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Scheme() string { return SchemeBcrypt }

func (h BcryptHasher) Hash(password []byte) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword(password, cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SHA256Hasher stores "sha256:<salt>:<digest>" where digest is the hex
// SHA-256 of salt followed by the password. It needs no native code, which is
// why some restricted hosts used it.
type SHA256Hasher struct{}

func (SHA256Hasher) Scheme() string { return SchemeSHA256 }

func (SHA256Hasher) Hash(password []byte) (string, error) {
	salt, err := common.MakeRandHexString(saltSize)
	if err != nil {
		return "", err
	}
	return SchemeSHA256 + ":" + salt + ":" + sha256Digest(salt, password), nil
}

func sha256Digest(salt string, password []byte) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write(password)
	return hex.EncodeToString(h.Sum(nil))
}

// Argon2Hasher stores "argon2id:<salt>:<key>" with hex-encoded parts.
type Argon2Hasher struct{}

func (Argon2Hasher) Scheme() string { return SchemeArgon2id }

func (Argon2Hasher) Hash(password []byte) (string, error) {
	salt := common.GenerateRandByteArray(saltSize)
	key := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return SchemeArgon2id + ":" + hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// SchemeOf reports which scheme produced stored.
func SchemeOf(stored string) string {
	switch {
	case strings.HasPrefix(stored, SchemeResetRequired+":"):
		return SchemeResetRequired
	case strings.HasPrefix(stored, SchemeSHA256+":"):
		return SchemeSHA256
	case strings.HasPrefix(stored, SchemeArgon2id+":"):
		return SchemeArgon2id
	default:
		return SchemeBcrypt
	}
}

// Verify checks password against a stored hash of any known scheme. A false
// result with nil error means the password does not match; errors are
// reserved for malformed hashes.
func Verify(stored string, password []byte) (bool, error) {
	switch SchemeOf(stored) {
	case SchemeResetRequired:
		return false, nil
	case SchemeSHA256:
		salt, digest, err := splitTagged(stored, SchemeSHA256)
		if err != nil {
			return false, err
		}
		candidate := sha256Digest(salt, password)
		return subtle.ConstantTimeCompare([]byte(candidate), []byte(digest)) == 1, nil
	case SchemeArgon2id:
		saltHex, keyHex, err := splitTagged(stored, SchemeArgon2id)
		if err != nil {
			return false, err
		}
		salt, err := hex.DecodeString(saltHex)
		if err != nil {
			return false, fmt.Errorf("argon2id salt: %w", err)
		}
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return false, fmt.Errorf("argon2id key: %w", err)
		}
		candidate := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, uint32(len(key)))
		return subtle.ConstantTimeCompare(candidate, key) == 1, nil
	default:
		err := bcrypt.CompareHashAndPassword([]byte(stored), password)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("bcrypt: %w", err)
	}
}

// NeedsRehash reports whether stored was produced by a scheme other than the
// one h produces.
func NeedsRehash(stored string, h PasswordHasher) bool {
	return SchemeOf(stored) != h.Scheme()
}

func splitTagged(stored, scheme string) (string, string, error) {
	parts := strings.Split(strings.TrimPrefix(stored, scheme+":"), ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed %s hash", scheme)
	}
	return parts[0], parts[1], nil
}
