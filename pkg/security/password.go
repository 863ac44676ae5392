// Package security hashes account passwords as PHC-formatted Argon2id
// strings: $argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wanterio/wanterio-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash      = errors.New("invalid argon2id hash")
	ErrPasswordTooShort = errors.New("password too short")
	ErrEmptyPassword    = errors.New("password cannot be empty")
)

var b64 = base64.RawStdEncoding

type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// weakerThan reports whether p falls short of target on any cost axis.
func (p ArgonParams) weakerThan(target ArgonParams) bool {
	return p.Memory < target.Memory ||
		p.Time < target.Time ||
		p.Parallelism != target.Parallelism ||
		p.KeyLen < target.KeyLen
}

type Hasher struct {
	params    ArgonParams
	minLength int
}

// NewHasher clamps the configured costs into sane bounds.
func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{
		params: ArgonParams{
			Memory:      clamp(cfg.ArgonMemoryKB, 8, 512*1024),
			Time:        clamp(cfg.ArgonTime, 1, 10),
			Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
			SaltLen:     clamp(cfg.ArgonSaltLen, 8, 64),
			KeyLen:      clamp(cfg.ArgonKeyLen, 16, 64),
		},
		minLength: cfg.MinLength,
	}
}

func (h *Hasher) Hash(password string) (string, error) {
	switch n := utf8.RuneCountInString(password); {
	case n == 0:
		return "", ErrEmptyPassword
	case n < h.minLength:
		return "", fmt.Errorf("%w: at least %d characters required", ErrPasswordTooShort, h.minLength)
	}

	p := h.params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify compares in constant time. A malformed hash is an error, a
// mismatch is not.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	p, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

// NeedsRehash is true for unreadable hashes and for hashes produced with
// cheaper parameters than the current config.
func (h *Hasher) NeedsRehash(encoded string) bool {
	p, _, _, err := decodeHash(encoded)
	return err != nil || p.weakerThan(h.params)
}

func decodeHash(encoded string) (ArgonParams, []byte, []byte, error) {
	var p ArgonParams
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	p.SaltLen, p.KeyLen = uint32(len(salt)), uint32(len(key))
	return p, salt, key, nil
}

func clamp(value, lo, hi int) uint32 {
	return uint32(min(max(value, lo), hi))
}
