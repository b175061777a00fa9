package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

var (
	// ErrMalformedHash is returned by Parse for strings that are not argon2id PHC hashes.
	ErrMalformedHash = errors.New("malformed argon2id hash")
)

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the production cost parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies secrets (passwords and recovery codes) as
// argon2id PHC strings. It is safe for concurrent use.
type Argon2 struct {
	config Config
	rand   io.Reader
}

// Params are the cost parameters decoded from an encoded hash.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	Salt        []byte
	Key         []byte
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg, rand: rand.Reader}, nil
}

// Hash derives a key from secret with a fresh random salt and returns
//
//	$argon2id$v=19$m=<mem>,t=<time>,p=<par>$<salt>$<key>
//
// Secrets are hashed byte for byte, without Unicode normalization.
func (a *Argon2) Hash(secret string) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(a.rand, salt); err != nil {
		return "", fmt.Errorf("argon2 salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches encoded. A malformed encoded hash
// is a mismatch, never an error.
func (a *Argon2) Verify(secret, encoded string) bool {
	p, err := Parse(encoded)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(secret), p.Salt, p.Time, p.Memory, p.Parallelism, uint32(len(p.Key)))
	return subtle.ConstantTimeCompare(computed, p.Key) == 1
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher's current configuration. Malformed hashes report false.
func (a *Argon2) NeedsUpgrade(encoded string) bool {
	p, err := Parse(encoded)
	if err != nil {
		return false
	}
	return a.config.Memory > p.Memory ||
		a.config.Time > p.Time ||
		a.config.Parallelism > p.Parallelism ||
		a.config.KeyLength != uint32(len(p.Key))
}

// Parse decodes an argon2id PHC string.
func Parse(encoded string) (*Params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, ErrMalformedHash
	}

	var (
		memory, cost uint32
		par          uint8
	)
	n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &cost, &par)
	if err != nil || n != 3 {
		return nil, ErrMalformedHash
	}
	if memory < minMemoryKB || cost < minTimeCost || par < minParallelism {
		return nil, ErrMalformedHash
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, ErrMalformedHash
	}
	key, err := decodeB64(parts[5])
	if err != nil || len(key) == 0 {
		return nil, ErrMalformedHash
	}

	return &Params{Memory: memory, Time: cost, Parallelism: par, Salt: salt, Key: key}, nil
}

// decodeB64 accepts both the unpadded PHC form and padded standard base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return fmt.Errorf("password memory must be >= %d KiB", minMemoryKB)
	case cfg.Time < minTimeCost:
		return errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	}
	return nil
}
