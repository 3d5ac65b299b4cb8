// Package extcrypto provides the Crypto static class: random UUIDs, digests,
// HMACs and argon2id password hashes.
//
// Supported algorithms: "md5", "sha1", "sha256", "sha384", "sha512",
// "sha3-256", "sha3-512", "blake2b-256", "ripemd160". Digests are
// lowercase hex.
package extcrypto

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // intentional: provided for non-security fingerprinting
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // intentional
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // legacy digests are still requested
	"golang.org/x/crypto/sha3"

	"github.com/sandrolain/gognl/pkg/ext/extutil"
	"github.com/sandrolain/gognl/pkg/functions"
)

// Crypto marks the Crypto class.
type Crypto struct{}

// Class returns the Crypto class.
func Class() functions.Class {
	return extutil.Class[Crypto]("Crypto", All())
}

// All returns all crypto function definitions.
func All() []functions.Func {
	return []functions.Func{
		UUID(),
		Hash(),
		HMAC(),
		Base64(),
		Argon2(),
		Argon2Verify(),
	}
}

// UUID returns the definition for uuid(): a random version 4 UUID.
func UUID() functions.Func {
	return extutil.Fn("uuid", func() (string, error) {
		var b [16]byte
		if _, err := rand.Read(b[:]); err != nil {
			return "", fmt.Errorf("uuid: failed to generate random bytes: %w", err)
		}
		b[6] = (b[6] & 0x0f) | 0x40
		b[8] = (b[8] & 0x3f) | 0x80
		return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16]), nil
	})
}

// Hash returns the definition for hash(str [, algorithm]). The default
// algorithm is sha256.
func Hash() functions.Func {
	digest := func(str, algorithm string) (string, error) {
		h, err := newHasher(strings.ToLower(algorithm))
		if err != nil {
			return "", fmt.Errorf("hash: %w", err)
		}
		h.Write([]byte(str))
		return hex.EncodeToString(h.Sum(nil)), nil
	}
	return extutil.Fn("hash",
		func(str string) (string, error) { return digest(str, "sha256") },
		digest,
	)
}

// HMAC returns the definition for hmac(str, key [, algorithm]). The default
// algorithm is sha256.
func HMAC() functions.Func {
	sign := func(str, key, algorithm string) (string, error) {
		newHash, err := hashFunc(strings.ToLower(algorithm))
		if err != nil {
			return "", fmt.Errorf("hmac: %w", err)
		}
		mac := hmac.New(newHash, []byte(key))
		mac.Write([]byte(str))
		return hex.EncodeToString(mac.Sum(nil)), nil
	}
	return extutil.Fn("hmac",
		func(str, key string) (string, error) { return sign(str, key, "sha256") },
		sign,
	)
}

// Base64 returns the definition for base64(str), standard encoding with
// padding.
func Base64() functions.Func {
	return extutil.Fn("base64", func(str string) string {
		return base64.StdEncoding.EncodeToString([]byte(str))
	})
}

// argon2id parameters of Argon2.
const (
	argonTime    = uint32(1)
	argonMemory  = uint32(64 * 1024)
	argonThreads = uint8(2)
	argonKeyLen  = uint32(32)
)

// Argon2 returns the definition for argon2(password [, salt]): an encoded
// argon2id hash. Without a salt 16 random bytes are used; an explicit salt
// must be at least 8 bytes.
func Argon2() functions.Func {
	encode := func(password string, salt []byte) string {
		key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
		return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, argonMemory, argonTime, argonThreads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key),
		)
	}
	return extutil.Fn("argon2",
		func(password string) (string, error) {
			salt := make([]byte, 16)
			if _, err := rand.Read(salt); err != nil {
				return "", fmt.Errorf("argon2: failed to generate salt: %w", err)
			}
			return encode(password, salt), nil
		},
		func(password, salt string) (string, error) {
			if len(salt) < 8 {
				return "", fmt.Errorf("argon2: salt must be at least 8 bytes")
			}
			return encode(password, []byte(salt)), nil
		},
	)
}

// Argon2Verify returns the definition for argon2Verify(hash, password).
func Argon2Verify() functions.Func {
	return extutil.Fn("argon2Verify", func(encoded, password string) (bool, error) {
		m, t, p, salt, want, err := parseArgon2(encoded)
		if err != nil {
			return false, fmt.Errorf("argon2Verify: %w", err)
		}
		got := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(want)))
		return subtle.ConstantTimeCompare(got, want) == 1, nil
	})
}

// parseArgon2 splits $argon2id$v=19$m=..,t=..,p=..$salt$key.
func parseArgon2(encoded string) (m, t uint32, p uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, fmt.Errorf("not an argon2id hash")
	}
	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return 0, 0, 0, nil, nil, fmt.Errorf("malformed parameters %q", parts[3])
	}
	m64, err := strconv.ParseUint(strings.TrimPrefix(params[0], "m="), 10, 32)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	t64, err := strconv.ParseUint(strings.TrimPrefix(params[1], "t="), 10, 32)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	p64, err := strconv.ParseUint(strings.TrimPrefix(params[2], "p="), 10, 8)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return 0, 0, 0, nil, nil, err
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return 0, 0, 0, nil, nil, err
	}
	return uint32(m64), uint32(t64), uint8(p64), salt, key, nil
}

// ── helpers ────────────────────────────────────────────────────────────────

func hashFunc(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case "md5":
		return md5.New, nil //nolint:gosec
	case "sha1":
		return sha1.New, nil //nolint:gosec
	case "sha256":
		return sha256.New, nil
	case "sha384":
		return sha512.New384, nil
	case "sha512":
		return sha512.New, nil
	case "sha3-256":
		return sha3.New256, nil
	case "sha3-512":
		return sha3.New512, nil
	case "blake2b-256":
		return func() hash.Hash {
			h, _ := blake2b.New256(nil) // only fails for oversized keys
			return h
		}, nil
	case "ripemd160":
		return ripemd160.New, nil
	}
	return nil, fmt.Errorf("unsupported algorithm %q; use md5, sha1, sha256, sha384, sha512, sha3-256, sha3-512, blake2b-256 or ripemd160", algorithm)
}

func newHasher(algorithm string) (hash.Hash, error) {
	f, err := hashFunc(algorithm)
	if err != nil {
		return nil, err
	}
	return f(), nil
}
