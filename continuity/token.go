package continuity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Token is a two byte hint derived from a longer identifier. It signals
// possession of a value without carrying it.
type Token [2]byte

func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// ParseToken decodes four hex digits into a token.
func ParseToken(s string) (Token, error) {
	var t Token
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return t, fmt.Errorf("continuity: parse token: %w", err)
	}
	if len(b) != len(t) {
		return t, fmt.Errorf("continuity: parse token: want %d bytes, got %d", len(t), len(b))
	}
	copy(t[:], b)
	return t, nil
}

// TokenFunc truncates a one-way digest of s to a Token. Implementations must
// be deterministic.
type TokenFunc func(s string) Token

// SHA256Token returns the first two bytes of SHA-256(s).
func SHA256Token(s string) Token {
	sum := sha256.Sum256([]byte(s))
	return Token{sum[0], sum[1]}
}

// Blake2bToken returns the first two bytes of BLAKE2b-256(s).
func Blake2bToken(s string) Token {
	sum := blake2b.Sum256([]byte(s))
	return Token{sum[0], sum[1]}
}

// TokenFuncByName maps a digest name from configuration to its TokenFunc.
// The empty name selects SHA-256.
func TokenFuncByName(name string) (TokenFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256", "sha-256":
		return SHA256Token, nil
	case "blake2b", "blake2b-256":
		return Blake2bToken, nil
	default:
		return nil, fmt.Errorf("continuity: unknown token digest %q", name)
	}
}

// OptionalToken derives a token from an optional identifier. A nil value is
// hashed as the empty string.
func OptionalToken(tokens TokenFunc, s *string) Token {
	if tokens == nil {
		tokens = SHA256Token
	}
	if s == nil {
		return tokens("")
	}
	return tokens(*s)
}
