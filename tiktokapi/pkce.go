package tiktokapi

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// unreservedChars is the RFC 3986 unreserved alphabet allowed in PKCE code verifiers.
const unreservedChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

const (
	verifierMinLen = 43
	verifierMaxLen = 128 // exclusive
)

// GenerateCodeVerifier returns a random PKCE code verifier with length chosen
// uniformly in [43,128) and characters drawn from the unreserved set.
func GenerateCodeVerifier() (string, error) {
	span, err := rand.Int(rand.Reader, big.NewInt(verifierMaxLen-verifierMinLen))
	if err != nil {
		return "", fmt.Errorf("pick verifier length: %w", err)
	}
	n := verifierMinLen + int(span.Int64())
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(unreservedChars))))
		if err != nil {
			return "", fmt.Errorf("pick verifier char: %w", err)
		}
		buf[i] = unreservedChars[idx.Int64()]
	}
	return string(buf), nil
}

// CodeChallengeS256Hex derives the code challenge sent with the authorize URL.
// TikTok's login kit documents the S256 challenge as the hex digest of
// SHA-256(verifier), not the RFC 7636 base64url form.
func CodeChallengeS256Hex(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return hex.EncodeToString(sum[:])
}
