package tiktokapi

import (
	"strings"
	"testing"
)

func TestGenerateCodeVerifierLengthAndAlphabet(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		v, err := GenerateCodeVerifier()
		if err != nil {
			t.Fatalf("GenerateCodeVerifier() error = %v", err)
		}
		if len(v) < 43 || len(v) > 127 {
			t.Fatalf("verifier length = %d, want in [43,127]", len(v))
		}
		seen[len(v)] = true
		for _, r := range v {
			if !strings.ContainsRune(unreservedChars, r) {
				t.Fatalf("verifier contains non-unreserved char %q", r)
			}
		}
	}
	// Lengths should vary across generations, not be pinned to one value.
	if len(seen) < 2 {
		t.Errorf("verifier length never varied across 200 generations")
	}
}

func TestGenerateCodeVerifierUnique(t *testing.T) {
	a, err := GenerateCodeVerifier()
	if err != nil {
		t.Fatalf("GenerateCodeVerifier() error = %v", err)
	}
	b, err := GenerateCodeVerifier()
	if err != nil {
		t.Fatalf("GenerateCodeVerifier() error = %v", err)
	}
	if a == b {
		t.Error("two verifiers are identical")
	}
}

func TestCodeChallengeS256Hex(t *testing.T) {
	// sha256("test") hex digest
	got := CodeChallengeS256Hex("test")
	want := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	if got != want {
		t.Errorf("CodeChallengeS256Hex(test) = %s, want %s", got, want)
	}
	if len(got) != 64 {
		t.Errorf("challenge length = %d, want 64 hex chars", len(got))
	}
}
