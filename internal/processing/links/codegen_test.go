package links

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCryptoCodeGeneratorGenerate(t *testing.T) {
	g := NewCryptoCodeGenerator(6)

	t.Run("default length is 6", func(t *testing.T) {
		code, err := g.Generate()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 {
			t.Errorf("got length %d, want 6", len(code))
		}
	})

	t.Run("base62 alphabet only", func(t *testing.T) {
		long := NewCryptoCodeGenerator(100)
		code, err := long.Generate()
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Errorf("code contains non-base62 char: %q", c)
			}
		}
	})

	t.Run("zero length uses fallback", func(t *testing.T) {
		code, err := NewCryptoCodeGenerator(0).Generate()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 {
			t.Errorf("got length %d, want 6 (fallback)", len(code))
		}
	})

	t.Run("uniqueness over 100 calls", func(t *testing.T) {
		seen := make(map[string]struct{}, 100)
		for i := 0; i < 100; i++ {
			code, err := g.Generate()
			if err != nil {
				t.Fatal(err)
			}
			if _, exists := seen[code]; exists {
				t.Fatalf("duplicate code on iteration %d: %q", i, code)
			}
			seen[code] = struct{}{}
		}
	})
}

func TestGenerateUnique(t *testing.T) {
	t.Run("returns first non-colliding candidate", func(t *testing.T) {
		gen := &mockGenerator{codes: []string{"taken1", "taken2", "fresh1"}}
		existsFn := func(_ context.Context, code string) (bool, error) {
			return strings.HasPrefix(code, "taken"), nil
		}

		code, err := GenerateUnique(context.Background(), gen, existsFn)
		if err != nil {
			t.Fatal(err)
		}
		if code != "fresh1" {
			t.Errorf("got %q, want %q", code, "fresh1")
		}
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		codes := make([]string, maxGenerateAttempts+5)
		for i := range codes {
			codes[i] = "dup"
		}
		gen := &mockGenerator{codes: codes}
		calls := 0
		existsFn := func(_ context.Context, _ string) (bool, error) {
			calls++
			return true, nil
		}

		_, err := GenerateUnique(context.Background(), gen, existsFn)
		if !errors.Is(err, ErrCodeTaken) {
			t.Fatalf("expected ErrCodeTaken, got: %v", err)
		}
		if calls != maxGenerateAttempts {
			t.Errorf("expected %d existence checks, got %d", maxGenerateAttempts, calls)
		}
	})

	t.Run("propagates existence check errors", func(t *testing.T) {
		gen := &mockGenerator{codes: []string{"abc123"}}
		storageErr := errors.New("storage down")
		existsFn := func(_ context.Context, _ string) (bool, error) {
			return false, storageErr
		}

		_, err := GenerateUnique(context.Background(), gen, existsFn)
		if !errors.Is(err, storageErr) {
			t.Fatalf("expected wrapped storage error, got: %v", err)
		}
	})
}

func TestValidateCustomCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"valid alphanumeric", "my-code1", false},
		{"minimum length", "abc", false},
		{"maximum length", strings.Repeat("a", 20), false},
		{"hyphens allowed", "a-b-c", false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 21), true},
		{"empty", "", true},
		{"underscore rejected", "my_code", true},
		{"space rejected", "my code", true},
		{"slash rejected", "a/b", true},
		{"unicode rejected", "cödé", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCustomCode(tt.code)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCode) {
					t.Errorf("expected ErrInvalidCode for %q, got: %v", tt.code, err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for %q: %v", tt.code, err)
			}
		})
	}
}
