package links

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
)

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// maxGenerateAttempts bounds the generate-and-check loop so a broken
// existence check cannot spin forever.
const maxGenerateAttempts = 10

var customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9-]{3,20}$`)

// CryptoCodeGenerator draws fixed-length short codes from a 62-symbol
// alphabet using crypto/rand.
type CryptoCodeGenerator struct {
	length int
}

func NewCryptoCodeGenerator(length int) *CryptoCodeGenerator {
	if length <= 0 {
		length = 6
	}
	return &CryptoCodeGenerator{length: length}
}

func (g *CryptoCodeGenerator) Generate() (string, error) {
	out := make([]byte, g.length)
	buf := make([]byte, 1)

	// Rejection sampling keeps the draw uniform over the 62 symbols.
	// 248 is the largest multiple of 62 below 256.
	for i := 0; i < g.length; {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		if buf[0] >= 248 {
			continue
		}
		out[i] = codeAlphabet[int(buf[0])%len(codeAlphabet)]
		i++
	}

	return string(out), nil
}

// GenerateUnique returns a candidate that does not collide according to
// existsFn, giving up after a bounded number of attempts.
func GenerateUnique(ctx context.Context, gen CodeGenerator, existsFn func(ctx context.Context, code string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := gen.Generate()
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}

		exists, err := existsFn(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check short code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("no unique short code after %d attempts: %w", maxGenerateAttempts, ErrCodeTaken)
}

// ValidateCustomCode rejects caller-supplied codes outside the 3-20 character
// letters/digits/hyphens format.
func ValidateCustomCode(code string) error {
	if !customCodePattern.MatchString(code) {
		return ErrInvalidCode
	}
	return nil
}
