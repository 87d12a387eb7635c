package rooms

import (
	"math/rand"
	"strconv"

	"github.com/google/uuid"
)

const (
	codeMin = 1000
	codeMax = 9999
	// DefaultCodeAttempts bounds the search for a free code in one scope.
	DefaultCodeAttempts = 64
)

// CodeSource produces a passcode for a new session in a scope.
type CodeSource interface {
	Generate(scopeID uuid.UUID) (string, error)
}

// CodeChecker reports whether a code is active in a scope.
type CodeChecker interface {
	Contains(scopeID uuid.UUID, code string) bool
}

// PasscodeGenerator draws 4-digit codes uniformly and skips the ones already
// active in the requested scope.
type PasscodeGenerator struct {
	active      CodeChecker
	intN        func(n int) int
	maxAttempts int
}

// NewPasscodeGenerator returns a generator checking candidates against active.
// maxAttempts <= 0 uses DefaultCodeAttempts.
func NewPasscodeGenerator(active CodeChecker, maxAttempts int) *PasscodeGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	return &PasscodeGenerator{active: active, intN: rand.Intn, maxAttempts: maxAttempts}
}

// Generate returns a code not active in scopeID, or ErrCodeSpaceExhausted.
func (g *PasscodeGenerator) Generate(scopeID uuid.UUID) (string, error) {
	for i := 0; i < g.maxAttempts; i++ {
		code := strconv.Itoa(codeMin + g.intN(codeMax-codeMin+1))
		if !g.active.Contains(scopeID, code) {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// validCode reports whether s has the shape of an issued passcode.
func validCode(s string) bool {
	if len(s) != 4 {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= codeMin && n <= codeMax
}
