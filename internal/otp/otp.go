package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Issuer generates 4-digit delivery codes and their bcrypt hashes. The hash is
// the only thing persisted; the plaintext code is handed out once.
type Issuer struct {
	cost int
}

func NewIssuer(cost int) *Issuer {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Issuer{cost: cost}
}

// Issue returns a fresh code drawn uniformly from [1000, 9999] together with
// its salted hash. Every call returns an unrelated pair; safe for concurrent
// use.
func (i *Issuer) Issue() (string, string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", "", fmt.Errorf("failed to draw otp: %w", err)
	}
	code := fmt.Sprintf("%04d", n.Int64()+1000)

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), i.cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash otp: %w", err)
	}
	return code, string(hashed), nil
}

// Verify reports whether candidate matches hashed. Malformed input of either
// kind yields false, never an error.
func Verify(candidate, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(candidate)) == nil
}
