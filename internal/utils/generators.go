package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateHandoffRef creates a short human-readable reference printed on
// handoff slips.
func GenerateHandoffRef() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("hnd_%d_%06d", timestamp, randomNum.Int64())
}
