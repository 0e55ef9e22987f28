package helper

import (
	"fmt"
	"math/rand"
)

// AccountNumber returns a display account number, "19" followed by five
// zero-padded digits. Collisions are possible and harmless.
func AccountNumber() string {
	return fmt.Sprintf("19%05d", rand.Intn(100000))
}

// CoinFlip returns true half of the time.
func CoinFlip() bool {
	return rand.Intn(2) == 1
}
