package service

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	orderCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	orderCodeSuffix   = 6
)

// newOrderCode returns a display code such as ORD-20240315-K3Z9QA. It is not
// checked for collisions; the uuid primary key is the real identifier.
func newOrderCode(now time.Time) string {
	suffix := make([]byte, orderCodeSuffix)
	max := big.NewInt(int64(len(orderCodeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms.
			panic(err)
		}
		suffix[i] = orderCodeAlphabet[n.Int64()]
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + string(suffix)
}
