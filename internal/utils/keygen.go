package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// RandomHex returns n random bytes as lowercase hex.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateDefaultCode builds a placeholder identifier: prefix-<unixmillis>-<rand>.
// Example: SKU-1760601600000-a1b2
func GenerateDefaultCode(prefix string, now time.Time) (string, error) {
	suffix, err := RandomHex(2)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix), nil
}
