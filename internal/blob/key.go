package blob

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

func randomHexKey(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("blob: generate key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
