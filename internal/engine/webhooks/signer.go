package webhooks

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
)

// Sign computes the keyed digest of content under secret, hex encoded. The
// algorithm name is echoed into the signature header so receivers know which
// digest to verify with.
func Sign(secret string, content []byte, algorithm string) (string, error) {
	var newHash func() hash.Hash
	switch algorithm {
	case "sha1":
		newHash = sha1.New
	case "sha256":
		newHash = sha256.New
	case "sha512":
		newHash = sha512.New
	default:
		return "", fmt.Errorf("unsupported signature algorithm %q", algorithm)
	}

	h := hmac.New(newHash, []byte(secret))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil)), nil
}
