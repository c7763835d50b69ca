package load

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Fingerprint returns a short stable hash of the builder declaration. The
// directory and source position are not part of the hash.
func (b *Builder) Fingerprint() (string, error) {
	data, err := msgpack.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("stepgen: encoding builder %s: %w", b.Name, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}
