package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// prehashedPrefixes mark passwords that have already been hashed out-of-band,
// e.g. by a setup script, so the stored secret never has to be the cleartext.
var prehashedPrefixes = []string{"hashed:", "md5:"}

// HashPassword applies the Wyze login hash: surrounding whitespace is trimmed
// and the result is MD5-hashed three times, hex-encoded between rounds. This
// is the vendor's fixed scheme, not a choice of ours. A password carrying a
// prehashed prefix is used verbatim without the prefix.
func HashPassword(password string) string {
	encoded := strings.TrimSpace(password)
	lowered := strings.ToLower(encoded)
	for _, prefix := range prehashedPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return encoded[len(prefix):]
		}
	}
	for i := 0; i < 3; i++ {
		sum := md5.Sum([]byte(encoded))
		encoded = hex.EncodeToString(sum[:])
	}
	return encoded
}
