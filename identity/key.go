// Package identity derives stable cache keys for feed operations.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var multiSpaceRegex = regexp.MustCompile(`\s+`)

// Key hashes an operation, the provider account and its parameters. Params are
// JSON encoded, so struct field order and sorted map keys make equal inputs
// produce equal keys.
func Key(op, providerID string, params any) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%#v", params))
	}
	input := fmt.Sprintf("%s|%s|%s", op, strings.ToLower(providerID), encoded)
	hash := sha256.Sum256([]byte(input))
	return op + ":" + hex.EncodeToString(hash[:16])
}

// NormalizeReference canonicalizes a listing reference for lookups
func NormalizeReference(ref string) string {
	ref = multiSpaceRegex.ReplaceAllString(strings.TrimSpace(ref), "")
	return strings.ToUpper(ref)
}
