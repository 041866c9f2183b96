package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func HashString(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// NormalizeSpaces collapses runs of whitespace and trims the ends.
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseBool reads an optional boolean query value. Anything unrecognised is nil.
func ParseBool(s string) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		v = true
	case "false", "0", "no":
		v = false
	default:
		return nil
	}
	return &v
}
