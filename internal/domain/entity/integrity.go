package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// IntegrityHash computes the RIHC checksum stored alongside key records:
// SHA-256 over the pipe-joined canonical field string. The join order is
// part of the persisted format and must not change across versions.
func IntegrityHash(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
