// Package fingerprint derives a stable, non-reversible device identifier from
// a request's network origin and client signature. The identifier feeds
// anomaly and rate signals only; it is never an authorization factor.
package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/hkdf"
)

// Generator computes fingerprints with a key derived from the service master
// secret. Derivation through HKDF keeps the raw secret out of the hash input
// and lets other subsystems derive independent keys from the same secret.
type Generator struct {
	key []byte
}

// New derives the fingerprint key from the master secret.
func New(masterSecret string) (*Generator, error) {
	reader := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte("vidgate/device-fingerprint/v1"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive fingerprint key: %w", err)
	}
	return &Generator{key: key}, nil
}

// Fingerprint returns a 64-char hex identifier for the (origin, signature)
// pair. The client signature is normalized to browser name, major version and
// OS before hashing, so routine minor browser updates keep the fingerprint
// stable while a different browser or machine shifts it.
//
// The keyed hash is one-way: neither the raw IP nor the user agent can be
// recovered from the output.
func (g *Generator) Fingerprint(networkOrigin, clientSignature string) string {
	normalized := normalizeSignature(clientSignature)

	mac := hmac.New(sha256.New, g.key)
	mac.Write([]byte(networkOrigin))
	mac.Write([]byte{0})
	mac.Write([]byte(normalized))
	return hex.EncodeToString(mac.Sum(nil))
}

// normalizeSignature reduces a user-agent string to browser name, major
// version and OS.
func normalizeSignature(clientSignature string) string {
	if clientSignature == "" {
		return "unknown"
	}

	ua := useragent.New(clientSignature)
	name, version := ua.Browser()
	major := version
	if idx := strings.IndexByte(version, '.'); idx >= 0 {
		major = version[:idx]
	}

	parts := []string{name, major, ua.OS()}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "unknown"
	}
	return strings.ToLower(strings.Join(kept, "|"))
}

// DisplayName renders a human-readable label ("Chrome on Mac OS X") for audit
// trails and admin views. Falls back to "Unknown Device" on empty input.
func DisplayName(clientSignature string) string {
	if clientSignature == "" {
		return "Unknown Device"
	}
	ua := useragent.New(clientSignature)
	name, _ := ua.Browser()
	os := ua.OS()
	switch {
	case name != "" && os != "":
		return fmt.Sprintf("%s on %s", name, os)
	case name != "":
		return name
	case os != "":
		return fmt.Sprintf("Browser on %s", os)
	default:
		return strings.TrimSpace(clientSignature)
	}
}
