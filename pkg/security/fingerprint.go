package security

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// FingerprintPrefix marks voter identities derived from browser signals.
const FingerprintPrefix = "fp_"

const fingerprintHexLen = 32

var fingerprintRe = regexp.MustCompile(`^fp_[0-9a-z]{8,64}$`)

// BrowserSignals are the client-observable values hashed into an anonymous voter
// identity. The result is a best-effort anti-abuse signal, not an authentication factor.
type BrowserSignals struct {
	UserAgent        string `json:"userAgent"`
	Language         string `json:"language"`
	Platform         string `json:"platform"`
	ScreenResolution string `json:"screenResolution"`
	Timezone         string `json:"timezone"`
	CanvasHash       string `json:"canvasHash"`
}

// IsZero reports whether no signal was provided.
func (s BrowserSignals) IsZero() bool {
	return s == BrowserSignals{}
}

// Fingerprint derives the stable fp_ identity for the given signals.
func Fingerprint(s BrowserSignals) string {
	joined := strings.Join([]string{
		strings.TrimSpace(s.UserAgent),
		strings.TrimSpace(s.Language),
		strings.TrimSpace(s.Platform),
		strings.TrimSpace(s.ScreenResolution),
		strings.TrimSpace(s.Timezone),
		strings.TrimSpace(s.CanvasHash),
	}, "|")
	sum := blake2b.Sum256([]byte(joined))
	return FingerprintPrefix + hex.EncodeToString(sum[:])[:fingerprintHexLen]
}

// ParseFingerprint validates a fingerprint computed by a client.
func ParseFingerprint(raw string) (string, error) {
	fp := strings.ToLower(strings.TrimSpace(raw))
	if !fingerprintRe.MatchString(fp) {
		return "", fmt.Errorf("invalid fingerprint %q", raw)
	}
	return fp, nil
}

// HashEmail returns a short unkeyed digest of a normalized email for logs
// and rate-limit keys.
func HashEmail(email string) string {
	sum := blake2b.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:16])
}
