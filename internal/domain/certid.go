package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CertificateIDPrefix is the fixed prefix of every issued identifier.
const CertificateIDPrefix = "CERT"

const idSuffixLen = 9

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var certIDPattern = regexp.MustCompile(`^CERT-\d{10,16}-[0-9a-z]{9}$`)

// NewCertificateID produces a URL-safe identifier of the form
// CERT-<unix-millis>-<9-char base36>. The random suffix gives over 10^13
// combinations per millisecond bucket, so collisions are negligible at the
// expected issuance volume; callers still treat a collision as retryable rather
// than assuming uniqueness by construction.
func NewCertificateID(t time.Time) string {
	raw := make([]byte, idSuffixLen)
	_, _ = rand.Read(raw)
	var b strings.Builder
	b.Grow(len(CertificateIDPrefix) + 1 + 13 + 1 + idSuffixLen)
	b.WriteString(CertificateIDPrefix)
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	b.WriteByte('-')
	for _, v := range raw {
		b.WriteByte(base36Alphabet[int(v)%len(base36Alphabet)])
	}
	return b.String()
}

// ValidCertificateID reports whether s has the issued identifier shape. Used by
// the public verification endpoint to reject junk before touching storage.
func ValidCertificateID(s string) bool {
	return certIDPattern.MatchString(s)
}

// VerificationToken derives the scannable token for an identifier. It is a
// deterministic digest, not a cryptographic signature: anyone holding the
// identifier can recompute it, and validity is decided by the store lookup.
func VerificationToken(certificateID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(certificateID)))
	return hex.EncodeToString(sum[:])
}
