// Package address implements QNet's 41-character production address format
// and its SHA3-256 checksum. The legacy 23-character format is recognized
// only so it can be explicitly rejected (spec §9 Open Questions).
package address

import (
	"encoding/hex"
	"strings"

	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
)

const (
	// Marker separates the two hex segments of a production address.
	Marker = "eon"

	prefixHexLen    = 19
	suffixHexLen    = 15
	checksumHexLen  = 4
	productionLen   = prefixHexLen + len(Marker) + suffixHexLen + checksumHexLen // 41
	legacyPrefixLen = 8
	legacySuffixLen = 8
	legacyLen       = legacyPrefixLen + len(Marker) + legacySuffixLen + checksumHexLen // 23
)

// Format identifies which address shape a string matches, if any.
type Format int

const (
	FormatInvalid Format = iota
	FormatProduction
	FormatLegacy
)

// Generate builds a production 41-character address from 17 raw entropy
// bytes (19+15 hex chars = 34 nibbles = 17 bytes), appending the checksum.
func Generate(entropy [17]byte) string {
	hexAll := hex.EncodeToString(entropy[:])
	prefix := hexAll[:prefixHexLen]
	suffix := hexAll[prefixHexLen : prefixHexLen+suffixHexLen]
	body := prefix + Marker + suffix
	checksum := checksumOf(body)
	return body + checksum
}

// checksumOf returns the first 2 bytes of SHA3-256 over the prefix, hex
// encoded (4 hex chars), per §6.
func checksumOf(body string) string {
	sum := qcrypto.SHA3_256([]byte(body))
	return hex.EncodeToString(sum[:2])
}

// Validate classifies addr and reports whether it passes its format's
// checksum. The legacy format always fails validation — it is recognized
// only to produce a clear rejection rather than a generic parse error.
func Validate(addr string) (Format, bool) {
	switch len(addr) {
	case productionLen:
		return validateShape(addr, prefixHexLen, suffixHexLen, FormatProduction)
	case legacyLen:
		// Legacy is recognized but never accepted — explicitly refused.
		_, _ = validateShape(addr, legacyPrefixLen, legacySuffixLen, FormatLegacy)
		return FormatLegacy, false
	default:
		return FormatInvalid, false
	}
}

func validateShape(addr string, prefixLen, suffixLen int, format Format) (Format, bool) {
	prefix := addr[:prefixLen]
	marker := addr[prefixLen : prefixLen+len(Marker)]
	suffix := addr[prefixLen+len(Marker) : prefixLen+len(Marker)+suffixLen]
	checksum := addr[prefixLen+len(Marker)+suffixLen:]

	if marker != Marker {
		return format, false
	}
	if !isHex(prefix) || !isHex(suffix) || !isHex(checksum) {
		return format, false
	}

	body := prefix + Marker + suffix
	if !strings.EqualFold(checksum, checksumOf(body)) {
		return format, false
	}

	return format, format == FormatProduction
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
