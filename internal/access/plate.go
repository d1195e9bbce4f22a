package access

import (
	"strings"
	"unicode"
)

// NormalizePlate canonicalizes a license plate as read by a barrier
// camera: all whitespace is stripped and letters are upper-cased, so
// "b 123 xyz" and "B123XYZ" match the same reservation.  Plates are
// stored normalized, therefore every lookup must normalize first.
func NormalizePlate(plate string) string {
	var b strings.Builder
	b.Grow(len(plate))
	for _, r := range plate {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
