package access

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// QR payloads carry the reservation ID and the single-use token joined
// by a colon, e.g. "42:9f1a...".  The scanner forwards the payload
// verbatim; direction (entry vs exit) is never encoded in it.

// BuildQrPayload serializes a reservation ID and token into the wire
// form embedded in the QR image.
func BuildQrPayload(reservationID uint64, token string) string {
	return fmt.Sprintf("%d:%s", reservationID, token)
}

// ParseQrPayload splits a scanned payload into reservation ID and
// token.  It returns ErrMalformedCode when the payload is empty, has
// no colon, has empty parts or a non-numeric reservation ID.  Tokens
// may themselves contain colons; only the first one separates.
func ParseQrPayload(data string) (uint64, string, error) {
	idPart, token, ok := strings.Cut(strings.TrimSpace(data), ":")
	if !ok || idPart == "" || token == "" {
		return 0, "", fmt.Errorf("%w: want reservationId:token", ErrMalformedCode)
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return 0, "", fmt.Errorf("%w: bad reservation id %q", ErrMalformedCode, idPart)
	}
	return id, token, nil
}

// NewQrToken generates a cryptographically secure random token for a
// reservation's QR code.  16 random bytes hex-encoded yield a 32
// character token.
func NewQrToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
