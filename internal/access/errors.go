// Package access implements the access-control core of the parking
// platform: the coordinator that decides, for every arrival/departure
// signal, whether a vehicle may enter or exit a lot.
package access

import "errors"

// Typed failures returned by the coordinator.  Handlers compare with
// errors.Is and translate them into HTTP responses; callers inside the
// process can wrap them with fmt.Errorf("%w: reason") to attach detail
// without breaking the comparison.

// ErrNotFound is returned when a lot, user, reservation or token
// lookup yields nothing eligible for the requested operation.
var ErrNotFound = errors.New("not found")

// ErrInvalidState is returned when the request is well formed but
// violates a flag, status or session invariant: already inside a lot,
// wrong lot, wrong payment status for the transition, or a
// reservation that has already completed.
var ErrInvalidState = errors.New("invalid state")

// ErrMalformedCode is returned when a scanned QR payload does not
// parse into the expected "reservationId:token" shape.
var ErrMalformedCode = errors.New("malformed qr code")

// ErrCodeExpired is returned when a scanned token's expiry has
// passed.  The token-clearing side effect is committed before this
// error is reported, so a replay of the same code sees ErrNotFound.
var ErrCodeExpired = errors.New("qr code expired")
