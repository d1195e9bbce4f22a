// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// access coordinator and the HTTP handlers to distinguish between
// failure scenarios.  ErrForbidden indicates that the caller is not
// allowed to touch a resource owned by someone else, while ErrConflict
// signals that a guarded write found the row in a different state than
// expected (another channel advanced the flags first, or a unique
// constraint rejected a second open session).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as issuing a QR token for another
// user's reservation.  Handlers should translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional UPDATE or INSERT affected
// no rows because the row state changed underneath the transaction.
// The coordinator treats it as losing the race and reports the state
// error a serial execution would have seen.
var ErrConflict = errors.New("conflict")
