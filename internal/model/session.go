package model

import "time"

// ParkingSession is the explicit "currently inside a lot" record for a
// registered user.  At most one row exists per user, enforced by a
// UNIQUE constraint on user_id, so two racing entry signals cannot
// both win.  A session is created by any successful entry operation
// and deleted by any successful exit operation, always inside the same
// transaction that advances the reservation's check-in flags.  Guests
// never have a session; their inside/outside state is derived from the
// flags on their own reservation.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – owning user; unique across open sessions.
//  LotID         – lot the user is checked into.
//  ReservationID – reservation under which the user entered.
//  EnteredAt     – when the entry was recorded.
type ParkingSession struct {
	ID            uint64    // parking_sessions.id
	UserID        uint64    // parking_sessions.user_id
	LotID         uint64    // parking_sessions.lot_id
	ReservationID uint64    // parking_sessions.reservation_id
	EnteredAt     time.Time // parking_sessions.entered_at
}
