package model

import "time"

// Reservation status values.  The booking and payment flows own the
// transitions between these; the access core only reads them to decide
// whether a vehicle may pass.
const (
	StatusPendingPayment = "PENDING_PAYMENT"
	StatusPaid           = "PAID"
	StatusActive         = "ACTIVE"
	StatusPaymentFailed  = "PAYMENT_FAILED"
	StatusCancelled      = "CANCELLED"
)

// Reservation records a booking of a parking spot in a lot.  A
// reservation either belongs to a registered user (UserID set) or to a
// guest, in which case the vehicle is identified by device identifier
// and license plate only.  The check-in/check-out flags are the single
// source of truth for whether the vehicle is inside the lot; they only
// ever move forward: (false,false) -> (true,false) -> (true,true).
//
// Fields:
//  ID               – primary key identifier.
//  LotID            – lot the spot belongs to.
//  UserID           – registered owner, nil for guest reservations.
//  DeviceIdentifier – guest device identifier, nil for registered users.
//  VehiclePlate     – normalized license plate of the vehicle.
//  Status           – payment/lifecycle status (see constants above).
//  StartTime        – start of the reserved window.
//  EndTime          – optional end of the reserved window.
//  HasCheckedIn     – vehicle has entered the lot under this reservation.
//  HasCheckedOut    – vehicle has left the lot under this reservation.
//  ActiveQrToken    – single-use token for QR gate access, nil when unset.
//  QrTokenExpiry    – expiry of the active token, nil when unset.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Reservation struct {
	ID               uint64     // reservations.id
	LotID            uint64     // reservations.lot_id
	UserID           *uint64    // reservations.user_id (nullable)
	DeviceIdentifier *string    // reservations.device_identifier (nullable)
	VehiclePlate     string     // reservations.vehicle_plate
	Status           string     // reservations.status
	StartTime        time.Time  // reservations.start_time
	EndTime          *time.Time // reservations.end_time (nullable)
	HasCheckedIn     bool       // reservations.has_checked_in
	HasCheckedOut    bool       // reservations.has_checked_out
	ActiveQrToken    *string    // reservations.active_qr_token (nullable)
	QrTokenExpiry    *time.Time // reservations.qr_token_expiry (nullable)
	CreatedAt        time.Time  // reservations.created_at
	UpdatedAt        time.Time  // reservations.updated_at
}

// IsGuest reports whether the reservation has no registered owner.
func (r *Reservation) IsGuest() bool { return r.UserID == nil }
