package model

import "time"

// Application roles.  DRIVER is a registered end user of the parking
// app.  OPERATOR is lot staff.  DEVICE is a gate-mounted appliance
// (barrier camera, QR scanner) with its own credentials.
const (
	RoleDriver   = "DRIVER"
	RoleOperator = "OPERATOR"
	RoleDevice   = "DEVICE"
)

// User represents a registered account as stored in the `users` table.
// Account management lives in another service; this core reads users
// for authentication and to answer "which lot is this user inside".
// CurrentLotID is not a column: it is derived at read time from the
// user's open parking session, if any.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – DRIVER, OPERATOR or DEVICE.
//  IsActive     – whether the account is active.
//  CurrentLotID – lot the user is presently checked into, nil if none.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CurrentLotID *uint64   // derived from parking_sessions.lot_id
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
