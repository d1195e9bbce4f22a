package testfixtures

import (
	"database/sql"
	"testing"
	"time"
)

// timeLayout matches repository.TimeLayout; duplicated here so the
// fixtures do not import the package under test.
const timeLayout = "2006-01-02 15:04:05"

// FormatTime renders t the way the repositories store DATETIME values.
func FormatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// Uint64 returns a pointer to v, for nullable fixture fields.
func Uint64(v uint64) *uint64 { return &v }

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }

// ReservationFixture describes a reservations row.  Zero values mean
// "not set" for the nullable columns.
type ReservationFixture struct {
	ID               uint64
	LotID            uint64
	UserID           *uint64
	DeviceIdentifier *string
	Plate            string
	Status           string
	StartTime        time.Time
	EndTime          *time.Time
	CheckedIn        bool
	CheckedOut       bool
	QrToken          *string
	QrExpiry         *time.Time
}

// InsertLot adds a lots row with the given id and name.
func InsertLot(t *testing.T, db *sql.DB, id uint64, name string) {
	t.Helper()
	mustExec(t, db,
		`INSERT INTO lots (id, name, address, capacity, created_at) VALUES (?, ?, '', 100, ?)`,
		id, name, FormatTime(time.Now()))
}

// InsertUser adds a users row with an empty password hash.  Tests
// that exercise login compute a real bcrypt hash and use
// SetUserPassword instead of relying on a canned value.
func InsertUser(t *testing.T, db *sql.DB, id uint64, email, role string) {
	t.Helper()
	now := FormatTime(time.Now())
	mustExec(t, db,
		`INSERT INTO users (id, email, password_hash, role, is_active, created_at, updated_at)
         VALUES (?, ?, '', ?, 1, ?, ?)`,
		id, email, role, now, now)
}

// SetUserPassword stores a password hash on an existing user.
func SetUserPassword(t *testing.T, db *sql.DB, id uint64, hash string) {
	t.Helper()
	mustExec(t, db, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
}

// InsertReservation adds a reservations row from the fixture.
func InsertReservation(t *testing.T, db *sql.DB, f ReservationFixture) {
	t.Helper()
	now := FormatTime(time.Now())
	var endTime, expiry interface{}
	if f.EndTime != nil {
		endTime = FormatTime(*f.EndTime)
	}
	if f.QrExpiry != nil {
		expiry = FormatTime(*f.QrExpiry)
	}
	mustExec(t, db,
		`INSERT INTO reservations
           (id, lot_id, user_id, device_identifier, vehicle_plate, status, start_time, end_time,
            has_checked_in, has_checked_out, active_qr_token, qr_token_expiry, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.LotID, nullableUint64(f.UserID), nullableStr(f.DeviceIdentifier),
		f.Plate, f.Status, FormatTime(f.StartTime), endTime,
		boolToInt(f.CheckedIn), boolToInt(f.CheckedOut),
		nullableStr(f.QrToken), expiry, now, now)
}

// InsertSession adds an open parking session for the user.
func InsertSession(t *testing.T, db *sql.DB, userID, lotID, reservationID uint64) {
	t.Helper()
	mustExec(t, db,
		`INSERT INTO parking_sessions (user_id, lot_id, reservation_id, entered_at) VALUES (?, ?, ?, ?)`,
		userID, lotID, reservationID, FormatTime(time.Now()))
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("fixture exec failed: %v\nquery: %s", err, query)
	}
}

func nullableUint64(v *uint64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableStr(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
