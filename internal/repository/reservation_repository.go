package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-access-control/internal/model"
)

// ReservationRepo provides the access core's view of the reservations
// table: named eligibility queries with an explicit ordering and
// tie-break, and guarded flag updates.  Reservations are created by
// the booking flow and their status is owned by the payment flow;
// this repository only advances the check-in/check-out flags and the
// QR token columns.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// reservationColumns is the column list shared by every reservation
// query so scanReservation can decode all of them the same way.
const reservationColumns = `id, lot_id, user_id, device_identifier, vehicle_plate, status,
       start_time, end_time, has_checked_in, has_checked_out,
       active_qr_token, qr_token_expiry, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanReservation decodes one reservation row.  Timestamps are stored
// as DATETIME strings (see TimeLayout) and parsed here; nullable
// columns map to pointer fields on the model.
func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		res      model.Reservation
		userID   sql.NullInt64
		device   sql.NullString
		startStr string
		endStr   sql.NullString
		token    sql.NullString
		expStr   sql.NullString
		created  string
		updated  string
	)
	err := row.Scan(
		&res.ID, &res.LotID, &userID, &device, &res.VehiclePlate, &res.Status,
		&startStr, &endStr, &res.HasCheckedIn, &res.HasCheckedOut,
		&token, &expStr, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		res.UserID = &uid
	}
	if device.Valid {
		d := device.String
		res.DeviceIdentifier = &d
	}
	if res.StartTime, err = parseDBTime(startStr); err != nil {
		return nil, err
	}
	if endStr.Valid && endStr.String != "" {
		t, err := parseDBTime(endStr.String)
		if err != nil {
			return nil, err
		}
		res.EndTime = &t
	}
	if token.Valid {
		tk := token.String
		res.ActiveQrToken = &tk
	}
	if expStr.Valid && expStr.String != "" {
		t, err := parseDBTime(expStr.String)
		if err != nil {
			return nil, err
		}
		res.QrTokenExpiry = &t
	}
	if res.CreatedAt, err = parseDBTime(created); err != nil {
		return nil, err
	}
	if res.UpdatedAt, err = parseDBTime(updated); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetByID returns a reservation by primary key.  sql.ErrNoRows is
// returned when it does not exist.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservation(r.db.QueryRowContext(ctx, q, id))
}

// FindEntryCandidateTx returns the reservation a registered user may
// check in under at the given lot: status PAID or ACTIVE, not yet
// checked in, earliest start time first.  The id tie-break keeps the
// pick deterministic when several reservations share a start time.
// sql.ErrNoRows is returned when none is eligible.
func (r *ReservationRepo) FindEntryCandidateTx(ctx context.Context, tx *sql.Tx, userID, lotID uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE user_id = ? AND lot_id = ?
                 AND status IN ('PAID','ACTIVE')
                 AND has_checked_in = 0 AND has_checked_out = 0
               ORDER BY start_time ASC, id ASC
               LIMIT 1`
	return scanReservation(tx.QueryRowContext(ctx, q, userID, lotID))
}

// FindExitCandidateTx returns the reservation a registered user may
// check out under at the given lot: status PAID, checked in but not
// out, earliest start time first.
func (r *ReservationRepo) FindExitCandidateTx(ctx context.Context, tx *sql.Tx, userID, lotID uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE user_id = ? AND lot_id = ?
                 AND status = 'PAID'
                 AND has_checked_in = 1 AND has_checked_out = 0
               ORDER BY start_time ASC, id ASC
               LIMIT 1`
	return scanReservation(tx.QueryRowContext(ctx, q, userID, lotID))
}

// FindEntryCandidateByPlateTx is the barrier camera's entry lookup.
// The plate must already be normalized.  guest selects the tier: the
// registered tier (user_id set) is tried first by the coordinator,
// the guest tier (user_id null) second.  Both tiers use the same
// pre-check-in eligibility.
func (r *ReservationRepo) FindEntryCandidateByPlateTx(ctx context.Context, tx *sql.Tx, plate string, lotID uint64, guest bool) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
          FROM reservations
          WHERE vehicle_plate = ? AND lot_id = ?
            AND status IN ('PAID','ACTIVE')
            AND has_checked_in = 0 AND has_checked_out = 0
            AND user_id IS ` + tierPredicate(guest) + `
          ORDER BY start_time ASC, id ASC
          LIMIT 1`
	return scanReservation(tx.QueryRowContext(ctx, q, plate, lotID))
}

// FindExitCandidateByPlateTx is the barrier camera's exit lookup,
// mirroring FindEntryCandidateByPlateTx with the checked-in predicate.
func (r *ReservationRepo) FindExitCandidateByPlateTx(ctx context.Context, tx *sql.Tx, plate string, lotID uint64, guest bool) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
          FROM reservations
          WHERE vehicle_plate = ? AND lot_id = ?
            AND status = 'PAID'
            AND has_checked_in = 1 AND has_checked_out = 0
            AND user_id IS ` + tierPredicate(guest) + `
          ORDER BY start_time ASC, id ASC
          LIMIT 1`
	return scanReservation(tx.QueryRowContext(ctx, q, plate, lotID))
}

func tierPredicate(guest bool) string {
	if guest {
		return "NULL"
	}
	return "NOT NULL"
}

// GetByTokenTx looks up a reservation by id and its active QR token.
// A cleared or rotated token no longer matches, which is what makes
// tokens single-use: any replay sees sql.ErrNoRows here.
func (r *ReservationRepo) GetByTokenTx(ctx context.Context, tx *sql.Tx, id uint64, token string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? AND active_qr_token = ?`
	return scanReservation(tx.QueryRowContext(ctx, q, id, token))
}

// MarkCheckedInTx advances the flag pair (false,false) -> (true,false).
// The WHERE clause re-checks the prior state so a channel that lost a
// race affects zero rows and gets ErrConflict instead of rewinding or
// repeating the transition.
func (r *ReservationRepo) MarkCheckedInTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	const q = `UPDATE reservations
               SET has_checked_in = 1, has_checked_out = 0, updated_at = ?
               WHERE id = ? AND has_checked_in = 0 AND has_checked_out = 0`
	return execGuarded(ctx, tx, q, FormatTime(now), id)
}

// MarkCheckedOutTx advances (true,false) -> (true,true) under the same
// guarded-update contract as MarkCheckedInTx.
func (r *ReservationRepo) MarkCheckedOutTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	const q = `UPDATE reservations
               SET has_checked_out = 1, updated_at = ?
               WHERE id = ? AND has_checked_in = 1 AND has_checked_out = 0`
	return execGuarded(ctx, tx, q, FormatTime(now), id)
}

// ClearQrTokenTx clears both token columns, conditional on the token
// still matching.  Every scan outcome that reached the row runs this
// in its transaction, so tokens are invalidated exactly once.
func (r *ReservationRepo) ClearQrTokenTx(ctx context.Context, tx *sql.Tx, id uint64, token string, now time.Time) error {
	const q = `UPDATE reservations
               SET active_qr_token = NULL, qr_token_expiry = NULL, updated_at = ?
               WHERE id = ? AND active_qr_token = ?`
	return execGuarded(ctx, tx, q, FormatTime(now), id, token)
}

// SetQrToken installs or rotates a reservation's QR token.  Completed
// reservations cannot receive a token.
func (r *ReservationRepo) SetQrToken(ctx context.Context, id uint64, token string, expiry, now time.Time) error {
	const q = `UPDATE reservations
               SET active_qr_token = ?, qr_token_expiry = ?, updated_at = ?
               WHERE id = ? AND has_checked_out = 0`
	result, err := r.db.ExecContext(ctx, q, token, FormatTime(expiry), FormatTime(now), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// execGuarded runs a conditional UPDATE inside tx and maps "no rows
// affected" to ErrConflict.
func execGuarded(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
