package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/parking-access-control/internal/model"
)

// SessionRepo manages the parking_sessions table: the single open
// "currently inside a lot" record per registered user.  The table
// carries a UNIQUE constraint on user_id, so the insert itself is the
// arbiter when two entry signals race on the same user — the loser's
// INSERT fails and its whole transaction rolls back, flag update
// included.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, user_id, lot_id, reservation_id, entered_at`

func scanSession(row rowScanner) (*model.ParkingSession, error) {
	var (
		s       model.ParkingSession
		entered string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.LotID, &s.ReservationID, &entered); err != nil {
		return nil, err
	}
	var err error
	if s.EnteredAt, err = parseDBTime(entered); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByUser returns the user's open session, or sql.ErrNoRows when the
// user is not inside any lot.
func (r *SessionRepo) GetByUser(ctx context.Context, userID uint64) (*model.ParkingSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE user_id = ? LIMIT 1`
	return scanSession(r.db.QueryRowContext(ctx, q, userID))
}

// GetByUserTx is GetByUser within an existing transaction, so the
// session check and the flag update observe the same snapshot.
func (r *SessionRepo) GetByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.ParkingSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE user_id = ? LIMIT 1`
	return scanSession(tx.QueryRowContext(ctx, q, userID))
}

// CreateTx opens a session for the user within the provided
// transaction.  A second open session for the same user violates the
// unique index and is reported as ErrConflict; the caller must roll
// back.  The generated ID is populated on the passed record.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.ParkingSession) error {
	const q = `INSERT INTO parking_sessions (user_id, lot_id, reservation_id, entered_at) VALUES (?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, s.UserID, s.LotID, s.ReservationID, FormatTime(s.EnteredAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// DeleteByUserTx closes the user's open session within the provided
// transaction.  ErrConflict is returned when no session row existed,
// which means a concurrent exit already closed it.
func (r *SessionRepo) DeleteByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM parking_sessions WHERE user_id = ?`, userID)
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

// isUniqueViolation detects duplicate-key errors from both engines:
// MySQL reports error 1062, SQLite mentions the UNIQUE constraint.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique")
}
