package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/parking-access-control/internal/model"
	"github.com/iliyamo/parking-access-control/internal/queue"
	"github.com/iliyamo/parking-access-control/internal/repository"
)

// PublishFunc delivers an access event to the message broker.  The
// coordinator calls it after the transaction commits and ignores its
// error beyond logging: the audit stream must never block or fail a
// gate decision.
type PublishFunc func(ctx context.Context, event queue.AccessEvent) error

// Coordinator is the access-control core.  It exposes one operation
// per signal channel (GPS check-in/out, barrier entry/exit, QR scan)
// and runs each as a single transaction so the eligibility read and
// the flag/session write are atomic against other channels racing on
// the same reservation or user.  Serializability comes from guarded
// writes rather than row locks: flag advances are conditional UPDATEs
// and the open-session row is unique per user, so a losing channel
// affects zero rows (or violates the unique index) and its
// transaction rolls back.
type Coordinator struct {
	db           *sql.DB
	reservations *repository.ReservationRepo
	sessions     *repository.SessionRepo
	lots         *repository.LotRepo
	publish      PublishFunc
	now          func() time.Time
}

// NewCoordinator constructs a Coordinator.  publish may be nil to
// disable audit events (tests do this).
func NewCoordinator(db *sql.DB, reservations *repository.ReservationRepo, sessions *repository.SessionRepo, lots *repository.LotRepo, publish PublishFunc) *Coordinator {
	if db == nil || reservations == nil || sessions == nil || lots == nil {
		panic("nil dependency passed to NewCoordinator")
	}
	return &Coordinator{
		db:           db,
		reservations: reservations,
		sessions:     sessions,
		lots:         lots,
		publish:      publish,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GpsCheckIn records a geofence arrival for a registered user.  The
// lot must exist, the user must not already be inside any lot, and an
// eligible pre-check-in reservation (PAID or ACTIVE, earliest start
// time) must exist for the user at that lot.
func (c *Coordinator) GpsCheckIn(ctx context.Context, userID, lotID uint64) (*model.Reservation, error) {
	if err := c.requireLot(ctx, lotID); err != nil {
		return nil, err
	}
	var res *model.Reservation
	err := c.runTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireNoSessionTx(ctx, tx, userID, lotID); err != nil {
			return err
		}
		found, err := c.reservations.FindEntryCandidateTx(ctx, tx, userID, lotID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: no eligible reservation for check-in", ErrNotFound)
			}
			return err
		}
		if err := c.checkInTx(ctx, tx, found); err != nil {
			return err
		}
		res = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.emit(ctx, res, queue.ChannelGps, queue.DirectionEntry)
	return res, nil
}

// GpsCheckOut records a geofence departure.  The user must be inside
// exactly this lot and hold a PAID reservation that is checked in but
// not out.
func (c *Coordinator) GpsCheckOut(ctx context.Context, userID, lotID uint64) (*model.Reservation, error) {
	var res *model.Reservation
	err := c.runTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireSessionAtTx(ctx, tx, userID, lotID); err != nil {
			return err
		}
		found, err := c.reservations.FindExitCandidateTx(ctx, tx, userID, lotID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: no eligible reservation for check-out", ErrNotFound)
			}
			return err
		}
		if err := c.checkOutTx(ctx, tx, found); err != nil {
			return err
		}
		res = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.emit(ctx, res, queue.ChannelGps, queue.DirectionExit)
	return res, nil
}

// BarrierVerifyEntry decides whether the barrier may open for an
// arriving vehicle identified by its plate.  The registered tier is
// tried first; a conflict on the owner's session rejects rather than
// falling through to the guest tier.  Guests get the flag update only,
// they have no session.
func (c *Coordinator) BarrierVerifyEntry(ctx context.Context, plateNumber string, lotID uint64) (*model.Reservation, error) {
	plate := NormalizePlate(plateNumber)
	if plate == "" {
		return nil, fmt.Errorf("%w: empty plate", ErrNotFound)
	}
	if err := c.requireLot(ctx, lotID); err != nil {
		return nil, err
	}
	var res *model.Reservation
	err := c.runTx(ctx, func(tx *sql.Tx) error {
		found, err := c.reservations.FindEntryCandidateByPlateTx(ctx, tx, plate, lotID, false)
		switch {
		case err == nil:
			if err := c.requireNoSessionTx(ctx, tx, *found.UserID, lotID); err != nil {
				return err
			}
		case errors.Is(err, sql.ErrNoRows):
			found, err = c.reservations.FindEntryCandidateByPlateTx(ctx, tx, plate, lotID, true)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: no eligible reservation for plate %s", ErrNotFound, plate)
			}
			if err != nil {
				return err
			}
		default:
			return err
		}
		if err := c.checkInTx(ctx, tx, found); err != nil {
			return err
		}
		res = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.emit(ctx, res, queue.ChannelBarrier, queue.DirectionEntry)
	return res, nil
}

// BarrierVerifyExit mirrors BarrierVerifyEntry for a departing
// vehicle: registered tier first (session must point at this lot),
// then the guest tier.
func (c *Coordinator) BarrierVerifyExit(ctx context.Context, plateNumber string, lotID uint64) (*model.Reservation, error) {
	plate := NormalizePlate(plateNumber)
	if plate == "" {
		return nil, fmt.Errorf("%w: empty plate", ErrNotFound)
	}
	if err := c.requireLot(ctx, lotID); err != nil {
		return nil, err
	}
	var res *model.Reservation
	err := c.runTx(ctx, func(tx *sql.Tx) error {
		found, err := c.reservations.FindExitCandidateByPlateTx(ctx, tx, plate, lotID, false)
		switch {
		case err == nil:
			if err := c.requireSessionAtTx(ctx, tx, *found.UserID, lotID); err != nil {
				return err
			}
		case errors.Is(err, sql.ErrNoRows):
			found, err = c.reservations.FindExitCandidateByPlateTx(ctx, tx, plate, lotID, true)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: no eligible reservation for plate %s", ErrNotFound, plate)
			}
			if err != nil {
				return err
			}
		default:
			return err
		}
		if err := c.checkOutTx(ctx, tx, found); err != nil {
			return err
		}
		res = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.emit(ctx, res, queue.ChannelBarrier, queue.DirectionExit)
	return res, nil
}

// HandleQrScan validates a scanned payload and infers direction from
// the reservation's current flags: not checked in means entry, checked
// in but not out means exit, both set is rejected.  Tokens are single
// use: every scan that reached the reservation row clears the token,
// and on the rejected outcomes (expiry, state violations) the clear is
// committed before the failure is reported, so a replay of the same
// code sees ErrNotFound.  It returns the reservation and the
// direction taken.
func (c *Coordinator) HandleQrScan(ctx context.Context, qrCodeData string) (*model.Reservation, string, error) {
	id, token, err := ParseQrPayload(qrCodeData)
	if err != nil {
		return nil, "", err
	}
	var (
		res       *model.Reservation
		direction string
		scanErr   error
	)
	err = c.runTx(ctx, func(tx *sql.Tx) error {
		found, err := c.reservations.GetByTokenTx(ctx, tx, id, token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: unknown reservation or token", ErrNotFound)
			}
			return err
		}
		now := c.now()
		// reject burns the token and commits, stashing the failure to
		// surface after the transaction: the scan is refused but the
		// code must not be replayable.
		reject := func(failure error) error {
			if err := c.reservations.ClearQrTokenTx(ctx, tx, id, token, now); err != nil {
				return err
			}
			scanErr = failure
			return nil
		}
		if found.QrTokenExpiry != nil && found.QrTokenExpiry.Before(now) {
			return reject(fmt.Errorf("%w: reservation %d", ErrCodeExpired, id))
		}
		switch {
		case !found.HasCheckedIn:
			direction = queue.DirectionEntry
			if found.Status != model.StatusPaid && found.Status != model.StatusActive {
				return reject(fmt.Errorf("%w: status %s not eligible for entry", ErrInvalidState, found.Status))
			}
			if found.UserID != nil {
				if err := c.requireNoSessionTx(ctx, tx, *found.UserID, found.LotID); err != nil {
					if errors.Is(err, ErrInvalidState) {
						return reject(err)
					}
					return err
				}
			}
			if err := c.checkInTx(ctx, tx, found); err != nil {
				return err
			}
		case !found.HasCheckedOut:
			direction = queue.DirectionExit
			if found.Status != model.StatusPaid {
				return reject(fmt.Errorf("%w: status %s not eligible for exit", ErrInvalidState, found.Status))
			}
			if found.UserID != nil {
				if err := c.requireSessionAtTx(ctx, tx, *found.UserID, found.LotID); err != nil {
					if errors.Is(err, ErrInvalidState) {
						return reject(err)
					}
					return err
				}
			}
			if err := c.checkOutTx(ctx, tx, found); err != nil {
				return err
			}
		default:
			return reject(fmt.Errorf("%w: reservation already completed", ErrInvalidState))
		}
		if err := c.reservations.ClearQrTokenTx(ctx, tx, id, token, now); err != nil {
			return err
		}
		found.ActiveQrToken = nil
		found.QrTokenExpiry = nil
		res = found
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	if scanErr != nil {
		return nil, "", scanErr
	}
	c.emit(ctx, res, queue.ChannelQr, direction)
	return res, direction, nil
}

// IssueQrToken generates and installs a fresh single-use token on the
// caller's reservation, replacing any previous one.  The reservation
// must belong to userID, be payment-eligible and not completed.
func (c *Coordinator) IssueQrToken(ctx context.Context, reservationID, userID uint64, ttl time.Duration) (string, time.Time, error) {
	res, err := c.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, fmt.Errorf("%w: reservation %d", ErrNotFound, reservationID)
		}
		return "", time.Time{}, err
	}
	if res.UserID == nil || *res.UserID != userID {
		return "", time.Time{}, repository.ErrForbidden
	}
	if res.Status != model.StatusPaid && res.Status != model.StatusActive {
		return "", time.Time{}, fmt.Errorf("%w: status %s not eligible for a qr token", ErrInvalidState, res.Status)
	}
	token, err := NewQrToken()
	if err != nil {
		return "", time.Time{}, err
	}
	now := c.now()
	expiry := now.Add(ttl)
	if err := c.reservations.SetQrToken(ctx, reservationID, token, expiry, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return "", time.Time{}, fmt.Errorf("%w: reservation already completed", ErrInvalidState)
		}
		return "", time.Time{}, err
	}
	return BuildQrPayload(reservationID, token), expiry, nil
}

// requireLot maps a missing lot to ErrNotFound.
func (c *Coordinator) requireLot(ctx context.Context, lotID uint64) error {
	if _, err := c.lots.GetByID(ctx, lotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: lot %d", ErrNotFound, lotID)
		}
		return err
	}
	return nil
}

// requireNoSessionTx rejects an entry when the user already has an
// open session, distinguishing "this lot" from "a different lot" in
// the message.
func (c *Coordinator) requireNoSessionTx(ctx context.Context, tx *sql.Tx, userID, lotID uint64) error {
	s, err := c.sessions.GetByUserTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if s.LotID == lotID {
		return fmt.Errorf("%w: already marked inside this lot", ErrInvalidState)
	}
	return fmt.Errorf("%w: already inside a different lot", ErrInvalidState)
}

// requireSessionAtTx rejects an exit when the user has no open session
// or is inside another lot.
func (c *Coordinator) requireSessionAtTx(ctx context.Context, tx *sql.Tx, userID, lotID uint64) error {
	s, err := c.sessions.GetByUserTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: not inside any lot", ErrInvalidState)
		}
		return err
	}
	if s.LotID != lotID {
		return fmt.Errorf("%w: inside a different lot", ErrInvalidState)
	}
	return nil
}

// checkInTx advances the reservation to checked-in and, for registered
// users, opens the session row in the same transaction.  A guarded
// write losing its race surfaces as the state error a serial run would
// have produced.
func (c *Coordinator) checkInTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	now := c.now()
	if err := c.reservations.MarkCheckedInTx(ctx, tx, res.ID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%w: reservation was checked in by another channel", ErrInvalidState)
		}
		return err
	}
	if res.UserID != nil {
		s := &model.ParkingSession{
			UserID:        *res.UserID,
			LotID:         res.LotID,
			ReservationID: res.ID,
			EnteredAt:     now,
		}
		if err := c.sessions.CreateTx(ctx, tx, s); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: already inside a lot", ErrInvalidState)
			}
			return err
		}
	}
	res.HasCheckedIn = true
	res.HasCheckedOut = false
	res.UpdatedAt = now
	return nil
}

// checkOutTx advances the reservation to checked-out and closes the
// session for registered users.
func (c *Coordinator) checkOutTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	now := c.now()
	if err := c.reservations.MarkCheckedOutTx(ctx, tx, res.ID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%w: reservation was checked out by another channel", ErrInvalidState)
		}
		return err
	}
	if res.UserID != nil {
		if err := c.sessions.DeleteByUserTx(ctx, tx, *res.UserID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: no open session to close", ErrInvalidState)
			}
			return err
		}
	}
	res.HasCheckedOut = true
	res.UpdatedAt = now
	return nil
}

// runTx executes fn inside a transaction, rolling back unless fn
// returns nil and the commit succeeds.
func (c *Coordinator) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// emit publishes the audit event for a committed operation.  Publish
// failures are logged and swallowed; the gate decision already stands.
func (c *Coordinator) emit(ctx context.Context, res *model.Reservation, channel, direction string) {
	if c.publish == nil {
		return
	}
	ev := queue.AccessEvent{
		EventID:       uuid.NewString(),
		ReservationID: res.ID,
		LotID:         res.LotID,
		VehiclePlate:  res.VehiclePlate,
		Channel:       channel,
		Direction:     direction,
		OccurredAt:    c.now().Format(time.RFC3339),
	}
	if res.UserID != nil {
		ev.UserID = *res.UserID
	}
	if err := c.publish(ctx, ev); err != nil {
		log.Printf("access: publish %s %s event for reservation %d: %v", channel, direction, res.ID, err)
	}
}
