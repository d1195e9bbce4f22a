package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/parking-access-control/internal/model"
	"github.com/iliyamo/parking-access-control/internal/testfixtures"
)

// beginTx opens a transaction the test controls; it is rolled back on
// cleanup unless the test committed it first.
func beginTx(t *testing.T, db *sql.DB) *sql.Tx {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func TestFindEntryCandidateTxFiltersAndOrders(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	testfixtures.InsertLot(t, db, 1, "Central Garage")

	// Wrong status, already entered, wrong lot and wrong user must all
	// be skipped; of the eligible rows the earliest start time wins.
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 1, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPendingPayment, StartTime: now,
	})
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 2, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now, CheckedIn: true,
	})
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 3, LotID: 2, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now,
	})
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 4, LotID: 1, UserID: testfixtures.Uint64(11), Plate: "A", Status: model.StatusPaid, StartTime: now,
	})
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 5, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now.Add(2 * time.Hour),
	})
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 6, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusActive, StartTime: now.Add(time.Hour),
	})

	tx := beginTx(t, db)
	res, err := repo.FindEntryCandidateTx(ctx, tx, 10, 1)
	if err != nil {
		t.Fatalf("FindEntryCandidateTx: %v", err)
	}
	if res.ID != 6 {
		t.Fatalf("want earliest eligible reservation 6, got %d", res.ID)
	}

	if _, err := repo.FindEntryCandidateTx(ctx, tx, 99, 1); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("want sql.ErrNoRows for unknown user, got %v", err)
	}
}

func TestFindExitCandidateTxRequiresPaidAndEntered(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	testfixtures.InsertLot(t, db, 1, "Central Garage")
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 1, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now,
	})
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 2, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusActive, StartTime: now, CheckedIn: true,
	})
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 3, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now, CheckedIn: true, CheckedOut: true,
	})

	tx := beginTx(t, db)
	if _, err := repo.FindExitCandidateTx(ctx, tx, 10, 1); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("no PAID entered reservation: want sql.ErrNoRows, got %v", err)
	}
	// Release the single test connection before inserting more fixtures.
	_ = tx.Rollback()

	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 4, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now, CheckedIn: true,
	})
	tx = beginTx(t, db)
	res, err := repo.FindExitCandidateTx(ctx, tx, 10, 1)
	if err != nil {
		t.Fatalf("FindExitCandidateTx: %v", err)
	}
	if res.ID != 4 {
		t.Fatalf("want reservation 4, got %d", res.ID)
	}
}

func TestFindCandidatesByPlateTiers(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	testfixtures.InsertLot(t, db, 1, "Central Garage")
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 1, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "B123XYZ", Status: model.StatusPaid, StartTime: now,
	})
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 2, LotID: 1, DeviceIdentifier: testfixtures.Str("device-7"), Plate: "B123XYZ", Status: model.StatusPaid, StartTime: now,
	})

	tx := beginTx(t, db)
	res, err := repo.FindEntryCandidateByPlateTx(ctx, tx, "B123XYZ", 1, false)
	if err != nil {
		t.Fatalf("registered tier: %v", err)
	}
	if res.ID != 1 || res.UserID == nil {
		t.Fatalf("want registered reservation 1, got %+v", res)
	}
	res, err = repo.FindEntryCandidateByPlateTx(ctx, tx, "B123XYZ", 1, true)
	if err != nil {
		t.Fatalf("guest tier: %v", err)
	}
	if res.ID != 2 || !res.IsGuest() {
		t.Fatalf("want guest reservation 2, got %+v", res)
	}
	if _, err := repo.FindExitCandidateByPlateTx(ctx, tx, "B123XYZ", 1, true); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("guest not entered yet: want sql.ErrNoRows, got %v", err)
	}
}

func TestMarkCheckedInTxGuard(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	testfixtures.InsertLot(t, db, 1, "Central Garage")
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 1, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now,
	})

	tx := beginTx(t, db)
	if err := repo.MarkCheckedInTx(ctx, tx, 1, now); err != nil {
		t.Fatalf("first MarkCheckedInTx: %v", err)
	}
	if err := repo.MarkCheckedInTx(ctx, tx, 1, now); !errors.Is(err, ErrConflict) {
		t.Fatalf("second MarkCheckedInTx: want ErrConflict, got %v", err)
	}
}

func TestMarkCheckedOutTxGuard(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	testfixtures.InsertLot(t, db, 1, "Central Garage")
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 1, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now,
	})

	tx := beginTx(t, db)
	// Cannot leave before entering.
	if err := repo.MarkCheckedOutTx(ctx, tx, 1, now); !errors.Is(err, ErrConflict) {
		t.Fatalf("check-out before check-in: want ErrConflict, got %v", err)
	}
	if err := repo.MarkCheckedInTx(ctx, tx, 1, now); err != nil {
		t.Fatalf("MarkCheckedInTx: %v", err)
	}
	if err := repo.MarkCheckedOutTx(ctx, tx, 1, now); err != nil {
		t.Fatalf("MarkCheckedOutTx: %v", err)
	}
	if err := repo.MarkCheckedOutTx(ctx, tx, 1, now); !errors.Is(err, ErrConflict) {
		t.Fatalf("double check-out: want ErrConflict, got %v", err)
	}
}

func TestClearQrTokenTxMatchesIDAndToken(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	testfixtures.InsertLot(t, db, 1, "Central Garage")
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 1, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now,
		QrToken: testfixtures.Str("tok1"),
	})

	tx := beginTx(t, db)
	if err := repo.ClearQrTokenTx(ctx, tx, 1, "other", now); !errors.Is(err, ErrConflict) {
		t.Fatalf("wrong token: want ErrConflict, got %v", err)
	}
	if err := repo.ClearQrTokenTx(ctx, tx, 1, "tok1", now); err != nil {
		t.Fatalf("ClearQrTokenTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	res, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if res.ActiveQrToken != nil || res.QrTokenExpiry != nil {
		t.Fatalf("token fields must be cleared, got %+v", res)
	}
}

func TestSetQrTokenRejectsCompletedReservation(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	testfixtures.InsertLot(t, db, 1, "Central Garage")
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 1, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now,
	})
	testfixtures.InsertReservation(t, db, testfixtures.ReservationFixture{
		ID: 2, LotID: 1, UserID: testfixtures.Uint64(10), Plate: "A", Status: model.StatusPaid, StartTime: now,
		CheckedIn: true, CheckedOut: true,
	})

	expiry := now.Add(30 * time.Minute)
	if err := repo.SetQrToken(ctx, 1, "tok1", expiry, now); err != nil {
		t.Fatalf("SetQrToken: %v", err)
	}
	res, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if res.ActiveQrToken == nil || *res.ActiveQrToken != "tok1" {
		t.Fatalf("token not stored: %+v", res)
	}
	if res.QrTokenExpiry == nil || !res.QrTokenExpiry.Equal(expiry.Truncate(time.Second)) {
		t.Fatalf("expiry not stored at second precision: %v", res.QrTokenExpiry)
	}

	if err := repo.SetQrToken(ctx, 2, "tok2", expiry, now); !errors.Is(err, ErrConflict) {
		t.Fatalf("completed reservation: want ErrConflict, got %v", err)
	}
}
