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

func TestSessionCreateAndGet(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	entered := time.Now().UTC().Truncate(time.Second)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	s := &model.ParkingSession{UserID: 10, LotID: 1, ReservationID: 100, EnteredAt: entered}
	if err := repo.CreateTx(ctx, tx, s); err != nil {
		t.Fatalf("CreateTx: %v", err)
	}
	if s.ID == 0 {
		t.Fatal("CreateTx must populate the generated id")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := repo.GetByUser(ctx, 10)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if got.LotID != 1 || got.ReservationID != 100 || !got.EnteredAt.Equal(entered) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := repo.GetByUser(ctx, 11); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("no session: want sql.ErrNoRows, got %v", err)
	}
}

func TestSessionCreateTxSecondOpenSessionConflicts(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	testfixtures.InsertSession(t, db, 10, 1, 100)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()
	s := &model.ParkingSession{UserID: 10, LotID: 2, ReservationID: 101, EnteredAt: time.Now().UTC()}
	if err := repo.CreateTx(ctx, tx, s); !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict on second open session, got %v", err)
	}
}

func TestSessionDeleteByUserTx(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	testfixtures.InsertSession(t, db, 10, 1, 100)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.DeleteByUserTx(ctx, tx, 10); err != nil {
		t.Fatalf("DeleteByUserTx: %v", err)
	}
	// The row is gone inside this transaction already.
	if err := repo.DeleteByUserTx(ctx, tx, 10); !errors.Is(err, ErrConflict) {
		t.Fatalf("double delete: want ErrConflict, got %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := repo.GetByUser(ctx, 10); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("session must be gone, got %v", err)
	}
}

func TestUserRepoDerivesCurrentLot(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	repo := NewUserRepo(db)
	ctx := context.Background()
	testfixtures.InsertUser(t, db, 10, "driver@example.com", model.RoleDriver)

	u, err := repo.GetByID(ctx, 10)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.CurrentLotID != nil {
		t.Fatalf("want nil CurrentLotID without a session, got %d", *u.CurrentLotID)
	}

	testfixtures.InsertSession(t, db, 10, 3, 100)
	u, err = repo.GetByEmail(ctx, "  Driver@Example.COM ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.ID != 10 {
		t.Fatalf("email lookup must normalize its argument, got user %d", u.ID)
	}
	if u.CurrentLotID == nil || *u.CurrentLotID != 3 {
		t.Fatalf("want CurrentLotID=3, got %v", u.CurrentLotID)
	}
}
