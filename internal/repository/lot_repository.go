package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/parking-access-control/internal/model"
)

// LotRepo reads the lots catalog.  Lot CRUD and geo-search are owned
// by another service; the access core only checks existence and
// resolves names for responses.
type LotRepo struct{ db *sql.DB }

func NewLotRepo(db *sql.DB) *LotRepo { return &LotRepo{db: db} }

// GetByID fetches a lot by id.  sql.ErrNoRows when absent.
func (r *LotRepo) GetByID(ctx context.Context, id uint64) (model.Lot, error) {
	var (
		l       model.Lot
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, address, capacity, created_at FROM lots WHERE id = ? LIMIT 1`,
		id).Scan(&l.ID, &l.Name, &l.Address, &l.Capacity, &created)
	if err != nil {
		return model.Lot{}, err
	}
	if l.CreatedAt, err = parseDBTime(created); err != nil {
		return model.Lot{}, err
	}
	return l, nil
}
