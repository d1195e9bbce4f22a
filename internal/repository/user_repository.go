package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/parking-access-control/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// userQuery joins the open parking session so User.CurrentLotID is
// populated in the same round trip.
const userQuery = `SELECT u.id, u.email, u.password_hash, u.role, u.is_active,
                          ps.lot_id, u.created_at, u.updated_at
                   FROM users u
                   LEFT JOIN parking_sessions ps ON ps.user_id = u.id
                   WHERE %s LIMIT 1`

func (r *UserRepo) scanUser(row rowScanner) (model.User, error) {
	var (
		u       model.User
		lotID   sql.NullInt64
		created string
		updated string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &lotID, &created, &updated)
	if err != nil {
		return model.User{}, err
	}
	if lotID.Valid {
		l := uint64(lotID.Int64)
		u.CurrentLotID = &l
	}
	if u.CreatedAt, err = parseDBTime(created); err != nil {
		return model.User{}, err
	}
	if u.UpdatedAt, err = parseDBTime(updated); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	q := strings.Replace(userQuery, "%s", "u.id = ?", 1)
	return r.scanUser(r.DB.QueryRowContext(ctx, q, id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	q := strings.Replace(userQuery, "%s", "u.email = ?", 1)
	return r.scanUser(r.DB.QueryRowContext(ctx, q, email))
}
