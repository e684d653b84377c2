package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// Directory resolves participants: the current caller by session username,
// an arbitrary counterparty by id. Lookups never return a partial user; a
// missing row is always ErrUserNotFound.
type Directory interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// UserDirectory is a sqlx implementation of Directory over the users table.
type UserDirectory struct {
	db *sqlx.DB
}

// NewUserDirectory constructs a UserDirectory.
func NewUserDirectory(db *sqlx.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// FindByUsername resolves the user for a session name.
func (d *UserDirectory) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := d.db.GetContext(ctx, &user, `SELECT id, username, created_at FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// FindByID resolves a user by id.
func (d *UserDirectory) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := d.db.GetContext(ctx, &user, `SELECT id, username, created_at FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
