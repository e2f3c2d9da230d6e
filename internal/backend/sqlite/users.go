package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/eventsphere/eventsphere/internal/backend"
)

type userRow struct {
	ID           int64         `db:"id"`
	Username     string        `db:"username"`
	Email        string        `db:"email"`
	PasswordHash string        `db:"password_hash"`
	Role         string        `db:"role"`
	CreatedAt    int64         `db:"created_at"`
	UpdatedAt    sql.NullInt64 `db:"updated_at"`
}

func (r userRow) toUser() backend.User {
	user := backend.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         backend.Role(r.Role),
		CreatedAt:    fromMillis(r.CreatedAt),
	}
	if r.UpdatedAt.Valid {
		updated := fromMillis(r.UpdatedAt.Int64)
		user.UpdatedAt = &updated
	}
	return user
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

// CreateUser inserts a user and returns it with its id.
func (s *Store) CreateUser(ctx context.Context, user backend.User) (backend.User, error) {
	var row userRow
	err := get(ctx, s.sqlDB, &row, psql.Insert("users").
		Columns("username", "email", "password_hash", "role", "created_at").
		Values(user.Username, user.Email, user.PasswordHash, string(user.Role), toMillis(user.CreatedAt)).
		Suffix("RETURNING "+joinColumns(userColumns)))
	if isUniqueViolation(err) {
		return backend.User{}, fmt.Errorf("user %s: %w", user.Username, backend.ErrAlreadyExists)
	}
	if err != nil {
		return backend.User{}, fmt.Errorf("insert user: %w", err)
	}
	return row.toUser(), nil
}

// GetUser returns one user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (backend.User, error) {
	var row userRow
	err := get(ctx, s.sqlDB, &row, psql.Select(userColumns...).From("users").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return backend.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return row.toUser(), nil
}

// GetUserByUsername returns one user by exact username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (backend.User, error) {
	var row userRow
	err := get(ctx, s.sqlDB, &row, psql.Select(userColumns...).From("users").Where(squirrel.Eq{"username": username}))
	if err != nil {
		return backend.User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	return row.toUser(), nil
}

// UpdateUser replaces the stored fields of user.ID.
func (s *Store) UpdateUser(ctx context.Context, user backend.User) (backend.User, error) {
	var row userRow
	err := get(ctx, s.sqlDB, &row, psql.Update("users").
		SetMap(map[string]any{
			"username":      user.Username,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"role":          string(user.Role),
			"updated_at":    nullMillis(user.UpdatedAt),
		}).
		Where(squirrel.Eq{"id": user.ID}).
		Suffix("RETURNING "+joinColumns(userColumns)))
	if isUniqueViolation(err) {
		return backend.User{}, fmt.Errorf("user %s: %w", user.Username, backend.ErrAlreadyExists)
	}
	if err != nil {
		return backend.User{}, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return row.toUser(), nil
}

// DeleteUser removes a user and returns the removed row.
func (s *Store) DeleteUser(ctx context.Context, id int64) (backend.User, error) {
	var row userRow
	err := get(ctx, s.sqlDB, &row, psql.Delete("users").
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING "+joinColumns(userColumns)))
	if err != nil {
		return backend.User{}, fmt.Errorf("delete user %d: %w", id, err)
	}
	return row.toUser(), nil
}
