package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"icarus/internal/apperror"
	"icarus/internal/models"
)

const userColumns = `id, email, username, password_hash, protein_goal, created_at`

// CreateUser inserts u and fills in its ID, goal and creation time. A taken email or
// username is reported as apperror.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = time.Now().UTC()
	if u.ProteinGoal == "" {
		u.ProteinGoal = "0"
	}

	q := s.db.Rebind(`INSERT INTO users (email, username, password_hash, protein_goal, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowxContext(ctx, q, u.Email, u.Username, u.PasswordHash, u.ProteinGoal, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("A user with that email or username already exists")
		}
		return fmt.Errorf("store: inserting user %s: %w", u.Email, err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	q := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	if err := s.db.GetContext(ctx, &u, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("store: user by email: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	q := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.Itoa(id))
		}
		return nil, fmt.Errorf("store: user %d: %w", id, err)
	}
	return &u, nil
}

func (s *Store) UpdateGoal(ctx context.Context, id int, goal string) (*models.User, error) {
	q := s.db.Rebind(`UPDATE users SET protein_goal = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, goal, id)
	if err != nil {
		return nil, fmt.Errorf("store: updating goal of user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("store: updating goal of user %d: %w", id, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("user", strconv.Itoa(id))
	}
	return s.GetUser(ctx, id)
}
