package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const passwordCost = 10

const userColumns = `id, email, password, is_admin, name, avatar, title, created_at`

// NewUser carries the fields needed to create an account
type NewUser struct {
	Email    string
	Password string
	IsAdmin  bool
	Name     *string
	Avatar   *string
	Title    *string
}

// CreateUser hashes the password and inserts the user
func (db *DB) CreateUser(ctx context.Context, u NewUser) (int64, error) {
	hash, err := HashPassword(u.Password)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.pool.QueryRow(ctx, `
		INSERT INTO users (email, password, is_admin, name, avatar, title)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, u.Email, hash, u.IsAdmin, u.Name, u.Avatar, u.Title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail retrieves a user, or nil
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1`, email)
}

// GetUserByID retrieves a user, or nil
func (db *DB) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, id)
}

// GetAllUsers lists users, newest first
func (db *DB) GetAllUsers(ctx context.Context) ([]*User, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[User])
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}
	return users, nil
}

// UpdateUser overwrites the profile fields and admin flag
func (db *DB) UpdateUser(ctx context.Context, u *User) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE users SET email = $1, name = $2, avatar = $3, title = $4, is_admin = $5
		WHERE id = $6
	`, u.Email, u.Name, u.Avatar, u.Title, u.IsAdmin, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteUser removes a user
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// UpdatePassword stores a new bcrypt hash for the user
func (db *DB) UpdatePassword(ctx context.Context, id int64, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := db.pool.Exec(ctx, `UPDATE users SET password = $1 WHERE id = $2`, hash, id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// HashPassword returns the bcrypt hash stored at rest
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a candidate against the user's stored hash
func VerifyPassword(u *User, candidate string) bool {
	if u == nil || u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate)) == nil
}

func (db *DB) queryUser(ctx context.Context, query string, arg any) (*User, error) {
	rows, err := db.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[User])
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}
