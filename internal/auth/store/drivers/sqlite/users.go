package sqlite

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, enabled, created_at, updated_at`

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

const listUserRoles = `
SELECT r.name, r.permissions
FROM roles r
JOIN user_roles ur ON ur.role_id = r.id
WHERE ur.user_id = ?
ORDER BY r.name`

const usernameOrEmailTaken = `
SELECT EXISTS (SELECT 1 FROM users WHERE username = ? OR email = ?)`

const createUser = `
INSERT INTO users (id, username, email, password_hash, first_name, last_name, enabled, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const assignRole = `
INSERT INTO user_roles (user_id, role_id)
SELECT ?, id FROM roles WHERE name = ?`

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getUser(ctx, getUserByID, id)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getUser(ctx, getUserByUsername, username)
}

func (r *usersRepo) getUser(ctx context.Context, query string, arg string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	if err := r.loadRoles(ctx, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *usersRepo) loadRoles(ctx context.Context, u *domain.User) error {
	rows, err := r.db.QueryContext(ctx, listUserRoles, u.ID)
	if err != nil {
		return fmt.Errorf("list roles for user: %w", err)
	}
	defer rows.Close()

	var perms [][]string
	for rows.Next() {
		var name, permissions string
		if err := rows.Scan(&name, &permissions); err != nil {
			return err
		}
		u.Roles = append(u.Roles, name)
		perms = append(perms, splitList(permissions))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	u.Permissions = mergeSorted(perms...)
	return nil
}

func (r *usersRepo) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	var taken bool
	if err := r.db.QueryRowContext(ctx, usernameOrEmailTaken, username, email).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := nowMillis()
	_, err := r.db.ExecContext(ctx, createUser,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		boolToInt(u.Enabled),
		now,
		now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) AssignRole(ctx context.Context, userID, roleName string) error {
	res, err := r.db.ExecContext(ctx, assignRole, userID, roleName)
	if err != nil {
		return mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                    domain.User
		enabled              int64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&enabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Enabled = enabled != 0
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}
