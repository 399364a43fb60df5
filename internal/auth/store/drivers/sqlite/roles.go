package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

const getRoleByName = `SELECT id, name, permissions, created_at, updated_at FROM roles WHERE name = ?`

type rolesRepo struct {
	db dbtx
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, getRoleByName, name))
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func scanRole(row rowScanner) (domain.Role, error) {
	var (
		role                 domain.Role
		permissions          string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&role.ID, &role.Name, &permissions, &createdAt, &updatedAt); err != nil {
		return domain.Role{}, err
	}
	role.Permissions = splitList(permissions)
	role.CreatedAt = fromMillis(createdAt)
	role.UpdatedAt = fromMillis(updatedAt)
	return role, nil
}
