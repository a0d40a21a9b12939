package repositories

import (
	"context"
	"fmt"

	"dmis/pkg/database"

	"github.com/google/uuid"
)

type PermissionRepository interface {
	// ListNamesByUser returns every "resource.action" granted to the user
	// through any of their roles.
	ListNamesByUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type permissionRepo struct {
	db database.DB
}

func NewPermissionRepository(db database.DB) PermissionRepository {
	return &permissionRepo{db: db}
}

func (r *permissionRepo) ListNamesByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.name
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user permissions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
