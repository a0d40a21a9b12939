package services

import (
	"context"
	"time"

	"dmis/internal/caching"
	"dmis/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RBACService answers permission questions from the role tables. It
// satisfies workflow.PermissionChecker.
type RBACService interface {
	HasPermission(ctx context.Context, actorID uuid.UUID, resource, action string) (bool, error)
	UserHasPermission(ctx context.Context, userID uuid.UUID, permissionName string) (bool, error)
	GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type rbacService struct {
	permissionRepo repositories.PermissionRepository
	cache          caching.CacheService
	ttl            time.Duration
	logger         *zap.Logger
}

// NewRBACService builds the checker. cache may be nil, in which case every
// lookup goes to the database.
func NewRBACService(permissionRepo repositories.PermissionRepository, cache caching.CacheService, ttl time.Duration, logger *zap.Logger) RBACService {
	return &rbacService{
		permissionRepo: permissionRepo,
		cache:          cache,
		ttl:            ttl,
		logger:         logger,
	}
}

func (s *rbacService) HasPermission(ctx context.Context, actorID uuid.UUID, resource, action string) (bool, error) {
	return s.UserHasPermission(ctx, actorID, resource+"."+action)
}

func (s *rbacService) UserHasPermission(ctx context.Context, userID uuid.UUID, permissionName string) (bool, error) {
	perms, err := s.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == permissionName {
			return true, nil
		}
	}
	return false, nil
}

func (s *rbacService) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if s.cache != nil && s.ttl > 0 {
		perms, ok, err := s.cache.GetUserPermissions(ctx, userID)
		if err != nil {
			s.logger.Warn("permission cache read failed", zap.Stringer("user_id", userID), zap.Error(err))
		} else if ok {
			return perms, nil
		}
	}

	perms, err := s.permissionRepo.ListNamesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetUserPermissions(ctx, userID, perms, s.ttl); err != nil {
			s.logger.Warn("permission cache write failed", zap.Stringer("user_id", userID), zap.Error(err))
		}
	}
	return perms, nil
}
