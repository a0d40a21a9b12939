package services

import (
	"context"
	"time"

	"dmis/internal/models"
	"dmis/internal/repositories"
	"dmis/pkg/errclass"
)

// AuditService reads the append-only audit stream. Entries are written by the
// services that perform the audited change, inside the same transaction.
type AuditService interface {
	List(ctx context.Context, filters *models.AuditEntryFilters) ([]*models.AuditEntry, error)

	// ValidateFilters performs range and page-size checks on audit filters
	ValidateFilters(filters *models.AuditEntryFilters) error
}

type auditService struct {
	auditRepo repositories.AuditRepository
}

func NewAuditService(auditRepo repositories.AuditRepository) AuditService {
	return &auditService{
		auditRepo: auditRepo,
	}
}

// List retrieves audit entries with filtering, newest first
func (s *auditService) List(ctx context.Context, filters *models.AuditEntryFilters) ([]*models.AuditEntry, error) {
	if filters == nil {
		filters = &models.AuditEntryFilters{}
	}
	if err := s.ValidateFilters(filters); err != nil {
		return nil, err
	}
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	return s.auditRepo.List(ctx, filters)
}

func (s *auditService) ValidateFilters(filters *models.AuditEntryFilters) error {
	if filters == nil {
		return nil
	}

	if filters.StartDate != nil && filters.EndDate != nil {
		if filters.StartDate.After(*filters.EndDate) {
			return errclass.ErrValidation.WithMessage("start_date cannot be after end_date")
		}
		if filters.EndDate.Sub(*filters.StartDate) > 365*24*time.Hour {
			return errclass.ErrValidation.WithMessage("date range cannot exceed 1 year")
		}
	}

	if filters.Limit > 1000 {
		return errclass.ErrValidation.WithMessage("maximum limit is 1000 records")
	}
	if filters.Offset < 0 {
		return errclass.ErrValidation.WithMessage("offset cannot be negative")
	}
	return nil
}
