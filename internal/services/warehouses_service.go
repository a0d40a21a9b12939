package services

import (
	"context"

	"dmis/internal/models"
	"dmis/internal/repositories"

	"github.com/google/uuid"
)

type WarehouseService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	ListActive(ctx context.Context) ([]*models.Warehouse, error)
}

type warehouseService struct {
	warehouseRepo repositories.WarehouseRepository
}

func NewWarehouseService(warehouseRepo repositories.WarehouseRepository) WarehouseService {
	return &warehouseService{
		warehouseRepo: warehouseRepo,
	}
}

func (s *warehouseService) GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	return s.warehouseRepo.GetByID(ctx, id)
}

func (s *warehouseService) ListActive(ctx context.Context) ([]*models.Warehouse, error) {
	return s.warehouseRepo.ListActive(ctx)
}
