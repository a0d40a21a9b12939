package services

import (
	"context"
	"io"
	"time"

	"dmis/internal/models"
	"dmis/internal/replenishment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockNeedsListRepository is a mock implementation of NeedsListRepository
type MockNeedsListRepository struct {
	mock.Mock
}

func (m *MockNeedsListRepository) Create(ctx context.Context, list *models.NeedsList, entry *models.AuditEntry) error {
	args := m.Called(ctx, list, entry)
	return args.Error(0)
}

func (m *MockNeedsListRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.NeedsList, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.NeedsList), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNeedsListRepository) GetItems(ctx context.Context, needsListID uuid.UUID) ([]*models.NeedsListItem, error) {
	args := m.Called(ctx, needsListID)
	if v := args.Get(0); v != nil {
		return v.([]*models.NeedsListItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNeedsListRepository) GetItem(ctx context.Context, needsListID, lineID uuid.UUID) (*models.NeedsListItem, error) {
	args := m.Called(ctx, needsListID, lineID)
	if v := args.Get(0); v != nil {
		return v.(*models.NeedsListItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNeedsListRepository) List(ctx context.Context, filters *models.NeedsListFilters) ([]*models.NeedsList, error) {
	args := m.Called(ctx, filters)
	if v := args.Get(0); v != nil {
		return v.([]*models.NeedsList), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNeedsListRepository) UpdateStatus(ctx context.Context, list *models.NeedsList, expectedVersion int, entry *models.AuditEntry) error {
	args := m.Called(ctx, list, expectedVersion, entry)
	return args.Error(0)
}

func (m *MockNeedsListRepository) AdjustItemQuantity(ctx context.Context, list *models.NeedsList, expectedVersion int, item *models.NeedsListItem, entry *models.AuditEntry) error {
	args := m.Called(ctx, list, expectedVersion, item, entry)
	return args.Error(0)
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByNeedsList(ctx context.Context, needsListID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, needsListID, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]*models.AuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) List(ctx context.Context, filters *models.AuditEntryFilters) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, filters)
	if v := args.Get(0); v != nil {
		return v.([]*models.AuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) ListActive(ctx context.Context) ([]*models.Event, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) UpdatePhase(ctx context.Context, eventID uuid.UUID, from, to models.EventPhase, entry *models.AuditEntry) error {
	args := m.Called(ctx, eventID, from, to, entry)
	return args.Error(0)
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Load(ctx context.Context, asOf time.Time, lookbackHours int) (*models.PlanningSnapshot, error) {
	args := m.Called(ctx, asOf, lookbackHours)
	if v := args.Get(0); v != nil {
		return v.(*models.PlanningSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockWarehouseRepository is a mock implementation of WarehouseRepository
type MockWarehouseRepository struct {
	mock.Mock
}

func (m *MockWarehouseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Warehouse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWarehouseRepository) ListActive(ctx context.Context) ([]*models.Warehouse, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*models.Warehouse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWarehouseRepository) ListSyncStatus(ctx context.Context) ([]replenishment.WarehouseSync, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]replenishment.WarehouseSync), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSyncRepository is a mock implementation of SyncRepository
type MockSyncRepository struct {
	mock.Mock
}

func (m *MockSyncRepository) Create(ctx context.Context, record *models.SyncRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSyncRepository) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, limit, offset int) ([]*models.SyncRecord, error) {
	args := m.Called(ctx, warehouseID, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]*models.SyncRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPermissionRepository is a mock implementation of PermissionRepository
type MockPermissionRepository struct {
	mock.Mock
}

func (m *MockPermissionRepository) ListNamesByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCacheService is a mock implementation of caching.CacheService
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetFreshnessSummary(ctx context.Context) (*models.FreshnessSummary, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*models.FreshnessSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCacheService) SetFreshnessSummary(ctx context.Context, summary *models.FreshnessSummary, ttl time.Duration) error {
	args := m.Called(ctx, summary, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateFreshnessSummary(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheService) MarkRefreshing(ctx context.Context, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) IsRefreshing(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) ClearRefreshing(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheService) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, bool, error) {
	args := m.Called(ctx, userID)
	var perms []string
	if v := args.Get(0); v != nil {
		perms = v.([]string)
	}
	return perms, args.Bool(1), args.Error(2)
}

func (m *MockCacheService) SetUserPermissions(ctx context.Context, userID uuid.UUID, permissions []string, ttl time.Duration) error {
	args := m.Called(ctx, userID, permissions, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateUserPermissions(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockObjectStore is a mock implementation of ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Upload(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, bucketName, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) EnsureBucketExists(ctx context.Context, bucketName string) error {
	args := m.Called(ctx, bucketName)
	return args.Error(0)
}

// MockRefresher is a mock implementation of Refresher
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) RefreshNow() error {
	args := m.Called()
	return args.Error(0)
}

// grantChecker answers permission checks from a fixed grant table.
type grantChecker struct {
	grants map[uuid.UUID]map[string]bool
	err    error
}

func newGrantChecker() *grantChecker {
	return &grantChecker{grants: make(map[uuid.UUID]map[string]bool)}
}

func (g *grantChecker) grant(actorID uuid.UUID, permissions ...string) *grantChecker {
	if g.grants[actorID] == nil {
		g.grants[actorID] = make(map[string]bool)
	}
	for _, p := range permissions {
		g.grants[actorID][p] = true
	}
	return g
}

func (g *grantChecker) HasPermission(ctx context.Context, actorID uuid.UUID, resource, action string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.grants[actorID][resource+"."+action], nil
}
