package services

import (
	"context"
	"strings"

	"dmis/internal/metrics"
	"dmis/internal/models"
	"dmis/internal/repositories"
	"dmis/internal/workflow"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransitionRequest asks for one workflow action on a needs list.
type TransitionRequest struct {
	ListID          uuid.UUID
	Action          string
	ActorID         uuid.UUID
	ExpectedVersion int
	Reason          string
	ReasonCode      string
}

// AdjustQuantityRequest overrides the quantity on one line during review.
type AdjustQuantityRequest struct {
	ListID          uuid.UUID
	LineID          uuid.UUID
	ActorID         uuid.UUID
	ExpectedVersion int
	Quantity        decimal.Decimal
	Reason          string
	ReasonCode      string
}

type NeedsListService interface {
	// CreateDraft persists a freshly planned list in DRAFT together with its
	// creation audit entry.
	CreateDraft(ctx context.Context, list *models.NeedsList, actorID uuid.UUID) error

	// Transition applies one workflow action. Nothing is written unless the
	// actor is authorized, the version matches, the move is in the state graph
	// and any required reason is present.
	Transition(ctx context.Context, req TransitionRequest) (*models.NeedsList, error)

	// AdjustQuantity records a reviewer override and returns the line and the
	// list's new version.
	AdjustQuantity(ctx context.Context, req AdjustQuantityRequest) (*models.NeedsListItem, int, error)

	Get(ctx context.Context, id uuid.UUID) (*models.NeedsList, error)
	List(ctx context.Context, filters *models.NeedsListFilters) ([]*models.NeedsList, error)
	History(ctx context.Context, id uuid.UUID, limit, offset int) ([]*models.AuditEntry, error)
}

type needsListService struct {
	repo      repositories.NeedsListRepository
	auditRepo repositories.AuditRepository
	checker   workflow.PermissionChecker
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewNeedsListService(repo repositories.NeedsListRepository, auditRepo repositories.AuditRepository, checker workflow.PermissionChecker, m *metrics.Metrics, logger *zap.Logger) NeedsListService {
	return &needsListService{
		repo:      repo,
		auditRepo: auditRepo,
		checker:   checker,
		metrics:   m,
		logger:    logger,
	}
}

func (s *needsListService) CreateDraft(ctx context.Context, list *models.NeedsList, actorID uuid.UUID) error {
	if err := workflow.AuthorizeAction(ctx, s.checker, actorID, workflow.ActionCreateDraft); err != nil {
		s.record(workflow.ActionCreateDraft, err)
		return err
	}
	status, err := workflow.Next("", workflow.ActionCreateDraft)
	if err != nil {
		return err
	}
	for _, item := range list.Items {
		if err := item.CheckGapAccounting(); err != nil {
			return errclass.ErrPlanInvariantViolation.WithMessagef("item %s: %v", item.ItemID, err)
		}
	}

	if list.ID == uuid.Nil {
		list.ID = uuid.New()
	}
	list.Status = status
	list.Version = 1
	list.CreatedBy = actorID
	list.ComputeTotals()

	entry := &models.AuditEntry{
		EntityType:  models.EntityNeedsList,
		EntityID:    list.ID,
		NeedsListID: &list.ID,
		Action:      models.AuditStatusChanged,
		ActorID:     actorID,
		OldValues:   models.JSONB{"status": nil},
		NewValues: models.JSONB{
			"status":     string(status),
			"version":    list.Version,
			"line_count": list.Totals.LineCount,
		},
	}
	if err := s.repo.Create(ctx, list, entry); err != nil {
		s.record(workflow.ActionCreateDraft, err)
		return err
	}
	s.record(workflow.ActionCreateDraft, nil)
	return nil
}

func (s *needsListService) Transition(ctx context.Context, req TransitionRequest) (*models.NeedsList, error) {
	action, err := workflow.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}
	if action == workflow.ActionCreateDraft {
		err := errclass.ErrInvalidStateTransition.WithMessage("create_draft only applies to new lists")
		s.record(action, err)
		return nil, err
	}

	if err := workflow.AuthorizeAction(ctx, s.checker, req.ActorID, action); err != nil {
		s.logger.Warn("needs list transition denied",
			zap.Stringer("needs_list_id", req.ListID),
			zap.Stringer("actor_id", req.ActorID),
			zap.String("action", string(action)),
		)
		s.record(action, err)
		return nil, err
	}

	list, err := s.repo.GetByID(ctx, req.ListID)
	if err != nil {
		s.record(action, err)
		return nil, err
	}

	guard := workflow.CanTransition(workflow.TransitionContext{
		ListID:          list.ID,
		Status:          list.Status,
		CurrentVersion:  list.Version,
		ExpectedVersion: req.ExpectedVersion,
		Action:          action,
		Reason:          req.Reason,
	})
	if !guard.Allowed {
		err := guard.Error()
		s.record(action, err)
		return nil, err
	}

	next, err := workflow.Next(list.Status, action)
	if err != nil {
		s.record(action, err)
		return nil, err
	}

	oldValues := models.JSONB{
		"status":           string(list.Status),
		"version":          list.Version,
		"escalation_level": list.EscalationLevel,
	}

	updated := *list
	updated.Status = next
	auditAction := models.AuditStatusChanged
	switch action {
	case workflow.ActionEscalate:
		updated.EscalationLevel++
		auditAction = models.AuditEscalated
	case workflow.ActionReturn:
		notes := strings.TrimSpace(req.Reason)
		updated.ReviewNotes = &notes
	}

	entry := &models.AuditEntry{
		EntityType:  models.EntityNeedsList,
		EntityID:    list.ID,
		NeedsListID: &updated.ID,
		Action:      auditAction,
		ActorID:     req.ActorID,
		ReasonCode:  optionalString(req.ReasonCode),
		Reason:      optionalString(req.Reason),
		OldValues:   oldValues,
		NewValues: models.JSONB{
			"status":           string(next),
			"version":          list.Version + 1,
			"escalation_level": updated.EscalationLevel,
		},
	}
	if err := s.repo.UpdateStatus(ctx, &updated, req.ExpectedVersion, entry); err != nil {
		s.record(action, err)
		return nil, err
	}

	s.logger.Info("needs list transitioned",
		zap.Stringer("needs_list_id", updated.ID),
		zap.String("action", string(action)),
		zap.String("from", string(list.Status)),
		zap.String("to", string(next)),
		zap.Int("version", updated.Version),
	)
	s.record(action, nil)
	return &updated, nil
}

func (s *needsListService) AdjustQuantity(ctx context.Context, req AdjustQuantityRequest) (*models.NeedsListItem, int, error) {
	if err := workflow.Authorize(ctx, s.checker, req.ActorID, workflow.ResourceNeedsList, string(workflow.ActionApprove)); err != nil {
		return nil, 0, err
	}

	list, err := s.repo.GetByID(ctx, req.ListID)
	if err != nil {
		return nil, 0, err
	}

	guard := workflow.CanAdjustQuantity(workflow.AdjustQuantityContext{
		ListID:          list.ID,
		Status:          list.Status,
		CurrentVersion:  list.Version,
		ExpectedVersion: req.ExpectedVersion,
		Quantity:        req.Quantity,
		Reason:          req.Reason,
	})
	if !guard.Allowed {
		return nil, 0, guard.Error()
	}

	item, err := s.repo.GetItem(ctx, req.ListID, req.LineID)
	if err != nil {
		return nil, 0, err
	}

	var previous interface{}
	if item.AdjustedQty != nil {
		previous = item.AdjustedQty.String()
	}
	qty := req.Quantity
	reason := strings.TrimSpace(req.Reason)
	item.AdjustedQty = &qty
	item.AdjustmentReason = &reason

	entry := &models.AuditEntry{
		EntityType:  models.EntityNeedsListItem,
		EntityID:    item.ID,
		NeedsListID: &list.ID,
		Action:      models.AuditQuantityAdjusted,
		ActorID:     req.ActorID,
		ReasonCode:  optionalString(req.ReasonCode),
		Reason:      &reason,
		OldValues: models.JSONB{
			"item_id":      item.ItemID.String(),
			"gap_qty":      item.GapQty.String(),
			"adjusted_qty": previous,
		},
		NewValues: models.JSONB{
			"item_id":      item.ItemID.String(),
			"gap_qty":      item.GapQty.String(),
			"adjusted_qty": qty.String(),
		},
	}
	if err := s.repo.AdjustItemQuantity(ctx, list, req.ExpectedVersion, item, entry); err != nil {
		return nil, 0, err
	}

	s.logger.Info("needs list line adjusted",
		zap.Stringer("needs_list_id", list.ID),
		zap.Stringer("line_id", item.ID),
		zap.String("adjusted_qty", qty.String()),
	)
	return item, list.Version, nil
}

func (s *needsListService) Get(ctx context.Context, id uuid.UUID) (*models.NeedsList, error) {
	list, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	list.Items = items
	return list, nil
}

func (s *needsListService) List(ctx context.Context, filters *models.NeedsListFilters) ([]*models.NeedsList, error) {
	if filters == nil {
		filters = &models.NeedsListFilters{}
	}
	if filters.Limit <= 0 || filters.Limit > 1000 {
		filters.Limit = 50
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return s.repo.List(ctx, filters)
}

func (s *needsListService) History(ctx context.Context, id uuid.UUID, limit, offset int) ([]*models.AuditEntry, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.auditRepo.ListByNeedsList(ctx, id, limit, offset)
}

func (s *needsListService) record(action workflow.Action, err error) {
	result := "ok"
	if err != nil {
		result = errclass.CodeOf(err)
		if result == "" {
			result = "error"
		}
	}
	s.metrics.WorkflowTransitions.WithLabelValues(string(action), result).Inc()
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
