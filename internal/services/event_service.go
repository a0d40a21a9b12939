package services

import (
	"context"

	"dmis/internal/models"
	"dmis/internal/repositories"
	"dmis/internal/workflow"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Permission gating phase changes
const (
	ResourceEvent         = "event"
	ActionTransitionPhase = "transition_phase"
)

type EventService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListActive(ctx context.Context) ([]*models.Event, error)

	// TransitionPhase moves an event to another phase and records the change
	// in the audit stream. Later planning runs use the new phase's windows.
	TransitionPhase(ctx context.Context, eventID uuid.UUID, to models.EventPhase, actorID uuid.UUID, reason string) (*models.Event, error)
}

type eventService struct {
	eventRepo repositories.EventRepository
	checker   workflow.PermissionChecker
	logger    *zap.Logger
}

func NewEventService(eventRepo repositories.EventRepository, checker workflow.PermissionChecker, logger *zap.Logger) EventService {
	return &eventService{
		eventRepo: eventRepo,
		checker:   checker,
		logger:    logger,
	}
}

func (s *eventService) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

func (s *eventService) ListActive(ctx context.Context) ([]*models.Event, error) {
	return s.eventRepo.ListActive(ctx)
}

func (s *eventService) TransitionPhase(ctx context.Context, eventID uuid.UUID, to models.EventPhase, actorID uuid.UUID, reason string) (*models.Event, error) {
	if _, err := models.ParseEventPhase(string(to)); err != nil {
		return nil, errclass.ErrValidation.WithMessage(err.Error())
	}
	if err := workflow.Authorize(ctx, s.checker, actorID, ResourceEvent, ActionTransitionPhase); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, errclass.ErrInvalidStateTransition.WithMessagef("event %s is closed", event.ID)
	}
	if event.Phase == to {
		return nil, errclass.ErrInvalidStateTransition.WithMessagef("event %s is already in phase %s", event.ID, to)
	}

	entry := &models.AuditEntry{
		EntityType: models.EntityEvent,
		EntityID:   event.ID,
		Action:     models.AuditPhaseChanged,
		ActorID:    actorID,
		Reason:     optionalString(reason),
		OldValues:  models.JSONB{"phase": string(event.Phase)},
		NewValues:  models.JSONB{"phase": string(to)},
	}
	if err := s.eventRepo.UpdatePhase(ctx, event.ID, event.Phase, to, entry); err != nil {
		return nil, err
	}

	s.logger.Info("event phase changed",
		zap.Stringer("event_id", event.ID),
		zap.String("from", string(event.Phase)),
		zap.String("to", string(to)),
		zap.Stringer("actor_id", actorID),
	)
	updated := *event
	updated.Phase = to
	updated.PhaseChangedAt = entry.CreatedAt
	return &updated, nil
}
