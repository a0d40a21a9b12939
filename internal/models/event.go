package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventPhase string

const (
	PhaseSurge      EventPhase = "SURGE"
	PhaseStabilized EventPhase = "STABILIZED"
	PhaseBaseline   EventPhase = "BASELINE"
)

func ParseEventPhase(s string) (EventPhase, error) {
	switch p := EventPhase(s); p {
	case PhaseSurge, PhaseStabilized, PhaseBaseline:
		return p, nil
	}
	return "", fmt.Errorf("unknown event phase %q", s)
}

// Event is a declared disaster event. Its phase drives every planning window.
type Event struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Phase          EventPhase `json:"phase" db:"phase"`
	PhaseChangedAt time.Time  `json:"phase_changed_at" db:"phase_changed_at"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
