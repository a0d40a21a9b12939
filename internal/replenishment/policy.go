// Package replenishment holds the pure calculations behind a planning run:
// data freshness, burn rates, stockout projection and horizon allocation.
package replenishment

import (
	"fmt"

	"dmis/internal/models"
	"dmis/pkg/errclass"

	"github.com/shopspring/decimal"
)

// PhaseWindows are the demand and planning windows for one event phase.
type PhaseWindows struct {
	DemandWindowHours   int
	PlanningWindowHours int
}

// FreshnessThresholds bound the freshness tiers by hours since the last
// successful sync. Ages below High are HIGH, below Medium are MEDIUM, up to
// and including Low are LOW, beyond Low are STALE.
type FreshnessThresholds struct {
	HighHours   float64
	MediumHours float64
	LowHours    float64
}

// SeverityBreakpoints are multiples of the demand window. Time to stockout
// at or below Critical windows is CRITICAL, and so on down to OK.
type SeverityBreakpoints struct {
	Critical float64
	Warning  float64
	Watch    float64
}

// Policy is the full parameter set a planning run is computed under.
type Policy struct {
	Freshness                FreshnessThresholds
	Phases                   map[models.EventPhase]PhaseWindows
	BaselineLookbackHours    int
	Severity                 SeverityBreakpoints
	SafetyBuffer             decimal.Decimal
	DonationLeadTimeHours    int
	ProcurementLeadTimeHours int
	// MaxTransferLeadTimeHours caps Horizon A routes; zero means the phase's planning window.
	MaxTransferLeadTimeHours int
}

func DefaultPolicy() Policy {
	return Policy{
		Freshness: FreshnessThresholds{HighHours: 4, MediumHours: 12, LowHours: 24},
		Phases: map[models.EventPhase]PhaseWindows{
			models.PhaseSurge:      {DemandWindowHours: 6, PlanningWindowHours: 72},
			models.PhaseStabilized: {DemandWindowHours: 72, PlanningWindowHours: 168},
			models.PhaseBaseline:   {DemandWindowHours: 720, PlanningWindowHours: 720},
		},
		BaselineLookbackHours:    720,
		Severity:                 SeverityBreakpoints{Critical: 1, Warning: 2, Watch: 7},
		SafetyBuffer:             decimal.RequireFromString("1.25"),
		DonationLeadTimeHours:    48,
		ProcurementLeadTimeHours: 336,
	}
}

// Windows returns the configured windows for phase.
func (p Policy) Windows(phase models.EventPhase) (PhaseWindows, error) {
	w, ok := p.Phases[phase]
	if !ok {
		return PhaseWindows{}, errclass.ErrValidation.WithMessagef("no windows configured for phase %s", phase)
	}
	return w, nil
}

// MaxTransferLeadTime resolves the Horizon A lead time cap for a planning window.
func (p Policy) MaxTransferLeadTime(w PhaseWindows) int {
	if p.MaxTransferLeadTimeHours > 0 {
		return p.MaxTransferLeadTimeHours
	}
	return w.PlanningWindowHours
}

func (p Policy) Validate() error {
	f := p.Freshness
	if f.HighHours <= 0 || f.HighHours > f.MediumHours || f.MediumHours > f.LowHours {
		return fmt.Errorf("freshness thresholds must be positive and ascending, got %v/%v/%v", f.HighHours, f.MediumHours, f.LowHours)
	}
	s := p.Severity
	if s.Critical <= 0 || s.Critical > s.Warning || s.Warning > s.Watch {
		return fmt.Errorf("severity breakpoints must be positive and ascending, got %v/%v/%v", s.Critical, s.Warning, s.Watch)
	}
	for _, phase := range []models.EventPhase{models.PhaseSurge, models.PhaseStabilized, models.PhaseBaseline} {
		w, ok := p.Phases[phase]
		if !ok {
			return fmt.Errorf("missing windows for phase %s", phase)
		}
		if w.DemandWindowHours <= 0 || w.PlanningWindowHours <= 0 {
			return fmt.Errorf("windows for phase %s must be positive", phase)
		}
	}
	if p.BaselineLookbackHours <= 0 {
		return fmt.Errorf("baseline lookback must be positive")
	}
	if p.SafetyBuffer.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("safety buffer must be at least 1, got %s", p.SafetyBuffer)
	}
	if p.DonationLeadTimeHours < 0 || p.ProcurementLeadTimeHours < 0 || p.MaxTransferLeadTimeHours < 0 {
		return fmt.Errorf("lead times cannot be negative")
	}
	return nil
}
