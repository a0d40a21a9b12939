package config

import (
	"os"
	"path/filepath"
	"testing"

	"dmis/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyIsValid(t *testing.T) {
	p, err := Default().Policy()
	require.NoError(t, err)
	assert.Equal(t, 6, p.Phases[models.PhaseSurge].DemandWindowHours)
	assert.Equal(t, 72, p.Phases[models.PhaseSurge].PlanningWindowHours)
	assert.True(t, decimal.RequireFromString("1.25").Equal(p.SafetyBuffer))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dmis.toml")
	content := `
[server]
port = 9090

[freshness]
high_hours = 2
medium_hours = 6
low_hours = 18

[phases.SURGE]
demand_window_hours = 12
planning_window_hours = 96

[planner]
safety_buffer = "1.5"
procurement_lead_time_hours = 240
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Freshness.HighHours)
	assert.Equal(t, 12, p.Phases[models.PhaseSurge].DemandWindowHours)
	assert.Equal(t, 72, p.Phases[models.PhaseStabilized].DemandWindowHours, "untouched phases keep defaults")
	assert.True(t, decimal.RequireFromString("1.5").Equal(p.SafetyBuffer))
	assert.Equal(t, 240, p.ProcurementLeadTimeHours)
	assert.Equal(t, 48, p.DonationLeadTimeHours)
}

func TestLoad_PhaseSections(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		phase    models.EventPhase
		demand   int
		planning int
	}{
		{
			name:     "lowercase section name",
			content:  "[phases.surge]\ndemand_window_hours = 8\nplanning_window_hours = 48\n",
			phase:    models.PhaseSurge,
			demand:   8,
			planning: 48,
		},
		{
			name:     "partial override keeps the default planning window",
			content:  "[phases.SURGE]\ndemand_window_hours = 12\n",
			phase:    models.PhaseSurge,
			demand:   12,
			planning: 72,
		},
		{
			name:     "partial lowercase override of the baseline phase",
			content:  "[phases.baseline]\nplanning_window_hours = 336\n",
			phase:    models.PhaseBaseline,
			demand:   720,
			planning: 336,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dmis.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			cfg, err := Load(path)
			require.NoError(t, err)
			p, err := cfg.Policy()
			require.NoError(t, err)

			assert.Equal(t, tt.demand, p.Phases[tt.phase].DemandWindowHours)
			assert.Equal(t, tt.planning, p.Phases[tt.phase].PlanningWindowHours)
			assert.Equal(t, 72, p.Phases[models.PhaseStabilized].DemandWindowHours)
		})
	}
}

func TestLoad_RejectsUnknownPhaseSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dmis.toml")
	require.NoError(t, os.WriteFile(path, []byte("[phases.recovery]\ndemand_window_hours = 8\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid phases section")
}

func TestLoad_RejectsInvalidPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[severity]\ncritical_multiple = 3\nwarning_multiple = 2\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://dmis@localhost/dmis")
	t.Setenv("PORT", "7000")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://dmis@localhost/dmis", cfg.Database.URL)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Redis.DB)

	t.Setenv("PORT", "not-a-port")
	_, err = Load("")
	assert.Error(t, err)
}
