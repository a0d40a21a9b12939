package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"dmis/internal/models"
	"dmis/internal/replenishment"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config represents the complete configuration
type Config struct {
	Server    ServerConfig           `toml:"server"`
	Database  DatabaseConfig         `toml:"database"`
	Redis     RedisConfig            `toml:"redis"`
	Storage   StorageConfig          `toml:"storage"`
	Auth      AuthConfig             `toml:"auth"`
	Logging   LoggingConfig          `toml:"logging"`
	Freshness FreshnessConfig        `toml:"freshness"`
	Phases    map[string]PhaseConfig `toml:"phases"`
	BurnRate  BurnRateConfig         `toml:"burn_rate"`
	Severity  SeverityConfig         `toml:"severity"`
	Planner   PlannerConfig          `toml:"planner"`
	Scheduler SchedulerConfig        `toml:"scheduler"`
}

type ServerConfig struct {
	Port int `toml:"port"`
}

type DatabaseConfig struct {
	URL      string `toml:"url"`
	MaxConns int32  `toml:"max_conns"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	// FreshnessTTLSeconds is how long a computed freshness summary stays cached.
	FreshnessTTLSeconds   int `toml:"freshness_ttl_seconds"`
	PermissionTTLSeconds  int `toml:"permission_ttl_seconds"`
	RefreshFlagTTLSeconds int `toml:"refresh_flag_ttl_seconds"`
}

type StorageConfig struct {
	Endpoint             string `toml:"endpoint"`
	AccessKey            string `toml:"access_key"`
	SecretKey            string `toml:"secret_key"`
	UseSSL               bool   `toml:"use_ssl"`
	Bucket               string `toml:"bucket"`
	PresignExpirySeconds int    `toml:"presign_expiry_seconds"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	// JWKSURL, when set, verifies tokens against a remote key set instead of the shared secret.
	JWKSURL string `toml:"jwks_url"`
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type FreshnessConfig struct {
	HighHours   float64 `toml:"high_hours"`
	MediumHours float64 `toml:"medium_hours"`
	LowHours    float64 `toml:"low_hours"`
}

type PhaseConfig struct {
	DemandWindowHours   int `toml:"demand_window_hours"`
	PlanningWindowHours int `toml:"planning_window_hours"`
}

type BurnRateConfig struct {
	BaselineLookbackHours int `toml:"baseline_lookback_hours"`
}

type SeverityConfig struct {
	CriticalMultiple float64 `toml:"critical_multiple"`
	WarningMultiple  float64 `toml:"warning_multiple"`
	WatchMultiple    float64 `toml:"watch_multiple"`
}

type PlannerConfig struct {
	SafetyBuffer             string `toml:"safety_buffer"`
	DonationLeadTimeHours    int    `toml:"donation_lead_time_hours"`
	ProcurementLeadTimeHours int    `toml:"procurement_lead_time_hours"`
	MaxTransferLeadTimeHours int    `toml:"max_transfer_lead_time_hours"`
	Workers                  int    `toml:"workers"`
}

type SchedulerConfig struct {
	Enabled                  bool   `toml:"enabled"`
	PlanningIntervalMinutes  int    `toml:"planning_interval_minutes"`
	FreshnessIntervalMinutes int    `toml:"freshness_interval_minutes"`
	MaxConcurrentRuns        int    `toml:"max_concurrent_runs"`
	SystemActorID            string `toml:"system_actor_id"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	p := replenishment.DefaultPolicy()
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{MaxConns: 10},
		Redis: RedisConfig{
			Addr:                  "localhost:6379",
			FreshnessTTLSeconds:   300,
			PermissionTTLSeconds:  60,
			RefreshFlagTTLSeconds: 120,
		},
		Storage: StorageConfig{
			Endpoint:             "localhost:9000",
			AccessKey:            "minioadmin",
			SecretKey:            "minioadmin",
			Bucket:               "needs-lists",
			PresignExpirySeconds: 3600,
		},
		Logging: LoggingConfig{Level: "info"},
		Freshness: FreshnessConfig{
			HighHours:   p.Freshness.HighHours,
			MediumHours: p.Freshness.MediumHours,
			LowHours:    p.Freshness.LowHours,
		},
		Phases:   map[string]PhaseConfig{},
		BurnRate: BurnRateConfig{BaselineLookbackHours: p.BaselineLookbackHours},
		Severity: SeverityConfig{
			CriticalMultiple: p.Severity.Critical,
			WarningMultiple:  p.Severity.Warning,
			WatchMultiple:    p.Severity.Watch,
		},
		Planner: PlannerConfig{
			SafetyBuffer:             p.SafetyBuffer.String(),
			DonationLeadTimeHours:    p.DonationLeadTimeHours,
			ProcurementLeadTimeHours: p.ProcurementLeadTimeHours,
			Workers:                  8,
		},
		Scheduler: SchedulerConfig{
			Enabled:                  true,
			PlanningIntervalMinutes:  60,
			FreshnessIntervalMinutes: 5,
			MaxConcurrentRuns:        1,
		},
	}
}

// Load reads the optional .env file, decodes the TOML file over the defaults
// and then applies environment overrides.
func Load(filename string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if filename != "" {
		if _, err := toml.DecodeFile(filename, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if _, err := cfg.Policy(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.Redis.DB = db
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.Storage.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.Storage.UseSSL = v == "true"
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("JWKS_URL"); v != "" {
		c.Auth.JWKSURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// phaseWindows merges the [phases.*] sections over the default windows.
// Section names are case-insensitive and zero fields keep the default.
func (c *Config) phaseWindows() (map[models.EventPhase]replenishment.PhaseWindows, error) {
	phases := replenishment.DefaultPolicy().Phases

	names := make([]string, 0, len(c.Phases))
	for name := range c.Phases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		phase, err := models.ParseEventPhase(strings.ToUpper(strings.TrimSpace(name)))
		if err != nil {
			return nil, fmt.Errorf("invalid phases section: %w", err)
		}
		pc := c.Phases[name]
		w := phases[phase]
		if pc.DemandWindowHours != 0 {
			w.DemandWindowHours = pc.DemandWindowHours
		}
		if pc.PlanningWindowHours != 0 {
			w.PlanningWindowHours = pc.PlanningWindowHours
		}
		phases[phase] = w
	}
	return phases, nil
}

// Policy converts the planning sections into a validated replenishment policy.
func (c *Config) Policy() (replenishment.Policy, error) {
	buffer, err := decimal.NewFromString(c.Planner.SafetyBuffer)
	if err != nil {
		return replenishment.Policy{}, fmt.Errorf("invalid planner.safety_buffer %q: %w", c.Planner.SafetyBuffer, err)
	}

	phases, err := c.phaseWindows()
	if err != nil {
		return replenishment.Policy{}, err
	}

	p := replenishment.Policy{
		Freshness: replenishment.FreshnessThresholds{
			HighHours:   c.Freshness.HighHours,
			MediumHours: c.Freshness.MediumHours,
			LowHours:    c.Freshness.LowHours,
		},
		Phases:                phases,
		BaselineLookbackHours: c.BurnRate.BaselineLookbackHours,
		Severity: replenishment.SeverityBreakpoints{
			Critical: c.Severity.CriticalMultiple,
			Warning:  c.Severity.WarningMultiple,
			Watch:    c.Severity.WatchMultiple,
		},
		SafetyBuffer:             buffer,
		DonationLeadTimeHours:    c.Planner.DonationLeadTimeHours,
		ProcurementLeadTimeHours: c.Planner.ProcurementLeadTimeHours,
		MaxTransferLeadTimeHours: c.Planner.MaxTransferLeadTimeHours,
	}
	if err := p.Validate(); err != nil {
		return replenishment.Policy{}, fmt.Errorf("invalid planning policy: %w", err)
	}
	return p, nil
}

func (c *Config) FreshnessTTL() time.Duration {
	return time.Duration(c.Redis.FreshnessTTLSeconds) * time.Second
}

func (c *Config) PermissionTTL() time.Duration {
	return time.Duration(c.Redis.PermissionTTLSeconds) * time.Second
}

func (c *Config) RefreshFlagTTL() time.Duration {
	return time.Duration(c.Redis.RefreshFlagTTLSeconds) * time.Second
}

func (c *Config) PresignExpiry() time.Duration {
	return time.Duration(c.Storage.PresignExpirySeconds) * time.Second
}
