// Package health toggles the LoadAvgCheck on the appliance ignore list
// around the backup window.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/schedule"
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/api"
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/creds"
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/cron"
	"github.com/rs/zerolog"
)

// settleDelay is how long Enable waits for the post-backup load average
// to settle before re-enabling the check.
const settleDelay = 15 * time.Minute

// Service defines the check toggle operations.
type Service interface {
	Disable(ctx context.Context) error
	Enable(ctx context.Context, wait bool) error
	IsDisabled(ctx context.Context) bool
}

// Impl implements the Service interface.
type Impl struct {
	client api.Client
	cron   cron.Service
	store  *creds.Store
	logger zerolog.Logger
	cfg    models.ManagerConfig

	// sleep is injectable for tests; the default honors ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a health toggle service with real collaborators.
func New(logger zerolog.Logger, cfg models.ManagerConfig) *Impl {
	return NewWithServices(logger, cfg,
		api.New(logger, cfg.APIBaseURL),
		cron.New(logger, cfg),
		creds.NewStore(logger, cfg.CredsFile),
	)
}

// NewWithServices creates a health toggle service with custom
// collaborators (for testing).
func NewWithServices(logger zerolog.Logger, cfg models.ManagerConfig, client api.Client, cronSvc cron.Service, store *creds.Store) *Impl {
	return &Impl{
		client: client,
		cron:   cronSvc,
		store:  store,
		logger: logger,
		cfg:    cfg,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Disable puts the check on the ignore list and applies the change. The
// cron entry is re-synced first so a drifted backup schedule heals on the
// next run.
func (s *Impl) Disable(ctx context.Context) error {
	s.logger.Info().Str("check", s.cfg.CheckName).Msg("disabling health check")

	s.cron.SyncIfNeeded(ctx, schedule.Fetch(ctx, s.client))

	if err := s.login(ctx); err != nil {
		return err
	}

	cfg := s.healthConfig(ctx)
	checks := ignoreChecks(cfg)
	if !contains(checks, s.cfg.CheckName) {
		checks = append(checks, s.cfg.CheckName)
	}
	setIgnoreChecks(cfg, checks)

	if err := s.putAndApply(ctx, cfg); err != nil {
		return fmt.Errorf("disabling %s: %w", s.cfg.CheckName, err)
	}

	s.logger.Info().Str("check", s.cfg.CheckName).Msg("health check disabled")
	return nil
}

// Enable removes the check from the ignore list and applies the change.
// When wait is true it first blocks for the settle delay; the wait honors
// context cancellation so an interrupt exits promptly.
func (s *Impl) Enable(ctx context.Context, wait bool) error {
	if wait {
		s.logger.Info().
			Dur("delay", settleDelay).
			Msg("waiting for backup load average to settle before enabling")
		if err := s.sleep(ctx, settleDelay); err != nil {
			return err
		}
		s.logger.Info().Msg("wait complete, proceeding to enable")
	} else {
		s.logger.Info().Str("check", s.cfg.CheckName).Msg("enabling health check (skipping wait)")
	}

	s.cron.SyncIfNeeded(ctx, schedule.Fetch(ctx, s.client))

	if err := s.login(ctx); err != nil {
		return err
	}

	cfg := s.healthConfig(ctx)
	checks := remove(ignoreChecks(cfg), s.cfg.CheckName)
	setIgnoreChecks(cfg, checks)

	if err := s.putAndApply(ctx, cfg); err != nil {
		return fmt.Errorf("enabling %s: %w", s.cfg.CheckName, err)
	}

	s.logger.Info().Str("check", s.cfg.CheckName).Msg("health check enabled")
	return nil
}

// IsDisabled reports whether the check is currently on the ignore list.
// It assumes the caller already authenticated the session.
func (s *Impl) IsDisabled(ctx context.Context) bool {
	cfg := s.client.ConfigGet(ctx, api.CategoryHealth)
	return contains(ignoreChecks(cfg), s.cfg.CheckName)
}

func (s *Impl) login(ctx context.Context) error {
	credentials, _ := s.store.Resolve(s.cfg)
	if err := s.client.Authenticate(ctx, credentials); err != nil {
		return fmt.Errorf("API login failed: %w", err)
	}
	return nil
}

// healthConfig fetches the os/health payload, defaulting to an empty
// health object when the API has no data.
func (s *Impl) healthConfig(ctx context.Context) map[string]any {
	cfg := s.client.ConfigGet(ctx, api.CategoryHealth)
	if len(cfg) == 0 {
		cfg = map[string]any{"health": map[string]any{}}
	}
	return cfg
}

// putAndApply performs the PUT-then-APPLY pair. A PUT without APPLY is a
// no-op on the appliance, so APPLY always follows unless PUT failed.
func (s *Impl) putAndApply(ctx context.Context, cfg map[string]any) error {
	if err := s.client.ConfigPut(ctx, api.CategoryHealth, cfg); err != nil {
		return err
	}
	return s.client.Apply(ctx)
}

// ignoreChecks extracts health.ignore_checks from a decoded payload.
func ignoreChecks(cfg map[string]any) []string {
	healthObj, ok := cfg["health"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := healthObj["ignore_checks"].([]any)
	if !ok {
		return nil
	}

	checks := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			checks = append(checks, s)
		}
	}
	return checks
}

// setIgnoreChecks writes health.ignore_checks back into the payload. An
// empty list removes the key entirely: the appliance treats an absent
// list and an empty one as the same "nothing ignored" state, and pruning
// keeps the remote payload unambiguous.
func setIgnoreChecks(cfg map[string]any, checks []string) {
	healthObj, ok := cfg["health"].(map[string]any)
	if !ok {
		healthObj = map[string]any{}
		cfg["health"] = healthObj
	}

	if len(checks) == 0 {
		delete(healthObj, "ignore_checks")
		return
	}

	list := make([]any, len(checks))
	for i, c := range checks {
		list[i] = c
	}
	healthObj["ignore_checks"] = list
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

func remove(list []string, item string) []string {
	var out []string
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}
