// Package cron keeps the pre-backup crontab entry in sync with the
// appliance backup schedule.
package cron

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
	cronparser "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const crontabTimeout = 5 * time.Second

// Service defines the crontab operations used by the manager.
type Service interface {
	CurrentEntry(ctx context.Context) (string, bool)
	SyncIfNeeded(ctx context.Context, sched models.BackupSchedule)
	Install(ctx context.Context, sched models.BackupSchedule) error
	Remove(ctx context.Context) error
}

// CommandExecutor allows mocking the crontab subprocess in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
	ExecuteWithInput(ctx context.Context, input string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor runs commands with os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its stdout.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// ExecuteWithInput runs a command with the given stdin.
func (e *DefaultExecutor) ExecuteWithInput(ctx context.Context, input string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(input)
	return cmd.CombinedOutput()
}

// Impl implements the Service interface.
type Impl struct {
	executor CommandExecutor
	logger   zerolog.Logger

	// scriptPath identifies this tool's entries: a crontab line belongs
	// to the manager when it contains the path and the word "disable".
	scriptPath string
	noLog      bool
}

// New creates a cron synchronizer for the given executable path.
func New(logger zerolog.Logger, cfg models.ManagerConfig) *Impl {
	return &Impl{
		executor:   &DefaultExecutor{},
		logger:     logger,
		scriptPath: cfg.ScriptPath,
		noLog:      cfg.NoLog,
	}
}

// NewWithExecutor creates a cron synchronizer with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, cfg models.ManagerConfig, executor CommandExecutor) *Impl {
	svc := New(logger, cfg)
	svc.executor = executor
	return svc
}

// matches reports whether a crontab line is this tool's disable entry.
func (s *Impl) matches(line string) bool {
	return strings.Contains(line, s.scriptPath) && strings.Contains(line, "disable")
}

// listCrontab returns the current crontab text, or ok=false when listing
// fails (most commonly: no crontab for the user).
func (s *Impl) listCrontab(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, crontabTimeout)
	defer cancel()

	out, err := s.executor.Execute(ctx, "crontab", "-l")
	if err != nil {
		return "", false
	}
	return string(out), true
}

// CurrentEntry returns the first crontab line that invokes this tool's
// disable command, or false when the crontab cannot be listed or no line
// matches.
func (s *Impl) CurrentEntry(ctx context.Context) (string, bool) {
	content, ok := s.listCrontab(ctx)
	if !ok {
		return "", false
	}

	for _, line := range strings.Split(content, "\n") {
		if s.matches(line) {
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}

// SyncIfNeeded rewrites the crontab entry when its timing no longer
// matches the pre-backup schedule. A missing entry is left missing: only
// the explicit setup/enable/disable paths create one, so a user who never
// ran setup is not surprised by a new crontab line.
func (s *Impl) SyncIfNeeded(ctx context.Context, sched models.BackupSchedule) {
	entry, ok := s.CurrentEntry(ctx)
	if !ok {
		s.logger.Info().Msg("cronjob not configured, skipping schedule check")
		return
	}

	minute, hour, ok := parseEntryTiming(entry)
	if ok && minute == sched.PreMinute && hour == sched.PreHour {
		return
	}

	s.logger.Info().
		Str("old", fmt.Sprintf("%d:%02d", hour, minute)).
		Str("new", sched.PreBackupTime()).
		Msg("backup schedule changed, updating cronjob")

	if err := s.Install(ctx, sched); err != nil {
		s.logger.Error().Err(err).Msg("failed to update cronjob")
	}
}

// Install replaces this tool's crontab entry with one firing at the
// pre-backup time every day. The whole crontab is read, filtered and
// written back; there is no rollback on a partial failure.
func (s *Impl) Install(ctx context.Context, sched models.BackupSchedule) error {
	s.logger.Info().Str("time", sched.PreBackupTime()).Msg("setting up cronjob for pre-backup check disable")

	spec := fmt.Sprintf("%d %d * * *", sched.PreMinute, sched.PreHour)
	if _, err := cronparser.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}

	entry := fmt.Sprintf("%s %s disable >/dev/null 2>&1", spec, s.scriptPath)
	if s.noLog {
		entry = fmt.Sprintf("%s NO_LOG=1 %s disable >/dev/null 2>&1", spec, s.scriptPath)
	}

	existing, _ := s.listCrontab(ctx)
	lines := s.filterOwnEntries(existing)
	lines = append(lines, entry)

	if err := s.writeCrontab(ctx, lines); err != nil {
		return err
	}

	s.logger.Info().Str("entry", entry).Msg("cronjob configured")
	return nil
}

// Remove deletes this tool's crontab entry if present.
func (s *Impl) Remove(ctx context.Context) error {
	existing, ok := s.listCrontab(ctx)
	if !ok {
		return nil
	}

	if err := s.writeCrontab(ctx, s.filterOwnEntries(existing)); err != nil {
		return err
	}

	s.logger.Info().Msg("cronjob removed")
	return nil
}

// filterOwnEntries returns the crontab lines that do not belong to this
// tool.
func (s *Impl) filterOwnEntries(content string) []string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return nil
	}

	var kept []string
	for _, line := range strings.Split(content, "\n") {
		if !s.matches(line) {
			kept = append(kept, line)
		}
	}
	return kept
}

func (s *Impl) writeCrontab(ctx context.Context, lines []string) error {
	ctx, cancel := context.WithTimeout(ctx, crontabTimeout)
	defer cancel()

	input := strings.Join(lines, "\n") + "\n"
	if out, err := s.executor.ExecuteWithInput(ctx, input, "crontab", "-"); err != nil {
		return fmt.Errorf("writing crontab: %w, output: %s", err, string(out))
	}
	return nil
}

// parseEntryTiming extracts the minute and hour fields of a crontab line,
// validating the full five-field expression first. Unparseable entries
// report ok=false, which makes the synchronizer rewrite them.
func parseEntryTiming(entry string) (minute, hour int, ok bool) {
	fields := strings.Fields(entry)
	if len(fields) < 5 {
		return 0, 0, false
	}

	if _, err := cronparser.ParseStandard(strings.Join(fields[:5], " ")); err != nil {
		return 0, 0, false
	}

	minute, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, false
	}
	hour, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, false
	}
	return minute, hour, true
}
