package manager

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/schedule"
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/api"
)

// Status prints a read-only report of the current configuration. It never
// fails: sub-queries that error simply leave their section short.
func (s *Impl) Status(ctx context.Context) {
	fmt.Fprintf(s.out, "=== %s Manager Status ===\n\n", s.cfg.CheckName)

	fmt.Fprintln(s.out, "Health Check Status:")
	if err := s.login(ctx); err == nil {
		if s.health.IsDisabled(ctx) {
			fmt.Fprintf(s.out, "  %s is currently DISABLED\n", s.cfg.CheckName)
		} else {
			fmt.Fprintf(s.out, "  %s is currently ENABLED\n", s.cfg.CheckName)
		}
	} else {
		fmt.Fprintln(s.out, "  unknown (API login failed)")
	}
	fmt.Fprintln(s.out)

	fmt.Fprintln(s.out, "Script Location:")
	fmt.Fprintf(s.out, "  %s\n\n", s.cfg.ScriptPath)

	fmt.Fprintln(s.out, "API Authentication:")
	credentials, source := s.store.Resolve(s.cfg)
	switch {
	case credentials.IsZero():
		fmt.Fprintln(s.out, "  No credentials configured")
	default:
		fmt.Fprintf(s.out, "  Credentials from %s (user: %s)\n", source, credentials.Username)
	}
	fmt.Fprintln(s.out)

	sched := schedule.Fetch(ctx, s.client)
	fmt.Fprintln(s.out, "Backup Schedule:")
	fmt.Fprintf(s.out, "  Schedule: %s at %s\n\n", sched.Schedule, sched.BackupTime())

	fmt.Fprintln(s.out, "Cronjob Status:")
	if entry, ok := s.cron.CurrentEntry(ctx); ok {
		fmt.Fprintf(s.out, "  %s\n", entry)
		if minute, hour, parsed := entryTiming(entry); parsed &&
			(minute != sched.PreMinute || hour != sched.PreHour) {
			fmt.Fprintln(s.out)
			fmt.Fprintln(s.out, "  WARNING: Cronjob schedule is out of sync!")
			fmt.Fprintf(s.out, "  Current cronjob: %d:%02d\n", hour, minute)
			fmt.Fprintf(s.out, "  Should be:       %s (5 min before backup at %s)\n",
				sched.PreBackupTime(), sched.BackupTime())
			fmt.Fprintln(s.out, "  Run 'enable' or 'disable' to auto-update")
		}
	} else {
		fmt.Fprintln(s.out, "  No cronjob configured")
	}
	fmt.Fprintln(s.out)

	fmt.Fprintln(s.out, "Post-backup Configuration:")
	if postBackupConfigured(s.client.ConfigGet(ctx, api.CategoryPostBackup)) {
		fmt.Fprintln(s.out, "  Post-backup command configured")
	} else {
		fmt.Fprintln(s.out, "  Post-backup command not configured")
	}
	fmt.Fprintln(s.out)

	fmt.Fprintln(s.out, "Logging:")
	if s.cfg.NoLog {
		fmt.Fprintln(s.out, "  Logging is DISABLED")
	} else {
		fmt.Fprintf(s.out, "  Logging to: %s\n", s.cfg.LogFile)
		if info, err := os.Stat(s.cfg.LogFile); err == nil {
			fmt.Fprintf(s.out, "  Log size: %s\n", humanSize(info.Size()))
		}
	}
}

// postBackupConfigured reports whether the success outcome carries a
// run-command list.
func postBackupConfigured(cfg map[string]any) bool {
	post, ok := cfg["post_backup"].(map[string]any)
	if !ok {
		return false
	}
	success, ok := post["success"].(map[string]any)
	if !ok {
		return false
	}
	cmds, ok := success["run-command"].([]any)
	return ok && len(cmds) > 0
}

// entryTiming reads the minute and hour fields of a crontab line.
func entryTiming(entry string) (minute, hour int, ok bool) {
	fields := strings.Fields(entry)
	if len(fields) < 5 {
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

// humanSize formats a log size the way the status report shows it.
func humanSize(size int64) string {
	const (
		kib = 1024
		mib = 1024 * 1024
	)
	if size < mib {
		return fmt.Sprintf("%.1fK", float64(size)/kib)
	}
	return fmt.Sprintf("%.1fM", float64(size)/mib)
}
