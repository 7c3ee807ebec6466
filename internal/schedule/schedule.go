// Package schedule derives the pre-backup time from the appliance backup
// configuration.
package schedule

import (
	"context"
	"encoding/json"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/api"
)

// Defaults used when the backup config or one of its fields is absent.
const (
	DefaultHour     = 23
	DefaultMinute   = 48
	DefaultSchedule = "daily"

	// leadMinutes is how far ahead of the backup the check gets disabled.
	leadMinutes = 5
)

// Calculate derives the backup schedule from an os/backup/auto-backup
// payload. A missing or empty payload yields the defaults; individual
// fields also default independently. The pre-backup time is the backup
// time minus five minutes; minute underflow borrows an hour and hour 0
// wraps to 23 (only hour:minute feed the cron line, so no date math).
func Calculate(payload map[string]any) models.BackupSchedule {
	sched := models.BackupSchedule{
		Hour:     DefaultHour,
		Minute:   DefaultMinute,
		Schedule: DefaultSchedule,
	}

	if auto, ok := payload["auto_backup"].(map[string]any); ok {
		sched.Hour = intField(auto, "hour", DefaultHour)
		sched.Minute = intField(auto, "minute", DefaultMinute)
		if s, ok := auto["schedule"].(string); ok && s != "" {
			sched.Schedule = s
		}
	}

	sched.PreHour = sched.Hour
	sched.PreMinute = sched.Minute - leadMinutes
	if sched.PreMinute < 0 {
		sched.PreMinute += 60
		sched.PreHour = sched.Hour - 1
		if sched.PreHour < 0 {
			sched.PreHour = 23
		}
	}

	return sched
}

// Fetch reads the backup config from the API and calculates the schedule.
// API failures surface as an empty payload, so this always succeeds and
// falls back to the defaults.
func Fetch(ctx context.Context, client api.Client) models.BackupSchedule {
	return Calculate(client.ConfigGet(ctx, api.CategoryAutoBackup))
}

// intField reads an integer from a decoded JSON object, accepting the
// numeric types encoding/json may produce.
func intField(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}
