package models

import "fmt"

// BackupSchedule holds the appliance backup time and the derived
// pre-backup time at which the check gets disabled. It is computed from
// the remote os/backup/auto-backup config and never persisted.
type BackupSchedule struct {
	Hour     int
	Minute   int
	Schedule string // e.g. "daily"

	// PreHour/PreMinute is the backup time minus five minutes, with
	// minute underflow borrowing an hour and hour 0 wrapping to 23.
	PreHour   int
	PreMinute int
}

// BackupTime formats the backup time as HH:MM.
func (s BackupSchedule) BackupTime() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// PreBackupTime formats the pre-backup time as HH:MM.
func (s BackupSchedule) PreBackupTime() string {
	return fmt.Sprintf("%02d:%02d", s.PreHour, s.PreMinute)
}
