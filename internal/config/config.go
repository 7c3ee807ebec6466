// Package config resolves the runtime settings for a single invocation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
	"github.com/spf13/viper"
)

const (
	logFileName   = "loadavg_check_manager.log"
	credsFileName = ".fmos_api_creds"

	checkName  = "fmos.health.checks.basic.LoadAvgCheck"
	apiBaseURL = "https://localhost:55555/api"
)

// Load resolves the executable location, merges the NO_LOG / NO_WAIT /
// FMOS_API_USER / FMOS_API_PASS environment variables with the CLI flags
// and detects the admin user. The log and credential files live beside
// the executable.
func Load(noLogFlag, noWaitFlag bool) (*models.ManagerConfig, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)

	v := viper.New()
	_ = v.BindEnv("no_log", "NO_LOG")
	_ = v.BindEnv("no_wait", "NO_WAIT")
	_ = v.BindEnv("api_user", "FMOS_API_USER")
	_ = v.BindEnv("api_pass", "FMOS_API_PASS")

	cfg := &models.ManagerConfig{
		ScriptPath: exe,
		ScriptDir:  dir,
		LogFile:    filepath.Join(dir, logFileName),
		CredsFile:  filepath.Join(dir, credsFileName),
		CheckName:  checkName,
		APIBaseURL: apiBaseURL,
		NoLog:      noLogFlag || v.GetString("no_log") == "1",
		NoWait:     noWaitFlag || v.GetString("no_wait") == "1",
		EnvUser:    v.GetString("api_user"),
		EnvPass:    v.GetString("api_pass"),
		AdminUser:  detectAdminUser(dir),
	}

	return cfg, nil
}

// detectAdminUser guesses the appliance admin account: the current
// non-root user, the owner of a /home/<user>/... script directory, the
// first /home entry, or "admin" as a last resort.
func detectAdminUser(scriptDir string) string {
	if user := os.Getenv("USER"); user != "" && user != "root" {
		return user
	}

	if user := userFromHomePath(scriptDir); user != "" {
		return user
	}

	if entries, err := os.ReadDir("/home"); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				return e.Name()
			}
		}
	}

	return "admin"
}

// userFromHomePath extracts <user> from a path under /home/<user>/.
func userFromHomePath(path string) string {
	_, rest, found := strings.Cut(path, "/home/")
	if !found {
		return ""
	}
	user, _, _ := strings.Cut(rest, "/")
	return user
}
