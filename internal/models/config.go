// Package models contains the data structures used throughout the
// LoadAvgCheck manager.
package models

// ManagerConfig holds the resolved runtime settings for a single
// invocation. All durable state lives in the remote API, the crontab and
// the credential file; this struct only carries where to find them.
type ManagerConfig struct {
	// ScriptPath is the resolved path of this executable, used both to
	// build crontab/post-backup command lines and to match existing ones.
	ScriptPath string
	// ScriptDir is the directory containing the executable. The log file
	// and the credential file live beside it.
	ScriptDir string

	LogFile   string
	CredsFile string

	// CheckName is the health check identifier toggled on the ignore list.
	CheckName string
	// APIBaseURL is the fixed local control-panel API origin.
	APIBaseURL string

	// NoLog suppresses the log file sink, NoWait skips the settle delay
	// before re-enabling. Both are set from flags or NO_LOG / NO_WAIT.
	NoLog  bool
	NoWait bool

	// EnvUser and EnvPass carry FMOS_API_USER / FMOS_API_PASS when set.
	// They take precedence over the credential file.
	EnvUser string
	EnvPass string

	// AdminUser is the detected appliance admin account, used as the
	// default username in the credentials prompt.
	AdminUser string
}

// Credentials is a username/password pair for the control-panel API.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no credentials are present.
func (c Credentials) IsZero() bool {
	return c.Username == "" || c.Password == ""
}

// CredentialSource identifies where credentials were resolved from.
type CredentialSource int

const (
	// SourceNone means no credentials are configured anywhere.
	SourceNone CredentialSource = iota
	// SourceEnv means credentials came from FMOS_API_USER / FMOS_API_PASS.
	SourceEnv
	// SourceFile means credentials came from the stored credential file.
	SourceFile
)

func (s CredentialSource) String() string {
	switch s {
	case SourceEnv:
		return "environment"
	case SourceFile:
		return "file"
	default:
		return "none"
	}
}
