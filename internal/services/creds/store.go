// Package creds stores and resolves control-panel API credentials.
//
// The on-disk format is two lines of base64, which is obfuscation rather
// than encryption, and the file is world-readable. Both are known
// limitations of the appliance deployment, not security controls.
package creds

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
	"github.com/rs/zerolog"
)

const credsFileMode = 0o644

// Store persists credentials at a fixed path beside the executable.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore creates a credential store backed by the given file path.
func NewStore(logger zerolog.Logger, path string) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the credential file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save writes the encoded username and password.
func (s *Store) Save(creds models.Credentials) error {
	content := base64.StdEncoding.EncodeToString([]byte(creds.Username)) + "\n" +
		base64.StdEncoding.EncodeToString([]byte(creds.Password)) + "\n"

	if err := os.WriteFile(s.path, []byte(content), credsFileMode); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("failed to store credentials")
		return fmt.Errorf("storing credentials: %w", err)
	}

	s.logger.Info().Str("path", s.path).Msg("credentials stored")
	return nil
}

// Load reads the stored credentials. A missing, unreadable or malformed
// file means "no credentials", never an error: the caller falls back to
// the API's default-trust session.
func (s *Store) Load() (models.Credentials, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Error().Err(err).Str("path", s.path).Msg("failed to read credentials")
		}
		return models.Credentials{}, false
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 2 {
		s.logger.Error().Str("path", s.path).Msg("credential file is malformed")
		return models.Credentials{}, false
	}

	username, err := base64.StdEncoding.DecodeString(strings.TrimSpace(lines[0]))
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("credential file is malformed")
		return models.Credentials{}, false
	}
	password, err := base64.StdEncoding.DecodeString(strings.TrimSpace(lines[1]))
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("credential file is malformed")
		return models.Credentials{}, false
	}

	creds := models.Credentials{Username: string(username), Password: string(password)}
	if creds.IsZero() {
		return models.Credentials{}, false
	}
	return creds, true
}

// Delete removes the credential file. Removing an absent file succeeds.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credential file: %w", err)
	}
	return nil
}

// Resolve applies the credential precedence: environment variables, then
// the stored file, then none.
func (s *Store) Resolve(cfg models.ManagerConfig) (models.Credentials, models.CredentialSource) {
	if cfg.EnvUser != "" && cfg.EnvPass != "" {
		s.logger.Debug().Msg("using credentials from environment variables")
		return models.Credentials{Username: cfg.EnvUser, Password: cfg.EnvPass}, models.SourceEnv
	}

	if creds, ok := s.Load(); ok {
		s.logger.Debug().Str("user", creds.Username).Msg("using stored credentials")
		return creds, models.SourceFile
	}

	return models.Credentials{}, models.SourceNone
}
