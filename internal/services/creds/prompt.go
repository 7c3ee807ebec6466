package creds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/api"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Prompter collects credentials interactively, validates them with a live
// login and stores them on success.
type Prompter struct {
	store  *Store
	client api.Client
	logger zerolog.Logger

	in           *bufio.Reader
	out          io.Writer
	readPassword func(fd int) ([]byte, error)
	passwordFd   int
}

// NewPrompter creates a prompter reading from stdin and writing to stdout.
func NewPrompter(logger zerolog.Logger, store *Store, client api.Client) *Prompter {
	return &Prompter{
		store:        store,
		client:       client,
		logger:       logger,
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		readPassword: term.ReadPassword,
		passwordFd:   int(os.Stdin.Fd()),
	}
}

// NewPrompterWithIO creates a prompter with custom input/output and
// password reader (for testing).
func NewPrompterWithIO(
	logger zerolog.Logger,
	store *Store,
	client api.Client,
	in io.Reader,
	out io.Writer,
	readPassword func(fd int) ([]byte, error),
) *Prompter {
	return &Prompter{
		store:        store,
		client:       client,
		logger:       logger,
		in:           bufio.NewReader(in),
		out:          out,
		readPassword: readPassword,
	}
}

// Run prompts for a username (defaulting to the detected admin user) and
// a password entered twice, validates the pair with a login attempt, and
// stores it only when the login succeeds.
func (p *Prompter) Run(ctx context.Context, defaultUser string) error {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "=== FMOS Control Panel API Credentials ===")
	fmt.Fprintln(p.out, "These credentials will be stored and used for API access.")
	fmt.Fprintln(p.out)

	fmt.Fprintf(p.out, "Username [%s]: ", defaultUser)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading username: %w", err)
	}
	username := strings.TrimSpace(line)
	if username == "" {
		username = defaultUser
	}

	fmt.Fprint(p.out, "Password: ")
	password, err := p.readPassword(p.passwordFd)
	fmt.Fprintln(p.out)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(p.out, "Confirm password: ")
	confirm, err := p.readPassword(p.passwordFd)
	fmt.Fprintln(p.out)
	if err != nil {
		return fmt.Errorf("reading password confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return fmt.Errorf("passwords do not match")
	}
	if len(password) == 0 {
		return fmt.Errorf("password cannot be empty")
	}

	fmt.Fprintln(p.out, "Testing credentials...")
	if err := p.client.Login(ctx, username, string(password)); err != nil {
		fmt.Fprintln(p.out, "Login failed - please check your credentials")
		return fmt.Errorf("validating credentials: %w", err)
	}
	fmt.Fprintln(p.out, "Credentials validated successfully")

	return p.store.Save(models.Credentials{Username: username, Password: string(password)})
}
