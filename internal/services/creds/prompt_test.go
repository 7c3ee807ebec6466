package creds

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
)

type mockAPIClient struct {
	loginFunc func(ctx context.Context, username, password string) error
}

func (m *mockAPIClient) Login(ctx context.Context, username, password string) error {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, username, password)
	}
	return nil
}

func (m *mockAPIClient) Authenticate(ctx context.Context, creds models.Credentials) error {
	if creds.IsZero() {
		return nil
	}
	return m.Login(ctx, creds.Username, creds.Password)
}

func (m *mockAPIClient) ConfigGet(ctx context.Context, category string) map[string]any {
	return map[string]any{}
}

func (m *mockAPIClient) ConfigPut(ctx context.Context, category string, payload map[string]any) error {
	return nil
}

func (m *mockAPIClient) Apply(ctx context.Context) error {
	return nil
}

// passwordSequence returns a readPassword func yielding the given inputs
// in order.
func passwordSequence(inputs ...string) func(fd int) ([]byte, error) {
	i := 0
	return func(fd int) ([]byte, error) {
		if i >= len(inputs) {
			return nil, errors.New("no more input")
		}
		out := inputs[i]
		i++
		return []byte(out), nil
	}
}

func TestPrompter_StoresValidatedCredentials(t *testing.T) {
	store := testStore(t)
	var loginUser, loginPass string
	client := &mockAPIClient{
		loginFunc: func(ctx context.Context, username, password string) error {
			loginUser, loginPass = username, password
			return nil
		},
	}

	var out bytes.Buffer
	p := NewPrompterWithIO(testLogger(), store, client,
		strings.NewReader("alice\n"), &out, passwordSequence("pw123", "pw123"))

	err := p.Run(context.Background(), "admin")

	require.NoError(t, err)
	assert.Equal(t, "alice", loginUser)
	assert.Equal(t, "pw123", loginPass)

	saved, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "alice", saved.Username)
	assert.Equal(t, "pw123", saved.Password)
	assert.Contains(t, out.String(), "validated successfully")
}

func TestPrompter_EmptyUsernameUsesDefault(t *testing.T) {
	store := testStore(t)
	var loginUser string
	client := &mockAPIClient{
		loginFunc: func(ctx context.Context, username, password string) error {
			loginUser = username
			return nil
		},
	}

	p := NewPrompterWithIO(testLogger(), store, client,
		strings.NewReader("\n"), &bytes.Buffer{}, passwordSequence("pw", "pw"))

	require.NoError(t, p.Run(context.Background(), "admin"))
	assert.Equal(t, "admin", loginUser)
}

func TestPrompter_PasswordMismatch(t *testing.T) {
	store := testStore(t)
	p := NewPrompterWithIO(testLogger(), store, &mockAPIClient{},
		strings.NewReader("alice\n"), &bytes.Buffer{}, passwordSequence("one", "two"))

	err := p.Run(context.Background(), "admin")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "do not match")
	assert.False(t, store.Exists())
}

func TestPrompter_EmptyPassword(t *testing.T) {
	store := testStore(t)
	p := NewPrompterWithIO(testLogger(), store, &mockAPIClient{},
		strings.NewReader("alice\n"), &bytes.Buffer{}, passwordSequence("", ""))

	err := p.Run(context.Background(), "admin")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
	assert.False(t, store.Exists())
}

func TestPrompter_LoginFailureDoesNotStore(t *testing.T) {
	store := testStore(t)
	client := &mockAPIClient{
		loginFunc: func(ctx context.Context, username, password string) error {
			return errors.New("login failed")
		},
	}

	var out bytes.Buffer
	p := NewPrompterWithIO(testLogger(), store, client,
		strings.NewReader("alice\n"), &out, passwordSequence("pw", "pw"))

	err := p.Run(context.Background(), "admin")

	assert.Error(t, err)
	assert.False(t, store.Exists())
	assert.Contains(t, out.String(), "Login failed")
}
