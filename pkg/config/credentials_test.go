package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringAccount(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		server   string
		port     int
		insecure bool
		want     string
	}{
		{"default port", "api-user", "JSS.example.com", 0, false, "api-user@jss.example.com:8443"},
		{"same entry with scheme", "api-user", "https://jss.example.com:8443/", 0, false, "api-user@jss.example.com:8443"},
		{"cloud", "api-user", "acme.jamfcloud.com", 0, false, "api-user@acme.jamfcloud.com:443"},
		{"insecure", "api-user", "jss.local", 0, true, "api-user@jss.local:8080"},
		{"unparseable keeps raw", "api-user", "ftp://jss", 0, false, "api-user@ftp://jss"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyringAccount(tt.user, tt.server, tt.port, tt.insecure))
		})
	}
}

func TestResolvePassword_ExplicitWins(t *testing.T) {
	keyring.MockInit()
	s := Settings{Server: "jss.example.com", Username: "api-user", Password: "flag-secret"}
	require.NoError(t, keyring.Set(KeyringService, s.Account(), "stored"))

	require.NoError(t, s.ResolvePassword(SystemKeyring{}, nil))
	assert.Equal(t, "flag-secret", s.Password)
}

func TestResolvePassword_FromKeyring(t *testing.T) {
	keyring.MockInit()
	s := Settings{Server: "jss.example.com", Username: "api-user"}
	require.NoError(t, StorePassword(SystemKeyring{}, Settings{Server: "jss.example.com", Username: "api-user", Password: "stored"}))

	prompted := false
	err := s.ResolvePassword(SystemKeyring{}, func(string) (string, error) {
		prompted = true
		return "typed", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stored", s.Password)
	assert.False(t, prompted)
}

func TestResolvePassword_Prompt(t *testing.T) {
	keyring.MockInit()
	s := Settings{Server: "jss.example.com", Username: "api-user"}

	var label string
	err := s.ResolvePassword(SystemKeyring{}, func(l string) (string, error) {
		label = l
		return "typed", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "typed", s.Password)
	assert.Equal(t, "Password for api-user@jss.example.com:8443: ", label)
}

func TestResolvePassword_NoSource(t *testing.T) {
	keyring.MockInit()
	s := Settings{Server: "jss.example.com", Username: "api-user"}

	err := s.ResolvePassword(SystemKeyring{}, nil)
	assert.ErrorIs(t, err, ErrNoPassword)

	err = s.ResolvePassword(nil, func(string) (string, error) { return "  ", nil })
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestResolvePassword_KeyringFailure(t *testing.T) {
	boom := errors.New("dbus unavailable")
	keyring.MockInitWithError(boom)
	t.Cleanup(keyring.MockInit)

	s := Settings{Server: "jss.example.com", Username: "api-user"}
	err := s.ResolvePassword(SystemKeyring{}, nil)
	assert.ErrorIs(t, err, boom)

	err = s.ResolvePassword(SystemKeyring{}, func(string) (string, error) { return "typed", nil })
	require.NoError(t, err)
	assert.Equal(t, "typed", s.Password)
}

func TestStoreAndDeletePassword(t *testing.T) {
	keyring.MockInit()
	s := Settings{Server: "jss.example.com", Username: "api-user", Password: "secret"}

	require.NoError(t, StorePassword(SystemKeyring{}, s))
	got, err := keyring.Get(KeyringService, s.Account())
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	require.NoError(t, DeletePassword(SystemKeyring{}, s))
	_, err = keyring.Get(KeyringService, s.Account())
	assert.ErrorIs(t, err, keyring.ErrNotFound)

	// deleting twice is fine
	require.NoError(t, DeletePassword(SystemKeyring{}, s))

	s.Password = ""
	assert.Error(t, StorePassword(SystemKeyring{}, s))
}
