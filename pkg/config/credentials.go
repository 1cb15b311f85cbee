package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/Sternrassler/jamfctl/pkg/session"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

// KeyringService is the service name passwords are stored under.
const KeyringService = "jamfctl"

// ErrNoPassword is returned when no source could supply a password.
var ErrNoPassword = errors.New("no password available")

// Keyring stores secrets.
type Keyring interface {
	Get(service, user string) (string, error)
	Set(service, user, secret string) error
	Delete(service, user string) error
}

// SystemKeyring is the OS keyring (macOS Keychain, Secret Service, Windows
// Credential Manager).
type SystemKeyring struct{}

// Get implements Keyring.
func (SystemKeyring) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}

// Set implements Keyring.
func (SystemKeyring) Set(service, user, secret string) error {
	return keyring.Set(service, user, secret)
}

// Delete implements Keyring.
func (SystemKeyring) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// KeyringAccount returns the keyring key for user on server, "user@host:port".
// The address is normalized so equivalent spellings share one entry.
func KeyringAccount(user, server string, port int, insecure bool) string {
	host := strings.ToLower(strings.TrimSpace(server))
	if addr, err := session.Normalize(server, port, insecure); err == nil {
		host = net.JoinHostPort(addr.Host, strconv.Itoa(addr.Port))
	}
	return strings.TrimSpace(user) + "@" + host
}

// Account returns the keyring key for the settings.
func (s Settings) Account() string {
	return KeyringAccount(s.Username, s.Server, s.Port, s.Insecure)
}

// Prompter asks the user for a secret.
type Prompter func(label string) (string, error)

// TerminalPrompter reads a secret from in without echo. It fails when in is
// not a terminal.
func TerminalPrompter(in *os.File, out io.Writer) Prompter {
	return func(label string) (string, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("%w: stdin is not a terminal", ErrNoPassword)
		}
		fmt.Fprint(out, label)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}
}

// ResolvePassword fills s.Password from the keyring and then the prompter
// when neither flags, environment nor file supplied one. Either source may
// be nil.
func (s *Settings) ResolvePassword(kr Keyring, prompt Prompter) error {
	if strings.TrimSpace(s.Password) != "" {
		return nil
	}
	if kr != nil {
		secret, err := kr.Get(KeyringService, s.Account())
		switch {
		case err == nil && secret != "":
			s.Password = secret
			return nil
		case err != nil && !errors.Is(err, keyring.ErrNotFound):
			if prompt == nil {
				return fmt.Errorf("keyring lookup for %s: %w", s.Account(), err)
			}
		}
	}
	if prompt != nil {
		secret, err := prompt(fmt.Sprintf("Password for %s: ", s.Account()))
		if err != nil {
			return err
		}
		if strings.TrimSpace(secret) != "" {
			s.Password = secret
			return nil
		}
	}
	return fmt.Errorf("%w for %s (use --password, %sPASSWORD or 'jamfctl credentials set')",
		ErrNoPassword, s.Account(), EnvPrefix)
}

// StorePassword saves the password of s in the keyring.
func StorePassword(kr Keyring, s Settings) error {
	if strings.TrimSpace(s.Password) == "" {
		return fmt.Errorf("%w: password is empty", session.ErrConfiguration)
	}
	if err := kr.Set(KeyringService, s.Account(), s.Password); err != nil {
		return fmt.Errorf("store password for %s: %w", s.Account(), err)
	}
	return nil
}

// DeletePassword removes the stored password of s. A missing entry is not
// an error.
func DeletePassword(kr Keyring, s Settings) error {
	err := kr.Delete(KeyringService, s.Account())
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete password for %s: %w", s.Account(), err)
	}
	return nil
}
