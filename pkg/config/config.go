// Package config resolves jamfctl settings from flags, environment, an
// optional .env file, a YAML config file and the OS keyring.
//
// Precedence, highest first: flags, JAMFCTL_* environment variables
// (including those loaded from .env), the config file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/jamfctl/pkg/logging"
	"github.com/Sternrassler/jamfctl/pkg/output"
	"github.com/Sternrassler/jamfctl/pkg/session"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDirName = "jamfctl"
	defaultConfigFile    = "config.yaml"

	// DefaultConcurrency bounds in-flight sub-requests unless overridden.
	DefaultConcurrency = 20
)

// File is the on-disk configuration.
type File struct {
	Server          string `yaml:"server,omitempty"`
	Port            int    `yaml:"port,omitempty"`
	Username        string `yaml:"username,omitempty"`
	Password        string `yaml:"password,omitempty"`
	Insecure        bool   `yaml:"insecure,omitempty"`
	JSON            bool   `yaml:"json,omitempty"`
	Pretty          bool   `yaml:"pretty,omitempty"`
	Concurrency     *int   `yaml:"concurrency,omitempty"`
	LogLevel        string `yaml:"log-level,omitempty"`
	RedisURL        string `yaml:"redis-url,omitempty"`
	MetricsTextfile string `yaml:"metrics-textfile,omitempty"`
}

// Settings is the fully resolved configuration of one invocation.
type Settings struct {
	Server          string
	Port            int
	Username        string
	Password        string
	Insecure        bool
	JSON            bool
	Pretty          bool
	Concurrency     int
	LogLevel        logging.LogLevel
	RedisURL        string
	MetricsTextfile string
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Concurrency: DefaultConcurrency,
		LogLevel:    logging.LevelWarn,
	}
}

// Overrides is one configuration layer. Nil fields leave lower layers alone.
type Overrides struct {
	Server          *string
	Port            *int
	Username        *string
	Password        *string
	Insecure        *bool
	JSON            *bool
	Pretty          *bool
	Concurrency     *int
	LogLevel        *string
	RedisURL        *string
	MetricsTextfile *string
}

// DefaultPath returns $JAMFCTL_CONFIG or <user config dir>/jamfctl/config.yaml.
func DefaultPath() string {
	if env := os.Getenv(EnvPrefix + "CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".jamfctl", defaultConfigFile)
}

// LoadFile reads a YAML config file. A missing file yields os.ErrNotExist.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &f, nil
}

// LoadFileIfExists is LoadFile treating a missing file as empty.
func LoadFileIfExists(path string) (*File, error) {
	f, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{}, nil
	}
	return f, err
}

// SaveFile writes f to path with owner-only permissions.
func SaveFile(path string, f *File) error {
	if f == nil {
		return errors.New("config is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

// Resolve merges defaults, the file and each override layer in order.
func Resolve(f *File, layers ...Overrides) (Settings, error) {
	s := DefaultSettings()
	if f != nil {
		s.applyFile(f)
	}
	for _, l := range layers {
		s.apply(l)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyFile(f *File) {
	if f.Server != "" {
		s.Server = f.Server
	}
	if f.Port != 0 {
		s.Port = f.Port
	}
	if f.Username != "" {
		s.Username = f.Username
	}
	if f.Password != "" {
		s.Password = f.Password
	}
	s.Insecure = s.Insecure || f.Insecure
	s.JSON = s.JSON || f.JSON
	s.Pretty = s.Pretty || f.Pretty
	if f.Concurrency != nil {
		s.Concurrency = *f.Concurrency
	}
	if f.LogLevel != "" {
		s.LogLevel = logging.LogLevel(f.LogLevel)
	}
	if f.RedisURL != "" {
		s.RedisURL = f.RedisURL
	}
	if f.MetricsTextfile != "" {
		s.MetricsTextfile = f.MetricsTextfile
	}
}

func (s *Settings) apply(o Overrides) {
	setString(&s.Server, o.Server)
	if o.Port != nil {
		s.Port = *o.Port
	}
	setString(&s.Username, o.Username)
	setString(&s.Password, o.Password)
	setBool(&s.Insecure, o.Insecure)
	setBool(&s.JSON, o.JSON)
	setBool(&s.Pretty, o.Pretty)
	if o.Concurrency != nil {
		s.Concurrency = *o.Concurrency
	}
	if o.LogLevel != nil {
		s.LogLevel = logging.LogLevel(*o.LogLevel)
	}
	setString(&s.RedisURL, o.RedisURL)
	setString(&s.MetricsTextfile, o.MetricsTextfile)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks the settings that do not need a server round trip.
// The password is checked later since it may come from the keyring.
func (s *Settings) Validate() error {
	s.Server = strings.TrimSpace(s.Server)
	s.Username = strings.TrimSpace(s.Username)

	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", session.ErrConfiguration, s.Port)
	}
	if s.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must be >= 0 (got %d)", session.ErrConfiguration, s.Concurrency)
	}
	level, err := logging.ParseLevel(string(s.LogLevel))
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrConfiguration, err)
	}
	s.LogLevel = level
	return nil
}

// RequireConnection reports whether server and username are set.
func (s Settings) RequireConnection() error {
	if s.Server == "" {
		return fmt.Errorf("%w: server is required (--server or %sSERVER)", session.ErrConfiguration, EnvPrefix)
	}
	if s.Username == "" {
		return fmt.Errorf("%w: username is required (--user or %sUSER)", session.ErrConfiguration, EnvPrefix)
	}
	return nil
}

// Format returns the requested body format.
func (s Settings) Format() output.Format {
	if s.JSON {
		return output.FormatJSON
	}
	return output.FormatXML
}

// SessionConfig converts the settings for session.New.
func (s Settings) SessionConfig() session.Config {
	return session.Config{
		Server:   s.Server,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		Insecure: s.Insecure,
	}
}
