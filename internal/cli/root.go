// Package cli implements the jamfctl command tree.
package cli

import (
	"io"
	"net/http"
	"os"

	"github.com/Sternrassler/jamfctl/pkg/config"
	"github.com/Sternrassler/jamfctl/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Config wires the command tree to its environment.
type Config struct {
	ConfigPath string
	Out        io.Writer
	ErrOut     io.Writer
	In         io.Reader

	Keyring  config.Keyring
	Prompter config.Prompter
	Getenv   func(string) string

	// DotEnvFiles are loaded before the environment is read. Nil skips .env.
	DotEnvFiles []string

	// HTTPClient overrides the transport built from --insecure.
	HTTPClient *http.Client
}

// DefaultConfig returns the configuration used by the jamfctl binary.
func DefaultConfig() Config {
	return Config{
		ConfigPath:  config.DefaultPath(),
		Out:         os.Stdout,
		ErrOut:      os.Stderr,
		In:          os.Stdin,
		Keyring:     config.SystemKeyring{},
		Prompter:    config.TerminalPrompter(os.Stdin, os.Stderr),
		Getenv:      os.Getenv,
		DotEnvFiles: []string{".env"},
	}
}

type flagValues struct {
	configPath      string
	server          string
	port            int
	user            string
	password        string
	pretty          bool
	json            bool
	insecure        bool
	confirm         bool
	concurrency     int
	logLevel        string
	redisURL        string
	metricsTextfile string
}

type runtimeState struct {
	cfg      Config
	flags    flagValues
	settings config.Settings
}

// NewRootCommand builds the jamfctl command tree.
func NewRootCommand(cfg Config) *cobra.Command {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.ErrOut == nil {
		cfg.ErrOut = os.Stderr
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}
	rt := &runtimeState{cfg: cfg, flags: flagValues{configPath: cfg.ConfigPath}}

	root := &cobra.Command{
		Use:           "jamfctl",
		Short:         "Query and manage a Jamf Pro server through its Classic API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return rt.resolve(cmd.Flags())
		},
	}
	root.SetOut(cfg.Out)
	root.SetErr(cfg.ErrOut)
	root.SetIn(cfg.In)

	pf := root.PersistentFlags()
	pf.StringVar(&rt.flags.configPath, "config", rt.flags.configPath, "Path to config file")
	pf.StringVarP(&rt.flags.server, "server", "s", "", "Jamf Pro server address")
	pf.IntVar(&rt.flags.port, "port", 0, "Server port (default 8443, 443 for jamfcloud.com, 8080 with --insecure)")
	pf.StringVarP(&rt.flags.user, "user", "u", "", "API username")
	pf.StringVarP(&rt.flags.password, "password", "p", "", "API password (prefer the keyring, see 'credentials set')")
	pf.BoolVar(&rt.flags.pretty, "pretty", false, "Pretty print response bodies")
	pf.BoolVar(&rt.flags.json, "json", false, "Request JSON instead of XML")
	pf.BoolVar(&rt.flags.insecure, "insecure", false, "Use plain http and skip TLS verification")
	pf.BoolVarP(&rt.flags.confirm, "confirm", "c", false, "Skip the confirmation prompt for deletes")
	pf.IntVar(&rt.flags.concurrency, "concurrency", config.DefaultConcurrency, "Maximum requests in flight, 0 for unbounded")
	pf.StringVar(&rt.flags.logLevel, "log-level", string(logging.LevelWarn), "Log level: debug, info, warn, error, off")
	pf.StringVar(&rt.flags.redisURL, "redis-url", "", "Share the concurrency limit through Redis (redis://host:port/db)")
	pf.StringVar(&rt.flags.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")

	root.AddCommand(newResourceCommands(rt)...)
	root.AddCommand(
		newCredentialsCommand(rt),
		newVersionCommand(cfg.Out),
	)

	return root
}

// resolve layers config file, environment and flags into rt.settings.
func (rt *runtimeState) resolve(flags *pflag.FlagSet) error {
	if rt.cfg.DotEnvFiles != nil {
		if err := config.LoadDotEnv(rt.cfg.DotEnvFiles...); err != nil {
			return err
		}
	}

	var file *config.File
	var err error
	if flags.Changed("config") {
		file, err = config.LoadFile(rt.flags.configPath)
	} else {
		file, err = config.LoadFileIfExists(rt.flags.configPath)
	}
	if err != nil {
		return err
	}

	env, err := config.FromEnv(rt.cfg.Getenv)
	if err != nil {
		return err
	}

	settings, err := config.Resolve(file, env, rt.flagOverrides(flags))
	if err != nil {
		return err
	}
	rt.settings = settings

	logging.Setup(logging.Config{Level: settings.LogLevel, Pretty: true, Output: rt.cfg.ErrOut})
	return nil
}

// flagOverrides returns the flags the user actually set.
func (rt *runtimeState) flagOverrides(flags *pflag.FlagSet) config.Overrides {
	var o config.Overrides
	f := &rt.flags
	if flags.Changed("server") {
		o.Server = &f.server
	}
	if flags.Changed("port") {
		o.Port = &f.port
	}
	if flags.Changed("user") {
		o.Username = &f.user
	}
	if flags.Changed("password") {
		o.Password = &f.password
	}
	if flags.Changed("insecure") {
		o.Insecure = &f.insecure
	}
	if flags.Changed("json") {
		o.JSON = &f.json
	}
	if flags.Changed("pretty") {
		o.Pretty = &f.pretty
	}
	if flags.Changed("concurrency") {
		o.Concurrency = &f.concurrency
	}
	if flags.Changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	if flags.Changed("redis-url") {
		o.RedisURL = &f.redisURL
	}
	if flags.Changed("metrics-textfile") {
		o.MetricsTextfile = &f.metricsTextfile
	}
	return o
}
