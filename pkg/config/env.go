package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable jamfctl reads.
const EnvPrefix = "JAMFCTL_"

// LoadDotEnv loads variables from the given files (".env" when none) without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv builds an override layer from JAMFCTL_* variables using getenv.
func FromEnv(getenv func(string) string) (Overrides, error) {
	var o Overrides
	str := func(name string) *string {
		if v := strings.TrimSpace(getenv(EnvPrefix + name)); v != "" {
			return &v
		}
		return nil
	}
	var errs []error
	boolean := func(name string) *bool {
		v := str(name)
		if v == nil {
			return nil
		}
		b, err := strconv.ParseBool(*v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return nil
		}
		return &b
	}
	integer := func(name string) *int {
		v := str(name)
		if v == nil {
			return nil
		}
		n, err := strconv.Atoi(*v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return nil
		}
		return &n
	}

	o.Server = str("SERVER")
	o.Port = integer("PORT")
	o.Username = str("USER")
	o.Password = str("PASSWORD")
	o.Insecure = boolean("INSECURE")
	o.JSON = boolean("JSON")
	o.Pretty = boolean("PRETTY")
	o.Concurrency = integer("CONCURRENCY")
	o.LogLevel = str("LOG_LEVEL")
	o.RedisURL = str("REDIS_URL")
	o.MetricsTextfile = str("METRICS_TEXTFILE")

	return o, errors.Join(errs...)
}
