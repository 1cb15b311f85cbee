package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/jamfctl/pkg/client"
	"github.com/Sternrassler/jamfctl/pkg/config"
	"github.com/Sternrassler/jamfctl/pkg/endpoints"
	"github.com/Sternrassler/jamfctl/pkg/ids"
	"github.com/Sternrassler/jamfctl/pkg/logging"
	"github.com/Sternrassler/jamfctl/pkg/metrics"
	"github.com/Sternrassler/jamfctl/pkg/operation"
	"github.com/Sternrassler/jamfctl/pkg/output"
	"github.com/Sternrassler/jamfctl/pkg/ratelimit"
	"github.com/Sternrassler/jamfctl/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// ErrFailures is returned when at least one sub-request failed. The
// individual errors have already been printed.
var ErrFailures = errors.New("one or more requests failed")

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, session.ErrConfiguration),
		errors.Is(err, ids.ErrInvalidArgument),
		errors.Is(err, operation.ErrInvalidDescriptor),
		errors.Is(err, config.ErrNoPassword):
		return 2
	default:
		return 1
	}
}

// run executes one catalog action with the resolved settings.
func (rt *runtimeState) run(cmd *cobra.Command, action endpoints.Action, in endpoints.Input) error {
	s := rt.settings
	logger := logging.NewLogger("cli")

	if s.MetricsTextfile != "" {
		defer func() {
			if err := metrics.WriteTextfile(s.MetricsTextfile, nil); err != nil {
				logger.Warn().Err(err).Msg("Failed to write metrics textfile")
			}
		}()
	}

	if err := s.RequireConnection(); err != nil {
		return err
	}
	op, err := action.Descriptor(in)
	if err != nil {
		return err
	}

	if action.Destructive() && !rt.flags.confirm {
		ok, err := Confirm(rt.cfg.In, rt.cfg.ErrOut, op.Count())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(rt.cfg.ErrOut, "Aborted.")
			return nil
		}
	}

	if err := s.ResolvePassword(rt.cfg.Keyring, rt.cfg.Prompter); err != nil {
		return err
	}
	sess, err := session.New(s.SessionConfig())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, closeFn, err := rt.newClient(ctx, sess)
	if err != nil {
		return err
	}
	defer closeFn()

	ch, err := c.Execute(ctx, op)
	if err != nil {
		return err
	}

	printer := output.NewPrinter(rt.cfg.Out, s.Format(), s.Pretty)
	rep := output.Drain(ch, printer, rt.cfg.ErrOut)
	if !s.Pretty && rep.Succeeded > 0 {
		fmt.Fprintln(rt.cfg.Out)
	}

	if !rep.OK() {
		return fmt.Errorf("%w: %d of %d", ErrFailures, rep.Failed, rep.Failed+rep.Succeeded)
	}
	return nil
}

// newClient builds the client, sharing the concurrency limit through Redis
// when a URL is configured.
func (rt *runtimeState) newClient(ctx context.Context, sess *session.Session) (*client.Client, func(), error) {
	s := rt.settings

	cfg := client.DefaultConfig(sess)
	cfg.HTTPClient = rt.cfg.HTTPClient
	cfg.MaxConcurrency = s.Concurrency
	if s.JSON {
		cfg.Accept = client.AcceptJSON
	}

	var rdb *redis.Client
	if s.RedisURL != "" {
		if s.Concurrency <= 0 {
			return nil, nil, fmt.Errorf("%w: --redis-url requires --concurrency > 0", session.ErrConfiguration)
		}
		opts, err := redis.ParseURL(s.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: redis url: %v", session.ErrConfiguration, err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		limiter, err := ratelimit.NewRedis(rdb, sess.BaseURL(), s.Concurrency, logging.NewLogger("ratelimit"))
		if err != nil {
			rdb.Close()
			return nil, nil, err
		}
		cfg.Limiter = limiter
	}

	c, err := client.New(cfg)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, nil, err
	}

	return c, func() {
		c.Close()
		if rdb != nil {
			rdb.Close()
		}
	}, nil
}

// Confirm asks before deleting n records. Only "y" (any case) confirms.
func Confirm(in io.Reader, out io.Writer, n int) (bool, error) {
	fmt.Fprintf(out, "Confirm you wish to DELETE %d record(s): (Y/N): ", n)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}
