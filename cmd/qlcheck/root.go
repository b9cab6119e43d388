package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/qlcheck/internal/config"
	"github.com/gyeh/qlcheck/internal/exitcode"
	"github.com/gyeh/qlcheck/internal/logging"
)

// exitError carries the process exit code out of a command. A nil err means
// the command already reported everything it had to say.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	return &exitError{code: code, err: err}
}

// app is the state shared by all subcommands of one invocation.
type app struct {
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "qlcheck",
		Short:         "Groonga log crash checker",
		Long:          "Reads Groonga general and query logs, reconstructs process lifetimes, and reports crashes, leaks, and writes that were never flushed.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.ConfigPath != "" {
				if err := a.cfg.LoadFromFile(a.cfg.ConfigPath, cmd.Flags().Changed); err != nil {
					return fail(exitcode.UsageError, err)
				}
			}
			if err := a.cfg.Validate(); err != nil {
				return fail(exitcode.UsageError, err)
			}
			level, err := logging.ParseLogLevel(a.cfg.LogLevel)
			if err != nil {
				return fail(exitcode.UsageError, err)
			}
			a.log = logging.New(a.stderr, a.cfg.LogFormat, level)
			return nil
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fail(exitcode.UsageError, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&a.cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&a.cfg.ConfigPath, "config", "", "YAML file with defaults for output_level, timezone, store_dsn, output")
	pf.StringVar(&a.cfg.Timezone, "timezone", "", "IANA time zone the logs are written in (default local)")

	root.AddCommand(newCheckCrashCmd(a), newExtractCmd(a), newMigrateCmd(a))
	return root
}

// execute runs one invocation and returns its exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, log: zerolog.Nop()}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitcode.Success
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "Error:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitcode.UsageError
}

// usage prints the command help to stdout and fails.
func usage(cmd *cobra.Command, stdout io.Writer) error {
	fmt.Fprint(stdout, cmd.UsageString())
	return fail(exitcode.UsageError, nil)
}

func storeDSNDefault() string {
	return os.Getenv("QLCHECK_STORE_DSN")
}
