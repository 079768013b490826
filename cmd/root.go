package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fbz-tec/crudx/core/config"
	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/internal/logger"
	"github.com/spf13/cobra"

	// backends register themselves with the crud core
	_ "github.com/fbz-tec/crudx/core/api"
	_ "github.com/fbz-tec/crudx/core/db"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitUsage        = 2
	exitNotFound     = 3
	exitConnect      = 4
	exitStoreFailure = 5
)

// globalOptions are the connection and output flags shared by every command.
type globalOptions struct {
	configPath string
	backend    string
	endpoint   string
	user       string
	password   string
	options    []string
	timeout    time.Duration
	migrate    bool
	verbose    bool
	quiet      bool
}

// usageError marks bad flags, arguments or configuration.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "crudx",
		Short: "Create, read, update and delete users in SQLite, PostgreSQL, MySQL or over HTTP",
		Long: `crudx manages a collection of users {id, name, age} through one of several
interchangeable backends:

 • sqlite   - local database file (default: crudx.db)
 • postgres - PostgreSQL server via pgx
 • mysql    - MySQL / MariaDB server
 • http     - a JSON API exposing /items

Connection settings come from defaults, an optional YAML file (--config),
.env / CRUDX_* environment variables and finally flags.`,
		Example: `  # Create and list users in the local SQLite file
  crudx create --name Alice --age 30
  crudx list

  # Same against PostgreSQL, creating the table on first use
  crudx -b postgres -e postgres://localhost:5432/app -u app -p secret --migrate list

  # Talk to an HTTP API with a bearer token
  crudx -b http -e https://api.example.com/v1 -O token=abc get 42

  # Export all users to compressed JSON
  crudx export -o users.json -f json -z gzip`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose && opts.quiet {
				return usagef("cannot use --verbose and --quiet together")
			}
			logger.SetQuiet(opts.quiet)
			logger.SetVerbose(opts.verbose)
			logger.Debug("Verbose mode enabled")
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.SortFlags = false
	pf.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	pf.StringVarP(&opts.backend, "backend", "b", config.DefaultBackend, "Backend: "+backendList())
	pf.StringVarP(&opts.endpoint, "endpoint", "e", config.DefaultEndpoint, "Store location (file path, DSN, host[:port] or URL)")
	pf.StringVarP(&opts.user, "user", "u", "", "Username")
	pf.StringVarP(&opts.password, "password", "p", "", "Password")
	pf.StringArrayVarP(&opts.options, "option", "O", nil, "Backend option key=value (repeatable)")
	pf.DurationVar(&opts.timeout, "timeout", config.DefaultTimeout, "Connection timeout")
	pf.BoolVar(&opts.migrate, "migrate", false, "Create the users table if missing (SQL backends)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output with detailed information")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "Only display error messages")

	root.AddCommand(
		newListCmd(opts),
		newGetCmd(opts),
		newCreateCmd(opts),
		newUpdateCmd(opts),
		newDeleteCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and exits with a code describing the outcome. It is
// the only place the process exits.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if err == nil {
		return exitOK
	}

	code, msg := describeError(err)
	logger.Error("%s", msg)
	return code
}

// describeError maps an error to its exit code and a message prefixed by the
// failure kind.
func describeError(err error) (int, string) {
	var ce *crud.ConnectError
	var ue *usageError

	switch {
	case errors.As(err, &ce):
		switch ce.Kind {
		case crud.AuthFailed:
			return exitConnect, fmt.Sprintf("Authentication failed: %v", err)
		case crud.ProtocolMismatch:
			return exitConnect, fmt.Sprintf("Cannot talk to store: %v", err)
		default:
			return exitConnect, fmt.Sprintf("Store unreachable: %v", err)
		}
	case errors.As(err, &ue):
		return exitUsage, fmt.Sprintf("Invalid usage: %v", err)
	case errors.Is(err, crud.ErrValidation):
		return exitUsage, fmt.Sprintf("Invalid input: %v", err)
	case errors.Is(err, crud.ErrNotFound):
		return exitNotFound, fmt.Sprintf("Not found: %v", err)
	case errors.Is(err, crud.ErrSerialization):
		return exitStoreFailure, fmt.Sprintf("Malformed data from store: %v", err)
	case errors.Is(err, crud.ErrBackend):
		return exitStoreFailure, fmt.Sprintf("Store operation failed: %v", err)
	default:
		return exitFailure, fmt.Sprintf("Error: %v", err)
	}
}

// connectionConfig resolves the configuration: file and environment first,
// then every flag the user actually set.
func (o *globalOptions) connectionConfig(cmd *cobra.Command) (config.ConnectionConfig, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return cfg, &usageError{err: fmt.Errorf("configuration error: %w", err)}
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = o.backend
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = o.endpoint
	}
	if flags.Changed("user") {
		cfg.Credentials.User = o.user
	}
	if flags.Changed("password") {
		cfg.Credentials.Password = o.password
		logger.Debug("Overriding password from flag (hidden)")
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}

	extra, err := config.ParseOptions(o.options)
	if err != nil {
		return cfg, &usageError{err: err}
	}
	for k, v := range extra {
		cfg.SetOption(k, v)
	}
	if flags.Changed("migrate") {
		cfg.SetOption("migrate", strconv.FormatBool(o.migrate))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, &usageError{err: fmt.Errorf("configuration error: %w", err)}
	}
	logger.Debug("Configuration loaded: %s", cfg)
	return cfg, nil
}

// withConn resolves the configuration and runs fn on a fresh connection.
func (o *globalOptions) withConn(cmd *cobra.Command, fn func(ctx context.Context, conn *crud.Conn) error) error {
	cfg, err := o.connectionConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return crud.WithConn(ctx, cfg, func(conn *crud.Conn) error {
		return fn(ctx, conn)
	})
}

func backendList() string {
	return strings.Join(crud.Backends(), ", ")
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("%s expects %d argument(s), got %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

// requireFlags fails unless every named flag was set explicitly.
func requireFlags(cmd *cobra.Command, names ...string) error {
	var missing []string
	for _, n := range names {
		if !cmd.Flags().Changed(n) {
			missing = append(missing, "--"+n)
		}
	}
	if len(missing) > 0 {
		return usagef("required flag(s) %s not set", strings.Join(missing, ", "))
	}
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, usagef("invalid id %q: must be an integer", arg)
	}
	return id, nil
}
