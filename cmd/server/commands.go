package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/config"
	"github.com/phrazzld/apiview/internal/platform/logger"
	"github.com/phrazzld/apiview/internal/platform/postgres"
	"github.com/phrazzld/apiview/internal/service"
	"github.com/phrazzld/apiview/internal/service/auth"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "apiview",
		Short:         "JSON API server with token authentication and per-method permissions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to a config file (default ./config.yaml)")

	root.AddCommand(
		serveCmd(opts),
		migrateCmd(opts),
		tokenCmd(opts),
		createUserCmd(opts),
		hashPasswordCmd(opts),
	)
	return root
}

// load reads configuration and installs the default logger writing to logs.
// Maintenance commands log to stderr so stdout carries only their output.
func (o *rootOptions) load(logs io.Writer) (*config.Config, *slog.Logger, error) {
	var loadOpts []config.Option
	if o.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(o.configFile))
	}

	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.SetupWithWriter(cfg.Server, logs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Debug("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_url_present", cfg.Database.URL != "",
		"redis_present", cfg.Cache.RedisAddr != "")
	return cfg, l, nil
}

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := opts.load(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			app, err := newApplication(cmd.Context(), cfg, l)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|reset|status|version]",
		Short:     "Run database migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			cfg, l, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("migrate needs database.url (APIVIEW_DATABASE_URL)")
			}

			db, err := postgres.Open(cmd.Context(), cfg.Database.URL, l)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return postgres.Migrate(cmd.Context(), db, command, l)
		},
	}
}

func tokenCmd(opts *rootOptions) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed token for a user ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := uuid.Parse(subject); err != nil {
				return fmt.Errorf("--subject must be a user UUID: %w", err)
			}

			cfg, _, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			codec, err := auth.NewCodec(cfg.Auth)
			if err != nil {
				return err
			}

			token, expiresAt, err := codec.GenerateToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format("2006-01-02T15:04:05Z"))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user ID to put in the sub claim")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func createUserCmd(opts *rootOptions) *cobra.Command {
	var params service.CreateUserParams

	cmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create an account in the configured user store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("createuser needs database.url; the in-memory store does not outlive the command")
			}

			users, db, err := openUserStore(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			svc := service.NewUserService(users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), db, l)
			return createUser(cmd, svc, params)
		},
	}
	cmd.Flags().StringVar(&params.Username, "username", "", "login name")
	cmd.Flags().StringVar(&params.Email, "email", "", "optional email address")
	cmd.Flags().StringVar(&params.Password, "password", "", "plaintext password (8 to 72 characters)")
	cmd.Flags().BoolVar(&params.Superuser, "superuser", false, "grant superuser rights")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func createUser(cmd *cobra.Command, users service.UserService, params service.CreateUserParams) error {
	user, err := users.CreateUser(contextOf(cmd), params)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), user.ID.String())
	return nil
}

func hashPasswordCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hashpassword PASSWORD...",
		Short: "Print bcrypt hashes at the configured cost",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
			for _, password := range args {
				hash, err := hasher.Hash(password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
			}
			return nil
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
