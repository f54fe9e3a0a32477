// Package main implements the modelapi command: it serves every registered
// model as a JSON:API resource and provides the database and token tooling
// around it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/modelapi/internal/platform/migrations"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "modelapi",
		Short:        "Generic JSON:API server for registered models",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"Path to a config file (default ./config.yaml when present)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newOpenAPICmd(opts),
		newTokenCmd(opts),
		newCreateUserCmd(opts),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	app, err := newApplication(cmd.Context(), opts.configFile)
	if err != nil {
		return err
	}
	defer app.cleanup()

	if app.config.Database.AutoMigrate {
		if err := app.migrate(cmd.Context(), "up"); err != nil {
			return err
		}
	}
	return app.Run(cmd.Context())
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|reset|redo|status|version]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrations.Commands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			app, err := newApplication(cmd.Context(), opts.configFile)
			if err != nil {
				return err
			}
			defer app.cleanup()
			return app.migrate(cmd.Context(), command)
		},
	}
}

func newOpenAPICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document of the registered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), opts.configFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.cleanup()

			data, err := app.openAPI(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Mint an access token for SUBJECT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), opts.configFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.cleanup()

			token, err := app.mintToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}

func newCreateUserCmd(opts *rootOptions) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an enabled user that can request tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), opts.configFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.cleanup()

			id, err := app.createUser(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s\n", id)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Login password (at least 12 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
