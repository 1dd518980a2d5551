// Package cli defines the contactsd command tree.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go-contacts-api/internal/app"
	"go-contacts-api/internal/config"
	"go-contacts-api/internal/logger"
	"go-contacts-api/internal/model"
)

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the HTTP server.
func NewRootCommand() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "contactsd",
		Short:         "Contacts API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))
			return nil
		},
	}

	serve := func(cmd *cobra.Command, args []string) error {
		application, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		return application.Run()
	}
	root.RunE = serve

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(newCreateUserCommand(func() *config.Config { return cfg }))

	return root
}

func newCreateUserCommand(cfg func() *config.Config) *cobra.Command {
	var username, email, password, role string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a confirmed account with an elevated role",
		Long: `Create a confirmed account directly in the database. This is the only
way to obtain the admin or moderator role.

	contactsd create-admin --email root@example.com --username root --password s3cret!`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := model.ParseRole(role); !ok {
				return fmt.Errorf("--role must be one of admin, moderator, user")
			}
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if password == "" {
				return errors.New("--password or ADMIN_PASSWORD is required")
			}
			return app.CreateUser(cmd.Context(), cfg(), username, email, password, role)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "admin", "display name")
	cmd.Flags().StringVar(&password, "password", "", "account password (defaults to $ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "role: admin, moderator or user")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
