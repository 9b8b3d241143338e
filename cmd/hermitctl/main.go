package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	gomigrate "github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/EightfoldWitch/the-hermit/internal/app"
	"github.com/EightfoldWitch/the-hermit/internal/config"
	"github.com/EightfoldWitch/the-hermit/internal/database"
	"github.com/EightfoldWitch/the-hermit/internal/database/migrate"
	"github.com/EightfoldWitch/the-hermit/internal/logger"
	"github.com/EightfoldWitch/the-hermit/internal/models"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hermitctl",
		Short:         "Administrative tasks for the hermit backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newCreateUserCommand())
	cmd.AddCommand(newPurgeSessionsCommand())
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.Env)
	return cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newMigrateStepCommand("up", "Apply all pending migrations", migrate.Up))
	cmd.AddCommand(newMigrateStepCommand("down", "Roll back every migration", migrate.Down))
	return cmd
}

func newMigrateStepCommand(use, short string, step func(db *sql.DB, driver string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(commandContext(cmd), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := step(db, cfg.Database.Driver); err != nil {
				return err
			}
			version, dirty, err := migrate.Version(db, cfg.Database.Driver)
			if errors.Is(err, gomigrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}

func newCreateUserCommand() *cobra.Command {
	var (
		username string
		password string
		role     string
		email    string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an active account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != models.RoleUser && role != models.RoleAdmin {
				return fmt.Errorf("role must be %q or %q", models.RoleUser, models.RoleAdmin)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.New(commandContext(cmd), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			user := &models.User{
				Username: username,
				Email:    email,
				Name:     name,
				Role:     role,
				State:    models.UserStateActive,
			}
			if err := a.Users.CreateUser(commandContext(cmd), user, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %q with id %d\n", user.Role, user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Login name")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringVar(&role, "role", models.RoleUser, "Account role (user or admin)")
	cmd.Flags().StringVar(&email, "email", "", "Contact email")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newPurgeSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired sessions from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.New(commandContext(cmd), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Sessions.RefreshCache(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d live sessions remain\n", a.Sessions.CachedSessions())
			return nil
		},
	}
}
