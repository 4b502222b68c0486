package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/wkmcp/internal/auth"
	"github.com/desertthunder/wkmcp/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	d, err := r.openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	r.logger.Info("running database migrations", "path", d.config.Database.Path)
	if err := shared.RunMigrations(d.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", d.config.Database.Path)
	return nil
}

// Register validates a WaniKani token upstream and issues a local API key.
func (r *Runner) Register(ctx context.Context, cmd *cli.Command) error {
	d, err := r.openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	registrar := auth.NewRegistrar(d.repos.Users, d.factory, r.logger)
	user, apiKey, err := registrar.Register(ctx, cmd.String("token"))
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	r.writePlain("Registered %v (level %d)\n", user.Username, user.Level)
	r.writePlain("API key: %v\n", apiKey)
	r.writePlain("Store it now; only a hash is kept locally.\n")
	return nil
}
