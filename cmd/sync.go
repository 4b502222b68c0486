package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/sync"
	"github.com/urfave/cli/v3"
)

// Sync runs one synchronization pass, for one user or the whole fleet.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	d, err := r.openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	service := sync.NewService(d.repos, d.factory, d.config.Sync, r.logger)

	if cmd.Bool("all") {
		service.SyncAllDueUsers(ctx)
		r.writePlain("fleet sync complete\n")
		return nil
	}

	user, err := r.resolveUser(d, cmd)
	if err != nil {
		return err
	}

	report, err := service.SyncUser(ctx, user, models.SyncManual)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	r.writePlain("sync %v for %v: %d records updated, %d skipped\n",
		report.Status, user.Username, report.Total(), report.SkippedTotal())
	for _, col := range report.Collections {
		if col.Failed() {
			r.writePlain("  %v: fetch failed (%v)\n", col.Collection, col.FetchErr)
			continue
		}
		r.writePlain("  %v: %d updated, %d skipped\n", col.Collection, col.Updated, len(col.Skipped))
	}
	return nil
}

// SyncSubjects refreshes the subject catalog using one user's credential.
func (r *Runner) SyncSubjects(ctx context.Context, cmd *cli.Command) error {
	d, err := r.openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	user, err := r.resolveUser(d, cmd)
	if err != nil {
		return err
	}

	service := sync.NewService(d.repos, d.factory, d.config.Sync, r.logger)
	report, err := service.SyncSubjects(ctx, user)
	if err != nil {
		return fmt.Errorf("subject sync failed: %w", err)
	}

	r.writePlain("subjects: %d updated, %d skipped\n", report.Updated, len(report.Skipped))
	return nil
}
