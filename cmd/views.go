package main

import (
	"context"
	"time"

	"github.com/desertthunder/wkmcp/internal/views"
	"github.com/urfave/cli/v3"
)

func (r *Runner) builder(d *deps) *views.Builder {
	return views.NewBuilder(d.repos.Users, d.repos.Assignments, d.repos.Stats, d.repos.Subjects, d.repos.Logs)
}

// Status prints the current study snapshot for a user.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	d, err := r.openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	user, err := r.resolveUser(d, cmd)
	if err != nil {
		return err
	}

	status, err := r.builder(d).Status(user.ID, time.Now())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}
	return r.writePlain("%v\n", views.RenderStatus(status))
}

// Leeches prints the items failing the most reviews.
func (r *Runner) Leeches(ctx context.Context, cmd *cli.Command) error {
	d, err := r.openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	user, err := r.resolveUser(d, cmd)
	if err != nil {
		return err
	}

	leeches, err := r.builder(d).Leeches(user.ID, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(leeches, true)
	}
	return r.writePlain("%v\n", views.RenderLeeches(leeches))
}

// Forecast prints upcoming review volume bucketed by hour.
func (r *Runner) Forecast(ctx context.Context, cmd *cli.Command) error {
	d, err := r.openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	user, err := r.resolveUser(d, cmd)
	if err != nil {
		return err
	}

	forecast, err := r.builder(d).Forecast(user.ID, time.Now(), views.ForecastHorizon)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(forecast, true)
	}
	return r.writePlain("%v\n", views.RenderForecast(forecast))
}
