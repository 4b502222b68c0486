package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/wkmcp/internal/auth"
	"github.com/desertthunder/wkmcp/internal/server"
	"github.com/desertthunder/wkmcp/internal/sync"
	"github.com/desertthunder/wkmcp/internal/views"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP surface and, by default, the interval scheduler.
//
// The process drains on SIGINT/SIGTERM: the listener stops accepting,
// in-flight requests finish, then the scheduler is stopped so a running
// sync pass can complete.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	d, err := r.openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	serverCfg := d.config.Server
	if host := cmd.String("host"); host != "" {
		serverCfg.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		serverCfg.Port = int(port)
	}

	service := sync.NewService(d.repos, d.factory, d.config.Sync, r.logger)
	registrar := auth.NewRegistrar(d.repos.Users, d.factory, r.logger)
	builder := views.NewBuilder(d.repos.Users, d.repos.Assignments, d.repos.Stats, d.repos.Subjects, d.repos.Logs)

	srv := server.New(serverCfg, registrar, builder, service, r.logger)

	if !cmd.Bool("no-scheduler") {
		service.Start()
		defer service.Stop()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
