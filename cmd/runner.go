package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/repositories"
	"github.com/desertthunder/wkmcp/internal/shared"
	"github.com/desertthunder/wkmcp/internal/sync"
	"github.com/desertthunder/wkmcp/internal/wanikani"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger  *log.Logger
	output  io.Writer
	factory sync.ClientFactory
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
	// Factory overrides the upstream client constructor in tests.
	Factory sync.ClientFactory
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		logger:  opts.Logger,
		output:  opts.Output,
		factory: opts.Factory,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, registerCommand, syncCommand, serveCommand,
		statusCommand, leechesCommand, forecastCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// deps bundles everything a command needs once the database is open.
type deps struct {
	config  *shared.Config
	db      *sql.DB
	repos   sync.Repos
	factory sync.ClientFactory
}

func (d *deps) Close() error { return d.db.Close() }

// loadConfig reads the config file named by the command's --config flag,
// falling back to defaults when it is absent.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err != nil {
		return shared.DefaultConfig()
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// openDeps opens the configured database and wires the repository set.
func (r *Runner) openDeps(cmd *cli.Command) (*deps, error) {
	config := r.loadConfig(cmd)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	factory := r.factory
	if factory == nil {
		limiter := wanikani.NewLimiter(config.WaniKani.RateLimit, wanikani.DefaultRateWindow)
		factory = sync.NewClientFactory(config.WaniKani.BaseURL, limiter)
	}

	return &deps{
		config: config,
		db:     db,
		repos: sync.Repos{
			Users:       repositories.NewUserRepository(db),
			Assignments: repositories.NewAssignmentRepository(db),
			Stats:       repositories.NewReviewStatisticRepository(db),
			Subjects:    repositories.NewSubjectRepository(db),
			Logs:        repositories.NewSyncLogRepository(db),
		},
		factory: factory,
	}, nil
}

// resolveUser finds the target user for a per-user command. With no
// --user flag it falls back to the sole registered user.
func (r *Runner) resolveUser(d *deps, cmd *cli.Command) (*models.User, error) {
	if username := cmd.String("user"); username != "" {
		return d.repos.Users.GetByUsername(username)
	}

	users, err := d.repos.Users.List()
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, fmt.Errorf("%w: no registered users, run register first", shared.ErrNotFound)
	case 1:
		return users[0], nil
	default:
		return nil, fmt.Errorf("%w: multiple users registered, pass --user", shared.ErrMissingArgument)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
