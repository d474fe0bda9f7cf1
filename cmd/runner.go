package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pricepal/internal/identity"
	"github.com/desertthunder/pricepal/internal/repositories"
	"github.com/desertthunder/pricepal/internal/services"
	"github.com/desertthunder/pricepal/internal/session"
	"github.com/desertthunder/pricepal/internal/shared"
	"github.com/desertthunder/pricepal/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Backend and session components are built lazily so that commands like "setup" work
// before a config or database exists.
type Runner struct {
	config     *shared.Config
	pinned     bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	provider   identity.Provider

	db        *sql.DB
	api       *services.APIService
	tracker   *services.Tracker
	notifier  *tasks.Notifier
	session   *session.Store
	lookup    *tasks.ProductLookup
	submitter *tasks.TrackingSubmitter
	cart      *tasks.CartSync
	account   *tasks.Account
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	// Config, when set, is used as-is and the --config flag is ignored.
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Identity replaces the Firebase provider built from the config.
	Identity identity.Provider
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	pinned := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		pinned:     pinned,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		provider:   opts.Identity,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, productCommand, cartCommand, accountCommand, apiCommand, healthCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config and applies --verbose.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.pinned {
		return ctx, nil
	}

	config, err := shared.LoadConfigOrDefault(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.logger.Debug("configuration loaded", "path", cmd.String("config"), "backend", config.Backend.BaseURL)
	return ctx, nil
}

// After waits, bounded, for background notifications and releases the database.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close drains the notifier for at most the notification timeout, reports failed
// notifications, and closes the database. It is safe to call more than once.
func (r *Runner) Close() error {
	if r.notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.config.Backend.NotificationTimeout())
		if !r.notifier.Wait(ctx) {
			r.logger.Warn("exiting with notifications still pending")
		}
		cancel()

	drain:
		for {
			select {
			case f := <-r.notifier.Failures():
				r.logger.Debug("notification not delivered", "name", f.Name, "error", f.Err)
			default:
				break drain
			}
		}
	}

	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		if err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}

// SetLogger swaps the logger for every component built afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// backend builds the REST client and notifier.
func (r *Runner) backend() {
	if r.api != nil {
		return
	}

	cfg := r.config.Backend
	r.api = services.NewAPIService(cfg.BaseURL, services.APIOpts{
		HTTPClient:        r.httpClient,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            shared.WithLogger(r.logger, "component", "api"),
	})
	r.tracker = services.NewTracker(r.api)
	r.notifier = tasks.NewNotifier(cfg.NotificationTimeout(), shared.WithLogger(r.logger, "component", "notifier"))
}

// wire builds every component a signed-in command needs and restores the persisted session.
func (r *Runner) wire(ctx context.Context) error {
	if r.session != nil {
		return nil
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	r.backend()

	if r.db == nil {
		db, err := shared.OpenStore(ctx, r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}
		r.db = db
	}

	if r.provider == nil {
		fb, err := identity.NewFirebase(r.config.Identity, identity.FirebaseOpts{
			HTTPClient: r.httpClient,
			Timeout:    r.config.Backend.Timeout(),
			Logger:     shared.WithLogger(r.logger, "component", "identity"),
		})
		if err != nil {
			return err
		}
		r.provider = fb
	}

	store, err := session.Open(ctx, r.provider, session.Options{
		Persister:  repositories.NewRecordRepository(r.db),
		Welcome:    r.tracker,
		Dispatcher: r.notifier,
		Record:     r.config.Session.Record,
		Logger:     shared.WithLogger(r.logger, "component", "session"),
	})
	if err != nil {
		return err
	}
	r.session = store

	r.cart = tasks.NewCartSync(store, r.tracker, repositories.NewCartSnapshotRepository(r.db), shared.WithLogger(r.logger, "component", "cart"))
	r.lookup = tasks.NewProductLookup(r.tracker, shared.WithLogger(r.logger, "component", "lookup"))
	r.submitter = tasks.NewTrackingSubmitter(store, r.tracker, tasks.SubmitterOpts{
		Notifier: r.notifier,
		OnDone:   r.cart.Refresh,
		Logger:   shared.WithLogger(r.logger, "component", "submitter"),
	})
	r.account = tasks.NewAccount(store, r.tracker)
	return nil
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

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
