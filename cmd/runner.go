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
	"github.com/desertthunder/facescan/internal/auth"
	"github.com/desertthunder/facescan/internal/repositories"
	"github.com/desertthunder/facescan/internal/services"
	"github.com/desertthunder/facescan/internal/session"
	"github.com/desertthunder/facescan/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultCredentialFile = "credential.json"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	scanner     services.ScanService
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	lookupEnv   func(string) (string, bool)
	openBrowser func(string) error
	endpoint    *oauth2.Endpoint
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// Scanner replaces the HTTP client built from the config.
	Scanner    services.ScanService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// LookupEnv defaults to [os.LookupEnv].
	LookupEnv func(string) (string, bool)
	// OpenBrowser defaults to [shared.OpenBrowser].
	OpenBrowser func(string) error
	// OAuthEndpoint defaults to Google's.
	OAuthEndpoint *oauth2.Endpoint
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
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
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		scanner:     opts.Scanner,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		lookupEnv:   opts.LookupEnv,
		openBrowser: opts.OpenBrowser,
		endpoint:    opts.OAuthEndpoint,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		healthCommand, loginCommand, scanCommand, historyCommand, setupCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the config file when it exists (defaults otherwise), applies environment overrides and sets the log level.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.logger.Debug("loaded config", "path", path)
	} else if cmd.IsSet("config") {
		r.logger.Warn("config file not found, using defaults", "path", path)
	}
	r.configPath = path

	r.config.ApplyEnv(r.lookupEnv)
	r.logger.SetLevel(shared.ParseLogLevel(r.config.Log.Level))
	if cmd.Bool("verbose") {
		r.logger.SetLevel(log.DebugLevel)
	}
	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) service() services.ScanService {
	if r.scanner != nil {
		return r.scanner
	}
	return services.NewScannerService(r.config.API.URL, r.httpClient, r.logger)
}

// openHistory opens the scan history. A nil repository means history is disabled.
func (r *Runner) openHistory() (*repositories.ScanRepository, func(), error) {
	if r.config.Database.Path == "" {
		return nil, func() {}, nil
	}
	db, err := shared.OpenHistory(r.config.Database)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open history: %w", err)
	}
	return repositories.NewScanRepository(db), closer(r.logger, db), nil
}

func closer(logger *log.Logger, db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", "err", err)
		}
	}
}

// newController wires a session to the backend and, when possible, to the history database.
//
// History is best effort: a database that cannot be opened is logged and scanning goes on without it.
func (r *Runner) newController() (*session.Controller, func()) {
	opts := session.ControllerOpts{Service: r.service(), Logger: r.logger}

	repo, done, err := r.openHistory()
	if err != nil {
		r.logger.Warn("scan history disabled", "err", err)
	} else if repo != nil {
		opts.Recorder = repositories.NewRecorder(repo)
	}
	return session.NewController(opts), done
}

func (r *Runner) googleProvider(onAuthURL func(string)) (*auth.GoogleProvider, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	return auth.NewGoogleProvider(auth.GoogleOpts{
		Config:      r.config.Google,
		Logger:      r.logger,
		OpenBrowser: r.openBrowser,
		OnAuthURL:   onAuthURL,
		Endpoint:    r.endpoint,
	})
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

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
