package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/vk/statusboard/internal/channel"
	"github.com/vk/statusboard/internal/config"
	"github.com/vk/statusboard/internal/ctxlog"
	"github.com/vk/statusboard/internal/fsutil"
	"github.com/vk/statusboard/internal/hcl"
	"github.com/vk/statusboard/internal/render"
	"github.com/vk/statusboard/internal/yamlconfig"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
	store  *render.RegionStore

	dialer     channel.Dialer
	httpServer *http.Server

	mu     sync.RWMutex
	client *channel.Client
}

// Option customises an App at construction time.
type Option func(*App)

// WithDialer replaces scheme-based transport selection; used by tests.
func WithDialer(d channel.Dialer) Option {
	return func(a *App) { a.dialer = d }
}

// DefaultLoaders returns every configuration format the binary understands.
func DefaultLoaders() []config.Loader {
	return []config.Loader{hcl.NewLoader(), yamlconfig.NewLoader()}
}

// NewApp is the constructor for the main application. Region changes are
// printed to outW when enabled; logs go to logW.
func NewApp(outW, logW io.Writer, appConfig *Config, loaders []config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loadModel(ctx, appConfig, loaders)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded.", "endpoint", model.Endpoint, "bindings", len(model.Bindings))

	a := &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		model:  model,
		store:  render.NewRegionStore(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// loadModel runs every loader over the configured path, applies CLI
// overrides and finalizes the result.
func loadModel(ctx context.Context, appConfig *Config, loaders []config.Loader) (*config.Model, error) {
	model := config.NewModel()
	if appConfig.ConfigPath != "" {
		if err := checkConfigPath(appConfig.ConfigPath, loaders); err != nil {
			return nil, err
		}
		for _, loader := range loaders {
			loaded, err := loader.Load(ctx, appConfig.ConfigPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load configuration: %w", err)
			}
			model.Merge(loaded)
		}
	}

	if appConfig.Endpoint != "" {
		model.Endpoint = appConfig.Endpoint
	}
	if appConfig.ConnectTimeout > 0 {
		model.ConnectTimeout = appConfig.ConnectTimeout
	}
	if err := model.Finalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return model, nil
}

// checkConfigPath fails when an explicitly given path is missing or holds
// no file any loader understands.
func checkConfigPath(path string, loaders []config.Loader) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("missing config file: %s", path)
		}
		return fmt.Errorf("failed to read config path %s: %w", path, err)
	}

	var extensions []string
	for _, loader := range loaders {
		extensions = append(extensions, loader.Extensions()...)
	}
	if len(extensions) == 0 {
		return errors.New("no configuration loaders registered")
	}
	files, err := fsutil.FindFilesByExtension([]string{path}, extensions...)
	if err != nil {
		return fmt.Errorf("failed to search config path %s: %w", path, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no configuration files in %s (expected %s)", path, strings.Join(extensions, ", "))
	}
	return nil
}

// Model returns the finalized configuration. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Regions returns the region store rendered by the bindings.
func (a *App) Regions() *render.RegionStore {
	return a.store
}

func (a *App) setClient(c *channel.Client) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = c
}

func (a *App) currentClient() *channel.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client
}
