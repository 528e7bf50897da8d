package deps

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/newrelic/go-agent/v3/integrations/logcontext-v2/nrzap"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dselans/music-catalog/backends/cache"
	"github.com/dselans/music-catalog/backends/lock"
	"github.com/dselans/music-catalog/catalog"
	"github.com/dselans/music-catalog/clog"
	"github.com/dselans/music-catalog/config"
	"github.com/dselans/music-catalog/normalize"
	"github.com/dselans/music-catalog/services"
	"github.com/dselans/music-catalog/services/ingest"
	"github.com/dselans/music-catalog/services/sheets"
	"github.com/dselans/music-catalog/services/spotify"
	"github.com/dselans/music-catalog/services/youtube"
)

const (
	DefaultNewRelicConnectTimeout = 10 * time.Second
)

type Dependencies struct {
	// Backends
	CacheBackend cache.ICache
	StoreBackend catalog.Store
	LockBackend  lock.ILock

	// Services
	Connectors    []services.IConnector
	RunnerService ingest.IRunner

	// Sources is the parsed sources file
	Sources *config.Sources

	// Global, shared shutdown context; cancelled on SIGINT/SIGTERM by main().
	ShutdownCtx context.Context

	// ShutdownCancel is the cancel function for the global shutdown context
	ShutdownCancel context.CancelFunc

	NewRelicApp *newrelic.Application
	Config      *config.Config

	// Log is the main, shared logger (you should use this for all logging)
	Log clog.ICustomLog

	// ZapLog is the zap logger (you shouldn't need this outside of deps)
	ZapLog *zap.Logger
}

func New(cfg *config.Config) (*Dependencies, error) {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dependencies{
		ShutdownCtx:    ctx,
		ShutdownCancel: cancel,
		Config:         cfg,
	}

	// NewRelic setup must occur before logging setup
	if err := d.setupNewRelic(); err != nil {
		return nil, errors.Wrap(err, "unable to setup newrelic")
	}

	if err := d.setupLogging(); err != nil {
		return nil, errors.Wrap(err, "unable to setup logging")
	}

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load sources")
	}

	d.Sources = sources

	if err := d.setupBackends(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to setup backends")
	}

	if err := d.setupServices(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to setup services")
	}

	return d, nil
}

func (d *Dependencies) setupNewRelic() error {
	if d.Config.NewRelicAppName == "" || d.Config.NewRelicLicenseKey == "" {
		return nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(d.Config.NewRelicAppName),
		newrelic.ConfigLicense(d.Config.NewRelicLicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigZapAttributesEncoder(true),
	)

	if err != nil {
		return errors.Wrap(err, "unable to create newrelic app")
	}

	if err := app.WaitForConnection(DefaultNewRelicConnectTimeout); err != nil {
		return errors.Wrap(err, "unable to connect to newrelic")
	}

	d.NewRelicApp = app

	return nil
}

// If using New Relic, setupLogging() should be called _after_ setupNewRelic()
func (d *Dependencies) setupLogging() error {
	var core zapcore.Core

	// Logs go to stderr; stdout carries the run report
	if d.Config.LogConfig == "dev" {
		zc := zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

		core = zapcore.NewCore(zapcore.NewConsoleEncoder(zc.EncoderConfig),
			zapcore.AddSync(os.Stderr),
			zap.DebugLevel,
		)
	} else {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(os.Stderr),
			zap.InfoLevel,
		)
	}

	// If using New Relic, wrap zap core with New Relic core
	if d.NewRelicApp != nil {
		var err error

		core, err = nrzap.WrapBackgroundCore(core, d.NewRelicApp)
		if err != nil {
			return errors.Wrap(err, "unable to wrap zap core with newrelic")
		}
	}

	// Save the actual loggers
	d.ZapLog = zap.New(core)

	// Create a new primary logger that will be passed to everyone
	d.Log = clog.New(d.ZapLog,
		zap.String("env", d.Config.EnvName),
		zap.String("service", d.Config.ServiceName))

	d.Log.Debug("Logging initialized")

	return nil
}

func (d *Dependencies) setupBackends(cfg *config.Config) error {
	llog := d.Log.With(zap.String("method", "setupBackends"))

	llog.Debug("Setting up cache backend")

	// CacheBackend k/v store; holds the spotify access token
	cb, err := cache.New()
	if err != nil {
		return errors.Wrap(err, "unable to create new cache instance")
	}

	d.CacheBackend = cb

	llog.Debug("Setting up store backend", zap.String("dataDir", cfg.DataDir))

	store, err := catalog.NewFileStore(cfg.DataDir)
	if err != nil {
		return errors.Wrap(err, "unable to create file store")
	}

	d.StoreBackend = store

	if cfg.RedisURL != "" {
		llog.Debug("Setting up redis lock backend")

		rl, err := lock.NewRedis(&lock.RedisOptions{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			Database: cfg.RedisDatabase,
			TTL:      cfg.LockTTL,
			Log:      d.Log,
		})
		if err != nil {
			return errors.Wrap(err, "unable to create redis lock")
		}

		d.LockBackend = rl

		return nil
	}

	llog.Debug("Setting up file lock backend")

	fl, err := lock.NewFile(filepath.Join(cfg.DataDir, lock.DefaultFileName), d.Log)
	if err != nil {
		return errors.Wrap(err, "unable to create file lock")
	}

	d.LockBackend = fl

	return nil
}

func (d *Dependencies) setupServices(cfg *config.Config) error {
	logger := d.Log.With(zap.String("method", "setupServices"))
	logger.Debug("Setting up services")

	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: newrelic.NewRoundTripper(nil),
	}

	for _, name := range cfg.Sources {
		c, err := d.newConnector(name, cfg, httpClient)
		if err != nil {
			return errors.Wrapf(err, "unable to create %s connector", name)
		}

		d.Connectors = append(d.Connectors, c)
	}

	runner, err := ingest.New(&ingest.Options{
		Connectors: d.Connectors,
		Store:      d.StoreBackend,
		DryRun:     cfg.DryRun,
		NewRelic:   d.NewRelicApp,
		Log:        d.Log,
	})
	if err != nil {
		return errors.Wrap(err, "unable to create ingest runner")
	}

	d.RunnerService = runner

	return nil
}

func (d *Dependencies) newConnector(name string, cfg *config.Config, httpClient *http.Client) (services.IConnector, error) {
	switch name {
	case config.SourceYouTube:
		return youtube.New(&youtube.Options{
			APIKey:       cfg.YouTubeAPIKey,
			Playlists:    youtubePlaylists(d.Sources.YouTube.Playlists),
			MaxItems:     cfg.YouTubeMaxItems,
			Enrich:       cfg.YouTubeEnrich,
			ChannelHints: youtubeHints(d.Sources.YouTube.ChannelHints),
			Titles:       normalize.NewTitleDecomposer(d.Sources.Titles.NoiseTokens...),
			BaseURL:      cfg.YouTubeBaseURL,
			HTTPClient:   httpClient,
			Log:          d.Log,
		})
	case config.SourceSpotify:
		return spotify.New(&spotify.Options{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
			ArtistIDs:    d.Sources.Spotify.ArtistIDs,
			TrackIDs:     d.Sources.Spotify.TrackIDs,
			TokenURL:     cfg.SpotifyTokenURL,
			BaseURL:      cfg.SpotifyBaseURL,
			HTTPClient:   httpClient,
			Cache:        d.CacheBackend,
			Log:          d.Log,
		})
	case config.SourceSheets:
		// The flag/env setting wins over the sources file
		url := cfg.SheetsReleasesURL
		if url == "" {
			url = d.Sources.Sheets.URL
		}

		return sheets.New(&sheets.Options{
			URL:        url,
			HTTPClient: httpClient,
			Log:        d.Log,
		})
	}

	return nil, errors.Errorf("unknown source '%s'", name)
}

func youtubePlaylists(in []config.PlaylistSource) []youtube.Playlist {
	out := make([]youtube.Playlist, 0, len(in))

	for _, pl := range in {
		out = append(out, youtube.Playlist{
			ID:       pl.ID,
			Region:   pl.Region,
			MaxItems: pl.MaxItems,
		})
	}

	return out
}

func youtubeHints(in map[string]config.ChannelHint) map[string]youtube.ChannelHint {
	out := make(map[string]youtube.ChannelHint, len(in))

	for channel, h := range in {
		out[channel] = youtube.ChannelHint{Region: h.Region, Genre: h.Genre}
	}

	return out
}
