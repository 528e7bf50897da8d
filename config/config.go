package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	EnvFile         = ".env"
	EnvConfigPrefix = "MUSIC_CATALOG"

	SourceYouTube = "youtube"
	SourceSpotify = "spotify"
	SourceSheets  = "sheets"
)

// KnownSources lists the connectors in their default run order.
var KnownSources = []string{SourceYouTube, SourceSpotify, SourceSheets}

type Config struct {
	Version     kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`
	EnvName     string           `kong:"help='Environment name.',default='dev'"`
	ServiceName string           `kong:"help='Service name.',default='music-catalog'"`
	LogConfig   string           `kong:"help='Logging config to use.',enum='dev,prod',default='dev'"`

	NewRelicAppName    string `kong:"help='New Relic application name.',default='music-catalog (DEV)'"`
	NewRelicLicenseKey string `kong:"help='New Relic license key.'"`

	DataDir     string        `kong:"help='Directory holding artists.json, songs.json and releases.json.',default='data'"`
	SourcesFile string        `kong:"help='Sources file (TOML, or legacy JSON) with playlists, ids and hint tables.',default='config/sources.toml'"`
	Sources     []string      `kong:"help='Connectors to run, in order.',default='youtube,spotify,sheets'"`
	DryRun      bool          `kong:"help='Fetch and merge but do not write the catalog.',default=false"`
	HTTPTimeout time.Duration `kong:"name='http-timeout',help='Timeout for a single upstream request.',default=20s"`

	YouTubeAPIKey   string `name:"youtube-api-key" help:"YouTube Data API key." env:"MUSIC_CATALOG_YOUTUBE_API_KEY,YT_API_KEY"`
	YouTubeMaxItems int    `name:"youtube-max-items" help:"Items fetched per playlist unless the playlist sets its own." default:"100"`
	YouTubeEnrich   bool   `name:"youtube-enrich" help:"Fetch duration, views and thumbnails per video." default:"true" negatable:""`
	YouTubeBaseURL  string `name:"youtube-base-url" help:"YouTube Data API base URL." default:"https://www.googleapis.com/youtube/v3" hidden:""`

	SpotifyClientID     string `name:"spotify-client-id" help:"Spotify client id." env:"MUSIC_CATALOG_SPOTIFY_CLIENT_ID,SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `name:"spotify-client-secret" help:"Spotify client secret." env:"MUSIC_CATALOG_SPOTIFY_CLIENT_SECRET,SPOTIFY_CLIENT_SECRET"`
	SpotifyTokenURL     string `name:"spotify-token-url" help:"Spotify token endpoint." default:"https://accounts.spotify.com/api/token" hidden:""`
	SpotifyBaseURL      string `name:"spotify-base-url" help:"Spotify Web API base URL." default:"https://api.spotify.com/v1" hidden:""`

	SheetsReleasesURL string `name:"sheets-releases-url" help:"Published spreadsheet export (CSV/TSV) with releases." env:"MUSIC_CATALOG_SHEETS_RELEASES_URL,SHEETS_RELEASES_CSV_URL"`

	RedisURL      string        `kong:"help='Redis address for the writer lock; empty uses a file lock in the data dir.'"`
	RedisPassword string        `kong:"help='Redis password.'"`
	RedisDatabase int           `kong:"help='Redis database.',default=0"`
	LockTTL       time.Duration `kong:"help='Redis writer lock TTL.',default=10m"`

	KongContext *kong.Context `kong:"-"`
}

func New(version string) *Config {
	if err := godotenv.Load(EnvFile); err != nil {
		zap.L().Warn("unable to load dotenv file",
			zap.String("err", err.Error()))
	}

	cfg := &Config{}
	cfg.KongContext = kong.Parse(
		cfg,
		kong.Name("music-catalog"),
		kong.Description("Ingest artists, songs and releases from YouTube, Spotify and a spreadsheet into the catalog."),
		kong.DefaultEnvars(EnvConfigPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	return cfg
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("Config cannot be nil")
	}

	if c.DataDir == "" {
		return errors.New("data dir cannot be empty")
	}

	if c.HTTPTimeout <= 0 {
		return errors.New("http timeout must be positive")
	}

	if c.YouTubeMaxItems < 0 {
		return errors.New("youtube max items cannot be negative")
	}

	seen := make(map[string]bool, len(c.Sources))

	for i, s := range c.Sources {
		s = strings.ToLower(strings.TrimSpace(s))
		if !isKnownSource(s) {
			return fmt.Errorf("unknown source '%s' (expected one of %s)", s, strings.Join(KnownSources, ", "))
		}

		if seen[s] {
			return fmt.Errorf("source '%s' listed twice", s)
		}

		seen[s] = true
		c.Sources[i] = s
	}

	return nil
}

// GetMap returns every setting as a string, credentials masked.
func (c *Config) GetMap() map[string]string {
	fields := make(map[string]string)

	val := reflect.ValueOf(c)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Name == "KongContext" {
			continue
		}

		value := fmt.Sprintf("%v", val.Field(i))
		if isSecretField(field.Name) && value != "" {
			value = "********"
		}

		fields[field.Name] = value
	}

	return fields
}

func isKnownSource(s string) bool {
	for _, k := range KnownSources {
		if k == s {
			return true
		}
	}

	return false
}

func isSecretField(name string) bool {
	for _, suffix := range []string{"Key", "Secret", "Password"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}
