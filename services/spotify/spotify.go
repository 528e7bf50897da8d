// Package spotify fetches configured artists and tracks from the Spotify Web
// API using the client-credentials flow.
package spotify

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dselans/music-catalog/backends/cache"
	"github.com/dselans/music-catalog/catalog"
	"github.com/dselans/music-catalog/clog"
	"github.com/dselans/music-catalog/normalize"
	"github.com/dselans/music-catalog/services"
	"github.com/dselans/music-catalog/util"
)

const (
	Name = "spotify"

	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultBaseURL  = "https://api.spotify.com/v1"
	DefaultTimeout  = 20 * time.Second

	// MaxIDsPerRequest is the Web API limit for the ids parameter.
	MaxIDsPerRequest = 50

	// TokenExpiryMargin is subtracted from expires_in before caching a token.
	TokenExpiryMargin = 60 * time.Second
)

type Options struct {
	ClientID     string
	ClientSecret string
	ArtistIDs    []string
	TrackIDs     []string

	TokenURL   string
	BaseURL    string
	HTTPClient *http.Client
	Cache      cache.ICache
	Log        clog.ICustomLog
}

type Spotify struct {
	opts *Options
	log  clog.ICustomLog
}

func New(opts *Options) (*Spotify, error) {
	if err := validateOptions(opts); err != nil {
		return nil, errors.Wrap(err, "failed to validate options")
	}

	return &Spotify{
		opts: opts,
		log:  opts.Log.With(zap.String("pkg", "spotify")),
	}, nil
}

func validateOptions(opts *Options) error {
	if opts == nil {
		return errors.New("options cannot be nil")
	}

	if opts.Log == nil {
		return errors.New("log cannot be nil")
	}

	if opts.Cache == nil {
		return errors.New("cache cannot be nil")
	}

	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}

	opts.ArtistIDs = cleanIDs(opts.ArtistIDs)
	opts.TrackIDs = cleanIDs(opts.TrackIDs)

	return nil
}

func (s *Spotify) Name() string {
	return Name
}

func (s *Spotify) Configured() error {
	var missing []string

	if s.opts.ClientID == "" {
		missing = append(missing, "client id")
	}

	if s.opts.ClientSecret == "" {
		missing = append(missing, "client secret")
	}

	if len(missing) > 0 {
		return services.NotConfigured(Name, missing...)
	}

	if len(s.opts.ArtistIDs) == 0 && len(s.opts.TrackIDs) == 0 {
		return services.NotConfigured(Name, "artist ids or track ids")
	}

	return nil
}

func (s *Spotify) Fetch(ctx context.Context) (*services.Batch, error) {
	txn, logger := util.MethodSetup(ctx, s.log, zap.String("method", "Fetch"))
	segment := txn.StartSegment("spotify.Fetch")
	defer segment.End()

	if err := s.Configured(); err != nil {
		return nil, err
	}

	token, err := s.token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to obtain access token")
	}

	batch := services.NewBatch(Name)

	for _, ids := range chunk(s.opts.ArtistIDs, MaxIDsPerRequest) {
		resp := &artistsResponse{}
		if err := s.get(ctx, token, "artists", ids, resp); err != nil {
			return nil, errors.Wrap(err, "unable to fetch artists")
		}

		for _, a := range resp.Artists {
			if a == nil {
				continue
			}

			artist, ok := catalog.NewArtist(a.Name, a.ID)
			if !ok {
				batch.Dropped++
				continue
			}

			artist.SpotifyID = a.ID
			artist.Genres = a.Genres

			batch.AddArtist(artist)
		}
	}

	for _, ids := range chunk(s.opts.TrackIDs, MaxIDsPerRequest) {
		resp := &tracksResponse{}
		if err := s.get(ctx, token, "tracks", ids, resp); err != nil {
			return nil, errors.Wrap(err, "unable to fetch tracks")
		}

		for _, t := range resp.Tracks {
			if t == nil {
				continue
			}

			s.addTrack(batch, t)
		}
	}

	logger.Info("Spotify fetch complete",
		zap.Int("artists", len(batch.Artists)),
		zap.Int("songs", len(batch.Songs)),
		zap.Int("releases", len(batch.Releases)),
		zap.Int("dropped", batch.Dropped))

	return batch, nil
}

func (s *Spotify) addTrack(batch *services.Batch, t *track) {
	artistID := catalog.UnknownArtistID

	if len(t.Artists) > 0 {
		if id := normalize.CanonicalizeOr(t.Artists[0].Name, t.Artists[0].ID); id != "" {
			artistID = id
		}
	}

	song := catalog.NewSong(t.Name, artistID, t.ID)
	song.SpotifyID = t.ID
	song.ReleaseDate = strings.TrimSpace(t.Album.ReleaseDate)

	if t.DurationMS > 0 {
		song.DurationSec = t.DurationMS / 1000
	}

	if len(t.Album.Images) > 0 {
		song.Thumbnail = t.Album.Images[0].URL
	}

	if !batch.AddSong(song) || song.ReleaseDate == "" {
		return
	}

	batch.AddRelease(catalog.Release{
		SongID:    song.ID,
		ReleaseAt: song.ReleaseDate,
	})
}

// token returns a cached access token or exchanges the client credentials
// for a new one.
func (s *Spotify) token(ctx context.Context) (string, error) {
	key := s.tokenKey()

	if token, ok := s.opts.Cache.GetString(key); ok {
		return token, nil
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(s.opts.ClientID + ":" + s.opts.ClientSecret))

	header := http.Header{}
	header.Set("Authorization", "Basic "+credentials)
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	resp := &tokenResponse{}

	if _, err := util.DoHTTP(ctx, s.opts.HTTPClient, http.MethodPost, s.opts.TokenURL, []byte(form.Encode()), resp, header); err != nil {
		return "", err
	}

	if resp.AccessToken == "" {
		return "", &services.UpstreamError{
			Endpoint: s.opts.TokenURL,
			Err:      errors.New("token response did not contain an access token"),
		}
	}

	ttl := time.Duration(resp.ExpiresIn)*time.Second - TokenExpiryMargin
	if ttl > 0 {
		s.opts.Cache.Set(key, resp.AccessToken, ttl)
	}

	return resp.AccessToken, nil
}

func (s *Spotify) get(ctx context.Context, token, resource string, ids []string, target any) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))

	endpoint := strings.TrimRight(s.opts.BaseURL, "/") + "/" + resource + "?" + q.Encode()

	_, err := util.DoHTTP(ctx, s.opts.HTTPClient, http.MethodGet, endpoint, nil, target, header)

	// A rejected token is evicted so the next fetch exchanges a fresh one
	var upstream *services.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode == http.StatusUnauthorized {
		s.opts.Cache.Remove(s.tokenKey())
	}

	return err
}

func (s *Spotify) tokenKey() string {
	return cache.SpotifyTokenPrefix + ":" + s.opts.ClientID
}

func chunk(ids []string, size int) [][]string {
	var chunks [][]string

	for start := 0; start < len(ids); start += size {
		chunks = append(chunks, ids[start:min(start+size, len(ids))])
	}

	return chunks
}

// cleanIDs trims ids and removes blanks and duplicates, keeping order.
func cleanIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true
		out = append(out, id)
	}

	return out
}
