// Package youtube maps playlist items of the YouTube Data API v3 to artist,
// song and release records.
package youtube

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dselans/music-catalog/catalog"
	"github.com/dselans/music-catalog/clog"
	"github.com/dselans/music-catalog/normalize"
	"github.com/dselans/music-catalog/services"
	"github.com/dselans/music-catalog/util"
)

const (
	Name = "youtube"

	DefaultBaseURL  = "https://www.googleapis.com/youtube/v3"
	DefaultMaxItems = 100
	DefaultTimeout  = 20 * time.Second

	// PageSize is the maxResults sent on every playlistItems call.
	PageSize = 50

	// EnrichBatchSize is the most video ids sent in one videos call.
	EnrichBatchSize = 50

	WatchURLPrefix = "https://www.youtube.com/watch?v="
)

// unavailableTitles are placeholders YouTube returns for removed videos.
var unavailableTitles = map[string]bool{
	"Private video": true,
	"Deleted video": true,
}

type Playlist struct {
	ID     string
	Region string

	// MaxItems overrides Options.MaxItems when positive.
	MaxItems int
}

type ChannelHint struct {
	Region string
	Genre  string
}

type Options struct {
	APIKey    string
	Playlists []Playlist
	MaxItems  int
	Enrich    bool

	// ChannelHints is keyed by canonical channel title.
	ChannelHints map[string]ChannelHint

	Titles     *normalize.TitleDecomposer
	BaseURL    string
	HTTPClient *http.Client
	Log        clog.ICustomLog
}

type YouTube struct {
	opts *Options
	log  clog.ICustomLog
}

func New(opts *Options) (*YouTube, error) {
	if err := validateOptions(opts); err != nil {
		return nil, errors.Wrap(err, "failed to validate options")
	}

	return &YouTube{
		opts: opts,
		log:  opts.Log.With(zap.String("pkg", "youtube")),
	}, nil
}

func validateOptions(opts *Options) error {
	if opts == nil {
		return errors.New("options cannot be nil")
	}

	if opts.Log == nil {
		return errors.New("log cannot be nil")
	}

	if opts.MaxItems < 0 {
		return errors.New("max items cannot be negative")
	}

	if opts.MaxItems == 0 {
		opts.MaxItems = DefaultMaxItems
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}

	if opts.Titles == nil {
		opts.Titles = normalize.NewTitleDecomposer()
	}

	return nil
}

func (y *YouTube) Name() string {
	return Name
}

func (y *YouTube) Configured() error {
	if y.opts.APIKey == "" {
		return services.NotConfigured(Name, "api key")
	}

	if len(y.opts.Playlists) == 0 {
		return services.NotConfigured(Name, "playlists")
	}

	return nil
}

func (y *YouTube) Fetch(ctx context.Context) (*services.Batch, error) {
	txn, logger := util.MethodSetup(ctx, y.log, zap.String("method", "Fetch"))
	segment := txn.StartSegment("youtube.Fetch")
	defer segment.End()

	if err := y.Configured(); err != nil {
		return nil, err
	}

	batch := services.NewBatch(Name)
	b := &builder{
		yt:      y,
		batch:   batch,
		artists: make(map[string]bool),
		videos:  make(map[string][]int),
	}

	for _, pl := range y.opts.Playlists {
		items, err := y.fetchPlaylist(ctx, pl)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to fetch playlist '%s'", pl.ID)
		}

		logger.Debug("Fetched playlist",
			zap.String("playlistId", pl.ID),
			zap.Int("items", len(items)))

		for _, it := range items {
			b.add(pl, it)
		}
	}

	if y.opts.Enrich && len(b.order) > 0 {
		if err := y.enrich(ctx, batch, b.videos, b.order); err != nil {
			return nil, errors.Wrap(err, "unable to enrich videos")
		}
	}

	logger.Info("YouTube fetch complete",
		zap.Int("artists", len(batch.Artists)),
		zap.Int("songs", len(batch.Songs)),
		zap.Int("releases", len(batch.Releases)),
		zap.Int("dropped", batch.Dropped))

	return batch, nil
}

// fetchPlaylist pages through a playlist until the item limit is reached or
// the API stops returning a cursor.
func (y *YouTube) fetchPlaylist(ctx context.Context, pl Playlist) ([]playlistItem, error) {
	limit := pl.MaxItems
	if limit <= 0 {
		limit = y.opts.MaxItems
	}

	var (
		items     []playlistItem
		pageToken string
	)

	for len(items) < limit {
		q := url.Values{}
		q.Set("part", "snippet,contentDetails")
		q.Set("maxResults", strconv.Itoa(PageSize))
		q.Set("playlistId", pl.ID)

		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		q.Set("key", y.opts.APIKey)

		page := &playlistItemsResponse{}

		if _, err := util.DoHTTP(ctx, y.opts.HTTPClient, http.MethodGet, y.endpoint("playlistItems", q), nil, page); err != nil {
			return nil, err
		}

		items = append(items, page.Items...)

		if page.NextPageToken == "" {
			break
		}

		pageToken = page.NextPageToken
	}

	if len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// enrich fills duration, views and thumbnail of every song whose video id is
// in order. songsByVideo maps a video id to its indices in batch.Songs.
func (y *YouTube) enrich(ctx context.Context, batch *services.Batch, songsByVideo map[string][]int, order []string) error {
	for start := 0; start < len(order); start += EnrichBatchSize {
		end := min(start+EnrichBatchSize, len(order))

		q := url.Values{}
		q.Set("part", "contentDetails,statistics,snippet")
		q.Set("id", strings.Join(order[start:end], ","))
		q.Set("key", y.opts.APIKey)

		resp := &videosResponse{}

		if _, err := util.DoHTTP(ctx, y.opts.HTTPClient, http.MethodGet, y.endpoint("videos", q), nil, resp); err != nil {
			return err
		}

		for _, v := range resp.Items {
			for _, i := range songsByVideo[v.ID] {
				song := &batch.Songs[i]
				song.DurationSec = normalize.DecodeDuration(v.ContentDetails.Duration)
				song.Thumbnail = v.Snippet.Thumbnails.best()

				if views, err := strconv.ParseInt(v.Statistics.ViewCount, 10, 64); err == nil {
					song.Views = views
				}
			}
		}
	}

	return nil
}

func (y *YouTube) endpoint(resource string, q url.Values) string {
	return strings.TrimRight(y.opts.BaseURL, "/") + "/" + resource + "?" + q.Encode()
}

// builder accumulates one run's records.
type builder struct {
	yt      *YouTube
	batch   *services.Batch
	artists map[string]bool
	videos  map[string][]int
	order   []string
}

func (b *builder) add(pl Playlist, it playlistItem) {
	sn := it.Snippet
	if sn == nil || unavailableTitles[sn.Title] {
		return
	}

	channel := firstNonEmpty(sn.VideoOwnerChannelTitle, sn.ChannelTitle)
	channelID := firstNonEmpty(sn.VideoOwnerChannelID, sn.ChannelID)
	hint, hasHint := b.yt.opts.ChannelHints[normalize.Canonicalize(channel)]

	artistName, songTitle := b.yt.opts.Titles.Decompose(sn.Title, channel)

	var artistID string

	if artist, ok := catalog.NewArtist(artistName); ok {
		artistID = artist.ID

		if !b.artists[artist.ID] {
			b.artists[artist.ID] = true

			artist.YTChannel = channel
			artist.YTChannelID = channelID

			if hasHint {
				artist.RegionHint = hint.Region
				artist.GenreHint = hint.Genre
			}

			b.batch.AddArtist(artist)
		}
	}

	videoID := firstNonEmpty(sn.ResourceID.VideoID, it.ContentDetails.VideoID)

	song := catalog.NewSong(songTitle, artistID, videoID)
	song.ReleaseDate = dateOnly(firstNonEmpty(it.ContentDetails.VideoPublishedAt, sn.PublishedAt))

	if videoID != "" {
		song.YTURL = WatchURLPrefix + videoID
		song.YTVideoID = videoID
	}

	if !b.batch.AddSong(song) {
		return
	}

	if videoID != "" {
		if _, seen := b.videos[videoID]; !seen {
			b.order = append(b.order, videoID)
		}

		b.videos[videoID] = append(b.videos[videoID], len(b.batch.Songs)-1)
	}

	if song.ReleaseDate == "" {
		return
	}

	region := pl.Region
	if hasHint && hint.Region != "" {
		region = hint.Region
	}

	b.batch.AddRelease(catalog.Release{
		SongID:    song.ID,
		Region:    region,
		ReleaseAt: song.ReleaseDate,
	})
}

// dateOnly keeps the YYYY-MM-DD prefix of an RFC 3339 timestamp.
func dateOnly(ts string) string {
	ts = strings.TrimSpace(ts)
	if len(ts) > 10 {
		return ts[:10]
	}

	return ts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}
