// Package sheets reads release rows from a published spreadsheet export.
// Column headers may be English or Korean; see fieldAliases.
package sheets

import (
	"context"
	"net/http"
	"sort"
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
	Name = "sheets"

	DefaultTimeout = 20 * time.Second

	FieldSongID    = "song_id"
	FieldRegion    = "region"
	FieldReleaseAt = "release_at"
)

// fieldAliases lists the accepted headers per release field in order of
// preference. Headers are lower-cased and spaces and hyphens become
// underscores before lookup.
var fieldAliases = []struct {
	field   string
	aliases []string
}{
	{FieldSongID, []string{"song_id", "song", "songid", "곡id", "곡_id", "노래id", "노래_id"}},
	{FieldRegion, []string{"region", "지역", "국가", "country"}},
	{FieldReleaseAt, []string{"release_at", "release_date", "date", "발매일", "공개일", "발매_일자"}},
}

type Options struct {
	URL        string
	HTTPClient *http.Client
	Log        clog.ICustomLog
}

type Sheets struct {
	opts *Options
	log  clog.ICustomLog
}

func New(opts *Options) (*Sheets, error) {
	if err := validateOptions(opts); err != nil {
		return nil, errors.Wrap(err, "failed to validate options")
	}

	return &Sheets{
		opts: opts,
		log:  opts.Log.With(zap.String("pkg", "sheets")),
	}, nil
}

func validateOptions(opts *Options) error {
	if opts == nil {
		return errors.New("options cannot be nil")
	}

	if opts.Log == nil {
		return errors.New("log cannot be nil")
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}

	opts.URL = strings.TrimSpace(opts.URL)

	return nil
}

func (s *Sheets) Name() string {
	return Name
}

func (s *Sheets) Configured() error {
	if s.opts.URL == "" {
		return services.NotConfigured(Name, "releases url")
	}

	return nil
}

func (s *Sheets) Fetch(ctx context.Context) (*services.Batch, error) {
	txn, logger := util.MethodSetup(ctx, s.log, zap.String("method", "Fetch"))
	segment := txn.StartSegment("sheets.Fetch")
	defer segment.End()

	if err := s.Configured(); err != nil {
		return nil, err
	}

	body, err := util.DoHTTP(ctx, s.opts.HTTPClient, http.MethodGet, s.opts.URL, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to fetch sheet export")
	}

	batch := ParseReleases(string(body))

	logger.Info("Sheets fetch complete",
		zap.Int("releases", len(batch.Releases)),
		zap.Int("dropped", batch.Dropped))

	return batch, nil
}

// ParseReleases maps delimited text to release records. Rows with every
// release field empty are ignored; rows missing a key component are dropped.
func ParseReleases(text string) *services.Batch {
	batch := services.NewBatch(Name)

	for _, row := range normalize.ParseDelimited(text) {
		release, blank := mapRow(row)
		if blank {
			continue
		}

		batch.AddRelease(release)
	}

	return batch
}

// mapRow resolves aliased headers. When several aliases of a field are
// present the first non-empty one in preference order wins. Headers that
// normalize to the same alias are visited in sorted order.
func mapRow(row map[string]string) (release catalog.Release, blank bool) {
	headers := make([]string, 0, len(row))
	for header := range row {
		headers = append(headers, header)
	}

	sort.Strings(headers)

	normalized := make(map[string]string, len(row))

	for _, header := range headers {
		value := row[header]
		h := normalizeHeader(header)
		if normalized[h] == "" {
			normalized[h] = value
		}
	}

	fields := make(map[string]string, len(fieldAliases))

	for _, fa := range fieldAliases {
		for _, alias := range fa.aliases {
			if v := normalized[alias]; v != "" {
				fields[fa.field] = v
				break
			}
		}
	}

	release = catalog.Release{
		SongID:    fields[FieldSongID],
		Region:    fields[FieldRegion],
		ReleaseAt: fields[FieldReleaseAt],
	}

	blank = release.SongID == "" && release.Region == "" && release.ReleaseAt == ""

	return release, blank
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))

	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}

		return r
	}, h)
}
