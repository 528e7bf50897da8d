package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/dselans/music-catalog/normalize"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Sources is the content of the sources file: what to fetch from each
// upstream plus the lookup tables used while mapping.
type Sources struct {
	YouTube YouTubeSources `toml:"youtube" json:"youtube"`
	Spotify SpotifySources `toml:"spotify" json:"spotify"`
	Sheets  SheetsSources  `toml:"sheets" json:"sheets"`
	Titles  TitleSources   `toml:"titles" json:"titles"`
}

type YouTubeSources struct {
	Playlists []PlaylistSource `toml:"playlists" json:"playlists" validate:"dive"`

	// ChannelHints is keyed by channel title; LoadSources canonicalizes the
	// keys.
	ChannelHints map[string]ChannelHint `toml:"channel_hints" json:"channel_hints" validate:"dive"`
}

type PlaylistSource struct {
	ID       string `toml:"id" json:"id" validate:"required"`
	Region   string `toml:"region" json:"region"`
	MaxItems int    `toml:"max_items" json:"max_items" validate:"gte=0"`
}

type ChannelHint struct {
	Region string `toml:"region" json:"region"`
	Genre  string `toml:"genre" json:"genre"`
}

type SpotifySources struct {
	ArtistIDs []string `toml:"artist_ids" json:"artist_ids" validate:"dive,required"`
	TrackIDs  []string `toml:"track_ids" json:"track_ids" validate:"dive,required"`
}

type SheetsSources struct {
	URL string `toml:"url" json:"url" validate:"omitempty,url"`
}

type TitleSources struct {
	NoiseTokens []string `toml:"noise_tokens" json:"noise_tokens"`
}

// LoadSources reads a TOML sources file, or a legacy JSON one when path ends
// in .json. A missing file yields empty sources so every connector reports
// itself unconfigured.
func LoadSources(path string) (*Sources, error) {
	sources := &Sources{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sources, nil
		}

		return nil, errors.Wrapf(err, "unable to read sources file '%s'", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, sources)
	} else {
		err = toml.Unmarshal(data, sources)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse sources file '%s'", path)
	}

	if err := sources.normalize(); err != nil {
		return nil, errors.Wrapf(err, "invalid sources file '%s'", path)
	}

	if err := sources.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid sources file '%s'", path)
	}

	return sources, nil
}

func (s *Sources) Validate() error {
	if err := validate.Struct(s); err != nil {
		return validationError(err)
	}

	return nil
}

// normalize trims values and re-keys channel hints by canonical channel.
func (s *Sources) normalize() error {
	for i := range s.YouTube.Playlists {
		pl := &s.YouTube.Playlists[i]
		pl.ID = strings.TrimSpace(pl.ID)
		pl.Region = strings.TrimSpace(pl.Region)
	}

	s.Spotify.ArtistIDs = trimAll(s.Spotify.ArtistIDs)
	s.Spotify.TrackIDs = trimAll(s.Spotify.TrackIDs)
	s.Sheets.URL = strings.TrimSpace(s.Sheets.URL)

	if len(s.YouTube.ChannelHints) == 0 {
		return nil
	}

	channels := make([]string, 0, len(s.YouTube.ChannelHints))
	for channel := range s.YouTube.ChannelHints {
		channels = append(channels, channel)
	}

	sort.Strings(channels)

	hints := make(map[string]ChannelHint, len(channels))

	for _, channel := range channels {
		key := normalize.Canonicalize(channel)
		if key == "" {
			return fmt.Errorf("channel hint '%s' has no usable identifier", channel)
		}

		if _, ok := hints[key]; ok {
			return fmt.Errorf("channel hint '%s' duplicates '%s'", channel, key)
		}

		hint := s.YouTube.ChannelHints[channel]
		hints[key] = ChannelHint{
			Region: strings.TrimSpace(hint.Region),
			Genre:  strings.TrimSpace(hint.Genre),
		}
	}

	s.YouTube.ChannelHints = hints

	return nil
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}

	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}

	return out
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", fe.Namespace(), fe.Tag()))
	}

	return errors.New(strings.Join(msgs, "; "))
}
