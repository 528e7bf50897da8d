// Package validate holds the record checks connectors run before a record
// joins a batch. A record failing them is malformed and is dropped.
package validate

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/dselans/music-catalog/catalog"
	"github.com/dselans/music-catalog/normalize"
)

var (
	ErrEmptyKey     = errors.New("key cannot be empty")
	ErrNonCanonical = errors.New("id is not canonical")
)

func Artist(a *catalog.Artist) error {
	if a == nil {
		return errors.New("artist cannot be nil")
	}

	if a.ID == "" {
		return errors.Wrap(ErrEmptyKey, "artist id")
	}

	if normalize.Canonicalize(a.ID) != a.ID {
		return errors.Wrapf(ErrNonCanonical, "artist id '%s'", a.ID)
	}

	if a.Name == "" {
		return errors.New("artist name cannot be empty")
	}

	return nil
}

func Song(s *catalog.Song) error {
	if s == nil {
		return errors.New("song cannot be nil")
	}

	if s.ID == "" {
		return errors.Wrap(ErrEmptyKey, "song id")
	}

	// Native video and track ids are kept verbatim
	if !isNativeID(s) && normalize.Canonicalize(s.ID) != s.ID {
		return errors.Wrapf(ErrNonCanonical, "song id '%s'", s.ID)
	}

	if s.ArtistID == "" {
		return errors.New("song artist id cannot be empty")
	}

	return nil
}

func isNativeID(s *catalog.Song) bool {
	for _, native := range []string{s.YTVideoID, s.SpotifyID} {
		if native = strings.TrimSpace(native); native != "" && native == s.ID {
			return true
		}
	}

	return false
}

// Release only requires both key components; song_id is a soft reference and
// is not checked against the song set.
func Release(r *catalog.Release) error {
	if r == nil {
		return errors.New("release cannot be nil")
	}

	if r.SongID == "" {
		return errors.Wrap(ErrEmptyKey, "release song id")
	}

	if r.ReleaseAt == "" {
		return errors.Wrap(ErrEmptyKey, "release date")
	}

	return nil
}
