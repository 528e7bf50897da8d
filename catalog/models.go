// Package catalog holds the canonical music catalog: the artist, song and
// release schemas, the keyed upsert merge and the store persisting the three
// record sets.
package catalog

import (
	"strings"

	"github.com/dselans/music-catalog/normalize"
)

// UnknownArtistID is the artist_id of songs whose artist could not be
// determined.
const UnknownArtistID = "unknown"

// Artist is keyed by ID, the canonical form of Name. Fields tagged omitempty
// are ones a given source may not know; leaving them out of a partial record
// keeps values another source already captured.
type Artist struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Country   string   `json:"country,omitempty"`
	DebutDate string   `json:"debut_date,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Slug      string   `json:"slug"`

	SpotifyID   string   `json:"spotify_id,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	YTChannel   string   `json:"yt_channel,omitempty"`
	YTChannelID string   `json:"yt_channel_id,omitempty"`
	RegionHint  string   `json:"region_hint,omitempty"`
	GenreHint   string   `json:"genre_hint,omitempty"`
}

// NewArtist derives the identifier from name, falling back to the given
// native ids. ok is false when no identifier can be derived or name is empty.
func NewArtist(name string, fallbackIDs ...string) (a Artist, ok bool) {
	id := normalize.CanonicalizeOr(name, fallbackIDs...)
	if id == "" || name == "" {
		return Artist{}, false
	}

	return Artist{ID: id, Name: name, Slug: id}, true
}

// Song is keyed by ID, the canonical form of Title or the source's native id.
type Song struct {
	ID          string `json:"id"`
	ArtistID    string `json:"artist_id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date,omitempty"`
	YTURL       string `json:"yt_url,omitempty"`
	Slug        string `json:"slug"`

	DurationSec int    `json:"duration_sec,omitempty"`
	Views       int64  `json:"views,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`

	YTVideoID string `json:"yt_video_id,omitempty"`
	SpotifyID string `json:"spotify_id,omitempty"`
}

// NewSong derives id and slug from title. A title without a usable
// identifier falls back to nativeID as given (trimmed only), since video and
// track ids are case sensitive. An empty artistID becomes UnknownArtistID.
func NewSong(title, artistID, nativeID string) Song {
	id := normalize.Canonicalize(title)
	if id == "" {
		id = strings.TrimSpace(nativeID)
	}

	if artistID == "" {
		artistID = UnknownArtistID
	}

	return Song{ID: id, ArtistID: artistID, Title: title, Slug: id}
}

// Release is one release event, keyed by (SongID, ReleaseAt). Each region of
// the same song is a separate release.
type Release struct {
	SongID    string `json:"song_id"`
	Region    string `json:"region,omitempty"`
	ReleaseAt string `json:"release_at"`
}
