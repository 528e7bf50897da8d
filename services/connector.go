// Package services defines the contract shared by the source connectors: a
// connector turns one upstream payload shape into a Batch of partial catalog
// records.
package services

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dselans/music-catalog/catalog"
	"github.com/dselans/music-catalog/validate"
)

type IConnector interface {
	// Name identifies the source in logs and reports.
	Name() string

	// Configured returns nil when the connector can run, or an error
	// wrapping ErrMissingConfiguration when it must be skipped.
	Configured() error

	// Fetch runs every upstream call and returns the batch. Any failed call
	// aborts the run with an error wrapping ErrUpstreamFetch.
	Fetch(ctx context.Context) (*Batch, error)
}

// Batch is the output of one connector run. Dropped counts malformed records
// that were excluded.
type Batch struct {
	Source   string
	Artists  []catalog.Artist
	Songs    []catalog.Song
	Releases []catalog.Release
	Dropped  int
}

func NewBatch(source string) *Batch {
	return &Batch{Source: source}
}

// AddArtist appends a if it is well formed; otherwise it is counted as dropped.
func (b *Batch) AddArtist(a catalog.Artist) bool {
	if err := validate.Artist(&a); err != nil {
		b.Dropped++
		return false
	}

	b.Artists = append(b.Artists, a)

	return true
}

func (b *Batch) AddSong(s catalog.Song) bool {
	if err := validate.Song(&s); err != nil {
		b.Dropped++
		return false
	}

	b.Songs = append(b.Songs, s)

	return true
}

func (b *Batch) AddRelease(r catalog.Release) bool {
	if err := validate.Release(&r); err != nil {
		b.Dropped++
		return false
	}

	b.Releases = append(b.Releases, r)

	return true
}

// Len is the number of records across all sets.
func (b *Batch) Len() int {
	return len(b.Artists) + len(b.Songs) + len(b.Releases)
}

// Records returns the partial records for kind.
func (b *Batch) Records(kind catalog.Kind) ([]catalog.Record, error) {
	var (
		records []catalog.Record
		err     error
	)

	switch kind {
	case catalog.KindArtists:
		records, err = catalog.ToRecords(b.Artists)
	case catalog.KindSongs:
		records, err = catalog.ToRecords(b.Songs)
	case catalog.KindReleases:
		records, err = catalog.ToRecords(b.Releases)
	default:
		return nil, errors.Errorf("unknown record kind '%s'", kind)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "unable to convert %s", kind)
	}

	return records, nil
}
