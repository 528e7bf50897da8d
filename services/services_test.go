package services_test

import (
	"errors"

	pkgerrors "github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/dselans/music-catalog/catalog"
	"github.com/dselans/music-catalog/services"
)

var _ = Describe("Errors", func() {
	It("marks unconfigured connectors", func() {
		err := services.NotConfigured("youtube", "api key")

		Expect(services.IsNotConfigured(err)).To(BeTrue())
		Expect(errors.Is(err, services.ErrUpstreamFetch)).To(BeFalse())
		Expect(err.Error()).To(ContainSubstring("youtube: api key not set"))
	})

	It("keeps upstream failures distinct from the skip signal", func() {
		var err error = &services.UpstreamError{Endpoint: "https://api/x", StatusCode: 503, Body: "down"}
		err = pkgerrors.Wrap(err, "unable to fetch playlist")

		Expect(errors.Is(err, services.ErrUpstreamFetch)).To(BeTrue())
		Expect(services.IsNotConfigured(err)).To(BeFalse())

		var upstream *services.UpstreamError
		Expect(errors.As(err, &upstream)).To(BeTrue())
		Expect(upstream.StatusCode).To(Equal(503))
		Expect(upstream.Endpoint).To(Equal("https://api/x"))
		Expect(err.Error()).To(ContainSubstring("status 503"))
	})

	It("unwraps the transport error", func() {
		cause := errors.New("connection refused")
		err := &services.UpstreamError{Endpoint: "e", Err: cause}

		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).ToNot(ContainSubstring("status"))
	})
})

var _ = Describe("Batch", func() {
	var batch *services.Batch

	BeforeEach(func() {
		batch = services.NewBatch("test")
	})

	It("counts malformed records as dropped", func() {
		Expect(batch.AddArtist(catalog.Artist{ID: "ive", Name: "IVE", Slug: "ive"})).To(BeTrue())
		Expect(batch.AddArtist(catalog.Artist{Name: "nameless id"})).To(BeFalse())
		Expect(batch.AddSong(catalog.Song{ID: "Not Canonical", ArtistID: "ive"})).To(BeFalse())
		Expect(batch.AddRelease(catalog.Release{SongID: "x"})).To(BeFalse())

		Expect(batch.Len()).To(Equal(1))
		Expect(batch.Dropped).To(Equal(3))
	})

	It("converts each set to records", func() {
		batch.AddSong(catalog.NewSong("Ditto", "newjeans", ""))
		batch.AddRelease(catalog.Release{SongID: "ditto", ReleaseAt: "2022-12-19"})

		songs, err := batch.Records(catalog.KindSongs)
		Expect(err).ToNot(HaveOccurred())
		Expect(songs).To(Equal([]catalog.Record{{"id": "ditto", "artist_id": "newjeans", "title": "Ditto", "slug": "ditto"}}))

		artists, err := batch.Records(catalog.KindArtists)
		Expect(err).ToNot(HaveOccurred())
		Expect(artists).To(BeEmpty())

		_, err = batch.Records(catalog.Kind("albums"))
		Expect(err).To(HaveOccurred())
	})
})
