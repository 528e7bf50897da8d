package catalog_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/dselans/music-catalog/catalog"
)

var _ = Describe("Merge", func() {
	var existing []catalog.Record

	BeforeEach(func() {
		existing = []catalog.Record{
			{"id": "ditto", "title": "Ditto", "artist_id": "newjeans", "yt_url": "https://y/1"},
			{"id": "omg", "title": "OMG", "artist_id": "newjeans"},
		}
	})

	It("inserts new keys after existing ones in batch order", func() {
		out, stats := catalog.Merge(existing, []catalog.Record{
			{"id": "super-shy", "title": "Super Shy"},
			{"id": "eta", "title": "ETA"},
		}, catalog.ByID)

		Expect(ids(out)).To(Equal([]string{"ditto", "omg", "super-shy", "eta"}))
		Expect(stats).To(Equal(catalog.MergeStats{Inserted: 2}))
	})

	It("overwrites overlapping fields and keeps the rest", func() {
		out, stats := catalog.Merge(existing, []catalog.Record{
			{"id": "ditto", "release_date": "2022-12-19", "title": "Ditto!"},
		}, catalog.ByID)

		Expect(out[0]).To(Equal(catalog.Record{
			"id":           "ditto",
			"title":        "Ditto!",
			"artist_id":    "newjeans",
			"yt_url":       "https://y/1",
			"release_date": "2022-12-19",
		}))
		Expect(stats.Updated).To(Equal(1))
	})

	It("counts a record that changes nothing as unchanged", func() {
		_, stats := catalog.Merge(existing, []catalog.Record{
			{"id": "omg", "title": "OMG"},
		}, catalog.ByID)

		Expect(stats).To(Equal(catalog.MergeStats{Unchanged: 1}))
	})

	It("keeps existing records absent from the batch in place", func() {
		out, _ := catalog.Merge(existing, []catalog.Record{{"id": "omg", "title": "OMG (2023)"}}, catalog.ByID)

		Expect(out[0]).To(Equal(existing[0]))
		Expect(ids(out)).To(Equal([]string{"ditto", "omg"}))
	})

	It("skips incoming records without a key", func() {
		out, stats := catalog.Merge(existing, []catalog.Record{
			{"title": "no id"},
			{"id": "  ", "title": "blank id"},
		}, catalog.ByID)

		Expect(out).To(HaveLen(2))
		Expect(stats).To(Equal(catalog.MergeStats{Skipped: 2}))
	})

	It("preserves keyless existing records without matching them", func() {
		withKeyless := append([]catalog.Record{{"title": "legacy"}}, existing...)

		out, _ := catalog.Merge(withKeyless, []catalog.Record{{"title": "other"}}, catalog.ByID)

		Expect(out).To(HaveLen(3))
		Expect(out[0]).To(Equal(catalog.Record{"title": "legacy"}))
	})

	It("folds duplicate keys within a batch left to right", func() {
		out, stats := catalog.Merge(nil, []catalog.Record{
			{"id": "x", "title": "first", "region": "KR"},
			{"id": "x", "title": "second"},
		}, catalog.ByID)

		Expect(out).To(Equal([]catalog.Record{{"id": "x", "title": "second", "region": "KR"}}))
		Expect(stats).To(Equal(catalog.MergeStats{Inserted: 1, Updated: 1}))
	})

	It("does not modify its inputs", func() {
		incoming := []catalog.Record{{"id": "ditto", "title": "changed"}}

		catalog.Merge(existing, incoming, catalog.ByID)

		Expect(existing[0]["title"]).To(Equal("Ditto"))
		Expect(incoming[0]).To(Equal(catalog.Record{"id": "ditto", "title": "changed"}))
	})

	It("is idempotent", func() {
		batch := []catalog.Record{
			{"id": "ditto", "title": "Ditto", "views": json.Number("10")},
			{"id": "new", "title": "New"},
			{"title": "keyless"},
		}

		once, _ := catalog.Merge(existing, batch, catalog.ByID)
		twice, stats := catalog.Merge(once, batch, catalog.ByID)

		Expect(twice).To(Equal(once))
		Expect(stats).To(Equal(catalog.MergeStats{Unchanged: 2, Skipped: 1}))
	})

	Context("releases", func() {
		It("keys by song and release date", func() {
			out, stats := catalog.Merge([]catalog.Record{
				{"song_id": "ditto", "release_at": "2022-12-19", "region": ""},
			}, []catalog.Record{
				{"song_id": "ditto", "release_at": "2022-12-19", "region": "KR"},
				{"song_id": "ditto", "release_at": "2023-01-02", "region": "JP"},
				{"song_id": "ditto", "region": "US"},
			}, catalog.ByRelease)

			Expect(out).To(HaveLen(2))
			Expect(out[0]["region"]).To(Equal("KR"))
			Expect(stats).To(Equal(catalog.MergeStats{Inserted: 1, Updated: 1, Skipped: 1}))
		})
	})
})

var _ = Describe("MergeStats", func() {
	It("adds", func() {
		s := catalog.MergeStats{Inserted: 1, Skipped: 2}
		s.Add(catalog.MergeStats{Inserted: 2, Updated: 1, Unchanged: 4})

		Expect(s).To(Equal(catalog.MergeStats{Inserted: 3, Updated: 1, Unchanged: 4, Skipped: 2}))
	})
})

func ids(records []catalog.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.String("id"))
	}

	return out
}
