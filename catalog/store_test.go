package catalog_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/dselans/music-catalog/catalog"
)

var _ = Describe("Store", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("FileStore", func() {
		var (
			dir   string
			store *catalog.FileStore
		)

		BeforeEach(func() {
			var err error

			dir, err = os.MkdirTemp("", "catalog-store-*")
			Expect(err).ToNot(HaveOccurred())

			store, err = catalog.NewFileStore(filepath.Join(dir, "data"))
			Expect(err).ToNot(HaveOccurred())
		})

		AfterEach(func() {
			os.RemoveAll(dir)
		})

		It("creates the data dir", func() {
			info, err := os.Stat(filepath.Join(dir, "data"))
			Expect(err).ToNot(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("loads an empty set when the file is missing", func() {
			records, err := store.Load(ctx, catalog.KindSongs)
			Expect(err).ToNot(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("loads an empty set from a blank file", func() {
			Expect(os.WriteFile(store.Path(catalog.KindSongs), []byte("  \n"), 0o644)).To(Succeed())

			records, err := store.Load(ctx, catalog.KindSongs)
			Expect(err).ToNot(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("refuses invalid JSON and leaves the file alone", func() {
			path := store.Path(catalog.KindArtists)
			Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())

			_, _, err := catalog.Apply(ctx, store, catalog.KindArtists, []catalog.Record{{"id": "x", "name": "X"}})
			Expect(err).To(HaveOccurred())

			data, err := os.ReadFile(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("{not json"))
		})

		It("round trips records with numbers and unknown fields intact", func() {
			in := []catalog.Record{
				{"id": "ditto", "views": json.Number("12345678901"), "custom": map[string]any{"a": "b"}},
			}

			Expect(store.Persist(ctx, catalog.KindSongs, in)).To(Succeed())

			out, err := store.Load(ctx, catalog.KindSongs)
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(HaveLen(1))
			Expect(out[0]["views"]).To(Equal(json.Number("12345678901")))
			Expect(out[0]["custom"]).To(Equal(map[string]any{"a": "b"}))
		})

		It("writes a 2-space indented array and fully replaces the set", func() {
			Expect(store.Persist(ctx, catalog.KindReleases, []catalog.Record{
				{"song_id": "a", "release_at": "2024-01-01"},
				{"song_id": "b", "release_at": "2024-01-02"},
			})).To(Succeed())

			Expect(store.Persist(ctx, catalog.KindReleases, []catalog.Record{
				{"song_id": "c", "release_at": "2024-01-03"},
			})).To(Succeed())

			data, err := os.ReadFile(store.Path(catalog.KindReleases))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(HavePrefix("[\n  {\n    \""))
			Expect(strings.Count(string(data), "song_id")).To(Equal(1))

			entries, err := os.ReadDir(filepath.Join(dir, "data"))
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("persists an empty set as an empty array", func() {
			Expect(store.Persist(ctx, catalog.KindArtists, nil)).To(Succeed())

			data, err := os.ReadFile(store.Path(catalog.KindArtists))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("[]\n"))
		})
	})

	Context("Apply", func() {
		It("merges, fills schema defaults and persists", func() {
			store := catalog.NewMemoryStore()

			Expect(store.Persist(ctx, catalog.KindArtists, []catalog.Record{
				{"id": "newjeans", "name": "NewJeans", "country": "KR", "labels": []any{"ADOR"}},
			})).To(Succeed())

			merged, stats, err := catalog.Apply(ctx, store, catalog.KindArtists, []catalog.Record{
				{"id": "newjeans", "name": "NewJeans", "spotify_id": "6HvZ"},
				{"id": "ive", "name": "IVE"},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(stats).To(Equal(catalog.MergeStats{Inserted: 1, Updated: 1}))

			Expect(merged[0]).To(Equal(catalog.Record{
				"id":         "newjeans",
				"name":       "NewJeans",
				"country":    "KR",
				"labels":     []any{"ADOR"},
				"spotify_id": "6HvZ",
				"debut_date": "",
			}))
			Expect(merged[1]).To(Equal(catalog.Record{
				"id":         "ive",
				"name":       "IVE",
				"country":    "",
				"debut_date": "",
				"labels":     []any{},
			}))

			loaded, err := store.Load(ctx, catalog.KindArtists)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded).To(Equal(merged))
		})

		It("is idempotent through the store", func() {
			store := catalog.NewMemoryStore()
			batch := []catalog.Record{{"id": "ditto", "title": "Ditto", "artist_id": "newjeans"}}

			first, _, err := catalog.Apply(ctx, store, catalog.KindSongs, batch)
			Expect(err).ToNot(HaveOccurred())

			second, stats, err := catalog.Apply(ctx, store, catalog.KindSongs, batch)
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(stats).To(Equal(catalog.MergeStats{Unchanged: 1}))
		})
	})

	Context("MemoryStore", func() {
		It("does not share records with callers", func() {
			store := catalog.NewMemoryStore()
			in := []catalog.Record{{"id": "a"}}

			Expect(store.Persist(ctx, catalog.KindSongs, in)).To(Succeed())
			in[0]["id"] = "changed"

			out, err := store.Load(ctx, catalog.KindSongs)
			Expect(err).ToNot(HaveOccurred())
			Expect(out[0]["id"]).To(Equal("a"))
		})
	})

	Context("ReadOnly", func() {
		It("never writes to the wrapped store but returns its own writes", func() {
			backing := catalog.NewMemoryStore()
			Expect(backing.Persist(ctx, catalog.KindSongs, []catalog.Record{{"id": "a"}})).To(Succeed())

			ro := catalog.ReadOnly(backing)

			_, _, err := catalog.Apply(ctx, ro, catalog.KindSongs, []catalog.Record{{"id": "b"}})
			Expect(err).ToNot(HaveOccurred())

			overlay, err := ro.Load(ctx, catalog.KindSongs)
			Expect(err).ToNot(HaveOccurred())
			Expect(ids(overlay)).To(Equal([]string{"a", "b"}))

			original, err := backing.Load(ctx, catalog.KindSongs)
			Expect(err).ToNot(HaveOccurred())
			Expect(original).To(Equal([]catalog.Record{{"id": "a"}}))
		})
	})
})
