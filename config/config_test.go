package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/dselans/music-catalog/config"
)

var _ = Describe("Config", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = &config.Config{
			DataDir:     "data",
			HTTPTimeout: 20 * time.Second,
			Sources:     []string{" YouTube", "sheets"},
		}
	})

	Context("Validate", func() {
		It("normalizes source names", func() {
			Expect(cfg.Validate()).To(Succeed())
			Expect(cfg.Sources).To(Equal([]string{"youtube", "sheets"}))
		})

		It("rejects unknown and repeated sources", func() {
			cfg.Sources = []string{"youtube", "tidal"}
			Expect(cfg.Validate()).ToNot(Succeed())

			cfg.Sources = []string{"youtube", "youtube"}
			Expect(cfg.Validate()).ToNot(Succeed())
		})

		It("requires a data dir and a timeout", func() {
			cfg.DataDir = ""
			Expect(cfg.Validate()).ToNot(Succeed())

			cfg.DataDir = "data"
			cfg.HTTPTimeout = 0
			Expect(cfg.Validate()).ToNot(Succeed())
		})

		It("rejects nil", func() {
			var c *config.Config
			Expect(c.Validate()).ToNot(Succeed())
		})
	})

	Context("GetMap", func() {
		It("masks credentials", func() {
			cfg.YouTubeAPIKey = "abc"
			cfg.SpotifyClientSecret = "def"

			m := cfg.GetMap()
			Expect(m["YouTubeAPIKey"]).To(Equal("********"))
			Expect(m["SpotifyClientSecret"]).To(Equal("********"))
			Expect(m["DataDir"]).To(Equal("data"))
			Expect(m).ToNot(HaveKey("KongContext"))
		})
	})
})

var _ = Describe("Sources", func() {
	var dir string

	BeforeEach(func() {
		var err error

		dir, err = os.MkdirTemp("", "catalog-sources-*")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

		return path
	}

	It("loads a TOML sources file", func() {
		path := write("sources.toml", `
[[youtube.playlists]]
id = " PL1 "
region = "KR"

[[youtube.playlists]]
id = "PL2"
max_items = 25

[youtube.channel_hints."HYBE LABELS"]
region = "KR"
genre = "k-pop"

[spotify]
artist_ids = ["a1", "a2"]
track_ids = ["t1"]

[titles]
noise_tokens = ["live clip"]

[sheets]
url = "https://docs.google.com/spreadsheets/d/e/x/pub?output=csv"
`)

		s, err := config.LoadSources(path)
		Expect(err).ToNot(HaveOccurred())

		Expect(s.YouTube.Playlists).To(Equal([]config.PlaylistSource{
			{ID: "PL1", Region: "KR"},
			{ID: "PL2", MaxItems: 25},
		}))
		Expect(s.YouTube.ChannelHints).To(Equal(map[string]config.ChannelHint{
			"hybe-labels": {Region: "KR", Genre: "k-pop"},
		}))
		Expect(s.Spotify.ArtistIDs).To(Equal([]string{"a1", "a2"}))
		Expect(s.Spotify.TrackIDs).To(Equal([]string{"t1"}))
		Expect(s.Titles.NoiseTokens).To(Equal([]string{"live clip"}))
		Expect(s.Sheets.URL).To(HavePrefix("https://docs.google.com/"))
	})

	It("loads a legacy JSON config", func() {
		path := write("config.json", `{"youtube":{"playlists":[{"id":"PL1"}]},"spotify":{"artist_ids":["a1"],"track_ids":[]}}`)

		s, err := config.LoadSources(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(s.YouTube.Playlists).To(HaveLen(1))
		Expect(s.Spotify.ArtistIDs).To(Equal([]string{"a1"}))
	})

	It("returns empty sources for a missing file", func() {
		s, err := config.LoadSources(filepath.Join(dir, "nope.toml"))
		Expect(err).ToNot(HaveOccurred())
		Expect(s.YouTube.Playlists).To(BeEmpty())
		Expect(s.Sheets.URL).To(BeEmpty())
	})

	It("rejects a playlist without an id", func() {
		path := write("sources.toml", "[[youtube.playlists]]\nregion = \"KR\"\n")

		_, err := config.LoadSources(path)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("ID"))
	})

	It("rejects blank spotify ids and bad urls", func() {
		_, err := config.LoadSources(write("a.toml", "[spotify]\nartist_ids = [\"a1\", \" \"]\n"))
		Expect(err).To(HaveOccurred())

		_, err = config.LoadSources(write("b.toml", "[sheets]\nurl = \"not a url\"\n"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects channel hints that collide after canonicalization", func() {
		path := write("sources.toml", `
[youtube.channel_hints."HYBE LABELS"]
region = "KR"

[youtube.channel_hints."hybe-labels"]
region = "JP"
`)

		_, err := config.LoadSources(path)
		Expect(err).To(HaveOccurred())
	})

	It("rejects malformed TOML", func() {
		_, err := config.LoadSources(write("bad.toml", "[youtube\n"))
		Expect(err).To(HaveOccurred())
	})

	It("parses the sample sources file", func() {
		s, err := config.LoadSources("sources.toml")
		Expect(err).ToNot(HaveOccurred())
		Expect(s.YouTube.ChannelHints).To(HaveKey("hybe-labels"))
	})
})
