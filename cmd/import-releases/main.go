// import-releases merges a local CSV/TSV export of releases into the catalog.
// It reads the same columns as the sheets connector and runs in dry-run mode
// unless -enable-write is given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/music-catalog/backends/lock"
	"github.com/dselans/music-catalog/catalog"
	"github.com/dselans/music-catalog/clog"
	"github.com/dselans/music-catalog/services/sheets"
)

var (
	logLevel    string
	enableWrite bool
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}

	return def
}

func setLogLevel() {
	logLevel = getenv("LOG_LEVEL", "info")

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

func main() {
	godotenv.Load()

	inPath := flag.String("in", "", "input CSV/TSV path (song_id, region, release_at)")
	dataDir := flag.String("data-dir", getenv("MUSIC_CATALOG_DATA_DIR", "data"), "catalog data directory")
	flag.BoolVar(&enableWrite, "enable-write", false, "enable writing releases.json (default: dry-run mode)")
	flag.Parse()

	if *inPath == "" {
		log.Fatal("missing -in flag")
	}

	setLogLevel()

	if !enableWrite {
		logrus.Info("DRY RUN MODE - releases.json will not be written")
	}

	logrus.Infof("Release import start (LOG_LEVEL=%s, file=%s, data-dir=%s, enable-write=%v)",
		logLevel, *inPath, *dataDir, enableWrite)

	stats, dropped, err := importReleases(context.Background(), *inPath, *dataDir, enableWrite)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	logrus.Infof("Done. Inserted: %d, Updated: %d, Unchanged: %d, Skipped: %d, Dropped: %d",
		stats.Inserted, stats.Updated, stats.Unchanged, stats.Skipped, dropped)
}

func importReleases(ctx context.Context, inPath, dataDir string, write bool) (catalog.MergeStats, int, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return catalog.MergeStats{}, 0, errors.Wrap(err, "unable to read input")
	}

	batch := sheets.ParseReleases(string(data))

	for _, r := range batch.Releases {
		logrus.Debugf("Parsed release: %s | %s | %s", r.SongID, r.Region, r.ReleaseAt)
	}

	if batch.Dropped > 0 {
		logrus.Warnf("%d rows missing song id or release date were dropped", batch.Dropped)
	}

	records, err := batch.Records(catalog.KindReleases)
	if err != nil {
		return catalog.MergeStats{}, batch.Dropped, err
	}

	fs, err := catalog.NewFileStore(dataDir)
	if err != nil {
		return catalog.MergeStats{}, batch.Dropped, err
	}

	var store catalog.Store = fs
	if !write {
		store = catalog.ReadOnly(fs)
	} else {
		// Same writer lock the ingest run takes
		fl, err := lock.NewFile(filepath.Join(dataDir, lock.DefaultFileName), clog.New(nil))
		if err != nil {
			return catalog.MergeStats{}, batch.Dropped, err
		}

		if err := fl.Acquire(ctx); err != nil {
			return catalog.MergeStats{}, batch.Dropped, errors.Wrap(err, "unable to acquire catalog lock")
		}

		defer func() {
			if err := fl.Release(context.Background()); err != nil {
				logrus.Warnf("Unable to release catalog lock: %v", err)
			}
		}()
	}

	merged, stats, err := catalog.Apply(ctx, store, catalog.KindReleases, records)
	if err != nil {
		return stats, batch.Dropped, err
	}

	if !write && logrus.IsLevelEnabled(logrus.DebugLevel) {
		b, _ := json.MarshalIndent(merged, "", "  ")
		logrus.Debugf("DRY RUN - would write releases.json:\n%s", string(b))
	}

	return stats, batch.Dropped, nil
}
