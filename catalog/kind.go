package catalog

// Kind names one of the three persisted record sets.
type Kind string

const (
	KindArtists  Kind = "artists"
	KindSongs    Kind = "songs"
	KindReleases Kind = "releases"
)

// Kinds lists every record set in dependency order.
var Kinds = []Kind{KindArtists, KindSongs, KindReleases}

// FileName is the name of the JSON file holding the set.
func (k Kind) FileName() string {
	return string(k) + ".json"
}

// Key returns the key function for the set.
func (k Kind) Key() KeyFunc {
	if k == KindReleases {
		return ByRelease
	}

	return ByID
}

// Defaults returns the schema fields a persisted record must carry, with the
// value used when no source supplied one.
func (k Kind) Defaults() Record {
	switch k {
	case KindArtists:
		return Record{"country": "", "debut_date": "", "labels": []any{}}
	case KindSongs:
		return Record{"artist_id": UnknownArtistID, "release_date": "", "yt_url": ""}
	case KindReleases:
		return Record{"region": ""}
	default:
		return Record{}
	}
}

// WithDefaults returns records with any missing schema field filled in.
// Present fields, empty or not, are left alone.
func WithDefaults(kind Kind, records []Record) []Record {
	defaults := kind.Defaults()
	out := make([]Record, 0, len(records))

	for _, r := range records {
		filled := r
		cloned := false

		for field, value := range defaults {
			if _, ok := r[field]; ok {
				continue
			}

			if !cloned {
				filled = r.Clone()
				cloned = true
			}

			filled[field] = value
		}

		out = append(out, filled)
	}

	return out
}
