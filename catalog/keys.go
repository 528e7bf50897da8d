package catalog

import (
	"strings"
)

// keySeparator cannot appear in canonical ids or dates.
const keySeparator = "\x1f"

// KeyFunc extracts a record's key. ok is false when any key component is
// missing or blank; such records are never inserted.
type KeyFunc func(r Record) (key string, ok bool)

var (
	// ByID keys artists and songs.
	ByID = FieldKey("id")

	// ByRelease keys releases by song and release date.
	ByRelease = FieldKey("song_id", "release_at")
)

// FieldKey builds a KeyFunc from one or more fields.
func FieldKey(fields ...string) KeyFunc {
	return func(r Record) (string, bool) {
		if r == nil {
			return "", false
		}

		parts := make([]string, 0, len(fields))

		for _, f := range fields {
			if !r.Has(f) {
				return "", false
			}

			parts = append(parts, r.String(f))
		}

		return strings.Join(parts, keySeparator), true
	}
}
