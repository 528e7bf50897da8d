package catalog

import (
	"reflect"
)

// MergeStats counts what a merge did with each incoming record.
type MergeStats struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// Add accumulates other into s.
func (s *MergeStats) Add(other MergeStats) {
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Unchanged += other.Unchanged
	s.Skipped += other.Skipped
}

// Merge upserts incoming into existing and returns the new set. Neither input
// is modified.
//
//   - key in both: shallow field union, incoming wins per field, fields the
//     incoming record lacks are kept
//   - key only in incoming: inserted as-is, in batch order, after existing keys
//   - key only in existing: kept unchanged at its position
//   - incoming without a key: skipped
//
// Existing records without a key are carried through but never matched. Keys
// repeated within existing or within incoming fold into the first occurrence.
// Applying the same batch twice gives the same result as applying it once.
func Merge(existing, incoming []Record, key KeyFunc) ([]Record, MergeStats) {
	var stats MergeStats

	out := make([]Record, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	for _, r := range existing {
		if r == nil {
			continue
		}

		k, ok := key(r)
		if !ok {
			out = append(out, r.Clone())
			continue
		}

		if i, seen := index[k]; seen {
			out[i] = union(out[i], r)
			continue
		}

		index[k] = len(out)
		out = append(out, r.Clone())
	}

	for _, r := range incoming {
		k, ok := key(r)
		if !ok {
			stats.Skipped++
			continue
		}

		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, r.Clone())
			stats.Inserted++

			continue
		}

		merged := union(out[i], r)
		if reflect.DeepEqual(merged, out[i]) {
			stats.Unchanged++
		} else {
			stats.Updated++
		}

		out[i] = merged
	}

	return out, stats
}

func union(base, overlay Record) Record {
	out := base.Clone()
	for f, v := range overlay {
		out[f] = v
	}

	return out
}
