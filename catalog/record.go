package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Record is one stored object. Values are whatever encoding/json produces with
// UseNumber, so numbers survive a load/persist cycle unchanged.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}

	return out
}

// String returns the field as a string; numbers are formatted, anything else
// (including a missing field) is "".
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64, int, int64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Has reports whether field is present with a non-blank value.
func (r Record) Has(field string) bool {
	return strings.TrimSpace(r.String(field)) != ""
}

// ToRecord converts a model struct into a Record through its JSON form, so
// omitempty fields are absent rather than zero.
func ToRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal record")
	}

	return decodeRecord(data)
}

// ToRecords converts a slice of model structs.
func ToRecords[T any](items []T) ([]Record, error) {
	out := make([]Record, 0, len(items))

	for i := range items {
		r, err := ToRecord(items[i])
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}

		out = append(out, r)
	}

	return out, nil
}

func decodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	r := Record{}
	if err := dec.Decode(&r); err != nil {
		return nil, errors.Wrap(err, "unable to decode record")
	}

	return r, nil
}
