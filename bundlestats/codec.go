package bundlestats

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RecordFileName is the fixed name of the serialized record inside a
// baseline artifact archive.
const RecordFileName = "sizewatch-stats.json"

// ErrMalformedRecord indicates the record file could not be decoded or
// violated a structural invariant.
var ErrMalformedRecord = errors.New("malformed stats record")

// Encode serializes the record as indented JSON.
func Encode(s *Stats) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode stats: %w", err)
	}
	return data, nil
}

// Decode parses a serialized record, recomputes the totals from the file
// entries, and rejects duplicate paths. Stored totals are ignored: the
// per-file entries are authoritative.
func Decode(data []byte) (*Stats, error) {
	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	seen := make(map[string]struct{}, len(s.Files))
	for _, f := range s.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("%w: entry with empty path", ErrMalformedRecord)
		}
		if _, dup := seen[f.Path]; dup {
			return nil, fmt.Errorf("%w: duplicate path %q", ErrMalformedRecord, f.Path)
		}
		seen[f.Path] = struct{}{}
	}

	if s.Commit == "" {
		s.Commit = UnknownCommit
	}
	s.recomputeTotals()
	return &s, nil
}
