package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/forPelevin/cellcast/internal/types"
)

// WriteCues writes a cue track as a compact [{"s","e","t"}] list.
func WriteCues(path string, track types.CueTrack) error {
	if track == nil {
		track = types.CueTrack{}
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(track); err != nil {
		return fmt.Errorf("encode cues: %w", err)
	}
	return WriteFileAtomic(path, buf.Bytes(), 0o644)
}

type cueRecord struct {
	S *float64 `json:"s"`
	E *float64 `json:"e"`
	T *string  `json:"t"`
}

// DecodeCues parses a cue file. Records without a usable s, e or t are skipped
// and counted; a document that is not a list fails the whole load. The result
// is sorted by start.
func DecodeCues(r io.Reader, name string) (types.CueTrack, int, error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, 0, &LoadError{Artifact: name, Err: fmt.Errorf("decode: %w", err)}
	}

	track := make(types.CueTrack, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		var rec cueRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			skipped++
			continue
		}
		if rec.S == nil || rec.E == nil || rec.T == nil || strings.TrimSpace(*rec.T) == "" || *rec.S >= *rec.E {
			skipped++
			continue
		}
		track = append(track, types.Cue{Start: *rec.S, End: *rec.E, Text: *rec.T})
	}
	sort.SliceStable(track, func(i, j int) bool { return track[i].Start < track[j].Start })
	return track, skipped, nil
}

// LoadCues reads the cue file at path.
func LoadCues(path string) (types.CueTrack, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &LoadError{Artifact: path, Err: err}
	}
	defer f.Close()
	return DecodeCues(f, path)
}
