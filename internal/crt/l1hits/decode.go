package l1hits

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// hitFile is the object form of a hit file.
type hitFile struct {
	Events []Event `json:"events"`
}

// DecodeEvents reads a hit file. Two layouts are accepted: an object with an
// "events" array, or a bare array of events. Events without an ID are named
// by their position in the file.
func DecodeEvents(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read hit file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var events []Event
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("failed to parse event array: %w", err)
		}
	case '{':
		var f hitFile
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, fmt.Errorf("failed to parse hit file: %w", err)
		}
		events = f.Events
	default:
		return nil, fmt.Errorf("hit file must be a JSON object or array, got %q", trimmed[0])
	}

	for i := range events {
		if events[i].ID == "" {
			events[i].ID = strconv.Itoa(i)
		}
	}
	return events, nil
}

// EncodeEvents writes events in the object layout accepted by DecodeEvents.
func EncodeEvents(w io.Writer, events []Event) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(hitFile{Events: events})
}
