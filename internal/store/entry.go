package store

import (
	"encoding/json"
	"fmt"
)

// Entry is one [id, record] pair of a persisted collection.
type Entry struct {
	ID     string
	Record json.RawMessage
}

// MarshalJSON encodes the entry as a two element array.
func (e Entry) MarshalJSON() ([]byte, error) {
	record := e.Record
	if len(record) == 0 {
		record = json.RawMessage("null")
	}
	return json.Marshal([2]any{e.ID, record})
}

// UnmarshalJSON decodes a two element [id, record] array.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("store: entry must be an [id, record] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return fmt.Errorf("store: entry id: %w", err)
	}
	if e.ID == "" {
		return fmt.Errorf("store: entry id is empty")
	}
	e.Record = append(json.RawMessage(nil), pair[1]...)
	return nil
}

// EncodeEntries serializes entries in order.
func EncodeEntries(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

// DecodeEntries parses a payload produced by EncodeEntries. Empty payloads decode to nil.
func DecodeEntries(payload []byte) ([]Entry, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return entries, nil
}
