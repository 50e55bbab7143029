package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyAddResponse is returned when the `add` response contains no records.
var ErrEmptyAddResponse = errors.New("add response contains no records")

// ParseAddResponse decodes the newline-delimited JSON body of the `add`
// command and returns the last record. The daemon may send progress
// and per-file records first; the final hash is always the last one.
func ParseAddResponse(body []byte) (AddedObject, error) {
	var last AddedObject
	found := false

	for i, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var obj AddedObject
		if err := json.Unmarshal(line, &obj); err != nil {
			return AddedObject{}, fmt.Errorf("decoding add record on line %d: %w", i+1, err)
		}

		last = obj
		found = true
	}

	if !found {
		return AddedObject{}, ErrEmptyAddResponse
	}

	if last.Hash == "" {
		return AddedObject{}, fmt.Errorf("last add record %+v has no hash", last)
	}

	return last, nil
}
