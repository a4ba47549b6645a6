package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EntityID is an identifier the back-office API may send as a JSON number or string.
// The zero value means the entity had no id and must be ignored by the engines.
type EntityID string

func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntityID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid entity id %s: %w", data, err)
	}
	*id = EntityID(n.String())
	return nil
}

// Valid reports whether the id is present.
func (id EntityID) Valid() bool {
	return id != ""
}

func (id EntityID) String() string {
	return string(id)
}
