package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Entity is one record of the dataset being snapshotted.
// Only these four fields are persisted; anything else a data source carries
// is dropped when the snapshot is written.
type Entity struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Age   int    `json:"age" yaml:"age"`
	Group int    `json:"group" yaml:"group"`
}

// entityRecord is the on-disk shape accepted by the reader. Older snapshot
// files written by the first version of the tool store the group under
// "group_num" and may carry numeric ids.
type entityRecord struct {
	ID       json.RawMessage `json:"id"`
	Name     string          `json:"name"`
	Age      int             `json:"age"`
	Group    *int            `json:"group"`
	GroupNum *int            `json:"group_num"`
}

// UnmarshalJSON decodes an entity, accepting the legacy field names.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var rec entityRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	id, err := decodeID(rec.ID)
	if err != nil {
		return err
	}

	*e = Entity{ID: id, Name: rec.Name, Age: rec.Age}
	switch {
	case rec.Group != nil:
		e.Group = *rec.Group
	case rec.GroupNum != nil:
		e.Group = *rec.GroupNum
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or a number, got %s", raw)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}
