package gateway

import (
	"bytes"
	"encoding/json"
)

// ExpandableID holds a reference that the gateway sends either as a bare id or,
// when expanded, as an object with an "id" field.
type ExpandableID struct {
	ID     string
	Object json.RawMessage
}

func (e *ExpandableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = ExpandableID{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*e = ExpandableID{ID: id}
		return nil
	}
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*e = ExpandableID{ID: probe.ID, Object: append(json.RawMessage(nil), data...)}
	return nil
}

func (e ExpandableID) MarshalJSON() ([]byte, error) {
	if len(e.Object) > 0 {
		return e.Object, nil
	}
	if e.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(e.ID)
}

// Expanded decodes the expanded object into dst. It reports false when the
// reference was not expanded.
func (e ExpandableID) Expanded(dst any) bool {
	if len(e.Object) == 0 {
		return false
	}
	return json.Unmarshal(e.Object, dst) == nil
}
