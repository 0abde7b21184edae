package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// marshalWithExtra encodes known and appends the extra keys, sorted, before
// the closing brace. known must encode to a non-empty JSON object.
func marshalWithExtra(known any, extra map[string]any) ([]byte, error) {
	base, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	for _, k := range keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(extra[k])
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// unmarshalExtra returns every top-level key of data not listed in known,
// or nil when there are none.
func unmarshalExtra(data []byte, known []string) (map[string]any, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	extra := make(map[string]any, len(all))
	for k, raw := range all {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		extra[k] = v
	}
	return extra, nil
}
