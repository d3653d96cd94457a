package model

import (
	"bytes"
	"encoding/json"
)

// subRowKey is the well-known JSON key spec.md §6 reserves for nested
// child records on a cell that drove a traversal.
const subRowKey = "subRow"

// MarshalJSON renders the record as spec.md §6 describes: an object whose
// keys are the lowercased column names, plus one reserved "subRow" object
// mapping child-table-name to an array of child nodes, merged across every
// cell that drove a traversal. This matches the scenario shape in spec.md
// §8 (e.g. "blogpost row with subRow.comment array ... and also subRow.author"
// siding next to the plain column values, not nested inside one column).
func (r *Record) MarshalJSON() ([]byte, error) {
	merged := map[string][]*Record{}
	for _, c := range r.Cells {
		for table, rows := range c.SubRows {
			merged[table] = append(merged[table], rows...)
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(Lower(c.Name))
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	if len(merged) > 0 {
		if len(r.Cells) > 0 {
			buf.WriteByte(',')
		}
		subKey, _ := json.Marshal(subRowKey)
		buf.Write(subKey)
		buf.WriteByte(':')
		sub, err := json.Marshal(merged)
		if err != nil {
			return nil, err
		}
		buf.Write(sub)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
