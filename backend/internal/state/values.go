package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "tablegraph/backend/pkg/errors"
)

// Values is an ordered column -> value mapping.
// Column order is insertion order; setting an existing column keeps its position.
type Values struct {
	columns []string
	data    map[string]string
}

// ValuesOf builds Values from alternating column, value arguments
func ValuesOf(pairs ...string) Values {
	if len(pairs)%2 != 0 {
		panic("state: ValuesOf needs column/value pairs")
	}
	var v Values
	for i := 0; i < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

// Set assigns value to column, appending the column if it is new
func (v *Values) Set(column, value string) {
	if v.data == nil {
		v.data = make(map[string]string)
	}
	if _, ok := v.data[column]; !ok {
		v.columns = append(v.columns, column)
	}
	v.data[column] = value
}

// Get returns the value of column
func (v Values) Get(column string) (string, bool) {
	value, ok := v.data[column]
	return value, ok
}

// Len is the number of columns
func (v Values) Len() int {
	return len(v.columns)
}

// Columns returns the column names in order
func (v Values) Columns() []string {
	out := make([]string, len(v.columns))
	copy(out, v.columns)
	return out
}

// Texts returns the values in column order
func (v Values) Texts() []string {
	out := make([]string, len(v.columns))
	for i, c := range v.columns {
		out[i] = v.data[c]
	}
	return out
}

// Clone returns a copy that shares no storage with v
func (v Values) Clone() Values {
	var out Values
	for _, c := range v.columns {
		out.Set(c, v.data[c])
	}
	return out
}

// Equal reports whether both mappings hold the same columns, values and order
func (v Values) Equal(other Values) bool {
	if len(v.columns) != len(other.columns) {
		return false
	}
	for i, c := range v.columns {
		if other.columns[i] != c || other.data[c] != v.data[c] {
			return false
		}
	}
	return true
}

// Validate rejects blank column names
func (v Values) Validate() error {
	for _, c := range v.columns {
		if strings.TrimSpace(c) == "" {
			return apperrors.NewValidationFailed("row_data", "column names must not be blank")
		}
	}
	return nil
}

// MarshalJSON writes an object with keys in column order
func (v Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range v.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.data[c])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of string values, keeping key order.
// Any non-string value is rejected rather than coerced.
func (v *Values) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return apperrors.NewValidationFailed("row_data", "malformed JSON")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return apperrors.NewValidationFailed("row_data", "must be an object of column names to string values")
	}

	var out Values
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return apperrors.NewValidationFailed("row_data", "malformed JSON")
		}
		column, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return apperrors.NewValidationFailed("row_data", "malformed JSON")
		}
		if len(raw) == 0 || raw[0] != '"' {
			return apperrors.NewValidationFailed("row_data", fmt.Sprintf("value for column %q must be a string", column))
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return apperrors.NewValidationFailed("row_data", fmt.Sprintf("value for column %q must be a string", column))
		}
		out.Set(column, value)
	}
	if _, err := dec.Token(); err != nil {
		return apperrors.NewValidationFailed("row_data", "malformed JSON")
	}

	*v = out
	return nil
}
