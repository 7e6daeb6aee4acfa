package sqlcommon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

// Value tags of the stored JSON document. Each field is stored as an object
// with exactly one of these keys so that SQL expressions can address a field
// by kind without guessing its type.
const (
	tagString = "s"
	tagInt    = "i"
	tagFloat  = "f"
	tagBool   = "b"
	tagTime   = "t"
	tagArray  = "a"
)

type taggedValue struct {
	S *string      `json:"s,omitempty"`
	I *json.Number `json:"i,omitempty"`
	F *json.Number `json:"f,omitempty"`
	B *bool        `json:"b,omitempty"`
	T *int64       `json:"t,omitempty"`
	A []string     `json:"a,omitempty"`
}

// MarshalFields encodes normalized fields into the stored JSON form.
// Times are stored as unix nanoseconds in UTC.
func MarshalFields(fields storage.Fields) ([]byte, error) {
	out := make(map[string]map[string]any, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case string:
			out[k] = map[string]any{tagString: t}
		case int64:
			out[k] = map[string]any{tagInt: t}
		case float64:
			out[k] = map[string]any{tagFloat: t}
		case bool:
			out[k] = map[string]any{tagBool: t}
		case time.Time:
			out[k] = map[string]any{tagTime: t.UTC().UnixNano()}
		case []string:
			if t == nil {
				t = []string{}
			}
			out[k] = map[string]any{tagArray: t}
		default:
			return nil, storage.InvalidFieldValueError(k, v)
		}
	}

	return json.Marshal(out)
}

// UnmarshalFields decodes the stored JSON form back into fields.
func UnmarshalFields(data []byte) (storage.Fields, error) {
	raw := map[string]taggedValue{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	fields := make(storage.Fields, len(raw))
	for k, v := range raw {
		switch {
		case v.S != nil:
			fields[k] = *v.S
		case v.I != nil:
			n, err := v.I.Int64()
			if err != nil {
				return nil, fmt.Errorf("decode field '%s': %w", k, err)
			}
			fields[k] = n
		case v.F != nil:
			f, err := v.F.Float64()
			if err != nil {
				return nil, fmt.Errorf("decode field '%s': %w", k, err)
			}
			fields[k] = f
		case v.B != nil:
			fields[k] = *v.B
		case v.T != nil:
			fields[k] = time.Unix(0, *v.T).UTC()
		default:
			if v.A == nil {
				v.A = []string{}
			}
			fields[k] = v.A
		}
	}

	return fields, nil
}
