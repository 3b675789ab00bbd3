package request

import "encoding/json"

// SubmitRequest is the request body for submitting a portfolio value
type SubmitRequest struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Value is a portfolio value sent as either a JSON number or a string.
// It is kept as text so validation happens in one place.
type Value string

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null":
		*v = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(s)
	default:
		*v = Value(b)
	}
	return nil
}
