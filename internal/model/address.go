package model

import (
	"encoding/json"
	"fmt"
)

// Address is a shipping address. Named fields cover what the checkout core
// reads; every other key round-trips through Extra.
type Address struct {
	Street  string
	City    string
	State   string
	Country string
	Zip     string
	Extra   map[string]any
}

// stateKeys lists accepted spellings of the state field, highest precedence first.
var stateKeys = []string{"state", "State", "province", "Province"}

// Express reports whether express delivery was requested. Any non-empty,
// non-zero value of the express key counts.
func (a Address) Express() bool {
	return truthy(a.Extra["express"])
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// IsDomestic reports whether the address is inside the US.
func (a Address) IsDomestic() bool {
	return a.Country == "US"
}

// UnmarshalJSON decodes a flat address object.
func (a *Address) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	*a = Address{}
	for _, key := range stateKeys {
		if v, ok := raw[key]; ok {
			if a.State == "" {
				a.State = stringValue(v)
			}
			delete(raw, key)
		}
	}

	for key, value := range raw {
		switch key {
		case "street":
			a.Street = stringValue(value)
		case "city":
			a.City = stringValue(value)
		case "country":
			a.Country = stringValue(value)
		case "zip":
			a.Zip = stringValue(value)
		default:
			if a.Extra == nil {
				a.Extra = make(map[string]any)
			}
			a.Extra[key] = value
		}
	}

	return nil
}

// MarshalJSON encodes the address back into a flat object.
func (a Address) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Extra)+5)
	for k, v := range a.Extra {
		out[k] = v
	}

	named := map[string]string{
		"street":  a.Street,
		"city":    a.City,
		"state":   a.State,
		"country": a.Country,
		"zip":     a.Zip,
	}
	for k, v := range named {
		if v != "" {
			out[k] = v
		}
	}

	return json.Marshal(out)
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
