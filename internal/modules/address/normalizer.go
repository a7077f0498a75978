package address

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// metadataKeys are probed in order; the first non-blank value wins.
var metadataKeys = []string{"delivery_address", "shipping_address", "address", "customer_address"}

// stateZip matches the third comma part of "street, city, ST 12345[-6789]".
var stateZip = regexp.MustCompile(`^([A-Za-z]{2})\s+(\d{5}(?:-\d{4})?)$`)

// Normalize produces a delivery address from the structured checkout payload
// when present, otherwise from the legacy metadata keys. It never fails: a
// missing source yields MissingStreet sentinels and a malformed one yields
// ParseErrorStreet sentinels.
func Normalize(metadata map[string]string, structured *Fields) (a Address) {
	defer func() {
		if r := recover(); r != nil {
			a = parseError()
		}
	}()
	if structured != nil && !structured.empty() {
		return FromFields(*structured)
	}
	for _, k := range metadataKeys {
		if v := strings.TrimSpace(metadata[k]); !absent(v) {
			return FromString(v)
		}
	}
	return missing()
}

// absent reports placeholder values that serialisers write for "no value".
func absent(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "null", "undefined":
		return true
	}
	return false
}

// FromString parses a single-line address. A value that looks like a JSON
// object is decoded and treated as a structured address.
func FromString(s string) Address {
	s = strings.TrimSpace(s)
	if absent(s) {
		return missing()
	}
	if strings.HasPrefix(s, "{") {
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return parseError()
		}
		return FromObject(obj)
	}

	parts := strings.Split(s, ",")
	usable := false
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if absent(parts[i]) {
			parts[i] = ""
			continue
		}
		usable = true
	}
	if !usable {
		return missing()
	}
	a := Address{Full: s}
	switch {
	case len(parts) >= 3:
		a.Street, a.City = parts[0], parts[1]
		a.State, a.Zip = splitStateZip(parts[2])
	case len(parts) == 2:
		a.Street, a.City = parts[0], parts[1]
	default:
		a.Street = parts[0]
	}
	return a
}

// splitStateZip handles "TX 78701". Anything else is split on whitespace and
// the last token is taken as the postal code only when it contains a digit.
func splitStateZip(s string) (state, zip string) {
	if m := stateZip.FindStringSubmatch(s); m != nil {
		return strings.ToUpper(m[1]), m[2]
	}
	tokens := strings.Fields(s)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	}
	last := tokens[len(tokens)-1]
	if strings.ContainsAny(last, "0123456789") {
		return strings.Join(tokens[:len(tokens)-1], " "), last
	}
	return s, ""
}

var (
	streetKeys = []string{"street", "address", "address1", "line1", "street_address"}
	cityKeys   = []string{"city", "locality"}
	stateKeys  = []string{"state", "province", "region"}
	zipKeys    = []string{"zip", "zipcode", "zip_code", "postal_code"}
)

// FromObject reads an address out of a loosely keyed object.
func FromObject(obj map[string]any) Address {
	return FromFields(Fields{
		Street: pick(obj, streetKeys),
		City:   pick(obj, cityKeys),
		State:  pick(obj, stateKeys),
		Zip:    pick(obj, zipKeys),
	})
}

func FromFields(f Fields) Address {
	f = Fields{
		Street: field(f.Street),
		City:   field(f.City),
		State:  field(f.State),
		Zip:    field(f.Zip),
	}
	if f.empty() {
		return missing()
	}
	var parts []string
	for _, p := range []string{f.Street, f.City, strings.TrimSpace(f.State + " " + f.Zip)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return Address{
		Street: f.Street,
		City:   f.City,
		State:  f.State,
		Zip:    f.Zip,
		Full:   strings.Join(parts, ", "),
	}
}

func field(s string) string {
	if absent(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

func pick(obj map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case float64, bool:
			s = fmt.Sprint(t)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
