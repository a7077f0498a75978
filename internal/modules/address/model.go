package address

// Sentinel values written instead of blanks so a missing address is never
// mistaken for a valid empty one on the shipping label.
const (
	MissingStreet    = "DELIVERY ADDRESS MISSING - CHECK CHECKOUT FLOW"
	ParseErrorStreet = "ADDRESS PARSING ERROR"
	Unknown          = "UNKNOWN"
)

// Address is a delivery address split into the fields the commerce platform expects.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
	Full   string `json:"full_address"`
}

// Fields is the structured address carried by the versioned checkout payload.
type Fields struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

func (f Fields) empty() bool {
	return f.Street == "" && f.City == "" && f.State == "" && f.Zip == ""
}

// IsSentinel reports whether the address is a placeholder rather than real data.
func (a Address) IsSentinel() bool {
	return a.Street == MissingStreet || a.Street == ParseErrorStreet
}

func missing() Address {
	return Address{Street: MissingStreet, City: Unknown, State: Unknown, Zip: Unknown, Full: MissingStreet}
}

func parseError() Address {
	return Address{Street: ParseErrorStreet, City: Unknown, State: Unknown, Zip: Unknown, Full: ParseErrorStreet}
}
