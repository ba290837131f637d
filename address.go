package wsconsole

import (
	"regexp"
)

// EchoAddress is a public echo server, handy as a default target.
const EchoAddress = "wss://echo.websocket.org"

var addressPattern = regexp.MustCompile(`^(ws|wss)://[^\s"]+$`)

// ValidAddress is an address that passed ValidateAddress. The zero value is not valid and is rejected by
// Controller.Connect.
type ValidAddress struct {
	raw string
}

func (a ValidAddress) String() string {
	return a.raw
}

// IsZero reports whether the address was not produced by ValidateAddress.
func (a ValidAddress) IsZero() bool {
	return a.raw == ""
}

// ValidateAddress checks that raw looks like a websocket URL. The check is purely syntactic, nothing is resolved
// nor dialed.
func ValidateAddress(raw string) (ValidAddress, error) {
	if raw == "" {
		return ValidAddress{}, &ValidationError{Kind: ValidationEmpty}
	}

	if !addressPattern.MatchString(raw) {
		return ValidAddress{}, &ValidationError{Kind: ValidationMalformedScheme}
	}

	return ValidAddress{raw: raw}, nil
}
