package vasp

import "errors"

var (
	// ErrUnsupportedConversion means neither the tenant's currency table nor
	// the rate provider can convert the requested pair.
	ErrUnsupportedConversion = errors.New("vasp: unsupported conversion")
	// ErrNotConfigured means the tenant has no invoice backend wired.
	ErrNotConfigured = errors.New("vasp: invoice creation not configured")
)
