package domain

import "context"

// Provider is one integration with an external intelligence source.
// Scan returns the source's findings normalized into Exposure records.
// Implementations map expected upstream degradations (rejected
// credentials, empty results) to an empty slice; a returned error means
// the provider could not complete at all and is recorded by the
// aggregator as a failed provider. Implementations must never panic
// across this boundary.
type Provider interface {
	// Name is the human-readable provider name used in ProviderStats.
	Name() string

	// Enabled reports whether the provider can be scanned at all,
	// e.g. whether its credential is configured.
	Enabled() bool

	// Scan queries the source for the identifier. The context bounds
	// the call; implementations must honor cancellation.
	Scan(ctx context.Context, identifier string) ([]Exposure, error)
}

// ProviderConfig holds credentials and switches for the built-in
// provider adapters. Values are passed explicitly so adapters never
// read ambient environment state.
type ProviderConfig struct {
	// LeakCheck public API needs no credential.
	LeakCheckEnabled bool

	// DeHashed requires the account email plus API key for basic auth.
	DeHashedUser   string
	DeHashedAPIKey string

	// IntelX API key.
	IntelXAPIKey string

	// Maigret shells out to the maigret executable. Binary is the
	// command name or path; empty disables the adapter.
	MaigretBinary   string
	MaigretTopSites int
}
