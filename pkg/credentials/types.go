package credentials

// Credentials represents the stored vendor credentials in credentials.toml.
type Credentials struct {
	Version int                         `toml:"version"`
	Vendors map[string]VendorCredential `toml:"vendors"`
}

// VendorCredential holds the tokens for a single vendor.
type VendorCredential struct {
	// Token is the bearer token attached to vendor requests.
	Token string `toml:"token"`

	// RefreshToken, when present, is exchanged for a fresh Token after the
	// vendor reports the current one expired.
	RefreshToken string `toml:"refresh_token,omitempty"`
}
