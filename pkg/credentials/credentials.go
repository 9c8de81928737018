// Package credentials manages vendor tokens stored in credentials.toml under
// the .weft/ directory, and exposes them as a refreshable token source for
// the transport layer.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/spoolworks/weft/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// vendorEnvVars maps vendor names to their expected environment variables.
var vendorEnvVars = map[string]string{
	"bot":   "WEFT_BOT_TOKEN",
	"agent": "WEFT_AGENT_TOKEN",
}

// Manager manages reading and writing credentials.toml in the .weft/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .weft/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version: currentVersion,
				Vendors: make(map[string]VendorCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Vendors == nil {
		creds.Vendors = make(map[string]VendorCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetToken stores a bearer token for the given vendor, preserving any stored
// refresh token.
func (m *Manager) SetToken(vendor, token string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	vc := creds.Vendors[vendor]
	vc.Token = token
	creds.Vendors[vendor] = vc

	return m.Save(creds)
}

// SetRefreshToken stores a refresh token for the given vendor.
func (m *Manager) SetRefreshToken(vendor, refreshToken string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	vc := creds.Vendors[vendor]
	vc.RefreshToken = refreshToken
	creds.Vendors[vendor] = vc

	return m.Save(creds)
}

// GetToken returns the stored bearer token for the given vendor. The
// vendor's environment variable, when set, takes precedence over the file.
// Returns an empty string if neither is present.
func (m *Manager) GetToken(vendor string) (string, error) {
	if env := vendorEnvVars[vendor]; env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, nil
		}
	}

	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Vendors[vendor].Token, nil
}

// GetRefreshToken returns the stored refresh token for the given vendor.
func (m *Manager) GetRefreshToken(vendor string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Vendors[vendor].RefreshToken, nil
}

// RemoveVendor deletes the stored credential for a vendor.
func (m *Manager) RemoveVendor(vendor string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Vendors, vendor)

	return m.Save(creds)
}

// ListVendors returns the names of vendors that have stored credentials.
func (m *Manager) ListVendors() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	vendors := make([]string, 0, len(creds.Vendors))
	for name := range creds.Vendors {
		vendors = append(vendors, name)
	}

	sort.Strings(vendors)

	return vendors, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForVendor returns the environment variable name for a given vendor.
// Returns an empty string for unknown vendors.
func EnvVarForVendor(vendor string) string {
	return vendorEnvVars[vendor]
}

// SupportedVendors returns the list of vendors that take credentials.
func SupportedVendors() []string {
	return []string{"agent", "bot"}
}

// IsSupportedVendor returns true if the given vendor is supported.
func IsSupportedVendor(vendor string) bool {
	return slices.Contains(SupportedVendors(), vendor)
}
