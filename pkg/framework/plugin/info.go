package plugin

import (
	"crypto/sha1"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Info contains plugin metadata
type Info struct {
	ID       string // Unique plugin identifier (e.g., "com.example.myplugin")
	Name     string // Display name
	Version  string // Semantic version (e.g., "1.0.0")
	Vendor   string // Company/developer name
	Category string // Plugin category (e.g., "Fx", "Instrument")
}

// UID derives a stable 16-byte class ID from the string ID (name-based
// UUID, version 5 layout).
func (i Info) UID() [16]byte {
	sum := sha1.Sum([]byte(i.ID))

	var uid [16]byte
	copy(uid[:], sum[:16])
	uid[6] = (uid[6] & 0x0f) | 0x50
	uid[8] = (uid[8] & 0x3f) | 0x80
	return uid
}

// Validate checks that the ID is set and the version parses as semver
func (i Info) Validate() error {
	if i.ID == "" {
		return errors.New("plugin ID is empty")
	}
	if _, err := semver.NewVersion(i.Version); err != nil {
		return fmt.Errorf("plugin %s: invalid version %q: %w", i.ID, i.Version, err)
	}
	return nil
}

// String returns "Name Version (Vendor)"
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s)", i.Name, i.Version, i.Vendor)
}
