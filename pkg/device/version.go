package device

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a 3-byte firmware or bootloader version, major.minor.patch.
// The zero value means "not yet reported".
type Version [3]byte

// ParseVersion parses a dotted version string such as "2.2.0". One or two
// missing components default to zero.
func ParseVersion(s string) (Version, error) {
	var v Version
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return v, fmt.Errorf("invalid version %q", s)
	}
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v[i] = byte(n)
	}
	return v, nil
}

// String renders the version as major.minor.patch.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// IsZero reports whether the version has never been set.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Less orders versions component-wise.
func (v Version) Less(o Version) bool {
	for i := range v {
		if v[i] != o[i] {
			return v[i] < o[i]
		}
	}
	return false
}
