// Package version holds the release version of gohwrng.
package version

import (
	"fmt"
	"regexp"
	"strconv"
)

var semverRE = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-([0-9A-Za-z.-]+))?$`)

var (
	// Version is the semantic version of the build. It can be overridden with
	// '-ldflags "-X github.com/rampantspark/gohwrng/internal/version.Version=x.y.z"'.
	Version = "0.1.1"

	// Components parsed from Version at init.
	Major      uint
	Minor      uint
	Patch      uint
	PreRelease string
)

func init() {
	var err error
	Major, Minor, Patch, PreRelease, err = Parse(Version)
	if err != nil {
		panic(err)
	}
}

// Parse splits a semantic version string of the form MAJOR.MINOR.PATCH with
// an optional -PRERELEASE suffix.
func Parse(s string) (major, minor, patch uint, pre string, err error) {
	m := semverRE.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, "", fmt.Errorf("malformed version string %q", s)
	}
	parts := make([]uint, 3)
	for i := range parts {
		v, err := strconv.ParseUint(m[i+1], 10, 0)
		if err != nil {
			return 0, 0, 0, "", fmt.Errorf("malformed version component %q: %w", m[i+1], err)
		}
		parts[i] = uint(v)
	}
	return parts[0], parts[1], parts[2], m[4], nil
}

// String returns the version string.
func String() string {
	return Version
}
