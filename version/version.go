package version

import (
	gover "github.com/hashicorp/go-version"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
)

var (
	// The full version string
	Version = "0.3.0"
	// GitCommit is set with --ldflags "-X main.gitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

var ErrIncompatible = errors.New("incompatible version")

func init() {
	if GitCommit != "" {
		Version += "+" + GitCommit[:8]
	}
}

// CompatibleWith checks whether a document written by version other can be
// read by this build.
// RULES:
// | local |           other            |
// |   -   |             -              |
// | 0.x.y | same major&minor version.   |
// | 1.x.y | same major version.        |
func CompatibleWith(other string) (bool, error) {
	localVersion, err := gover.NewVersion(Version)
	if err != nil {
		return false, err
	}
	otherVersion, err := gover.NewVersion(other)
	if err != nil {
		return false, errors.Wrapf(err, "parsing version %q", other)
	}

	local, remote := localVersion.Segments(), otherVersion.Segments()
	if local[0] == 0 {
		return local[0] == remote[0] && local[1] == remote[1], nil
	}
	return local[0] == remote[0], nil
}

// Check returns ErrIncompatible unless other is compatible. An empty
// version is taken as the current one.
func Check(other string) error {
	if other == "" {
		return nil
	}
	ok, err := CompatibleWith(other)
	if err != nil {
		return err
	}
	if !ok {
		return errors.WithDetailf(ErrIncompatible, "%s cannot read %s", Version, other)
	}
	return nil
}
